/*
 * Copyright 2023 ICON Foundation
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"database/sql"
	"errors"
	"math"
	"time"

	"gorm.io/gorm"
)

type Model struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Pageable struct {
	// Page 0-indexed
	Page uint `json:"page" query:"page"`
	// Size zero for unlimited
	Size uint `json:"size" query:"size" validate:"lte=1000"`
	// Sort for example "FIELD desc,FIELD"
	Sort string `json:"sort,omitempty" query:"sort"`
}

type Page[T any] struct {
	Content       []T      `json:"content"`
	TotalElements int      `json:"total_elements"`
	TotalPages    int      `json:"total_pages"`
	Pageable      Pageable `json:"pageable"`
}

type Repository[T any] interface {
	Save(v *T) error
	FirstOrCreate(v *T, query interface{}, conds ...interface{}) (bool, error)
	Delete(query interface{}, conds ...interface{}) error
	Count(query interface{}, conds ...interface{}) (int64, error)
	FindOne(query interface{}, conds ...interface{}) (*T, error)
	Find(query interface{}, conds ...interface{}) ([]T, error)
	Page(p Pageable, query interface{}, conds ...interface{}) (*Page[T], error)
	Transaction(fc func(tx Repository[T]) error, opts ...*sql.TxOptions) error
}

// DefaultRepository is a Repository over a table of gorm.DB.
type DefaultRepository[T any] struct {
	db   *gorm.DB
	name string
}

func NewDefaultRepository[T any](db *gorm.DB, name string) (*DefaultRepository[T], error) {
	if err := db.Table(name).AutoMigrate(new(T)); err != nil {
		return nil, err
	}
	return &DefaultRepository[T]{db: db, name: name}, nil
}

func (r *DefaultRepository[T]) table() *gorm.DB {
	if len(r.name) > 0 {
		return r.db.Table(r.name)
	}
	return r.db
}

func (r *DefaultRepository[T]) where(query interface{}, conds ...interface{}) *gorm.DB {
	ret := r.table()
	if query != nil {
		ret = ret.Where(query, conds...)
	}
	return ret
}

func filterError(err error) error {
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return nil
}

func (r *DefaultRepository[T]) Save(v *T) error {
	return r.table().Save(v).Error
}

// FirstOrCreate loads the first record matching the query into v, or
// creates v when there is none. It returns true if v is created.
func (r *DefaultRepository[T]) FirstOrCreate(v *T, query interface{}, conds ...interface{}) (bool, error) {
	ret := r.where(query, conds...).Limit(1).Find(v)
	if ret.Error != nil {
		return false, ret.Error
	}
	if ret.RowsAffected > 0 {
		return false, nil
	}
	if err := r.table().Create(v).Error; err != nil {
		return false, err
	}
	return true, nil
}

func (r *DefaultRepository[T]) Delete(query interface{}, conds ...interface{}) error {
	return r.where(query, conds...).Delete(new(T)).Error
}

func (r *DefaultRepository[T]) Count(query interface{}, conds ...interface{}) (int64, error) {
	var count int64
	if err := r.where(query, conds...).Count(&count).Error; err != nil {
		return -1, err
	}
	return count, nil
}

// FindOne returns nil without error if there is no matching record.
func (r *DefaultRepository[T]) FindOne(query interface{}, conds ...interface{}) (*T, error) {
	v := new(T)
	if err := r.where(query, conds...).First(v).Error; err != nil {
		return nil, filterError(err)
	}
	return v, nil
}

func (r *DefaultRepository[T]) Find(query interface{}, conds ...interface{}) ([]T, error) {
	l := make([]T, 0)
	if err := r.where(query, conds...).Find(&l).Error; err != nil {
		return nil, err
	}
	return l, nil
}

func (r *DefaultRepository[T]) Page(p Pageable, query interface{}, conds ...interface{}) (*Page[T], error) {
	var count int64
	if err := r.where(query, conds...).Count(&count).Error; err != nil {
		return nil, err
	}
	ret := r.where(query, conds...)
	if p.Size > 0 {
		ret = ret.Offset(int(p.Page * p.Size)).Limit(int(p.Size))
	}
	if len(p.Sort) > 0 {
		ret = ret.Order(p.Sort)
	}
	l := make([]T, 0)
	if err := ret.Find(&l).Error; err != nil {
		return nil, err
	}
	totalPages := 0
	if count > 0 {
		totalPages = 1
		if p.Size > 0 {
			totalPages = int(math.Ceil(float64(count) / float64(p.Size)))
		}
	}
	return &Page[T]{
		Pageable:      p,
		TotalElements: int(count),
		TotalPages:    totalPages,
		Content:       l,
	}, nil
}

func (r *DefaultRepository[T]) Transaction(fc func(tx Repository[T]) error, opts ...*sql.TxOptions) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fc(&DefaultRepository[T]{db: tx, name: r.name})
	}, opts...)
}
