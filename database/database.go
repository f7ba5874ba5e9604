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
	"fmt"
	"net/url"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/go-playground/validator/v10"
	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	DriverMysql    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	DefaultMaxOpenConns = 10
)

var (
	validate = validator.New()
)

type Config struct {
	Driver   string `json:"driver" validate:"required,oneof=mysql postgres sqlite"`
	User     string `json:"user,omitempty"`
	Password string `json:"password,omitempty"`
	Host     string `json:"host,omitempty" validate:"required_unless=Driver sqlite"`
	Port     uint   `json:"port,omitempty" validate:"required_unless=Driver sqlite"`
	DBName   string `json:"dbname" validate:"required"`
	// MaxOpenConns zero for DefaultMaxOpenConns
	MaxOpenConns int `json:"max_open_conns,omitempty" validate:"gte=0"`
	// SlowThreshold zero for DefaultLogSlowThreshold, for example "500ms"
	SlowThreshold string `json:"slow_threshold,omitempty"`
}

func (c Config) slowThreshold() (time.Duration, error) {
	if len(c.SlowThreshold) == 0 {
		return DefaultLogSlowThreshold, nil
	}
	return time.ParseDuration(c.SlowThreshold)
}

func dialector(cfg Config) (gorm.Dialector, error) {
	switch cfg.Driver {
	case DriverMysql:
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)
		return mysql.New(mysql.Config{
			DSN:                      dsn,
			DefaultStringSize:        256,
			DisableDatetimePrecision: true,
			DontSupportRenameIndex:   true,
			DontSupportRenameColumn:  true,
		}), nil
	case DriverPostgres:
		dsn := fmt.Sprintf("user=%s password=%s host=%s port=%d dbname=%s sslmode=disable",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)
		return postgres.Open(dsn), nil
	case DriverSQLite:
		dsn := "file:" + cfg.DBName
		if len(cfg.User) > 0 {
			q := url.Values{}
			q.Set("_auth", "")
			q.Set("_auth_user", cfg.User)
			q.Set("_auth_pass", cfg.Password)
			dsn += "?" + q.Encode()
		}
		return sqlite.Open(dsn), nil
	default:
		return nil, errors.Errorf("not support db type:%s", cfg.Driver)
	}
}

func OpenDatabase(cfg Config, l log.Logger) (*gorm.DB, error) {
	if err := validate.Struct(&cfg); err != nil {
		return nil, errors.IllegalArgumentError.Wrapf(err, "invalid database config err:%s", err.Error())
	}
	threshold, err := cfg.slowThreshold()
	if err != nil {
		return nil, errors.IllegalArgumentError.Wrapf(err, "invalid slow_threshold err:%s", err.Error())
	}
	d, err := dialector(cfg)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(d, &gorm.Config{
		Logger: newLogger(l.WithFields(log.Fields{log.FieldKeyModule: "database"}), threshold),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "fail to open database driver:%s err:%s", cfg.Driver, err.Error())
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrapf(err, "fail to get sql.DB err:%s", err.Error())
	}
	maxOpen := cfg.MaxOpenConns
	if maxOpen == 0 {
		maxOpen = DefaultMaxOpenConns
	}
	if cfg.Driver == DriverSQLite && cfg.DBName == ":memory:" {
		// every connection of in-memory sqlite has its own database
		maxOpen = 1
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	return db, nil
}
