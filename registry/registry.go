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

package registry

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"
	"gorm.io/gorm"

	"github.com/icon-project/abi-sdk/abi"
	"github.com/icon-project/abi-sdk/database"
)

const (
	ErrorCodeNotRegistered errors.Code = errors.CodeGeneral + 200 + iota
	ErrorCodeUndecodable
)

const (
	TableSignature        = "signature"
	DefaultParseCacheSize = 256
)

type Kind string

const (
	KindFunction Kind = "function"
	KindEvent    Kind = "event"
	KindError    Kind = "error"
)

// Signature is a registered function, event or error signature.
type Signature struct {
	database.Model
	Kind Kind `json:"kind" gorm:"uniqueIndex:idx_signature_kind_canonical;size:16"`
	// Canonical is the signature used for hashing, e.g. "transfer(address,uint256)"
	Canonical string `json:"canonical" gorm:"uniqueIndex:idx_signature_kind_canonical;size:512"`
	// Text keeps parameter names, e.g. "transfer(address to,uint256 amount)"
	Text     string `json:"text" gorm:"size:2048"`
	Selector string `json:"selector" gorm:"index;size:10"`
	Hash     string `json:"hash" gorm:"index;size:66"`
}

type parsed struct {
	name   string
	params abi.Parameters
}

// Parse returns the name and the parameters of the signature.
func (s *Signature) Parse() (string, abi.Parameters, error) {
	return abi.ParseSignature(s.Text)
}

type Registry struct {
	r     database.Repository[Signature]
	cache *lru.Cache
	l     log.Logger
}

func New(db *gorm.DB, l log.Logger) (*Registry, error) {
	r, err := database.NewDefaultRepository[Signature](db, TableSignature)
	if err != nil {
		return nil, errors.Wrapf(err, "fail to NewDefaultRepository err:%s", err.Error())
	}
	c, err := lru.New(DefaultParseCacheSize)
	if err != nil {
		return nil, err
	}
	return &Registry{
		r:     r,
		cache: c,
		l:     l.WithFields(log.Fields{log.FieldKeyModule: "registry"}),
	}, nil
}

func newSignature(kind Kind, name string, params abi.Parameters) (*Signature, error) {
	canonical, err := abi.CanonicalSignature(name, params)
	if err != nil {
		return nil, err
	}
	ordered, err := params.Ordered()
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(ordered))
	for i, p := range ordered {
		texts[i] = p.String()
	}
	hash := abi.Keccak256Hash([]byte(canonical))
	return &Signature{
		Kind:      kind,
		Canonical: canonical,
		Text:      name + "(" + strings.Join(texts, ",") + ")",
		Selector:  hexSelector(hash.Bytes()),
		Hash:      hash.Hex(),
	}, nil
}

func hexSelector(b []byte) string {
	var s abi.Selector
	copy(s[:], b)
	return s.String()
}

func register(r database.Repository[Signature], s *Signature) (bool, error) {
	return r.FirstOrCreate(s, &Signature{Kind: s.Kind, Canonical: s.Canonical})
}

// Register stores the signature if it is not registered yet.
func (r *Registry) Register(kind Kind, name string, params abi.Parameters) (*Signature, error) {
	s, err := newSignature(kind, name, params)
	if err != nil {
		return nil, err
	}
	created, err := register(r.r, s)
	if err != nil {
		return nil, errors.Wrapf(err, "fail to register signature:%s err:%s", s.Canonical, err.Error())
	}
	if created {
		r.l.Debugf("registered %s %s selector:%s", s.Kind, s.Text, s.Selector)
	}
	return s, nil
}

// RegisterText parses a human readable signature which may start with
// "function", "event" or "error", and registers it.
func (r *Registry) RegisterText(text string) (*Signature, error) {
	kind := KindFunction
	trimmed := strings.TrimSpace(text)
	for _, k := range []Kind{KindEvent, KindError} {
		if strings.HasPrefix(trimmed, string(k)+" ") {
			kind = k
		}
	}
	name, params, err := abi.ParseSignature(trimmed)
	if err != nil {
		return nil, err
	}
	return r.Register(kind, name, params)
}

// RegisterContract registers the functions, events and errors of c in a
// transaction.
func (r *Registry) RegisterContract(c *abi.Contract) ([]Signature, error) {
	l := make([]*Signature, 0, len(c.Methods)+len(c.Events)+len(c.Errors))
	for _, m := range c.Methods {
		s, err := newSignature(KindFunction, m.RawName, m.Inputs)
		if err != nil {
			return nil, err
		}
		l = append(l, s)
	}
	for _, e := range c.Events {
		s, err := newSignature(KindEvent, e.RawName, e.Inputs)
		if err != nil {
			return nil, err
		}
		l = append(l, s)
	}
	for _, e := range c.Errors {
		s, err := newSignature(KindError, e.RawName, e.Inputs)
		if err != nil {
			return nil, err
		}
		l = append(l, s)
	}
	created := 0
	err := r.r.Transaction(func(tx database.Repository[Signature]) error {
		for _, s := range l {
			ok, err := register(tx, s)
			if err != nil {
				return err
			}
			if ok {
				created++
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "fail to RegisterContract err:%s", err.Error())
	}
	r.l.Debugf("RegisterContract signatures:%d created:%d", len(l), created)
	ret := make([]Signature, len(l))
	for i, s := range l {
		ret[i] = *s
	}
	return ret, nil
}

// LookupSelector returns the functions and errors with the selector.
func (r *Registry) LookupSelector(selector abi.Selector) ([]Signature, error) {
	l, err := r.r.Find(&Signature{Selector: selector.String()})
	if err != nil {
		return nil, errors.Wrapf(err, "fail to find selector:%s err:%s", selector, err.Error())
	}
	ret := make([]Signature, 0, len(l))
	for _, s := range l {
		if s.Kind != KindEvent {
			ret = append(ret, s)
		}
	}
	return ret, nil
}

func (r *Registry) LookupTopic(topic common.Hash) ([]Signature, error) {
	l, err := r.r.Find(&Signature{Kind: KindEvent, Hash: topic.Hex()})
	if err != nil {
		return nil, errors.Wrapf(err, "fail to find topic:%s err:%s", topic.Hex(), err.Error())
	}
	return l, nil
}

// Page returns registered signatures, of the kind if it is not empty.
func (r *Registry) Page(p database.Pageable, kind Kind) (*database.Page[Signature], error) {
	var query interface{}
	if len(kind) > 0 {
		query = &Signature{Kind: kind}
	}
	return r.r.Page(p, query)
}

func (r *Registry) parse(s Signature) (string, abi.Parameters, error) {
	if v, ok := r.cache.Get(s.Text); ok {
		p := v.(parsed)
		return p.name, p.params, nil
	}
	name, params, err := s.Parse()
	if err != nil {
		return "", nil, err
	}
	r.cache.Add(s.Text, parsed{name: name, params: params})
	return name, params, nil
}
