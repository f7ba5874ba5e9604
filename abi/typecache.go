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

package abi

import (
	lru "github.com/hashicorp/golang-lru"
	"github.com/icon-project/btp2/common/log"
)

const DefaultTypeCacheSize = 1024

var (
	typeCache = mustNewTypeCache(DefaultTypeCacheSize)
)

func mustNewTypeCache(size int) *lru.Cache {
	c, err := lru.New(size)
	if err != nil {
		log.Panicf("fail to create type cache err:%+v", err)
	}
	return c
}

// TypeOf returns the parsed Type of a type string which needs no
// components, e.g. "uint256[]" or "(address,bool)". Parsed types are cached.
func TypeOf(t string) (*Type, error) {
	if v, ok := typeCache.Get(t); ok {
		return v.(*Type), nil
	}
	typ, err := newType(t, nil)
	if err != nil {
		return nil, err
	}
	typeCache.Add(t, typ)
	return typ, nil
}

func MustTypeOf(t string) *Type {
	typ, err := TypeOf(t)
	if err != nil {
		log.Panicf("fail to TypeOf err:%+v", err)
	}
	return typ
}
