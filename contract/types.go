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

package contract

import (
	"encoding/json"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/intconv"
	"github.com/icon-project/btp2/common/log"
)

// Integer is a 0x prefixed hexadecimal integer, used in transaction options.
type Integer string

func (i Integer) clearPrefix() string {
	s := string(i)
	if strings.HasPrefix(s, "0x") {
		s = s[2:]
	}
	return s
}

func (i Integer) AsUint64() (uint64, error) {
	return strconv.ParseUint(i.clearPrefix(), 16, 64)
}

func (i Integer) AsBigInt() (*big.Int, error) {
	r := new(big.Int)
	if err := intconv.ParseBigInt(r, string(i)); err != nil {
		return nil, errors.Wrapf(err, "fail to convert big.Int value:%s", string(i))
	}
	return r, nil
}

func MustIntegerOf(value interface{}) Integer {
	ret, err := IntegerOf(value)
	if err != nil {
		log.Panicf("fail to IntegerOf err:%v", err)
	}
	return ret
}

const (
	invalidInteger = ""
)

func IntegerOf(value interface{}) (Integer, error) {
	switch v := value.(type) {
	case Integer:
		return v, nil
	case string:
		i := Integer(v)
		if _, err := i.AsBigInt(); err != nil {
			return invalidInteger, err
		}
		return i, nil
	case []byte:
		return Integer(intconv.FormatBigInt(intconv.BigIntSetBytes(new(big.Int), v))), nil
	case big.Int:
		return Integer(intconv.FormatBigInt(&v)), nil
	case *big.Int:
		return Integer(intconv.FormatBigInt(v)), nil
	default:
		rv := reflect.ValueOf(value)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return Integer(intconv.FormatBigInt(big.NewInt(rv.Int()))), nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return Integer(intconv.FormatBigInt(new(big.Int).SetUint64(rv.Uint()))), nil
		default:
			return invalidInteger, errors.Errorf("invalid type %T", value)
		}
	}
}

type Boolean bool

// Bytes is rendered as 0x prefixed hex in JSON.
type Bytes []byte

func (b Bytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(hexutil.Encode(b))
}

func (b *Bytes) UnmarshalJSON(input []byte) error {
	var s string
	if err := json.Unmarshal(input, &s); err != nil {
		return err
	}
	if len(s) == 0 {
		*b = nil
		return nil
	}
	if !strings.HasPrefix(s, "0x") {
		s = "0x" + s
	}
	v, err := hexutil.Decode(s)
	if err != nil {
		return errors.Wrapf(err, "fail to decode hex value:%s", s)
	}
	*b = v
	return nil
}

func BytesOf(value interface{}) (Bytes, error) {
	switch v := value.(type) {
	case Bytes:
		return v, nil
	case []byte:
		return v, nil
	case string:
		var b Bytes
		if err := b.UnmarshalJSON([]byte(strconv.Quote(v))); err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, errors.Errorf("invalid type %T", value)
	}
}

type Address string
