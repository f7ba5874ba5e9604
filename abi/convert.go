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
	"encoding/json"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/icon-project/btp2/common/errors"
)

// ValuesOf converts args with ValueOf, pairing args[i] with params[i].
func ValuesOf(params Parameters, args ...interface{}) ([]Value, error) {
	if len(params) != len(args) {
		return nil, ErrorCodeArgumentCountMismatch.Errorf(
			"argument count mismatch expected:%d actual:%d", len(params), len(args))
	}
	types, err := params.Types()
	if err != nil {
		return nil, err
	}
	ret := make([]Value, len(args))
	for i, arg := range args {
		if ret[i], err = ValueOf(types[i], arg); err != nil {
			return nil, errors.CodeOf(err).Wrapf(err, "invalid argument name:%s err:%s", params.Names()[i], err.Error())
		}
	}
	return ret, nil
}

// ValueOf converts a Go value to a Value of type t. Integers accept Go
// integer kinds, big.Int, json.Number, integral float64 and decimal or 0x
// prefixed hex strings. Byte sequences accept byte slices, byte arrays and
// hex strings. Tuples accept positional slices, maps keyed by component
// name and structs.
func ValueOf(t *Type, v interface{}) (Value, error) {
	if t == nil {
		return Value{}, ErrorCodeTypeMismatch.Errorf("nil type")
	}
	if val, ok := v.(Value); ok {
		if err := conform(t, val); err != nil {
			return Value{}, err
		}
		return val, nil
	}
	if v == nil {
		return Value{}, ErrorCodeTypeMismatch.Errorf("nil value for type:%s", t)
	}
	switch t.Kind {
	case BoolKind:
		return boolOf(t, v)
	case UintKind, IntKind:
		x, err := bigIntOf(v)
		if err != nil {
			return Value{}, ErrorCodeTypeMismatch.Wrapf(err, "invalid value for %s", t)
		}
		if err = checkInteger(t, x); err != nil {
			return Value{}, err
		}
		return Value{t: t, num: x}, nil
	case AddressKind:
		return addressOf(t, v)
	case FixedBytesKind:
		b, err := bytesOf(v)
		if err != nil {
			return Value{}, ErrorCodeTypeMismatch.Wrapf(err, "invalid value for %s", t)
		}
		if len(b) > t.Size {
			return Value{}, ErrorCodeValueOutOfRange.Errorf("too long for %s length:%d", t, len(b))
		}
		data := make([]byte, t.Size)
		copy(data, b)
		return Value{t: t, data: data}, nil
	case BytesKind:
		b, err := bytesOf(v)
		if err != nil {
			return Value{}, ErrorCodeTypeMismatch.Wrapf(err, "invalid value for %s", t)
		}
		return Value{t: t, data: b}, nil
	case StringKind:
		var data []byte
		switch s := v.(type) {
		case string:
			data = []byte(s)
		case []byte:
			data = copyBytes(s)
		default:
			return Value{}, ErrorCodeTypeMismatch.Errorf("invalid value for %s value:%T", t, v)
		}
		if !utf8.Valid(data) {
			return Value{}, ErrorCodeInvalidUtf8.Errorf("invalid utf-8 string for %s", t)
		}
		return Value{t: t, data: data}, nil
	case ArrayKind, SliceKind:
		return arrayOf(t, reflect.ValueOf(v))
	case TupleKind:
		return tupleOf(t, reflect.ValueOf(v))
	}
	return Value{}, ErrorCodeTypeMismatch.Errorf("unsupported type:%s", t)
}

func boolOf(t *Type, v interface{}) (Value, error) {
	switch b := v.(type) {
	case bool:
		return Value{t: t, flag: b}, nil
	case string:
		f, err := strconv.ParseBool(b)
		if err != nil {
			return Value{}, ErrorCodeTypeMismatch.Wrapf(err, "invalid value for %s value:%q", t, b)
		}
		return Value{t: t, flag: f}, nil
	}
	return Value{}, ErrorCodeTypeMismatch.Errorf("invalid value for %s value:%T", t, v)
}

func bigIntOf(v interface{}) (*big.Int, error) {
	switch n := v.(type) {
	case *big.Int:
		if n == nil {
			return nil, ErrorCodeTypeMismatch.Errorf("nil integer")
		}
		return new(big.Int).Set(n), nil
	case big.Int:
		return new(big.Int).Set(&n), nil
	case *hexutil.Big:
		return new(big.Int).Set(n.ToInt()), nil
	case hexutil.Big:
		return new(big.Int).Set(n.ToInt()), nil
	case json.Number:
		return parseBigInt(string(n))
	case string:
		return parseBigInt(n)
	case float64:
		return floatToBigInt(n)
	case float32:
		return floatToBigInt(float64(n))
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return big.NewInt(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return new(big.Int).SetUint64(rv.Uint()), nil
	}
	return nil, ErrorCodeTypeMismatch.Errorf("not an integer value:%T", v)
}

// parseBigInt parses decimal or 0x prefixed hex, with an optional sign.
func parseBigInt(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s, base = s[2:], 16
	}
	x, ok := new(big.Int).SetString(s, base)
	if !ok || len(s) == 0 || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return nil, ErrorCodeTypeMismatch.Errorf("invalid integer string:%q", s)
	}
	if neg {
		x.Neg(x)
	}
	return x, nil
}

func floatToBigInt(f float64) (*big.Int, error) {
	if math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return nil, ErrorCodeTypeMismatch.Errorf("not an exact integer:%v", f)
	}
	return big.NewInt(int64(f)), nil
}

func addressOf(t *Type, v interface{}) (Value, error) {
	switch a := v.(type) {
	case common.Address:
		return Value{t: t, data: a.Bytes()}, nil
	case *common.Address:
		if a != nil {
			return Value{t: t, data: a.Bytes()}, nil
		}
	case string:
		if !common.IsHexAddress(a) {
			return Value{}, ErrorCodeTypeMismatch.Errorf("invalid address:%q", a)
		}
		return Value{t: t, data: common.HexToAddress(a).Bytes()}, nil
	default:
		b, err := bytesOf(v)
		if err == nil && len(b) == addressLength {
			return Value{t: t, data: b}, nil
		}
	}
	return Value{}, ErrorCodeTypeMismatch.Errorf("invalid value for %s value:%T", t, v)
}

func bytesOf(v interface{}) ([]byte, error) {
	switch b := v.(type) {
	case []byte:
		return copyBytes(b), nil
	case string:
		s := b
		if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
			s = "0x" + s
		}
		d, err := hexutil.Decode(s)
		if err != nil {
			return nil, ErrorCodeTypeMismatch.Wrapf(err, "invalid hex string:%q", b)
		}
		return d, nil
	}
	rv := reflect.ValueOf(v)
	if (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Type().Elem().Kind() == reflect.Uint8 {
		ret := make([]byte, rv.Len())
		reflect.Copy(reflect.ValueOf(ret), rv)
		return ret, nil
	}
	return nil, ErrorCodeTypeMismatch.Errorf("not a bytes value:%T", v)
}

func arrayOf(t *Type, rv reflect.Value) (Value, error) {
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return Value{}, ErrorCodeTypeMismatch.Errorf("invalid value for %s value:%s", t, rv.Type())
	}
	if t.Kind == ArrayKind && rv.Len() != t.Size {
		return Value{}, ErrorCodeTypeMismatch.Errorf("array length mismatch type:%s length:%d", t, rv.Len())
	}
	elems := make([]Value, rv.Len())
	for i := range elems {
		e, err := ValueOf(t.Elem, rv.Index(i).Interface())
		if err != nil {
			return Value{}, err
		}
		elems[i] = e
	}
	return Value{t: t, elems: elems}, nil
}

func tupleOf(t *Type, rv reflect.Value) (Value, error) {
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return Value{}, ErrorCodeTypeMismatch.Errorf("nil value for type:%s", t)
		}
		rv = rv.Elem()
	}
	fields := make([]interface{}, len(t.Components))
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Len() != len(t.Components) {
			return Value{}, ErrorCodeTypeMismatch.Errorf("tuple size mismatch type:%s size:%d", t, rv.Len())
		}
		for i := range fields {
			fields[i] = rv.Index(i).Interface()
		}
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return Value{}, ErrorCodeTypeMismatch.Errorf("invalid map key for %s", t)
		}
		for i, name := range t.ComponentNames {
			e := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
			if !e.IsValid() {
				return Value{}, ErrorCodeTypeMismatch.Errorf("missing component name:%q of %s", name, t)
			}
			fields[i] = e.Interface()
		}
	case reflect.Struct:
		for i, name := range t.ComponentNames {
			f, ok := structField(rv, name)
			if !ok {
				return Value{}, ErrorCodeTypeMismatch.Errorf("missing field for component name:%q of %s", name, t)
			}
			fields[i] = f.Interface()
		}
	default:
		return Value{}, ErrorCodeTypeMismatch.Errorf("invalid value for %s value:%s", t, rv.Type())
	}
	elems := make([]Value, len(fields))
	for i, f := range fields {
		e, err := ValueOf(t.Components[i], f)
		if err != nil {
			return Value{}, err
		}
		elems[i] = e
	}
	return Value{t: t, elems: elems}, nil
}

// structField finds the exported field tagged or named after a component.
func structField(rv reflect.Value, name string) (reflect.Value, bool) {
	if len(name) == 0 {
		return reflect.Value{}, false
	}
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag := strings.Split(sf.Tag.Get("json"), ",")[0]
		if tag == name || (len(tag) == 0 && strings.EqualFold(sf.Name, name)) {
			return rv.Field(i), true
		}
	}
	return reflect.Value{}, false
}
