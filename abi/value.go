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
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var (
	boolType    = MustTypeOf("bool")
	addressType = MustTypeOf("address")
	bytesType   = MustTypeOf("bytes")
	stringType  = MustTypeOf("string")
	uint256Type = MustTypeOf("uint256")
	int256Type  = MustTypeOf("int256")
)

// Value is a typed ABI value. Scalars keep their payload in num, flag or
// data according to the kind of their type; arrays and tuples keep their
// children in elems.
type Value struct {
	t     *Type
	num   *big.Int
	flag  bool
	data  []byte
	elems []Value
}

func Bool(b bool) Value {
	return Value{t: boolType, flag: b}
}

func Uint(bits int, x *big.Int) (Value, error) {
	return integer(UintKind, bits, x)
}

func Int(bits int, x *big.Int) (Value, error) {
	return integer(IntKind, bits, x)
}

func integer(k Kind, bits int, x *big.Int) (Value, error) {
	if bits < 8 || bits > maxIntegerBits || bits%8 != 0 {
		return Value{}, ErrorCodeInvalidTypeSyntax.Errorf("invalid integer bits:%d", bits)
	}
	if x == nil {
		return Value{}, ErrorCodeTypeMismatch.Errorf("nil integer")
	}
	t := finalize(&Type{Kind: k, Size: bits})
	if err := checkInteger(t, x); err != nil {
		return Value{}, err
	}
	return Value{t: t, num: new(big.Int).Set(x)}, nil
}

func Uint64(x uint64) Value {
	return Value{t: uint256Type, num: new(big.Int).SetUint64(x)}
}

func Int64(x int64) Value {
	return Value{t: int256Type, num: big.NewInt(x)}
}

func Address(a common.Address) Value {
	return Value{t: addressType, data: a.Bytes()}
}

// FixedBytes returns a bytesN value where N is the length of b.
func FixedBytes(b []byte) (Value, error) {
	if len(b) < 1 || len(b) > maxFixedBytes {
		return Value{}, ErrorCodeValueOutOfRange.Errorf("invalid fixed bytes length:%d", len(b))
	}
	return Value{t: finalize(&Type{Kind: FixedBytesKind, Size: len(b)}), data: copyBytes(b)}, nil
}

func Bytes(b []byte) Value {
	return Value{t: bytesType, data: copyBytes(b)}
}

func String(s string) Value {
	return Value{t: stringType, data: []byte(s)}
}

// Array returns an array or slice value of type t.
func Array(t *Type, elems ...Value) (Value, error) {
	if t.Kind != ArrayKind && t.Kind != SliceKind {
		return Value{}, ErrorCodeTypeMismatch.Errorf("not an array type:%s", t)
	}
	v := Value{t: t, elems: copyValues(elems)}
	if err := conform(t, v); err != nil {
		return Value{}, err
	}
	return v, nil
}

func Tuple(t *Type, elems ...Value) (Value, error) {
	if t.Kind != TupleKind {
		return Value{}, ErrorCodeTypeMismatch.Errorf("not a tuple type:%s", t)
	}
	v := Value{t: t, elems: copyValues(elems)}
	if err := conform(t, v); err != nil {
		return Value{}, err
	}
	return v, nil
}

func copyBytes(b []byte) []byte {
	ret := make([]byte, len(b))
	copy(ret, b)
	return ret
}

func copyValues(l []Value) []Value {
	ret := make([]Value, len(l))
	copy(ret, l)
	return ret
}

func (v Value) Type() *Type {
	return v.t
}

func (v Value) IsValid() bool {
	return v.t != nil
}

func (v Value) Bool() bool {
	return v.flag
}

func (v Value) BigInt() *big.Int {
	if v.num == nil {
		return nil
	}
	return new(big.Int).Set(v.num)
}

func (v Value) Address() common.Address {
	return common.BytesToAddress(v.data)
}

// Bytes returns the payload of fixed bytes, bytes, string and address values.
func (v Value) Bytes() []byte {
	return copyBytes(v.data)
}

// Text returns the payload of a string value.
func (v Value) Text() string {
	return string(v.data)
}

func (v Value) Len() int {
	return len(v.elems)
}

func (v Value) Index(i int) Value {
	return v.elems[i]
}

func (v Value) Elems() []Value {
	return copyValues(v.elems)
}

// Equal reports whether v and o have the same canonical type and payload.
func (v Value) Equal(o Value) bool {
	if !v.t.Equal(o.t) {
		return false
	}
	if v.t == nil {
		return true
	}
	switch v.t.Kind {
	case BoolKind:
		return v.flag == o.flag
	case UintKind, IntKind:
		return v.num.Cmp(o.num) == 0
	case AddressKind, FixedBytesKind, BytesKind, StringKind:
		return bytes.Equal(v.data, o.data)
	default:
		if len(v.elems) != len(o.elems) {
			return false
		}
		for i := range v.elems {
			if !v.elems[i].Equal(o.elems[i]) {
				return false
			}
		}
		return true
	}
}

func (v Value) String() string {
	if v.t == nil {
		return "<invalid>"
	}
	switch v.t.Kind {
	case BoolKind:
		return fmt.Sprintf("%v", v.flag)
	case UintKind, IntKind:
		return v.num.String()
	case AddressKind:
		return v.Address().Hex()
	case FixedBytesKind, BytesKind:
		return hexutil.Encode(v.data)
	case StringKind:
		return fmt.Sprintf("%q", v.data)
	case TupleKind:
		return "(" + joinValues(v.elems) + ")"
	default:
		return "[" + joinValues(v.elems) + "]"
	}
}

func joinValues(l []Value) string {
	s := make([]string, len(l))
	for i, e := range l {
		s[i] = e.String()
	}
	return strings.Join(s, ",")
}

// Interface returns a JSON friendly representation of v. Integers are
// decimal strings, byte sequences are 0x prefixed hex, tuples with named
// components are maps.
func (v Value) Interface() interface{} {
	if v.t == nil {
		return nil
	}
	switch v.t.Kind {
	case BoolKind:
		return v.flag
	case UintKind, IntKind:
		return v.num.String()
	case AddressKind:
		return v.Address().Hex()
	case FixedBytesKind, BytesKind:
		return hexutil.Encode(v.data)
	case StringKind:
		return string(v.data)
	case TupleKind:
		if hasNames(v.t.ComponentNames) {
			m := make(map[string]interface{}, len(v.elems))
			for i, e := range v.elems {
				m[v.t.ComponentNames[i]] = e.Interface()
			}
			return m
		}
		fallthrough
	default:
		l := make([]interface{}, len(v.elems))
		for i, e := range v.elems {
			l[i] = e.Interface()
		}
		return l
	}
}

func hasNames(names []string) bool {
	for _, n := range names {
		if len(n) == 0 {
			return false
		}
	}
	return len(names) > 0
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// conform checks that the shape of v is acceptable for type t and that
// integers and fixed bytes fit t.
func conform(t *Type, v Value) error {
	if v.t == nil {
		return ErrorCodeTypeMismatch.Errorf("invalid value for type:%s", t)
	}
	mismatch := func() error {
		return ErrorCodeTypeMismatch.Errorf("type mismatch expected:%s actual:%s", t, v.t)
	}
	switch t.Kind {
	case UintKind, IntKind:
		if v.t.Kind != UintKind && v.t.Kind != IntKind {
			return mismatch()
		}
		return checkInteger(t, v.num)
	case FixedBytesKind:
		if v.t.Kind != FixedBytesKind {
			return mismatch()
		}
		if len(v.data) > t.Size {
			return ErrorCodeValueOutOfRange.Errorf("too long for %s length:%d", t, len(v.data))
		}
		return nil
	case StringKind:
		if v.t.Kind != StringKind {
			return mismatch()
		}
		if !utf8.Valid(v.data) {
			return ErrorCodeInvalidUtf8.Errorf("invalid utf-8 string for %s", t)
		}
		return nil
	case ArrayKind, SliceKind:
		if v.t.Kind != ArrayKind && v.t.Kind != SliceKind {
			return mismatch()
		}
		if t.Kind == ArrayKind && len(v.elems) != t.Size {
			return ErrorCodeTypeMismatch.Errorf("array length mismatch type:%s length:%d", t, len(v.elems))
		}
		for _, e := range v.elems {
			if err := conform(t.Elem, e); err != nil {
				return err
			}
		}
		return nil
	case TupleKind:
		if v.t.Kind != TupleKind {
			return mismatch()
		}
		if len(v.elems) != len(t.Components) {
			return ErrorCodeTypeMismatch.Errorf("tuple size mismatch type:%s size:%d", t, len(v.elems))
		}
		for i, c := range t.Components {
			if err := conform(c, v.elems[i]); err != nil {
				return err
			}
		}
		return nil
	default:
		if v.t.Kind != t.Kind {
			return mismatch()
		}
		return nil
	}
}

var (
	big1 = big.NewInt(1)
)

func checkInteger(t *Type, x *big.Int) error {
	if x == nil {
		return ErrorCodeTypeMismatch.Errorf("nil integer for type:%s", t)
	}
	if t.Kind == UintKind {
		if x.Sign() < 0 || x.BitLen() > t.Size {
			return ErrorCodeValueOutOfRange.Errorf("out of range for %s value:%s", t, x)
		}
		return nil
	}
	if x.Sign() >= 0 {
		if x.BitLen() > t.Size-1 {
			return ErrorCodeValueOutOfRange.Errorf("out of range for %s value:%s", t, x)
		}
		return nil
	}
	// -2^(N-1) <= x  <=>  bitlen(-x-1) <= N-1
	if new(big.Int).Sub(new(big.Int).Neg(x), big1).BitLen() > t.Size-1 {
		return ErrorCodeValueOutOfRange.Errorf("out of range for %s value:%s", t, x)
	}
	return nil
}
