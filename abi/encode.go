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
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/icon-project/btp2/common/log"
)

var (
	codecLogger = log.New()
)

func init() {
	codecLogger.SetLevel(log.DebugLevel)
}

// Encode serializes values with the standard head/tail layout. values[i]
// is the argument of params[i]; the layout follows the parameter orders.
func Encode(params Parameters, values []Value) ([]byte, error) {
	ts, vs, err := arrange(params, values)
	if err != nil {
		return nil, err
	}
	b, err := encodeSequence(tupleMembers(ts), vs)
	if err != nil {
		return nil, err
	}
	codecLogger.Tracef("Encode params:%d encoded:%d bytes\n", len(params), len(b))
	return b, nil
}

// EncodeArgs converts Go values with ValueOf and encodes them.
func EncodeArgs(params Parameters, args ...interface{}) ([]byte, error) {
	values, err := ValuesOf(params, args...)
	if err != nil {
		return nil, err
	}
	return Encode(params, values)
}

// arrange pairs values with the types of params and sorts both by order.
func arrange(params Parameters, values []Value) ([]*Type, []Value, error) {
	if len(params) != len(values) {
		return nil, nil, ErrorCodeArgumentCountMismatch.Errorf(
			"argument count mismatch expected:%d actual:%d", len(params), len(values))
	}
	types, seq, err := params.layout()
	if err != nil {
		return nil, nil, err
	}
	ts := make([]*Type, len(seq))
	vs := make([]Value, len(seq))
	for i, idx := range seq {
		ts[i], vs[i] = types[idx], values[idx]
	}
	return ts, vs, nil
}

// memberList is the member types of a tuple, or n elements of an array
// without a type per element.
type memberList struct {
	types []*Type
	elem  *Type
	n     int
}

func tupleMembers(types []*Type) memberList {
	return memberList{types: types, n: len(types)}
}

func arrayMembers(elem *Type, n int) memberList {
	return memberList{elem: elem, n: n}
}

func (s memberList) at(i int) *Type {
	if s.elem != nil {
		return s.elem
	}
	return s.types[i]
}

func (s memberList) headSize() int {
	if s.elem != nil {
		return s.n * s.elem.headSize()
	}
	size := 0
	for _, t := range s.types {
		size += t.headSize()
	}
	return size
}

// encodeSequence encodes a tuple of values as head followed by tail.
// Offsets of dynamic members are relative to the start of the head.
func encodeSequence(s memberList, values []Value) ([]byte, error) {
	headSize := s.headSize()
	head := make([]byte, 0, headSize)
	var tail []byte
	for i := 0; i < s.n; i++ {
		t := s.at(i)
		b, err := encodeValue(t, values[i])
		if err != nil {
			return nil, err
		}
		if t.dynamic {
			head = append(head, encodeSize(headSize+len(tail))...)
			tail = append(tail, b...)
		} else {
			head = append(head, b...)
		}
	}
	return append(head, tail...), nil
}

func encodeValue(t *Type, v Value) ([]byte, error) {
	if err := conform(t, v); err != nil {
		return nil, err
	}
	switch t.Kind {
	case ArrayKind:
		return encodeSequence(arrayMembers(t.Elem, len(v.elems)), v.elems)
	case SliceKind:
		b, err := encodeSequence(arrayMembers(t.Elem, len(v.elems)), v.elems)
		if err != nil {
			return nil, err
		}
		return append(encodeSize(len(v.elems)), b...), nil
	case TupleKind:
		return encodeSequence(tupleMembers(t.Components), v.elems)
	case BytesKind, StringKind:
		return encodeBytes(v.data), nil
	default:
		return encodeWord(t, v), nil
	}
}

// encodeWord encodes a static elementary value which already conforms to t.
func encodeWord(t *Type, v Value) []byte {
	word := make([]byte, wordSize)
	switch t.Kind {
	case BoolKind:
		if v.flag {
			word[wordSize-1] = 1
		}
	case UintKind, IntKind:
		return math.U256Bytes(new(big.Int).Set(v.num))
	case AddressKind:
		return common.LeftPadBytes(v.data, wordSize)
	case FixedBytesKind:
		return common.RightPadBytes(v.data, wordSize)
	}
	return word
}

func encodeSize(n int) []byte {
	word := make([]byte, wordSize)
	binary.BigEndian.PutUint64(word[wordSize-8:], uint64(n))
	return word
}

// encodeBytes encodes the length word followed by b right padded to a
// multiple of 32 bytes.
func encodeBytes(b []byte) []byte {
	padded := (len(b) + wordSize - 1) / wordSize * wordSize
	return append(encodeSize(len(b)), common.RightPadBytes(b, padded)...)
}
