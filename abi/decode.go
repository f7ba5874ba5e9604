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
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common/math"
)

// Decode parses data encoded with the standard layout. The returned values
// are aligned with params regardless of the parameter orders.
func Decode(params Parameters, data []byte) ([]Value, error) {
	types, seq, err := params.layout()
	if err != nil {
		return nil, err
	}
	ts := make([]*Type, len(seq))
	for i, idx := range seq {
		ts[i] = types[idx]
	}
	vs, err := decodeSequence(tupleMembers(ts), data)
	if err != nil {
		return nil, err
	}
	ret := make([]Value, len(vs))
	for i, idx := range seq {
		ret[idx] = vs[i]
	}
	codecLogger.Tracef("Decode params:%d data:%d bytes\n", len(params), len(data))
	return ret, nil
}

// DecodeType decodes a single value of type t.
func DecodeType(t *Type, data []byte) (Value, error) {
	vs, err := decodeSequence(tupleMembers([]*Type{t}), data)
	if err != nil {
		return Value{}, err
	}
	return vs[0], nil
}

// decodeSequence decodes a block starting with the heads of s.
// Offsets of dynamic members must point inside the block, after the head,
// and must not go backwards.
func decodeSequence(s memberList, block []byte) ([]Value, error) {
	if s.elem != nil {
		if hs := s.elem.headSize(); hs > 0 && s.n > len(block)/hs {
			return nil, ErrorCodeBufferTooShort.Errorf("buffer too short for %d heads of %s actual:%d",
				s.n, s.elem, len(block))
		}
	}
	headSize := s.headSize()
	if headSize > len(block) {
		return nil, ErrorCodeBufferTooShort.Errorf("buffer too short for head required:%d actual:%d",
			headSize, len(block))
	}
	ret := make([]Value, s.n)
	pos, cursor := 0, headSize
	for i := 0; i < s.n; i++ {
		t := s.at(i)
		if !t.dynamic {
			v, err := decodeStatic(t, block[pos:pos+t.headSize()])
			if err != nil {
				return nil, err
			}
			ret[i] = v
			pos += t.headSize()
			continue
		}
		offset, ok := decodeSize(block[pos : pos+wordSize])
		if !ok || offset > len(block) || offset < cursor {
			return nil, ErrorCodeInvalidOffset.Errorf("invalid offset for %s at:%d", t, pos)
		}
		v, err := decodeDynamic(t, block[offset:])
		if err != nil {
			return nil, err
		}
		ret[i] = v
		cursor = offset
		pos += wordSize
	}
	return ret, nil
}

// decodeSize reads a word as a non-negative int.
func decodeSize(word []byte) (int, bool) {
	for _, b := range word[:wordSize-8] {
		if b != 0 {
			return 0, false
		}
	}
	n := binary.BigEndian.Uint64(word[wordSize-8:])
	if n > uint64(maxInt) {
		return 0, false
	}
	return int(n), true
}

const maxInt = int(^uint(0) >> 1)

func decodeStatic(t *Type, b []byte) (Value, error) {
	switch t.Kind {
	case ArrayKind:
		elems, err := decodeSequence(arrayMembers(t.Elem, t.Size), b)
		if err != nil {
			return Value{}, err
		}
		return Value{t: t, elems: elems}, nil
	case TupleKind:
		elems, err := decodeSequence(tupleMembers(t.Components), b)
		if err != nil {
			return Value{}, err
		}
		return Value{t: t, elems: elems}, nil
	default:
		return decodeWord(t, b[:wordSize])
	}
}

func decodeDynamic(t *Type, b []byte) (Value, error) {
	switch t.Kind {
	case BytesKind, StringKind:
		if len(b) < wordSize {
			return Value{}, ErrorCodeBufferTooShort.Errorf("buffer too short for length of %s", t)
		}
		n, ok := decodeSize(b[:wordSize])
		if !ok || n > len(b)-wordSize {
			return Value{}, ErrorCodeBufferTooShort.Errorf("buffer too short for %s", t)
		}
		data := copyBytes(b[wordSize : wordSize+n])
		if t.Kind == StringKind && !utf8.Valid(data) {
			return Value{}, ErrorCodeInvalidUtf8.Errorf("invalid utf-8 string")
		}
		return Value{t: t, data: data}, nil
	case SliceKind:
		if len(b) < wordSize {
			return Value{}, ErrorCodeBufferTooShort.Errorf("buffer too short for length of %s", t)
		}
		n, ok := decodeSize(b[:wordSize])
		limit := len(b)
		if hs := t.Elem.headSize(); hs > 0 {
			limit = (len(b) - wordSize) / hs
		}
		if !ok || n > limit {
			return Value{}, ErrorCodeBufferTooShort.Errorf("buffer too short for %s", t)
		}
		elems, err := decodeSequence(arrayMembers(t.Elem, n), b[wordSize:])
		if err != nil {
			return Value{}, err
		}
		return Value{t: t, elems: elems}, nil
	case ArrayKind:
		elems, err := decodeSequence(arrayMembers(t.Elem, t.Size), b)
		if err != nil {
			return Value{}, err
		}
		return Value{t: t, elems: elems}, nil
	case TupleKind:
		elems, err := decodeSequence(tupleMembers(t.Components), b)
		if err != nil {
			return Value{}, err
		}
		return Value{t: t, elems: elems}, nil
	}
	return Value{}, ErrorCodeTypeMismatch.Errorf("not a dynamic type:%s", t)
}

// decodeWord decodes a static elementary value and rejects non-zero padding.
func decodeWord(t *Type, word []byte) (Value, error) {
	outOfRange := func() (Value, error) {
		return Value{}, ErrorCodeValueOutOfRange.Errorf("invalid encoding of %s word:%x", t, word)
	}
	switch t.Kind {
	case BoolKind:
		if !isZero(word[:wordSize-1]) || word[wordSize-1] > 1 {
			return outOfRange()
		}
		return Value{t: t, flag: word[wordSize-1] == 1}, nil
	case UintKind:
		if !isZero(word[:wordSize-t.Size/8]) {
			return outOfRange()
		}
		return Value{t: t, num: new(big.Int).SetBytes(word)}, nil
	case IntKind:
		x := math.S256(new(big.Int).SetBytes(word))
		if checkInteger(t, x) != nil {
			return outOfRange()
		}
		return Value{t: t, num: x}, nil
	case AddressKind:
		if !isZero(word[:wordSize-addressLength]) {
			return outOfRange()
		}
		return Value{t: t, data: copyBytes(word[wordSize-addressLength:])}, nil
	case FixedBytesKind:
		if !isZero(word[t.Size:]) {
			return outOfRange()
		}
		return Value{t: t, data: copyBytes(word[:t.Size])}, nil
	}
	return Value{}, ErrorCodeTypeMismatch.Errorf("not a static elementary type:%s", t)
}

func isZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
