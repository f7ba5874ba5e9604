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

// EncodePacked serializes values without offsets and length prefixes, with
// elementary values in their natural width. Arrays pad each element to 32
// bytes. Combinations which could not be decoded unambiguously are refused.
func EncodePacked(params Parameters, values []Value) ([]byte, error) {
	ts, vs, err := arrange(params, values)
	if err != nil {
		return nil, err
	}
	var ret []byte
	for i, t := range ts {
		if err = checkPackable(t, false); err != nil {
			return nil, err
		}
		if err = conform(t, vs[i]); err != nil {
			return nil, err
		}
		ret = append(ret, encodePacked(t, vs[i], false)...)
	}
	codecLogger.Tracef("EncodePacked params:%d encoded:%d bytes\n", len(params), len(ret))
	return ret, nil
}

// checkPackable rejects tuples below the outermost level, dynamic members
// of tuples, and arrays whose elements are not static elementary values.
func checkPackable(t *Type, nested bool) error {
	switch t.Kind {
	case ArrayKind, SliceKind:
		if !t.Elem.isElementary() || t.Elem.dynamic {
			return ErrorCodeAmbiguousPackedEncoding.Errorf("packed array of %s is ambiguous", t.Elem)
		}
		if nested && t.Kind == SliceKind {
			return ErrorCodeAmbiguousPackedEncoding.Errorf("packed nested dynamic array %s is ambiguous", t)
		}
	case TupleKind:
		if nested {
			return ErrorCodeAmbiguousPackedEncoding.Errorf("packed nested tuple %s is ambiguous", t)
		}
		for _, c := range t.Components {
			if c.dynamic && c.isElementary() {
				return ErrorCodeAmbiguousPackedEncoding.Errorf("packed dynamic member %s of tuple %s is ambiguous", c, t)
			}
			if err := checkPackable(c, true); err != nil {
				return err
			}
		}
	}
	return nil
}

func encodePacked(t *Type, v Value, padded bool) []byte {
	switch t.Kind {
	case BytesKind, StringKind:
		return copyBytes(v.data)
	case ArrayKind, SliceKind:
		ret := make([]byte, 0, len(v.elems)*wordSize)
		for _, e := range v.elems {
			ret = append(ret, encodePacked(t.Elem, e, true)...)
		}
		return ret
	case TupleKind:
		var ret []byte
		for i, c := range t.Components {
			ret = append(ret, encodePacked(c, v.elems[i], false)...)
		}
		return ret
	}
	word := encodeWord(t, v)
	if padded {
		return word
	}
	switch t.Kind {
	case BoolKind:
		return word[wordSize-1:]
	case UintKind, IntKind:
		return word[wordSize-t.Size/8:]
	case AddressKind:
		return word[wordSize-addressLength:]
	default:
		return word[:t.Size]
	}
}
