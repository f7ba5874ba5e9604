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
	"github.com/ethereum/go-ethereum/common"
)

var bytes32Type = MustTypeOf("bytes32")

// Event is an event entry. The indexed inputs are carried in topics,
// the others in the data of the log.
type Event struct {
	Name      string
	RawName   string
	Anonymous bool
	Inputs    Parameters

	sig string
	id  common.Hash
}

func NewEvent(name, rawName string, anonymous bool, inputs Parameters) (*Event, error) {
	if err := inputs.Validate(); err != nil {
		return nil, err
	}
	sig, err := CanonicalSignature(rawName, inputs)
	if err != nil {
		return nil, err
	}
	e := &Event{
		Name:      name,
		RawName:   rawName,
		Anonymous: anonymous,
		Inputs:    inputs,
		sig:       sig,
		id:        Keccak256Hash([]byte(sig)),
	}
	if n := len(e.indexed()); n > e.maxIndexed() {
		return nil, ErrorCodeInvalidParameter.Errorf("too many indexed inputs:%d of event:%s", n, rawName)
	}
	return e, nil
}

func (e *Event) Sig() string {
	return e.sig
}

func (e *Event) ID() common.Hash {
	return e.id
}

func (e *Event) String() string {
	return "event " + e.RawName + "(" + joinParameters(e.Inputs) + ")"
}

func (e *Event) maxIndexed() int {
	if e.Anonymous {
		return 4
	}
	return 3
}

// indexed returns the indexes of indexed inputs in encoding order.
func (e *Event) indexed() []int {
	seq, err := e.Inputs.sequence()
	if err != nil {
		return nil
	}
	ret := make([]int, 0)
	for _, idx := range seq {
		if e.Inputs[idx].Indexed {
			ret = append(ret, idx)
		}
	}
	return ret
}

// Topics returns the topic filter for the event. values[i] is matched
// against the i-th indexed input; an invalid Value matches any topic.
// The result fits ethereum.FilterQuery.Topics.
func (e *Event) Topics(values ...Value) ([][]common.Hash, error) {
	indexed := e.indexed()
	if len(values) > len(indexed) {
		return nil, ErrorCodeArgumentCountMismatch.Errorf(
			"too many topic values expected:%d actual:%d", len(indexed), len(values))
	}
	ret := make([][]common.Hash, 0, len(indexed)+1)
	if !e.Anonymous {
		ret = append(ret, []common.Hash{e.id})
	}
	for i, v := range values {
		if !v.IsValid() {
			ret = append(ret, []common.Hash{})
			continue
		}
		t, err := e.Inputs[indexed[i]].ABIType()
		if err != nil {
			return nil, err
		}
		topic, err := TopicOf(t, v)
		if err != nil {
			return nil, err
		}
		ret = append(ret, []common.Hash{topic})
	}
	return ret, nil
}

// TopicOf returns the topic of an indexed value. Static elementary values
// are their standard encoding; others are the Keccak-256 hash of their in
// place encoding.
func TopicOf(t *Type, v Value) (common.Hash, error) {
	if err := conform(t, v); err != nil {
		return common.Hash{}, err
	}
	if t.isElementary() && !t.dynamic {
		return common.BytesToHash(encodeWord(t, v)), nil
	}
	return Keccak256Hash(encodeInPlace(t, v, false)), nil
}

// encodeInPlace concatenates the members of arrays and tuples without
// offsets and lengths. Members are padded to 32 bytes; bytes and string
// at the outermost level are not padded.
func encodeInPlace(t *Type, v Value, nested bool) []byte {
	switch t.Kind {
	case BytesKind, StringKind:
		if !nested {
			return copyBytes(v.data)
		}
		padded := make([]byte, (len(v.data)+wordSize-1)/wordSize*wordSize)
		copy(padded, v.data)
		return padded
	case ArrayKind, SliceKind:
		var ret []byte
		for _, e := range v.elems {
			ret = append(ret, encodeInPlace(t.Elem, e, true)...)
		}
		return ret
	case TupleKind:
		var ret []byte
		for i, c := range t.Components {
			ret = append(ret, encodeInPlace(c, v.elems[i], true)...)
		}
		return ret
	default:
		return encodeWord(t, v)
	}
}

// Unpack decodes a log. The returned values are aligned with Inputs.
// Indexed inputs which are not static elementary values are returned as
// the bytes32 hash carried in the topic.
func (e *Event) Unpack(topics []common.Hash, data []byte) ([]Value, error) {
	indexed := e.indexed()
	if !e.Anonymous {
		if len(topics) == 0 || topics[0] != e.id {
			return nil, ErrorCodeTypeMismatch.Errorf("topic mismatch event:%s", e.sig)
		}
		topics = topics[1:]
	}
	if len(topics) != len(indexed) {
		return nil, ErrorCodeArgumentCountMismatch.Errorf(
			"topic count mismatch expected:%d actual:%d", len(indexed), len(topics))
	}
	types, seq, err := e.Inputs.layout()
	if err != nil {
		return nil, err
	}
	ret := make([]Value, len(e.Inputs))
	for i, idx := range indexed {
		t := types[idx]
		if t.isElementary() && !t.dynamic {
			if ret[idx], err = decodeWord(t, topics[i][:]); err != nil {
				return nil, err
			}
		} else {
			ret[idx] = Value{t: bytes32Type, data: topics[i].Bytes()}
		}
	}
	nonIndexed := make([]int, 0, len(seq))
	ts := make([]*Type, 0, len(seq))
	for _, idx := range seq {
		if !e.Inputs[idx].Indexed {
			nonIndexed = append(nonIndexed, idx)
			ts = append(ts, types[idx])
		}
	}
	vs, err := decodeSequence(tupleMembers(ts), data)
	if err != nil {
		return nil, err
	}
	for i, idx := range nonIndexed {
		ret[idx] = vs[i]
	}
	codecLogger.Tracef("Unpack event:%s topics:%d data:%d bytes\n", e.sig, len(topics), len(data))
	return ret, nil
}

// UnpackIntoMap decodes a log into a map keyed by input names.
func (e *Event) UnpackIntoMap(topics []common.Hash, data []byte) (map[string]Value, error) {
	values, err := e.Unpack(topics, data)
	if err != nil {
		return nil, err
	}
	names := e.Inputs.Names()
	ret := make(map[string]Value, len(values))
	for i, v := range values {
		ret[names[i]] = v
	}
	return ret, nil
}
