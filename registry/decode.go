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
	"github.com/ethereum/go-ethereum/common"

	"github.com/icon-project/abi-sdk/abi"
)

type Argument struct {
	Name  string    `json:"name"`
	Type  string    `json:"type"`
	Value abi.Value `json:"value"`
}

// Decoded is data decoded with a registered signature.
type Decoded struct {
	Signature Signature  `json:"signature"`
	Name      string     `json:"name"`
	Arguments []Argument `json:"arguments"`
}

func newDecoded(s Signature, name string, params abi.Parameters, values []abi.Value) (*Decoded, error) {
	types, err := params.Types()
	if err != nil {
		return nil, err
	}
	names := params.Names()
	d := &Decoded{Signature: s, Name: name, Arguments: make([]Argument, len(values))}
	for i, v := range values {
		d.Arguments[i] = Argument{Name: names[i], Type: types[i].String(), Value: v}
	}
	return d, nil
}

// DecodeCallData decodes call data with every registered function of the
// selector. Candidates which fail to decode are skipped.
func (r *Registry) DecodeCallData(data []byte) ([]Decoded, error) {
	return r.decodeWithSelector(data, KindFunction)
}

// DecodeRevert decodes revert data of a registered custom error.
func (r *Registry) DecodeRevert(data []byte) ([]Decoded, error) {
	return r.decodeWithSelector(data, KindError)
}

func (r *Registry) decodeWithSelector(data []byte, kind Kind) ([]Decoded, error) {
	selector, err := abi.BytesToSelector(data)
	if err != nil {
		return nil, err
	}
	l, err := r.LookupSelector(selector)
	if err != nil {
		return nil, err
	}
	ret := make([]Decoded, 0, len(l))
	candidates := 0
	for _, s := range l {
		if s.Kind != kind {
			continue
		}
		candidates++
		name, params, err := r.parse(s)
		if err != nil {
			r.l.Warnf("fail to parse registered signature:%s err:%+v", s.Text, err)
			continue
		}
		values, err := abi.Decode(params, data[abi.SelectorLength:])
		if err != nil {
			r.l.Debugf("skip candidate:%s err:%s", s.Canonical, err.Error())
			continue
		}
		d, err := newDecoded(s, name, params, values)
		if err != nil {
			return nil, err
		}
		ret = append(ret, *d)
	}
	if err = checkDecoded(ret, candidates, "selector:"+selector.String()); err != nil {
		return nil, err
	}
	return ret, nil
}

// DecodeLog decodes a log with the registered events of the first topic.
func (r *Registry) DecodeLog(topics []common.Hash, data []byte) ([]Decoded, error) {
	if len(topics) == 0 {
		return nil, ErrorCodeUndecodable.Errorf("no topic")
	}
	l, err := r.LookupTopic(topics[0])
	if err != nil {
		return nil, err
	}
	ret := make([]Decoded, 0, len(l))
	for _, s := range l {
		name, params, err := r.parse(s)
		if err != nil {
			r.l.Warnf("fail to parse registered signature:%s err:%+v", s.Text, err)
			continue
		}
		e, err := abi.NewEvent(name, name, false, params)
		if err != nil {
			r.l.Warnf("fail to NewEvent signature:%s err:%+v", s.Text, err)
			continue
		}
		values, err := e.Unpack(topics, data)
		if err != nil {
			r.l.Debugf("skip candidate:%s err:%s", s.Canonical, err.Error())
			continue
		}
		d, err := newDecoded(s, name, params, values)
		if err != nil {
			return nil, err
		}
		ret = append(ret, *d)
	}
	if err = checkDecoded(ret, len(l), "topic:"+topics[0].Hex()); err != nil {
		return nil, err
	}
	return ret, nil
}

func checkDecoded(l []Decoded, candidates int, key string) error {
	if len(l) > 0 {
		return nil
	}
	if candidates == 0 {
		return ErrorCodeNotRegistered.Errorf("not registered %s", key)
	}
	return ErrorCodeUndecodable.Errorf("no candidate decodes %s candidates:%d", key, candidates)
}
