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
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	validate = validator.New()
)

// Parameter is one formal parameter of a function, constructor, event,
// error or tuple field.
type Parameter struct {
	Name         string      `json:"name"`
	Type         string      `json:"type" validate:"required"`
	InternalType string      `json:"internalType,omitempty"`
	Indexed      bool        `json:"indexed,omitempty"`
	Components   []Parameter `json:"components,omitempty" validate:"dive"`
	// Order is the 1-based declared position. Zero means the position in
	// the enclosing list.
	Order int `json:"order,omitempty" validate:"gte=0"`
}

// ABIType resolves the type of the parameter.
func (p Parameter) ABIType() (*Type, error) {
	if p.Components == nil && !strings.HasPrefix(p.Type, tupleTypePrefix) {
		return TypeOf(p.Type)
	}
	return newType(p.Type, p.Components)
}

func (p Parameter) String() string {
	t, err := p.ABIType()
	if err != nil {
		return fmt.Sprintf("%s %s", p.Type, p.Name)
	}
	if len(p.Name) == 0 {
		return t.String()
	}
	if p.Indexed {
		return fmt.Sprintf("%s indexed %s", t, p.Name)
	}
	return fmt.Sprintf("%s %s", t, p.Name)
}

type Parameters []Parameter

// Validate checks the structure of the parameters, their types and the
// order values.
func (ps Parameters) Validate() error {
	for i := range ps {
		if err := validate.Struct(&ps[i]); err != nil {
			return ErrorCodeInvalidParameter.Wrapf(err, "invalid parameter index:%d err:%s", i, err.Error())
		}
		if _, err := ps[i].ABIType(); err != nil {
			return err
		}
	}
	_, err := ps.sequence()
	return err
}

// sequence returns the indexes of ps sorted by order.
func (ps Parameters) sequence() ([]int, error) {
	seq := make([]int, len(ps))
	for i := range seq {
		seq[i] = i
	}
	assigned := 0
	for _, p := range ps {
		if p.Order != 0 {
			assigned++
		}
	}
	if assigned == 0 {
		return seq, nil
	}
	if assigned != len(ps) {
		return nil, ErrorCodeInvalidParameter.Errorf("order must be given for all or none of parameters")
	}
	sort.SliceStable(seq, func(i, j int) bool {
		return ps[seq[i]].Order < ps[seq[j]].Order
	})
	for i, idx := range seq {
		if ps[idx].Order != i+1 {
			return nil, ErrorCodeInvalidParameter.Errorf("orders are not contiguous from 1, name:%s order:%d",
				ps[idx].Name, ps[idx].Order)
		}
	}
	return seq, nil
}

// Ordered returns a copy of ps sorted by order.
func (ps Parameters) Ordered() (Parameters, error) {
	seq, err := ps.sequence()
	if err != nil {
		return nil, err
	}
	ret := make(Parameters, len(ps))
	for i, idx := range seq {
		ret[i] = ps[idx]
	}
	return ret, nil
}

// Types resolves the types of ps, aligned with ps.
func (ps Parameters) Types() ([]*Type, error) {
	ret := make([]*Type, len(ps))
	for i, p := range ps {
		t, err := p.ABIType()
		if err != nil {
			return nil, err
		}
		ret[i] = t
	}
	return ret, nil
}

// Names returns the parameter names, synthesizing "argN" for positional
// parameters.
func (ps Parameters) Names() []string {
	ret := make([]string, len(ps))
	for i, p := range ps {
		if len(p.Name) > 0 {
			ret[i] = p.Name
		} else {
			ret[i] = fmt.Sprintf("arg%d", i)
		}
	}
	return ret
}

// layout resolves the types of ps and the order in which they are encoded.
func (ps Parameters) layout() ([]*Type, []int, error) {
	types, err := ps.Types()
	if err != nil {
		return nil, nil, err
	}
	seq, err := ps.sequence()
	if err != nil {
		return nil, nil, err
	}
	return types, seq, nil
}

// ParameterBuilder builds Parameters with explicit orders.
type ParameterBuilder struct {
	ps Parameters
}

func NewParameterBuilder() *ParameterBuilder {
	return &ParameterBuilder{ps: make(Parameters, 0)}
}

func (b *ParameterBuilder) Add(name, typ string) *ParameterBuilder {
	return b.add(Parameter{Name: name, Type: typ})
}

func (b *ParameterBuilder) AddIndexed(name, typ string) *ParameterBuilder {
	return b.add(Parameter{Name: name, Type: typ, Indexed: true})
}

func (b *ParameterBuilder) AddTuple(name, typ string, components Parameters) *ParameterBuilder {
	return b.add(Parameter{Name: name, Type: typ, Components: components})
}

func (b *ParameterBuilder) add(p Parameter) *ParameterBuilder {
	p.Order = len(b.ps) + 1
	b.ps = append(b.ps, p)
	return b
}

func (b *ParameterBuilder) Build() (Parameters, error) {
	if err := b.ps.Validate(); err != nil {
		return nil, err
	}
	ret := make(Parameters, len(b.ps))
	copy(ret, b.ps)
	return ret, nil
}
