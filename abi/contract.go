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

	"github.com/ethereum/go-ethereum/common"
	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"
)

type EntryType string

const (
	EntryTypeFunction    EntryType = "function"
	EntryTypeConstructor EntryType = "constructor"
	EntryTypeEvent       EntryType = "event"
	EntryTypeError       EntryType = "error"
	EntryTypeFallback    EntryType = "fallback"
	EntryTypeReceive     EntryType = "receive"
)

const (
	StateMutabilityPure       = "pure"
	StateMutabilityView       = "view"
	StateMutabilityNonPayable = "nonpayable"
	StateMutabilityPayable    = "payable"
)

// Entry is an element of a Solidity ABI JSON document.
type Entry struct {
	Type            EntryType  `json:"type" validate:"required,oneof=function constructor event error fallback receive"`
	Name            string     `json:"name,omitempty"`
	Inputs          Parameters `json:"inputs,omitempty" validate:"dive"`
	Outputs         Parameters `json:"outputs,omitempty" validate:"dive"`
	StateMutability string     `json:"stateMutability,omitempty" validate:"omitempty,oneof=pure view nonpayable payable"`
	Anonymous       bool       `json:"anonymous,omitempty"`
	// legacy fields of solidity < 0.5
	Constant bool `json:"constant,omitempty"`
	Payable  bool `json:"payable,omitempty"`
}

func (e Entry) stateMutability() string {
	switch {
	case len(e.StateMutability) > 0:
		return e.StateMutability
	case e.Constant:
		return StateMutabilityView
	case e.Payable:
		return StateMutabilityPayable
	default:
		return StateMutabilityNonPayable
	}
}

// Method is a function, constructor, fallback or receive entry. Overloaded
// functions are keyed by Name, which is RawName with a numeric suffix when
// RawName is already taken.
type Method struct {
	Name            string
	RawName         string
	Type            EntryType
	StateMutability string
	Inputs          Parameters
	Outputs         Parameters

	sig string
	id  Selector
}

func NewMethod(name, rawName string, typ EntryType, stateMutability string, inputs, outputs Parameters) (*Method, error) {
	m := &Method{
		Name:            name,
		RawName:         rawName,
		Type:            typ,
		StateMutability: stateMutability,
		Inputs:          inputs,
		Outputs:         outputs,
	}
	if err := inputs.Validate(); err != nil {
		return nil, err
	}
	if err := outputs.Validate(); err != nil {
		return nil, err
	}
	if typ == EntryTypeFunction {
		sig, err := CanonicalSignature(rawName, inputs)
		if err != nil {
			return nil, err
		}
		m.sig, m.id = sig, SelectorFromSignature(sig)
	}
	return m, nil
}

func (m *Method) Sig() string {
	return m.sig
}

func (m *Method) ID() Selector {
	return m.id
}

func (m *Method) IsConstant() bool {
	return m.StateMutability == StateMutabilityView || m.StateMutability == StateMutabilityPure
}

func (m *Method) IsPayable() bool {
	return m.StateMutability == StateMutabilityPayable
}

func (m *Method) String() string {
	ret := fmt.Sprintf("%s %s(%s)", m.Type, m.RawName, joinParameters(m.Inputs))
	if len(m.Outputs) > 0 {
		ret += fmt.Sprintf(" returns (%s)", joinParameters(m.Outputs))
	}
	return ret
}

func joinParameters(ps Parameters) string {
	var buf bytes.Buffer
	for i, p := range ps {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(p.String())
	}
	return buf.String()
}

// Pack returns the call data, the selector followed by the encoded
// arguments. Constructor arguments have no selector.
func (m *Method) Pack(values []Value) ([]byte, error) {
	b, err := Encode(m.Inputs, values)
	if err != nil {
		return nil, err
	}
	if m.Type != EntryTypeFunction {
		return b, nil
	}
	return append(m.id.Bytes(), b...), nil
}

// PackArgs converts args with ValueOf and packs them.
func (m *Method) PackArgs(args ...interface{}) ([]byte, error) {
	values, err := ValuesOf(m.Inputs, args...)
	if err != nil {
		return nil, err
	}
	return m.Pack(values)
}

// Unpack decodes the return data of the method.
func (m *Method) Unpack(data []byte) ([]Value, error) {
	return Decode(m.Outputs, data)
}

// UnpackInput decodes call data which starts with the selector.
func (m *Method) UnpackInput(data []byte) ([]Value, error) {
	if m.Type != EntryTypeFunction {
		return Decode(m.Inputs, data)
	}
	id, err := BytesToSelector(data)
	if err != nil {
		return nil, err
	}
	if id != m.id {
		return nil, ErrorCodeTypeMismatch.Errorf("selector mismatch expected:%s actual:%s", m.id, id)
	}
	return Decode(m.Inputs, data[SelectorLength:])
}

// Contract is a parsed Solidity ABI JSON document.
type Contract struct {
	Constructor *Method
	Fallback    *Method
	Receive     *Method
	Methods     map[string]*Method
	Events      map[string]*Event
	Errors      map[string]*Error
}

func ParseJSON(b []byte) (*Contract, error) {
	var entries []Entry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, ErrorCodeInvalidParameter.Wrapf(err, "fail to Unmarshal ABI err:%s", err.Error())
	}
	return NewContract(entries)
}

func MustParseJSON(b []byte) *Contract {
	c, err := ParseJSON(b)
	if err != nil {
		log.Panicf("fail to ParseJSON err:%+v", err)
	}
	return c
}

func NewContract(entries []Entry) (*Contract, error) {
	c := &Contract{
		Methods: make(map[string]*Method),
		Events:  make(map[string]*Event),
		Errors:  make(map[string]*Error),
	}
	for i, e := range entries {
		if err := validate.Struct(&e); err != nil {
			return nil, ErrorCodeInvalidParameter.Wrapf(err, "invalid entry index:%d err:%s", i, err.Error())
		}
		e.Inputs = withOrders(e.Inputs)
		e.Outputs = withOrders(e.Outputs)
		switch e.Type {
		case EntryTypeFunction, EntryTypeEvent, EntryTypeError:
			if !isIdentifier(e.Name) {
				return nil, ErrorCodeInvalidParameter.Errorf("invalid name:%q of %s entry index:%d", e.Name, e.Type, i)
			}
		}
		if err := c.add(e); err != nil {
			return nil, errors.CodeOf(err).Wrapf(err, "invalid entry index:%d name:%s err:%s", i, e.Name, err.Error())
		}
	}
	return c, nil
}

func (c *Contract) add(e Entry) error {
	switch e.Type {
	case EntryTypeFunction:
		name := resolveName(e.Name, func(s string) bool { _, ok := c.Methods[s]; return ok })
		m, err := NewMethod(name, e.Name, e.Type, e.stateMutability(), e.Inputs, e.Outputs)
		if err != nil {
			return err
		}
		c.Methods[name] = m
	case EntryTypeConstructor, EntryTypeFallback, EntryTypeReceive:
		m, err := NewMethod(string(e.Type), "", e.Type, e.stateMutability(), e.Inputs, nil)
		if err != nil {
			return err
		}
		switch e.Type {
		case EntryTypeConstructor:
			c.Constructor = m
		case EntryTypeFallback:
			c.Fallback = m
		default:
			c.Receive = m
		}
	case EntryTypeEvent:
		name := resolveName(e.Name, func(s string) bool { _, ok := c.Events[s]; return ok })
		ev, err := NewEvent(name, e.Name, e.Anonymous, e.Inputs)
		if err != nil {
			return err
		}
		c.Events[name] = ev
	case EntryTypeError:
		name := resolveName(e.Name, func(s string) bool { _, ok := c.Errors[s]; return ok })
		er, err := NewError(name, e.Name, e.Inputs)
		if err != nil {
			return err
		}
		c.Errors[name] = er
	}
	return nil
}

// withOrders returns a copy of ps with positional orders where none are
// declared.
func withOrders(ps Parameters) Parameters {
	if ps == nil {
		return nil
	}
	declared := false
	for _, p := range ps {
		declared = declared || p.Order != 0
	}
	ret := make(Parameters, len(ps))
	for i, p := range ps {
		if !declared {
			p.Order = i + 1
		}
		p.Components = withOrders(p.Components)
		ret[i] = p
	}
	return ret
}

// resolveName returns rawName, or rawName with the smallest numeric suffix
// which is not used yet.
func resolveName(rawName string, used func(string) bool) string {
	name := rawName
	for i := 0; used(name); i++ {
		name = fmt.Sprintf("%s%d", rawName, i)
	}
	return name
}

func (c *Contract) Method(name string) (*Method, error) {
	m, ok := c.Methods[name]
	if !ok {
		return nil, ErrorCodeNotFound.Errorf("not found method:%s", name)
	}
	return m, nil
}

func (c *Contract) MethodByID(sig []byte) (*Method, error) {
	id, err := BytesToSelector(sig)
	if err != nil {
		return nil, err
	}
	for _, m := range c.Methods {
		if m.id == id {
			return m, nil
		}
	}
	return nil, ErrorCodeNotFound.Errorf("not found method selector:%s", id)
}

func (c *Contract) EventByID(topic common.Hash) (*Event, error) {
	for _, e := range c.Events {
		if !e.Anonymous && e.id == topic {
			return e, nil
		}
	}
	return nil, ErrorCodeNotFound.Errorf("not found event topic:%s", topic.Hex())
}

func (c *Contract) ErrorByID(id Selector) (*Error, error) {
	for _, e := range c.Errors {
		if e.id == id {
			return e, nil
		}
	}
	return nil, ErrorCodeNotFound.Errorf("not found error selector:%s", id)
}

// Pack packs the call data of the method keyed by name.
func (c *Contract) Pack(name string, args ...interface{}) ([]byte, error) {
	if len(name) == 0 {
		if c.Constructor == nil {
			if len(args) > 0 {
				return nil, ErrorCodeArgumentCountMismatch.Errorf("no constructor for arguments")
			}
			return []byte{}, nil
		}
		return c.Constructor.PackArgs(args...)
	}
	m, err := c.Method(name)
	if err != nil {
		return nil, err
	}
	return m.PackArgs(args...)
}

// Unpack decodes the return data of the method keyed by name.
func (c *Contract) Unpack(name string, data []byte) ([]Value, error) {
	m, err := c.Method(name)
	if err != nil {
		return nil, err
	}
	return m.Unpack(data)
}
