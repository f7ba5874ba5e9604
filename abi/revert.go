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
	"math/big"

	"github.com/icon-project/btp2/common/log"
)

// Error is a custom error entry, reverted with its selector followed by
// the encoded inputs.
type Error struct {
	Name    string
	RawName string
	Inputs  Parameters

	sig string
	id  Selector
}

func NewError(name, rawName string, inputs Parameters) (*Error, error) {
	if err := inputs.Validate(); err != nil {
		return nil, err
	}
	sig, err := CanonicalSignature(rawName, inputs)
	if err != nil {
		return nil, err
	}
	return &Error{
		Name:    name,
		RawName: rawName,
		Inputs:  inputs,
		sig:     sig,
		id:      SelectorFromSignature(sig),
	}, nil
}

func (e *Error) Sig() string {
	return e.sig
}

func (e *Error) ID() Selector {
	return e.id
}

func (e *Error) String() string {
	return "error " + e.RawName + "(" + joinParameters(e.Inputs) + ")"
}

// Unpack decodes revert data which starts with the selector of e.
func (e *Error) Unpack(data []byte) ([]Value, error) {
	id, err := BytesToSelector(data)
	if err != nil {
		return nil, err
	}
	if id != e.id {
		return nil, ErrorCodeTypeMismatch.Errorf("selector mismatch expected:%s actual:%s", e.id, id)
	}
	return Decode(e.Inputs, data[SelectorLength:])
}

var (
	revertError = mustNewError("Error", Parameters{{Name: "message", Type: "string"}})
	revertPanic = mustNewError("Panic", Parameters{{Name: "code", Type: "uint256"}})
)

func mustNewError(name string, inputs Parameters) *Error {
	e, err := NewError(name, name, inputs)
	if err != nil {
		log.Panicf("fail to NewError err:%+v", err)
	}
	return e
}

var panicDescriptions = map[uint64]string{
	0x00: "generic compiler inserted panic",
	0x01: "assert(false)",
	0x11: "arithmetic underflow or overflow",
	0x12: "division or modulo by zero",
	0x21: "enum overflow",
	0x22: "invalid encoded storage byte array accessed",
	0x31: "out-of-bounds array access; popping on an empty array",
	0x32: "out-of-bounds access of an array or bytesN",
	0x41: "out of memory",
	0x51: "uninitialized function",
}

// Revert is decoded revert data.
type Revert struct {
	Error  *Error
	Values []Value
	// Reason is the message of Error(string), or the description of
	// the code of Panic(uint256).
	Reason string
	Code   *big.Int
}

func (r *Revert) String() string {
	switch r.Error {
	case revertError:
		return fmt.Sprintf("execution reverted: %s", r.Reason)
	case revertPanic:
		return fmt.Sprintf("execution reverted: panic 0x%x (%s)", r.Code, r.Reason)
	default:
		return fmt.Sprintf("execution reverted: %s(%s)", r.Error.RawName, joinValues(r.Values))
	}
}

// UnpackRevert decodes Error(string) and Panic(uint256) revert data.
func UnpackRevert(data []byte) (*Revert, error) {
	return unpackRevert(data, nil)
}

// UnpackRevert decodes revert data with the builtin errors and the custom
// errors of c.
func (c *Contract) UnpackRevert(data []byte) (*Revert, error) {
	return unpackRevert(data, c)
}

func unpackRevert(data []byte, c *Contract) (*Revert, error) {
	id, err := BytesToSelector(data)
	if err != nil {
		return nil, err
	}
	var e *Error
	switch {
	case id == revertError.id:
		e = revertError
	case id == revertPanic.id:
		e = revertPanic
	case c != nil:
		if e, err = c.ErrorByID(id); err != nil {
			return nil, err
		}
	default:
		return nil, ErrorCodeNotFound.Errorf("unknown revert selector:%s", id)
	}
	values, err := e.Unpack(data)
	if err != nil {
		return nil, err
	}
	r := &Revert{Error: e, Values: values}
	switch e {
	case revertError:
		r.Reason = values[0].Text()
	case revertPanic:
		r.Code = values[0].BigInt()
		r.Reason = "unknown panic code"
		if r.Code.IsUint64() {
			if d, ok := panicDescriptions[r.Code.Uint64()]; ok {
				r.Reason = d
			}
		}
	}
	return r, nil
}
