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

package contract

import (
	"github.com/icon-project/btp2/common/errors"

	"github.com/icon-project/abi-sdk/abi"
)

const (
	ErrorCodeNotFoundMethod errors.Code = errors.CodeGeneral + 300 + iota
	ErrorCodeMismatchReadonly
	ErrorCodeNotFoundEvent
	ErrorCodeInvalidParam
	ErrorCodeInvalidOption
	ErrorCodeRequireSignature
	ErrorCodeNotFoundTransaction
	ErrorCodeReverted
)

var (
	errRequireSignature = errors.NewBase(ErrorCodeRequireSignature, "RequireSignatureError")
)

// RequireSignatureError is returned by Handler.Invoke without a signature.
// Data is the hash to sign, Options carries the filled transaction options
// to send back with the signature.
type RequireSignatureError interface {
	errors.ErrorCoder
	Data() []byte
	Options() Options
}

type requireSignatureError struct {
	errors.ErrorCoder
	data    []byte
	options Options
}

func (e *requireSignatureError) Data() []byte {
	return e.data
}

func (e *requireSignatureError) Options() Options {
	return e.options
}

func NewRequireSignatureError(data []byte, options Options) RequireSignatureError {
	return &requireSignatureError{
		ErrorCoder: errRequireSignature,
		data:       data,
		options:    options,
	}
}

// RevertError carries the revert data returned by the node. Revert is nil
// when the data could not be decoded with the contract ABI.
type RevertError interface {
	errors.ErrorCoder
	Data() []byte
	Revert() *abi.Revert
}

type revertError struct {
	errors.ErrorCoder
	data   []byte
	revert *abi.Revert
}

func (e *revertError) Data() []byte {
	return e.data
}

func (e *revertError) Revert() *abi.Revert {
	return e.revert
}

func NewRevertError(data []byte, c *abi.Contract) RevertError {
	var (
		r   *abi.Revert
		err error
		msg = "execution reverted"
	)
	if c != nil {
		r, err = c.UnpackRevert(data)
	} else {
		r, err = abi.UnpackRevert(data)
	}
	if err == nil {
		msg = r.String()
	}
	return &revertError{
		ErrorCoder: errors.NewBase(ErrorCodeReverted, msg),
		data:       data,
		revert:     r,
	}
}
