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

package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/icon-project/btp2/common/errors"
	"github.com/labstack/echo/v4"

	"github.com/icon-project/abi-sdk/abi"
	"github.com/icon-project/abi-sdk/contract"
	"github.com/icon-project/abi-sdk/registry"
)

type ErrorResponse struct {
	Code    errors.Code     `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *ErrorResponse) Error() string {
	return fmt.Sprintf("code:%d, message:%s", e.Code, e.Message)
}

func (e *ErrorResponse) ErrorCode() errors.Code {
	return e.Code
}

func (e *ErrorResponse) MarshalData(v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	e.Data = b
	return nil
}

func (e *ErrorResponse) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

type RequireSignatureError struct {
	Data    hexutil.Bytes    `json:"data"`
	Options contract.Options `json:"options"`
}

type RevertError struct {
	Data   hexutil.Bytes `json:"data"`
	Reason string        `json:"reason,omitempty"`
}

// StatusOf returns the HTTP status for the error code.
func StatusOf(code errors.Code) int {
	switch code {
	case abi.ErrorCodeNotFound,
		registry.ErrorCodeNotRegistered,
		contract.ErrorCodeNotFoundMethod,
		contract.ErrorCodeNotFoundEvent,
		contract.ErrorCodeNotFoundTransaction,
		errors.NotFoundError:
		return http.StatusNotFound
	case registry.ErrorCodeUndecodable,
		contract.ErrorCodeReverted:
		return http.StatusUnprocessableEntity
	case contract.ErrorCodeRequireSignature:
		return http.StatusPreconditionRequired
	case contract.ErrorCodeMismatchReadonly:
		return http.StatusMethodNotAllowed
	case contract.ErrorCodeInvalidParam,
		contract.ErrorCodeInvalidOption,
		errors.IllegalArgumentError:
		return http.StatusBadRequest
	}
	if code >= abi.ErrorCodeInvalidTypeSyntax && code < abi.ErrorCodeNotFound {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func HttpErrorHandler(err error, c echo.Context) {
	var (
		status int
		er     = &ErrorResponse{}
	)
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		er.Code = errors.UnknownError
		er.Message = fmt.Sprintf("%v", he.Message)
		if e, ok := he.Message.(error); ok {
			er.Code = errors.CodeOf(e)
			er.Message = e.Error()
		}
	} else {
		er.Code = errors.CodeOf(err)
		er.Message = err.Error()
		status = StatusOf(er.Code)
	}
	var data interface{}
	switch e := err.(type) {
	case contract.RequireSignatureError:
		data = &RequireSignatureError{
			Data:    e.Data(),
			Options: e.Options(),
		}
	case contract.RevertError:
		re := &RevertError{Data: e.Data()}
		if r := e.Revert(); r != nil {
			re.Reason = r.String()
		}
		data = re
	}
	if data != nil {
		if err = er.MarshalData(data); err != nil {
			c.Echo().Logger.Error(err)
		}
	}
	if !c.Response().Committed {
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, er)
		}
		if err != nil {
			c.Echo().Logger.Error(err)
		}
	}
}
