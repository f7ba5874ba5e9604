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
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/icon-project/btp2/common/errors"
	"github.com/labstack/echo/v4"

	"github.com/icon-project/abi-sdk/abi"
	"github.com/icon-project/abi-sdk/database"
	"github.com/icon-project/abi-sdk/registry"
)

const (
	GroupUrlAbi      = "/abi"
	UrlSignature     = "/signature"
	UrlEncode        = "/encode"
	UrlDecode        = "/decode"
	UrlSelectors     = "/selectors"
	UrlTopics        = "/topics"
	UrlRegistry      = "/registry"
	UrlCallData      = "/calldata"
	UrlLog           = "/log"
	UrlRevert        = "/revert"
	ParamSelector    = "selector"
	ParamTopic       = "topic"
	QueryParamKind   = "kind"
	RegistryDisabled = "registry disabled"
)

// SignatureRequest names a function either by the text of its signature,
// e.g. "transfer(address to,uint256 amount)", or by Name and Inputs.
type SignatureRequest struct {
	Signature string         `json:"signature,omitempty" validate:"required_without=Name"`
	Name      string         `json:"name,omitempty" validate:"required_without=Signature"`
	Inputs    abi.Parameters `json:"inputs,omitempty" validate:"dive"`
}

func (r *SignatureRequest) resolve() (string, abi.Parameters, error) {
	if len(r.Signature) > 0 {
		return abi.ParseSignature(r.Signature)
	}
	if r.Inputs == nil {
		return r.Name, abi.Parameters{}, nil
	}
	return r.Name, r.Inputs, nil
}

type SignatureResponse struct {
	Name      string         `json:"name"`
	Signature string         `json:"signature"`
	Selector  abi.Selector   `json:"selector"`
	Topic     common.Hash    `json:"topic"`
	Inputs    abi.Parameters `json:"inputs"`
}

func NewSignatureResponse(name string, params abi.Parameters) (*SignatureResponse, error) {
	sig, err := abi.CanonicalSignature(name, params)
	if err != nil {
		return nil, err
	}
	return &SignatureResponse{
		Name:      name,
		Signature: sig,
		Selector:  abi.SelectorFromSignature(sig),
		Topic:     abi.Keccak256Hash([]byte(sig)),
		Inputs:    params,
	}, nil
}

// EncodeRequest encodes Values with the parameters given by Types, e.g.
// "(uint256,string)", by the text of a function Signature, by Name and
// Inputs, or by Inputs only. The selector is prepended when a function is
// named, unless Packed.
type EncodeRequest struct {
	Types     string         `json:"types,omitempty"`
	Signature string         `json:"signature,omitempty"`
	Name      string         `json:"name,omitempty"`
	Inputs    abi.Parameters `json:"inputs,omitempty" validate:"dive"`
	Values    []interface{}  `json:"values"`
	Packed    bool           `json:"packed,omitempty"`
}

type EncodeResponse struct {
	Data hexutil.Bytes `json:"data"`
}

type DecodeRequest struct {
	Types   string         `json:"types,omitempty" validate:"required_without=Outputs"`
	Outputs abi.Parameters `json:"outputs,omitempty" validate:"required_without=Types,dive"`
	Data    hexutil.Bytes  `json:"data"`
}

type DecodeResponse struct {
	Values []abi.Value `json:"values"`
}

type RegisterRequest struct {
	Signature string          `json:"signature,omitempty" validate:"required_without=ABI"`
	ABI       json.RawMessage `json:"abi,omitempty" validate:"required_without=Signature"`
}

type CallDataRequest struct {
	Data hexutil.Bytes `json:"data" validate:"required"`
}

type LogRequest struct {
	Topics []common.Hash `json:"topics" validate:"required,min=1,max=4"`
	Data   hexutil.Bytes `json:"data"`
}

type RevertResponse struct {
	Signature string      `json:"signature"`
	Reason    string      `json:"reason,omitempty"`
	Code      *big.Int    `json:"code,omitempty"`
	Values    []abi.Value `json:"values"`
}

func NewRevertResponse(r *abi.Revert) *RevertResponse {
	return &RevertResponse{
		Signature: r.Error.Sig(),
		Reason:    r.Reason,
		Code:      r.Code,
		Values:    r.Values,
	}
}

type RegistryPageRequest struct {
	database.Pageable
	Kind registry.Kind `query:"kind" validate:"omitempty,oneof=function event error"`
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := BindQueryParamsAndUnmarshalBody(c, req); err != nil {
		return errors.IllegalArgumentError.Wrapf(err, "fail to bind request err:%s", err.Error())
	}
	return c.Validate(req)
}

func (r *EncodeRequest) parameters() (string, abi.Parameters, error) {
	switch {
	case len(r.Types) > 0:
		ps, err := abi.ParseParameters(r.Types)
		return "", ps, err
	case len(r.Signature) > 0:
		return abi.ParseSignature(r.Signature)
	default:
		return r.Name, r.Inputs, nil
	}
}

// Encode returns the encoded Values.
func (r *EncodeRequest) Encode() ([]byte, error) {
	name, params, err := r.parameters()
	if err != nil {
		return nil, err
	}
	values, err := abi.ValuesOf(params, r.Values...)
	if err != nil {
		return nil, err
	}
	if r.Packed {
		return abi.EncodePacked(params, values)
	}
	b, err := abi.Encode(params, values)
	if err != nil {
		return nil, err
	}
	if len(name) == 0 {
		return b, nil
	}
	id, err := abi.SelectorOf(name, params)
	if err != nil {
		return nil, err
	}
	return append(id.Bytes(), b...), nil
}

func (r *DecodeRequest) Decode() ([]abi.Value, error) {
	params := r.Outputs
	if len(r.Types) > 0 {
		var err error
		if params, err = abi.ParseParameters(r.Types); err != nil {
			return nil, err
		}
	}
	return abi.Decode(params, r.Data)
}

func (s *Server) registry() (*registry.Registry, error) {
	if s.reg == nil {
		return nil, errors.NotFoundError.New(RegistryDisabled)
	}
	return s.reg, nil
}

func (s *Server) RegisterABIHandler(g *echo.Group) {
	g.POST(UrlSignature, func(c echo.Context) error {
		req := &SignatureRequest{}
		if err := bindAndValidate(c, req); err != nil {
			return err
		}
		name, params, err := req.resolve()
		if err != nil {
			return err
		}
		resp, err := NewSignatureResponse(name, params)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, resp)
	})
	g.POST(UrlEncode, func(c echo.Context) error {
		req := &EncodeRequest{}
		if err := bindAndValidate(c, req); err != nil {
			return err
		}
		b, err := req.Encode()
		if err != nil {
			s.l.Debugf("fail to encode err:%+v", err)
			return err
		}
		return c.JSON(http.StatusOK, &EncodeResponse{Data: b})
	})
	g.POST(UrlDecode, func(c echo.Context) error {
		req := &DecodeRequest{}
		if err := bindAndValidate(c, req); err != nil {
			return err
		}
		values, err := req.Decode()
		if err != nil {
			s.l.Debugf("fail to decode err:%+v", err)
			return err
		}
		return c.JSON(http.StatusOK, &DecodeResponse{Values: values})
	})
	g.GET(UrlSelectors+"/:"+ParamSelector, func(c echo.Context) error {
		r, err := s.registry()
		if err != nil {
			return err
		}
		var id abi.Selector
		if err = id.UnmarshalText([]byte(c.Param(ParamSelector))); err != nil {
			return errors.IllegalArgumentError.Wrapf(err, "invalid selector err:%s", err.Error())
		}
		l, err := r.LookupSelector(id)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, l)
	})
	g.GET(UrlTopics+"/:"+ParamTopic, func(c echo.Context) error {
		r, err := s.registry()
		if err != nil {
			return err
		}
		var topic common.Hash
		if err = topic.UnmarshalText([]byte(c.Param(ParamTopic))); err != nil {
			return errors.IllegalArgumentError.Wrapf(err, "invalid topic err:%s", err.Error())
		}
		l, err := r.LookupTopic(topic)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, l)
	})
	g.GET(UrlRegistry, func(c echo.Context) error {
		r, err := s.registry()
		if err != nil {
			return err
		}
		req := &RegistryPageRequest{}
		if err = bindAndValidate(c, req); err != nil {
			return err
		}
		p, err := r.Page(req.Pageable, req.Kind)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, p)
	})
	g.POST(UrlRegistry, func(c echo.Context) error {
		r, err := s.registry()
		if err != nil {
			return err
		}
		req := &RegisterRequest{}
		if err = bindAndValidate(c, req); err != nil {
			return err
		}
		if len(req.Signature) > 0 {
			sig, err := r.RegisterText(req.Signature)
			if err != nil {
				return err
			}
			return c.JSON(http.StatusOK, []registry.Signature{*sig})
		}
		ct, err := abi.ParseJSON(req.ABI)
		if err != nil {
			return err
		}
		l, err := r.RegisterContract(ct)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, l)
	})
	g.POST(UrlCallData, func(c echo.Context) error {
		r, err := s.registry()
		if err != nil {
			return err
		}
		req := &CallDataRequest{}
		if err = bindAndValidate(c, req); err != nil {
			return err
		}
		l, err := r.DecodeCallData(req.Data)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, l)
	})
	g.POST(UrlRevert, func(c echo.Context) error {
		req := &CallDataRequest{}
		if err := bindAndValidate(c, req); err != nil {
			return err
		}
		if rv, err := abi.UnpackRevert(req.Data); err == nil {
			return c.JSON(http.StatusOK, NewRevertResponse(rv))
		}
		r, err := s.registry()
		if err != nil {
			return err
		}
		l, err := r.DecodeRevert(req.Data)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, l)
	})
	g.POST(UrlLog, func(c echo.Context) error {
		r, err := s.registry()
		if err != nil {
			return err
		}
		req := &LogRequest{}
		if err = bindAndValidate(c, req); err != nil {
			return err
		}
		l, err := r.DecodeLog(req.Topics, req.Data)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, l)
	})
}
