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

package eth

import (
	"context"
	"math/big"
	"sort"
	"strconv"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"

	"github.com/icon-project/abi-sdk/abi"
	"github.com/icon-project/abi-sdk/contract"
)

func NewHandler(abiJSON []byte, address common.Address, a *Adaptor, l log.Logger) (*Handler, error) {
	c, err := abi.ParseJSON(abiJSON)
	if err != nil {
		return nil, err
	}
	return &Handler{
		c:       c,
		address: address,
		a:       a,
		l:       l,
		signer:  types.LatestSignerForChainID(a.chainID),
	}, nil
}

type Handler struct {
	c       *abi.Contract
	address common.Address
	a       *Adaptor
	l       log.Logger

	signer types.Signer
}

// method resolves name as the raw name of overloaded methods, preferring
// the overload whose inputs match the names in params, or as a method key
// like "get0".
func (h *Handler) method(name string, params contract.Params, readonly bool) (*abi.Method, error) {
	var methods []*abi.Method
	for _, m := range h.c.Methods {
		if m.RawName == name {
			methods = append(methods, m)
		}
	}
	if len(methods) == 0 {
		if m, ok := h.c.Methods[name]; ok {
			methods = append(methods, m)
		}
	}
	sort.Slice(methods, func(i, j int) bool {
		return methods[i].Name < methods[j].Name
	})
	var found *abi.Method
	switch len(methods) {
	case 0:
		return nil, contract.ErrorCodeNotFoundMethod.Errorf("not found method:%s", name)
	case 1:
		found = methods[0]
	default:
		for _, m := range methods {
			if matchInputs(m.Inputs, params) {
				found = m
				break
			}
		}
		if found == nil {
			return nil, contract.ErrorCodeNotFoundMethod.Errorf("not found method:%s with params", name)
		}
	}
	if found.IsConstant() != readonly {
		return nil, contract.ErrorCodeMismatchReadonly.Errorf("mismatch readonly, method:%s expected:%v", name, readonly)
	}
	return found, nil
}

func paramName(p abi.Parameter, i int) string {
	if len(p.Name) > 0 {
		return p.Name
	}
	return strconv.Itoa(i)
}

func matchInputs(inputs abi.Parameters, params contract.Params) bool {
	if len(inputs) != len(params) {
		return false
	}
	for i, p := range inputs {
		if _, ok := params[paramName(p, i)]; !ok {
			return false
		}
	}
	return true
}

func (h *Handler) callData(m *abi.Method, params contract.Params) ([]byte, error) {
	values := make([]abi.Value, len(m.Inputs))
	for i, p := range m.Inputs {
		name := paramName(p, i)
		param, ok := params[name]
		if !ok || param == nil {
			return nil, contract.ErrorCodeInvalidParam.Errorf("required param:%s", name)
		}
		t, err := p.ABIType()
		if err != nil {
			return nil, err
		}
		if values[i], err = abi.ValueOf(t, param); err != nil {
			return nil, contract.ErrorCodeInvalidParam.Wrapf(err, "invalid param:%s err:%s", name, err.Error())
		}
		h.l.Tracef("callData index:%d name:%s param:%v value:%s", i, name, param, values[i])
	}
	b, err := m.Pack(values)
	if err != nil {
		return nil, errors.Wrapf(err, "fail to Pack err:%s", err.Error())
	}
	return b, nil
}

// failure converts the error of eth_call or eth_estimateGas into
// contract.RevertError when the node returned revert data.
func (h *Handler) failure(err error, method string) error {
	var txf *TxFailure
	switch e := err.(type) {
	case *TxFailure:
		txf = e
	default:
		txf = NewTxFailure(err)
	}
	if txf != nil && len(txf.Data) > 0 {
		return contract.NewRevertError(txf.Data, h.c)
	}
	return errors.Wrapf(err, "fail to %s err:%s", method, err.Error())
}

type InvokeOptions struct {
	From      contract.Address `json:"from,omitempty"`
	Value     contract.Integer `json:"value,omitempty"`
	GasPrice  contract.Integer `json:"gasPrice,omitempty"`
	GasLimit  contract.Integer `json:"gasLimit,omitempty"`
	GasFeeCap contract.Integer `json:"gasFeeCap,omitempty"`
	GasTipCap contract.Integer `json:"gasTipCap,omitempty"`
	Nonce     contract.Integer `json:"nonce,omitempty"`
	Signature contract.Bytes   `json:"signature,omitempty"`
	Estimate  contract.Boolean `json:"estimate,omitempty"`
}

type baseTx struct {
	ChainID   *big.Int
	To        *common.Address
	Data      []byte
	Value     *big.Int
	GasLimit  uint64
	Nonce     uint64
	GasPrice  *big.Int // LegacyTx
	GasTipCap *big.Int // DynamicFeeTx
	GasFeeCap *big.Int // DynamicFeeTx
}

func (p *baseTx) TxData() types.TxData {
	if p.GasPrice != nil {
		return &types.LegacyTx{
			Nonce:    p.Nonce,
			Gas:      p.GasLimit,
			Value:    p.Value,
			GasPrice: p.GasPrice,
			To:       p.To,
			Data:     p.Data,
		}
	}
	return &types.DynamicFeeTx{
		Nonce:     p.Nonce,
		Gas:       p.GasLimit,
		Value:     p.Value,
		ChainID:   p.ChainID,
		GasFeeCap: p.GasFeeCap,
		GasTipCap: p.GasTipCap,
		To:        p.To,
		Data:      p.Data,
	}
}

func optionBigInt(name string, v contract.Integer) (*big.Int, error) {
	if len(v) == 0 {
		return nil, nil
	}
	r, err := v.AsBigInt()
	if err != nil {
		return nil, contract.ErrorCodeInvalidOption.Wrapf(err, "invalid '%s' err:%s", name, err.Error())
	}
	return r, nil
}

func optionUint64(name string, v contract.Integer) (uint64, error) {
	r, err := v.AsUint64()
	if err != nil {
		return 0, contract.ErrorCodeInvalidOption.Wrapf(err, "invalid '%s' err:%s", name, err.Error())
	}
	return r, nil
}

func (h *Handler) newBaseTx(m *abi.Method, opt *InvokeOptions, data []byte) (p *baseTx, err error) {
	p = &baseTx{
		ChainID:  h.a.chainID,
		To:       &h.address,
		Data:     data,
		GasLimit: DefaultGasLimit,
	}
	if p.Value, err = optionBigInt("value", opt.Value); err != nil {
		return nil, err
	}
	if p.Value != nil && p.Value.Sign() != 0 && !m.IsPayable() {
		return nil, contract.ErrorCodeInvalidOption.Errorf("not payable method:%s", m.RawName)
	}
	if len(opt.GasLimit) > 0 {
		if p.GasLimit, err = optionUint64("gasLimit", opt.GasLimit); err != nil {
			return nil, err
		}
	}
	if len(opt.Nonce) > 0 {
		if p.Nonce, err = optionUint64("nonce", opt.Nonce); err != nil {
			return nil, err
		}
	}
	if p.GasPrice, err = optionBigInt("gasPrice", opt.GasPrice); err != nil {
		return nil, err
	}
	if p.GasFeeCap, err = optionBigInt("gasFeeCap", opt.GasFeeCap); err != nil {
		return nil, err
	}
	if p.GasTipCap, err = optionBigInt("gasTipCap", opt.GasTipCap); err != nil {
		return nil, err
	}
	if p.GasPrice != nil && (p.GasFeeCap != nil || p.GasTipCap != nil) {
		return nil, contract.ErrorCodeInvalidOption.Errorf("both GasPrice and (GasFeeCap or GasTipCap) specified")
	}
	if opt.Estimate && len(opt.GasLimit) == 0 {
		msg := ethereum.CallMsg{
			To:    &h.address,
			Data:  p.Data,
			Value: p.Value,
		}
		if len(opt.From) > 0 {
			msg.From = common.HexToAddress(string(opt.From))
		}
		gasLimit, err := h.a.EstimateGas(context.Background(), msg)
		if err != nil {
			return nil, h.failure(err, "EstimateGas")
		}
		p.GasLimit = gasLimit
		opt.GasLimit = contract.MustIntegerOf(gasLimit)
	}
	return p, nil
}

// prepareSign fills nonce and fees from the node, and reports whether opt
// was updated.
func (h *Handler) prepareSign(opt *InvokeOptions, p *baseTx) (optUpdated bool, err error) {
	if len(opt.GasLimit) == 0 {
		opt.GasLimit = contract.MustIntegerOf(p.GasLimit)
		optUpdated = true
	}
	if len(opt.Nonce) == 0 {
		if len(opt.From) == 0 {
			return false, contract.ErrorCodeInvalidOption.Errorf("required 'from'")
		}
		if !common.IsHexAddress(string(opt.From)) {
			return false, contract.ErrorCodeInvalidOption.Errorf("invalid 'from'")
		}
		from := common.HexToAddress(string(opt.From))
		if p.Nonce, err = h.a.PendingNonceAt(context.Background(), from); err != nil {
			return false, errors.Wrapf(err, "fail to PendingNonceAt err:%s", err.Error())
		}
		opt.Nonce = contract.MustIntegerOf(p.Nonce)
		optUpdated = true
	}
	if p.GasPrice != nil || (p.GasFeeCap != nil && p.GasTipCap != nil) {
		return optUpdated, nil
	}
	head, err := h.a.HeaderByNumber(context.Background(), nil)
	if err != nil {
		return false, errors.Wrapf(err, "fail to HeaderByNumber err:%s", err.Error())
	}
	if head.BaseFee == nil {
		if p.GasPrice, err = h.a.SuggestGasPrice(context.Background()); err != nil {
			return false, errors.Wrapf(err, "fail to SuggestGasPrice err:%s", err.Error())
		}
		opt.GasPrice = contract.MustIntegerOf(p.GasPrice)
		return true, nil
	}
	if p.GasTipCap == nil {
		if p.GasTipCap, err = h.a.SuggestGasTipCap(context.Background()); err != nil {
			return false, errors.Wrapf(err, "fail to SuggestGasTipCap err:%s", err.Error())
		}
		opt.GasTipCap = contract.MustIntegerOf(p.GasTipCap)
	}
	if p.GasFeeCap == nil {
		p.GasFeeCap = new(big.Int).Add(
			p.GasTipCap,
			new(big.Int).Mul(head.BaseFee, big.NewInt(2)),
		)
		opt.GasFeeCap = contract.MustIntegerOf(p.GasFeeCap)
	}
	if p.GasFeeCap.Cmp(p.GasTipCap) < 0 {
		return false, contract.ErrorCodeInvalidOption.Errorf(
			"GasFeeCap (%v) < GasTipCap (%v)", p.GasFeeCap, p.GasTipCap)
	}
	return true, nil
}

// Invoke returns contract.RequireSignatureError with the hash to sign when
// options has no signature. The options of the error are to be sent back
// with the signature.
func (h *Handler) Invoke(method string, params contract.Params, options contract.Options) (contract.TxID, error) {
	m, err := h.method(method, params, false)
	if err != nil {
		return nil, err
	}
	data, err := h.callData(m, params)
	if err != nil {
		return nil, err
	}
	opt := &InvokeOptions{}
	if err = contract.DecodeOptions(options, opt); err != nil {
		return nil, err
	}
	p, err := h.newBaseTx(m, opt, data)
	if err != nil {
		return nil, err
	}

	if len(opt.Signature) == 0 {
		if _, err = h.prepareSign(opt, p); err != nil {
			return nil, err
		}
		if options, err = contract.EncodeOptions(opt); err != nil {
			return nil, err
		}
		return nil, contract.NewRequireSignatureError(h.signer.Hash(types.NewTx(p.TxData())).Bytes(), options)
	}
	if len(opt.Nonce) == 0 {
		return nil, contract.ErrorCodeInvalidOption.Errorf("required 'nonce' with 'signature'")
	}
	if p.GasPrice == nil && (p.GasFeeCap == nil || p.GasTipCap == nil) {
		return nil, contract.ErrorCodeInvalidOption.Errorf("required 'gasPrice' or ('gasFeeCap' and 'gasTipCap') with 'signature'")
	}
	tx, err := types.NewTx(p.TxData()).WithSignature(h.signer, opt.Signature)
	if err != nil {
		return nil, contract.ErrorCodeInvalidOption.Wrapf(err, "fail to WithSignature err:%s", err.Error())
	}
	if err = h.a.SendTransaction(context.Background(), tx); err != nil {
		return nil, errors.Wrapf(err, "fail to SendTransaction err:%s", err.Error())
	}
	h.l.Debugf("Invoke method:%s txID:%s", m.Sig(), tx.Hash())
	return NewTxID(tx.Hash()), nil
}

type CallOption struct {
	From contract.Address `json:"from,omitempty"`
}

// Call performs eth_call. A method with one output returns the value of
// it, a method with several outputs returns a map by output name, or a
// list when an output has no name.
func (h *Handler) Call(method string, params contract.Params, options contract.Options) (contract.ReturnValue, error) {
	m, err := h.method(method, params, true)
	if err != nil {
		return nil, err
	}
	data, err := h.callData(m, params)
	if err != nil {
		return nil, err
	}
	opt := &CallOption{}
	if err = contract.DecodeOptions(options, opt); err != nil {
		return nil, err
	}
	p := ethereum.CallMsg{
		To:   &h.address,
		Data: data,
	}
	if len(opt.From) > 0 {
		if !common.IsHexAddress(string(opt.From)) {
			return nil, contract.ErrorCodeInvalidOption.Errorf("invalid 'from'")
		}
		p.From = common.HexToAddress(string(opt.From))
	}
	bs, err := h.a.CallContract(context.Background(), p, nil)
	if err != nil {
		return nil, h.failure(err, "CallContract")
	}
	values, err := m.Unpack(bs)
	if err != nil {
		return nil, errors.Wrapf(err, "fail to Unpack err:%s", err.Error())
	}
	return returnValue(m.Outputs, values), nil
}

func returnValue(outputs abi.Parameters, values []abi.Value) contract.ReturnValue {
	switch len(values) {
	case 0:
		return nil
	case 1:
		return values[0].Interface()
	}
	named := true
	for _, p := range outputs {
		if len(p.Name) == 0 {
			named = false
			break
		}
	}
	if named {
		ret := make(map[string]interface{}, len(values))
		for i, v := range values {
			ret[outputs[i].Name] = v.Interface()
		}
		return ret
	}
	ret := make([]interface{}, len(values))
	for i, v := range values {
		ret[i] = v.Interface()
	}
	return ret
}

// Events decodes the logs of r emitted by the contract. Logs of unknown
// events are skipped.
func (h *Handler) Events(r contract.TxResult) ([]*contract.Event, error) {
	txr, ok := r.(*TxResult)
	if !ok {
		return nil, contract.ErrorCodeInvalidParam.Errorf("invalid TxResult type:%T", r)
	}
	events := make([]*contract.Event, 0)
	for _, el := range txr.Logs {
		if el.Address != h.address || len(el.Topics) == 0 {
			continue
		}
		e, err := h.c.EventByID(el.Topics[0])
		if err != nil {
			h.l.Tracef("skip unknown event topic:%s", el.Topics[0])
			continue
		}
		values, err := e.Unpack(el.Topics, el.Data)
		if err != nil {
			return nil, errors.Wrapf(err, "fail to Unpack event:%s err:%s", e.Sig(), err.Error())
		}
		params := make(contract.Params)
		for i, in := range e.Inputs {
			params[paramName(in, i)] = values[i].Interface()
		}
		events = append(events, &contract.Event{
			Address:     h.Address(),
			Name:        e.Name,
			Signature:   e.Sig(),
			Params:      params,
			BlockHeight: int64(el.BlockNumber),
			TxID:        NewTxID(el.TxHash),
			Index:       el.Index,
		})
	}
	return events, nil
}

func (h *Handler) Contract() *abi.Contract {
	return h.c
}

func (h *Handler) Address() contract.Address {
	return contract.Address(h.address.String())
}
