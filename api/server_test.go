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
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"
	"github.com/stretchr/testify/assert"

	"github.com/icon-project/abi-sdk/abi"
	"github.com/icon-project/abi-sdk/contract"
	"github.com/icon-project/abi-sdk/database"
	"github.com/icon-project/abi-sdk/registry"
)

const (
	networkTest = "eth_test"
	testAddress = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
	fromAddress = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
	testABI     = `[
  {"type":"function","name":"balanceOf","stateMutability":"view",
   "inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"transfer","stateMutability":"nonpayable",
   "inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"event","name":"Transfer","inputs":[
   {"name":"from","type":"address","indexed":true},
   {"name":"to","type":"address","indexed":true},
   {"name":"value","type":"uint256"}]},
  {"type":"error","name":"Unauthorized","inputs":[{"name":"account","type":"address"}]}
]`
)

type testResult struct {
	ID     string `json:"id"`
	Height int64  `json:"height"`
}

func (r *testResult) Success() bool             { return true }
func (r *testResult) Failure() interface{}      { return nil }
func (r *testResult) BlockID() contract.BlockID { return "0x01" }
func (r *testResult) BlockHeight() int64        { return r.Height }
func (r *testResult) TxID() contract.TxID       { return r.ID }

type testHandler struct {
	c       *abi.Contract
	address contract.Address
}

func (h *testHandler) Invoke(method string, params contract.Params, options contract.Options) (contract.TxID, error) {
	if _, err := h.c.Method(method); err != nil {
		return nil, contract.ErrorCodeNotFoundMethod.Wrapf(err, "not found method:%s", method)
	}
	sig, ok := options["signature"]
	if !ok {
		return nil, contract.NewRequireSignatureError([]byte{1, 2, 3}, options)
	}
	if sig != "0x030201" || options["from"] != fromAddress {
		return nil, contract.ErrorCodeInvalidOption.Errorf("invalid signature:%v", sig)
	}
	return "0x1234", nil
}

func (h *testHandler) Call(method string, params contract.Params, options contract.Options) (contract.ReturnValue, error) {
	if _, err := h.c.Method(method); err != nil {
		return nil, contract.ErrorCodeNotFoundMethod.Wrapf(err, "not found method:%s", method)
	}
	return fmt.Sprintf("%s:%v", method, params["account"]), nil
}

func (h *testHandler) Events(r contract.TxResult) ([]*contract.Event, error) {
	return []*contract.Event{{
		Address:     h.address,
		Name:        "Transfer",
		Signature:   "Transfer(address,address,uint256)",
		Params:      contract.Params{"value": "1"},
		BlockHeight: r.BlockHeight(),
		TxID:        r.TxID(),
	}}, nil
}

func (h *testHandler) Contract() *abi.Contract {
	return h.c
}

func (h *testHandler) Address() contract.Address {
	return h.address
}

type testAdaptor struct{}

func (a *testAdaptor) NetworkType() string {
	return "eth"
}

func (a *testAdaptor) GetResult(id contract.TxID) (contract.TxResult, error) {
	if id != "0x1234" {
		return nil, contract.ErrorCodeNotFoundTransaction.Errorf("not found txID:%v", id)
	}
	return &testResult{ID: "0x1234", Height: 7}, nil
}

func (a *testAdaptor) Handler(abiJSON []byte, address contract.Address) (contract.Handler, error) {
	c, err := abi.ParseJSON(abiJSON)
	if err != nil {
		return nil, err
	}
	if !common.IsHexAddress(string(address)) {
		return nil, contract.ErrorCodeInvalidParam.Errorf("invalid address:%s", address)
	}
	return &testHandler{c: c, address: contract.Address(common.HexToAddress(string(address)).Hex())}, nil
}

type testSigner struct{}

func (s *testSigner) Address() string {
	return fromAddress
}

func (s *testSigner) Sign(data []byte) ([]byte, error) {
	ret := make([]byte, len(data))
	for i, b := range data {
		ret[len(data)-1-i] = b
	}
	return ret, nil
}

func newTestServer(t *testing.T) (*Server, *Client) {
	l := log.GlobalLogger()
	db, err := database.OpenDatabase(database.Config{Driver: database.DriverSQLite, DBName: ":memory:"}, l)
	if err != nil {
		assert.FailNow(t, "fail to OpenDatabase", err.Error())
	}
	reg, err := registry.New(db, l)
	if err != nil {
		assert.FailNow(t, "fail to registry.New", err.Error())
	}
	s := NewServer("", reg, log.DebugLevel, l)
	s.AddAdaptor(networkTest, &testAdaptor{})
	hs := httptest.NewServer(s.e)
	t.Cleanup(hs.Close)
	return s, NewClient(hs.URL, log.DebugLevel, l)
}

func assertErrorResponse(t *testing.T, code errors.Code, err error) {
	er, ok := err.(*ErrorResponse)
	if !ok {
		assert.FailNow(t, "not ErrorResponse", "%T %+v", err, err)
	}
	assert.Equal(t, code, er.Code, er.Message)
}

func Test_Signature(t *testing.T) {
	_, c := newTestServer(t)
	r, err := c.Signature(&SignatureRequest{Signature: "transfer(address to, uint256 amount)"})
	if err != nil {
		assert.FailNow(t, "fail to Signature", err)
	}
	assert.Equal(t, "transfer", r.Name)
	assert.Equal(t, "transfer(address,uint256)", r.Signature)
	assert.Equal(t, "0xa9059cbb", r.Selector.String())
	assert.Equal(t, "to", r.Inputs[0].Name)

	ps, _ := abi.NewParameterBuilder().Add("account", "address").Build()
	r, err = c.Signature(&SignatureRequest{Name: "balanceOf", Inputs: ps})
	assert.NoError(t, err)
	assert.Equal(t, "0x70a08231", r.Selector.String())

	_, err = c.Signature(&SignatureRequest{Signature: "transfer(address"})
	assertErrorResponse(t, abi.ErrorCodeInvalidTypeSyntax, err)
	_, err = c.Signature(&SignatureRequest{})
	assertErrorResponse(t, errors.IllegalArgumentError, err)
}

func Test_EncodeDecode(t *testing.T) {
	_, c := newTestServer(t)
	b, err := c.Encode(&EncodeRequest{
		Types:  "(uint256,string)",
		Values: []interface{}{1, "a"},
	})
	if err != nil {
		assert.FailNow(t, "fail to Encode", err)
	}
	ps, _ := abi.ParseParameters("uint256,string")
	expected, err := abi.EncodeArgs(ps, 1, "a")
	assert.NoError(t, err)
	assert.Equal(t, expected, b)

	values, err := c.Decode(&DecodeRequest{Types: "uint256 id,string", Data: b})
	assert.NoError(t, err)
	assert.Equal(t, []interface{}{"1", "a"}, values)

	b, err = c.Encode(&EncodeRequest{
		Signature: "transfer(address,uint256)",
		Values:    []interface{}{testAddress, "100"},
	})
	assert.NoError(t, err)
	assert.Equal(t, "0xa9059cbb", hexutil.Encode(b[:4]))
	assert.Equal(t, 4+64, len(b))

	b, err = c.Encode(&EncodeRequest{
		Types:  "int16,bytes1,uint16,string",
		Values: []interface{}{-1, "0x42", 3, "Hello, world!"},
		Packed: true,
	})
	assert.NoError(t, err)
	assert.Equal(t, "0xffff42000348656c6c6f2c20776f726c6421", hexutil.Encode(b))

	_, err = c.Encode(&EncodeRequest{Types: "uint8", Values: []interface{}{256}})
	assertErrorResponse(t, abi.ErrorCodeValueOutOfRange, err)
	_, err = c.Encode(&EncodeRequest{Types: "uint8", Values: []interface{}{1, 2}})
	assertErrorResponse(t, abi.ErrorCodeArgumentCountMismatch, err)
	_, err = c.Decode(&DecodeRequest{Types: "uint256", Data: []byte{1}})
	assertErrorResponse(t, abi.ErrorCodeBufferTooShort, err)
}

func Test_Registry(t *testing.T) {
	_, c := newTestServer(t)
	l, err := c.Register(&RegisterRequest{ABI: []byte(testABI)})
	if err != nil {
		assert.FailNow(t, "fail to Register", err)
	}
	assert.Len(t, l, 4)

	l, err = c.Register(&RegisterRequest{Signature: "approve(address spender,uint256 amount)"})
	assert.NoError(t, err)
	assert.Equal(t, "approve(address,uint256)", l[0].Canonical)

	l, err = c.LookupSelector(abi.SelectorFromSignature("transfer(address,uint256)"))
	assert.NoError(t, err)
	if assert.Len(t, l, 1) {
		assert.Equal(t, "transfer(address to,uint256 amount)", l[0].Text)
	}
	l, err = c.LookupTopic(abi.Keccak256Hash([]byte("Transfer(address,address,uint256)")))
	assert.NoError(t, err)
	assert.Len(t, l, 1)

	p, err := c.Signatures(database.Pageable{Page: 0, Size: 2, Sort: "canonical"}, registry.KindFunction)
	assert.NoError(t, err)
	assert.Equal(t, 3, p.TotalElements)
	assert.Len(t, p.Content, 2)
	assert.Equal(t, "approve(address,uint256)", p.Content[0].Canonical)

	ps, _ := abi.ParseParameters("address,uint256")
	args, _ := abi.EncodeArgs(ps, testAddress, 5)
	data := append(abi.SelectorFromSignature("transfer(address,uint256)").Bytes(), args...)
	decoded, err := c.DecodeCallData(data)
	assert.NoError(t, err)
	if assert.Len(t, decoded, 1) {
		assert.Equal(t, "transfer", decoded[0].Name)
		assert.Equal(t, "amount", decoded[0].Arguments[1].Name)
		assert.Equal(t, "5", decoded[0].Arguments[1].Value)
	}

	_, err = c.DecodeCallData([]byte{1, 2, 3, 4})
	assertErrorResponse(t, registry.ErrorCodeNotRegistered, err)

	topics := []common.Hash{
		abi.Keccak256Hash([]byte("Transfer(address,address,uint256)")),
		common.BytesToHash(common.HexToAddress(testAddress).Bytes()),
		common.BytesToHash(common.HexToAddress(fromAddress).Bytes()),
	}
	decoded, err = c.DecodeLog(topics, common.LeftPadBytes([]byte{9}, 32))
	assert.NoError(t, err)
	if assert.Len(t, decoded, 1) {
		assert.Equal(t, "Transfer", decoded[0].Name)
		assert.Equal(t, "9", decoded[0].Arguments[2].Value)
	}

	rr := &RevertResponse{}
	reason, _ := abi.ParseParameters("string")
	revertData, _ := abi.EncodeArgs(reason, "denied")
	revertData = append([]byte{0x08, 0xc3, 0x79, 0xa0}, revertData...)
	_, err = c.do(http.MethodPost, c.url("%s%s", GroupUrlAbi, UrlRevert), &CallDataRequest{Data: revertData}, rr)
	assert.NoError(t, err)
	assert.Equal(t, "Error(string)", rr.Signature)
	assert.Equal(t, "denied", rr.Reason)
}

func Test_RegistryDisabled(t *testing.T) {
	s := NewServer("", nil, log.DebugLevel, log.GlobalLogger())
	hs := httptest.NewServer(s.e)
	defer hs.Close()
	c := NewClient(hs.URL, log.DebugLevel, log.GlobalLogger())
	_, err := c.LookupSelector(abi.SelectorFromSignature("transfer(address,uint256)"))
	assertErrorResponse(t, errors.NotFoundError, err)
}

func Test_ContractService(t *testing.T) {
	s, c := newTestServer(t)
	si, err := c.RegisterContractService(networkTest, &RegisterContractServiceRequest{
		Name:    "token",
		Address: testAddress,
		ABI:     []byte(testABI),
	})
	if err != nil {
		assert.FailNow(t, "fail to RegisterContractService", err)
	}
	assert.Equal(t, "token", si.Name)
	assert.NotNil(t, s.GetService("token"))

	nis, err := c.NetworkInfos()
	assert.NoError(t, err)
	assert.Equal(t, NetworkInfos{{Name: networkTest, NetworkType: "eth"}}, nis)

	sis, err := c.ServiceInfos(networkTest)
	assert.NoError(t, err)
	assert.Equal(t, ServiceInfos{{Name: "token", Network: networkTest, Address: testAddress}}, sis)

	mis, err := c.MethodInfos(networkTest, "token")
	assert.NoError(t, err)
	if assert.Len(t, mis, 2) {
		assert.Equal(t, "balanceOf", mis[0].Name)
		assert.True(t, mis[0].Readonly)
		assert.Equal(t, "0xa9059cbb", mis[1].Selector.String())
	}

	var ret string
	err = c.Call(networkTest, strings.ToLower(testAddress), "balanceOf",
		&Request{Params: contract.Params{"account": fromAddress}}, &ret)
	assert.NoError(t, err)
	assert.Equal(t, "balanceOf:"+fromAddress, ret)

	_, err = c.Invoke(networkTest, "token", "transfer",
		&Request{Params: contract.Params{"to": fromAddress, "amount": 1}}, nil)
	assertErrorResponse(t, contract.ErrorCodeRequireSignature, err)
	er := err.(*ErrorResponse)
	rse := &RequireSignatureError{}
	assert.NoError(t, er.UnmarshalData(rse))
	assert.Equal(t, hexutil.Bytes{1, 2, 3}, rse.Data)

	txID, err := c.Invoke(networkTest, "token", "transfer",
		&Request{Params: contract.Params{"to": fromAddress, "amount": 1}}, &testSigner{})
	assert.NoError(t, err)
	assert.Equal(t, "0x1234", txID)

	_, err = c.Invoke(networkTest, "token", "balanceOf", &Request{}, nil)
	assertErrorResponse(t, contract.ErrorCodeMismatchReadonly, err)
	err = c.Call(networkTest, "token", "unknown", &Request{}, &ret)
	assertErrorResponse(t, contract.ErrorCodeNotFoundMethod, err)
	err = c.Call(networkTest, "unknown", "balanceOf", &Request{}, &ret)
	assertErrorResponse(t, errors.NotFoundError, err)
	err = c.Call("unknown", "token", "balanceOf", &Request{}, &ret)
	assertErrorResponse(t, errors.NotFoundError, err)

	r := &testResult{}
	assert.NoError(t, c.GetResult(networkTest, "0x1234", r))
	assert.Equal(t, int64(7), r.Height)
	err = c.GetResult(networkTest, "0x9999", r)
	assertErrorResponse(t, contract.ErrorCodeNotFoundTransaction, err)

	events, err := c.Events(networkTest, "token", "0x1234")
	assert.NoError(t, err)
	if assert.Len(t, events, 1) {
		assert.Equal(t, "Transfer", events[0].Name)
		assert.Equal(t, int64(7), events[0].BlockHeight)
	}
}
