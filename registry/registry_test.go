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
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"
	"github.com/stretchr/testify/assert"

	"github.com/icon-project/abi-sdk/abi"
	"github.com/icon-project/abi-sdk/database"
)

const testABI = `[
  {"type":"function","name":"transfer","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"setItems","inputs":[{"name":"items","type":"tuple[]","components":[{"name":"id","type":"uint64"},{"name":"label","type":"string"}]}],"outputs":[]},
  {"type":"event","name":"Transfer","inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"value","type":"uint256"}]},
  {"type":"error","name":"Unauthorized","inputs":[{"name":"account","type":"address"}]}
]`

var (
	testAddress = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
)

func newRegistry(t *testing.T) *Registry {
	l := log.GlobalLogger()
	db, err := database.OpenDatabase(database.Config{Driver: database.DriverSQLite, DBName: ":memory:"}, l)
	if err != nil {
		assert.FailNow(t, "fail to OpenDatabase", err.Error())
	}
	r, err := New(db, l)
	if err != nil {
		assert.FailNow(t, "fail to New", err.Error())
	}
	return r
}

func Test_Register(t *testing.T) {
	r := newRegistry(t)
	ps, err := abi.NewParameterBuilder().Add("to", "address").Add("amount", "uint256").Build()
	assert.NoError(t, err)
	s, err := r.Register(KindFunction, "transfer", ps)
	assert.NoError(t, err)
	assert.Equal(t, "transfer(address,uint256)", s.Canonical)
	assert.Equal(t, "transfer(address to,uint256 amount)", s.Text)
	assert.Equal(t, "0xa9059cbb", s.Selector)
	assert.True(t, s.ID > 0)

	again, err := r.Register(KindFunction, "transfer", ps)
	assert.NoError(t, err)
	assert.Equal(t, s.ID, again.ID)

	l, err := r.LookupSelector(abi.SelectorFromSignature("transfer(address,uint256)"))
	assert.NoError(t, err)
	assert.Equal(t, 1, len(l))

	_, err = r.Register(KindFunction, "bad name", ps)
	assert.Error(t, err)

	e, err := r.RegisterText("event Transfer(address indexed from, address indexed to, uint256 value)")
	assert.NoError(t, err)
	assert.Equal(t, KindEvent, e.Kind)
	assert.Equal(t, "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef", e.Hash)
	topics, err := r.LookupTopic(common.HexToHash(e.Hash))
	assert.NoError(t, err)
	assert.Equal(t, 1, len(topics))

	page, err := r.Page(database.Pageable{Size: 10}, KindFunction)
	assert.NoError(t, err)
	assert.Equal(t, 1, page.TotalElements)
	page, err = r.Page(database.Pageable{}, "")
	assert.NoError(t, err)
	assert.Equal(t, 2, page.TotalElements)
}

func Test_DecodeCallData(t *testing.T) {
	r := newRegistry(t)
	c := abi.MustParseJSON([]byte(testABI))
	l, err := r.RegisterContract(c)
	assert.NoError(t, err)
	assert.Equal(t, 4, len(l))

	data, err := c.Pack("transfer", testAddress, 10)
	assert.NoError(t, err)
	decoded, err := r.DecodeCallData(data)
	assert.NoError(t, err)
	if assert.Equal(t, 1, len(decoded)) {
		d := decoded[0]
		assert.Equal(t, "transfer", d.Name)
		assert.Equal(t, "to", d.Arguments[0].Name)
		assert.Equal(t, "address", d.Arguments[0].Type)
		assert.Equal(t, testAddress, d.Arguments[0].Value.Address())
		assert.Equal(t, int64(10), d.Arguments[1].Value.BigInt().Int64())
	}

	data, err = c.Pack("setItems", []interface{}{[]interface{}{1, "a"}, map[string]interface{}{"id": 2, "label": "b"}})
	assert.NoError(t, err)
	decoded, err = r.DecodeCallData(data)
	assert.NoError(t, err)
	if assert.Equal(t, 1, len(decoded)) {
		assert.Equal(t, "(uint64,string)[]", decoded[0].Arguments[0].Type)
		assert.Equal(t, 2, decoded[0].Arguments[0].Value.Len())
	}

	_, err = r.DecodeCallData(hexutil.MustDecode("0x12345678"))
	assert.Equal(t, ErrorCodeNotRegistered, errors.CodeOf(err))

	_, err = r.DecodeCallData(data[:len(data)-40])
	assert.Equal(t, ErrorCodeUndecodable, errors.CodeOf(err))

	_, err = r.DecodeCallData([]byte{1})
	assert.Equal(t, abi.ErrorCodeBufferTooShort, errors.CodeOf(err))
}

func Test_DecodeLogAndRevert(t *testing.T) {
	r := newRegistry(t)
	c := abi.MustParseJSON([]byte(testABI))
	_, err := r.RegisterContract(c)
	assert.NoError(t, err)

	ev := c.Events["Transfer"]
	topics := []common.Hash{ev.ID(), common.BytesToHash(testAddress.Bytes()), {}}
	value, err := abi.Uint(256, common.Big3)
	assert.NoError(t, err)
	data, err := abi.Encode(abi.Parameters{{Type: "uint256"}}, []abi.Value{value})
	assert.NoError(t, err)
	decoded, err := r.DecodeLog(topics, data)
	assert.NoError(t, err)
	if assert.Equal(t, 1, len(decoded)) {
		assert.Equal(t, "Transfer", decoded[0].Name)
		assert.Equal(t, testAddress, decoded[0].Arguments[0].Value.Address())
		assert.Equal(t, "3", decoded[0].Arguments[2].Value.Interface())
	}

	_, err = r.DecodeLog(nil, data)
	assert.Equal(t, ErrorCodeUndecodable, errors.CodeOf(err))

	id := c.Errors["Unauthorized"].ID()
	payload, err := abi.Encode(c.Errors["Unauthorized"].Inputs, []abi.Value{abi.Address(testAddress)})
	assert.NoError(t, err)
	decoded, err = r.DecodeRevert(append(id.Bytes(), payload...))
	assert.NoError(t, err)
	if assert.Equal(t, 1, len(decoded)) {
		assert.Equal(t, "Unauthorized", decoded[0].Name)
	}
	_, err = r.DecodeCallData(append(id.Bytes(), payload...))
	assert.Equal(t, ErrorCodeNotRegistered, errors.CodeOf(err))
}
