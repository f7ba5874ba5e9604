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
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
)

const testABI = `[
  {"type":"constructor","inputs":[{"name":"name","type":"string"},{"name":"supply","type":"uint256"}],"stateMutability":"nonpayable"},
  {"type":"function","name":"balanceOf","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
  {"type":"function","name":"transfer","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable"},
  {"type":"function","name":"transfer","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"},{"name":"data","type":"bytes"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable"},
  {"type":"function","name":"deposit","inputs":[],"outputs":[],"payable":true},
  {"type":"function","name":"getOrder","inputs":[{"name":"id","type":"uint64"}],"outputs":[{"name":"order","type":"tuple","internalType":"struct Order","components":[{"name":"maker","type":"address"},{"name":"amounts","type":"uint256[]"}]}],"stateMutability":"view"},
  {"type":"event","name":"Transfer","inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":false}],"anonymous":false},
  {"type":"event","name":"Memo","inputs":[{"name":"tag","type":"string","indexed":true},{"name":"body","type":"string","indexed":false}],"anonymous":false},
  {"type":"error","name":"InsufficientBalance","inputs":[{"name":"available","type":"uint256"},{"name":"required","type":"uint256"}]},
  {"type":"fallback","stateMutability":"payable"},
  {"type":"receive","stateMutability":"payable"}
]`

func Test_ParseJSON(t *testing.T) {
	c, err := ParseJSON([]byte(testABI))
	if !assert.NoError(t, err) {
		return
	}
	assert.Equal(t, 5, len(c.Methods))
	assert.Equal(t, 2, len(c.Events))
	assert.Equal(t, 1, len(c.Errors))
	assert.NotNil(t, c.Constructor)
	assert.NotNil(t, c.Fallback)
	assert.NotNil(t, c.Receive)

	m, err := c.Method("transfer")
	assert.NoError(t, err)
	assert.Equal(t, "transfer(address,uint256)", m.Sig())
	assert.Equal(t, "0xa9059cbb", m.ID().String())
	assert.False(t, m.IsConstant())

	m0, err := c.Method("transfer0")
	assert.NoError(t, err)
	assert.Equal(t, "transfer", m0.RawName)
	assert.Equal(t, "transfer(address,uint256,bytes)", m0.Sig())

	m, err = c.Method("balanceOf")
	assert.NoError(t, err)
	assert.True(t, m.IsConstant())
	assert.Equal(t, "function balanceOf(address account) returns (uint256)", m.String())

	m, err = c.Method("deposit")
	assert.NoError(t, err)
	assert.True(t, m.IsPayable())

	_, err = c.Method("approve")
	assertErrorCode(t, ErrorCodeNotFound, err)
}

func Test_ParseJSONInvalid(t *testing.T) {
	for _, s := range []string{
		`{}`,
		`[{"type":"method","name":"f"}]`,
		`[{"type":"function","inputs":[]}]`,
		`[{"type":"function","name":"f","inputs":[{"name":"a"}]}]`,
		`[{"type":"function","name":"f","inputs":[{"name":"a","type":"uint7"}]}]`,
		`[{"type":"function","name":"f","stateMutability":"mutable"}]`,
		`[{"type":"event","name":"E","inputs":[` +
			`{"type":"uint256","indexed":true},{"type":"uint256","indexed":true},` +
			`{"type":"uint256","indexed":true},{"type":"uint256","indexed":true}]}]`,
	} {
		_, err := ParseJSON([]byte(s))
		assert.Error(t, err, s)
	}
	assert.Panics(t, func() { MustParseJSON([]byte(`{}`)) })
}

func Test_MethodPackUnpack(t *testing.T) {
	c := MustParseJSON([]byte(testABI))
	data, err := c.Pack("transfer", testAddress, 100)
	assert.NoError(t, err)
	assert.Equal(t, "0xa9059cbb"+
		"0000000000000000000000005fbdb2315678afecb367f032d93f642f64180aa3"+word(100),
		hexutil.Encode(data))

	m, err := c.MethodByID(data)
	assert.NoError(t, err)
	assert.Equal(t, "transfer", m.Name)
	args, err := m.UnpackInput(data)
	assert.NoError(t, err)
	assert.Equal(t, testAddress, args[0].Address())
	assert.Equal(t, big.NewInt(100), args[1].BigInt())

	other, err := c.Method("balanceOf")
	assert.NoError(t, err)
	_, err = other.UnpackInput(data)
	assertErrorCode(t, ErrorCodeTypeMismatch, err)

	_, err = c.MethodByID([]byte{0, 0, 0, 0})
	assertErrorCode(t, ErrorCodeNotFound, err)

	ret, err := c.Unpack("transfer", words(word(1)))
	assert.NoError(t, err)
	assert.True(t, ret[0].Bool())

	order, err := c.Unpack("getOrder", words(word(0x20), "0000000000000000000000005fbdb2315678afecb367f032d93f642f64180aa3",
		word(0x40), word(1), word(9)))
	assert.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"maker":   testAddress.Hex(),
		"amounts": []interface{}{"9"},
	}, order[0].Interface())
}

func Test_ConstructorPack(t *testing.T) {
	c := MustParseJSON([]byte(testABI))
	data, err := c.Pack("", "tok", 1)
	assert.NoError(t, err)
	assert.Equal(t, words(word(0x40), word(1), word(3), "746f6b0000000000000000000000000000000000000000000000000000000000"), data)

	empty := MustParseJSON([]byte(`[]`))
	data, err = empty.Pack("")
	assert.NoError(t, err)
	assert.Equal(t, 0, len(data))
	_, err = empty.Pack("", 1)
	assertErrorCode(t, ErrorCodeArgumentCountMismatch, err)
}

func Test_EventByID(t *testing.T) {
	c := MustParseJSON([]byte(testABI))
	e, err := c.EventByID(common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"))
	assert.NoError(t, err)
	assert.Equal(t, "Transfer", e.Name)
	_, err = c.EventByID(common.Hash{})
	assertErrorCode(t, ErrorCodeNotFound, err)

	er, err := c.ErrorByID(SelectorFromSignature("InsufficientBalance(uint256,uint256)"))
	assert.NoError(t, err)
	assert.Equal(t, "InsufficientBalance", er.Name)
}

func Test_NewContractKeepsEntries(t *testing.T) {
	entries := []Entry{{
		Type:            EntryTypeFunction,
		Name:            "set",
		StateMutability: "nonpayable",
		Inputs: Parameters{
			{Name: "key", Type: "string"},
			{Name: "pair", Type: "tuple", Components: Parameters{
				{Name: "a", Type: "uint256"},
				{Name: "b", Type: "bool"},
			}},
		},
	}}
	c, err := NewContract(entries)
	if err != nil {
		assert.FailNow(t, "fail to NewContract", err)
	}
	m := c.Methods["set"]
	assert.Equal(t, 1, m.Inputs[0].Order)
	assert.Equal(t, 2, m.Inputs[1].Order)
	assert.Equal(t, 2, m.Inputs[1].Components[1].Order)

	assert.Equal(t, 0, entries[0].Inputs[0].Order)
	assert.Equal(t, 0, entries[0].Inputs[1].Order)
	assert.Equal(t, 0, entries[0].Inputs[1].Components[1].Order)
}
