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
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
)

func Test_ValueOfIntegers(t *testing.T) {
	typ := MustTypeOf("int256")
	for _, v := range []interface{}{
		-42, int8(-42), int64(-42), big.NewInt(-42), *big.NewInt(-42),
		"-42", "-0x2a", json.Number("-42"), float64(-42),
	} {
		val, err := ValueOf(typ, v)
		if assert.NoError(t, err, "%T", v) {
			assert.Equal(t, int64(-42), val.BigInt().Int64())
		}
	}
	val, err := ValueOf(MustTypeOf("uint64"), (*hexutil.Big)(big.NewInt(7)))
	assert.NoError(t, err)
	assert.Equal(t, "7", val.Interface())

	for _, v := range []interface{}{"", "0x", "12a", "--1", "0x-1", 1.5, true, []byte{1}} {
		_, err = ValueOf(typ, v)
		assertErrorCode(t, ErrorCodeTypeMismatch, err)
	}
	_, err = ValueOf(MustTypeOf("uint8"), 256)
	assertErrorCode(t, ErrorCodeValueOutOfRange, err)
	_, err = ValueOf(MustTypeOf("uint8"), -1)
	assertErrorCode(t, ErrorCodeValueOutOfRange, err)
}

func Test_ValueOfBytes(t *testing.T) {
	val, err := ValueOf(MustTypeOf("bytes4"), "0x0102")
	assert.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 0, 0}, val.Bytes())

	val, err = ValueOf(MustTypeOf("bytes32"), common.HexToHash("0x01"))
	assert.NoError(t, err)
	assert.Equal(t, common.HexToHash("0x01").Bytes(), val.Bytes())

	val, err = ValueOf(MustTypeOf("bytes"), hexutil.Bytes{0xaa})
	assert.NoError(t, err)
	assert.Equal(t, "0xaa", val.Interface())

	val, err = ValueOf(MustTypeOf("bytes"), "")
	assert.NoError(t, err)
	assert.Equal(t, 0, len(val.Bytes()))

	_, err = ValueOf(MustTypeOf("bytes2"), "0x010203")
	assertErrorCode(t, ErrorCodeValueOutOfRange, err)
	_, err = ValueOf(MustTypeOf("bytes"), "0x123")
	assertErrorCode(t, ErrorCodeTypeMismatch, err)
}

func Test_ValueOfAddress(t *testing.T) {
	typ := MustTypeOf("address")
	for _, v := range []interface{}{testAddress, &testAddress, testAddress.Hex(), [20]byte(testAddress), testAddress.Bytes()} {
		val, err := ValueOf(typ, v)
		if assert.NoError(t, err, "%T", v) {
			assert.Equal(t, testAddress, val.Address())
		}
	}
	for _, v := range []interface{}{"0x1234", []byte{1, 2}, 1} {
		_, err := ValueOf(typ, v)
		assertErrorCode(t, ErrorCodeTypeMismatch, err)
	}
}

type testItem struct {
	ID    *big.Int       `json:"id"`
	Owner common.Address `json:"owner"`
	Note  string
}

func Test_ValueOfTuple(t *testing.T) {
	typ, err := NewType("tuple", []Parameter{
		{Name: "id", Type: "uint256"},
		{Name: "owner", Type: "address"},
		{Name: "note", Type: "string"},
	})
	assert.NoError(t, err)

	fromStruct, err := ValueOf(typ, &testItem{ID: big.NewInt(3), Owner: testAddress, Note: "n"})
	assert.NoError(t, err)
	fromMap, err := ValueOf(typ, map[string]interface{}{"id": 3, "owner": testAddress.Hex(), "note": "n"})
	assert.NoError(t, err)
	fromList, err := ValueOf(typ, []interface{}{"3", testAddress, "n"})
	assert.NoError(t, err)
	assert.True(t, fromStruct.Equal(fromMap))
	assert.True(t, fromStruct.Equal(fromList))

	_, err = ValueOf(typ, map[string]interface{}{"id": 3})
	assertErrorCode(t, ErrorCodeTypeMismatch, err)
	_, err = ValueOf(typ, []interface{}{3})
	assertErrorCode(t, ErrorCodeTypeMismatch, err)
	_, err = ValueOf(typ, (*testItem)(nil))
	assertErrorCode(t, ErrorCodeTypeMismatch, err)
}

func Test_ValueOfJSON(t *testing.T) {
	ps := params("uint256", "bool", "(int8,bytes)[]", "string")
	var args []interface{}
	err := json.Unmarshal([]byte(`["0x10", true, [[-1, "0x01"], [2, ""]], "s"]`), &args)
	assert.NoError(t, err)
	vs, err := ValuesOf(ps, args...)
	assert.NoError(t, err)
	b, err := json.Marshal(vs)
	assert.NoError(t, err)
	assert.JSONEq(t, `["16", true, [["-1", "0x01"], ["2", "0x"]], "s"]`, string(b))

	_, err = ValuesOf(ps, args[:2]...)
	assertErrorCode(t, ErrorCodeArgumentCountMismatch, err)
}

func Test_ValueConstructors(t *testing.T) {
	_, err := Uint(7, big.NewInt(1))
	assertErrorCode(t, ErrorCodeInvalidTypeSyntax, err)
	_, err = Uint(8, big.NewInt(256))
	assertErrorCode(t, ErrorCodeValueOutOfRange, err)
	v, err := Int(16, big.NewInt(-32768))
	assert.NoError(t, err)
	assert.Equal(t, "int16", v.Type().String())
	_, err = FixedBytes(make([]byte, 33))
	assertErrorCode(t, ErrorCodeValueOutOfRange, err)
	_, err = Array(MustTypeOf("bool[2]"), Bool(true))
	assertErrorCode(t, ErrorCodeTypeMismatch, err)
	_, err = Tuple(MustTypeOf("(bool,uint8)"), Bool(true), Uint64(1000))
	assertErrorCode(t, ErrorCodeValueOutOfRange, err)
	tv, err := Tuple(MustTypeOf("(bool,uint8)"), Bool(true), Uint64(10))
	assert.NoError(t, err)
	assert.Equal(t, "(true,10)", tv.String())
	assert.Equal(t, []interface{}{true, "10"}, tv.Interface())
}

func Test_ValueOfInvalidUtf8(t *testing.T) {
	typ := MustTypeOf("string")
	_, err := ValueOf(typ, []byte{0xc3, 0x28})
	assertErrorCode(t, ErrorCodeInvalidUtf8, err)
	_, err = ValueOf(typ, "\xc3\x28")
	assertErrorCode(t, ErrorCodeInvalidUtf8, err)

	_, err = Encode(params("string"), []Value{String("\xc3\x28")})
	assertErrorCode(t, ErrorCodeInvalidUtf8, err)
	_, err = EncodePacked(params("string"), []Value{String("\xc3\x28")})
	assertErrorCode(t, ErrorCodeInvalidUtf8, err)

	v, err := ValueOf(typ, []byte("héllo"))
	assert.NoError(t, err)
	b, err := Encode(params("string"), []Value{v})
	assert.NoError(t, err)
	vs, err := Decode(params("string"), b)
	assert.NoError(t, err)
	assert.Equal(t, "héllo", vs[0].Interface())
}
