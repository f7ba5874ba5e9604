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
	"strings"
	"testing"

	ethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/stretchr/testify/assert"
)

var (
	testAddress = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
)

// words joins hex encoded 32 bytes words.
func words(l ...string) []byte {
	return hexutil.MustDecode("0x" + strings.Join(l, ""))
}

func word(n uint64) string {
	return common.BigToHash(new(big.Int).SetUint64(n)).Hex()[2:]
}

func params(types ...string) Parameters {
	b := NewParameterBuilder()
	for _, t := range types {
		b.Add("", t)
	}
	ps, err := b.Build()
	if err != nil {
		panic(err)
	}
	return ps
}

func mustValue(t *testing.T, typ string, v interface{}) Value {
	val, err := ValueOf(MustTypeOf(typ), v)
	if err != nil {
		assert.FailNow(t, "fail to ValueOf", "type:%s err:%+v", typ, err)
	}
	return val
}

func ethArguments(t *testing.T, types ...string) ethabi.Arguments {
	args := make(ethabi.Arguments, len(types))
	for i, s := range types {
		typ, err := ethabi.NewType(s, "", nil)
		if err != nil {
			assert.FailNow(t, "fail to ethabi.NewType", err.Error())
		}
		args[i] = ethabi.Argument{Type: typ}
	}
	return args
}

func Test_EncodeScalars(t *testing.T) {
	b32, err := FixedBytes([]byte("ab"))
	assert.NoError(t, err)
	ps := params("uint8", "bytes32", "int8", "bool", "address")
	b, err := Encode(ps, []Value{Uint64(1), b32, Int64(-1), Bool(true), Address(testAddress)})
	assert.NoError(t, err)
	assert.Equal(t, words(
		word(1),
		"6162000000000000000000000000000000000000000000000000000000000000",
		"ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff",
		word(1),
		"0000000000000000000000005fbdb2315678afecb367f032d93f642f64180aa3",
	), b)
}

func Test_EncodeDynamicArray(t *testing.T) {
	ps := params("uint256[]")
	v, err := Array(MustTypeOf("uint256[]"), Uint64(1), Uint64(2), Uint64(3))
	assert.NoError(t, err)
	b, err := Encode(ps, []Value{v})
	assert.NoError(t, err)
	assert.Equal(t, words(word(0x20), word(3), word(1), word(2), word(3)), b)

	sel, err := SelectorOf("f", ps)
	assert.NoError(t, err)
	data := append(sel.Bytes(), b...)
	assert.Equal(t, 4+5*32, len(data))
}

// Test_EncodeSolidityExample checks the example of the Solidity ABI
// documentation: f(uint256,uint32[],bytes10,bytes)
// with (0x123, [0x456, 0x789], "1234567890", "Hello, world!").
func Test_EncodeSolidityExample(t *testing.T) {
	ps := params("uint256", "uint32[]", "bytes10", "bytes")
	b, err := EncodeArgs(ps, 0x123, []uint32{0x456, 0x789}, []byte("1234567890"), []byte("Hello, world!"))
	assert.NoError(t, err)
	assert.Equal(t, words(
		word(0x123),
		word(0x80),
		"3132333435363738393000000000000000000000000000000000000000000000",
		word(0xe0),
		word(2),
		word(0x456),
		word(0x789),
		word(13),
		"48656c6c6f2c20776f726c642100000000000000000000000000000000000000",
	), b)
	sel, err := SelectorOf("f", ps)
	assert.NoError(t, err)
	assert.Equal(t, "0x8be65246", sel.String())
}

// Test_EncodeNestedDynamic checks g(uint256[][],string[]) with
// ([[1, 2], [3]], ["one", "two", "three"]) of the Solidity documentation.
func Test_EncodeNestedDynamic(t *testing.T) {
	ps := params("uint256[][]", "string[]")
	b, err := EncodeArgs(ps, [][]int{{1, 2}, {3}}, []string{"one", "two", "three"})
	assert.NoError(t, err)
	expected := words(
		word(0x40), word(0x140),
		word(2), word(0x40), word(0xa0),
		word(2), word(1), word(2),
		word(1), word(3),
		word(3), word(0x60), word(0xa0), word(0xe0),
		word(3), "6f6e650000000000000000000000000000000000000000000000000000000000",
		word(3), "74776f0000000000000000000000000000000000000000000000000000000000",
		word(5), "7468726565000000000000000000000000000000000000000000000000000000",
	)
	assert.Equal(t, expected, b)
}

func Test_EncodeOrder(t *testing.T) {
	ps := Parameters{
		{Name: "amount", Type: "uint256", Order: 2},
		{Name: "to", Type: "address", Order: 1},
	}
	b, err := Encode(ps, []Value{Uint64(7), Address(testAddress)})
	assert.NoError(t, err)
	assert.Equal(t, words(
		"0000000000000000000000005fbdb2315678afecb367f032d93f642f64180aa3",
		word(7),
	), b)

	vs, err := Decode(ps, b)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(vs))
	assert.Equal(t, "7", vs[0].BigInt().String())
	assert.Equal(t, testAddress, vs[1].Address())
}

func Test_EncodeTuple(t *testing.T) {
	components := Parameters{
		{Name: "id", Type: "uint256", Order: 1},
		{Name: "tags", Type: "string[]", Order: 2},
		{Name: "owner", Type: "address", Order: 3},
	}
	ps := Parameters{
		{Name: "flag", Type: "bool", Order: 1},
		{Name: "item", Type: "tuple", Order: 2, Components: components},
	}
	item := map[string]interface{}{
		"id":    "0x10",
		"tags":  []interface{}{"a", "bc"},
		"owner": testAddress.Hex(),
	}
	b, err := EncodeArgs(ps, true, item)
	assert.NoError(t, err)
	assert.Equal(t, words(
		word(1), word(0x40),
		word(0x10), word(0x60), "0000000000000000000000005fbdb2315678afecb367f032d93f642f64180aa3",
		word(2), word(0x40), word(0x80),
		word(1), "6100000000000000000000000000000000000000000000000000000000000000",
		word(2), "6263000000000000000000000000000000000000000000000000000000000000",
	), b)

	vs, err := Decode(ps, b)
	assert.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"id":    "16",
		"tags":  []interface{}{"a", "bc"},
		"owner": testAddress.Hex(),
	}, vs[1].Interface())
}

func Test_EncodeEmptyValues(t *testing.T) {
	b, err := EncodeArgs(params("bytes", "string", "uint256[]"), []byte{}, "", []int{})
	assert.NoError(t, err)
	assert.Equal(t, words(word(0x60), word(0x80), word(0xa0), word(0), word(0), word(0)), b)

	b, err = Encode(Parameters{}, []Value{})
	assert.NoError(t, err)
	assert.Equal(t, 0, len(b))
}

func Test_EncodeErrors(t *testing.T) {
	_, err := Encode(params("uint256", "bool"), []Value{Uint64(1)})
	assertErrorCode(t, ErrorCodeArgumentCountMismatch, err)

	_, err = Encode(params("uint256"), []Value{Bool(true)})
	assertErrorCode(t, ErrorCodeTypeMismatch, err)

	_, err = Encode(params("uint8"), []Value{Uint64(256)})
	assertErrorCode(t, ErrorCodeValueOutOfRange, err)

	_, err = Encode(params("int8"), []Value{Int64(-129)})
	assertErrorCode(t, ErrorCodeValueOutOfRange, err)

	_, err = Encode(params("uint256"), []Value{Int64(-1)})
	assertErrorCode(t, ErrorCodeValueOutOfRange, err)

	b4, err := FixedBytes([]byte("abcd"))
	assert.NoError(t, err)
	_, err = Encode(params("bytes2"), []Value{b4})
	assertErrorCode(t, ErrorCodeValueOutOfRange, err)

	_, err = EncodeArgs(params("uint256[2]"), []int{1, 2, 3})
	assertErrorCode(t, ErrorCodeTypeMismatch, err)

	_, err = Encode(params("bool"), []Value{{}})
	assertErrorCode(t, ErrorCodeTypeMismatch, err)
}

func Test_EncodeIntegerBounds(t *testing.T) {
	max255 := new(big.Int).Sub(new(big.Int).Lsh(big1, 255), big1)
	min255 := new(big.Int).Neg(new(big.Int).Lsh(big1, 255))
	b, err := EncodeArgs(params("int256", "int256", "uint256"), max255, min255, math.MaxBig256)
	assert.NoError(t, err)
	assert.Equal(t, words(
		"7fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff",
		"8000000000000000000000000000000000000000000000000000000000000000",
		"ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff",
	), b)

	_, err = EncodeArgs(params("int256"), new(big.Int).Add(max255, big1))
	assertErrorCode(t, ErrorCodeValueOutOfRange, err)
	_, err = EncodeArgs(params("uint256"), new(big.Int).Add(math.MaxBig256, big1))
	assertErrorCode(t, ErrorCodeValueOutOfRange, err)
}

func Test_EncodeCompatibility(t *testing.T) {
	types := []string{"uint8", "int16", "uint256[]", "bytes", "string[2]", "address[]", "bool[2][]", "bytes32"}
	var b32 [32]byte
	copy(b32[:], "hello")
	goArgs := []interface{}{
		uint8(200),
		int16(-300),
		[]*big.Int{big.NewInt(1), big.NewInt(1 << 40)},
		[]byte{0xde, 0xad, 0xbe, 0xef},
		[2]string{"x", "a longer string which needs more than one word to be encoded"},
		[]common.Address{testAddress, {}},
		[][2]bool{{true, false}, {false, true}, {true, true}},
		b32,
	}
	expected, err := ethArguments(t, types...).Pack(goArgs...)
	if !assert.NoError(t, err) {
		return
	}
	ps := params(types...)
	actual, err := EncodeArgs(ps, goArgs...)
	assert.NoError(t, err)
	assert.Equal(t, expected, actual)

	vs, err := Decode(ps, expected)
	assert.NoError(t, err)
	again, err := Encode(ps, vs)
	assert.NoError(t, err)
	assert.Equal(t, expected, again)
}
