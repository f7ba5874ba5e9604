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
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
)

func Test_EncodePacked(t *testing.T) {
	// abi.encodePacked(int16(-1), bytes1(0x42), uint16(0x03), string("Hello, world!"))
	b, err := EncodePacked(params("int16", "bytes1", "uint16", "string"),
		[]Value{mustValue(t, "int16", -1), mustValue(t, "bytes1", "0x42"), Uint64(3), String("Hello, world!")})
	assert.NoError(t, err)
	assert.Equal(t, "0xffff42000348656c6c6f2c20776f726c6421", hexutil.Encode(b))
}

func Test_EncodePackedWidths(t *testing.T) {
	b, err := EncodePacked(params("bool", "address", "uint8[]", "bytes", "(uint8,bytes2)"),
		[]Value{
			Bool(true),
			Address(testAddress),
			mustValue(t, "uint8[]", []int{1, 2}),
			Bytes([]byte{0xca, 0xfe}),
			mustValue(t, "(uint8,bytes2)", []interface{}{7, "0x0102"}),
		})
	assert.NoError(t, err)
	expected := "0x01" +
		"5fbdb2315678afecb367f032d93f642f64180aa3" +
		word(1) + word(2) +
		"cafe" +
		"07" + "0102"
	assert.Equal(t, expected, hexutil.Encode(b))
}

func Test_EncodePackedAmbiguous(t *testing.T) {
	for _, typ := range []string{
		"string[]", "bytes[2]", "uint8[2][]", "(uint8,bool)[]",
		"(uint256,(bool,bool))", "(uint256,string)", "(uint256,uint8[])",
	} {
		ps := params(typ)
		_, err := EncodePacked(ps, []Value{{t: MustTypeOf(typ)}})
		assertErrorCode(t, ErrorCodeAmbiguousPackedEncoding, err)
	}

	// a static array inside a tuple keeps the element padding
	b, err := EncodePacked(params("(uint8,uint8[2])"), []Value{mustValue(t, "(uint8,uint8[2])", []interface{}{1, []int{2, 3}})})
	assert.NoError(t, err)
	assert.Equal(t, "0x01"+word(2)+word(3), hexutil.Encode(b))
}

func Test_EncodePackedErrors(t *testing.T) {
	_, err := EncodePacked(params("uint8"), []Value{})
	assertErrorCode(t, ErrorCodeArgumentCountMismatch, err)
	_, err = EncodePacked(params("uint8"), []Value{Uint64(300)})
	assertErrorCode(t, ErrorCodeValueOutOfRange, err)
	_, err = EncodePacked(params("address"), []Value{Bool(true)})
	assertErrorCode(t, ErrorCodeTypeMismatch, err)
}
