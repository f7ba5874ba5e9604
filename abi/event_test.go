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

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
)

func Test_EventTopics(t *testing.T) {
	c := MustParseJSON([]byte(testABI))
	e := c.Events["Transfer"]
	topics, err := e.Topics(Value{}, Address(testAddress))
	assert.NoError(t, err)
	assert.Equal(t, [][]common.Hash{
		{e.ID()},
		{},
		{common.BytesToHash(testAddress.Bytes())},
	}, topics)

	_, err = e.Topics(Value{}, Value{}, Value{})
	assertErrorCode(t, ErrorCodeArgumentCountMismatch, err)
	_, err = e.Topics(Bool(true))
	assertErrorCode(t, ErrorCodeTypeMismatch, err)

	memo := c.Events["Memo"]
	topics, err = memo.Topics(String("tag"))
	assert.NoError(t, err)
	assert.Equal(t, crypto.Keccak256Hash([]byte("tag")), topics[1][0])
}

func Test_TopicOf(t *testing.T) {
	typ := MustTypeOf("(string,uint8[])")
	v := mustValue(t, "(string,uint8[])", []interface{}{"ab", []int{1}})
	topic, err := TopicOf(typ, v)
	assert.NoError(t, err)
	expected := crypto.Keccak256Hash(words(
		"6162000000000000000000000000000000000000000000000000000000000000",
		word(1),
	))
	assert.Equal(t, expected, topic)

	topic, err = TopicOf(MustTypeOf("int8"), Int64(-1))
	assert.NoError(t, err)
	assert.Equal(t, common.HexToHash("0xffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"), topic)
}

func Test_EventUnpack(t *testing.T) {
	c := MustParseJSON([]byte(testABI))
	e := c.Events["Transfer"]
	to := common.HexToAddress("0x00000000000000000000000000000000000000ff")
	topics := []common.Hash{e.ID(), common.BytesToHash(testAddress.Bytes()), common.BytesToHash(to.Bytes())}
	vs, err := e.Unpack(topics, words(word(5)))
	assert.NoError(t, err)
	assert.Equal(t, testAddress, vs[0].Address())
	assert.Equal(t, to, vs[1].Address())
	assert.Equal(t, int64(5), vs[2].BigInt().Int64())

	m, err := e.UnpackIntoMap(topics, words(word(5)))
	assert.NoError(t, err)
	assert.Equal(t, "5", m["value"].Interface())

	_, err = e.Unpack(topics[1:], words(word(5)))
	assertErrorCode(t, ErrorCodeTypeMismatch, err)
	_, err = e.Unpack(topics[:2], words(word(5)))
	assertErrorCode(t, ErrorCodeArgumentCountMismatch, err)
	_, err = e.Unpack(topics, nil)
	assertErrorCode(t, ErrorCodeBufferTooShort, err)

	memo := c.Events["Memo"]
	hash := crypto.Keccak256Hash([]byte("tag"))
	vs, err = memo.Unpack([]common.Hash{memo.ID(), hash}, words(word(0x20), word(1),
		"7800000000000000000000000000000000000000000000000000000000000000"))
	assert.NoError(t, err)
	assert.Equal(t, "bytes32", vs[0].Type().String())
	assert.Equal(t, hash.Bytes(), vs[0].Bytes())
	assert.Equal(t, "x", vs[1].Text())
}

func Test_AnonymousEvent(t *testing.T) {
	e, err := NewEvent("Log", "Log", true, Parameters{
		{Name: "a", Type: "uint256", Indexed: true, Order: 1},
		{Name: "b", Type: "uint256", Indexed: true, Order: 2},
		{Name: "c", Type: "uint256", Indexed: true, Order: 3},
		{Name: "d", Type: "uint256", Indexed: true, Order: 4},
	})
	assert.NoError(t, err)
	topics, err := e.Topics()
	assert.NoError(t, err)
	assert.Equal(t, 0, len(topics))
	vs, err := e.Unpack([]common.Hash{
		common.BigToHash(common.Big1), common.BigToHash(common.Big2),
		common.BigToHash(common.Big3), common.BigToHash(common.Big32)}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(32), vs[3].BigInt().Int64())
}
