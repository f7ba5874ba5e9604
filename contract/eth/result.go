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
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/icon-project/abi-sdk/abi"
	"github.com/icon-project/abi-sdk/contract"
)

func NewTxID(h common.Hash) contract.TxID {
	return h.Hex()
}

type TxResult struct {
	*types.Receipt
	failure *TxFailure
}

func (r *TxResult) Success() bool {
	return r.Status == types.ReceiptStatusSuccessful
}

func (r *TxResult) Failure() interface{} {
	if r.failure == nil {
		return nil
	}
	return r.failure
}

func (r *TxResult) BlockID() contract.BlockID {
	return r.BlockHash.Hex()
}

func (r *TxResult) BlockHeight() int64 {
	if r.BlockNumber == nil {
		return 0
	}
	return r.BlockNumber.Int64()
}

func (r *TxResult) TxID() contract.TxID {
	return NewTxID(r.TxHash)
}

func NewTxResult(txr *types.Receipt, txf *TxFailure) *TxResult {
	return &TxResult{
		Receipt: txr,
		failure: txf,
	}
}

// TxFailure is the error of a call or gas estimation with the revert data
// returned by the node.
type TxFailure struct {
	Message string        `json:"message"`
	Code    int           `json:"code,omitempty"`
	Data    hexutil.Bytes `json:"data,omitempty"`
	Reason  string        `json:"reason,omitempty"`
}

func (f *TxFailure) Error() string {
	if len(f.Reason) > 0 {
		return f.Reason
	}
	return f.Message
}

// NewTxFailure returns nil if err has no revert data.
func NewTxFailure(err error) *TxFailure {
	de, ok := err.(rpc.DataError)
	if !ok {
		return nil
	}
	f := &TxFailure{Message: err.Error()}
	if ec, ok := err.(rpc.Error); ok {
		f.Code = ec.ErrorCode()
	}
	if s, ok := de.ErrorData().(string); ok {
		if b, err := hexutil.Decode(s); err == nil {
			f.Data = b
		}
	}
	if r, err := abi.UnpackRevert(f.Data); err == nil {
		f.Reason = r.String()
	}
	return f
}
