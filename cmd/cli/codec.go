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

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/icon-project/btp2/common/cli"
	"github.com/icon-project/btp2/common/errors"
	"github.com/spf13/cobra"

	"github.com/icon-project/abi-sdk/abi"
	"github.com/icon-project/abi-sdk/api"
)

// isSignature returns true for "name(...)", false for type lists like
// "(uint256,string)" or "uint256,bool".
func isSignature(s string) bool {
	s = strings.TrimSpace(s)
	idx := strings.IndexByte(s, '(')
	if idx <= 0 {
		return false
	}
	for i, c := range s[:idx] {
		switch {
		case c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
		case i > 0 && c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}

// ArgsOf converts command line arguments for params. Arrays and tuples are
// given as JSON, others as plain text.
func ArgsOf(params abi.Parameters, args []string) ([]interface{}, error) {
	types, err := params.Types()
	if err != nil {
		return nil, err
	}
	if len(types) != len(args) {
		return nil, abi.ErrorCodeArgumentCountMismatch.Errorf(
			"argument count mismatch expected:%d actual:%d", len(types), len(args))
	}
	ret := make([]interface{}, len(args))
	for i, t := range types {
		if t.Kind < abi.ArrayKind {
			ret[i] = args[i]
			continue
		}
		d := json.NewDecoder(bytes.NewBufferString(args[i]))
		d.UseNumber()
		if err = d.Decode(&ret[i]); err != nil {
			return nil, abi.ErrorCodeTypeMismatch.Wrapf(err,
				"invalid json for %s arg:%q err:%s", t, args[i], err.Error())
		}
	}
	return ret, nil
}

func NewCodecCommands(parentCmd *cobra.Command) {
	parentCmd.AddCommand(&cobra.Command{
		Use:   "selector SIGNATURE",
		Short: "Print canonical signature, selector and topic",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, params, err := abi.ParseSignature(args[0])
			if err != nil {
				return err
			}
			r, err := api.NewSignatureResponse(name, params)
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, r)
		},
	})

	encodeCmd := &cobra.Command{
		Use:   "encode SIGNATURE|TYPES [VALUE...]",
		Short: "Encode values, with selector if SIGNATURE is given and not packed",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			packed, err := cmd.Flags().GetBool("packed")
			if err != nil {
				return err
			}
			req := &api.EncodeRequest{Packed: packed}
			var params abi.Parameters
			if isSignature(args[0]) {
				req.Signature = args[0]
				_, params, err = abi.ParseSignature(args[0])
			} else {
				req.Types = args[0]
				params, err = abi.ParseParameters(args[0])
			}
			if err != nil {
				return err
			}
			if req.Values, err = ArgsOf(params, args[1:]); err != nil {
				return err
			}
			b, err := req.Encode()
			if err != nil {
				return err
			}
			cmd.Println(hexutil.Encode(b))
			return nil
		},
	}
	encodeCmd.Flags().Bool("packed", false, "non-standard packed mode")
	parentCmd.AddCommand(encodeCmd)

	parentCmd.AddCommand(&cobra.Command{
		Use:   "decode SIGNATURE|TYPES HEX",
		Short: "Decode data, the selector is stripped if SIGNATURE is given",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := hexutil.Decode(args[1])
			if err != nil {
				return errors.IllegalArgumentError.Wrapf(err, "invalid hex err:%s", err.Error())
			}
			req := &api.DecodeRequest{Types: args[0], Data: data}
			if isSignature(args[0]) {
				name, params, err := abi.ParseSignature(args[0])
				if err != nil {
					return err
				}
				id, err := abi.SelectorOf(name, params)
				if err != nil {
					return err
				}
				if !bytes.HasPrefix(data, id.Bytes()) {
					return errors.IllegalArgumentError.Errorf("selector mismatch expected:%s", id)
				}
				req.Types = ""
				req.Outputs = params
				req.Data = data[abi.SelectorLength:]
			}
			values, err := req.Decode()
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, values)
		},
	})
}
