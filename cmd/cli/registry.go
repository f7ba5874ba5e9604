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
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/icon-project/btp2/common/cli"
	"github.com/icon-project/btp2/common/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/icon-project/abi-sdk/abi"
	"github.com/icon-project/abi-sdk/api"
	"github.com/icon-project/abi-sdk/database"
	"github.com/icon-project/abi-sdk/registry"
)

func decodeHex(s string) ([]byte, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return nil, errors.IllegalArgumentError.Wrapf(err, "invalid hex:%s err:%s", s, err.Error())
	}
	return b, nil
}

func NewRegistryCommand(parentCmd *cobra.Command, parentVc *viper.Viper) (*cobra.Command, *viper.Viper) {
	rootCmd, rootVc := cli.NewCommand(parentCmd, parentVc, "registry", "Signature registry cli")
	var c api.Client
	rootCmd.PersistentPreRunE = ClientPersistentPreRunE(rootVc, &c)
	AddClientRequiredFlags(rootCmd)
	cli.BindPFlags(rootVc, rootCmd.PersistentFlags())

	registerCmd := &cobra.Command{
		Use:   "register [SIGNATURE]",
		Short: "Register a signature, or every signature of the ABI JSON file",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &api.RegisterRequest{}
			if len(args) > 0 {
				req.Signature = args[0]
			} else if f := cmd.Flag("abi").Value.String(); len(f) > 0 {
				b, err := os.ReadFile(f)
				if err != nil {
					return err
				}
				req.ABI = b
			} else {
				return errors.New("require SIGNATURE or abi")
			}
			r, err := c.Register(req)
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, r)
		},
	}
	registerCmd.Flags().String("abi", "", "ABI JSON file")
	rootCmd.AddCommand(registerCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "selector SELECTOR",
		Short: "Lookup signatures by 4-byte selector",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id abi.Selector
			if err := id.UnmarshalText([]byte(args[0])); err != nil {
				return errors.IllegalArgumentError.Wrapf(err, "invalid selector err:%s", err.Error())
			}
			r, err := c.LookupSelector(id)
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, r)
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "topic TOPIC",
		Short: "Lookup event signatures by topic",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := decodeHex(args[0])
			if err != nil {
				return err
			}
			r, err := c.LookupTopic(common.BytesToHash(b))
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, r)
		},
	})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Get page of registered signatures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fs := cmd.Flags()
			p := database.Pageable{}
			var err error
			if p.Page, err = fs.GetUint("page"); err != nil {
				return err
			}
			if p.Size, err = fs.GetUint("size"); err != nil {
				return err
			}
			if p.Sort, err = fs.GetString("sort"); err != nil {
				return err
			}
			kind, err := fs.GetString("kind")
			if err != nil {
				return err
			}
			r, err := c.Signatures(p, registry.Kind(kind))
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, r)
		},
	}
	listFlags := listCmd.Flags()
	listFlags.Uint("page", 0, "page, 0-indexed")
	listFlags.Uint("size", 20, "page size")
	listFlags.String("sort", "", "for example 'canonical desc'")
	listFlags.String("kind", "", "function, event or error")
	rootCmd.AddCommand(listCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "calldata HEX",
		Short: "Decode call data with registered signatures",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := decodeHex(args[0])
			if err != nil {
				return err
			}
			r, err := c.DecodeCallData(b)
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, r)
		},
	})
	logCmd := &cobra.Command{
		Use:   "log TOPIC... ",
		Short: "Decode event log with registered signatures",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.RangeArgs(1, 4)),
		RunE: func(cmd *cobra.Command, args []string) error {
			topics := make([]common.Hash, len(args))
			for i, arg := range args {
				b, err := decodeHex(arg)
				if err != nil {
					return err
				}
				topics[i] = common.BytesToHash(b)
			}
			data, err := decodeHex(cmd.Flag("data").Value.String())
			if err != nil {
				return err
			}
			r, err := c.DecodeLog(topics, data)
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, r)
		},
	}
	logCmd.Flags().String("data", "0x", "data of the log")
	rootCmd.AddCommand(logCmd)
	return rootCmd, rootVc
}
