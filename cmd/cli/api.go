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
	"encoding/json"
	"os"

	"github.com/icon-project/btp2/common/cli"
	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"
	"github.com/icon-project/btp2/common/wallet"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/icon-project/abi-sdk/api"
	"github.com/icon-project/abi-sdk/contract"
)

func GetStringToInterface(fs *pflag.FlagSet, name string) (map[string]interface{}, error) {
	m, err := fs.GetStringToString(name)
	if err != nil {
		return nil, err
	}
	r := make(map[string]interface{})
	for k, v := range m {
		r[k] = v
	}
	return r, nil
}

func ReadAndUnmarshal(file string, v interface{}) error {
	b, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func NewSigner(keystore, secret string) (api.Signer, error) {
	ks, err := os.ReadFile(keystore)
	if err != nil {
		return nil, err
	}
	pw, err := os.ReadFile(secret)
	if err != nil {
		return nil, err
	}
	w, err := wallet.DecryptKeyStore(ks, pw)
	if err != nil {
		return nil, errors.Wrapf(err, "fail to DecryptKeyStore err:%s", err.Error())
	}
	return w, nil
}

func ClientPersistentPreRunE(vc *viper.Viper, c *api.Client) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := cli.ValidateFlagsWithViper(vc, cmd.Flags()); err != nil {
			return err
		}
		l := log.GlobalLogger()
		if lv, err := log.ParseLevel(vc.GetString("log_level")); err != nil {
			return errors.Wrapf(err, "fail to parseLevel log_level err:%s", err.Error())
		} else {
			l.SetLevel(lv)
		}
		if lv, err := log.ParseLevel(vc.GetString("console_level")); err != nil {
			return errors.Wrapf(err, "fail to parseLevel console_level err:%s", err.Error())
		} else {
			l.SetConsoleLevel(lv)
		}
		dumpLogLevel, err := log.ParseLevel(vc.GetString("dump_log_level"))
		if err != nil {
			return errors.Wrapf(err, "fail to parseLevel dump_log_level err:%s", err.Error())
		} else {
			dumpLogLevel = contract.EnsureTransportLogLevel(dumpLogLevel)
		}
		*c = *api.NewClient(vc.GetString("url"), dumpLogLevel, l)
		return nil
	}
}

func AddClientRequiredFlags(c *cobra.Command) {
	pFlags := c.PersistentFlags()
	pFlags.String("url", "http://localhost:8080", "server address")
	pFlags.String("log_level", "debug", "Global log level (trace,debug,info,warn,error,fatal,panic)")
	pFlags.String("console_level", "trace", "Console log level (trace,debug,info,warn,error,fatal,panic)")
	pFlags.String("dump_log_level", "trace", "client dump log level (trace,debug,info)")
}

func NewApiCommand(parentCmd *cobra.Command, parentVc *viper.Viper) (*cobra.Command, *viper.Viper) {
	rootCmd, rootVc := cli.NewCommand(parentCmd, parentVc, "api", "Contract API cli")
	var (
		c       api.Client
		network string
	)
	persistentPreRunE := ClientPersistentPreRunE(rootVc, &c)
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := persistentPreRunE(cmd, args); err != nil {
			return err
		}
		network = rootVc.GetString("network")
		return nil
	}
	AddClientRequiredFlags(rootCmd)
	rootCmd.PersistentFlags().String("network", "", "network name")
	cli.BindPFlags(rootVc, rootCmd.PersistentFlags())

	rootCmd.AddCommand(&cobra.Command{
		Use:   "networks",
		Short: "Get list of network information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.NetworkInfos()
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, r)
		},
	})
	requireNetwork := func(cmd *cobra.Command, args []string) error {
		if len(network) == 0 {
			return errors.New("require network")
		}
		return nil
	}
	rootCmd.AddCommand(&cobra.Command{
		Use:     "services",
		Short:   "Get list of contract service information",
		Args:    cobra.NoArgs,
		PreRunE: requireNetwork,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.ServiceInfos(network)
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, r)
		},
	})
	registerCmd := &cobra.Command{
		Use:     "register",
		Short:   "Register contract service",
		Args:    cobra.NoArgs,
		PreRunE: requireNetwork,
		RunE: func(cmd *cobra.Command, args []string) error {
			abiJSON, err := os.ReadFile(cmd.Flag("contract.abi").Value.String())
			if err != nil {
				return err
			}
			r, err := c.RegisterContractService(network, &api.RegisterContractServiceRequest{
				Name:    cmd.Flag("name").Value.String(),
				Address: contract.Address(cmd.Flag("contract.address").Value.String()),
				ABI:     abiJSON,
			})
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, r)
		},
	}
	rootCmd.AddCommand(registerCmd)
	registerFlags := registerCmd.Flags()
	registerFlags.String("name", "", "service name, default is '{network}|{address}'")
	registerFlags.String("contract.address", "", "contract address")
	registerFlags.String("contract.abi", "", "ABI JSON file")
	cli.MarkAnnotationRequired(registerFlags, "contract.address", "contract.abi")

	rootCmd.AddCommand(&cobra.Command{
		Use:     "result TX_ID",
		Short:   "GetResult",
		Args:    cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(1)),
		PreRunE: requireNetwork,
		RunE: func(cmd *cobra.Command, args []string) error {
			var txr interface{}
			if err := c.GetResult(network, args[0], &txr); err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, txr)
		},
	})

	var svc string
	serviceApiPreRunE := func(cmd *cobra.Command, args []string) error {
		if err := requireNetwork(cmd, args); err != nil {
			return err
		}
		if svc = cmd.Flag("service").Value.String(); len(svc) == 0 {
			return errors.New("require service")
		}
		return nil
	}
	addServiceFlag := func(cmd *cobra.Command) *cobra.Command {
		cmd.Flags().String("service", "", "service name or contract address")
		return cmd
	}
	rootCmd.AddCommand(addServiceFlag(&cobra.Command{
		Use:     "methods",
		Short:   "Get list of method information",
		Args:    cobra.NoArgs,
		PreRunE: serviceApiPreRunE,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.MethodInfos(network, svc)
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, r)
		},
	}))
	rootCmd.AddCommand(addServiceFlag(&cobra.Command{
		Use:     "events TX_ID",
		Short:   "Get events of the contract in the transaction",
		Args:    cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(1)),
		PreRunE: serviceApiPreRunE,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.Events(network, svc, args[0])
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, r)
		},
	}))

	var (
		method string
		req    = &api.Request{}
	)
	newMethodApiCommand := func(use, short string) *cobra.Command {
		cmd := addServiceFlag(&cobra.Command{
			Use:   use + " METHOD",
			Short: short,
			Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(1)),
			PreRunE: func(cmd *cobra.Command, args []string) error {
				if err := serviceApiPreRunE(cmd, args); err != nil {
					return err
				}
				method = args[0]
				var (
					fs  = cmd.Flags()
					err error
				)
				if raw := cmd.Flag("raw").Value.String(); len(raw) > 0 {
					if err = ReadAndUnmarshal(raw, req); err != nil {
						return err
					}
				}
				if fs.Changed("param") {
					if req.Params, err = GetStringToInterface(fs, "param"); err != nil {
						return err
					}
				}
				if fs.Changed("option") {
					if req.Options, err = GetStringToInterface(fs, "option"); err != nil {
						return err
					}
				}
				return nil
			},
		})
		fs := cmd.Flags()
		fs.StringToString("param", nil,
			"key=value, Function parameters, if '--raw' used, will overwrite")
		fs.StringToString("option", nil,
			"key=value, Call options, if '--raw' used, will overwrite")
		fs.String("raw", "", "json file of request with 'params' and 'options'")
		return cmd
	}

	callCmd := newMethodApiCommand("call", "Call")
	callCmd.RunE = func(cmd *cobra.Command, args []string) error {
		var resp interface{}
		if err := c.Call(network, svc, method, req, &resp); err != nil {
			return err
		}
		if err := cli.JsonPrettyPrintln(os.Stdout, resp); err != nil {
			return errors.Errorf("failed JsonIntend resp=%+v, err=%+v", resp, err)
		}
		return nil
	}
	rootCmd.AddCommand(callCmd)

	invokeCmd := newMethodApiCommand("invoke", "Invoke")
	invokeCmd.RunE = func(cmd *cobra.Command, args []string) error {
		var s api.Signer
		if keystore := cmd.Flag("keystore").Value.String(); len(keystore) > 0 {
			var err error
			if s, err = NewSigner(keystore, cmd.Flag("secret").Value.String()); err != nil {
				return err
			}
		}
		txID, err := c.Invoke(network, svc, method, req, s)
		if err != nil {
			if er, ok := err.(*api.ErrorResponse); ok && contract.ErrorCodeRequireSignature.Equals(er) {
				rse := &api.RequireSignatureError{}
				if err = er.UnmarshalData(rse); err != nil {
					return err
				}
				return cli.JsonPrettyPrintln(os.Stdout, rse)
			}
			return err
		}
		if err = cli.JsonPrettyPrintln(os.Stdout, txID); err != nil {
			return errors.Errorf("failed JsonIntend resp=%+v, err=%+v", txID, err)
		}
		return nil
	}
	rootCmd.AddCommand(invokeCmd)
	invokeFlags := invokeCmd.Flags()
	invokeFlags.String("keystore", "", "keystore file path, without it prints the hash to sign")
	invokeFlags.String("secret", "", "secret file path")
	return rootCmd, rootVc
}
