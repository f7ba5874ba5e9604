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

package api

import (
	"fmt"
	"sort"
	"strings"

	"github.com/icon-project/btp2/common/log"

	"github.com/icon-project/abi-sdk/abi"
	"github.com/icon-project/abi-sdk/contract"
)

// ContractService binds a contract handler to a network under a name.
type ContractService struct {
	name    string
	network string
	a       contract.Adaptor
	h       contract.Handler
	l       log.Logger
}

func NewContractService(a contract.Adaptor, abiJSON []byte, address contract.Address, network, name string, l log.Logger) (*ContractService, error) {
	h, err := a.Handler(abiJSON, address)
	if err != nil {
		return nil, err
	}
	if len(name) == 0 {
		name = ContractServiceName(network, h.Address())
	}
	return &ContractService{
		name:    name,
		network: network,
		a:       a,
		h:       h,
		l:       l,
	}, nil
}

func ContractServiceName(network string, address contract.Address) string {
	return fmt.Sprintf("%s|%s", network, strings.ToLower(string(address)))
}

func (s *ContractService) Name() string {
	return s.name
}

func (s *ContractService) Network() string {
	return s.network
}

func (s *ContractService) Address() contract.Address {
	return s.h.Address()
}

func (s *ContractService) Invoke(method string, params contract.Params, options contract.Options) (contract.TxID, error) {
	return s.h.Invoke(method, params, options)
}

func (s *ContractService) Call(method string, params contract.Params, options contract.Options) (contract.ReturnValue, error) {
	return s.h.Call(method, params, options)
}

func (s *ContractService) Events(id contract.TxID) ([]*contract.Event, error) {
	txr, err := s.a.GetResult(id)
	if err != nil {
		return nil, err
	}
	return s.h.Events(txr)
}

// Method returns the method by raw name or by key of an overload.
func (s *ContractService) Method(name string) (*abi.Method, error) {
	c := s.h.Contract()
	if m, ok := c.Methods[name]; ok {
		return m, nil
	}
	for _, m := range c.Methods {
		if m.RawName == name {
			return m, nil
		}
	}
	return nil, contract.ErrorCodeNotFoundMethod.Errorf("not found method:%s", name)
}

type MethodInfo struct {
	Name      string         `json:"name"`
	Signature string         `json:"signature"`
	Selector  abi.Selector   `json:"selector"`
	Readonly  bool           `json:"readonly"`
	Payable   bool           `json:"payable"`
	Inputs    abi.Parameters `json:"inputs"`
	Outputs   abi.Parameters `json:"outputs"`
}

type MethodInfos []MethodInfo

func (s *ContractService) MethodInfos() MethodInfos {
	c := s.h.Contract()
	l := make(MethodInfos, 0, len(c.Methods))
	for _, m := range c.Methods {
		l = append(l, MethodInfo{
			Name:      m.Name,
			Signature: m.Sig(),
			Selector:  m.ID(),
			Readonly:  m.IsConstant(),
			Payable:   m.IsPayable(),
			Inputs:    m.Inputs,
			Outputs:   m.Outputs,
		})
	}
	sort.Slice(l, func(i, j int) bool {
		return l[i].Name < l[j].Name
	})
	return l
}
