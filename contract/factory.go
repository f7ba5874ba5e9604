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

package contract

import (
	"encoding/json"
	"sort"

	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"

	"github.com/icon-project/abi-sdk/abi"
)

type Params map[string]interface{}
type ReturnValue interface{}
type TxID interface{}
type BlockID interface{}

type TxResult interface {
	Success() bool
	Failure() interface{}
	BlockID() BlockID
	BlockHeight() int64
	TxID() TxID
}

// Event is a log entry decoded with the ABI of the emitting contract.
type Event struct {
	Address     Address `json:"address"`
	Name        string  `json:"name"`
	Signature   string  `json:"signature"`
	Params      Params  `json:"params"`
	BlockHeight int64   `json:"blockHeight"`
	TxID        TxID    `json:"txId"`
	Index       uint    `json:"index"`
}

type Handler interface {
	Invoke(method string, params Params, options Options) (TxID, error)
	Call(method string, params Params, options Options) (ReturnValue, error)
	Events(r TxResult) ([]*Event, error)
	Contract() *abi.Contract
	Address() Address
}

type Adaptor interface {
	NetworkType() string
	GetResult(id TxID) (TxResult, error)
	Handler(abiJSON []byte, address Address) (Handler, error)
}

type Options map[string]interface{}
type AdaptorFactory func(networkType string, endpoint string, opt Options, l log.Logger) (Adaptor, error)

var (
	afMap = make(map[string]AdaptorFactory)
)

func RegisterAdaptorFactory(cf AdaptorFactory, networkTypes ...string) {
	for _, networkType := range networkTypes {
		if _, ok := afMap[networkType]; ok {
			log.Panicln("already registered networkType:" + networkType)
		}
		afMap[networkType] = cf
	}
}

func NewAdaptor(networkType string, endpoint string, opt Options, l log.Logger) (Adaptor, error) {
	if cf, ok := afMap[networkType]; ok {
		l = l.WithFields(log.Fields{log.FieldKeyChain: networkType, log.FieldKeyModule: "contract"})
		return cf(networkType, endpoint, opt, l)
	}
	return nil, errors.IllegalArgumentError.New("not supported networkType:" + networkType)
}

// NetworkTypes returns the registered network types in ascending order.
func NetworkTypes() []string {
	l := make([]string, 0, len(afMap))
	for networkType := range afMap {
		l = append(l, networkType)
	}
	sort.Strings(l)
	return l
}

func EncodeOptions(v interface{}) (Options, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrapf(err, "fail to EncodeOptions, err:%s", err.Error())
	}
	options := make(Options)
	if err = json.Unmarshal(b, &options); err != nil {
		return nil, errors.Wrapf(err, "fail to EncodeOptions, err:%s", err.Error())
	}
	return options, nil
}

func MustEncodeOptions(v interface{}) Options {
	opt, err := EncodeOptions(v)
	if err != nil {
		log.Panicf("fail to EncodeOptions err:%+v", err)
	}
	return opt
}

func DecodeOptions(options Options, v interface{}) error {
	b, err := json.Marshal(options)
	if err != nil {
		return errors.Wrapf(err, "fail to DecodeOptions err:%s", err.Error())
	}
	if err = json.Unmarshal(b, v); err != nil {
		return ErrorCodeInvalidOption.Wrapf(err, "fail to DecodeOptions err:%s", err.Error())
	}
	return nil
}

type LogLevel log.Level

func (l LogLevel) Level() log.Level {
	return log.Level(l)
}

func (l LogLevel) MarshalJSON() ([]byte, error) {
	ll := log.Level(l)
	if ll > log.TraceLevel || ll < log.PanicLevel {
		return nil, errors.New("out of range log.Level")
	}
	return json.Marshal(ll.String())
}

func (l *LogLevel) UnmarshalJSON(input []byte) error {
	var str string
	err := json.Unmarshal(input, &str)
	if err != nil {
		return err
	}
	v, err := log.ParseLevel(str)
	if err != nil {
		return err
	}
	*l = LogLevel(v)
	return nil
}
