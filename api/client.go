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
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"

	"github.com/icon-project/abi-sdk/abi"
	"github.com/icon-project/abi-sdk/contract"
	"github.com/icon-project/abi-sdk/database"
	"github.com/icon-project/abi-sdk/registry"
)

// Signer signs the hash returned with contract.RequireSignatureError.
// btp2 wallet.Wallet satisfies it.
type Signer interface {
	Address() string
	Sign(data []byte) ([]byte, error)
}

type Client struct {
	*http.Client
	baseUrl string
	l       log.Logger
}

func NewClient(baseUrl string, transportLogLevel log.Level, l log.Logger) *Client {
	l = Logger(l)
	return &Client{
		Client:  contract.NewHttpClient(transportLogLevel, l),
		baseUrl: baseUrl,
		l:       l,
	}
}

func (c *Client) url(format string, args ...interface{}) string {
	return c.baseUrl + fmt.Sprintf(format, args...)
}

func (c *Client) do(method, url string, reqPtr, respPtr interface{}) (resp *http.Response, err error) {
	var reqBody io.Reader
	if reqPtr != nil {
		var b []byte
		if b, err = json.Marshal(reqPtr); err != nil {
			c.l.Debugf("fail to encode Request err:%+v", err)
			return nil, err
		}
		reqBody = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		c.l.Debugf("fail to NewRequest err:%+v", err)
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	c.l.Debugf("url=%s", req.URL)
	if resp, err = c.Client.Do(req); err != nil {
		return
	}
	if resp.StatusCode/100 != 2 {
		er := &ErrorResponse{}
		if err = UnmarshalBody(resp.Body, er); err != nil {
			c.l.Debugf("fail to decode ErrorResponse err:%+v", err)
			err = errors.Errorf("server response not success, StatusCode:%d",
				resp.StatusCode)
			return
		}
		err = er
		return
	}
	if respPtr != nil {
		if err = UnmarshalBody(resp.Body, respPtr); err != nil {
			c.l.Debugf("fail to decode resp err:%+v", err)
			return
		}
	} else {
		resp.Body.Close()
	}
	return
}

func (c *Client) Signature(req *SignatureRequest) (*SignatureResponse, error) {
	r := &SignatureResponse{}
	if _, err := c.do(http.MethodPost, c.url("%s%s", GroupUrlAbi, UrlSignature), req, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Client) Encode(req *EncodeRequest) ([]byte, error) {
	r := &EncodeResponse{}
	if _, err := c.do(http.MethodPost, c.url("%s%s", GroupUrlAbi, UrlEncode), req, r); err != nil {
		return nil, err
	}
	return r.Data, nil
}

// Decode returns the decoded values in JSON representation.
func (c *Client) Decode(req *DecodeRequest) ([]interface{}, error) {
	r := struct {
		Values []interface{} `json:"values"`
	}{}
	if _, err := c.do(http.MethodPost, c.url("%s%s", GroupUrlAbi, UrlDecode), req, &r); err != nil {
		return nil, err
	}
	return r.Values, nil
}

func (c *Client) LookupSelector(id abi.Selector) ([]registry.Signature, error) {
	var r []registry.Signature
	if _, err := c.do(http.MethodGet, c.url("%s%s/%s", GroupUrlAbi, UrlSelectors, id), nil, &r); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Client) LookupTopic(topic common.Hash) ([]registry.Signature, error) {
	var r []registry.Signature
	if _, err := c.do(http.MethodGet, c.url("%s%s/%s", GroupUrlAbi, UrlTopics, topic.Hex()), nil, &r); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Client) Register(req *RegisterRequest) ([]registry.Signature, error) {
	var r []registry.Signature
	if _, err := c.do(http.MethodPost, c.url("%s%s", GroupUrlAbi, UrlRegistry), req, &r); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Client) Signatures(p database.Pageable, kind registry.Kind) (*database.Page[registry.Signature], error) {
	q := url.Values{}
	q.Set("page", fmt.Sprint(p.Page))
	q.Set("size", fmt.Sprint(p.Size))
	if len(p.Sort) > 0 {
		q.Set("sort", p.Sort)
	}
	if len(kind) > 0 {
		q.Set(QueryParamKind, string(kind))
	}
	r := &database.Page[registry.Signature]{}
	if _, err := c.do(http.MethodGet, c.url("%s%s?%s", GroupUrlAbi, UrlRegistry, q.Encode()), nil, r); err != nil {
		return nil, err
	}
	return r, nil
}

// DecodedArgument is registry.Argument in JSON representation.
type DecodedArgument struct {
	Name  string      `json:"name"`
	Type  string      `json:"type"`
	Value interface{} `json:"value"`
}

type Decoded struct {
	Signature registry.Signature `json:"signature"`
	Name      string             `json:"name"`
	Arguments []DecodedArgument  `json:"arguments"`
}

func (c *Client) DecodeCallData(data []byte) ([]Decoded, error) {
	var r []Decoded
	if _, err := c.do(http.MethodPost, c.url("%s%s", GroupUrlAbi, UrlCallData), &CallDataRequest{Data: data}, &r); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Client) DecodeLog(topics []common.Hash, data []byte) ([]Decoded, error) {
	var r []Decoded
	if _, err := c.do(http.MethodPost, c.url("%s%s", GroupUrlAbi, UrlLog), &LogRequest{Topics: topics, Data: data}, &r); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Client) apiUrl(format string, args ...interface{}) string {
	return c.baseUrl + GroupUrlApi + fmt.Sprintf(format, args...)
}

func (c *Client) NetworkInfos() (NetworkInfos, error) {
	r := NetworkInfos{}
	if _, err := c.do(http.MethodGet, c.apiUrl(""), nil, &r); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Client) ServiceInfos(network string) (ServiceInfos, error) {
	r := ServiceInfos{}
	if _, err := c.do(http.MethodGet, c.apiUrl("/%s", network), nil, &r); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Client) RegisterContractService(network string, req *RegisterContractServiceRequest) (*ServiceInfo, error) {
	r := &ServiceInfo{}
	if _, err := c.do(http.MethodPost, c.apiUrl("/%s", network), req, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Client) MethodInfos(network, serviceOrAddress string) (MethodInfos, error) {
	r := MethodInfos{}
	if _, err := c.do(http.MethodGet, c.apiUrl("/%s/%s", network, serviceOrAddress), nil, &r); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Client) GetResult(network string, id contract.TxID, resp interface{}) error {
	_, err := c.do(http.MethodGet, c.apiUrl("/%s%s/%v", network, UrlGetResult, id), nil, resp)
	return err
}

func (c *Client) Events(network, serviceOrAddress string, id contract.TxID) ([]contract.Event, error) {
	var r []contract.Event
	if _, err := c.do(http.MethodGet, c.apiUrl("/%s/%s%s/%v", network, serviceOrAddress, UrlEvents, id), nil, &r); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Client) Call(network, serviceOrAddress, method string, req *Request, resp interface{}) error {
	_, err := c.do(http.MethodGet, c.apiUrl("/%s/%s/%s", network, serviceOrAddress, method), req, resp)
	return err
}

// Invoke sends the transaction. With s, the hash returned by the server is
// signed and the request is sent again with the signature.
func (c *Client) Invoke(network, serviceOrAddress, method string, req *Request, s Signer) (contract.TxID, error) {
	u := c.apiUrl("/%s/%s/%s", network, serviceOrAddress, method)
	if s != nil {
		if req.Options == nil {
			req.Options = make(contract.Options)
		}
		if _, ok := req.Options["from"]; !ok {
			req.Options["from"] = s.Address()
		}
	}
	var txID contract.TxID
	_, err := c.do(http.MethodPost, u, req, &txID)
	if s == nil || !contract.ErrorCodeRequireSignature.Equals(err) {
		return txID, err
	}
	er, ok := err.(*ErrorResponse)
	if !ok {
		return nil, err
	}
	rse := &RequireSignatureError{}
	if err = er.UnmarshalData(rse); err != nil {
		return nil, err
	}
	sig, err := s.Sign(rse.Data)
	if err != nil {
		return nil, errors.Wrapf(err, "fail to Sign err:%s", err.Error())
	}
	rse.Options["signature"] = hexutil.Encode(sig)
	req.Options = rse.Options
	_, err = c.do(http.MethodPost, u, req, &txID)
	return txID, err
}
