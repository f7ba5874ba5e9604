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
	"context"
	"encoding/json"
	"io"
	"net/http"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/icon-project/abi-sdk/contract"
	"github.com/icon-project/abi-sdk/registry"
)

const (
	ParamNetwork          = "network"
	ParamTxID             = "txID"
	ParamServiceOrAddress = "serviceOrAddress"
	ParamMethod           = "method"
	ContextAdaptor        = "adaptor"
	ContextService        = "service"
	ContextRequest        = "request"
	GroupUrlApi           = "/api"
	UrlGetResult          = "/result"
	UrlEvents             = "/events"
)

func Logger(l log.Logger) log.Logger {
	return l.WithFields(log.Fields{log.FieldKeyModule: "api"})
}

type Server struct {
	e    *echo.Echo
	addr string
	aMap map[string]contract.Adaptor
	sMap map[string]*ContractService
	reg  *registry.Registry
	mtx  sync.RWMutex
	lv   log.Level
	l    log.Logger
}

// NewServer returns the server with the routes registered. reg may be nil
// to disable the signature registry endpoints.
func NewServer(addr string, reg *registry.Registry, transportLogLevel log.Level, l log.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()
	e.HTTPErrorHandler = HttpErrorHandler
	s := &Server{
		e:    e,
		addr: addr,
		aMap: make(map[string]contract.Adaptor),
		sMap: make(map[string]*ContractService),
		reg:  reg,
		lv:   contract.EnsureTransportLogLevel(transportLogLevel),
		l:    Logger(l),
	}
	e.Use(
		middleware.CORSWithConfig(middleware.CORSConfig{
			MaxAge: 3600,
		}),
		middleware.Recover(),
		middleware.BodyDump(func(c echo.Context, reqBody []byte, resBody []byte) {
			s.l.Debugf("url=%s", c.Request().RequestURI)
			s.l.Logf(s.lv, "request=%s", reqBody)
			s.l.Logf(s.lv, "response=%s", resBody)
		}))
	s.RegisterABIHandler(e.Group(GroupUrlAbi))
	s.RegisterAPIHandler(e.Group(GroupUrlApi))
	return s
}

func (s *Server) AddAdaptor(network string, a contract.Adaptor) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.aMap[network] = a
}

func (s *Server) GetAdaptor(network string) contract.Adaptor {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.aMap[network]
}

// AddService registers svc by its name and by its network and address.
// The functions, events and errors of its contract are registered to the
// signature registry if any.
func (s *Server) AddService(svc *ContractService) error {
	if s.reg != nil {
		if _, err := s.reg.RegisterContract(svc.h.Contract()); err != nil {
			return err
		}
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.sMap[svc.Name()] = svc
	s.sMap[ContractServiceName(svc.Network(), svc.Address())] = svc
	return nil
}

func (s *Server) GetService(name string) *ContractService {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.sMap[name]
}

func (s *Server) services(network string) []*ContractService {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	l := make([]*ContractService, 0)
	for name, svc := range s.sMap {
		if svc.Network() == network && svc.Name() == name {
			l = append(l, svc)
		}
	}
	sort.Slice(l, func(i, j int) bool {
		return l[i].Name() < l[j].Name()
	})
	return l
}

// resolveService finds the service by name, or by address on the network.
func (s *Server) resolveService(network, serviceOrAddress string) (*ContractService, error) {
	if svc := s.GetService(serviceOrAddress); svc != nil && svc.Network() == network {
		return svc, nil
	}
	if svc := s.GetService(ContractServiceName(network, contract.Address(serviceOrAddress))); svc != nil {
		return svc, nil
	}
	return nil, errors.NotFoundError.Errorf("Service(%s) not found", serviceOrAddress)
}

func (s *Server) Start() error {
	s.l.Infoln("starting the server")
	return s.e.Start(s.addr)
}

func (s *Server) Stop() error {
	s.l.Infoln("shutting down the server")
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	return s.e.Shutdown(ctx)
}

type Request struct {
	Params  contract.Params  `json:"params" query:"params"`
	Options contract.Options `json:"options" query:"options"`
}

type RegisterContractServiceRequest struct {
	Name    string           `json:"name,omitempty"`
	Address contract.Address `json:"address" validate:"required"`
	ABI     json.RawMessage  `json:"abi" validate:"required"`
}

type NetworkInfo struct {
	Name        string `json:"name"`
	NetworkType string `json:"networkType"`
}

type NetworkInfos []NetworkInfo

type ServiceInfo struct {
	Name    string           `json:"name"`
	Network string           `json:"network"`
	Address contract.Address `json:"address"`
}

type ServiceInfos []ServiceInfo

func (s *Server) RegisterAPIHandler(g *echo.Group) {
	g.GET("", func(c echo.Context) error {
		s.mtx.RLock()
		defer s.mtx.RUnlock()
		l := make(NetworkInfos, 0, len(s.aMap))
		for network, a := range s.aMap {
			l = append(l, NetworkInfo{Name: network, NetworkType: a.NetworkType()})
		}
		sort.Slice(l, func(i, j int) bool {
			return l[i].Name < l[j].Name
		})
		return c.JSON(http.StatusOK, l)
	})
	generalApi := g.Group("/:"+ParamNetwork, func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := c.Param(ParamNetwork)
			a := s.GetAdaptor(p)
			if a == nil {
				return errors.NotFoundError.Errorf("Network(%s) not found", p)
			}
			c.Set(ContextAdaptor, a)
			return next(c)
		}
	})
	generalApi.GET("", func(c echo.Context) error {
		network := c.Param(ParamNetwork)
		l := make(ServiceInfos, 0)
		for _, svc := range s.services(network) {
			l = append(l, ServiceInfo{Name: svc.Name(), Network: network, Address: svc.Address()})
		}
		return c.JSON(http.StatusOK, l)
	})
	generalApi.POST("", func(c echo.Context) error {
		req := &RegisterContractServiceRequest{}
		if err := bindAndValidate(c, req); err != nil {
			return err
		}
		a := c.Get(ContextAdaptor).(contract.Adaptor)
		network := c.Param(ParamNetwork)
		svc, err := NewContractService(a, req.ABI, req.Address, network, req.Name, s.l)
		if err != nil {
			s.l.Debugf("fail to NewContractService err:%+v", err)
			return err
		}
		if err = s.AddService(svc); err != nil {
			return err
		}
		return c.JSON(http.StatusOK, ServiceInfo{Name: svc.Name(), Network: network, Address: svc.Address()})
	})
	generalApi.GET(UrlGetResult+"/:"+ParamTxID, func(c echo.Context) error {
		a := c.Get(ContextAdaptor).(contract.Adaptor)
		ret, err := a.GetResult(c.Param(ParamTxID))
		if err != nil {
			s.l.Debugf("fail to GetResult err:%+v", err)
			return err
		}
		return c.JSON(http.StatusOK, ret)
	})

	serviceApi := generalApi.Group("/:"+ParamServiceOrAddress, func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			svc, err := s.resolveService(c.Param(ParamNetwork), c.Param(ParamServiceOrAddress))
			if err != nil {
				return err
			}
			c.Set(ContextService, svc)
			return next(c)
		}
	})
	serviceApi.GET("", func(c echo.Context) error {
		svc := c.Get(ContextService).(*ContractService)
		return c.JSON(http.StatusOK, svc.MethodInfos())
	})
	serviceApi.GET(UrlEvents+"/:"+ParamTxID, func(c echo.Context) error {
		svc := c.Get(ContextService).(*ContractService)
		events, err := svc.Events(c.Param(ParamTxID))
		if err != nil {
			s.l.Debugf("fail to Events err:%+v", err)
			return err
		}
		return c.JSON(http.StatusOK, events)
	})

	methodApi := serviceApi.Group("/:"+ParamMethod, func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := &Request{}
			if err := BindQueryParamsAndUnmarshalBody(c, req); err != nil {
				s.l.Debugf("fail to BindQueryParamsAndUnmarshalBody err:%+v", err)
				return errors.IllegalArgumentError.Wrapf(err, "fail to bind request err:%s", err.Error())
			}
			c.Set(ContextRequest, req)

			svc := c.Get(ContextService).(*ContractService)
			pm := c.Param(ParamMethod)
			m, err := svc.Method(pm)
			if err != nil {
				return err
			}
			hm := c.Request().Method
			if m.IsConstant() {
				if hm != http.MethodGet {
					return contract.ErrorCodeMismatchReadonly.Errorf(
						"HttpMethod(%s) not allowed, use GET", hm)
				}
			} else if hm != http.MethodPost {
				return contract.ErrorCodeMismatchReadonly.Errorf(
					"HttpMethod(%s) not allowed, use POST", hm)
			}
			return next(c)
		}
	})
	methodApi.POST("", func(c echo.Context) error {
		req := c.Get(ContextRequest).(*Request)
		svc := c.Get(ContextService).(*ContractService)
		txID, err := svc.Invoke(c.Param(ParamMethod), req.Params, req.Options)
		if err != nil {
			s.l.Debugf("fail to Invoke err:%+v", err)
			return err
		}
		return c.JSON(http.StatusOK, txID)
	})
	methodApi.GET("", func(c echo.Context) error {
		req := c.Get(ContextRequest).(*Request)
		svc := c.Get(ContextService).(*ContractService)
		ret, err := svc.Call(c.Param(ParamMethod), req.Params, req.Options)
		if err != nil {
			s.l.Debugf("fail to Call err:%+v", err)
			return err
		}
		return c.JSON(http.StatusOK, ret)
	})
}

// BindQueryParamsAndUnmarshalBody binds the query parameters, including
// nested keys like "params[to]" for map fields, then the JSON body.
func BindQueryParamsAndUnmarshalBody(c echo.Context, v interface{}) error {
	if ContainsMapTypeInStructType(reflect.TypeOf(v)) {
		if err := UnmarshalQueryParams(c, v); err != nil {
			return err
		}
	} else if err := (&echo.DefaultBinder{}).BindQueryParams(c, v); err != nil {
		return err
	}
	return UnmarshalRequestBody(c, v)
}

func QueryParamsToMap(c echo.Context) (map[string]interface{}, error) {
	m := make(map[string]interface{})
	for k, v := range c.QueryParams() {
		tm := m
		if start := strings.IndexByte(k, '['); start > 0 && k[len(k)-1] == ']' {
			l := []string{k[:start]}
			l = append(l, strings.Split(k[start+1:len(k)-1], "][")...)
			var (
				elem interface{}
				ok   = false
				last = len(l) - 1
			)
			for i, p := range l {
				if i < last {
					if elem, ok = tm[p]; !ok {
						cm := make(map[string]interface{})
						tm[p] = cm
						tm = cm
					} else if tm, ok = elem.(map[string]interface{}); ok {
						continue
					} else {
						return nil, errors.Errorf("fail cast k:%s i:%d p:%s", k, i, p)
					}
				} else {
					k = p
				}
			}
		}
		switch len(v) {
		case 0:
			tm[k] = nil
		case 1:
			tm[k] = v[0]
		default:
			tm[k] = v
		}
	}
	return m, nil
}

func ContainsMapTypeInStructType(t reflect.Type) bool {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() == reflect.Struct {
		for i := 0; i < t.NumField(); i++ {
			if t.Field(i).Type.Kind() == reflect.Map {
				return true
			} else if t.Field(i).Type.Kind() == reflect.Struct {
				if ContainsMapTypeInStructType(t.Field(i).Type) {
					return true
				}
			}
		}
	}
	return false
}

func UnmarshalQueryParams(c echo.Context, v interface{}) error {
	m, err := QueryParamsToMap(c)
	if err != nil {
		return err
	}
	if len(m) == 0 {
		return nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func UnmarshalRequestBody(c echo.Context, v interface{}) error {
	if c.Request().ContentLength == 0 {
		return nil
	}
	if err := UnmarshalBody(c.Request().Body, v); err != nil && err != io.EOF {
		return err
	}
	return nil
}

// UnmarshalBody decodes numbers as json.Number to keep integers exact.
func UnmarshalBody(b io.ReadCloser, v interface{}) error {
	defer b.Close()
	d := json.NewDecoder(b)
	d.UseNumber()
	if err := d.Decode(v); err != nil {
		return err
	}
	return nil
}
