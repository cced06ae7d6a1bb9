// Copyright © 2024 Kaleido, Inc.
//
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rpcclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/PolymeshAssociation/polymesh-sdk-sub000/internal/msgs"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/log"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmconf"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmerrors"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmresty"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmtypes"
	"github.com/go-resty/resty/v2"
	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/sirupsen/logrus"
)

type RPCCode int64

const rpcErrorDataKey = "rpcError"

const (
	RPCCodeParseError     RPCCode = -32700
	RPCCodeInvalidRequest RPCCode = -32600
	RPCCodeInternalError  RPCCode = -32603
	// returned by author_submitExtrinsic when the pool refuses the extrinsic
	RPCCodeInvalidTransaction RPCCode = 1010
	RPCCodeUnknownTransaction RPCCode = 1011
)

// Client performs JSON/RPC calls against a chain node.
//
// Errors are classified with a pmerrors.Kind. Failures to reach the node are
// KindConnection. Errors returned by the node carry an *RPCError as their cause.
type Client interface {
	CallRPC(ctx context.Context, result interface{}, method string, params ...interface{}) error
}

type RPCRequest struct {
	JSONRpc string            `json:"jsonrpc"`
	ID      pmtypes.RawJSON   `json:"id"`
	Method  string            `json:"method"`
	Params  []pmtypes.RawJSON `json:"params,omitempty"`
}

type RPCError struct {
	Code    int64           `json:"code"`
	Message string          `json:"message"`
	Data    pmtypes.RawJSON `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	if !e.Data.IsNil() {
		return fmt.Sprintf("%s: %s", e.Message, e.Data)
	}
	return e.Message
}

type RPCResponse struct {
	JSONRpc string          `json:"jsonrpc"`
	ID      pmtypes.RawJSON `json:"id"`
	Result  pmtypes.RawJSON `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	// subscription notifications only
	Method string          `json:"method,omitempty"`
	Params pmtypes.RawJSON `json:"params,omitempty"`
}

func (r *RPCResponse) Message() string {
	if r.Error != nil {
		return r.Error.Error()
	}
	return ""
}

// RPCErrorOf returns the node's error from a failed call, if the node returned one
func RPCErrorOf(err error) *RPCError {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	var pmErr *pmerrors.Error
	if errors.As(err, &pmErr) {
		rpcErr, _ = pmErr.Data()[rpcErrorDataKey].(*RPCError)
	}
	return rpcErr
}

func NewHTTPClient(ctx context.Context, conf *pmconf.HTTPClientConfig) (Client, error) {
	rc, err := pmresty.New(ctx, conf)
	if err != nil {
		return nil, err
	}
	return WrapRestyClient(rc), nil
}

func WrapRestyClient(rc *resty.Client) Client {
	return &rpcClient{client: rc}
}

type rpcClient struct {
	client         *resty.Client
	requestCounter int64
}

func allocateRequestID(counter *int64, req *RPCRequest) string {
	reqID := fmt.Sprintf(`%.9d`, atomic.AddInt64(counter, 1))
	req.ID = pmtypes.RawJSON(`"` + reqID + `"`)
	return reqID
}

func (rc *rpcClient) CallRPC(ctx context.Context, result interface{}, method string, params ...interface{}) error {
	rpcReq, err := buildRequest(ctx, method, params)
	if err != nil {
		return err
	}
	res, err := rc.SyncRequest(ctx, rpcReq)
	if err != nil {
		return err
	}
	return parseResult(ctx, res, result)
}

// SyncRequest sends a single request over HTTP and waits for the response
func (rc *rpcClient) SyncRequest(ctx context.Context, rpcReq *RPCRequest) (*RPCResponse, error) {
	rpcReq.JSONRpc = "2.0"
	rpcTraceID := allocateRequestID(&rc.requestCounter, rpcReq)
	rpcRes := new(RPCResponse)

	log.L(ctx).Debugf("RPC[%s] --> %s", rpcTraceID, rpcReq.Method)
	if logrus.IsLevelEnabled(logrus.TraceLevel) {
		jsonInput, _ := json.Marshal(rpcReq)
		log.L(ctx).Tracef("RPC[%s] INPUT: %s", rpcTraceID, jsonInput)
	}
	rpcStartTime := time.Now()
	res, err := rc.client.R().
		SetContext(ctx).
		SetBody(rpcReq).
		SetResult(rpcRes).
		SetError(rpcRes).
		Post("")
	if err != nil {
		err := pmerrors.Wrap(ctx, pmerrors.KindConnection, err, msgs.MsgRPCClientRequestFailed, err)
		log.L(ctx).Errorf("RPC[%s] <-- ERROR: %s", rpcTraceID, err)
		return nil, err
	}
	if logrus.IsLevelEnabled(logrus.TraceLevel) {
		jsonOutput, _ := json.Marshal(rpcRes)
		log.L(ctx).Tracef("RPC[%s] OUTPUT: %s", rpcTraceID, jsonOutput)
	}
	// JSON/RPC errors can arrive with a 200 status code, as well as other status codes
	if rpcRes.Error != nil && rpcRes.Error.Code != 0 {
		log.L(ctx).Errorf("RPC[%s] <-- [%d]: %s", rpcTraceID, res.StatusCode(), rpcRes.Message())
		return nil, nodeError(ctx, rpcRes.Error)
	}
	if res.IsError() {
		log.L(ctx).Errorf("RPC[%s] <-- [%d]: %s", rpcTraceID, res.StatusCode(), res.Body())
		return nil, pmresty.WrapRestErr(ctx, res, nil)
	}
	log.L(ctx).Infof("RPC[%s] <-- %s [%d] OK (%.2fms)", rpcTraceID, rpcReq.Method, res.StatusCode(), float64(time.Since(rpcStartTime))/float64(time.Millisecond))
	return rpcRes, nil
}

func nodeError(ctx context.Context, rpcErr *RPCError) error {
	return pmerrors.Wrap(ctx, pmerrors.KindUnexpected, rpcErr, msgs.MsgRPCClientError, rpcErr.Code, rpcErr.Error()).
		WithData(rpcErrorDataKey, rpcErr)
}

func parseResult(ctx context.Context, res *RPCResponse, result interface{}) error {
	if result == nil || res.Result.IsNil() {
		return nil
	}
	if err := json.Unmarshal(res.Result, result); err != nil {
		return pmerrors.Wrap(ctx, pmerrors.KindUnexpected, err, msgs.MsgRPCClientResultParseFailed, result, err)
	}
	return nil
}

func buildRequest(ctx context.Context, method string, params []interface{}) (*RPCRequest, error) {
	req := &RPCRequest{
		JSONRpc: "2.0",
		Method:  method,
		Params:  make([]pmtypes.RawJSON, len(params)),
	}
	for i, param := range params {
		b, err := json.Marshal(param)
		if err != nil {
			return nil, pmerrors.Wrap(ctx, pmerrors.KindValidation, err, msgs.MsgRPCClientInvalidParam, i, method, err)
		}
		req.Params[i] = pmtypes.RawJSON(b)
	}
	return req, nil
}

func connectionError(ctx context.Context, key i18n.ErrorMessageKey, inserts ...any) error {
	return pmerrors.New(ctx, pmerrors.KindConnection, key, inserts...)
}
