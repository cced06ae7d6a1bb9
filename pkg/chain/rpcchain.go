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

package chain

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/PolymeshAssociation/polymesh-sdk-sub000/internal/msgs"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/log"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmconf"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmerrors"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmtypes"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/rpcclient"
)

type rpcChain struct {
	bgCtx  context.Context
	cancel context.CancelFunc
	rpc    rpcclient.Client
	// nil for a chain reached over HTTP
	ws  rpcclient.WSClient
	url string
}

// NewRPCChain connects a WebSocket JSON/RPC client to the node. An http(s)
// URL gives a read-only chain, on which subscriptions and submission fail.
func NewRPCChain(ctx context.Context, conf *pmconf.WSClientConfig) (Chain, error) {
	if u, err := url.Parse(conf.URL); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		rpc, err := rpcclient.NewHTTPClient(ctx, &conf.HTTPClientConfig)
		if err != nil {
			return nil, err
		}
		return WrapHTTPClient(ctx, rpc, conf.URL), nil
	}
	rpc, err := rpcclient.NewWSClient(ctx, conf)
	if err != nil {
		return nil, err
	}
	if err := rpc.Connect(ctx); err != nil {
		return nil, err
	}
	return WrapRPCClient(ctx, rpc), nil
}

// WrapRPCClient builds a chain over a connected client. Status and storage
// handlers run on routines bound to ctx, not to the context of the call that
// created them.
func WrapRPCClient(ctx context.Context, rpc rpcclient.WSClient) Chain {
	c := &rpcChain{rpc: rpc, ws: rpc}
	c.bgCtx, c.cancel = context.WithCancel(log.WithComponent(ctx, "chain"))
	return c
}

// WrapHTTPClient builds a read-only chain over a request/response client
func WrapHTTPClient(ctx context.Context, rpc rpcclient.Client, nodeURL string) Chain {
	c := &rpcChain{rpc: rpc, url: nodeURL}
	c.bgCtx, c.cancel = context.WithCancel(log.WithComponent(ctx, "chain"))
	return c
}

func (c *rpcChain) requireWS(ctx context.Context, op string) error {
	if c.ws == nil {
		return pmerrors.New(ctx, pmerrors.KindValidation, msgs.MsgChainReadOnly, c.url, op)
	}
	return nil
}

func optionalAt(params []any, at pmtypes.HexBytes) []any {
	if at != nil {
		params = append(params, at)
	}
	return params
}

func (c *rpcChain) QueryStorageAt(ctx context.Context, keys []pmtypes.HexBytes, at pmtypes.HexBytes) ([]pmtypes.HexBytes, error) {
	values := make([]pmtypes.HexBytes, len(keys))
	if len(keys) == 0 {
		return values, nil
	}
	var sets []*StorageChangeSet
	if err := c.rpc.CallRPC(ctx, &sets, "state_queryStorageAt", optionalAt([]any{keys}, at)...); err != nil {
		return nil, err
	}
	for _, cs := range sets {
		for i, key := range keys {
			if v, ok := cs.Value(key); ok {
				values[i] = v
			}
		}
	}
	return values, nil
}

func (c *rpcChain) GetStorageAt(ctx context.Context, key pmtypes.HexBytes, at pmtypes.HexBytes) (pmtypes.HexBytes, error) {
	var value pmtypes.HexBytes
	if err := c.rpc.CallRPC(ctx, &value, "state_getStorage", optionalAt([]any{key}, at)...); err != nil {
		return nil, err
	}
	return value, nil
}

func (c *rpcChain) GetKeysPaged(ctx context.Context, prefix pmtypes.HexBytes, count int, startKey pmtypes.HexBytes, at pmtypes.HexBytes) ([]pmtypes.HexBytes, error) {
	params := []any{prefix, count}
	if startKey != nil || at != nil {
		params = append(params, startKey)
	}
	var keys []pmtypes.HexBytes
	if err := c.rpc.CallRPC(ctx, &keys, "state_getKeysPaged", optionalAt(params, at)...); err != nil {
		return nil, err
	}
	return keys, nil
}

func (c *rpcChain) SubscribeStorage(ctx context.Context, keys []pmtypes.HexBytes, handler StorageHandler) (Subscription, error) {
	if err := c.requireWS(ctx, "SubscribeStorage"); err != nil {
		return nil, err
	}
	sub, err := c.ws.Subscribe(ctx, rpcclient.StorageSubscribeConfig(), keys)
	if err != nil {
		return nil, err
	}
	go c.pump(sub, func(n *rpcclient.Notification) bool {
		var cs StorageChangeSet
		if err := json.Unmarshal(n.Result, &cs); err != nil {
			log.L(c.bgCtx).Errorf("Invalid storage change set: %s", err)
			return true
		}
		handler(&cs, nil)
		return true
	}, func(err error) { handler(nil, err) })
	return sub, nil
}

// pump feeds notifications to the handler until the subscription ends. An
// unsubscribe ends it silently, anything else through onEnd.
func (c *rpcChain) pump(sub rpcclient.Subscription, onNotification func(*rpcclient.Notification) bool, onEnd func(error)) {
	for n := range sub.Notifications() {
		if n.Err != nil {
			onEnd(n.Err)
			return
		}
		if !onNotification(n) {
			_ = sub.Unsubscribe(c.bgCtx)
			return
		}
	}
}

func (c *rpcChain) AccountNextIndex(ctx context.Context, address string) (uint64, error) {
	var nonce uint64
	err := c.rpc.CallRPC(ctx, &nonce, "system_accountNextIndex", address)
	return nonce, err
}

type rpcPaymentInfo struct {
	PartialFee json.RawMessage `json:"partialFee"`
}

func (c *rpcChain) PaymentInfo(ctx context.Context, ext pmtypes.HexBytes) (*PaymentInfo, error) {
	var info rpcPaymentInfo
	if err := c.rpc.CallRPC(ctx, &info, "payment_queryInfo", ext); err != nil {
		return nil, err
	}
	fee, err := parseChainInt(ctx, info.PartialFee)
	if err != nil {
		return nil, pmerrors.WithKind(pmerrors.KindUnexpected, err)
	}
	return &PaymentInfo{PartialFee: fee}, nil
}

func (c *rpcChain) SubmitAndWatchExtrinsic(ctx context.Context, ext pmtypes.HexBytes, handler StatusHandler) (Subscription, error) {
	if err := c.requireWS(ctx, "SubmitAndWatchExtrinsic"); err != nil {
		return nil, err
	}
	sub, err := c.ws.Subscribe(ctx, rpcclient.ExtrinsicWatchConfig(), ext)
	if err != nil {
		return nil, classifySubmitError(ctx, err)
	}
	go c.pump(sub, func(n *rpcclient.Notification) bool {
		var status ExtrinsicStatus
		if err := json.Unmarshal(n.Result, &status); err != nil {
			log.L(c.bgCtx).Errorf("Invalid extrinsic status: %s", err)
			return true
		}
		handler(&status, nil)
		return !status.IsTerminal()
	}, func(err error) { handler(nil, err) })
	return sub, nil
}

// classifySubmitError distinguishes a refusal by the pool from a failure to reach the node
func classifySubmitError(ctx context.Context, err error) error {
	if rpcErr := rpcclient.RPCErrorOf(err); rpcErr != nil {
		switch rpcclient.RPCCode(rpcErr.Code) {
		case rpcclient.RPCCodeInvalidTransaction, rpcclient.RPCCodeUnknownTransaction:
			return pmerrors.Wrap(ctx, pmerrors.KindChainRejection, err, msgs.MsgChainPoolRejected, rpcErr.Error()).
				WithData("rpcError", rpcErr)
		}
	}
	return err
}

type rpcBlock struct {
	Block struct {
		Header struct {
			ParentHash pmtypes.HexBytes `json:"parentHash"`
			Number     json.RawMessage  `json:"number"`
		} `json:"header"`
		Extrinsics []pmtypes.HexBytes `json:"extrinsics"`
	} `json:"block"`
}

func (c *rpcChain) GetBlock(ctx context.Context, hash pmtypes.HexBytes) (*Block, error) {
	var b rpcBlock
	if err := c.rpc.CallRPC(ctx, &b, "chain_getBlock", hash); err != nil {
		return nil, err
	}
	number, err := parseChainInt(ctx, b.Block.Header.Number)
	if err != nil {
		return nil, pmerrors.WithKind(pmerrors.KindUnexpected, err)
	}
	return &Block{
		Hash:       hash,
		ParentHash: b.Block.Header.ParentHash,
		Number:     number.Uint64(),
		Extrinsics: b.Block.Extrinsics,
	}, nil
}

func (c *rpcChain) Close() {
	c.cancel()
	if c.ws != nil {
		c.ws.Close()
	}
}
