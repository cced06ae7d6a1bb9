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
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/PolymeshAssociation/polymesh-sdk-sub000/internal/msgs"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmconf"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmerrors"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmtypes"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/rpcclient"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRPCCall struct {
	method string
	params []interface{}
}

type testRPC struct {
	mux          sync.Mutex
	results      map[string]string
	errors       map[string]error
	calls        []*testRPCCall
	sub          *testSub
	subscribeErr error
	closed       bool
}

func newTestRPC() *testRPC {
	return &testRPC{
		results: map[string]string{},
		errors:  map[string]error{},
		sub:     &testSub{ch: make(chan *rpcclient.Notification, 10)},
	}
}

func (tr *testRPC) CallRPC(ctx context.Context, result interface{}, method string, params ...interface{}) error {
	tr.mux.Lock()
	defer tr.mux.Unlock()
	tr.calls = append(tr.calls, &testRPCCall{method: method, params: params})
	if err := tr.errors[method]; err != nil {
		return err
	}
	if res, ok := tr.results[method]; ok {
		return json.Unmarshal([]byte(res), result)
	}
	return nil
}

func (tr *testRPC) Subscribe(ctx context.Context, conf rpcclient.SubscriptionConfig, params ...interface{}) (rpcclient.Subscription, error) {
	tr.mux.Lock()
	defer tr.mux.Unlock()
	tr.calls = append(tr.calls, &testRPCCall{method: conf.SubscribeMethod, params: params})
	if tr.subscribeErr != nil {
		return nil, tr.subscribeErr
	}
	return tr.sub, nil
}

func (tr *testRPC) Subscriptions() []rpcclient.Subscription { return nil }
func (tr *testRPC) UnsubscribeAll(ctx context.Context) error { return nil }
func (tr *testRPC) Connect(ctx context.Context) error { return nil }
func (tr *testRPC) Close() { tr.closed = true }
func (tr *testRPC) lastCall() *testRPCCall { return tr.calls[len(tr.calls)-1] }

type testSub struct {
	ch           chan *rpcclient.Notification
	unsubscribed chan struct{}
	once         sync.Once
}

func (ts *testSub) LocalID() uuid.UUID { return uuid.Nil }
func (ts *testSub) Notifications() <-chan *rpcclient.Notification { return ts.ch }
func (ts *testSub) Unsubscribe(ctx context.Context) error {
	ts.once.Do(func() {
		if ts.unsubscribed != nil {
			close(ts.unsubscribed)
		}
	})
	return nil
}

func newTestRPCChain(t *testing.T) (context.Context, *rpcChain, *testRPC) {
	ctx := context.Background()
	tr := newTestRPC()
	c := WrapRPCClient(ctx, tr).(*rpcChain)
	t.Cleanup(c.Close)
	return ctx, c, tr
}

func TestRPCChainStorage(t *testing.T) {
	ctx, c, tr := newTestRPCChain(t)

	tr.results["state_queryStorageAt"] = `[{"block":"0x01","changes":[["0xaa","0x11"],["0xbb",null]]}]`
	values, err := c.QueryStorageAt(ctx, []pmtypes.HexBytes{{0xbb}, {0xaa}, {0xcc}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []pmtypes.HexBytes{nil, {0x11}, nil}, values)
	assert.Len(t, tr.lastCall().params, 1)

	_, err = c.QueryStorageAt(ctx, []pmtypes.HexBytes{{0xaa}}, pmtypes.HexBytes{0x01})
	require.NoError(t, err)
	assert.Len(t, tr.lastCall().params, 2)

	values, err = c.QueryStorageAt(ctx, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, values)

	tr.results["state_getStorage"] = `"0x1234"`
	v, err := c.GetStorageAt(ctx, pmtypes.HexBytes{0xaa}, nil)
	require.NoError(t, err)
	assert.Equal(t, "0x1234", v.String())

	tr.results["state_getStorage"] = `null`
	v, err = c.GetStorageAt(ctx, pmtypes.HexBytes{0xaa}, nil)
	require.NoError(t, err)
	assert.Nil(t, v)

	tr.results["state_getKeysPaged"] = `["0xaa01","0xaa02"]`
	keys, err := c.GetKeysPaged(ctx, pmtypes.HexBytes{0xaa}, 2, nil, nil)
	require.NoError(t, err)
	assert.Len(t, keys, 2)
	assert.Len(t, tr.lastCall().params, 2)
	_, err = c.GetKeysPaged(ctx, pmtypes.HexBytes{0xaa}, 2, pmtypes.HexBytes{0xaa, 0x02}, nil)
	require.NoError(t, err)
	assert.Len(t, tr.lastCall().params, 3)
}

func TestRPCChainQueries(t *testing.T) {
	ctx, c, tr := newTestRPCChain(t)

	tr.results["system_accountNextIndex"] = `7`
	nonce, err := c.AccountNextIndex(ctx, "5Alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), nonce)

	tr.results["payment_queryInfo"] = `{"weight":{"refTime":1},"class":"normal","partialFee":"123456789"}`
	info, err := c.PaymentInfo(ctx, pmtypes.HexBytes{0x01})
	require.NoError(t, err)
	assert.Equal(t, int64(123456789), info.PartialFee.Int64())

	tr.results["payment_queryInfo"] = `{"partialFee":"bad"}`
	_, err = c.PaymentInfo(ctx, pmtypes.HexBytes{0x01})
	assert.Regexp(t, "PM010210", err)

	tr.results["chain_getBlock"] = `{"block":{"header":{"parentHash":"0x00","number":"0x10"},"extrinsics":["0x01","0x02"]}}`
	b, err := c.GetBlock(ctx, pmtypes.HexBytes{0xff})
	require.NoError(t, err)
	assert.Equal(t, uint64(16), b.Number)
	assert.Len(t, b.Extrinsics, 2)
	assert.Equal(t, "0xff", b.Hash.String())

	tr.errors["chain_getBlock"] = pmerrors.New(ctx, pmerrors.KindConnection, msgs.MsgRPCClientClosed)
	_, err = c.GetBlock(ctx, pmtypes.HexBytes{0xff})
	assert.True(t, pmerrors.IsRetryable(err))
}

func TestRPCChainSubscribeStorage(t *testing.T) {
	ctx, c, tr := newTestRPCChain(t)

	received := make(chan *StorageChangeSet, 1)
	ended := make(chan error, 1)
	sub, err := c.SubscribeStorage(ctx, []pmtypes.HexBytes{{0xaa}}, func(cs *StorageChangeSet, err error) {
		if err != nil {
			ended <- err
			return
		}
		received <- cs
	})
	require.NoError(t, err)
	assert.NotNil(t, sub)

	tr.sub.ch <- &rpcclient.Notification{Result: pmtypes.RawJSON(`"not a change set"`)}
	tr.sub.ch <- &rpcclient.Notification{Result: pmtypes.RawJSON(`{"block":"0x01","changes":[["0xaa","0x22"]]}`)}
	cs := <-received
	v, _ := cs.Value(pmtypes.HexBytes{0xaa})
	assert.Equal(t, "0x22", v.String())

	tr.sub.ch <- &rpcclient.Notification{Err: pmerrors.New(ctx, pmerrors.KindConnection, msgs.MsgRPCClientClosed)}
	assert.True(t, pmerrors.IsRetryable(<-ended))

	tr.subscribeErr = pmerrors.New(ctx, pmerrors.KindConnection, msgs.MsgRPCClientClosed)
	_, err = c.SubscribeStorage(ctx, nil, func(cs *StorageChangeSet, err error) {})
	assert.Regexp(t, "PM010109", err)
}

func TestRPCChainSubmitAndWatch(t *testing.T) {
	ctx, c, tr := newTestRPCChain(t)
	tr.sub.unsubscribed = make(chan struct{})

	statuses := make(chan *ExtrinsicStatus, 5)
	_, err := c.SubmitAndWatchExtrinsic(ctx, pmtypes.HexBytes{0x01}, func(s *ExtrinsicStatus, err error) {
		assert.NoError(t, err)
		statuses <- s
	})
	require.NoError(t, err)

	tr.sub.ch <- &rpcclient.Notification{Result: pmtypes.RawJSON(`"ready"`)}
	tr.sub.ch <- &rpcclient.Notification{Result: pmtypes.RawJSON(`{"inBlock":"0xaa"}`)}
	tr.sub.ch <- &rpcclient.Notification{Result: pmtypes.RawJSON(`{"finalized":"0xaa"}`)}
	assert.Equal(t, ExtrinsicReady, (<-statuses).Type)
	assert.Equal(t, ExtrinsicInBlock, (<-statuses).Type)
	assert.Equal(t, ExtrinsicFinalized, (<-statuses).Type)

	select {
	case <-tr.sub.unsubscribed:
	case <-time.After(5 * time.Second):
		t.Fatal("not unsubscribed after a terminal status")
	}
}

func TestRPCChainSubmitRejected(t *testing.T) {
	ctx, c, tr := newTestRPCChain(t)

	rpcErr := &rpcclient.RPCError{Code: int64(rpcclient.RPCCodeInvalidTransaction), Message: "Invalid Transaction", Data: pmtypes.RawJSON(`"Inability to pay some fees"`)}
	tr.subscribeErr = pmerrors.Wrap(ctx, pmerrors.KindUnexpected, rpcErr, msgs.MsgRPCClientError, rpcErr.Code, rpcErr.Error()).
		WithData("rpcError", rpcErr)
	_, err := c.SubmitAndWatchExtrinsic(ctx, pmtypes.HexBytes{0x01}, func(s *ExtrinsicStatus, err error) {})
	assert.Regexp(t, "PM010208.*Inability to pay some fees", err)
	assert.True(t, pmerrors.Is(err, pmerrors.KindChainRejection))
	assert.NotNil(t, rpcclient.RPCErrorOf(err))

	tr.subscribeErr = pmerrors.New(ctx, pmerrors.KindConnection, msgs.MsgRPCClientClosed)
	_, err = c.SubmitAndWatchExtrinsic(ctx, pmtypes.HexBytes{0x01}, func(s *ExtrinsicStatus, err error) {})
	assert.True(t, pmerrors.IsRetryable(err))
}

func TestNewRPCChainBadURL(t *testing.T) {
	conf := &pmconf.WSClientConfig{}
	conf.URL = "wrong://localhost"
	_, err := NewRPCChain(context.Background(), conf)
	assert.Regexp(t, "PM010100", err)
}

func TestNewRPCChainHTTPReadOnly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req rpcclient.RPCRequest
		require.NoError(t, json.Unmarshal(b, &req))
		assert.Equal(t, "state_getStorage", req.Method)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":` + req.ID.String() + `,"result":"0x0102"}`))
	}))
	defer server.Close()

	ctx := context.Background()
	conf := &pmconf.WSClientConfig{}
	conf.URL = server.URL
	c, err := NewRPCChain(ctx, conf)
	require.NoError(t, err)
	defer c.Close()

	value, err := c.GetStorageAt(ctx, pmtypes.HexBytes{0xaa}, nil)
	require.NoError(t, err)
	assert.Equal(t, pmtypes.HexBytes{0x01, 0x02}, value)

	_, err = c.SubscribeStorage(ctx, []pmtypes.HexBytes{{0xaa}}, func(cs *StorageChangeSet, err error) {})
	assert.Regexp(t, "PM010211.*SubscribeStorage", err)
	assert.True(t, pmerrors.Is(err, pmerrors.KindValidation))

	_, err = c.SubmitAndWatchExtrinsic(ctx, pmtypes.HexBytes{0x01}, func(s *ExtrinsicStatus, err error) {})
	assert.Regexp(t, "PM010211.*SubmitAndWatchExtrinsic", err)
	assert.False(t, pmerrors.IsRetryable(err))
}

func TestRPCChainClose(t *testing.T) {
	_, c, tr := newTestRPCChain(t)
	c.Close()
	assert.True(t, tr.closed)
	assert.Error(t, c.bgCtx.Err())
}
