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
	"strings"
	"sync"
	"sync/atomic"

	"github.com/PolymeshAssociation/polymesh-sdk-sub000/internal/msgs"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/inflight"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/log"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmconf"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmerrors"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmtypes"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/wsclient"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type SubscriptionConfig struct {
	SubscribeMethod    string
	UnsubscribeMethod  string
	NotificationMethod string
	// Resubscribe re-establishes the subscription with the same parameters after a
	// reconnect. Otherwise the subscription ends with a connection error.
	Resubscribe bool
}

func StorageSubscribeConfig() SubscriptionConfig {
	return SubscriptionConfig{
		SubscribeMethod:    "state_subscribeStorage",
		UnsubscribeMethod:  "state_unsubscribeStorage",
		NotificationMethod: "state_storage",
		Resubscribe:        true,
	}
}

// ExtrinsicWatchConfig submits an extrinsic and watches its status. It must never be
// resubscribed, as that would submit the extrinsic again.
func ExtrinsicWatchConfig() SubscriptionConfig {
	return SubscriptionConfig{
		SubscribeMethod:    "author_submitAndWatchExtrinsic",
		UnsubscribeMethod:  "author_unwatchExtrinsic",
		NotificationMethod: "author_extrinsicUpdate",
	}
}

// Notification is a single subscription event. A notification with Err set is
// the last one delivered before the channel closes.
type Notification struct {
	Result pmtypes.RawJSON
	Err    error
}

type Subscription interface {
	LocalID() uuid.UUID
	Notifications() <-chan *Notification
	// Unsubscribe is idempotent. No notification is delivered once it returns.
	Unsubscribe(ctx context.Context) error
}

type WSClient interface {
	Client
	Subscribe(ctx context.Context, conf SubscriptionConfig, params ...interface{}) (Subscription, error)
	Subscriptions() []Subscription
	UnsubscribeAll(ctx context.Context) error
	Connect(ctx context.Context) error
	Close()
}

type wsRPCClient struct {
	mux                sync.Mutex
	client             wsclient.WSClient
	bgCtx              context.Context
	requestCounter     int64
	connectCount       atomic.Int64
	inflight           *inflight.InflightManager[string, *RPCResponse]
	pendingSubsByReqID map[string]*sub
	activeSubsBySubID  map[string]*sub
	configuredSubs     map[uuid.UUID]*sub
	receiverDone       chan struct{}
	notificationBuffer int
}

type sub struct {
	rc            *wsRPCClient
	localID       uuid.UUID
	conf          SubscriptionConfig
	request       *RPCRequest
	subID         string
	mux           sync.Mutex
	ended         bool
	done          chan struct{}
	doneOnce      sync.Once
	notifications chan *Notification
}

type subscriptionNotification struct {
	Subscription pmtypes.RawJSON `json:"subscription"`
	Result       pmtypes.RawJSON `json:"result"`
}

func NewWSClient(ctx context.Context, conf *pmconf.WSClientConfig) (WSClient, error) {
	rc := &wsRPCClient{
		bgCtx:              log.WithComponent(ctx, "rpc"),
		inflight:           inflight.NewInflightManager[string, *RPCResponse](),
		pendingSubsByReqID: make(map[string]*sub),
		activeSubsBySubID:  make(map[string]*sub),
		configuredSubs:     make(map[uuid.UUID]*sub),
		receiverDone:       make(chan struct{}),
		notificationBuffer: 100,
	}
	wsc, err := wsclient.New(rc.bgCtx, conf, nil, rc.afterConnect)
	if err != nil {
		return nil, err
	}
	wsc.SetDisconnectHandler(rc.handleDisconnect)
	rc.client = wsc
	return rc, nil
}

func (rc *wsRPCClient) Connect(ctx context.Context) error {
	if err := rc.client.Connect(); err != nil {
		return pmerrors.WithKind(pmerrors.KindConnection, err)
	}
	go rc.receiveLoop()
	return nil
}

func (rc *wsRPCClient) Close() {
	rc.client.Close()
}

// afterConnect re-establishes resubscribable subscriptions after a reconnect.
// Replies are handled by the receive loop.
func (rc *wsRPCClient) afterConnect(ctx context.Context, w wsclient.WSClient) error {
	if rc.connectCount.Add(1) == 1 {
		return nil
	}
	rc.mux.Lock()
	var toResubscribe []*sub
	for _, s := range rc.configuredSubs {
		if s.conf.Resubscribe {
			s.subID = ""
			req := *s.request
			reqID := allocateRequestID(&rc.requestCounter, &req)
			rc.pendingSubsByReqID[reqID] = s
			toResubscribe = append(toResubscribe, s)
			s.request = &req
		}
	}
	rc.mux.Unlock()
	for _, s := range toResubscribe {
		b, _ := json.Marshal(s.request)
		log.L(ctx).Infof("Resubscribing %s after reconnect", s.conf.SubscribeMethod)
		if err := w.Send(ctx, b); err != nil {
			return err
		}
	}
	return nil
}

func (rc *wsRPCClient) handleDisconnect(ctx context.Context) {
	rc.inflight.FailAll(func(req *inflight.InflightRequest[string, *RPCResponse]) error {
		return connectionError(ctx, msgs.MsgRPCClientWebSocketReconnected)
	})
	rc.mux.Lock()
	var ending []*sub
	for id, s := range rc.configuredSubs {
		if !s.conf.Resubscribe {
			delete(rc.configuredSubs, id)
			ending = append(ending, s)
		}
	}
	rc.activeSubsBySubID = make(map[string]*sub)
	rc.pendingSubsByReqID = make(map[string]*sub)
	rc.mux.Unlock()
	for _, s := range ending {
		s.end(connectionError(ctx, msgs.MsgChainConnectionLost, s.conf.SubscribeMethod))
	}
}

func (rc *wsRPCClient) receiveLoop() {
	ctx := rc.bgCtx
	defer close(rc.receiverDone)
	for bytes := range rc.client.Receive() {
		var msg RPCResponse
		if err := json.Unmarshal(bytes, &msg); err != nil {
			log.L(ctx).Errorf("Unable to parse message from node: %s", err)
			continue
		}
		switch {
		case msg.Method != "":
			rc.handleNotification(ctx, &msg)
		case !msg.ID.IsNil():
			rc.handleResponse(ctx, &msg)
		default:
			log.L(ctx).Errorf("Unable to process received message: %s", bytes)
		}
	}
	// the WebSocket has given up, or been closed
	rc.inflight.FailAll(func(req *inflight.InflightRequest[string, *RPCResponse]) error {
		return connectionError(ctx, msgs.MsgRPCClientClosed)
	})
	rc.inflight.Close()
	rc.mux.Lock()
	subs := make([]*sub, 0, len(rc.configuredSubs))
	for _, s := range rc.configuredSubs {
		subs = append(subs, s)
	}
	rc.configuredSubs = make(map[uuid.UUID]*sub)
	rc.activeSubsBySubID = make(map[string]*sub)
	rc.pendingSubsByReqID = make(map[string]*sub)
	rc.mux.Unlock()
	for _, s := range subs {
		s.end(connectionError(ctx, msgs.MsgRPCClientClosed))
	}
}

func requestIDString(id pmtypes.RawJSON) string {
	var s string
	if err := json.Unmarshal(id, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(id))
}

func (rc *wsRPCClient) handleResponse(ctx context.Context, msg *RPCResponse) {
	reqID := requestIDString(msg.ID)

	rc.mux.Lock()
	s := rc.pendingSubsByReqID[reqID]
	if s != nil {
		delete(rc.pendingSubsByReqID, reqID)
		if msg.Error == nil {
			s.subID = requestIDString(msg.Result)
			rc.activeSubsBySubID[s.subID] = s
			log.L(ctx).Debugf("Subscription %s confirmed as %s", s.localID, s.subID)
		}
	}
	rc.mux.Unlock()

	if s != nil && msg.Error != nil {
		if req := rc.inflight.GetInflight(reqID); req == nil {
			// a failed resubscribe has nobody waiting on it
			log.L(ctx).Errorf("Resubscribe of %s failed: %s", s.conf.SubscribeMethod, msg.Error)
			rc.removeSubscription(s)
			s.end(pmerrors.Wrap(ctx, pmerrors.KindConnection, msg.Error, msgs.MsgRPCClientSubscriptionFailed, msg.Error))
		}
	}

	if req := rc.inflight.GetInflight(reqID); req != nil {
		req.Complete(msg)
	} else if s == nil {
		log.L(ctx).Debugf("Response for request %s that is no longer in flight", reqID)
	}
}

func (rc *wsRPCClient) handleNotification(ctx context.Context, msg *RPCResponse) {
	var n subscriptionNotification
	if err := json.Unmarshal(msg.Params, &n); err != nil || n.Subscription.IsNil() {
		log.L(ctx).Errorf("%s", pmerrors.New(ctx, pmerrors.KindUnexpected, msgs.MsgRPCClientInvalidNotification, msg.Method))
		return
	}
	subID := requestIDString(n.Subscription)
	rc.mux.Lock()
	s := rc.activeSubsBySubID[subID]
	rc.mux.Unlock()
	if s == nil || s.conf.NotificationMethod != msg.Method {
		log.L(ctx).Warnf("Received %s notification for untracked subscription %s", msg.Method, subID)
		return
	}
	if logrus.IsLevelEnabled(logrus.TraceLevel) {
		log.L(ctx).Tracef("Subscription %s notification: %s", s.localID, n.Result)
	}
	s.deliver(&Notification{Result: n.Result})
}

func (rc *wsRPCClient) CallRPC(ctx context.Context, result interface{}, method string, params ...interface{}) error {
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

func (rc *wsRPCClient) SyncRequest(ctx context.Context, rpcReq *RPCRequest) (*RPCResponse, error) {
	rpcReq.JSONRpc = "2.0"
	reqID := allocateRequestID(&rc.requestCounter, rpcReq)
	return rc.sendAndWait(ctx, reqID, rpcReq)
}

func (rc *wsRPCClient) sendAndWait(ctx context.Context, reqID string, rpcReq *RPCRequest) (*RPCResponse, error) {
	req := rc.inflight.AddInflight(ctx, reqID)
	b, err := json.Marshal(rpcReq)
	if err != nil {
		req.Cancel()
		return nil, pmerrors.Wrap(ctx, pmerrors.KindValidation, err, msgs.MsgRPCClientInvalidParam, 0, rpcReq.Method, err)
	}
	log.L(ctx).Debugf("RPC[%s] --> %s", reqID, rpcReq.Method)
	if err := rc.client.Send(ctx, b); err != nil {
		req.Cancel()
		return nil, pmerrors.Wrap(ctx, pmerrors.KindConnection, err, msgs.MsgRPCClientRequestFailed, err)
	}
	res, err := req.Wait()
	if err != nil {
		log.L(ctx).Errorf("RPC[%s] <-- ERROR: %s", reqID, err)
		return nil, pmerrors.WithKind(pmerrors.KindUnexpected, err)
	}
	if res.Error != nil && res.Error.Code != 0 {
		log.L(ctx).Errorf("RPC[%s] <-- %s", reqID, res.Message())
		return nil, nodeError(ctx, res.Error)
	}
	log.L(ctx).Debugf("RPC[%s] <-- %s OK", reqID, rpcReq.Method)
	return res, nil
}

func (rc *wsRPCClient) Subscribe(ctx context.Context, conf SubscriptionConfig, params ...interface{}) (Subscription, error) {
	rpcReq, err := buildRequest(ctx, conf.SubscribeMethod, params)
	if err != nil {
		return nil, err
	}
	rpcReq.JSONRpc = "2.0"
	s := &sub{
		rc:            rc,
		localID:       uuid.New(),
		conf:          conf,
		done:          make(chan struct{}),
		notifications: make(chan *Notification, rc.notificationBuffer),
	}
	rc.mux.Lock()
	reqID := allocateRequestID(&rc.requestCounter, rpcReq)
	s.request = rpcReq
	rc.pendingSubsByReqID[reqID] = s
	rc.configuredSubs[s.localID] = s
	rc.mux.Unlock()

	if _, err := rc.sendAndWait(ctx, reqID, rpcReq); err != nil {
		rc.removeSubscription(s)
		s.end(nil)
		return nil, err
	}
	return s, nil
}

func (rc *wsRPCClient) Subscriptions() []Subscription {
	rc.mux.Lock()
	defer rc.mux.Unlock()
	subs := make([]Subscription, 0, len(rc.configuredSubs))
	for _, s := range rc.configuredSubs {
		subs = append(subs, s)
	}
	return subs
}

func (rc *wsRPCClient) UnsubscribeAll(ctx context.Context) error {
	var firstErr error
	for _, s := range rc.Subscriptions() {
		if err := s.Unsubscribe(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// removeSubscription returns the node's subscription ID, if it was active
func (rc *wsRPCClient) removeSubscription(s *sub) (subID string, removed bool) {
	rc.mux.Lock()
	defer rc.mux.Unlock()
	_, removed = rc.configuredSubs[s.localID]
	delete(rc.configuredSubs, s.localID)
	for reqID, ps := range rc.pendingSubsByReqID {
		if ps == s {
			delete(rc.pendingSubsByReqID, reqID)
		}
	}
	if s.subID != "" && rc.activeSubsBySubID[s.subID] == s {
		delete(rc.activeSubsBySubID, s.subID)
		subID = s.subID
	}
	return subID, removed
}

func (s *sub) LocalID() uuid.UUID {
	return s.localID
}

func (s *sub) Notifications() <-chan *Notification {
	return s.notifications
}

func (s *sub) Unsubscribe(ctx context.Context) error {
	subID, removed := s.rc.removeSubscription(s)
	s.end(nil)
	if !removed || subID == "" {
		return nil
	}
	var ok bool
	return s.rc.CallRPC(ctx, &ok, s.conf.UnsubscribeMethod, subID)
}

func (s *sub) deliver(n *Notification) {
	s.mux.Lock()
	defer s.mux.Unlock()
	if s.ended {
		return
	}
	select {
	case s.notifications <- n:
	case <-s.done:
	}
}

// end delivers an optional final error, then closes the notification channel
func (s *sub) end(err error) {
	s.doneOnce.Do(func() { close(s.done) })
	s.mux.Lock()
	defer s.mux.Unlock()
	if s.ended {
		return
	}
	s.ended = true
	if err != nil {
		select {
		case s.notifications <- &Notification{Err: err}:
		default:
			log.L(s.rc.bgCtx).Warnf("Subscription %s ended with a full buffer: %s", s.localID, err)
		}
	}
	close(s.notifications)
}
