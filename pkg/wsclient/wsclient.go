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

package wsclient

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PolymeshAssociation/polymesh-sdk-sub000/internal/msgs"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/confutil"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/log"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmconf"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/retry"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/tlsconf"
	"github.com/gorilla/websocket"
	"github.com/hyperledger/firefly-common/pkg/i18n"
)

// WSClient is a reconnecting WebSocket to a chain node. Messages are delivered
// in order on Receive, which is closed when the client gives up or is closed.
type WSClient interface {
	Connect() error
	Receive() <-chan []byte
	URL() string
	SetURL(url string)
	SetHeader(header, value string)
	SetDisconnectHandler(handler WSDisconnectHandler)
	Send(ctx context.Context, message []byte) error
	Close()
}

type wsClient struct {
	ctx                  context.Context
	headers              http.Header
	url                  string
	initialRetryAttempts int
	wsdialer             *websocket.Dialer
	wsconn               *websocket.Conn
	retry                retry.Retry
	closed               atomic.Bool
	closeOnce            sync.Once
	receive              chan []byte
	send                 chan []byte
	sendDone             chan []byte
	closing              chan struct{}
	beforeConnect        WSPreConnectHandler
	afterConnect         WSPostConnectHandler
	disconnected         WSDisconnectHandler
	heartbeatInterval    time.Duration
	heartbeatMux         sync.Mutex
	activePingSent       *time.Time
	lastPingCompleted    time.Time
}

// WSPreConnectHandler is called before every connect and reconnect. An error prevents the connection.
type WSPreConnectHandler func(ctx context.Context, w WSClient) error

// WSPostConnectHandler is called after every connect and reconnect, before any message is read.
// It can send on the socket, but must not block waiting for a reply.
type WSPostConnectHandler func(ctx context.Context, w WSClient) error

// WSDisconnectHandler is called each time an established connection drops, before any reconnect
type WSDisconnectHandler func(ctx context.Context)

func New(ctx context.Context, config *pmconf.WSClientConfig, beforeConnect WSPreConnectHandler, afterConnect WSPostConnectHandler) (WSClient, error) {
	l := log.L(ctx)
	def := pmconf.DefaultWSConfig

	u, tlsConfig, err := ValidateConfig(ctx, config)
	if err != nil {
		return nil, err
	}

	w := &wsClient{
		ctx: ctx,
		url: u.String(),
		wsdialer: &websocket.Dialer{
			ReadBufferSize:   int(confutil.ByteSize(config.ReadBufferSize, 0, *def.ReadBufferSize)),
			WriteBufferSize:  int(confutil.ByteSize(config.WriteBufferSize, 0, *def.WriteBufferSize)),
			TLSClientConfig:  tlsConfig,
			HandshakeTimeout: confutil.DurationMin(config.ConnectionTimeout, 0, *def.ConnectionTimeout),
		},
		retry:                *retry.NewRetryIndefinite(&config.ConnectRetry, &def.ConnectRetry),
		initialRetryAttempts: confutil.IntMin(config.InitialConnectAttempts, 0, *def.InitialConnectAttempts),
		headers:              make(http.Header),
		receive:              make(chan []byte),
		send:                 make(chan []byte),
		closing:              make(chan struct{}),
		beforeConnect:        beforeConnect,
		afterConnect:         afterConnect,
		heartbeatInterval:    confutil.DurationMin(config.HeartbeatInterval, 0, *def.HeartbeatInterval),
	}

	for k, v := range config.HTTPHeaders {
		if vs, ok := v.(string); ok {
			w.headers.Set(k, vs)
		}
	}
	if config.Auth.Username != "" && config.Auth.Password != "" {
		w.headers.Set("Authorization", fmt.Sprintf("Basic %s", base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("%s:%s", config.Auth.Username, config.Auth.Password)))))
	}

	go func() {
		select {
		case <-ctx.Done():
			l.Tracef("WS %s closing due to canceled context", w.url)
			w.Close()
		case <-w.closing:
			l.Tracef("WS %s closing", w.url)
		}
	}()

	return w, nil
}

func ValidateConfig(ctx context.Context, config *pmconf.WSClientConfig) (*url.URL, *tls.Config, error) {
	u, err := url.Parse(config.URL)
	if err != nil || !strings.HasPrefix(u.Scheme, "ws") {
		return nil, nil, i18n.WrapError(ctx, err, msgs.MsgWSClientInvalidURL, config.URL)
	}

	tlsConf := config.TLS
	if u.Scheme == "wss" {
		tlsConf.Enabled = true
	}
	tlsConfig, err := tlsconf.BuildClientTLSConfig(ctx, &tlsConf)
	if err != nil {
		return nil, nil, err
	}
	return u, tlsConfig, nil
}

func (w *wsClient) Connect() error {
	if err := w.connect(true); err != nil {
		return err
	}
	go w.receiveReconnectLoop()
	return nil
}

func (w *wsClient) Close() {
	w.closeOnce.Do(func() {
		w.closed.Store(true)
		close(w.closing)
		w.heartbeatMux.Lock()
		c := w.wsconn
		w.heartbeatMux.Unlock()
		if c != nil {
			_ = c.Close()
		}
	})
}

func (w *wsClient) Receive() <-chan []byte {
	return w.receive
}

func (w *wsClient) URL() string {
	return w.url
}

func (w *wsClient) SetURL(url string) {
	w.url = url
}

func (w *wsClient) SetHeader(header, value string) {
	w.headers.Set(header, value)
}

func (w *wsClient) SetDisconnectHandler(handler WSDisconnectHandler) {
	w.disconnected = handler
}

func (w *wsClient) Send(ctx context.Context, message []byte) error {
	select {
	case w.send <- message:
		return nil
	case <-ctx.Done():
		return i18n.NewError(ctx, msgs.MsgWSClientSendTimedOut)
	case <-w.closing:
		return i18n.NewError(ctx, msgs.MsgWSClientSendAfterClose)
	}
}

func (w *wsClient) heartbeatTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if w.heartbeatInterval > 0 {
		w.heartbeatMux.Lock()
		baseTime := w.lastPingCompleted
		if w.activePingSent != nil {
			// waiting for a pong
			baseTime = *w.activePingSent
		}
		waitTime := w.heartbeatInterval - time.Since(baseTime) // pops immediately if negative
		w.heartbeatMux.Unlock()
		return context.WithTimeout(ctx, waitTime)
	}
	return context.WithCancel(ctx)
}

func (w *wsClient) setConn(c *websocket.Conn) {
	w.heartbeatMux.Lock()
	defer w.heartbeatMux.Unlock()
	w.wsconn = c
}

func (w *wsClient) connect(initial bool) error {
	l := log.L(w.ctx)
	return w.retry.Do(w.ctx, func(attempt int) (retry bool, err error) {
		if w.closed.Load() {
			return false, i18n.NewError(w.ctx, msgs.MsgWSClientSendAfterClose)
		}

		retry = !initial || attempt < w.initialRetryAttempts
		if w.beforeConnect != nil {
			if err = w.beforeConnect(w.ctx, w); err != nil {
				l.Warnf("WS %s connect attempt %d failed in beforeConnect", w.url, attempt)
				return retry, err
			}
		}

		conn, res, err := w.wsdialer.Dial(w.url, w.headers)
		if err != nil {
			var b []byte
			var status = -1
			if res != nil {
				b, _ = io.ReadAll(res.Body)
				res.Body.Close()
				status = res.StatusCode
			}
			l.Warnf("WS %s connect attempt %d failed [%d]: %s", w.url, attempt, status, string(b))
			return retry, i18n.WrapError(w.ctx, err, msgs.MsgWSClientConnectFailed, w.url)
		}
		w.setConn(conn)

		w.pongReceivedOrReset(false)
		conn.SetPongHandler(w.pongHandler)
		l.Infof("WS %s connected", w.url)
		return false, nil
	})
}

func (w *wsClient) readLoop() {
	l := log.L(w.ctx)
	for {
		mt, message, err := w.wsconn.ReadMessage()
		if err != nil {
			// normal when the node disconnects
			l.Infof("WS %s closed: %s", w.url, err)
			return
		}

		l.Tracef("WS %s read (mt=%d): %s", w.url, mt, message)
		select {
		case <-w.sendDone:
			l.Debugf("WS %s closing reader after send error", w.url)
			return
		case w.receive <- message:
		}
	}
}

func (w *wsClient) pongHandler(_ string) error {
	w.pongReceivedOrReset(true)
	return nil
}

func (w *wsClient) pongReceivedOrReset(isPong bool) {
	w.heartbeatMux.Lock()
	defer w.heartbeatMux.Unlock()

	if isPong && w.activePingSent != nil {
		log.L(w.ctx).Debugf("WS %s heartbeat completed (pong) after %.2fms", w.url, float64(time.Since(*w.activePingSent))/float64(time.Millisecond))
	}
	w.lastPingCompleted = time.Now()
	w.activePingSent = nil

	// missing two heartbeats breaks the read
	if w.heartbeatInterval > 0 && w.wsconn != nil {
		_ = w.wsconn.SetReadDeadline(time.Now().Add(2 * w.heartbeatInterval))
	}
}

func (w *wsClient) heartbeatCheck() error {
	w.heartbeatMux.Lock()
	defer w.heartbeatMux.Unlock()

	if w.activePingSent != nil {
		return i18n.NewError(w.ctx, msgs.MsgWSClientHeartbeatTimeout, float64(time.Since(*w.activePingSent))/float64(time.Millisecond))
	}
	log.L(w.ctx).Debugf("WS %s heartbeat timer popped (ping) after %.2fms", w.url, float64(time.Since(w.lastPingCompleted))/float64(time.Millisecond))
	now := time.Now()
	w.activePingSent = &now
	return nil
}

func (w *wsClient) sendLoop(receiverDone chan struct{}) {
	l := log.L(w.ctx)
	defer close(w.sendDone)

	disconnecting := false
	for !disconnecting {
		timeoutContext, timeoutCancel := w.heartbeatTimeout(w.ctx)

		select {
		case message := <-w.send:
			l.Tracef("WS sending: %s", message)
			if err := w.wsconn.WriteMessage(websocket.TextMessage, message); err != nil {
				l.Errorf("WS %s send failed: %s", w.url, err)
				disconnecting = true
			}
		case <-timeoutContext.Done():
			wsconn := w.wsconn
			if err := w.heartbeatCheck(); err != nil {
				l.Errorf("WS %s closing: %s", w.url, err)
				disconnecting = true
			} else if wsconn != nil {
				if err := wsconn.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
					l.Errorf("WS %s heartbeat send failed: %s", w.url, err)
					disconnecting = true
				}
			}
		case <-receiverDone:
			l.Debugf("WS %s send loop exiting", w.url)
			disconnecting = true
		}

		timeoutCancel()
	}
}

func (w *wsClient) receiveReconnectLoop() {
	l := log.L(w.ctx)
	defer close(w.receive)
	for !w.closed.Load() {
		w.sendDone = make(chan []byte, 1)
		receiverDone := make(chan struct{})
		go w.sendLoop(receiverDone)

		var err error
		if w.afterConnect != nil {
			err = w.afterConnect(w.ctx, w)
		}

		if err == nil {
			// the reader runs on this routine, so errors are seen immediately
			w.readLoop()
		}
		close(receiverDone)
		<-w.sendDone

		if err := w.wsconn.Close(); err != nil {
			l.Debugf("WS %s close failed: %s", w.url, err)
		}
		w.sendDone = nil
		w.setConn(nil)
		if w.disconnected != nil {
			w.disconnected(w.ctx)
		}

		if !w.closed.Load() {
			if err := w.connect(false); err != nil {
				l.Debugf("WS %s exiting: %s", w.url, err)
				return
			}
		}
	}
}
