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
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/gorilla/websocket"
)

// NewTestWSServer starts a WebSocket server accepting a single connection at a time,
// for tests. Text frames received are passed to toServer, and strings written to
// fromServer are sent to the connected client.
func NewTestWSServer(testReq func(req *http.Request)) (toServer, fromServer chan string, url string, done func()) {
	upgrader := &websocket.Upgrader{WriteBufferSize: 1024, ReadBufferSize: 1024}
	toServer = make(chan string, 1)
	fromServer = make(chan string, 1)
	closing := make(chan struct{})
	var connected sync.Mutex
	var wg sync.WaitGroup

	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if !connected.TryLock() {
			w.WriteHeader(http.StatusConflict)
			return
		}
		defer connected.Unlock()
		if testReq != nil {
			testReq(req)
		}
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		wg.Add(1)
		writerDone := make(chan struct{})
		go func() {
			defer wg.Done()
			for {
				select {
				case data := <-fromServer:
					_ = conn.WriteMessage(websocket.TextMessage, []byte(data))
				case <-writerDone:
					return
				case <-closing:
					return
				}
			}
		}()
		defer close(writerDone)

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			select {
			case toServer <- string(data):
			case <-closing:
				return
			}
		}
	}))

	return toServer, fromServer, fmt.Sprintf("ws://%s", svr.Listener.Addr()), func() {
		close(closing)
		svr.CloseClientConnections()
		svr.Close()
		wg.Wait()
	}
}
