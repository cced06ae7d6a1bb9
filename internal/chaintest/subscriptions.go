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

package chaintest

import (
	"context"
	"sync"

	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/chain"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmtypes"
)

type storageSub struct {
	c       *Chain
	keys    []pmtypes.HexBytes
	queue   chan *chain.StorageChangeSet
	done    chan struct{}
	handler chain.StorageHandler
	once    sync.Once
}

// stop reports whether this call ended the subscription
func (s *storageSub) stop() (stopped bool) {
	s.once.Do(func() {
		close(s.done)
		stopped = true
	})
	return stopped
}

func (s *storageSub) watches(key pmtypes.HexBytes) bool {
	for _, k := range s.keys {
		if k.Equals(key) {
			return true
		}
	}
	return false
}

func (s *storageSub) send(cs *chain.StorageChangeSet) {
	select {
	case s.queue <- cs:
	case <-s.done:
	}
}

func (s *storageSub) end(err error) {
	if s.stop() {
		s.handler(nil, err)
	}
}

func (s *storageSub) run() {
	for {
		select {
		case cs := <-s.queue:
			select {
			case <-s.done:
				return
			default:
				s.handler(cs, nil)
			}
		case <-s.done:
			return
		}
	}
}

func (s *storageSub) Unsubscribe(ctx context.Context) error {
	s.c.mux.Lock()
	delete(s.c.subs, s)
	s.c.mux.Unlock()
	s.stop()
	return nil
}

// SubscribeStorage sends the current values of all keys first, as a node does
func (c *Chain) SubscribeStorage(ctx context.Context, keys []pmtypes.HexBytes, handler chain.StorageHandler) (chain.Subscription, error) {
	s := &storageSub{
		c:       c,
		keys:    keys,
		queue:   make(chan *chain.StorageChangeSet, 100),
		done:    make(chan struct{}),
		handler: handler,
	}
	c.mux.Lock()
	if c.closed {
		c.mux.Unlock()
		return nil, c.connectionError(ctx)
	}
	initial := &chain.StorageChangeSet{}
	for _, k := range keys {
		initial.Changes = append(initial.Changes, chain.StorageChange{Key: k, Value: c.storage[string(k)]})
	}
	c.subs[s] = true
	s.queue <- initial
	c.mux.Unlock()
	go s.run()
	return s, nil
}

// ActiveSubscriptions is the number of storage subscriptions not yet unsubscribed
func (c *Chain) ActiveSubscriptions() int {
	c.mux.Lock()
	defer c.mux.Unlock()
	return len(c.subs)
}
