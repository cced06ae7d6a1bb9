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

package inflight

import (
	"context"
	"sync"
	"time"

	"github.com/PolymeshAssociation/polymesh-sdk-sub000/internal/msgs"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/log"
	"github.com/hyperledger/firefly-common/pkg/i18n"
)

// InflightManager correlates asynchronous replies with the callers waiting on them,
// such as JSON/RPC responses arriving on a shared WebSocket
type InflightManager[K comparable, T any] struct {
	lock     sync.Mutex
	requests map[K]*InflightRequest[K, T]
	closed   bool
}

type InflightRequest[K comparable, T any] struct {
	ctx       context.Context
	cancelCtx context.CancelFunc
	ifm       *InflightManager[K, T]
	id        K
	queued    time.Time
	done      chan *outcome[T]
}

type outcome[T any] struct {
	v   T
	err error
}

func NewInflightManager[K comparable, T any]() *InflightManager[K, T] {
	return &InflightManager[K, T]{
		requests: make(map[K]*InflightRequest[K, T]),
	}
}

// AddInflight registers a request. Wait() returns when the request completes or fails,
// the supplied context closes, or the manager closes.
func (ifm *InflightManager[K, T]) AddInflight(ctx context.Context, id K) *InflightRequest[K, T] {
	req := &InflightRequest[K, T]{
		ifm:    ifm,
		id:     id,
		queued: time.Now(),
		done:   make(chan *outcome[T], 1),
	}
	req.ctx, req.cancelCtx = context.WithCancel(ctx)
	ifm.lock.Lock()
	defer ifm.lock.Unlock()
	ifm.requests[id] = req
	if ifm.closed {
		req.Fail(i18n.NewError(ctx, msgs.MsgInflightManagerClosed, req.Age()))
	}
	return req
}

func (ifm *InflightManager[K, T]) GetInflight(id K) *InflightRequest[K, T] {
	ifm.lock.Lock()
	defer ifm.lock.Unlock()
	return ifm.requests[id]
}

func (ifm *InflightManager[K, T]) InFlightCount() int {
	ifm.lock.Lock()
	defer ifm.lock.Unlock()
	return len(ifm.requests)
}

// FailAll fails every outstanding request with the error built for it, used when
// the transport carrying the replies has been lost
func (ifm *InflightManager[K, T]) FailAll(errFn func(req *InflightRequest[K, T]) error) {
	ifm.lock.Lock()
	defer ifm.lock.Unlock()
	for id, req := range ifm.requests {
		req.Fail(errFn(req))
		delete(ifm.requests, id)
	}
}

func (ifm *InflightManager[K, T]) Close() {
	ifm.lock.Lock()
	ifm.closed = true
	ifm.lock.Unlock()
	ifm.FailAll(func(req *InflightRequest[K, T]) error {
		return i18n.NewError(req.ctx, msgs.MsgInflightManagerClosed, req.Age())
	})
}

func (ifm *InflightManager[K, T]) remove(req *InflightRequest[K, T]) {
	ifm.lock.Lock()
	defer ifm.lock.Unlock()
	if ifm.requests[req.id] == req {
		delete(ifm.requests, req.id)
	}
}

func (req *InflightRequest[K, T]) ID() K {
	return req.id
}

func (req *InflightRequest[K, T]) Age() time.Duration {
	return time.Since(req.queued)
}

// Complete delivers the reply. Only the first Complete or Fail has any effect.
func (req *InflightRequest[K, T]) Complete(v T) {
	select {
	case req.done <- &outcome[T]{v: v}:
	default:
		log.L(req.ctx).Debugf("Duplicate completion of request %v ignored", req.id)
	}
}

func (req *InflightRequest[K, T]) Fail(err error) {
	select {
	case req.done <- &outcome[T]{err: err}:
	default:
	}
}

// Wait blocks for the outcome, and always removes the request from the manager
func (req *InflightRequest[K, T]) Wait() (T, error) {
	defer req.Cancel()
	select {
	case <-req.ctx.Done():
		return *new(T), i18n.NewError(req.ctx, msgs.MsgInflightRequestCancelled, req.Age())
	case o := <-req.done:
		return o.v, o.err
	}
}

func (req *InflightRequest[K, T]) Cancel() {
	req.cancelCtx()
	req.ifm.remove(req)
}
