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

package subscription

import (
	"sync"
	"sync/atomic"

	"github.com/petermattis/goid"
)

// UnsubCallback stops a subscription. It is idempotent, and once it returns no
// further callback invocation begins.
type UnsubCallback func()

// Dispatcher serializes delivery of values to a subscriber callback, and makes
// teardown synchronous with delivery. A value still in flight when the
// subscription is torn down is dropped.
type Dispatcher[T any] struct {
	callback   func(T)
	release    func()
	deliverMux sync.Mutex
	closed     atomic.Bool
	// routine running the callback, zero between deliveries
	deliverer atomic.Int64
}

// NewDispatcher wraps the callback. Release is invoked once on the first
// Unsubscribe, after delivery has stopped, to free the underlying subscription.
func NewDispatcher[T any](callback func(T), release func()) *Dispatcher[T] {
	return &Dispatcher[T]{callback: callback, release: release}
}

// Deliver invokes the callback, unless the subscription is closed. Deliveries are
// never concurrent, so callers on several routines see callbacks in lock order.
func (d *Dispatcher[T]) Deliver(v T) bool {
	d.deliverMux.Lock()
	defer d.deliverMux.Unlock()
	if d.closed.Load() {
		return false
	}
	d.deliverer.Store(goid.Get())
	defer d.deliverer.Store(0)
	d.callback(v)
	return true
}

func (d *Dispatcher[T]) Closed() bool {
	return d.closed.Load()
}

// Unsubscribe waits for any delivery in progress on another routine to finish.
// It can be called from inside the callback, where it does not wait.
func (d *Dispatcher[T]) Unsubscribe() {
	if !d.closed.CompareAndSwap(false, true) {
		return
	}
	if d.deliverer.Load() != goid.Get() {
		d.deliverMux.Lock()
		// nothing further can be delivered once the lock is held with closed set
		d.deliverMux.Unlock()
	}
	if d.release != nil {
		d.release()
	}
}

// UnsubCallback returns the Unsubscribe of the dispatcher as a handle
func (d *Dispatcher[T]) UnsubCallback() UnsubCallback {
	return d.Unsubscribe
}
