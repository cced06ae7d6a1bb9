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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDispatcherDeliverAndUnsubscribe(t *testing.T) {
	var got []int
	released := 0
	d := NewDispatcher(func(v int) { got = append(got, v) }, func() { released++ })

	assert.True(t, d.Deliver(1))
	assert.True(t, d.Deliver(2))
	unsub := d.UnsubCallback()
	unsub()
	assert.True(t, d.Closed())
	assert.False(t, d.Deliver(3))

	// idempotent
	unsub()
	assert.Equal(t, []int{1, 2}, got)
	assert.Equal(t, 1, released)
}

func TestDispatcherUnsubscribeInsideCallback(t *testing.T) {
	var d *Dispatcher[string]
	calls := 0
	d = NewDispatcher(func(v string) {
		calls++
		d.Unsubscribe()
	}, nil)

	assert.True(t, d.Deliver("a"))
	assert.False(t, d.Deliver("b"))
	assert.Equal(t, 1, calls)
}

func TestDispatcherConcurrentDelivery(t *testing.T) {
	var calls atomic.Int32
	d := NewDispatcher(func(v int) {
		calls.Add(1)
	}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				d.Deliver(j)
			}
		}()
	}
	time.Sleep(time.Millisecond)
	d.Unsubscribe()
	afterUnsub := calls.Load()
	wg.Wait()

	// only a callback already in progress can complete
	assert.LessOrEqual(t, calls.Load(), afterUnsub+1)
	assert.False(t, d.Deliver(1))
}

func TestDispatcherUnsubscribeWaitsForOtherRoutine(t *testing.T) {
	entered := make(chan struct{})
	proceed := make(chan struct{})
	var running atomic.Bool
	d := NewDispatcher(func(v int) {
		running.Store(true)
		close(entered)
		<-proceed
		running.Store(false)
	}, nil)

	go d.Deliver(1)
	<-entered

	unsubscribed := make(chan bool)
	go func() {
		d.Unsubscribe()
		unsubscribed <- running.Load()
	}()

	select {
	case <-unsubscribed:
		t.Fatal("Unsubscribe returned during a callback on another routine")
	case <-time.After(50 * time.Millisecond):
	}
	close(proceed)
	select {
	case stillRunning := <-unsubscribed:
		assert.False(t, stillRunning)
	case <-time.After(5 * time.Second):
		t.Fatal("Unsubscribe did not return")
	}
	assert.False(t, d.Deliver(2))
}
