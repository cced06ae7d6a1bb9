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
	"bytes"
	"context"
	"encoding/binary"
	"math/big"
	"sort"
	"sync"

	"github.com/PolymeshAssociation/polymesh-sdk-sub000/internal/msgs"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/chain"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmerrors"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmtypes"
	"golang.org/x/crypto/blake2b"
)

// Behavior scripts what happens to the next submitted extrinsic
type Behavior int

const (
	// included in a block, then finalized
	Finalize Behavior = iota
	// included in a block, never finalized
	InBlockOnly
	// included, then the node gives up waiting for finality
	FinalityTimeout
	// refused by the pool with a 1010 error
	PoolReject
	// accepted, then dropped from the pool
	Dropped
	// accepted, then replaced by another extrinsic with the same nonce
	Usurped
	// the connection fails before the node accepts the extrinsic
	LostBeforeAccept
	// the connection fails after the node accepts the extrinsic
	LostAfterAccept
)

// ExtrinsicResult is the on-chain effect of an extrinsic
type ExtrinsicResult struct {
	Events        []*chain.EventRecord
	DispatchError *pmerrors.DispatchError
}

type Submitted struct {
	Raw       pmtypes.HexBytes
	Hash      pmtypes.HexBytes
	Extrinsic *Extrinsic
}

// Chain is an in-memory node. Keys are served in byte order. Storage
// subscriptions are notified on every change to a watched key.
type Chain struct {
	codec *Codec

	mux         sync.Mutex
	storage     map[string]pmtypes.HexBytes
	blockEvents map[string]pmtypes.HexBytes
	blocks      map[string]*chain.Block
	head        uint64
	nonces      map[string]uint64
	subs        map[*storageSub]bool
	script      []Behavior
	submitted   []*Submitted
	fee         *big.Int
	feeQueries  int
	hold        chan struct{}
	closed      bool

	// OnExtrinsic applies the effect of an included extrinsic, when set
	OnExtrinsic func(x *Extrinsic) *ExtrinsicResult
}

func NewChain(codec *Codec) *Chain {
	return &Chain{
		codec:       codec,
		storage:     make(map[string]pmtypes.HexBytes),
		blockEvents: make(map[string]pmtypes.HexBytes),
		blocks:      make(map[string]*chain.Block),
		nonces:      make(map[string]uint64),
		subs:        make(map[*storageSub]bool),
		fee:         big.NewInt(1000),
	}
}

// Script queues behaviors for the next submissions. Once the queue is empty
// every extrinsic is finalized.
func (c *Chain) Script(behaviors ...Behavior) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.script = append(c.script, behaviors...)
}

// Hold stops accepted extrinsics progressing past the pool until Release
func (c *Chain) Hold() {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.hold = make(chan struct{})
}

func (c *Chain) Release() {
	c.mux.Lock()
	defer c.mux.Unlock()
	if c.hold != nil {
		close(c.hold)
		c.hold = nil
	}
}

func (c *Chain) SetFee(units int64) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.fee = big.NewInt(units)
}

func (c *Chain) FeeQueries() int {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.feeQueries
}

func (c *Chain) Submitted() []*Submitted {
	c.mux.Lock()
	defer c.mux.Unlock()
	return append([]*Submitted{}, c.submitted...)
}

// Set stores the JSON form of value under the item and args
func (c *Chain) Set(module, item string, value any, args ...any) {
	key, err := c.codec.StorageKey(context.Background(), module, item, args...)
	if err != nil {
		panic(err)
	}
	c.SetStorage(key, c.codec.EncodeValue(value))
}

func (c *Chain) Remove(module, item string, args ...any) {
	key, err := c.codec.StorageKey(context.Background(), module, item, args...)
	if err != nil {
		panic(err)
	}
	c.SetStorage(key, nil)
}

// SetStorage sets or, with a nil value, removes a raw key and notifies subscribers
func (c *Chain) SetStorage(key, value pmtypes.HexBytes) {
	c.mux.Lock()
	if value == nil {
		delete(c.storage, string(key))
	} else {
		c.storage[string(key)] = value
	}
	var watching []*storageSub
	for s := range c.subs {
		if s.watches(key) {
			watching = append(watching, s)
		}
	}
	c.mux.Unlock()
	for _, s := range watching {
		s.send(&chain.StorageChangeSet{Changes: []chain.StorageChange{{Key: key, Value: value}}})
	}
}

func (c *Chain) connectionError(ctx context.Context) error {
	return pmerrors.New(ctx, pmerrors.KindConnection, msgs.MsgChainNotConnected)
}

func (c *Chain) QueryStorageAt(ctx context.Context, keys []pmtypes.HexBytes, at pmtypes.HexBytes) ([]pmtypes.HexBytes, error) {
	c.mux.Lock()
	defer c.mux.Unlock()
	if c.closed {
		return nil, c.connectionError(ctx)
	}
	values := make([]pmtypes.HexBytes, len(keys))
	for i, k := range keys {
		values[i] = c.storage[string(k)]
	}
	return values, nil
}

func (c *Chain) GetStorageAt(ctx context.Context, key pmtypes.HexBytes, at pmtypes.HexBytes) (pmtypes.HexBytes, error) {
	c.mux.Lock()
	defer c.mux.Unlock()
	if c.closed {
		return nil, c.connectionError(ctx)
	}
	if at != nil && bytes.Equal(key, c.eventsKey()) {
		return c.blockEvents[string(at)], nil
	}
	return c.storage[string(key)], nil
}

func (c *Chain) eventsKey() pmtypes.HexBytes {
	key, _ := c.codec.StorageKey(context.Background(), "system", "events")
	return key
}

func (c *Chain) GetKeysPaged(ctx context.Context, prefix pmtypes.HexBytes, count int, startKey pmtypes.HexBytes, at pmtypes.HexBytes) ([]pmtypes.HexBytes, error) {
	c.mux.Lock()
	defer c.mux.Unlock()
	if c.closed {
		return nil, c.connectionError(ctx)
	}
	var keys []string
	for k := range c.storage {
		if bytes.HasPrefix([]byte(k), prefix) && (startKey == nil || k > string(startKey)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if len(keys) > count {
		keys = keys[:count]
	}
	page := make([]pmtypes.HexBytes, len(keys))
	for i, k := range keys {
		page[i] = pmtypes.HexBytes(k)
	}
	return page, nil
}

func (c *Chain) AccountNextIndex(ctx context.Context, address string) (uint64, error) {
	c.mux.Lock()
	defer c.mux.Unlock()
	if c.closed {
		return 0, c.connectionError(ctx)
	}
	return c.nonces[address], nil
}

func (c *Chain) PaymentInfo(ctx context.Context, ext pmtypes.HexBytes) (*chain.PaymentInfo, error) {
	c.mux.Lock()
	defer c.mux.Unlock()
	if c.closed {
		return nil, c.connectionError(ctx)
	}
	c.feeQueries++
	return &chain.PaymentInfo{PartialFee: new(big.Int).Set(c.fee)}, nil
}

func (c *Chain) GetBlock(ctx context.Context, hash pmtypes.HexBytes) (*chain.Block, error) {
	c.mux.Lock()
	defer c.mux.Unlock()
	if c.closed {
		return nil, c.connectionError(ctx)
	}
	b := c.blocks[string(hash)]
	if b == nil {
		return nil, pmerrors.New(ctx, pmerrors.KindUnexpected, msgs.MsgChainExtrinsicNotInBlock, "", hash)
	}
	return b, nil
}

func (c *Chain) Close() {
	c.mux.Lock()
	c.closed = true
	subs := c.subs
	c.subs = make(map[*storageSub]bool)
	c.mux.Unlock()
	for s := range subs {
		s.end(c.connectionError(context.Background()))
	}
}

// mine includes the extrinsic in a new block, after an inherent at index zero
func (c *Chain) mine(x *Extrinsic, raw pmtypes.HexBytes) pmtypes.HexBytes {
	var result *ExtrinsicResult
	if c.OnExtrinsic != nil {
		result = c.OnExtrinsic(x)
	}
	if result == nil {
		result = &ExtrinsicResult{}
	}

	c.mux.Lock()
	defer c.mux.Unlock()
	c.head++
	var numBytes [8]byte
	binary.BigEndian.PutUint64(numBytes[:], c.head)
	hash := blake2b.Sum256(numBytes[:])
	inherent := pmtypes.HexBytes(numBytes[:])
	block := &chain.Block{
		Hash:       hash[:],
		Number:     c.head,
		Extrinsics: []pmtypes.HexBytes{inherent, raw},
	}
	c.blocks[string(block.Hash)] = block

	zero, one := 0, 1
	events := []*chain.EventRecord{{ApplyExtrinsic: &zero, Module: "system", Name: "ExtrinsicSuccess"}}
	for _, e := range result.Events {
		ev := *e
		ev.ApplyExtrinsic = &one
		events = append(events, &ev)
	}
	if result.DispatchError != nil {
		events = append(events, &chain.EventRecord{ApplyExtrinsic: &one, Module: "system", Name: "ExtrinsicFailed",
			Data: pmtypes.JSONString(result.DispatchError)})
	} else {
		events = append(events, &chain.EventRecord{ApplyExtrinsic: &one, Module: "system", Name: "ExtrinsicSuccess"})
	}
	c.blockEvents[string(block.Hash)] = c.codec.EncodeValue(events)
	return block.Hash
}

func (c *Chain) SubmitAndWatchExtrinsic(ctx context.Context, ext pmtypes.HexBytes, handler chain.StatusHandler) (chain.Subscription, error) {
	x, err := c.codec.DecodeExtrinsic(ext)
	if err != nil {
		return nil, err
	}

	c.mux.Lock()
	behavior := Finalize
	if len(c.script) > 0 {
		behavior = c.script[0]
		c.script = c.script[1:]
	}
	closed := c.closed
	hold := c.hold
	c.mux.Unlock()

	switch {
	case closed || behavior == LostBeforeAccept:
		return nil, c.connectionError(ctx)
	case behavior == PoolReject:
		return nil, pmerrors.New(ctx, pmerrors.KindChainRejection, msgs.MsgChainPoolRejected, "1010: Invalid Transaction: Inability to pay some fees")
	}

	c.mux.Lock()
	c.submitted = append(c.submitted, &Submitted{Raw: ext, Hash: chain.ExtrinsicHash(ext), Extrinsic: x})
	c.nonces[x.Signer] = x.Nonce + 1
	c.mux.Unlock()

	w := &watch{}
	go func() {
		if hold != nil {
			<-hold
		}
		if !w.send(handler, &chain.ExtrinsicStatus{Type: chain.ExtrinsicReady}) {
			return
		}
		switch behavior {
		case Dropped:
			w.send(handler, &chain.ExtrinsicStatus{Type: chain.ExtrinsicDropped})
			return
		case Usurped:
			w.send(handler, &chain.ExtrinsicStatus{Type: chain.ExtrinsicUsurped, Hash: pmtypes.HexBytes{0x01}})
			return
		case LostAfterAccept:
			w.fail(handler, c.connectionError(context.Background()))
			return
		}
		blockHash := c.mine(x, ext)
		if !w.send(handler, &chain.ExtrinsicStatus{Type: chain.ExtrinsicInBlock, Hash: blockHash}) {
			return
		}
		switch behavior {
		case Finalize:
			w.send(handler, &chain.ExtrinsicStatus{Type: chain.ExtrinsicFinalized, Hash: blockHash})
		case FinalityTimeout:
			w.send(handler, &chain.ExtrinsicStatus{Type: chain.ExtrinsicFinalityTimeout, Hash: blockHash})
		}
	}()
	return w, nil
}

// watch delivers statuses from a single routine, so handlers run in order and
// may unsubscribe from inside the handler
type watch struct {
	mux    sync.Mutex
	closed bool
}

func (w *watch) isClosed() bool {
	w.mux.Lock()
	defer w.mux.Unlock()
	return w.closed
}

func (w *watch) send(handler chain.StatusHandler, status *chain.ExtrinsicStatus) bool {
	if w.isClosed() {
		return false
	}
	handler(status, nil)
	return true
}

func (w *watch) fail(handler chain.StatusHandler, err error) {
	if !w.isClosed() {
		handler(nil, err)
	}
}

func (w *watch) Unsubscribe(ctx context.Context) error {
	w.mux.Lock()
	defer w.mux.Unlock()
	w.closed = true
	return nil
}
