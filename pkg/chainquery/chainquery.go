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

package chainquery

import (
	"context"
	"sync"

	"github.com/PolymeshAssociation/polymesh-sdk-sub000/internal/msgs"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/chain"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/log"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/metrics"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmapi"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmerrors"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmtypes"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/subscription"
)

// Query names a single storage item, for batched reads and subscriptions
type Query struct {
	Name string
	key  func(ctx context.Context, r chain.Reader) (pmtypes.HexBytes, error)
}

func MapQuery[V any](m chain.StorageMap[V], args ...any) Query {
	return Query{
		Name: m.Name(),
		key: func(ctx context.Context, r chain.Reader) (pmtypes.HexBytes, error) {
			return m.Key(ctx, r, args...)
		},
	}
}

func ValueQuery[V any](v chain.StorageValue[V]) Query {
	return Query{
		Name: v.Module + "." + v.Item,
		key: func(ctx context.Context, r chain.Reader) (pmtypes.HexBytes, error) {
			return v.Key(ctx, r)
		},
	}
}

func queryKeys(ctx context.Context, r chain.Reader, queries []Query) ([]pmtypes.HexBytes, error) {
	if len(queries) == 0 {
		return nil, pmerrors.New(ctx, pmerrors.KindValidation, msgs.MsgQueryNoQueries)
	}
	keys := make([]pmtypes.HexBytes, len(queries))
	for i, q := range queries {
		key, err := q.key(ctx, r)
		if err != nil {
			return nil, err
		}
		keys[i] = key
	}
	return keys, nil
}

// RequestMulti reads the items in one request. Values are raw, in query order,
// and nil where the item is absent.
func RequestMulti(ctx context.Context, r chain.Reader, queries ...Query) ([]pmtypes.HexBytes, error) {
	keys, err := queryKeys(ctx, r, queries)
	if err != nil {
		return nil, err
	}
	return r.Chain().QueryStorageAt(ctx, keys, nil)
}

// Subscriber reads and watches storage, counting active subscriptions
type Subscriber interface {
	chain.Reader
	Metrics() metrics.SDKMetrics
}

// StorageCallback receives the values of the items, or the KindConnection error
// that ended the subscription. A call with an error is the last call.
type StorageCallback func(values []pmtypes.HexBytes, err error)

type storageUpdate struct {
	values []pmtypes.HexBytes
	err    error
}

// SubscribeMulti calls back with the values of all the items, first with the
// current values and then every time any of them changes. The returned handle
// is idempotent, and no callback begins once it has returned. When the node
// ends the subscription, the callback gets the error and the subscription is
// released without waiting for the handle.
func SubscribeMulti(ctx context.Context, r Subscriber, callback StorageCallback, queries ...Query) (subscription.UnsubCallback, error) {
	keys, err := queryKeys(ctx, r, queries)
	if err != nil {
		return nil, err
	}

	var mux sync.Mutex
	var sub chain.Subscription
	released, ended := false, false
	bgCtx := context.WithoutCancel(ctx)
	release := func() {
		mux.Lock()
		released = true
		s := sub
		live := !ended
		mux.Unlock()
		if s != nil && live {
			if err := s.Unsubscribe(bgCtx); err != nil {
				log.L(bgCtx).Warnf("Failed to unsubscribe from storage: %s", err)
			}
		}
		r.Metrics().DecActiveSubscriptions()
	}
	dispatcher := subscription.NewDispatcher(func(u *storageUpdate) {
		callback(u.values, u.err)
	}, release)

	current := make([]pmtypes.HexBytes, len(keys))
	var stateMux sync.Mutex
	handler := func(changes *chain.StorageChangeSet, err error) {
		if err != nil {
			log.L(bgCtx).Warnf("Storage subscription to %d items interrupted: %s", len(keys), err)
			mux.Lock()
			ended = true
			mux.Unlock()
			dispatcher.Deliver(&storageUpdate{
				err: pmerrors.Wrap(bgCtx, pmerrors.KindConnection, err, msgs.MsgQuerySubscriptionEnded, len(keys), err),
			})
			dispatcher.Unsubscribe()
			return
		}
		stateMux.Lock()
		for i, k := range keys {
			if v, ok := changes.Value(k); ok {
				current[i] = v
			}
		}
		values := make([]pmtypes.HexBytes, len(current))
		copy(values, current)
		stateMux.Unlock()
		dispatcher.Deliver(&storageUpdate{values: values})
	}

	r.Metrics().IncActiveSubscriptions()
	s, err := r.Chain().SubscribeStorage(ctx, keys, handler)
	if err != nil {
		dispatcher.Unsubscribe()
		return nil, err
	}
	mux.Lock()
	sub = s
	unsubscribeNow := released && !ended
	mux.Unlock()
	if unsubscribeNow {
		// the callback unsubscribed before the subscription was returned
		_ = s.Unsubscribe(bgCtx)
	}
	return dispatcher.UnsubCallback(), nil
}

// RequestPaginated reads one page of the entries of the map under the prefix
// args. Entries come in the order the node iterates them. A nil LastKey means
// there are no more entries, and nil options read every entry.
func RequestPaginated[V any](ctx context.Context, r chain.Reader, m chain.StorageMap[V], opts *pmapi.PaginationOptions, prefixArgs ...any) (*pmapi.PaginatedEntries[*chain.Entry[V]], error) {
	if opts == nil {
		entries, err := m.Entries(ctx, r, prefixArgs...)
		if err != nil {
			return nil, err
		}
		return &pmapi.PaginatedEntries[*chain.Entry[V]]{Entries: entries}, nil
	}
	if opts.Size <= 0 {
		return nil, pmerrors.New(ctx, pmerrors.KindValidation, msgs.MsgQueryInvalidPageSize, opts.Size)
	}
	entries, lastKey, err := m.EntriesPage(ctx, r, opts.Size, opts.Start, prefixArgs...)
	if err != nil {
		return nil, err
	}
	return &pmapi.PaginatedEntries[*chain.Entry[V]]{Entries: entries, LastKey: lastKey}, nil
}

// CalculateNextKey is the start of the page after the one at start, or nil
// when that page is the last
func CalculateNextKey(totalCount, pageSize, start int) *int {
	if start+pageSize >= totalCount {
		return nil
	}
	next := start + pageSize
	return &next
}
