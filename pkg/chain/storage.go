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

	"github.com/PolymeshAssociation/polymesh-sdk-sub000/internal/msgs"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmerrors"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmtypes"
)

// DefaultPageSize is the number of keys fetched per request when reading every
// entry of a map
const DefaultPageSize = 1000

// StorageMap is a typed handle to a storage map (or double map) of a pallet
type StorageMap[V any] struct {
	Module string
	Item   string
}

func NewStorageMap[V any](module, item string) StorageMap[V] {
	return StorageMap[V]{Module: module, Item: item}
}

func (m StorageMap[V]) Name() string {
	return m.Module + "." + m.Item
}

// Key of the entry, or a prefix when fewer args are supplied than the map has keys
func (m StorageMap[V]) Key(ctx context.Context, r Reader, args ...any) (pmtypes.HexBytes, error) {
	key, err := r.Codec().StorageKey(ctx, m.Module, m.Item, args...)
	if err != nil {
		return nil, pmerrors.Wrap(ctx, pmerrors.KindValidation, err, msgs.MsgChainStorageKeyFailed, m.Name(), err)
	}
	return key, nil
}

// Get returns nil when the entry is absent
func (m StorageMap[V]) Get(ctx context.Context, r Reader, args ...any) (*V, error) {
	key, err := m.Key(ctx, r, args...)
	if err != nil {
		return nil, err
	}
	raw, err := r.Chain().GetStorageAt(ctx, key, nil)
	if err != nil {
		return nil, err
	}
	return m.Decode(ctx, r, raw)
}

// Decode a raw value of the map, where nil is an absent entry
func (m StorageMap[V]) Decode(ctx context.Context, r Reader, raw pmtypes.HexBytes) (*V, error) {
	if raw == nil {
		return nil, nil
	}
	v := new(V)
	if err := r.Codec().DecodeStorageValue(ctx, m.Module, m.Item, raw, v); err != nil {
		return nil, pmerrors.Wrap(ctx, pmerrors.KindUnexpected, err, msgs.MsgChainStorageDecodeFailed, m.Name(), err)
	}
	return v, nil
}

type Entry[V any] struct {
	Key   pmtypes.HexBytes
	Value *V
	m     StorageMap[V]
	codec Codec
}

// KeyArg decodes argument index of the entry key into v
func (e *Entry[V]) KeyArg(ctx context.Context, index int, v any) error {
	if err := e.codec.DecodeStorageKeyArg(ctx, e.m.Module, e.m.Item, e.Key, index, v); err != nil {
		return pmerrors.Wrap(ctx, pmerrors.KindUnexpected, err, msgs.MsgChainStorageDecodeFailed, e.m.Name(), err)
	}
	return nil
}

// Entries reads every entry under the prefix args, in the order the node returns keys
func (m StorageMap[V]) Entries(ctx context.Context, r Reader, prefixArgs ...any) ([]*Entry[V], error) {
	var all []*Entry[V]
	var start pmtypes.HexBytes
	for {
		page, lastKey, err := m.EntriesPage(ctx, r, DefaultPageSize, start, prefixArgs...)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if lastKey == nil {
			return all, nil
		}
		start = lastKey
	}
}

// EntriesPage reads up to size entries after the start key. The last key is
// returned when the page is full, so there may be more entries.
func (m StorageMap[V]) EntriesPage(ctx context.Context, r Reader, size int, start pmtypes.HexBytes, prefixArgs ...any) ([]*Entry[V], pmtypes.HexBytes, error) {
	prefix, err := m.Key(ctx, r, prefixArgs...)
	if err != nil {
		return nil, nil, err
	}
	keys, err := r.Chain().GetKeysPaged(ctx, prefix, size, start, nil)
	if err != nil {
		return nil, nil, err
	}
	if len(keys) == 0 {
		return []*Entry[V]{}, nil, nil
	}
	values, err := r.Chain().QueryStorageAt(ctx, keys, nil)
	if err != nil {
		return nil, nil, err
	}
	entries := make([]*Entry[V], 0, len(keys))
	for i, key := range keys {
		v, err := m.Decode(ctx, r, values[i])
		if err != nil {
			return nil, nil, err
		}
		if v == nil {
			// removed between the key and value reads
			continue
		}
		entries = append(entries, &Entry[V]{Key: key, Value: v, m: m, codec: r.Codec()})
	}
	var lastKey pmtypes.HexBytes
	if len(keys) == size {
		lastKey = keys[len(keys)-1]
	}
	return entries, lastKey, nil
}

// StorageValue is a typed handle to a single storage value of a pallet
type StorageValue[V any] struct {
	Module string
	Item   string
}

func NewStorageValue[V any](module, item string) StorageValue[V] {
	return StorageValue[V]{Module: module, Item: item}
}

func (sv StorageValue[V]) Key(ctx context.Context, r Reader) (pmtypes.HexBytes, error) {
	return StorageMap[V](sv).Key(ctx, r)
}

func (sv StorageValue[V]) Get(ctx context.Context, r Reader) (*V, error) {
	return StorageMap[V](sv).Get(ctx, r)
}

func (sv StorageValue[V]) Decode(ctx context.Context, r Reader, raw pmtypes.HexBytes) (*V, error) {
	return StorageMap[V](sv).Decode(ctx, r, raw)
}
