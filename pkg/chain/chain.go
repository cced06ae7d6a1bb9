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
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/log"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmapi"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmerrors"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmtypes"
	"golang.org/x/crypto/blake2b"
)

// Subscription is a live subscription against the node. Unsubscribe is idempotent.
type Subscription interface {
	Unsubscribe(ctx context.Context) error
}

// StorageHandler receives change sets in order. A call with an error is the last
// call, and means the subscription has ended.
type StorageHandler func(changes *StorageChangeSet, err error)

// StatusHandler receives pool status updates of a submitted extrinsic in order.
// A call with an error is the last call.
type StatusHandler func(status *ExtrinsicStatus, err error)

// Chain is the raw interface to a chain node. A nil block hash reads the best block.
//
// Errors reaching the node are pmerrors.KindConnection. SubmitAndWatchExtrinsic
// returns an error only when the extrinsic was not accepted, and once accepted
// reports a lost connection through the handler.
type Chain interface {
	// QueryStorageAt returns the values aligned with the keys, nil where absent
	QueryStorageAt(ctx context.Context, keys []pmtypes.HexBytes, at pmtypes.HexBytes) ([]pmtypes.HexBytes, error)
	GetStorageAt(ctx context.Context, key pmtypes.HexBytes, at pmtypes.HexBytes) (pmtypes.HexBytes, error)
	// GetKeysPaged returns up to count keys with the prefix, after startKey
	GetKeysPaged(ctx context.Context, prefix pmtypes.HexBytes, count int, startKey pmtypes.HexBytes, at pmtypes.HexBytes) ([]pmtypes.HexBytes, error)
	SubscribeStorage(ctx context.Context, keys []pmtypes.HexBytes, handler StorageHandler) (Subscription, error)
	AccountNextIndex(ctx context.Context, address string) (uint64, error)
	PaymentInfo(ctx context.Context, ext pmtypes.HexBytes) (*PaymentInfo, error)
	SubmitAndWatchExtrinsic(ctx context.Context, ext pmtypes.HexBytes, handler StatusHandler) (Subscription, error)
	GetBlock(ctx context.Context, hash pmtypes.HexBytes) (*Block, error)
	Close()
}

// SignFunc signs the signing payload built by the codec
type SignFunc func(ctx context.Context, payload []byte) ([]byte, error)

type ExtrinsicRequest struct {
	Call   *pmapi.ChainCall
	Signer string
	Nonce  uint64
	// blocks the extrinsic stays valid for, zero for immortal
	MortalityPeriod uint64
	// nil encodes with a placeholder signature, for fee estimation only
	Sign SignFunc
}

// Codec owns the wire encoding of storage and extrinsics for a runtime version
type Codec interface {
	// StorageKey of an item, or with fewer args than the item has keys, the prefix
	// shared by all entries under those args
	StorageKey(ctx context.Context, module, item string, args ...any) (pmtypes.HexBytes, error)
	DecodeStorageKeyArg(ctx context.Context, module, item string, key pmtypes.HexBytes, index int, v any) error
	DecodeStorageValue(ctx context.Context, module, item string, raw pmtypes.HexBytes, v any) error
	EncodeExtrinsic(ctx context.Context, req *ExtrinsicRequest) (pmtypes.HexBytes, error)
	DecodeEvents(ctx context.Context, raw pmtypes.HexBytes) ([]*EventRecord, error)
	// DecodeDispatchError of a system.ExtrinsicFailed event
	DecodeDispatchError(ctx context.Context, ev *EventRecord) (*pmerrors.DispatchError, error)
}

// Reader gives storage handles access to the node and its codec
type Reader interface {
	Chain() Chain
	Codec() Codec
}

// ExtrinsicHash is the blake2b-256 hash of the encoded extrinsic
func ExtrinsicHash(ext pmtypes.HexBytes) pmtypes.HexBytes {
	h := blake2b.Sum256(ext)
	return h[:]
}

var systemEvents = NewStorageValue[pmtypes.RawJSON]("system", "events")

// DecodeOutcome finds the extrinsic in the block and decodes its events
func DecodeOutcome(ctx context.Context, r Reader, blockHash, txHash pmtypes.HexBytes) (*Outcome, error) {
	block, err := r.Chain().GetBlock(ctx, blockHash)
	if err != nil {
		return nil, err
	}
	index := -1
	for i, ext := range block.Extrinsics {
		if ExtrinsicHash(ext).Equals(txHash) {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, pmerrors.New(ctx, pmerrors.KindUnexpected, msgs.MsgChainExtrinsicNotInBlock, txHash, blockHash)
	}

	key, err := systemEvents.Key(ctx, r)
	if err != nil {
		return nil, err
	}
	raw, err := r.Chain().GetStorageAt(ctx, key, blockHash)
	if err != nil {
		return nil, err
	}
	records, err := r.Codec().DecodeEvents(ctx, raw)
	if err != nil {
		return nil, pmerrors.Wrap(ctx, pmerrors.KindUnexpected, err, msgs.MsgChainOutcomeDecodeFailed, txHash, err)
	}

	outcome := &Outcome{Block: block, ExtrinsicIndex: index}
	for _, er := range records {
		if er.ApplyExtrinsic == nil || *er.ApplyExtrinsic != index {
			continue
		}
		outcome.Events = append(outcome.Events, er.ChainEvent())
		if er.Module != "system" {
			continue
		}
		switch er.Name {
		case "ExtrinsicSuccess":
			outcome.Success = true
		case "ExtrinsicFailed":
			de, err := r.Codec().DecodeDispatchError(ctx, er)
			if err != nil {
				return nil, pmerrors.Wrap(ctx, pmerrors.KindUnexpected, err, msgs.MsgChainOutcomeDecodeFailed, txHash, err)
			}
			outcome.DispatchError = de
		}
	}
	log.L(ctx).Debugf("Extrinsic %s at %d/%d success=%t events=%d", txHash, block.Number, index, outcome.Success, len(outcome.Events))
	return outcome, nil
}
