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

package transaction

import (
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmapi"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmtypes"
)

// Transaction submits exactly one chain call
type Transaction[T any] struct {
	*queue[T]
}

func NewTransaction[T any](s Submitter, call *pmapi.ChainCall, fees *pmapi.PayingAccountFees, opts *Options[T]) *Transaction[T] {
	return &Transaction[T]{
		queue: newQueue(s, pmapi.TxKindSingle, call, []*pmapi.ChainCall{call}, fees, opts),
	}
}

func (t *Transaction[T]) Call() *pmapi.ChainCall {
	return t.extrinsic
}

// Leg of a batch, with the protocol fee charged for it
type Leg struct {
	Call        *pmapi.ChainCall `json:"call"`
	ProtocolFee pmtypes.Balance  `json:"protocolFee"`
}

// Batch submits its legs as a single utility.batchAll extrinsic, so either every
// leg takes effect or none does. Legs have no status of their own.
type Batch[T any] struct {
	*queue[T]
	legs []*Leg
}

func NewBatch[T any](s Submitter, legs []*Leg, fees *pmapi.PayingAccountFees, opts *Options[T]) *Batch[T] {
	calls := make([]*pmapi.ChainCall, len(legs))
	for i, l := range legs {
		calls[i] = l.Call
	}
	return &Batch[T]{
		queue: newQueue(s, pmapi.TxKindBatch, pmapi.BatchAll(calls), calls, fees, opts),
		legs:  legs,
	}
}

func (b *Batch[T]) Legs() []*Leg {
	return b.legs
}

// Prepared is the result of preparing a procedure: a single transaction when it
// built one call, and a batch when it built several. Exactly one is set.
type Prepared[T any] struct {
	Kind        pmapi.TxKind
	Transaction *Transaction[T]
	Batch       *Batch[T]
}

func Single[T any](tx *Transaction[T]) *Prepared[T] {
	return &Prepared[T]{Kind: pmapi.TxKindSingle, Transaction: tx}
}

func Batched[T any](b *Batch[T]) *Prepared[T] {
	return &Prepared[T]{Kind: pmapi.TxKindBatch, Batch: b}
}

// Queue returns whichever of the two is set, for callers that do not need to
// distinguish them
func (p *Prepared[T]) Queue() Queue[T] {
	if p.Kind == pmapi.TxKindBatch {
		return p.Batch
	}
	return p.Transaction
}
