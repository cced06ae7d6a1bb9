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
	"context"
	"errors"
	"sync"

	"github.com/PolymeshAssociation/polymesh-sdk-sub000/internal/msgs"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/log"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/metrics"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmapi"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmcontext"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmerrors"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmtypes"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/subscription"
	"github.com/google/uuid"
	"github.com/hyperledger/firefly-common/pkg/i18n"
)

// Queue is the common surface of a single transaction and an atomic batch
type Queue[T any] interface {
	ID() uuid.UUID
	Kind() pmapi.TxKind
	Status() pmapi.TxStatus
	// Calls in submission order. A batch submits them as one extrinsic.
	Calls() []*pmapi.ChainCall
	Fees() *pmapi.PayingAccountFees
	TxHash() pmtypes.HexBytes
	// Run submits the transaction and waits for it to complete. Returning early
	// because ctx is done does not stop tracking the submitted extrinsic.
	Run(ctx context.Context) (T, error)
	// Wait for a running transaction to reach a terminal status
	Wait(ctx context.Context) (T, error)
	// Abort an idle transaction, so that it can never run
	Abort(ctx context.Context) error
	Error() error
	Receipt() *pmapi.TxReceipt
	Result(ctx context.Context) (T, error)
	OnStatusChange(listener func(change *pmapi.StatusChange)) subscription.UnsubCallback
}

// Submitter is the part of the context a transaction needs to run
type Submitter interface {
	SubmitAndWatch(ctx context.Context, req *pmcontext.SubmitRequest, handler pmcontext.SubmissionHandler) (pmtypes.HexBytes, error)
	WaitForFinalization() bool
	Metrics() metrics.SDKMetrics
	BackgroundContext() context.Context
}

// Resolver turns the receipt of a successful transaction into its result. It
// must not perform I/O beyond reading the receipt.
type Resolver[T any] func(ctx context.Context, receipt *pmapi.TxReceipt) (T, error)

type Options[T any] struct {
	// procedure that built the transaction, for logging
	Name     string
	Signer   string
	Nonce    *uint64
	Resolver Resolver[T]
}

type queue[T any] struct {
	id        uuid.UUID
	kind      pmapi.TxKind
	submitter Submitter
	extrinsic *pmapi.ChainCall
	calls     []*pmapi.ChainCall
	fees      *pmapi.PayingAccountFees
	opts      Options[T]

	mux          sync.Mutex
	status       pmapi.TxStatus
	txHash       pmtypes.HexBytes
	err          error
	receipt      *pmapi.TxReceipt
	result       T
	done         chan struct{}
	listeners    map[int]func(change *pmapi.StatusChange)
	nextListener int
}

func newQueue[T any](s Submitter, kind pmapi.TxKind, extrinsic *pmapi.ChainCall, calls []*pmapi.ChainCall, fees *pmapi.PayingAccountFees, opts *Options[T]) *queue[T] {
	q := &queue[T]{
		id:        uuid.New(),
		kind:      kind,
		submitter: s,
		extrinsic: extrinsic,
		calls:     calls,
		fees:      fees,
		status:    pmapi.TxStatusIdle,
		done:      make(chan struct{}),
		listeners: make(map[int]func(change *pmapi.StatusChange)),
	}
	if opts != nil {
		q.opts = *opts
	}
	return q
}

func (q *queue[T]) ID() uuid.UUID {
	return q.id
}

func (q *queue[T]) Kind() pmapi.TxKind {
	return q.kind
}

func (q *queue[T]) Calls() []*pmapi.ChainCall {
	return q.calls
}

func (q *queue[T]) Fees() *pmapi.PayingAccountFees {
	return q.fees
}

func (q *queue[T]) Status() pmapi.TxStatus {
	q.mux.Lock()
	defer q.mux.Unlock()
	return q.status
}

func (q *queue[T]) TxHash() pmtypes.HexBytes {
	q.mux.Lock()
	defer q.mux.Unlock()
	return q.txHash
}

func (q *queue[T]) Error() error {
	q.mux.Lock()
	defer q.mux.Unlock()
	return q.err
}

func (q *queue[T]) Receipt() *pmapi.TxReceipt {
	q.mux.Lock()
	defer q.mux.Unlock()
	return q.receipt
}

// Result is available once the transaction succeeded
func (q *queue[T]) Result(ctx context.Context) (T, error) {
	q.mux.Lock()
	defer q.mux.Unlock()
	var zero T
	switch q.status {
	case pmapi.TxStatusSucceeded:
		return q.result, nil
	case pmapi.TxStatusFailed, pmapi.TxStatusAborted:
		return zero, q.err
	}
	return zero, pmerrors.New(ctx, pmerrors.KindValidation, msgs.MsgTransactionNotComplete, q.id, q.status)
}

func (q *queue[T]) OnStatusChange(listener func(change *pmapi.StatusChange)) subscription.UnsubCallback {
	q.mux.Lock()
	defer q.mux.Unlock()
	id := q.nextListener
	q.nextListener++
	q.listeners[id] = listener
	return func() {
		q.mux.Lock()
		defer q.mux.Unlock()
		delete(q.listeners, id)
	}
}

var errTerminal = errors.New("terminal")

func notTerminal(current pmapi.TxStatus) error {
	if current.IsTerminal() {
		return errTerminal
	}
	return nil
}

// transition moves to the new status when allowed accepts the current one,
// applying the update under the same lock, then notifies listeners
func (q *queue[T]) transition(ctx context.Context, status pmapi.TxStatus, allowed func(current pmapi.TxStatus) error, update func()) error {
	q.mux.Lock()
	if err := allowed(q.status); err != nil {
		q.mux.Unlock()
		return err
	}
	if update != nil {
		update()
	}
	q.status = status
	if status.IsTerminal() {
		close(q.done)
	}
	change := &pmapi.StatusChange{ID: q.id, Status: status, TxHash: q.txHash, Error: q.err}
	listeners := make([]func(change *pmapi.StatusChange), 0, len(q.listeners))
	for i := 0; i < q.nextListener; i++ {
		if l, ok := q.listeners[i]; ok {
			listeners = append(listeners, l)
		}
	}
	q.mux.Unlock()

	log.L(ctx).Infof("Transaction %s (%s) status=%s", q.id, q.extrinsic, status)
	for _, l := range listeners {
		l(change)
	}
	return nil
}

func (q *queue[T]) Abort(ctx context.Context) error {
	return q.transition(ctx, pmapi.TxStatusAborted, func(current pmapi.TxStatus) error {
		if current != pmapi.TxStatusIdle {
			return pmerrors.New(ctx, pmerrors.KindValidation, msgs.MsgTransactionCannotAbort, q.id, current)
		}
		return nil
	}, func() {
		q.err = pmerrors.New(ctx, pmerrors.KindValidation, msgs.MsgTransactionAborted, q.id)
	})
}

func (q *queue[T]) Run(ctx context.Context) (T, error) {
	var zero T
	err := q.transition(ctx, pmapi.TxStatusRunning, func(current pmapi.TxStatus) error {
		switch current {
		case pmapi.TxStatusIdle:
			return nil
		case pmapi.TxStatusAborted:
			return q.err
		}
		return pmerrors.New(ctx, pmerrors.KindValidation, msgs.MsgTransactionNotIdle, q.id, current)
	}, nil)
	if err != nil {
		return zero, err
	}
	q.submitter.Metrics().IncTransactionsSubmitted()

	// tracking outlives the call that started it
	trackCtx := log.WithLogField(q.submitter.BackgroundContext(), "txID", q.id.String())
	waitFinal := q.submitter.WaitForFinalization()
	txHash, err := q.submitter.SubmitAndWatch(ctx, &pmcontext.SubmitRequest{
		Call:   q.extrinsic,
		Signer: q.opts.Signer,
		Nonce:  q.opts.Nonce,
	}, func(u *pmapi.SubmissionUpdate) {
		q.onUpdate(trackCtx, waitFinal, u)
	})
	if err != nil {
		q.fail(ctx, err, nil)
		return zero, q.Error()
	}
	q.mux.Lock()
	q.txHash = txHash
	q.mux.Unlock()
	return q.Wait(ctx)
}

func (q *queue[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-q.done:
	case <-ctx.Done():
		var zero T
		return zero, pmerrors.Wrap(ctx, pmerrors.KindUnexpected, ctx.Err(), msgs.MsgContextCanceled)
	}
	return q.Result(ctx)
}

func (q *queue[T]) onUpdate(ctx context.Context, waitFinal bool, u *pmapi.SubmissionUpdate) {
	q.mux.Lock()
	if q.txHash == nil {
		q.txHash = u.TxHash
	}
	q.mux.Unlock()

	switch u.Type {
	case pmapi.SubmissionInBlock:
		if !waitFinal {
			q.complete(ctx, u.Receipt)
		}
	case pmapi.SubmissionFinalized:
		q.complete(ctx, u.Receipt)
	case pmapi.SubmissionRejected, pmapi.SubmissionLost, pmapi.SubmissionFinalityTimeout:
		q.fail(ctx, u.Error, nil)
	default:
		log.L(ctx).Debugf("Transaction %s: %s", q.id, u.Type)
	}
}

func (q *queue[T]) complete(ctx context.Context, receipt *pmapi.TxReceipt) {
	if receipt == nil {
		return
	}
	if !receipt.Success {
		de := receipt.DispatchError
		detail := ""
		if de != nil {
			if detail = de.Code(); detail == "" {
				detail = i18n.Expand(ctx, i18n.MessageKey(msgs.MsgTransactionDispatchIndices), de.ModuleIndex, de.ErrorIndex)
			}
		}
		q.fail(ctx, pmerrors.New(ctx, pmerrors.KindChainRejection, msgs.MsgTransactionDispatchFailed, receipt.TxHash, detail).
			WithDispatchError(de), receipt)
		return
	}

	var result T
	var err error
	if q.opts.Resolver != nil {
		result, err = q.opts.Resolver(ctx, receipt)
	}
	if err != nil {
		q.fail(ctx, pmerrors.Wrap(ctx, pmerrors.KindUnexpected, err, msgs.MsgProcedureTransformFailed, q.opts.Name, err), receipt)
		return
	}
	if q.transition(ctx, pmapi.TxStatusSucceeded, notTerminal, func() {
		q.receipt = receipt
		q.result = result
	}) == nil {
		q.submitter.Metrics().IncTransactionsCompleted(string(pmapi.TxStatusSucceeded))
	}
}

func (q *queue[T]) fail(ctx context.Context, err error, receipt *pmapi.TxReceipt) {
	if q.transition(ctx, pmapi.TxStatusFailed, notTerminal, func() {
		q.err = err
		q.receipt = receipt
	}) == nil {
		log.L(ctx).Errorf("Transaction %s failed: %s", q.id, err)
		q.submitter.Metrics().IncTransactionsCompleted(string(pmapi.TxStatusFailed))
	}
}
