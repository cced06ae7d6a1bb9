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

package pmcontext

import (
	"context"
	"sync"
	"time"

	"github.com/PolymeshAssociation/polymesh-sdk-sub000/internal/msgs"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/chain"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/confutil"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/log"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmapi"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmconf"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmerrors"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmtypes"
)

type SubmitRequest struct {
	Call   *pmapi.ChainCall
	Signer string
	// next index of the signer when nil
	Nonce *uint64
}

// SubmissionHandler receives the updates of a submitted extrinsic in order. It
// must not block, as it runs on the routine tracking the extrinsic.
type SubmissionHandler func(update *pmapi.SubmissionUpdate)

func (c *Context) mortalityPeriod() uint64 {
	return uint64(confutil.IntMin(c.conf.Submission.MortalityPeriod, 0, *pmconf.SubmissionDefaults.MortalityPeriod))
}

// SubmitAndWatch signs and submits the call, returning the extrinsic hash once the
// node has accepted it. Progress is then reported to the handler, ending with
// exactly one terminal update unless the context is disconnected first.
func (c *Context) SubmitAndWatch(ctx context.Context, req *SubmitRequest, handler SubmissionHandler) (pmtypes.HexBytes, error) {
	if c.signer == nil || req.Signer == "" {
		return nil, pmerrors.New(ctx, pmerrors.KindValidation, msgs.MsgContextNoSigningAccount)
	}
	ch := c.Chain()
	if ch == nil {
		return nil, pmerrors.New(ctx, pmerrors.KindConnection, msgs.MsgChainNotConnected)
	}

	var nonce uint64
	if req.Nonce != nil {
		nonce = *req.Nonce
	} else {
		err := c.submissionRetry.DoRetryable(ctx, func(attempt int) (err error) {
			nonce, err = ch.AccountNextIndex(ctx, req.Signer)
			return err
		})
		if err != nil {
			return nil, err
		}
	}

	ext, err := c.codec.EncodeExtrinsic(ctx, &chain.ExtrinsicRequest{
		Call:            req.Call,
		Signer:          req.Signer,
		Nonce:           nonce,
		MortalityPeriod: c.mortalityPeriod(),
		Sign: func(ctx context.Context, payload []byte) ([]byte, error) {
			sig, err := c.signer.Sign(ctx, req.Signer, payload)
			if err != nil {
				return nil, pmerrors.Wrap(ctx, pmerrors.KindValidation, err, msgs.MsgContextSigningFailed, req.Signer, err)
			}
			return sig, nil
		},
	})
	if err != nil {
		return nil, err
	}

	bgCtx := c.BackgroundContext()
	s := &submission{
		c:         c,
		ctx:       log.WithLogField(bgCtx, "tx", req.Call.String()),
		txHash:    chain.ExtrinsicHash(ext),
		handler:   handler,
		waitFinal: c.WaitForFinalization(),
		timeout:   confutil.DurationMin(c.conf.Submission.StatusTimeout, 0, *pmconf.SubmissionDefaults.StatusTimeout),
	}

	var sub chain.Subscription
	err = c.submissionRetry.DoRetryable(ctx, func(attempt int) (err error) {
		sub, err = ch.SubmitAndWatchExtrinsic(ctx, ext, s.onStatus)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.L(ctx).Infof("Submitted %s as %s (signer=%s nonce=%d)", req.Call, s.txHash, req.Signer, nonce)
	s.started(sub)
	return s.txHash, nil
}

// submission maps the pool statuses of one extrinsic to updates
type submission struct {
	c         *Context
	ctx       context.Context
	txHash    pmtypes.HexBytes
	handler   SubmissionHandler
	waitFinal bool
	timeout   time.Duration

	mux         sync.Mutex
	deliverMux  sync.Mutex
	sub         chain.Subscription
	accepted    bool
	done        bool
	timer       *time.Timer
	stopOnClose func() bool
}

func (s *submission) started(sub chain.Subscription) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.sub = sub
	if s.done {
		// a terminal status arrived before the subscription was returned
		go s.unsubscribe(sub)
		return
	}
	if s.timeout > 0 {
		s.timer = time.AfterFunc(s.timeout, s.timedOut)
	}
	s.stopOnClose = context.AfterFunc(s.ctx, func() {
		s.deliver(&pmapi.SubmissionUpdate{
			Type:  pmapi.SubmissionLost,
			Error: pmerrors.New(s.ctx, pmerrors.KindConnection, msgs.MsgContextDisconnected),
		}, true)
	})
}

func (s *submission) unsubscribe(sub chain.Subscription) {
	if err := sub.Unsubscribe(context.WithoutCancel(s.ctx)); err != nil {
		log.L(s.ctx).Warnf("Failed to stop watching %s: %s", s.txHash, err)
	}
}

func (s *submission) timedOut() {
	s.deliver(&pmapi.SubmissionUpdate{
		Type:  pmapi.SubmissionLost,
		Error: pmerrors.New(s.ctx, pmerrors.KindConnection, msgs.MsgChainConnectionLost, "no status update for "+s.timeout.String()),
	}, true)
}

// deliver passes the update to the handler unless a terminal update was already
// delivered. Terminal updates stop the watch.
func (s *submission) deliver(update *pmapi.SubmissionUpdate, terminal bool) {
	update.TxHash = s.txHash
	s.deliverMux.Lock()
	defer s.deliverMux.Unlock()

	s.mux.Lock()
	if s.done {
		s.mux.Unlock()
		return
	}
	if update.Type == pmapi.SubmissionAccepted {
		if s.accepted {
			s.mux.Unlock()
			return
		}
		s.accepted = true
	}
	if terminal {
		s.done = true
		if s.timer != nil {
			s.timer.Stop()
		}
		if s.stopOnClose != nil {
			s.stopOnClose()
		}
		if s.sub != nil {
			go s.unsubscribe(s.sub)
		}
	} else if s.timer != nil {
		s.timer.Reset(s.timeout)
	}
	s.mux.Unlock()

	log.L(s.ctx).Debugf("Submission %s: %s", s.txHash, update.Type)
	s.handler(update)
}

func (s *submission) onStatus(status *chain.ExtrinsicStatus, err error) {
	ctx := s.ctx
	if err != nil {
		s.deliver(&pmapi.SubmissionUpdate{
			Type:  pmapi.SubmissionLost,
			Error: pmerrors.WithKind(pmerrors.KindConnection, err),
		}, true)
		return
	}
	switch status.Type {
	case chain.ExtrinsicFuture, chain.ExtrinsicReady, chain.ExtrinsicBroadcast:
		s.deliver(&pmapi.SubmissionUpdate{Type: pmapi.SubmissionAccepted}, false)
	case chain.ExtrinsicInBlock:
		s.deliver(&pmapi.SubmissionUpdate{Type: pmapi.SubmissionAccepted}, false)
		s.deliverReceipt(ctx, pmapi.SubmissionInBlock, status.Hash, !s.waitFinal)
	case chain.ExtrinsicFinalized:
		s.deliverReceipt(ctx, pmapi.SubmissionFinalized, status.Hash, true)
	case chain.ExtrinsicRetracted:
		s.deliver(&pmapi.SubmissionUpdate{Type: pmapi.SubmissionRetracted, BlockHash: status.Hash}, false)
	case chain.ExtrinsicFinalityTimeout:
		s.deliver(&pmapi.SubmissionUpdate{
			Type:      pmapi.SubmissionFinalityTimeout,
			BlockHash: status.Hash,
			Error:     pmerrors.New(ctx, pmerrors.KindUnexpected, msgs.MsgTransactionFinalityTimeout, s.txHash),
		}, true)
	case chain.ExtrinsicUsurped, chain.ExtrinsicDropped, chain.ExtrinsicInvalid:
		s.deliver(&pmapi.SubmissionUpdate{
			Type:  pmapi.SubmissionRejected,
			Error: pmerrors.New(ctx, pmerrors.KindChainRejection, msgs.MsgTransactionPoolRejected, s.txHash, status.Type),
		}, true)
	default:
		log.L(ctx).Warnf("Ignoring status %s for %s", status.Type, s.txHash)
	}
}

func (s *submission) deliverReceipt(ctx context.Context, updateType pmapi.SubmissionUpdateType, blockHash pmtypes.HexBytes, terminal bool) {
	outcome, err := chain.DecodeOutcome(ctx, s.c, blockHash, s.txHash)
	if err != nil {
		// included, but what happened cannot be determined
		s.deliver(&pmapi.SubmissionUpdate{Type: pmapi.SubmissionLost, BlockHash: blockHash, Error: err}, true)
		return
	}
	s.deliver(&pmapi.SubmissionUpdate{
		Type:      updateType,
		BlockHash: blockHash,
		Receipt: &pmapi.TxReceipt{
			TxHash:         s.txHash,
			BlockHash:      blockHash,
			BlockNumber:    outcome.Block.Number,
			ExtrinsicIndex: outcome.ExtrinsicIndex,
			Success:        outcome.Success,
			Finalized:      updateType == pmapi.SubmissionFinalized,
			Events:         outcome.Events,
			DispatchError:  outcome.DispatchError,
		},
	}, terminal)
}
