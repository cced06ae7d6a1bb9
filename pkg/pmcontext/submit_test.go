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
	"testing"
	"time"

	"github.com/PolymeshAssociation/polymesh-sdk-sub000/internal/chaintest"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/confutil"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmapi"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmconf"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectUpdates() (SubmissionHandler, chan *pmapi.SubmissionUpdate) {
	updates := make(chan *pmapi.SubmissionUpdate, 10)
	return func(u *pmapi.SubmissionUpdate) { updates <- u }, updates
}

func readUntil(t *testing.T, updates chan *pmapi.SubmissionUpdate, last pmapi.SubmissionUpdateType) []*pmapi.SubmissionUpdate {
	var got []*pmapi.SubmissionUpdate
	for {
		select {
		case u := <-updates:
			got = append(got, u)
			if u.Type == last {
				return got
			}
		case <-time.After(5 * time.Second):
			require.FailNow(t, "timed out", "waiting for %s, got %d updates", last, len(got))
		}
	}
}

func assertNoMoreUpdates(t *testing.T, updates chan *pmapi.SubmissionUpdate) {
	select {
	case u := <-updates:
		assert.Fail(t, "unexpected update", "%s", u.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func updateTypes(updates []*pmapi.SubmissionUpdate) []pmapi.SubmissionUpdateType {
	types := make([]pmapi.SubmissionUpdateType, len(updates))
	for i, u := range updates {
		types[i] = u.Type
	}
	return types
}

func testCall() *pmapi.ChainCall {
	return pmapi.NewCall("complianceManager", "pauseAssetCompliance", "ACME")
}

func TestSubmitAndWatchFinalized(t *testing.T) {
	ts := newTestContext(t)
	ctx, c := ts.ctx, ts.c
	handler, updates := collectUpdates()

	txHash, err := c.SubmitAndWatch(ctx, &SubmitRequest{Call: testCall(), Signer: ts.accounts[0]}, handler)
	require.NoError(t, err)

	got := readUntil(t, updates, pmapi.SubmissionFinalized)
	assert.Equal(t, []pmapi.SubmissionUpdateType{pmapi.SubmissionAccepted, pmapi.SubmissionInBlock, pmapi.SubmissionFinalized}, updateTypes(got))
	for _, u := range got {
		assert.Equal(t, txHash, u.TxHash)
	}
	inBlock := got[1].Receipt
	require.NotNil(t, inBlock)
	assert.True(t, inBlock.Success)
	assert.False(t, inBlock.Finalized)
	assert.Equal(t, uint64(1), inBlock.BlockNumber)
	assert.Equal(t, 1, inBlock.ExtrinsicIndex)
	final := got[2].Receipt
	require.NotNil(t, final)
	assert.True(t, final.Finalized)
	assert.Equal(t, inBlock.BlockHash, final.BlockHash)
	assertNoMoreUpdates(t, updates)

	submitted := ts.chain.Submitted()
	require.Len(t, submitted, 1)
	assert.Equal(t, txHash, submitted[0].Hash)
	assert.Equal(t, ts.accounts[0], submitted[0].Extrinsic.Signer)
	assert.Equal(t, uint64(0), submitted[0].Extrinsic.Nonce)
	assert.Equal(t, uint64(64), submitted[0].Extrinsic.MortalityPeriod)
	assert.NotEmpty(t, submitted[0].Extrinsic.Signature)

	// the next submission takes the next nonce
	_, err = c.SubmitAndWatch(ctx, &SubmitRequest{Call: testCall(), Signer: ts.accounts[0]}, handler)
	require.NoError(t, err)
	readUntil(t, updates, pmapi.SubmissionFinalized)
	assert.Equal(t, uint64(1), ts.chain.Submitted()[1].Extrinsic.Nonce)
}

func TestSubmitAndWatchExplicitNonce(t *testing.T) {
	ts := newTestContext(t)
	handler, updates := collectUpdates()
	_, err := ts.c.SubmitAndWatch(ts.ctx, &SubmitRequest{Call: testCall(), Signer: ts.accounts[1], Nonce: confutil.P(uint64(9))}, handler)
	require.NoError(t, err)
	readUntil(t, updates, pmapi.SubmissionFinalized)
	assert.Equal(t, uint64(9), ts.chain.Submitted()[0].Extrinsic.Nonce)
}

func TestSubmitAndWatchDispatchError(t *testing.T) {
	ts := newTestContext(t)
	ts.chain.OnExtrinsic = func(x *chaintest.Extrinsic) *chaintest.ExtrinsicResult {
		return &chaintest.ExtrinsicResult{
			DispatchError: &pmerrors.DispatchError{ModuleIndex: 26, ErrorIndex: 4, Section: "asset", Name: "Unauthorized"},
		}
	}
	handler, updates := collectUpdates()
	_, err := ts.c.SubmitAndWatch(ts.ctx, &SubmitRequest{Call: testCall(), Signer: ts.accounts[0]}, handler)
	require.NoError(t, err)

	got := readUntil(t, updates, pmapi.SubmissionFinalized)
	receipt := got[len(got)-1].Receipt
	require.NotNil(t, receipt)
	assert.False(t, receipt.Success)
	require.NotNil(t, receipt.DispatchError)
	assert.Equal(t, "asset.Unauthorized", receipt.DispatchError.Code())
}

func TestSubmitAndWatchInBlockCompletes(t *testing.T) {
	ts := newTestContext(t, func(conf *pmconf.SDKConfig) {
		conf.Submission.WaitForFinalization = confutil.P(false)
	})
	assert.False(t, ts.c.WaitForFinalization())
	handler, updates := collectUpdates()
	_, err := ts.c.SubmitAndWatch(ts.ctx, &SubmitRequest{Call: testCall(), Signer: ts.accounts[0]}, handler)
	require.NoError(t, err)

	got := readUntil(t, updates, pmapi.SubmissionInBlock)
	assert.Len(t, got, 2)
	assertNoMoreUpdates(t, updates)
}

func TestSubmitAndWatchPoolRejected(t *testing.T) {
	ts := newTestContext(t)
	ts.chain.Script(chaintest.PoolReject)
	handler, updates := collectUpdates()
	_, err := ts.c.SubmitAndWatch(ts.ctx, &SubmitRequest{Call: testCall(), Signer: ts.accounts[0]}, handler)
	assert.Regexp(t, "PM010208", err)
	assert.True(t, pmerrors.Is(err, pmerrors.KindChainRejection))
	assert.Empty(t, ts.chain.Submitted())
	assertNoMoreUpdates(t, updates)
}

func TestSubmitAndWatchConnectionLostBeforeAccept(t *testing.T) {
	ts := newTestContext(t)
	ts.chain.Script(chaintest.LostBeforeAccept)
	handler, _ := collectUpdates()
	_, err := ts.c.SubmitAndWatch(ts.ctx, &SubmitRequest{Call: testCall(), Signer: ts.accounts[0]}, handler)
	assert.True(t, pmerrors.Is(err, pmerrors.KindConnection))
	assert.True(t, pmerrors.IsRetryable(err))
	assert.Empty(t, ts.chain.Submitted())
}

func TestSubmitAndWatchRetriesBeforeAccept(t *testing.T) {
	ts := newTestContext(t, func(conf *pmconf.SDKConfig) {
		conf.Submission.ConnectionRetry.MaxAttempts = confutil.P(3)
	})
	ts.chain.Script(chaintest.LostBeforeAccept, chaintest.LostBeforeAccept)
	handler, updates := collectUpdates()
	_, err := ts.c.SubmitAndWatch(ts.ctx, &SubmitRequest{Call: testCall(), Signer: ts.accounts[0]}, handler)
	require.NoError(t, err)
	readUntil(t, updates, pmapi.SubmissionFinalized)
	assert.Len(t, ts.chain.Submitted(), 1)
}

func TestSubmitAndWatchTerminalFailures(t *testing.T) {
	for _, tc := range []struct {
		behavior chaintest.Behavior
		last     pmapi.SubmissionUpdateType
		kind     pmerrors.Kind
		msg      string
	}{
		{chaintest.Dropped, pmapi.SubmissionRejected, pmerrors.KindChainRejection, "PM010503"},
		{chaintest.Usurped, pmapi.SubmissionRejected, pmerrors.KindChainRejection, "PM010503"},
		{chaintest.LostAfterAccept, pmapi.SubmissionLost, pmerrors.KindConnection, "PM010206"},
		{chaintest.FinalityTimeout, pmapi.SubmissionFinalityTimeout, pmerrors.KindUnexpected, "PM010505"},
	} {
		ts := newTestContext(t)
		ts.chain.Script(tc.behavior)
		handler, updates := collectUpdates()
		_, err := ts.c.SubmitAndWatch(ts.ctx, &SubmitRequest{Call: testCall(), Signer: ts.accounts[0]}, handler)
		require.NoError(t, err)

		got := readUntil(t, updates, tc.last)
		assert.Equal(t, pmapi.SubmissionAccepted, got[0].Type)
		last := got[len(got)-1]
		assert.True(t, last.Type.IsTerminal())
		assert.Regexp(t, tc.msg, last.Error)
		assert.True(t, pmerrors.Is(last.Error, tc.kind), "%s", last.Error)
		assertNoMoreUpdates(t, updates)
	}
}

func TestSubmitAndWatchStatusTimeout(t *testing.T) {
	ts := newTestContext(t, func(conf *pmconf.SDKConfig) {
		conf.Submission.StatusTimeout = confutil.P("20ms")
	})
	ts.chain.Hold()
	handler, updates := collectUpdates()
	_, err := ts.c.SubmitAndWatch(ts.ctx, &SubmitRequest{Call: testCall(), Signer: ts.accounts[0]}, handler)
	require.NoError(t, err)

	got := readUntil(t, updates, pmapi.SubmissionLost)
	assert.Len(t, got, 1)
	assert.Regexp(t, "PM010205", got[0].Error)
	assert.True(t, pmerrors.IsRetryable(got[0].Error))

	ts.chain.Release()
	assertNoMoreUpdates(t, updates)
}

func TestSubmitAndWatchDisconnect(t *testing.T) {
	ts := newTestContext(t)
	ts.chain.Hold()
	defer ts.chain.Release()
	handler, updates := collectUpdates()
	_, err := ts.c.SubmitAndWatch(ts.ctx, &SubmitRequest{Call: testCall(), Signer: ts.accounts[0]}, handler)
	require.NoError(t, err)

	ts.c.Disconnect()
	got := readUntil(t, updates, pmapi.SubmissionLost)
	assert.Regexp(t, "PM010307", got[0].Error)
}

func TestSubmitNoSigner(t *testing.T) {
	ts := newTestContext(t)
	handler, _ := collectUpdates()
	_, err := ts.c.SubmitAndWatch(ts.ctx, &SubmitRequest{Call: testCall()}, handler)
	assert.Regexp(t, "PM010300", err)
}
