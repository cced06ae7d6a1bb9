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

	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pallets"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmapi"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmerrors"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProtocolFeeCached(t *testing.T) {
	ts := newTestContext(t)
	ctx, c := ts.ctx, ts.c
	ts.chain.Set("protocolFee", "baseFees", pmtypes.BalanceFromWhole(250), "AssetIssue")
	ts.chain.Set("protocolFee", "coefficient", &pallets.PosRatio{Numerator: 3, Denominator: 2})

	fee, err := c.ProtocolFee(ctx, "asset.issue")
	require.NoError(t, err)
	assert.True(t, fee.Equals(pmtypes.BalanceFromWhole(375)), fee.String())

	ts.chain.Set("protocolFee", "baseFees", pmtypes.BalanceFromWhole(1), "AssetIssue")
	fee, err = c.ProtocolFee(ctx, "asset.issue")
	require.NoError(t, err)
	assert.True(t, fee.Equals(pmtypes.BalanceFromWhole(375)), fee.String())

	fee, err = c.ProtocolFee(ctx, "complianceManager.pauseAssetCompliance")
	require.NoError(t, err)
	assert.True(t, fee.IsZero())

	// an op without a stored base fee is free
	fee, err = c.ProtocolFee(ctx, "identity.addClaim")
	require.NoError(t, err)
	assert.True(t, fee.IsZero())
}

func TestFeesNoCalls(t *testing.T) {
	ts := newTestContext(t)
	_, err := ts.c.Fees(ts.ctx, ts.accounts[0], nil)
	assert.Regexp(t, "PM010309", err)
	assert.True(t, pmerrors.Is(err, pmerrors.KindValidation))

	_, err = ts.c.EstimateFees(ts.ctx, ts.accounts[0], []*pmapi.ChainCall{})
	assert.Regexp(t, "PM010309", err)
}

func TestEstimateFeesCaller(t *testing.T) {
	ts := newTestContext(t)
	ctx, c := ts.ctx, ts.c
	ts.chain.AddIdentity("0xa1", ts.accounts[0])
	ts.chain.Set("protocolFee", "baseFees", pmtypes.BalanceFromWhole(100), "AssetIssue")
	ts.chain.SetFee(2500)

	issue := pmapi.NewCall("asset", "issue", "ACME", pmtypes.BalanceFromWhole(5))
	res, err := c.EstimateFees(ctx, ts.accounts[0], []*pmapi.ChainCall{issue})
	require.NoError(t, err)
	assert.True(t, res.Fees.Protocol.Equals(pmtypes.BalanceFromWhole(100)))
	assert.True(t, res.Fees.Gas.Equals(pmtypes.BalanceFromUnits(2500)))
	assert.Equal(t, pmapi.PayingAccountCaller, res.PayingAccount.Type)
	assert.Equal(t, ts.accounts[0], res.PayingAccount.Account)
	assert.Nil(t, res.PayingAccount.Allowance)
	assert.True(t, res.FreeBalance.Equals(pmtypes.BalanceFromWhole(1000)))
	assert.Equal(t, 1, ts.chain.FeeQueries())

	// a batch is quoted once, as a single extrinsic
	res, err = c.EstimateFees(ctx, ts.accounts[0], []*pmapi.ChainCall{issue, issue})
	require.NoError(t, err)
	assert.True(t, res.Fees.Protocol.Equals(pmtypes.BalanceFromWhole(200)))
	assert.Equal(t, 2, ts.chain.FeeQueries())

	ts.chain.SetBalance(ts.accounts[0], pmtypes.BalanceFromWhole(150))
	_, err = c.EstimateFees(ctx, ts.accounts[0], []*pmapi.ChainCall{issue, issue})
	assert.Regexp(t, "PM010303", err)
	assert.True(t, pmerrors.Is(err, pmerrors.KindValidation))

	_, err = c.EstimateFees(ctx, ts.accounts[1], []*pmapi.ChainCall{issue})
	assert.Regexp(t, "PM010303", err)
}

func TestEstimateFeesSubsidy(t *testing.T) {
	ts := newTestContext(t)
	ctx, c := ts.ctx, ts.c
	ts.chain.SetBalance(ts.accounts[1], pmtypes.BalanceFromWhole(0))
	ts.chain.SetBalance(ts.accounts[2], pmtypes.BalanceFromWhole(10))
	ts.chain.Set("relayer", "subsidies", &pallets.Subsidy{PayingKey: ts.accounts[2], Remaining: pmtypes.BalanceFromWhole(5)}, ts.accounts[1])

	call := pmapi.NewCall("identity", "addClaim", "0xa1")
	res, err := c.EstimateFees(ctx, ts.accounts[1], []*pmapi.ChainCall{call})
	require.NoError(t, err)
	assert.Equal(t, pmapi.PayingAccountSubsidy, res.PayingAccount.Type)
	assert.Equal(t, ts.accounts[2], res.PayingAccount.Account)
	require.NotNil(t, res.PayingAccount.Allowance)
	assert.True(t, res.PayingAccount.Allowance.Equals(pmtypes.BalanceFromWhole(5)))
	assert.True(t, res.FreeBalance.Equals(pmtypes.BalanceFromWhole(10)))

	ts.chain.Set("relayer", "subsidies", &pallets.Subsidy{PayingKey: ts.accounts[2], Remaining: pmtypes.BalanceFromUnits(10)}, ts.accounts[1])
	_, err = c.EstimateFees(ctx, ts.accounts[1], []*pmapi.ChainCall{call})
	assert.Regexp(t, "PM010308", err)
}
