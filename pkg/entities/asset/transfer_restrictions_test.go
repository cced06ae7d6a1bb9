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

package asset

import (
	"testing"

	"github.com/PolymeshAssociation/polymesh-sdk-sub000/internal/sdktest"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/confutil"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pallets"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmapi"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmerrors"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var acmeScope = pallets.AssetScope{Ticker: "ACME"}

func setTransferConditions(s *sdktest.Setup, conditions ...pallets.TransferCondition) {
	s.Chain.Set("statistics", "assetTransferCompliances", &pallets.AssetTransferCompliance{Requirements: conditions}, acmeScope)
}

func enableStats(s *sdktest.Setup, ops ...pallets.StatOpType) {
	stats := make([]pallets.StatType, len(ops))
	for i, op := range ops {
		stats[i] = pallets.StatType{Op: op}
	}
	s.Chain.Set("statistics", "activeAssetStats", stats, acmeScope)
}

func exempt(s *sdktest.Setup, op pallets.StatOpType, did string) {
	s.Chain.Set("statistics", "transferConditionExemptEntities", true, exemptKey("ACME", op), did)
}

func ownership(pct uint32) pallets.TransferCondition {
	p := pmtypes.Permill(pct)
	return pallets.TransferCondition{Type: pallets.MaxInvestorOwnership, Percentage: &p}
}

func TestTransferRestrictionsGet(t *testing.T) {
	s, a := newTestAsset(t)
	setTransferConditions(s,
		pallets.TransferCondition{Type: pallets.MaxInvestorCount, Count: confutil.P(uint64(100))},
		ownership(100000),
	)
	exempt(s, pallets.StatCount, "0x0b01")
	exempt(s, pallets.StatCount, "0x0b02")

	count, err := a.TransferRestrictions.Count.Get(s.Ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count.AvailableSlots)
	require.Len(t, count.Restrictions, 1)
	assert.Equal(t, uint64(100), count.Restrictions[0].Limit)
	assert.Equal(t, []string{"0x0b01", "0x0b02"}, count.Restrictions[0].Exemptions)

	pct, err := a.TransferRestrictions.Percentage.Get(s.Ctx)
	require.NoError(t, err)
	require.Len(t, pct.Restrictions, 1)
	assert.Equal(t, "10", pct.Restrictions[0].Limit.String())
	assert.Empty(t, pct.Restrictions[0].Exemptions)
}

func TestSetCountRestrictionsValidation(t *testing.T) {
	s, a := newTestAsset(t)
	set := a.TransferRestrictions.Count.Set
	params := &SetTransferRestrictionsParams[uint64]{Restrictions: []*TransferRestriction[uint64]{{Limit: 10}, {Limit: 20}}}

	_, err := set.Prepare(s.Ctx, params)
	assert.Regexp(t, "PM010706.*Count.*ACME", err)
	assert.True(t, pmerrors.Is(err, pmerrors.KindValidation))

	enableStats(s, pallets.StatCount)
	setTransferConditions(s, ownership(100000), ownership(200000), ownership(300000))
	_, err = set.Prepare(s.Ctx, params)
	assert.Regexp(t, "PM010707", err)
	assert.True(t, pmerrors.Is(err, pmerrors.KindLimitExceeded))

	// removing every restriction needs no statistic
	_, err = a.TransferRestrictions.Percentage.Set.Prepare(s.Ctx, &SetTransferRestrictionsParams[pmtypes.Balance]{})
	require.NoError(t, err)
}

func TestSetCountRestrictions(t *testing.T) {
	s, a := newTestAsset(t)
	enableStats(s, pallets.StatCount)
	setTransferConditions(s, ownership(100000))
	exempt(s, pallets.StatCount, "0x0b01")
	set := a.TransferRestrictions.Count.Set

	prepared, err := set.Prepare(s.Ctx, &SetTransferRestrictionsParams[uint64]{Restrictions: []*TransferRestriction[uint64]{
		{Limit: 50, Exemptions: []string{"0x0c01", "0x0c02"}},
		{Limit: 60, Exemptions: []string{"0x0c01"}},
	}})
	require.NoError(t, err)
	require.Equal(t, pmapi.TxKindBatch, prepared.Kind)
	calls := prepared.Queue().Calls()
	require.Len(t, calls, 3)

	assert.Equal(t, pmapi.TxTag("statistics.setAssetTransferCompliance"), calls[0].Tag())
	conditions := calls[0].Args[1].([]pallets.TransferCondition)
	require.Len(t, conditions, 3)
	assert.Equal(t, pallets.MaxInvestorOwnership, conditions[0].Type)
	assert.Equal(t, uint64(50), *conditions[1].Count)
	assert.Equal(t, uint64(60), *conditions[2].Count)

	assert.Equal(t, pmapi.TxTag("statistics.setEntitiesExempt"), calls[1].Tag())
	assert.Equal(t, true, calls[1].Args[0])
	assert.Equal(t, []string{"0x0c01", "0x0c02"}, calls[1].Args[2])
	assert.Equal(t, false, calls[2].Args[0])
	assert.Equal(t, []string{"0x0b01"}, calls[2].Args[2])

	n, err := prepared.Queue().Run(s.Ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSetPercentageRestrictionsNoChanges(t *testing.T) {
	s, a := newTestAsset(t)
	enableStats(s, pallets.StatBalance)
	setTransferConditions(s, ownership(100000))

	_, err := a.TransferRestrictions.Percentage.Set.Prepare(s.Ctx, &SetTransferRestrictionsParams[pmtypes.Balance]{
		Restrictions: []*TransferRestriction[pmtypes.Balance]{{Limit: pmtypes.MustParseBalance("10")}},
	})
	assert.Regexp(t, "PM010401", err)

	prepared, err := a.TransferRestrictions.Percentage.Set.Prepare(s.Ctx, &SetTransferRestrictionsParams[pmtypes.Balance]{
		Restrictions: []*TransferRestriction[pmtypes.Balance]{{Limit: pmtypes.MustParseBalance("12.5")}},
	})
	require.NoError(t, err)
	conditions := prepared.Transaction.Call().Args[1].([]pallets.TransferCondition)
	require.Len(t, conditions, 1)
	assert.Equal(t, pmtypes.Permill(125000), *conditions[0].Percentage)
}
