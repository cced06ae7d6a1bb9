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

	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pallets"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmapi"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmerrors"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDefaultConfigEmpty(t *testing.T) {
	s, a := newTestAsset(t)
	config, err := a.CorporateActions.GetDefaultConfig(s.Ctx)
	require.NoError(t, err)
	assert.Equal(t, pallets.TargetExclude, config.Targets.Treatment)
	assert.Empty(t, config.Targets.Identities)
	assert.NotNil(t, config.Targets.Identities)
	assert.Equal(t, "0", config.DefaultTaxWithholding.String())
	assert.Empty(t, config.TaxWithholdings)
}

func TestGetDefaultConfigDecodesPermill(t *testing.T) {
	s, a := newTestAsset(t)
	s.Chain.Set("corporateAction", "defaultTargetIdentities", &pallets.TargetIdentities{
		Identities: []string{"0x0b01"},
		Treatment:  pallets.TargetInclude,
	}, "ACME")
	s.Chain.Set("corporateAction", "defaultWithholdingTax", pmtypes.Permill(100000), "ACME")
	s.Chain.Set("corporateAction", "didWithholdingTax", []pallets.DidTax{{DID: "0x0b01", Tax: 250000}}, "ACME")

	config, err := a.CorporateActions.GetDefaultConfig(s.Ctx)
	require.NoError(t, err)
	assert.Equal(t, pallets.TargetInclude, config.Targets.Treatment)
	assert.Equal(t, []string{"0x0b01"}, config.Targets.Identities)
	assert.Equal(t, "10", config.DefaultTaxWithholding.String())
	require.Len(t, config.TaxWithholdings, 1)
	assert.Equal(t, "0x0b01", config.TaxWithholdings[0].Identity)
	assert.Equal(t, "25", config.TaxWithholdings[0].Percentage.String())
}

func TestSetDefaultConfig(t *testing.T) {
	s, a := newTestAsset(t)
	s.Chain.Set("corporateAction", "defaultWithholdingTax", pmtypes.Permill(100000), "ACME")
	s.Chain.Set("corporateAction", "didWithholdingTax", []pallets.DidTax{{DID: "0x0b01", Tax: 250000}}, "ACME")
	set := a.CorporateActions.SetDefaultConfig

	_, err := set.Prepare(s.Ctx, &SetDefaultConfigParams{})
	assert.Regexp(t, "PM010705", err)
	assert.True(t, pmerrors.Is(err, pmerrors.KindValidation))

	ten := pmtypes.MustParseBalance("10")
	_, err = set.Prepare(s.Ctx, &SetDefaultConfigParams{
		DefaultTaxWithholding: &ten,
		Targets:               &CorporateActionTargets{Treatment: pallets.TargetExclude},
	})
	assert.Regexp(t, "PM010401", err)

	tooMuch := pmtypes.MustParseBalance("101")
	_, err = set.Prepare(s.Ctx, &SetDefaultConfigParams{DefaultTaxWithholding: &tooMuch})
	assert.Regexp(t, "PM010008", err)

	fifteen := pmtypes.MustParseBalance("15.5")
	prepared, err := set.Prepare(s.Ctx, &SetDefaultConfigParams{DefaultTaxWithholding: &fifteen})
	require.NoError(t, err)
	call := prepared.Transaction.Call()
	assert.Equal(t, pmapi.TxTag("corporateAction.setDefaultWithholdingTax"), call.Tag())
	assert.Equal(t, pmtypes.Permill(155000), call.Args[1])

	prepared, err = set.Prepare(s.Ctx, &SetDefaultConfigParams{
		TaxWithholdings: []TaxWithholding{{Identity: "0x0c01", Percentage: pmtypes.MustParseBalance("5")}},
	})
	require.NoError(t, err)
	require.Equal(t, pmapi.TxKindBatch, prepared.Kind)
	calls := prepared.Queue().Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "0x0c01", calls[0].Args[1])
	assert.Equal(t, pmtypes.Permill(50000), *calls[0].Args[2].(*pmtypes.Permill))
	assert.Equal(t, "0x0b01", calls[1].Args[1])
	assert.Nil(t, calls[1].Args[2])
	assert.Len(t, prepared.Batch.Legs(), 2)

	_, err = prepared.Queue().Run(s.Ctx)
	require.NoError(t, err)
	assert.Len(t, s.Chain.Submitted(), 1)
}
