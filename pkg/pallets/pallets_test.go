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

package pallets

import (
	"testing"

	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/confutil"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmapi"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmtypes"
	"github.com/stretchr/testify/assert"
)

func TestKeyRecord(t *testing.T) {
	primary := &KeyRecord{PrimaryKey: confutil.P("0x01")}
	assert.Equal(t, "0x01", primary.DID())
	assert.True(t, primary.IsPrimary())
	assert.True(t, primary.Permissions().AllowsTransaction("asset.issue"))

	restricted := &pmapi.SignerPermissions{
		Assets: &pmapi.SectionPermissions[string]{Type: pmapi.PermissionInclude, Values: []string{"ACME"}},
	}
	secondary := &KeyRecord{SecondaryKey: &SecondaryKeyRecord{DID: "0x02", Permissions: restricted}}
	assert.Equal(t, "0x02", secondary.DID())
	assert.False(t, secondary.IsPrimary())
	assert.True(t, secondary.Permissions().AllowsAsset("ACME"))
	assert.False(t, secondary.Permissions().AllowsAsset("OTHER"))

	multisig := &KeyRecord{MultiSigSignerKey: confutil.P("5Multi")}
	assert.Empty(t, multisig.DID())
	assert.False(t, multisig.Permissions().AllowsTransaction("asset.issue"))
}

func TestAgentGroupPermissions(t *testing.T) {
	full := &AgentGroup{Type: AgentGroupFull}
	assert.True(t, full.Permissions(nil).Allows("externalAgents.abdicate"))

	exceptMeta := &AgentGroup{Type: AgentGroupExceptMeta}
	assert.True(t, exceptMeta.Permissions(nil).Allows("asset.issue"))
	assert.False(t, exceptMeta.Permissions(nil).Allows("externalAgents.abdicate"))

	caa := &AgentGroup{Type: AgentGroupPolymeshV1CAA}
	assert.True(t, caa.Permissions(nil).Allows("corporateAction.setDefaultTargets"))
	assert.False(t, caa.Permissions(nil).Allows("asset.issue"))

	pia := &AgentGroup{Type: AgentGroupPolymeshV1PIA}
	assert.True(t, pia.Permissions(nil).Allows("asset.issue"))
	assert.True(t, pia.Permissions(nil).Allows("sto.createFundraiser"))
	assert.False(t, pia.Permissions(nil).Allows("sto.invest"))
	assert.False(t, pia.Permissions(nil).Allows("asset.freeze"))

	custom := &AgentGroup{Type: AgentGroupCustom, Custom: 1}
	assert.False(t, custom.Permissions(nil).Allows("asset.issue"))
	stored := &pmapi.TransactionPermissions{
		SectionPermissions: pmapi.SectionPermissions[string]{Type: pmapi.PermissionInclude, Values: []string{"asset.issue"}},
	}
	assert.True(t, custom.Permissions(stored).Allows("asset.issue"))
}

func TestProtocolOp(t *testing.T) {
	op, ok := ProtocolOp("asset.issue")
	assert.True(t, ok)
	assert.Equal(t, "AssetIssue", op)
	_, ok = ProtocolOp("complianceManager.pauseAssetCompliance")
	assert.False(t, ok)
}

func TestSameConditions(t *testing.T) {
	claim := &Claim{Type: ClaimAccredited, Scope: &Scope{Type: ScopeTicker, Value: "ACME"}}
	a := &ComplianceRequirement{ID: 1, SenderConditions: []Condition{
		{ConditionType: ConditionType{Kind: ConditionIsPresent, Claim: claim}},
	}}
	b := &ComplianceRequirement{ID: 2, SenderConditions: []Condition{
		{ConditionType: ConditionType{Kind: ConditionIsPresent, Claim: claim}},
	}, ReceiverConditions: []Condition{}}
	assert.True(t, a.SameConditions(b))

	b.ReceiverConditions = a.SenderConditions
	assert.False(t, a.SameConditions(b))
}

func TestAccountAvailable(t *testing.T) {
	ai := &AccountInfo{Data: AccountData{
		Free:   pmtypes.BalanceFromWhole(10),
		Frozen: pmtypes.BalanceFromWhole(4),
	}}
	assert.Equal(t, "6", ai.Available().String())
}

func TestTransferConditionStatOp(t *testing.T) {
	assert.Equal(t, StatCount, (&TransferCondition{Type: MaxInvestorCount}).StatOp())
	assert.Equal(t, StatBalance, (&TransferCondition{Type: MaxInvestorOwnership}).StatOp())
}

func TestConditionEquals(t *testing.T) {
	a := Condition{ConditionType: ConditionType{Kind: ConditionIsIdentity, Identity: "0x01"}}
	b := Condition{ConditionType: ConditionType{Kind: ConditionIsIdentity, Identity: "0x01", Claims: []Claim{}}, Issuers: []TrustedIssuer{}}
	assert.True(t, a.Equals(b))

	b.Issuers = []TrustedIssuer{{Issuer: "0x02"}}
	assert.False(t, a.Equals(b))
}
