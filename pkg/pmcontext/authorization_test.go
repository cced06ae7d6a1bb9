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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasRole(t *testing.T) {
	ts := newTestContext(t)
	ctx, c := ts.ctx, ts.c
	ts.chain.AddAsset("ACME", "0xa1", nil)
	ts.chain.Set("cddServiceProviders", "activeMembers", []string{"0xc1", "0xc2"})
	ts.chain.Set("settlement", "venueInfo", &pallets.Venue{Creator: "0xa1", VenueType: "Other"}, uint64(7))
	custodied := pmapi.PortfolioID{DID: "0xa1", Number: new(uint64)}
	*custodied.Number = 2
	ts.chain.Set("portfolio", "portfolioCustodian", "0xb1", custodied)

	for _, tc := range []struct {
		did  string
		role pmapi.Role
		has  bool
	}{
		{"0xa1", pmapi.TickerOwnerRole("ACME"), true},
		{"0xb1", pmapi.TickerOwnerRole("ACME"), false},
		{"0xa1", pmapi.TickerOwnerRole("NONE"), false},
		{"0xc2", pmapi.CddProviderRole(), true},
		{"0xa1", pmapi.CddProviderRole(), false},
		{"0xa1", pmapi.VenueOwnerRole(7), true},
		{"0xa1", pmapi.VenueOwnerRole(8), false},
		{"0xa1", pmapi.PortfolioCustodianRole(pmapi.PortfolioID{DID: "0xa1"}), true},
		{"0xb1", pmapi.PortfolioCustodianRole(pmapi.PortfolioID{DID: "0xa1"}), false},
		{"0xb1", pmapi.PortfolioCustodianRole(custodied), true},
		{"0xa1", pmapi.PortfolioCustodianRole(custodied), false},
		{"0xa1", pmapi.IdentityRole("0xa1"), true},
		{"0xa1", pmapi.IdentityRole("0xa2"), false},
	} {
		has, err := c.HasRole(ctx, tc.did, tc.role)
		require.NoError(t, err)
		assert.Equal(t, tc.has, has, "%s %s", tc.did, tc.role)
	}
}

func TestCheckAuthorizationRoles(t *testing.T) {
	ts := newTestContext(t)
	ctx, c := ts.ctx, ts.c
	ts.chain.AddIdentity("0xa1", ts.accounts[0])
	ts.chain.AddAsset("ACME", "0xa1", nil)

	res, err := c.CheckAuthorization(ctx, ts.accounts[0], nil)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	roles := []pmapi.Role{pmapi.TickerOwnerRole("OTHER"), pmapi.TickerOwnerRole("ACME")}
	res, err = c.CheckAuthorization(ctx, ts.accounts[0], &pmapi.AuthorizationRequirement{Roles: roles, RolesRule: pmapi.RolesAnyOf})
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Empty(t, res.MissingRoles)

	res, err = c.CheckAuthorization(ctx, ts.accounts[0], &pmapi.AuthorizationRequirement{Roles: roles, RolesRule: pmapi.RolesAllOf})
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, []pmapi.Role{pmapi.TickerOwnerRole("OTHER")}, res.MissingRoles)

	res, err = c.CheckAuthorization(ctx, ts.accounts[1], &pmapi.AuthorizationRequirement{Roles: roles})
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.True(t, res.NoIdentity)

	res, err = c.CheckAuthorization(ctx, ts.accounts[1], &pmapi.AuthorizationRequirement{})
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestCheckAuthorizationSignerPermissions(t *testing.T) {
	ts := newTestContext(t)
	ctx, c := ts.ctx, ts.c
	ts.chain.AddIdentity("0xa1", ts.accounts[0])
	ts.chain.AddSecondaryKey("0xa1", ts.accounts[1], &pmapi.SignerPermissions{
		Assets: &pmapi.SectionPermissions[string]{Type: pmapi.PermissionInclude, Values: []string{"ACME"}},
		Transactions: &pmapi.TransactionPermissions{
			SectionPermissions: pmapi.SectionPermissions[string]{Type: pmapi.PermissionInclude, Values: []string{"asset"}},
		},
	})

	req := &pmapi.AuthorizationRequirement{
		Signer: &pmapi.SignerPermissionsRequirement{
			Assets:       []string{"ACME", "BETA"},
			Transactions: []pmapi.TxTag{"asset.issue", "identity.addClaim"},
		},
	}
	res, err := c.CheckAuthorization(ctx, ts.accounts[0], req)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = c.CheckAuthorization(ctx, ts.accounts[1], req)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, &pmapi.SignerPermissionsRequirement{
		Assets:       []string{"BETA"},
		Transactions: []pmapi.TxTag{"identity.addClaim"},
	}, res.MissingSignerPermissions)

	req.Signer = &pmapi.SignerPermissionsRequirement{Assets: []string{"ACME"}, Transactions: []pmapi.TxTag{"asset.issue"}}
	res, err = c.CheckAuthorization(ctx, ts.accounts[1], req)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	ts.chain.Set("identity", "isDidFrozen", true, "0xa1")
	res, err = c.CheckAuthorization(ctx, ts.accounts[1], req)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.True(t, res.AccountFrozen)

	// freezing only applies to secondary keys
	res, err = c.CheckAuthorization(ctx, ts.accounts[0], req)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestCheckAuthorizationAgentPermissions(t *testing.T) {
	ts := newTestContext(t)
	ctx, c := ts.ctx, ts.c
	ts.chain.AddIdentity("0xa1", ts.accounts[0])
	ts.chain.AddIdentity("0xb1", ts.accounts[1])
	ts.chain.AddIdentity("0xc1", ts.accounts[2])
	ts.chain.AddAsset("ACME", "0xa1", nil)
	ts.chain.Set("externalAgents", "groupOfAgent", &pallets.AgentGroup{Type: pallets.AgentGroupCustom, Custom: 3}, "ACME", "0xb1")
	ts.chain.Set("externalAgents", "groupPermissions", &pmapi.TransactionPermissions{
		SectionPermissions: pmapi.SectionPermissions[string]{Type: pmapi.PermissionInclude, Values: []string{"complianceManager"}},
	}, "ACME", 3)

	req := &pmapi.AuthorizationRequirement{
		Agent: &pmapi.AgentPermissionsRequirement{
			Ticker:       "ACME",
			Transactions: []pmapi.TxTag{"complianceManager.pauseAssetCompliance", "asset.issue"},
		},
	}
	res, err := c.CheckAuthorization(ctx, ts.accounts[0], req)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = c.CheckAuthorization(ctx, ts.accounts[1], req)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, []pmapi.TxTag{"asset.issue"}, res.MissingAgentPermissions)

	res, err = c.CheckAuthorization(ctx, ts.accounts[2], req)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Len(t, res.MissingAgentPermissions, 2)

	perms, isAgent, err := c.AgentPermissions(ctx, "ACME", "0xa1")
	require.NoError(t, err)
	assert.True(t, isAgent)
	assert.Nil(t, perms)
}
