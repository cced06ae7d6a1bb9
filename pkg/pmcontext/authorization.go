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

	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pallets"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmapi"
	"golang.org/x/sync/errgroup"
)

// HasRole checks a single role of the Identity against chain state
func (c *Context) HasRole(ctx context.Context, did string, role pmapi.Role) (bool, error) {
	switch role.Type {
	case pmapi.RoleTickerOwner:
		reg, err := pallets.Tickers.Get(ctx, c, role.Ticker)
		if err != nil || reg == nil {
			return false, err
		}
		return reg.Owner == did, nil
	case pmapi.RoleCddProvider:
		members, err := pallets.CddServiceProviders.Get(ctx, c)
		if err != nil || members == nil {
			return false, err
		}
		for _, m := range *members {
			if m == did {
				return true, nil
			}
		}
		return false, nil
	case pmapi.RoleVenueOwner:
		venue, err := pallets.VenueInfo.Get(ctx, c, role.VenueID)
		if err != nil || venue == nil {
			return false, err
		}
		return venue.Creator == did, nil
	case pmapi.RolePortfolioCustodian:
		if role.Portfolio == nil {
			return false, nil
		}
		custodian, err := pallets.PortfolioCustodian.Get(ctx, c, *role.Portfolio)
		if err != nil {
			return false, err
		}
		if custodian == nil {
			return role.Portfolio.DID == did, nil
		}
		return *custodian == did, nil
	case pmapi.RoleIdentity:
		return role.DID == did, nil
	}
	return false, nil
}

// AgentPermissions of the Identity over the asset, nil when it is not an agent
func (c *Context) AgentPermissions(ctx context.Context, ticker, did string) (*pmapi.TransactionPermissions, bool, error) {
	group, err := pallets.GroupOfAgent.Get(ctx, c, ticker, did)
	if err != nil || group == nil {
		return nil, false, err
	}
	var custom *pmapi.TransactionPermissions
	if group.Type == pallets.AgentGroupCustom {
		if custom, err = pallets.GroupPermissions.Get(ctx, c, ticker, group.Custom); err != nil {
			return nil, false, err
		}
	}
	return group.Permissions(custom), true, nil
}

// CheckAuthorization evaluates the requirements for the account without any side effect.
// Unmet requirements are reported in the result, and only read failures are errors.
func (c *Context) CheckAuthorization(ctx context.Context, account string, req *pmapi.AuthorizationRequirement) (*pmapi.AuthorizationResult, error) {
	res := &pmapi.AuthorizationResult{}
	if req == nil {
		res.Allowed = true
		return res, nil
	}
	kr, err := c.KeyRecord(ctx, account)
	if err != nil {
		return nil, err
	}
	did := ""
	if kr != nil {
		did = kr.DID()
	}

	needsIdentity := req.RequireIdentity || len(req.Roles) > 0 || req.Agent != nil
	if needsIdentity && did == "" {
		res.NoIdentity = true
		return res, nil
	}

	if req.Signer != nil && !req.Signer.IsEmpty() {
		perms := pmapi.FullSignerPermissions()
		if kr != nil {
			perms = kr.Permissions()
		}
		res.MissingSignerPermissions = missingSignerPermissions(perms, req.Signer)
	}

	var missingRoles []pmapi.Role
	var missingAgent []pmapi.TxTag
	frozen := false
	g, gCtx := errgroup.WithContext(ctx)
	if len(req.Roles) > 0 {
		g.Go(func() (err error) {
			missingRoles, err = c.missingRoles(gCtx, did, req.Roles, req.RolesRule)
			return err
		})
	}
	if req.Agent != nil {
		g.Go(func() (err error) {
			missingAgent, err = c.missingAgentPermissions(gCtx, did, req.Agent)
			return err
		})
	}
	if kr != nil && !kr.IsPrimary() && did != "" {
		g.Go(func() (err error) {
			frozen, err = c.IsIdentityFrozen(gCtx, did)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	res.MissingRoles = missingRoles
	res.MissingAgentPermissions = missingAgent
	res.AccountFrozen = frozen
	res.Allowed = !res.AccountFrozen &&
		len(res.MissingRoles) == 0 &&
		len(res.MissingAgentPermissions) == 0 &&
		res.MissingSignerPermissions == nil
	return res, nil
}

func (c *Context) missingRoles(ctx context.Context, did string, roles []pmapi.Role, rule pmapi.RolesRule) ([]pmapi.Role, error) {
	var missing []pmapi.Role
	for _, r := range roles {
		ok, err := c.HasRole(ctx, did, r)
		if err != nil {
			return nil, err
		}
		if ok && rule == pmapi.RolesAnyOf {
			return nil, nil
		}
		if !ok {
			missing = append(missing, r)
		}
	}
	return missing, nil
}

func (c *Context) missingAgentPermissions(ctx context.Context, did string, req *pmapi.AgentPermissionsRequirement) ([]pmapi.TxTag, error) {
	perms, isAgent, err := c.AgentPermissions(ctx, req.Ticker, did)
	if err != nil {
		return nil, err
	}
	var missing []pmapi.TxTag
	for _, tag := range req.Transactions {
		if !isAgent || (perms != nil && !perms.Allows(tag)) {
			missing = append(missing, tag)
		}
	}
	return missing, nil
}

func missingSignerPermissions(perms *pmapi.SignerPermissions, req *pmapi.SignerPermissionsRequirement) *pmapi.SignerPermissionsRequirement {
	missing := &pmapi.SignerPermissionsRequirement{}
	for _, a := range req.Assets {
		if !perms.AllowsAsset(a) {
			missing.Assets = append(missing.Assets, a)
		}
	}
	for _, tag := range req.Transactions {
		if !perms.AllowsTransaction(tag) {
			missing.Transactions = append(missing.Transactions, tag)
		}
	}
	for _, p := range req.Portfolios {
		if !perms.AllowsPortfolio(p) {
			missing.Portfolios = append(missing.Portfolios, p)
		}
	}
	if missing.IsEmpty() {
		return nil
	}
	return missing
}
