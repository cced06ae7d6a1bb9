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

package claims

import (
	"context"
	"time"

	"github.com/PolymeshAssociation/polymesh-sdk-sub000/internal/msgs"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/chainquery"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pallets"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmapi"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmcontext"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmerrors"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/procedure"
)

// ClaimTarget is a claim about the target Identity. A nil expiry never expires.
type ClaimTarget struct {
	Target string        `json:"target"`
	Claim  pallets.Claim `json:"claim"`
	Expiry *time.Time    `json:"expiry,omitempty"`
}

type AddClaimsParams struct {
	Claims []ClaimTarget `json:"claims"`
}

// EditClaimsParams changes the expiry of claims the signing Identity issued
type EditClaimsParams struct {
	Claims []ClaimTarget `json:"claims"`
}

type RevokeClaimsParams struct {
	Claims []ClaimTarget `json:"claims"`
}

type ClaimOperation string

const (
	ClaimOperationAdd    ClaimOperation = "Add"
	ClaimOperationEdit   ClaimOperation = "Edit"
	ClaimOperationRevoke ClaimOperation = "Revoke"
)

type modifyClaimsArgs struct {
	operation ClaimOperation
	claims    []ClaimTarget
}

// Claims issues and revokes claims of the signing Identity
type Claims struct {
	c *pmcontext.Context

	AddClaims    *procedure.Method[*AddClaimsParams, struct{}]
	EditClaims   *procedure.Method[*EditClaimsParams, struct{}]
	RevokeClaims *procedure.Method[*RevokeClaimsParams, struct{}]
}

func New(c *pmcontext.Context) *Claims {
	return &Claims{
		c: c,
		AddClaims: procedure.NewMethod(c, func(args *AddClaimsParams) (*procedure.Procedure[*modifyClaimsArgs, *claimsStorage, struct{}], *modifyClaimsArgs) {
			return modifyClaimsProcedure(), &modifyClaimsArgs{operation: ClaimOperationAdd, claims: args.Claims}
		}),
		EditClaims: procedure.NewMethod(c, func(args *EditClaimsParams) (*procedure.Procedure[*modifyClaimsArgs, *claimsStorage, struct{}], *modifyClaimsArgs) {
			return modifyClaimsProcedure(), &modifyClaimsArgs{operation: ClaimOperationEdit, claims: args.Claims}
		}),
		RevokeClaims: procedure.NewMethod(c, func(args *RevokeClaimsParams) (*procedure.Procedure[*modifyClaimsArgs, *claimsStorage, struct{}], *modifyClaimsArgs) {
			return modifyClaimsProcedure(), &modifyClaimsArgs{operation: ClaimOperationRevoke, claims: args.Claims}
		}),
	}
}

const (
	txAddClaim    pmapi.TxTag = "identity.addClaim"
	txRevokeClaim pmapi.TxTag = "identity.revokeClaim"
)

func (args *modifyClaimsArgs) tag() pmapi.TxTag {
	if args.operation == ClaimOperationRevoke {
		return txRevokeClaim
	}
	return txAddClaim
}

func expiryMillis(expiry *time.Time) *uint64 {
	if expiry == nil {
		return nil
	}
	ms := uint64(expiry.UnixMilli())
	return &ms
}

// claimsStorage is what the chain holds about the claims being modified
type claimsStorage struct {
	missingTargets []string
	// claims not issued by the signing Identity, for edits and revocations
	notIssued []string
}

func loadClaimsStorage(ctx context.Context, c *pmcontext.Context, args *modifyClaimsArgs) (*claimsStorage, error) {
	storage := &claimsStorage{}
	if len(args.claims) == 0 {
		return storage, nil
	}
	var err error
	if storage.missingTargets, err = missingTargets(ctx, c, args.claims); err != nil {
		return nil, err
	}
	if args.operation != ClaimOperationAdd {
		if storage.notIssued, err = claimsNotIssued(ctx, c, args.claims); err != nil {
			return nil, err
		}
	}
	return storage, nil
}

func modifyClaimsProcedure() *procedure.Procedure[*modifyClaimsArgs, *claimsStorage, struct{}] {
	return &procedure.Procedure[*modifyClaimsArgs, *claimsStorage, struct{}]{
		Name:           "modifyClaims",
		PrepareStorage: loadClaimsStorage,
		Authorize: func(ctx context.Context, c *pmcontext.Context, args *modifyClaimsArgs, _ *claimsStorage) (*pmapi.AuthorizationRequirement, error) {
			req := &pmapi.AuthorizationRequirement{
				RequireIdentity: true,
				Signer:          &pmapi.SignerPermissionsRequirement{Transactions: []pmapi.TxTag{args.tag()}},
			}
			for _, ct := range args.claims {
				if ct.Claim.Type == pallets.ClaimCustomerDueDiligence {
					req.Roles = []pmapi.Role{pmapi.CddProviderRole()}
					break
				}
			}
			return req, nil
		},
		Prepare: func(ctx context.Context, c *pmcontext.Context, args *modifyClaimsArgs, storage *claimsStorage) (*procedure.Plan[struct{}], error) {
			if len(args.claims) == 0 {
				return nil, pmerrors.New(ctx, pmerrors.KindValidation, msgs.MsgClaimsEmpty)
			}
			if args.operation != ClaimOperationRevoke {
				now := time.Now()
				for _, ct := range args.claims {
					if ct.Claim.Type == pallets.ClaimCustomerDueDiligence && ct.Claim.CddID == "" {
						return nil, pmerrors.New(ctx, pmerrors.KindValidation, msgs.MsgClaimsCDDRequiresID)
					}
					if ct.Expiry != nil && !ct.Expiry.After(now) {
						return nil, pmerrors.New(ctx, pmerrors.KindValidation, msgs.MsgClaimsExpiryInPast,
							ct.Expiry.UTC().Format(time.RFC3339), ct.Target)
					}
				}
			}
			if len(storage.missingTargets) > 0 {
				return nil, pmerrors.New(ctx, pmerrors.KindDataUnavailable, msgs.MsgClaimsTargetsMissing, storage.missingTargets).
					WithData("identities", storage.missingTargets)
			}
			if len(storage.notIssued) > 0 {
				return nil, pmerrors.New(ctx, pmerrors.KindValidation, msgs.MsgClaimsNotFound, storage.notIssued).
					WithData("claims", storage.notIssued)
			}

			plan := &procedure.Plan[struct{}]{}
			for _, ct := range args.claims {
				if args.operation == ClaimOperationRevoke {
					plan.Calls = append(plan.Calls, pmapi.NewCall("identity", "revokeClaim", ct.Target, ct.Claim))
				} else {
					plan.Calls = append(plan.Calls, pmapi.NewCall("identity", "addClaim", ct.Target, ct.Claim, expiryMillis(ct.Expiry)))
				}
			}
			return plan, nil
		},
	}
}

func missingTargets(ctx context.Context, c *pmcontext.Context, claims []ClaimTarget) ([]string, error) {
	var targets []string
	seen := make(map[string]bool)
	for _, ct := range claims {
		if !seen[ct.Target] {
			seen[ct.Target] = true
			targets = append(targets, ct.Target)
		}
	}
	queries := make([]chainquery.Query, len(targets))
	for i, did := range targets {
		queries[i] = chainquery.MapQuery(pallets.DidRecords, did)
	}
	values, err := chainquery.RequestMulti(ctx, c, queries...)
	if err != nil {
		return nil, err
	}
	var missing []string
	for i, v := range values {
		if v == nil {
			missing = append(missing, targets[i])
		}
	}
	return missing, nil
}

// claimsNotIssued lists the claims the signing Identity has not issued. A signer
// without an Identity is left to authorization to reject.
func claimsNotIssued(ctx context.Context, c *pmcontext.Context, claims []ClaimTarget) ([]string, error) {
	issuer, err := procedure.SigningIdentity(ctx, c)
	if pmerrors.Is(err, pmerrors.KindDataUnavailable) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	queries := make([]chainquery.Query, len(claims))
	for i, ct := range claims {
		queries[i] = chainquery.MapQuery(pallets.Claims,
			pallets.ClaimFirstKey{Target: ct.Target, ClaimType: ct.Claim.Type},
			pallets.ClaimSecondKey{Issuer: issuer, Scope: ct.Claim.Scope},
		)
	}
	values, err := chainquery.RequestMulti(ctx, c, queries...)
	if err != nil {
		return nil, err
	}
	var missing []string
	for i, v := range values {
		if v == nil {
			missing = append(missing, claims[i].Target+"/"+string(claims[i].Claim.Type))
		}
	}
	return missing, nil
}
