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
	"context"

	"github.com/PolymeshAssociation/polymesh-sdk-sub000/internal/msgs"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pallets"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmapi"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmcontext"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmerrors"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmtypes"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/procedure"
)

type IssueParams struct {
	Amount pmtypes.Balance `json:"amount"`
}

// Issuance mints new tokens of the asset into the default portfolio of the signer
type Issuance struct {
	Issue *procedure.Method[*IssueParams, *Asset]
}

func newIssuance(a *Asset) *Issuance {
	return &Issuance{
		Issue: procedure.NewMethod(a.c, func(args *IssueParams) (*procedure.Procedure[*IssueParams, *pallets.AssetDetails, *Asset], *IssueParams) {
			return issueProcedure(a), args
		}),
	}
}

const txIssue pmapi.TxTag = "asset.issue"

var maxTotalSupply = pmtypes.BalanceFromWhole(pallets.MaxTotalSupply)

func issueProcedure(a *Asset) *procedure.Procedure[*IssueParams, *pallets.AssetDetails, *Asset] {
	return &procedure.Procedure[*IssueParams, *pallets.AssetDetails, *Asset]{
		Name: "issueTokens",
		PrepareStorage: func(ctx context.Context, c *pmcontext.Context, args *IssueParams) (*pallets.AssetDetails, error) {
			return a.Details(ctx)
		},
		Authorize: func(ctx context.Context, c *pmcontext.Context, args *IssueParams, details *pallets.AssetDetails) (*pmapi.AuthorizationRequirement, error) {
			req := agentRequirement(a.Ticker, txIssue)
			did, err := procedure.SigningIdentity(ctx, c)
			switch {
			case err == nil:
				req.Signer.Portfolios = []pmapi.PortfolioID{{DID: did}}
			case !pmerrors.Is(err, pmerrors.KindDataUnavailable):
				return nil, err
			}
			return req, nil
		},
		Prepare: func(ctx context.Context, c *pmcontext.Context, args *IssueParams, details *pallets.AssetDetails) (*procedure.Plan[*Asset], error) {
			if args.Amount.IsZero() {
				return nil, pmerrors.New(ctx, pmerrors.KindValidation, msgs.MsgIssuanceNonPositive)
			}
			if !details.Divisible && !args.Amount.IsWhole() {
				return nil, pmerrors.New(ctx, pmerrors.KindValidation, msgs.MsgIssuanceIndivisible, a.Ticker, args.Amount)
			}
			if details.TotalSupply.Add(args.Amount).Cmp(maxTotalSupply) > 0 {
				return nil, pmerrors.New(ctx, pmerrors.KindValidation, msgs.MsgIssuanceExceedsMaxSupply, args.Amount, maxTotalSupply, details.TotalSupply)
			}
			return &procedure.Plan[*Asset]{
				Calls:    []*pmapi.ChainCall{pmapi.NewCall("asset", "issue", a.Ticker, args.Amount, pallets.PortfolioKindDefault)},
				Resolver: procedure.Value(a),
			}, nil
		},
	}
}
