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
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/chainquery"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pallets"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmapi"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmcontext"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmerrors"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmtypes"
)

// Assets is the namespace for looking up fungible assets
type Assets struct {
	c *pmcontext.Context
}

func NewAssets(c *pmcontext.Context) *Assets {
	return &Assets{c: c}
}

// Get the asset with the ticker, which must exist
func (a *Assets) Get(ctx context.Context, ticker string) (*Asset, error) {
	details, err := pallets.Tokens.Get(ctx, a.c, ticker)
	if err != nil {
		return nil, err
	}
	if details == nil {
		return nil, pmerrors.New(ctx, pmerrors.KindDataUnavailable, msgs.MsgAssetNotFound, ticker)
	}
	return newAsset(a.c, ticker), nil
}

// Asset is a handle to a fungible asset. Its namespaces read the chain on every
// call, so a handle never holds stale state.
type Asset struct {
	Ticker string

	Compliance           *Compliance
	CorporateActions     *CorporateActions
	TransferRestrictions *TransferRestrictions
	Issuance             *Issuance

	c *pmcontext.Context
}

func newAsset(c *pmcontext.Context, ticker string) *Asset {
	a := &Asset{Ticker: ticker, c: c}
	a.Compliance = &Compliance{Requirements: newRequirements(a)}
	a.CorporateActions = newCorporateActions(a)
	a.TransferRestrictions = newTransferRestrictions(a)
	a.Issuance = newIssuance(a)
	return a
}

func (a *Asset) Details(ctx context.Context) (*pallets.AssetDetails, error) {
	details, err := pallets.Tokens.Get(ctx, a.c, a.Ticker)
	if err != nil {
		return nil, err
	}
	if details == nil {
		return nil, pmerrors.New(ctx, pmerrors.KindDataUnavailable, msgs.MsgAssetNotFound, a.Ticker)
	}
	return details, nil
}

type Holder struct {
	Identity string          `json:"identity"`
	Balance  pmtypes.Balance `json:"balance"`
}

// GetHolders pages through the Identities holding a balance of the asset. Nil
// options return every holder.
func (a *Asset) GetHolders(ctx context.Context, opts *pmapi.PaginationOptions) (*pmapi.PaginatedEntries[*Holder], error) {
	page, err := chainquery.RequestPaginated(ctx, a.c, pallets.BalanceOf, opts, a.Ticker)
	if err != nil {
		return nil, err
	}
	holders := make([]*Holder, 0, len(page.Entries))
	for _, e := range page.Entries {
		h := &Holder{Balance: *e.Value}
		if err := e.KeyArg(ctx, 1, &h.Identity); err != nil {
			return nil, err
		}
		if h.Balance.IsZero() {
			continue
		}
		holders = append(holders, h)
	}
	return &pmapi.PaginatedEntries[*Holder]{Entries: holders, LastKey: page.LastKey}, nil
}

// agentRequirement is the authorization of an asset procedure: the signing
// Identity must be an agent permitted to run the transactions, and the signing
// key must be permitted over the asset and the transactions
func agentRequirement(ticker string, tags ...pmapi.TxTag) *pmapi.AuthorizationRequirement {
	return &pmapi.AuthorizationRequirement{
		Signer: &pmapi.SignerPermissionsRequirement{
			Assets:       []string{ticker},
			Transactions: tags,
		},
		Agent: &pmapi.AgentPermissionsRequirement{
			Ticker:       ticker,
			Transactions: tags,
		},
	}
}
