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
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/chain"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmtypes"
)

// MaxTotalSupply of any asset, in whole tokens
const MaxTotalSupply = 1000000000000

type TickerRegistration struct {
	Owner  string  `json:"owner"`
	Expiry *uint64 `json:"expiry,omitempty"`
}

type AssetDetails struct {
	OwnerDID    string          `json:"ownerDid"`
	TotalSupply pmtypes.Balance `json:"totalSupply"`
	Divisible   bool            `json:"divisible"`
	AssetType   string          `json:"assetType"`
}

type Venue struct {
	Creator   string `json:"creator"`
	VenueType string `json:"venueType"`
}

type PortfolioKind string

const (
	PortfolioKindDefault PortfolioKind = "Default"
	PortfolioKindUser    PortfolioKind = "User"
)

var (
	// keyed by ticker
	Tickers = chain.NewStorageMap[TickerRegistration]("asset", "tickers")
	Tokens  = chain.NewStorageMap[AssetDetails]("asset", "tokens")
	// keyed by ticker then DID
	BalanceOf = chain.NewStorageMap[pmtypes.Balance]("asset", "balanceOf")

	// keyed by pmapi.PortfolioID, absent when the owner is the custodian
	PortfolioCustodian = chain.NewStorageMap[string]("portfolio", "portfolioCustodian")

	// keyed by venue ID
	VenueInfo = chain.NewStorageMap[Venue]("settlement", "venueInfo")
)
