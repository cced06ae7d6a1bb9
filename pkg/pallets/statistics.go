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

// MaxTransferConditions per asset
const MaxTransferConditions = 4

type AssetScope struct {
	Ticker string `json:"ticker"`
}

type StatOpType string

const (
	StatCount   StatOpType = "Count"
	StatBalance StatOpType = "Balance"
)

type StatClaimIssuer struct {
	ClaimType ClaimType `json:"claimType"`
	Issuer    string    `json:"issuer"`
}

type StatType struct {
	Op          StatOpType       `json:"op"`
	ClaimIssuer *StatClaimIssuer `json:"claimIssuer,omitempty"`
}

type TransferConditionType string

const (
	MaxInvestorCount     TransferConditionType = "MaxInvestorCount"
	MaxInvestorOwnership TransferConditionType = "MaxInvestorOwnership"
	ClaimCount           TransferConditionType = "ClaimCount"
	ClaimOwnership       TransferConditionType = "ClaimOwnership"
)

// TransferCondition holds Count for MaxInvestorCount, Percentage for MaxInvestorOwnership
type TransferCondition struct {
	Type       TransferConditionType `json:"type"`
	Count      *uint64               `json:"count,omitempty"`
	Percentage *pmtypes.Permill      `json:"percentage,omitempty"`
}

// StatOp is the statistic the condition needs enabled
func (tc *TransferCondition) StatOp() StatOpType {
	if tc.Type == MaxInvestorCount || tc.Type == ClaimCount {
		return StatCount
	}
	return StatBalance
}

type AssetTransferCompliance struct {
	Paused       bool                `json:"paused"`
	Requirements []TransferCondition `json:"requirements"`
}

type TransferConditionExemptKey struct {
	AssetScope AssetScope `json:"assetScope"`
	Op         StatOpType `json:"op"`
	ClaimType  *ClaimType `json:"claimType,omitempty"`
}

var (
	// keyed by AssetScope
	ActiveAssetStats         = chain.NewStorageMap[[]StatType]("statistics", "activeAssetStats")
	AssetTransferCompliances = chain.NewStorageMap[AssetTransferCompliance]("statistics", "assetTransferCompliances")
	// keyed by TransferConditionExemptKey then DID
	TransferConditionExemptEntities = chain.NewStorageMap[bool]("statistics", "transferConditionExemptEntities")
)
