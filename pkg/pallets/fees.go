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
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmapi"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmtypes"
)

type AccountData struct {
	Free     pmtypes.Balance `json:"free"`
	Reserved pmtypes.Balance `json:"reserved"`
	Frozen   pmtypes.Balance `json:"frozen"`
}

type AccountInfo struct {
	Nonce uint64      `json:"nonce"`
	Data  AccountData `json:"data"`
}

// Available is the free balance that can pay fees
func (ai *AccountInfo) Available() pmtypes.Balance {
	return ai.Data.Free.Sub(ai.Data.Frozen)
}

// Subsidy of a user account by a paying key, up to the remaining allowance
type Subsidy struct {
	PayingKey string          `json:"payingKey"`
	Remaining pmtypes.Balance `json:"remaining"`
}

type PosRatio struct {
	Numerator   uint32 `json:"numerator"`
	Denominator uint32 `json:"denominator"`
}

var protocolOps = map[pmapi.TxTag]string{
	"asset.registerTicker":                       "AssetRegisterTicker",
	"asset.issue":                                "AssetIssue",
	"asset.addDocuments":                         "AssetAddDocuments",
	"asset.createAsset":                          "AssetCreateAsset",
	"capitalDistribution.distribute":             "CapitalDistributionDistribute",
	"checkpoint.createSchedule":                  "CheckpointCreateSchedule",
	"complianceManager.addComplianceRequirement": "ComplianceManagerAddComplianceRequirement",
	"identity.cddRegisterDid":                    "IdentityCddRegisterDid",
	"identity.addClaim":                          "IdentityAddClaim",
	"identity.addSecondaryKeysWithAuthorization": "IdentityAddSecondaryKeysWithAuthorization",
	"pips.propose":                               "PipsPropose",
	"corporateBallot.attachBallot":               "CorporateBallotAttachBallot",
	"nft.createNftCollection":                    "NftCreateCollection",
	"nft.issueNft":                               "NftMint",
}

// ProtocolOp is the fee-charging operation of a transaction, if it has one
func ProtocolOp(tag pmapi.TxTag) (string, bool) {
	op, ok := protocolOps[tag]
	return op, ok
}

var (
	// keyed by account address
	SystemAccount = chain.NewStorageMap[AccountInfo]("system", "account")
	Subsidies     = chain.NewStorageMap[Subsidy]("relayer", "subsidies")

	// keyed by protocol op
	BaseFees    = chain.NewStorageMap[pmtypes.Balance]("protocolFee", "baseFees")
	Coefficient = chain.NewStorageValue[PosRatio]("protocolFee", "coefficient")
)
