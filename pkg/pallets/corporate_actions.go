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

type TargetTreatment string

const (
	TargetInclude TargetTreatment = "Include"
	TargetExclude TargetTreatment = "Exclude"
)

type TargetIdentities struct {
	Identities []string        `json:"identities"`
	Treatment  TargetTreatment `json:"treatment"`
}

type DidTax struct {
	DID string          `json:"did"`
	Tax pmtypes.Permill `json:"tax"`
}

var (
	// keyed by ticker
	DefaultTargetIdentities = chain.NewStorageMap[TargetIdentities]("corporateAction", "defaultTargetIdentities")
	DefaultWithholdingTax   = chain.NewStorageMap[pmtypes.Permill]("corporateAction", "defaultWithholdingTax")
	DidWithholdingTax       = chain.NewStorageMap[[]DidTax]("corporateAction", "didWithholdingTax")
)
