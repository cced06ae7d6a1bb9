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
	"reflect"

	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmtypes"
)

type ClaimType string

const (
	ClaimAccredited           ClaimType = "Accredited"
	ClaimAffiliate            ClaimType = "Affiliate"
	ClaimBuyLockup            ClaimType = "BuyLockup"
	ClaimSellLockup           ClaimType = "SellLockup"
	ClaimCustomerDueDiligence ClaimType = "CustomerDueDiligence"
	ClaimKnowYourCustomer     ClaimType = "KnowYourCustomer"
	ClaimJurisdiction         ClaimType = "Jurisdiction"
	ClaimExempted             ClaimType = "Exempted"
	ClaimBlocked              ClaimType = "Blocked"
	ClaimCustom               ClaimType = "Custom"
)

func (ct ClaimType) Enum() pmtypes.Enum[ClaimType] {
	return pmtypes.Enum[ClaimType](ct)
}

func (ct ClaimType) Options() []string {
	return []string{
		string(ClaimAccredited),
		string(ClaimAffiliate),
		string(ClaimBuyLockup),
		string(ClaimSellLockup),
		string(ClaimCustomerDueDiligence),
		string(ClaimKnowYourCustomer),
		string(ClaimJurisdiction),
		string(ClaimExempted),
		string(ClaimBlocked),
		string(ClaimCustom),
	}
}

type ScopeType string

const (
	ScopeIdentity ScopeType = "Identity"
	ScopeTicker   ScopeType = "Ticker"
	ScopeCustom   ScopeType = "Custom"
)

type Scope struct {
	Type  ScopeType `json:"type"`
	Value string    `json:"value"`
}

// Claim is scoped, except for CustomerDueDiligence which carries a CDD ID instead
type Claim struct {
	Type  ClaimType `json:"type"`
	Scope *Scope    `json:"scope,omitempty"`
	CddID string    `json:"cddId,omitempty"`
	// country code, for Jurisdiction claims
	Code string `json:"code,omitempty"`
	// for Custom claims
	CustomClaimTypeID *uint32 `json:"customClaimTypeId,omitempty"`
}

func (c Claim) Equals(o Claim) bool {
	return reflect.DeepEqual(c, o)
}
