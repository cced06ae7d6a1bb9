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

	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/chain"
)

type ConditionKind string

const (
	ConditionIsPresent       ConditionKind = "IsPresent"
	ConditionIsAbsent        ConditionKind = "IsAbsent"
	ConditionIsAnyOf         ConditionKind = "IsAnyOf"
	ConditionIsNoneOf        ConditionKind = "IsNoneOf"
	ConditionIsIdentity      ConditionKind = "IsIdentity"
	ConditionIsExternalAgent ConditionKind = "IsExternalAgent"
)

func (ck ConditionKind) Options() []string {
	return []string{
		string(ConditionIsPresent),
		string(ConditionIsAbsent),
		string(ConditionIsAnyOf),
		string(ConditionIsNoneOf),
		string(ConditionIsIdentity),
		string(ConditionIsExternalAgent),
	}
}

// ConditionType holds Claim for IsPresent/IsAbsent, Claims for IsAnyOf/IsNoneOf,
// and Identity for IsIdentity
type ConditionType struct {
	Kind     ConditionKind `json:"kind"`
	Claim    *Claim        `json:"claim,omitempty"`
	Claims   []Claim       `json:"claims,omitempty"`
	Identity string        `json:"identity,omitempty"`
}

// TrustedIssuer is trusted for every claim type when TrustedFor is nil
type TrustedIssuer struct {
	Issuer     string      `json:"issuer"`
	TrustedFor []ClaimType `json:"trustedFor,omitempty"`
}

// Condition on the sender or receiver of a transfer. An empty issuer list means
// the default trusted claim issuers of the asset.
type Condition struct {
	ConditionType ConditionType   `json:"conditionType"`
	Issuers       []TrustedIssuer `json:"issuers"`
}

type ComplianceRequirement struct {
	SenderConditions   []Condition `json:"senderConditions"`
	ReceiverConditions []Condition `json:"receiverConditions"`
	ID                 uint32      `json:"id"`
}

// SameConditions compares the conditions of two requirements, ignoring IDs
func (cr *ComplianceRequirement) SameConditions(o *ComplianceRequirement) bool {
	return conditionsEqual(cr.SenderConditions, o.SenderConditions) &&
		conditionsEqual(cr.ReceiverConditions, o.ReceiverConditions)
}

func conditionsEqual(a, b []Condition) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equals(b[i]) {
			return false
		}
	}
	return true
}

// Equals compares two conditions, treating empty and missing lists alike
func (c Condition) Equals(o Condition) bool {
	return reflect.DeepEqual(c.normalized(), o.normalized())
}

func (c Condition) normalized() Condition {
	if len(c.Issuers) == 0 {
		c.Issuers = nil
	}
	if len(c.ConditionType.Claims) == 0 {
		c.ConditionType.Claims = nil
	}
	return c
}

type AssetCompliance struct {
	Paused       bool                    `json:"paused"`
	Requirements []ComplianceRequirement `json:"requirements"`
}

var (
	// keyed by ticker
	AssetCompliances   = chain.NewStorageMap[AssetCompliance]("complianceManager", "assetCompliances")
	TrustedClaimIssuer = chain.NewStorageMap[[]TrustedIssuer]("complianceManager", "trustedClaimIssuer")
)
