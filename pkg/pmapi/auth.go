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

package pmapi

import (
	"fmt"
	"strings"

	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmtypes"
)

type RoleType string

const (
	RoleTickerOwner        RoleType = "TickerOwner"
	RoleCddProvider        RoleType = "CddProvider"
	RoleVenueOwner         RoleType = "VenueOwner"
	RolePortfolioCustodian RoleType = "PortfolioCustodian"
	RoleIdentity           RoleType = "Identity"
)

func (rt RoleType) Enum() pmtypes.Enum[RoleType] {
	return pmtypes.Enum[RoleType](rt)
}

func (rt RoleType) Options() []string {
	return []string{
		string(RoleTickerOwner),
		string(RoleCddProvider),
		string(RoleVenueOwner),
		string(RolePortfolioCustodian),
		string(RoleIdentity),
	}
}

// PortfolioID identifies the default portfolio of an Identity when Number is nil
type PortfolioID struct {
	DID    string  `json:"did"`
	Number *uint64 `json:"number,omitempty"`
}

func (p PortfolioID) String() string {
	if p.Number == nil {
		return fmt.Sprintf("%s/default", p.DID)
	}
	return fmt.Sprintf("%s/%d", p.DID, *p.Number)
}

func (p PortfolioID) Equals(o PortfolioID) bool {
	if p.DID != o.DID {
		return false
	}
	if p.Number == nil || o.Number == nil {
		return p.Number == nil && o.Number == nil
	}
	return *p.Number == *o.Number
}

// Role is a predicate over the signing Identity. Only the field for the type is set.
type Role struct {
	Type      RoleType     `json:"type"`
	Ticker    string       `json:"ticker,omitempty"`
	VenueID   uint64       `json:"venueId,omitempty"`
	Portfolio *PortfolioID `json:"portfolioId,omitempty"`
	DID       string       `json:"did,omitempty"`
}

func (r Role) String() string {
	switch r.Type {
	case RoleTickerOwner:
		return fmt.Sprintf("%s(%s)", r.Type, r.Ticker)
	case RoleVenueOwner:
		return fmt.Sprintf("%s(%d)", r.Type, r.VenueID)
	case RolePortfolioCustodian:
		if r.Portfolio != nil {
			return fmt.Sprintf("%s(%s)", r.Type, r.Portfolio)
		}
	case RoleIdentity:
		return fmt.Sprintf("%s(%s)", r.Type, r.DID)
	}
	return string(r.Type)
}

func TickerOwnerRole(ticker string) Role {
	return Role{Type: RoleTickerOwner, Ticker: ticker}
}

func CddProviderRole() Role {
	return Role{Type: RoleCddProvider}
}

func VenueOwnerRole(venueID uint64) Role {
	return Role{Type: RoleVenueOwner, VenueID: venueID}
}

func IdentityRole(did string) Role {
	return Role{Type: RoleIdentity, DID: did}
}

func PortfolioCustodianRole(p PortfolioID) Role {
	return Role{Type: RolePortfolioCustodian, Portfolio: &p}
}

type RolesRule string

const (
	// any one of the roles is enough
	RolesAnyOf RolesRule = "anyOf"
	RolesAllOf RolesRule = "allOf"
)

type PermissionType string

const (
	PermissionInclude PermissionType = "Include"
	PermissionExclude PermissionType = "Exclude"
)

// SectionPermissions restricts a section of the permissions of a key. A nil
// section grants everything in the section.
type SectionPermissions[T any] struct {
	Type   PermissionType `json:"type"`
	Values []T            `json:"values"`
}

// TransactionPermissions values are transaction tags ("asset.issue") or whole
// modules ("asset"). Exceptions carve tags out of an included module.
type TransactionPermissions struct {
	SectionPermissions[string] `json:",inline"`
	Exceptions                 []string `json:"exceptions,omitempty"`
}

// Allows applies the include/exclude rule to a transaction tag
func (tp *TransactionPermissions) Allows(tag TxTag) bool {
	if tp == nil {
		return true
	}
	matched := false
	for _, v := range tp.Values {
		if v == string(tag) || (!strings.Contains(v, ".") && v == tag.Module()) {
			matched = true
			break
		}
	}
	for _, e := range tp.Exceptions {
		if e == string(tag) {
			matched = false
			break
		}
	}
	if tp.Type == PermissionExclude {
		return !matched
	}
	return matched
}

// SignerPermissions are the permissions of a key over the Identity it belongs to
type SignerPermissions struct {
	Assets       *SectionPermissions[string]      `json:"assets"`
	Transactions *TransactionPermissions          `json:"transactions"`
	Portfolios   *SectionPermissions[PortfolioID] `json:"portfolios"`
}

func FullSignerPermissions() *SignerPermissions {
	return &SignerPermissions{}
}

func (sp *SignerPermissions) AllowsAsset(ticker string) bool {
	return sectionAllows(sp.Assets, func(v string) bool { return v == ticker })
}

func (sp *SignerPermissions) AllowsPortfolio(p PortfolioID) bool {
	return sectionAllows(sp.Portfolios, func(v PortfolioID) bool { return v.Equals(p) })
}

func (sp *SignerPermissions) AllowsTransaction(tag TxTag) bool {
	return sp.Transactions.Allows(tag)
}

func sectionAllows[T any](s *SectionPermissions[T], match func(T) bool) bool {
	if s == nil {
		return true
	}
	found := false
	for _, v := range s.Values {
		if match(v) {
			found = true
			break
		}
	}
	if s.Type == PermissionExclude {
		return !found
	}
	return found
}

// SignerPermissionsRequirement lists what the signing key must be permitted over.
// Every item must be allowed.
type SignerPermissionsRequirement struct {
	Assets       []string      `json:"assets,omitempty"`
	Transactions []TxTag       `json:"transactions,omitempty"`
	Portfolios   []PortfolioID `json:"portfolios,omitempty"`
}

func (r *SignerPermissionsRequirement) IsEmpty() bool {
	return r == nil || (len(r.Assets) == 0 && len(r.Transactions) == 0 && len(r.Portfolios) == 0)
}

// AgentPermissionsRequirement requires the signing Identity to be an external agent
// of the asset, with permission for every listed transaction
type AgentPermissionsRequirement struct {
	Ticker       string  `json:"ticker"`
	Transactions []TxTag `json:"transactions"`
}

// AuthorizationRequirement is evaluated against the chain before any call is built
type AuthorizationRequirement struct {
	Roles     []Role                        `json:"roles,omitempty"`
	RolesRule RolesRule                     `json:"rolesRule,omitempty"`
	Signer    *SignerPermissionsRequirement `json:"signerPermissions,omitempty"`
	Agent     *AgentPermissionsRequirement  `json:"agentPermissions,omitempty"`
	// the signing account must belong to an Identity, implied by roles or agent permissions
	RequireIdentity bool `json:"requireIdentity,omitempty"`
}

// AuthorizationResult explains a denial. Allowed is true only when nothing is missing.
type AuthorizationResult struct {
	Allowed                  bool                          `json:"allowed"`
	NoIdentity               bool                          `json:"noIdentity,omitempty"`
	AccountFrozen            bool                          `json:"accountFrozen,omitempty"`
	MissingRoles             []Role                        `json:"missingRoles,omitempty"`
	MissingSignerPermissions *SignerPermissionsRequirement `json:"missingSignerPermissions,omitempty"`
	MissingAgentPermissions  []TxTag                       `json:"missingAgentPermissions,omitempty"`
}
