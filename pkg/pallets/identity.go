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
)

// KeyRecord links an account to an Identity. Exactly one of the fields is set.
type KeyRecord struct {
	// DID of the Identity the account is the primary key of
	PrimaryKey   *string             `json:"primaryKey,omitempty"`
	SecondaryKey *SecondaryKeyRecord `json:"secondaryKey,omitempty"`
	// account of the multisig the key signs for
	MultiSigSignerKey *string `json:"multiSigSignerKey,omitempty"`
}

type SecondaryKeyRecord struct {
	DID         string                   `json:"did"`
	Permissions *pmapi.SignerPermissions `json:"permissions"`
}

// DID of the Identity, empty for multisig signer keys
func (kr *KeyRecord) DID() string {
	switch {
	case kr.PrimaryKey != nil:
		return *kr.PrimaryKey
	case kr.SecondaryKey != nil:
		return kr.SecondaryKey.DID
	}
	return ""
}

func (kr *KeyRecord) IsPrimary() bool {
	return kr.PrimaryKey != nil
}

// Permissions of the key, where a primary key holds every permission
func (kr *KeyRecord) Permissions() *pmapi.SignerPermissions {
	if kr.SecondaryKey != nil {
		if kr.SecondaryKey.Permissions == nil {
			return pmapi.FullSignerPermissions()
		}
		return kr.SecondaryKey.Permissions
	}
	if kr.PrimaryKey != nil {
		return pmapi.FullSignerPermissions()
	}
	// a multisig signer key has no permissions of its own
	return &pmapi.SignerPermissions{
		Assets:       &pmapi.SectionPermissions[string]{Type: pmapi.PermissionInclude},
		Transactions: &pmapi.TransactionPermissions{SectionPermissions: pmapi.SectionPermissions[string]{Type: pmapi.PermissionInclude}},
		Portfolios:   &pmapi.SectionPermissions[pmapi.PortfolioID]{Type: pmapi.PermissionInclude},
	}
}

type DidRecord struct {
	PrimaryKey string `json:"primaryKey"`
}

// ClaimFirstKey and ClaimSecondKey are the keys of the claims double map
type ClaimFirstKey struct {
	Target    string    `json:"target"`
	ClaimType ClaimType `json:"claimType"`
}

type ClaimSecondKey struct {
	Issuer string `json:"issuer"`
	Scope  *Scope `json:"scope,omitempty"`
}

type IdentityClaim struct {
	ClaimIssuer    string  `json:"claimIssuer"`
	IssuanceDate   uint64  `json:"issuanceDate"`
	LastUpdateDate uint64  `json:"lastUpdateDate"`
	Expiry         *uint64 `json:"expiry,omitempty"`
	Claim          Claim   `json:"claim"`
}

var (
	// keyed by account address
	KeyRecords = chain.NewStorageMap[KeyRecord]("identity", "keyRecords")
	// keyed by DID
	DidRecords  = chain.NewStorageMap[DidRecord]("identity", "didRecords")
	IsDidFrozen = chain.NewStorageMap[bool]("identity", "isDidFrozen")
	// keyed by ClaimFirstKey then ClaimSecondKey
	Claims = chain.NewStorageMap[IdentityClaim]("identity", "claims")

	CddServiceProviders = chain.NewStorageValue[[]string]("cddServiceProviders", "activeMembers")
)
