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

package chaintest

import (
	"context"
	"testing"

	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/chain"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pallets"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmapi"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmtypes"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/signing"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/ss58"
	"github.com/stretchr/testify/require"
)

type reader struct {
	c     *Chain
	codec *Codec
}

func (r *reader) Chain() chain.Chain {
	return r.c
}

func (r *reader) Codec() chain.Codec {
	return r.codec
}

// NewReader is an empty in-memory chain, and a reader over it
func NewReader() (*Chain, chain.Reader) {
	codec := NewCodec()
	c := NewChain(codec)
	return c, &reader{c: c, codec: codec}
}

// NewSigner generates n keys, returning the addresses in generation order
func NewSigner(t *testing.T, n int) (*signing.LocalManager, []string) {
	sm := signing.NewLocalManager(ss58.PolymeshPrefix)
	addresses := make([]string, n)
	for i := range addresses {
		address, err := sm.GenerateKey(context.Background())
		require.NoError(t, err)
		addresses[i] = address
	}
	return sm, addresses
}

// AddIdentity registers the DID with the account as its primary key, and funds the account
func (c *Chain) AddIdentity(did, account string) {
	c.Set("identity", "didRecords", &pallets.DidRecord{PrimaryKey: account}, did)
	c.Set("identity", "keyRecords", &pallets.KeyRecord{PrimaryKey: &did}, account)
	c.SetBalance(account, pmtypes.BalanceFromWhole(1000))
}

// AddSecondaryKey joins the account to the DID, with nil permissions meaning full permissions
func (c *Chain) AddSecondaryKey(did, account string, permissions *pmapi.SignerPermissions) {
	c.Set("identity", "keyRecords", &pallets.KeyRecord{
		SecondaryKey: &pallets.SecondaryKeyRecord{DID: did, Permissions: permissions},
	}, account)
	c.SetBalance(account, pmtypes.BalanceFromWhole(1000))
}

func (c *Chain) SetBalance(account string, free pmtypes.Balance) {
	c.Set("system", "account", &pallets.AccountInfo{Data: pallets.AccountData{Free: free}}, account)
}

// AddAsset creates an asset owned by the DID, with the owner as a full agent
func (c *Chain) AddAsset(ticker, ownerDID string, details *pallets.AssetDetails) {
	if details == nil {
		details = &pallets.AssetDetails{Divisible: true, AssetType: "EquityCommon"}
	}
	details.OwnerDID = ownerDID
	c.Set("asset", "tickers", &pallets.TickerRegistration{Owner: ownerDID}, ticker)
	c.Set("asset", "tokens", details, ticker)
	c.Set("externalAgents", "groupOfAgent", &pallets.AgentGroup{Type: pallets.AgentGroupFull}, ticker, ownerDID)
}
