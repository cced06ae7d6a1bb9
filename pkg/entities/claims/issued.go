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

package claims

import (
	"context"
	"encoding/json"
	"time"

	"github.com/PolymeshAssociation/polymesh-sdk-sub000/internal/msgs"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/chainquery"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/middleware"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pallets"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmapi"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmerrors"
)

// DefaultIssuedClaimsPageSize applies when no page size is given
const DefaultIssuedClaimsPageSize = 25

const issuedClaimsQuery = `query IssuedClaims($filter: ClaimFilter!, $size: Int!, $start: Int!) {
  claims(filter: $filter, first: $size, offset: $start, orderBy: [TIMESTAMP_DESC]) {
    totalCount
    nodes {
      targetId
      issuerId
      issuanceDate
      lastUpdateDate
      expiry
      type
      scope
      cddId
      jurisdiction
      customClaimTypeId
    }
  }
}`

type IssuedClaimsOptions struct {
	// defaults to the signing Identity
	Issuer         string                     `json:"issuer,omitempty"`
	IncludeExpired bool                       `json:"includeExpired"`
	Pagination     pmapi.MiddlewarePagination `json:"pagination"`
}

// ClaimData is a claim as recorded by the indexer
type ClaimData struct {
	Target        string        `json:"target"`
	Issuer        string        `json:"issuer"`
	IssuedAt      time.Time     `json:"issuedAt"`
	LastUpdatedAt time.Time     `json:"lastUpdatedAt"`
	Expiry        *time.Time    `json:"expiry,omitempty"`
	Claim         pallets.Claim `json:"claim"`
}

type claimNode struct {
	TargetID          string            `json:"targetId"`
	IssuerID          string            `json:"issuerId"`
	IssuanceDate      json.Number       `json:"issuanceDate"`
	LastUpdateDate    json.Number       `json:"lastUpdateDate"`
	Expiry            *json.Number      `json:"expiry"`
	Type              pallets.ClaimType `json:"type"`
	Scope             *pallets.Scope    `json:"scope"`
	CddID             string            `json:"cddId"`
	Jurisdiction      string            `json:"jurisdiction"`
	CustomClaimTypeID *json.Number      `json:"customClaimTypeId"`
}

func millis(n json.Number) (time.Time, error) {
	ms, err := n.Int64()
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}

func (n *claimNode) toClaimData() (*ClaimData, error) {
	cd := &ClaimData{
		Target: n.TargetID,
		Issuer: n.IssuerID,
		Claim: pallets.Claim{
			Type:  n.Type,
			Scope: n.Scope,
			CddID: n.CddID,
			Code:  n.Jurisdiction,
		},
	}
	var err error
	if cd.IssuedAt, err = millis(n.IssuanceDate); err != nil {
		return nil, err
	}
	if cd.LastUpdatedAt, err = millis(n.LastUpdateDate); err != nil {
		return nil, err
	}
	if n.Expiry != nil {
		expiry, err := millis(*n.Expiry)
		if err != nil {
			return nil, err
		}
		cd.Expiry = &expiry
	}
	if n.CustomClaimTypeID != nil {
		id, err := n.CustomClaimTypeID.Int64()
		if err != nil {
			return nil, err
		}
		customID := uint32(id)
		cd.Claim.CustomClaimTypeID = &customID
	}
	return cd, nil
}

// GetIssuedClaims pages through the claims issued by an Identity, newest
// first. Revoked claims are never returned, and expired ones only on request.
func (cl *Claims) GetIssuedClaims(ctx context.Context, opts *IssuedClaimsOptions) (*pmapi.ResultSet[*ClaimData], error) {
	if opts == nil {
		opts = &IssuedClaimsOptions{}
	}
	size, start := opts.Pagination.Size, opts.Pagination.Start
	if size == 0 {
		size = DefaultIssuedClaimsPageSize
	}
	if size < 0 {
		return nil, pmerrors.New(ctx, pmerrors.KindValidation, msgs.MsgQueryInvalidPageSize, size)
	}
	issuer := opts.Issuer
	if issuer == "" {
		var err error
		if issuer, err = cl.c.SigningIdentity(ctx); err != nil {
			return nil, err
		}
	}

	filter := map[string]interface{}{
		"issuerId":   map[string]interface{}{"equalTo": issuer},
		"revokeDate": map[string]interface{}{"isNull": true},
	}
	if !opts.IncludeExpired {
		filter["or"] = []interface{}{
			map[string]interface{}{"expiry": map[string]interface{}{"isNull": true}},
			map[string]interface{}{"expiry": map[string]interface{}{"greaterThan": time.Now().UnixMilli()}},
		}
	}
	var res struct {
		Claims *struct {
			TotalCount int          `json:"totalCount"`
			Nodes      []*claimNode `json:"nodes"`
		} `json:"claims"`
	}
	err := cl.c.QueryMiddleware(ctx, &middleware.Request{
		Query:     issuedClaimsQuery,
		Variables: map[string]interface{}{"filter": filter, "size": size, "start": start},
	}, &res)
	if err != nil {
		return nil, err
	}
	if res.Claims == nil {
		return nil, pmerrors.New(ctx, pmerrors.KindDataUnavailable, msgs.MsgMiddlewareNoData)
	}

	result := &pmapi.ResultSet[*ClaimData]{
		Data:  make([]*ClaimData, 0, len(res.Claims.Nodes)),
		Next:  chainquery.CalculateNextKey(res.Claims.TotalCount, size, start),
		Count: res.Claims.TotalCount,
	}
	for _, n := range res.Claims.Nodes {
		cd, err := n.toClaimData()
		if err != nil {
			return nil, pmerrors.Wrap(ctx, pmerrors.KindUnexpected, err, msgs.MsgMiddlewareQueryFailed, err)
		}
		result.Data = append(result.Data, cd)
	}
	return result, nil
}
