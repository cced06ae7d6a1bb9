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

package middleware

import (
	"context"
	"strings"

	"github.com/PolymeshAssociation/polymesh-sdk-sub000/internal/msgs"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/confutil"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/log"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmconf"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmerrors"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmresty"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmtypes"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// Client queries the GraphQL indexer of the chain.
//
// Errors reported in the GraphQL response are KindDataUnavailable. Failures to
// reach the indexer are KindConnection.
type Client interface {
	Query(ctx context.Context, req *Request, result interface{}) error
	Metadata(ctx context.Context) (*Metadata, error)
}

type Request struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type GraphQLError struct {
	Message string        `json:"message"`
	Path    []interface{} `json:"path,omitempty"`
}

type response struct {
	Data   pmtypes.RawJSON `json:"data"`
	Errors []*GraphQLError `json:"errors,omitempty"`
}

// Metadata describes how far the indexer has processed the chain
type Metadata struct {
	Chain                  string `json:"chain"`
	GenesisHash            string `json:"genesisHash"`
	LastProcessedHeight    uint64 `json:"lastProcessedHeight"`
	LastProcessedTimestamp string `json:"lastProcessedTimestamp"`
	TargetHeight           uint64 `json:"targetHeight"`
	IndexerHealthy         bool   `json:"indexerHealthy"`
}

const metadataQuery = `query { _metadata { chain genesisHash lastProcessedHeight lastProcessedTimestamp targetHeight indexerHealthy } }`

type client struct {
	rest    *resty.Client
	limiter *rate.Limiter
}

func New(ctx context.Context, conf *pmconf.MiddlewareConfig) (Client, error) {
	rest, err := pmresty.New(ctx, &conf.HTTPClientConfig)
	if err != nil {
		return nil, err
	}
	def := pmconf.MiddlewareDefaults
	limit := rate.Inf
	if perSecond := confutil.Float64Min(conf.RateLimit, 0, *def.RateLimit); perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &client{
		rest:    rest,
		limiter: rate.NewLimiter(limit, confutil.IntMin(conf.Burst, 1, *def.Burst)),
	}, nil
}

func (c *client) Query(ctx context.Context, req *Request, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return pmerrors.Wrap(ctx, pmerrors.KindUnexpected, err, msgs.MsgContextCanceled)
	}
	var gqlRes response
	res, err := c.rest.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&gqlRes).
		SetError(&gqlRes).
		Post("")
	if err != nil {
		return pmresty.WrapRestErr(ctx, res, err)
	}
	if len(gqlRes.Errors) > 0 {
		messages := make([]string, len(gqlRes.Errors))
		for i, e := range gqlRes.Errors {
			messages[i] = e.Message
		}
		log.L(ctx).Errorf("Middleware query failed: %s", strings.Join(messages, "; "))
		return pmerrors.New(ctx, pmerrors.KindDataUnavailable, msgs.MsgMiddlewareQueryFailed, strings.Join(messages, "; ")).
			WithData("errors", gqlRes.Errors)
	}
	if res.IsError() {
		return pmresty.WrapRestErr(ctx, res, nil)
	}
	if gqlRes.Data.IsNil() {
		return pmerrors.New(ctx, pmerrors.KindDataUnavailable, msgs.MsgMiddlewareNoData)
	}
	if result != nil {
		if err := gqlRes.Data.Unmarshal(result); err != nil {
			return pmerrors.Wrap(ctx, pmerrors.KindUnexpected, err, msgs.MsgMiddlewareQueryFailed, err)
		}
	}
	return nil
}

func (c *client) Metadata(ctx context.Context) (*Metadata, error) {
	var res struct {
		Metadata *Metadata `json:"_metadata"`
	}
	if err := c.Query(ctx, &Request{Query: metadataQuery}, &res); err != nil {
		return nil, err
	}
	if res.Metadata == nil {
		return nil, pmerrors.New(ctx, pmerrors.KindDataUnavailable, msgs.MsgMiddlewareNoData)
	}
	return res.Metadata, nil
}
