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

package sdktest

import (
	"context"
	"sort"
	"testing"

	"github.com/PolymeshAssociation/polymesh-sdk-sub000/internal/chaintest"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/confutil"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmconf"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmcontext"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// Setup is a connected context over an in-memory chain. The signing account is
// Accounts[0], which is the primary key of DID.
type Setup struct {
	Ctx      context.Context
	C        *pmcontext.Context
	Chain    *chaintest.Chain
	Registry *prometheus.Registry
	Accounts []string
	DID      string
}

func New(t *testing.T, confFn ...func(conf *pmconf.SDKConfig)) *Setup {
	ctx := context.Background()
	codec := chaintest.NewCodec()
	ch := chaintest.NewChain(codec)
	sm, accounts := chaintest.NewSigner(t, 3)
	sort.Strings(accounts)

	conf := &pmconf.SDKConfig{}
	conf.Submission.ConnectionRetry.InitialDelay = confutil.P("1ms")
	for _, fn := range confFn {
		fn(conf)
	}
	registry := prometheus.NewRegistry()
	c := pmcontext.New(conf, codec, sm, pmcontext.WithChain(ch), pmcontext.WithRegistry(registry))
	require.NoError(t, c.Connect(ctx))
	t.Cleanup(c.Disconnect)

	did := "0x0a01"
	ch.AddIdentity(did, accounts[0])
	return &Setup{Ctx: ctx, C: c, Chain: ch, Registry: registry, Accounts: accounts, DID: did}
}

// Metric sums every series of the named SDK metric, without its subsystem prefix
func (s *Setup) Metric(t *testing.T, name string) float64 {
	families, err := s.Registry.Gather()
	require.NoError(t, err)
	total := 0.0
	for _, f := range families {
		if f.GetName() != "polymesh_sdk_"+name {
			continue
		}
		for _, m := range f.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				total += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				total += m.GetGauge().GetValue()
			}
		}
	}
	return total
}
