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

package pmcontext

import (
	"context"
	"sort"
	"testing"

	"github.com/PolymeshAssociation/polymesh-sdk-sub000/internal/chaintest"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/confutil"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/middleware"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmconf"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmerrors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testSetup struct {
	ctx      context.Context
	c        *Context
	chain    *chaintest.Chain
	accounts []string
}

func newTestContext(t *testing.T, confFn ...func(conf *pmconf.SDKConfig)) *testSetup {
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
	c := New(conf, codec, sm, WithChain(ch), WithRegistry(prometheus.NewRegistry()))
	require.NoError(t, c.Connect(ctx))
	t.Cleanup(c.Disconnect)
	return &testSetup{ctx: ctx, c: c, chain: ch, accounts: accounts}
}

func TestConnectDisconnect(t *testing.T) {
	ts := newTestContext(t)
	ctx, c := ts.ctx, ts.c

	assert.Equal(t, ts.accounts[0], c.SigningAccount())
	assert.Equal(t, ts.chain, c.Chain())
	assert.NotNil(t, c.Codec())
	assert.NotNil(t, c.Metrics())
	assert.True(t, c.WaitForFinalization())
	assert.False(t, c.IsMiddlewareEnabled())

	err := c.Connect(ctx)
	assert.Regexp(t, "PM010306", err)

	bg := c.BackgroundContext()
	c.Disconnect()
	c.Disconnect()
	assert.Error(t, bg.Err())
	// an injected chain stays open
	_, err = ts.chain.AccountNextIndex(ctx, ts.accounts[0])
	assert.NoError(t, err)

	err = c.Connect(ctx)
	assert.Regexp(t, "PM010307", err)
}

func TestConnectConfiguredAccount(t *testing.T) {
	ctx := context.Background()
	codec := chaintest.NewCodec()
	sm, accounts := chaintest.NewSigner(t, 2)
	sort.Strings(accounts)

	conf := &pmconf.SDKConfig{}
	conf.Signing.Account = confutil.P(accounts[1])
	c := New(conf, codec, sm, WithChain(chaintest.NewChain(codec)))
	require.NoError(t, c.Connect(ctx))
	defer c.Disconnect()
	assert.Equal(t, accounts[1], c.SigningAccount())

	_, others := chaintest.NewSigner(t, 1)
	conf = &pmconf.SDKConfig{}
	conf.Signing.Account = confutil.P(others[0])
	c2 := New(conf, codec, sm, WithChain(chaintest.NewChain(codec)))
	err := c2.Connect(ctx)
	assert.Regexp(t, "PM010301", err)
	assert.True(t, pmerrors.Is(err, pmerrors.KindValidation))
}

func TestConnectBadNodeURL(t *testing.T) {
	conf := &pmconf.SDKConfig{}
	conf.Node.URL = "wrong://localhost"
	c := New(conf, chaintest.NewCodec(), nil)
	err := c.Connect(context.Background())
	assert.Regexp(t, "PM010100", err)
}

func TestNoSigner(t *testing.T) {
	ctx := context.Background()
	codec := chaintest.NewCodec()
	c := New(&pmconf.SDKConfig{}, codec, nil, WithChain(chaintest.NewChain(codec)))
	require.NoError(t, c.Connect(ctx))
	defer c.Disconnect()

	assert.Empty(t, c.SigningAccount())
	_, err := c.RequireSigningAccount(ctx)
	assert.Regexp(t, "PM010300", err)
	_, err = c.SigningIdentity(ctx)
	assert.Regexp(t, "PM010300", err)
	err = c.SetSigningAccount(ctx, "anything")
	assert.Regexp(t, "PM010301", err)
}

func TestSetSigningAccount(t *testing.T) {
	ts := newTestContext(t)
	ctx, c := ts.ctx, ts.c

	require.NoError(t, c.SetSigningAccount(ctx, ts.accounts[2]))
	assert.Equal(t, ts.accounts[2], c.SigningAccount())

	_, others := chaintest.NewSigner(t, 1)
	err := c.SetSigningAccount(ctx, others[0])
	assert.Regexp(t, "PM010301", err)

	err = c.SetSigningAccount(ctx, "not-an-address")
	assert.True(t, pmerrors.Is(err, pmerrors.KindValidation))
	assert.Equal(t, ts.accounts[2], c.SigningAccount())
}

func TestSigningIdentity(t *testing.T) {
	ts := newTestContext(t)
	ctx, c := ts.ctx, ts.c

	_, err := c.SigningIdentity(ctx)
	assert.Regexp(t, "PM010302", err)
	assert.True(t, pmerrors.Is(err, pmerrors.KindDataUnavailable))

	ts.chain.AddIdentity("0xa1", ts.accounts[0])
	did, err := c.SigningIdentity(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0xa1", did)

	ts.chain.AddSecondaryKey("0xa1", ts.accounts[1], nil)
	did, err = c.IdentityOf(ctx, ts.accounts[1])
	require.NoError(t, err)
	assert.Equal(t, "0xa1", did)

	frozen, err := c.IsIdentityFrozen(ctx, "0xa1")
	require.NoError(t, err)
	assert.False(t, frozen)
	ts.chain.Set("identity", "isDidFrozen", true, "0xa1")
	frozen, err = c.IsIdentityFrozen(ctx, "0xa1")
	require.NoError(t, err)
	assert.True(t, frozen)
}

func TestQueryMiddlewareDisabled(t *testing.T) {
	ts := newTestContext(t)
	var res map[string]any
	err := ts.c.QueryMiddleware(ts.ctx, &middleware.Request{Query: "{ blocks { nodes { id } } }"}, &res)
	assert.Regexp(t, "PM010304", err)
	assert.True(t, pmerrors.Is(err, pmerrors.KindValidation))
}
