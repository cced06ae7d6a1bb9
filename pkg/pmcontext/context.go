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
	"slices"
	"sync"

	"github.com/PolymeshAssociation/polymesh-sdk-sub000/internal/msgs"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/cache"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/chain"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/confutil"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/log"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/metrics"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/middleware"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pallets"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmconf"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmerrors"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmtypes"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/retry"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/signing"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/ss58"
	"github.com/prometheus/client_golang/prometheus"
)

// Context is the handle procedures and read methods share: the node connection,
// the signing account, and the middleware. It is safe for concurrent use, and
// procedures never change it.
type Context struct {
	conf   *pmconf.SDKConfig
	codec  chain.Codec
	signer signing.Manager

	bgCtx     context.Context
	cancelCtx context.CancelFunc

	mux            sync.Mutex
	chain          chain.Chain
	ownsChain      bool
	middleware     middleware.Client
	registry       prometheus.Registerer
	metrics        metrics.SDKMetrics
	signingAccount string
	connected      bool
	disconnected   bool

	protocolFees    cache.Cache[string, pmtypes.Balance]
	submissionRetry *retry.Retry
}

type Option func(c *Context)

// WithChain uses an existing node connection, which Disconnect does not close
func WithChain(ch chain.Chain) Option {
	return func(c *Context) {
		c.chain = ch
	}
}

func WithMiddleware(mw middleware.Client) Option {
	return func(c *Context) {
		c.middleware = mw
	}
}

// WithRegistry registers the SDK metrics, when metrics are enabled
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Context) {
		c.registry = registry
	}
}

func New(conf *pmconf.SDKConfig, codec chain.Codec, signer signing.Manager, opts ...Option) *Context {
	c := &Context{
		conf:            conf,
		codec:           codec,
		signer:          signer,
		protocolFees:    cache.NewCache[string, pmtypes.Balance](&conf.Fees.ProtocolFeeCache, &pmconf.FeesDefaults.ProtocolFeeCache),
		submissionRetry: retry.NewRetryLimited(&conf.Submission.ConnectionRetry, &pmconf.SubmissionDefaults.ConnectionRetry),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Connect opens the node connection and the middleware, when configured, and
// resolves the signing account
func (c *Context) Connect(ctx context.Context) error {
	c.mux.Lock()
	defer c.mux.Unlock()
	switch {
	case c.disconnected:
		return pmerrors.New(ctx, pmerrors.KindValidation, msgs.MsgContextDisconnected)
	case c.connected:
		return pmerrors.New(ctx, pmerrors.KindValidation, msgs.MsgContextAlreadyConnected)
	}
	c.bgCtx, c.cancelCtx = context.WithCancel(log.WithComponent(context.WithoutCancel(ctx), "sdk"))

	var registry prometheus.Registerer
	if confutil.Bool(c.conf.Metrics.Enabled, *pmconf.MetricsDefaults.Enabled) {
		registry = c.registry
	}
	c.metrics = metrics.InitMetrics(ctx, registry)

	account, err := c.resolveSigningAccount(ctx)
	if err != nil {
		c.cancelCtx()
		return err
	}

	if c.chain == nil {
		ch, err := chain.NewRPCChain(c.bgCtx, &c.conf.Node)
		if err != nil {
			c.cancelCtx()
			return err
		}
		c.chain = ch
		c.ownsChain = true
	}
	if c.middleware == nil && c.conf.Middleware.URL != "" {
		mw, err := middleware.New(ctx, &c.conf.Middleware)
		if err != nil {
			c.cancelCtx()
			if c.ownsChain {
				c.chain.Close()
			}
			return err
		}
		c.middleware = mw
	}

	c.signingAccount = account
	c.connected = true
	log.L(ctx).Infof("Connected (signingAccount=%s middleware=%t)", account, c.middleware != nil)
	return nil
}

func (c *Context) resolveSigningAccount(ctx context.Context) (string, error) {
	if c.signer == nil {
		return "", nil
	}
	if configured := confutil.StringOrEmpty(c.conf.Signing.Account, ""); configured != "" {
		return configured, c.checkManagedAccount(ctx, configured)
	}
	accounts, err := c.signer.Accounts(ctx)
	if err != nil || len(accounts) == 0 {
		return "", err
	}
	return accounts[0], nil
}

func (c *Context) checkManagedAccount(ctx context.Context, address string) error {
	prefix := confutil.Int(c.conf.Signing.SS58Prefix, *pmconf.SigningDefaults.SS58Prefix)
	if _, err := ss58.Validate(ctx, address, prefix); err != nil {
		return pmerrors.WithKind(pmerrors.KindValidation, err)
	}
	accounts, err := c.signer.Accounts(ctx)
	if err != nil {
		return err
	}
	if !slices.Contains(accounts, address) {
		return pmerrors.New(ctx, pmerrors.KindValidation, msgs.MsgContextUnknownAccount, address)
	}
	return nil
}

// Disconnect stops all background tracking and closes the connections it
// opened. It is idempotent, and the context cannot be reconnected.
func (c *Context) Disconnect() {
	c.mux.Lock()
	defer c.mux.Unlock()
	if c.disconnected {
		return
	}
	c.disconnected = true
	if !c.connected {
		return
	}
	c.connected = false
	c.cancelCtx()
	if c.ownsChain {
		c.chain.Close()
	}
	c.protocolFees.Clear()
	log.L(c.bgCtx).Infof("Disconnected")
}

// BackgroundContext carries transaction tracking and subscriptions, and is
// cancelled by Disconnect
func (c *Context) BackgroundContext() context.Context {
	c.mux.Lock()
	defer c.mux.Unlock()
	if c.bgCtx == nil {
		return context.Background()
	}
	return c.bgCtx
}

func (c *Context) Chain() chain.Chain {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.chain
}

func (c *Context) Codec() chain.Codec {
	return c.codec
}

func (c *Context) Metrics() metrics.SDKMetrics {
	c.mux.Lock()
	defer c.mux.Unlock()
	if c.metrics == nil {
		c.metrics = metrics.InitMetrics(context.Background(), nil)
	}
	return c.metrics
}

func (c *Context) WaitForFinalization() bool {
	return confutil.Bool(c.conf.Submission.WaitForFinalization, *pmconf.SubmissionDefaults.WaitForFinalization)
}

// SigningAccount is empty when the signing manager has no accounts
func (c *Context) SigningAccount() string {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.signingAccount
}

// RequireSigningAccount returns the signing account, failing when there is none
func (c *Context) RequireSigningAccount(ctx context.Context) (string, error) {
	if account := c.SigningAccount(); account != "" {
		return account, nil
	}
	return "", pmerrors.New(ctx, pmerrors.KindValidation, msgs.MsgContextNoSigningAccount)
}

// CheckSigningAccount fails unless the signing manager holds the key of the address
func (c *Context) CheckSigningAccount(ctx context.Context, address string) error {
	if c.signer == nil {
		return pmerrors.New(ctx, pmerrors.KindValidation, msgs.MsgContextUnknownAccount, address)
	}
	return c.checkManagedAccount(ctx, address)
}

// SetSigningAccount switches to another account of the signing manager
func (c *Context) SetSigningAccount(ctx context.Context, address string) error {
	if err := c.CheckSigningAccount(ctx, address); err != nil {
		return err
	}
	c.mux.Lock()
	defer c.mux.Unlock()
	c.signingAccount = address
	return nil
}

// KeyRecord of the account, nil when it is not linked to an Identity
func (c *Context) KeyRecord(ctx context.Context, account string) (*pallets.KeyRecord, error) {
	return pallets.KeyRecords.Get(ctx, c, account)
}

// IdentityOf returns the DID the account belongs to, or a DataUnavailable error
func (c *Context) IdentityOf(ctx context.Context, account string) (string, error) {
	kr, err := c.KeyRecord(ctx, account)
	if err != nil {
		return "", err
	}
	if kr == nil || kr.DID() == "" {
		return "", pmerrors.New(ctx, pmerrors.KindDataUnavailable, msgs.MsgContextNoIdentity, account)
	}
	return kr.DID(), nil
}

// SigningIdentity is the DID of the signing account
func (c *Context) SigningIdentity(ctx context.Context) (string, error) {
	account, err := c.RequireSigningAccount(ctx)
	if err != nil {
		return "", err
	}
	return c.IdentityOf(ctx, account)
}

func (c *Context) IsIdentityFrozen(ctx context.Context, did string) (bool, error) {
	frozen, err := pallets.IsDidFrozen.Get(ctx, c, did)
	if err != nil || frozen == nil {
		return false, err
	}
	return *frozen, nil
}

func (c *Context) IsMiddlewareEnabled() bool {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.middleware != nil
}

func (c *Context) QueryMiddleware(ctx context.Context, req *middleware.Request, result interface{}) error {
	c.mux.Lock()
	mw := c.middleware
	c.mux.Unlock()
	if mw == nil {
		return pmerrors.New(ctx, pmerrors.KindValidation, msgs.MsgContextMiddlewareDisabled)
	}
	return mw.Query(ctx, req, result)
}
