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

package procedure

import (
	"context"
	"strings"

	"github.com/PolymeshAssociation/polymesh-sdk-sub000/internal/msgs"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/log"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmapi"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmcontext"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmerrors"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/transaction"
	"github.com/hyperledger/firefly-common/pkg/i18n"
)

// Procedure turns validated arguments into chain calls, without submitting them.
// Storage is loaded once per invocation and is private to it.
type Procedure[A, S, R any] struct {
	Name string
	// PrepareStorage reads the chain state the other steps need
	PrepareStorage func(ctx context.Context, c *pmcontext.Context, args A) (S, error)
	// Authorize returns what the signer must hold, nil when anyone may run it
	Authorize func(ctx context.Context, c *pmcontext.Context, args A, storage S) (*pmapi.AuthorizationRequirement, error)
	// Prepare validates the arguments and describes the calls. It must not change any state.
	Prepare func(ctx context.Context, c *pmcontext.Context, args A, storage S) (*Plan[R], error)
}

// Plan is what a procedure will submit. Resolver builds the result from the
// receipt, and a nil Resolver yields the zero value.
type Plan[R any] struct {
	Calls    []*pmapi.ChainCall
	Resolver transaction.Resolver[R]
}

// Value is a resolver for a result known before submission
func Value[R any](v R) transaction.Resolver[R] {
	return func(ctx context.Context, receipt *pmapi.TxReceipt) (R, error) {
		return v, nil
	}
}

type signerKey struct{}

// SigningAccount of the invocation the steps run in, for procedures that depend
// on who signs. Outside an invocation it is the default signing account.
func SigningAccount(ctx context.Context, c *pmcontext.Context) string {
	if account, ok := ctx.Value(signerKey{}).(string); ok {
		return account
	}
	return c.SigningAccount()
}

// SigningIdentity is the DID of the SigningAccount
func SigningIdentity(ctx context.Context, c *pmcontext.Context) (string, error) {
	return c.IdentityOf(ctx, SigningAccount(ctx, c))
}

type invocation struct {
	signer string
	nonce  *uint64
}

type Option func(inv *invocation)

// WithSigningAccount signs with another managed account instead of the default
func WithSigningAccount(account string) Option {
	return func(inv *invocation) {
		inv.signer = account
	}
}

func WithNonce(nonce uint64) Option {
	return func(inv *invocation) {
		inv.nonce = &nonce
	}
}

// resolveSigner returns the context the steps run in, carrying the signing account
func (inv *invocation) resolveSigner(ctx context.Context, c *pmcontext.Context) (context.Context, string, error) {
	account := inv.signer
	if account == "" {
		var err error
		if account, err = c.RequireSigningAccount(ctx); err != nil {
			return nil, "", err
		}
	} else if err := c.CheckSigningAccount(ctx, account); err != nil {
		return nil, "", err
	}
	return context.WithValue(ctx, signerKey{}, account), account, nil
}

func newInvocation(opts []Option) *invocation {
	inv := &invocation{}
	for _, o := range opts {
		o(inv)
	}
	return inv
}

func (p *Procedure[A, S, R]) storage(ctx context.Context, c *pmcontext.Context, args A) (storage S, err error) {
	if p.PrepareStorage != nil {
		storage, err = p.PrepareStorage(ctx, c, args)
	}
	return storage, err
}

// checkAuthorization runs the storage and authorization steps only
func (p *Procedure[A, S, R]) checkAuthorization(ctx context.Context, c *pmcontext.Context, account string, args A, storage S) (*pmapi.AuthorizationRequirement, *pmapi.AuthorizationResult, error) {
	if p.Authorize == nil {
		return nil, &pmapi.AuthorizationResult{Allowed: true}, nil
	}
	req, err := p.Authorize(ctx, c, args, storage)
	if err != nil {
		return nil, nil, err
	}
	res, err := c.CheckAuthorization(ctx, account, req)
	return req, res, err
}

// prepare runs the pipeline of the procedure, and builds an unsubmitted
// transaction. Nothing is built if any step fails.
func prepare[A, S, R, T any](ctx context.Context, c *pmcontext.Context, p *Procedure[A, S, R], args A, transform func(R) (T, error), opts []Option) (prepared *transaction.Prepared[T], err error) {
	ctx = log.WithLogField(ctx, "procedure", p.Name)
	defer func() {
		if err != nil {
			c.Metrics().IncProceduresRejected(p.Name, string(pmerrors.KindOf(err)))
		}
	}()

	if p.Prepare == nil {
		return nil, pmerrors.New(ctx, pmerrors.KindUnexpected, msgs.MsgProcedureMissingPrepare, p.Name)
	}
	inv := newInvocation(opts)
	ctx, account, err := inv.resolveSigner(ctx, c)
	if err != nil {
		return nil, err
	}

	storage, err := p.storage(ctx, c, args)
	if err != nil {
		return nil, err
	}
	req, res, err := p.checkAuthorization(ctx, c, account, args, storage)
	if err != nil {
		return nil, err
	}
	if !res.Allowed {
		return nil, pmerrors.New(ctx, pmerrors.KindAuthorization, msgs.MsgProcedureUnauthorized, p.Name, denialReasons(ctx, req, res)).
			WithData("authorization", res)
	}

	plan, err := p.Prepare(ctx, c, args, storage)
	if err != nil {
		return nil, err
	}
	if plan == nil || len(plan.Calls) == 0 {
		return nil, pmerrors.New(ctx, pmerrors.KindNoChanges, msgs.MsgProcedureNoChanges, p.Name)
	}

	fees, err := c.EstimateFees(ctx, account, plan.Calls)
	if err != nil {
		return nil, err
	}

	txOpts := &transaction.Options[T]{
		Name:     p.Name,
		Signer:   account,
		Nonce:    inv.nonce,
		Resolver: compose(plan.Resolver, transform),
	}
	if len(plan.Calls) == 1 {
		prepared = transaction.Single(transaction.NewTransaction(c, plan.Calls[0], fees, txOpts))
	} else {
		legs := make([]*transaction.Leg, len(plan.Calls))
		for i, call := range plan.Calls {
			fee, err := c.ProtocolFee(ctx, call.Tag())
			if err != nil {
				return nil, err
			}
			legs[i] = &transaction.Leg{Call: call, ProtocolFee: fee}
		}
		prepared = transaction.Batched(transaction.NewBatch(c, legs, fees, txOpts))
	}
	c.Metrics().IncProceduresPrepared(p.Name)
	log.L(ctx).Debugf("Prepared %s with %d calls (signer=%s)", prepared.Kind, len(plan.Calls), account)
	return prepared, nil
}

func compose[R, T any](resolver transaction.Resolver[R], transform func(R) (T, error)) transaction.Resolver[T] {
	return func(ctx context.Context, receipt *pmapi.TxReceipt) (T, error) {
		var r R
		if resolver != nil {
			var err error
			if r, err = resolver(ctx, receipt); err != nil {
				var zero T
				return zero, err
			}
		}
		return transform(r)
	}
}

func identity[R any](r R) (R, error) {
	return r, nil
}

func denialReasons(ctx context.Context, req *pmapi.AuthorizationRequirement, res *pmapi.AuthorizationResult) string {
	var reasons []string
	if res.NoIdentity {
		reasons = append(reasons, i18n.Expand(ctx, i18n.MessageKey(msgs.MsgProcedureNoIdentityAuth)))
	}
	if res.AccountFrozen {
		reasons = append(reasons, i18n.Expand(ctx, i18n.MessageKey(msgs.MsgProcedureAccountFrozen)))
	}
	if len(res.MissingRoles) > 0 {
		roles := make([]string, len(res.MissingRoles))
		for i, r := range res.MissingRoles {
			roles[i] = r.String()
		}
		reasons = append(reasons, i18n.Expand(ctx, i18n.MessageKey(msgs.MsgProcedureMissingRoles), strings.Join(roles, ", ")))
	}
	if m := res.MissingSignerPermissions; m != nil {
		var missing []string
		missing = append(missing, m.Assets...)
		for _, tag := range m.Transactions {
			missing = append(missing, string(tag))
		}
		for _, p := range m.Portfolios {
			missing = append(missing, p.String())
		}
		reasons = append(reasons, i18n.Expand(ctx, i18n.MessageKey(msgs.MsgProcedureMissingSignerPermissions), strings.Join(missing, ", ")))
	}
	if len(res.MissingAgentPermissions) > 0 && req.Agent != nil {
		tags := make([]string, len(res.MissingAgentPermissions))
		for i, tag := range res.MissingAgentPermissions {
			tags[i] = string(tag)
		}
		reasons = append(reasons, i18n.Expand(ctx, i18n.MessageKey(msgs.MsgProcedureMissingAgentPermissions),
			req.Agent.Ticker, strings.Join(tags, ", ")))
	}
	return strings.Join(reasons, "; ")
}
