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

	"github.com/PolymeshAssociation/polymesh-sdk-sub000/internal/msgs"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/chain"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/log"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pallets"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmapi"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmerrors"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmtypes"
)

// ProtocolFee charged by the chain for the transaction, on top of the network fee.
// Values are cached per tag until the context disconnects.
func (c *Context) ProtocolFee(ctx context.Context, tag pmapi.TxTag) (pmtypes.Balance, error) {
	op, ok := pallets.ProtocolOp(tag)
	if !ok {
		return pmtypes.Balance{}, nil
	}
	return c.protocolFees.GetOrLoad(ctx, op, func(ctx context.Context, op string) (pmtypes.Balance, error) {
		base, err := pallets.BaseFees.Get(ctx, c, op)
		if err != nil || base == nil {
			return pmtypes.Balance{}, err
		}
		coefficient, err := pallets.Coefficient.Get(ctx, c)
		if err != nil {
			return pmtypes.Balance{}, err
		}
		if coefficient == nil {
			return *base, nil
		}
		return base.MulRatio(coefficient.Numerator, coefficient.Denominator), nil
	})
}

// NetworkFee is the partial fee the node quotes for the call, signed by the account
func (c *Context) NetworkFee(ctx context.Context, account string, call *pmapi.ChainCall) (pmtypes.Balance, error) {
	ext, err := c.codec.EncodeExtrinsic(ctx, &chain.ExtrinsicRequest{
		Call:            call,
		Signer:          account,
		MortalityPeriod: c.mortalityPeriod(),
	})
	if err != nil {
		return pmtypes.Balance{}, err
	}
	info, err := c.Chain().PaymentInfo(ctx, ext)
	if err != nil {
		return pmtypes.Balance{}, err
	}
	return pmtypes.NewBalance(info.PartialFee), nil
}

// Fees of submitting the calls from the account, as a single extrinsic. More
// than one call is estimated as an atomic batch.
func (c *Context) Fees(ctx context.Context, account string, calls []*pmapi.ChainCall) (pmapi.Fees, error) {
	var fees pmapi.Fees
	if len(calls) == 0 {
		return fees, pmerrors.New(ctx, pmerrors.KindValidation, msgs.MsgContextNoCalls)
	}
	for _, call := range calls {
		protocol, err := c.ProtocolFee(ctx, call.Tag())
		if err != nil {
			return fees, err
		}
		fees.Protocol = fees.Protocol.Add(protocol)
	}
	call := calls[0]
	if len(calls) > 1 {
		call = pmapi.BatchAll(calls)
	}
	gas, err := c.NetworkFee(ctx, account, call)
	if err != nil {
		return fees, err
	}
	fees.Gas = gas
	return fees, nil
}

// EstimateFees works out who pays for the calls and checks they can afford it.
// A subsidizer pays when the account has a subsidy, within the remaining allowance.
func (c *Context) EstimateFees(ctx context.Context, account string, calls []*pmapi.ChainCall) (*pmapi.PayingAccountFees, error) {
	fees, err := c.Fees(ctx, account, calls)
	if err != nil {
		return nil, err
	}
	total := fees.Total()
	res := &pmapi.PayingAccountFees{
		Fees:          fees,
		PayingAccount: pmapi.PayingAccount{Type: pmapi.PayingAccountCaller, Account: account},
	}

	subsidy, err := pallets.Subsidies.Get(ctx, c, account)
	if err != nil {
		return nil, err
	}
	if subsidy != nil {
		if subsidy.Remaining.Cmp(total) < 0 {
			return nil, pmerrors.New(ctx, pmerrors.KindValidation, msgs.MsgContextSubsidyExhausted,
				subsidy.PayingKey, total, subsidy.Remaining)
		}
		allowance := subsidy.Remaining
		res.PayingAccount = pmapi.PayingAccount{Type: pmapi.PayingAccountSubsidy, Account: subsidy.PayingKey, Allowance: &allowance}
	}

	info, err := pallets.SystemAccount.Get(ctx, c, res.PayingAccount.Account)
	if err != nil {
		return nil, err
	}
	if info != nil {
		res.FreeBalance = info.Available()
	}
	if res.FreeBalance.Cmp(total) < 0 {
		return nil, pmerrors.New(ctx, pmerrors.KindValidation, msgs.MsgContextInsufficientBalance,
			res.PayingAccount.Account, total, res.FreeBalance)
	}
	log.L(ctx).Debugf("Fees for %d calls: protocol=%s gas=%s payer=%s(%s)", len(calls), fees.Protocol, fees.Gas, res.PayingAccount.Account, res.PayingAccount.Type)
	return res, nil
}
