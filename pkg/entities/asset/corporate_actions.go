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

package asset

import (
	"context"
	"sort"

	"github.com/PolymeshAssociation/polymesh-sdk-sub000/internal/msgs"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/chainquery"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pallets"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmapi"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmcontext"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmerrors"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmtypes"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/procedure"
)

// TaxWithholding overrides the default tax withheld from one Identity, as a percentage
type TaxWithholding struct {
	Identity   string          `json:"identity"`
	Percentage pmtypes.Balance `json:"percentage"`
}

// CorporateActionTargets are the Identities affected by corporate actions,
// either exactly those listed or everyone except them
type CorporateActionTargets struct {
	Identities []string                `json:"identities"`
	Treatment  pallets.TargetTreatment `json:"treatment"`
}

type CorporateActionDefaultConfig struct {
	Targets               CorporateActionTargets `json:"targets"`
	DefaultTaxWithholding pmtypes.Balance        `json:"defaultTaxWithholding"`
	TaxWithholdings       []TaxWithholding       `json:"taxWithholdings"`
}

// SetDefaultConfigParams changes the parts of the config that are set. A
// non-nil empty TaxWithholdings removes every override.
type SetDefaultConfigParams struct {
	Targets               *CorporateActionTargets `json:"targets,omitempty"`
	DefaultTaxWithholding *pmtypes.Balance        `json:"defaultTaxWithholding,omitempty"`
	TaxWithholdings       []TaxWithholding        `json:"taxWithholdings,omitempty"`
}

// CorporateActions holds the defaults applied to new corporate actions of the asset
type CorporateActions struct {
	asset *Asset

	SetDefaultConfig *procedure.Method[*SetDefaultConfigParams, *Asset]
}

func newCorporateActions(a *Asset) *CorporateActions {
	return &CorporateActions{
		asset: a,
		SetDefaultConfig: procedure.NewMethod(a.c, func(args *SetDefaultConfigParams) (*procedure.Procedure[*SetDefaultConfigParams, *defaultConfigStorage, *Asset], *SetDefaultConfigParams) {
			return setDefaultConfigProcedure(a), args
		}),
	}
}

type defaultConfigStorage struct {
	targets    pallets.TargetIdentities
	defaultTax pmtypes.Permill
	didTaxes   []pallets.DidTax
}

func loadDefaultConfig(ctx context.Context, c *pmcontext.Context, ticker string) (*defaultConfigStorage, error) {
	values, err := chainquery.RequestMulti(ctx, c,
		chainquery.MapQuery(pallets.DefaultTargetIdentities, ticker),
		chainquery.MapQuery(pallets.DefaultWithholdingTax, ticker),
		chainquery.MapQuery(pallets.DidWithholdingTax, ticker),
	)
	if err != nil {
		return nil, err
	}
	storage := &defaultConfigStorage{
		targets: pallets.TargetIdentities{Identities: []string{}, Treatment: pallets.TargetExclude},
	}
	targets, err := pallets.DefaultTargetIdentities.Decode(ctx, c, values[0])
	if err != nil {
		return nil, err
	}
	if targets != nil {
		storage.targets = *targets
	}
	defaultTax, err := pallets.DefaultWithholdingTax.Decode(ctx, c, values[1])
	if err != nil {
		return nil, err
	}
	if defaultTax != nil {
		storage.defaultTax = *defaultTax
	}
	didTaxes, err := pallets.DidWithholdingTax.Decode(ctx, c, values[2])
	if err != nil {
		return nil, err
	}
	if didTaxes != nil {
		storage.didTaxes = *didTaxes
	}
	return storage, nil
}

// GetDefaultConfig returns the targets and taxes with percentages decoded from
// their fixed point form
func (ca *CorporateActions) GetDefaultConfig(ctx context.Context) (*CorporateActionDefaultConfig, error) {
	storage, err := loadDefaultConfig(ctx, ca.asset.c, ca.asset.Ticker)
	if err != nil {
		return nil, err
	}
	config := &CorporateActionDefaultConfig{
		Targets: CorporateActionTargets{
			Identities: storage.targets.Identities,
			Treatment:  storage.targets.Treatment,
		},
		DefaultTaxWithholding: storage.defaultTax.Percentage(),
		TaxWithholdings:       make([]TaxWithholding, len(storage.didTaxes)),
	}
	if config.Targets.Identities == nil {
		config.Targets.Identities = []string{}
	}
	for i, t := range storage.didTaxes {
		config.TaxWithholdings[i] = TaxWithholding{Identity: t.DID, Percentage: t.Tax.Percentage()}
	}
	return config, nil
}

const (
	txSetDefaultTargets        pmapi.TxTag = "corporateAction.setDefaultTargets"
	txSetDefaultWithholdingTax pmapi.TxTag = "corporateAction.setDefaultWithholdingTax"
	txSetDidWithholdingTax     pmapi.TxTag = "corporateAction.setDidWithholdingTax"
)

func sameTargets(a, b pallets.TargetIdentities) bool {
	if a.Treatment != b.Treatment || len(a.Identities) != len(b.Identities) {
		return false
	}
	sa := append([]string{}, a.Identities...)
	sb := append([]string{}, b.Identities...)
	sort.Strings(sa)
	sort.Strings(sb)
	for i := range sa {
		if sa[i] != sb[i] {
			return false
		}
	}
	return true
}

func permill(ctx context.Context, pct pmtypes.Balance) (pmtypes.Permill, error) {
	p, err := pmtypes.PermillFromPercentage(ctx, pct)
	if err != nil {
		return 0, pmerrors.WithKind(pmerrors.KindValidation, err)
	}
	return p, nil
}

func setDefaultConfigProcedure(a *Asset) *procedure.Procedure[*SetDefaultConfigParams, *defaultConfigStorage, *Asset] {
	return &procedure.Procedure[*SetDefaultConfigParams, *defaultConfigStorage, *Asset]{
		Name: "setDefaultConfig",
		PrepareStorage: func(ctx context.Context, c *pmcontext.Context, args *SetDefaultConfigParams) (*defaultConfigStorage, error) {
			return loadDefaultConfig(ctx, c, a.Ticker)
		},
		Authorize: func(ctx context.Context, c *pmcontext.Context, args *SetDefaultConfigParams, storage *defaultConfigStorage) (*pmapi.AuthorizationRequirement, error) {
			var tags []pmapi.TxTag
			if args.Targets != nil {
				tags = append(tags, txSetDefaultTargets)
			}
			if args.DefaultTaxWithholding != nil {
				tags = append(tags, txSetDefaultWithholdingTax)
			}
			if args.TaxWithholdings != nil {
				tags = append(tags, txSetDidWithholdingTax)
			}
			return agentRequirement(a.Ticker, tags...), nil
		},
		Prepare: func(ctx context.Context, c *pmcontext.Context, args *SetDefaultConfigParams, storage *defaultConfigStorage) (*procedure.Plan[*Asset], error) {
			if args.Targets == nil && args.DefaultTaxWithholding == nil && args.TaxWithholdings == nil {
				return nil, pmerrors.New(ctx, pmerrors.KindValidation, msgs.MsgCorporateActionsEmptyConfig)
			}
			plan := &procedure.Plan[*Asset]{Resolver: procedure.Value(a)}
			if args.Targets != nil {
				targets := pallets.TargetIdentities{Identities: args.Targets.Identities, Treatment: args.Targets.Treatment}
				if targets.Identities == nil {
					targets.Identities = []string{}
				}
				if !sameTargets(targets, storage.targets) {
					plan.Calls = append(plan.Calls, pmapi.NewCall("corporateAction", "setDefaultTargets", a.Ticker, targets))
				}
			}
			if args.DefaultTaxWithholding != nil {
				tax, err := permill(ctx, *args.DefaultTaxWithholding)
				if err != nil {
					return nil, err
				}
				if tax != storage.defaultTax {
					plan.Calls = append(plan.Calls, pmapi.NewCall("corporateAction", "setDefaultWithholdingTax", a.Ticker, tax))
				}
			}
			if args.TaxWithholdings != nil {
				current := make(map[string]pmtypes.Permill, len(storage.didTaxes))
				for _, t := range storage.didTaxes {
					current[t.DID] = t.Tax
				}
				requested := make(map[string]bool, len(args.TaxWithholdings))
				for _, t := range args.TaxWithholdings {
					tax, err := permill(ctx, t.Percentage)
					if err != nil {
						return nil, err
					}
					requested[t.Identity] = true
					if existing, ok := current[t.Identity]; !ok || existing != tax {
						plan.Calls = append(plan.Calls, pmapi.NewCall("corporateAction", "setDidWithholdingTax", a.Ticker, t.Identity, &tax))
					}
				}
				for _, t := range storage.didTaxes {
					if !requested[t.DID] {
						// a nil tax removes the override
						plan.Calls = append(plan.Calls, pmapi.NewCall("corporateAction", "setDidWithholdingTax", a.Ticker, t.DID, (*pmtypes.Permill)(nil)))
					}
				}
			}
			return plan, nil
		},
	}
}
