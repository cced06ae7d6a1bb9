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
	"reflect"
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

// TransferRestriction caps the investors of the asset, by number for Count
// restrictions or by the percentage any one of them holds for Percentage ones.
// Exempt Identities are shared by every restriction of the same kind.
type TransferRestriction[V any] struct {
	Limit      V        `json:"limit"`
	Exemptions []string `json:"exemptions,omitempty"`
}

type TransferRestrictionsResult[V any] struct {
	Restrictions []*TransferRestriction[V] `json:"restrictions"`
	// restrictions of any kind that can still be added
	AvailableSlots int `json:"availableSlots"`
}

// SetTransferRestrictionsParams replaces every restriction of the kind, and an
// empty list removes them all
type SetTransferRestrictionsParams[V any] struct {
	Restrictions []*TransferRestriction[V] `json:"restrictions"`
}

type restrictionKind[V any] struct {
	name          string
	conditionType pallets.TransferConditionType
	op            pallets.StatOpType
	toCondition   func(ctx context.Context, limit V) (pallets.TransferCondition, error)
	fromCondition func(tc *pallets.TransferCondition) V
}

var countRestrictions = &restrictionKind[uint64]{
	name:          "Count",
	conditionType: pallets.MaxInvestorCount,
	op:            pallets.StatCount,
	toCondition: func(ctx context.Context, limit uint64) (pallets.TransferCondition, error) {
		return pallets.TransferCondition{Type: pallets.MaxInvestorCount, Count: &limit}, nil
	},
	fromCondition: func(tc *pallets.TransferCondition) uint64 {
		if tc.Count == nil {
			return 0
		}
		return *tc.Count
	},
}

var percentageRestrictions = &restrictionKind[pmtypes.Balance]{
	name:          "Percentage",
	conditionType: pallets.MaxInvestorOwnership,
	op:            pallets.StatBalance,
	toCondition: func(ctx context.Context, limit pmtypes.Balance) (pallets.TransferCondition, error) {
		p, err := permill(ctx, limit)
		if err != nil {
			return pallets.TransferCondition{}, err
		}
		return pallets.TransferCondition{Type: pallets.MaxInvestorOwnership, Percentage: &p}, nil
	},
	fromCondition: func(tc *pallets.TransferCondition) pmtypes.Balance {
		if tc.Percentage == nil {
			return pmtypes.Balance{}
		}
		return tc.Percentage.Percentage()
	},
}

type TransferRestrictions struct {
	Count      *TransferRestrictionBase[uint64]
	Percentage *TransferRestrictionBase[pmtypes.Balance]
}

func newTransferRestrictions(a *Asset) *TransferRestrictions {
	return &TransferRestrictions{
		Count:      newTransferRestrictionBase(a, countRestrictions),
		Percentage: newTransferRestrictionBase(a, percentageRestrictions),
	}
}

// TransferRestrictionBase manages the restrictions of one kind. Set resolves to
// the number of restrictions of the kind after the change.
type TransferRestrictionBase[V any] struct {
	asset *Asset
	kind  *restrictionKind[V]

	Set *procedure.Method[*SetTransferRestrictionsParams[V], int]
}

func newTransferRestrictionBase[V any](a *Asset, kind *restrictionKind[V]) *TransferRestrictionBase[V] {
	return &TransferRestrictionBase[V]{
		asset: a,
		kind:  kind,
		Set: procedure.NewMethod(a.c, func(args *SetTransferRestrictionsParams[V]) (*procedure.Procedure[*SetTransferRestrictionsParams[V], *restrictionsStorage, int], *SetTransferRestrictionsParams[V]) {
			return setTransferRestrictionsProcedure(a, kind), args
		}),
	}
}

type restrictionsStorage struct {
	conditions  []pallets.TransferCondition
	statEnabled bool
	// sorted
	exemptions []string
}

func exemptKey(ticker string, op pallets.StatOpType) pallets.TransferConditionExemptKey {
	return pallets.TransferConditionExemptKey{AssetScope: pallets.AssetScope{Ticker: ticker}, Op: op}
}

func loadRestrictions[V any](ctx context.Context, c *pmcontext.Context, ticker string, kind *restrictionKind[V]) (*restrictionsStorage, error) {
	scope := pallets.AssetScope{Ticker: ticker}
	values, err := chainquery.RequestMulti(ctx, c,
		chainquery.MapQuery(pallets.AssetTransferCompliances, scope),
		chainquery.MapQuery(pallets.ActiveAssetStats, scope),
	)
	if err != nil {
		return nil, err
	}
	storage := &restrictionsStorage{exemptions: []string{}}
	compliance, err := pallets.AssetTransferCompliances.Decode(ctx, c, values[0])
	if err != nil {
		return nil, err
	}
	if compliance != nil {
		storage.conditions = compliance.Requirements
	}
	stats, err := pallets.ActiveAssetStats.Decode(ctx, c, values[1])
	if err != nil {
		return nil, err
	}
	if stats != nil {
		for _, s := range *stats {
			if s.Op == kind.op && s.ClaimIssuer == nil {
				storage.statEnabled = true
			}
		}
	}
	exempt, err := pallets.TransferConditionExemptEntities.Entries(ctx, c, exemptKey(ticker, kind.op))
	if err != nil {
		return nil, err
	}
	for _, e := range exempt {
		var did string
		if err := e.KeyArg(ctx, 1, &did); err != nil {
			return nil, err
		}
		if *e.Value {
			storage.exemptions = append(storage.exemptions, did)
		}
	}
	sort.Strings(storage.exemptions)
	return storage, nil
}

// Get the restrictions of the kind, each with the exempt Identities of the kind
func (b *TransferRestrictionBase[V]) Get(ctx context.Context) (*TransferRestrictionsResult[V], error) {
	storage, err := loadRestrictions(ctx, b.asset.c, b.asset.Ticker, b.kind)
	if err != nil {
		return nil, err
	}
	result := &TransferRestrictionsResult[V]{
		Restrictions:   []*TransferRestriction[V]{},
		AvailableSlots: pallets.MaxTransferConditions - len(storage.conditions),
	}
	for i := range storage.conditions {
		if storage.conditions[i].Type != b.kind.conditionType {
			continue
		}
		result.Restrictions = append(result.Restrictions, &TransferRestriction[V]{
			Limit:      b.kind.fromCondition(&storage.conditions[i]),
			Exemptions: storage.exemptions,
		})
	}
	if result.AvailableSlots < 0 {
		result.AvailableSlots = 0
	}
	return result, nil
}

const (
	txSetAssetTransferCompliance pmapi.TxTag = "statistics.setAssetTransferCompliance"
	txSetEntitiesExempt          pmapi.TxTag = "statistics.setEntitiesExempt"
)

// sameConditions compares the lists ignoring order
func sameConditions(a, b []pallets.TransferCondition) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
	for i := range a {
		found := false
		for j := range b {
			if !used[j] && reflect.DeepEqual(a[i], b[j]) {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// difference is the sorted entries of a missing from b
func difference(a, b []string) []string {
	inB := make(map[string]bool, len(b))
	for _, s := range b {
		inB[s] = true
	}
	diff := []string{}
	for _, s := range a {
		if !inB[s] {
			diff = append(diff, s)
		}
	}
	sort.Strings(diff)
	return diff
}

func setTransferRestrictionsProcedure[V any](a *Asset, kind *restrictionKind[V]) *procedure.Procedure[*SetTransferRestrictionsParams[V], *restrictionsStorage, int] {
	return &procedure.Procedure[*SetTransferRestrictionsParams[V], *restrictionsStorage, int]{
		Name: "set" + kind.name + "TransferRestrictions",
		PrepareStorage: func(ctx context.Context, c *pmcontext.Context, args *SetTransferRestrictionsParams[V]) (*restrictionsStorage, error) {
			return loadRestrictions(ctx, c, a.Ticker, kind)
		},
		Authorize: func(ctx context.Context, c *pmcontext.Context, args *SetTransferRestrictionsParams[V], storage *restrictionsStorage) (*pmapi.AuthorizationRequirement, error) {
			tags := []pmapi.TxTag{txSetAssetTransferCompliance}
			exempting := len(storage.exemptions) > 0
			for _, r := range args.Restrictions {
				exempting = exempting || len(r.Exemptions) > 0
			}
			if exempting {
				tags = append(tags, txSetEntitiesExempt)
			}
			return agentRequirement(a.Ticker, tags...), nil
		},
		Prepare: func(ctx context.Context, c *pmcontext.Context, args *SetTransferRestrictionsParams[V], storage *restrictionsStorage) (*procedure.Plan[int], error) {
			var current, others []pallets.TransferCondition
			for _, tc := range storage.conditions {
				if tc.Type == kind.conditionType {
					current = append(current, tc)
				} else {
					others = append(others, tc)
				}
			}
			requested := make([]pallets.TransferCondition, 0, len(args.Restrictions))
			exemptSet := make(map[string]bool)
			exemptions := []string{}
			for _, r := range args.Restrictions {
				tc, err := kind.toCondition(ctx, r.Limit)
				if err != nil {
					return nil, err
				}
				requested = append(requested, tc)
				for _, did := range r.Exemptions {
					if !exemptSet[did] {
						exemptSet[did] = true
						exemptions = append(exemptions, did)
					}
				}
			}

			if len(requested) > 0 && !storage.statEnabled {
				return nil, pmerrors.New(ctx, pmerrors.KindValidation, msgs.MsgTransferRestrictionStatNotEnabled, kind.op, a.Ticker)
			}
			if total := len(others) + len(requested); total > pallets.MaxTransferConditions {
				return nil, pmerrors.New(ctx, pmerrors.KindLimitExceeded, msgs.MsgTransferRestrictionTooMany, pallets.MaxTransferConditions, total).
					WithData("limit", pallets.MaxTransferConditions)
			}

			plan := &procedure.Plan[int]{Resolver: procedure.Value(len(requested))}
			if !sameConditions(current, requested) {
				plan.Calls = append(plan.Calls, pmapi.NewCall("statistics", "setAssetTransferCompliance",
					pallets.AssetScope{Ticker: a.Ticker}, append(others, requested...)))
			}
			key := exemptKey(a.Ticker, kind.op)
			if added := difference(exemptions, storage.exemptions); len(added) > 0 {
				plan.Calls = append(plan.Calls, pmapi.NewCall("statistics", "setEntitiesExempt", true, key, added))
			}
			if removed := difference(storage.exemptions, exemptions); len(removed) > 0 {
				plan.Calls = append(plan.Calls, pmapi.NewCall("statistics", "setEntitiesExempt", false, key, removed))
			}
			return plan, nil
		},
	}
}
