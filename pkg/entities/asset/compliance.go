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
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/log"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pallets"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmapi"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmcontext"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmerrors"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmtypes"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/procedure"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/subscription"
)

type Compliance struct {
	Requirements *Requirements
}

type ConditionTarget string

const (
	TargetSender   ConditionTarget = "Sender"
	TargetReceiver ConditionTarget = "Receiver"
	TargetBoth     ConditionTarget = "Both"
)

// Condition of a requirement, on the sender, the receiver or both parties of a
// transfer. A condition without issuers of its own trusts the default claim
// issuers of the asset.
type Condition struct {
	Target   ConditionTarget       `json:"target"`
	Type     pallets.ConditionKind `json:"type"`
	Claim    *pallets.Claim        `json:"claim,omitempty"`
	Claims   []pallets.Claim       `json:"claims,omitempty"`
	Identity string                `json:"identity,omitempty"`
	// TrustedClaimIssuers are the defaults of the asset when DefaultIssuers is set
	TrustedClaimIssuers []pallets.TrustedIssuer `json:"trustedClaimIssuers,omitempty"`
	DefaultIssuers      bool                    `json:"defaultIssuers,omitempty"`
}

type Requirement struct {
	ID         uint32       `json:"id"`
	Conditions []*Condition `json:"conditions"`
}

type ComplianceRequirements struct {
	// ascending by ID
	Requirements               []*Requirement          `json:"requirements"`
	DefaultTrustedClaimIssuers []pallets.TrustedIssuer `json:"defaultTrustedClaimIssuers"`
}

func (c *Condition) toChain() pallets.Condition {
	issuers := c.TrustedClaimIssuers
	if c.DefaultIssuers || issuers == nil {
		issuers = []pallets.TrustedIssuer{}
	}
	return pallets.Condition{
		ConditionType: pallets.ConditionType{
			Kind:     c.Type,
			Claim:    c.Claim,
			Claims:   c.Claims,
			Identity: c.Identity,
		},
		Issuers: issuers,
	}
}

// toChainRequirement splits the conditions into the sender and receiver
// lists stored on chain
func toChainRequirement(id uint32, conditions []*Condition) pallets.ComplianceRequirement {
	req := pallets.ComplianceRequirement{
		ID:                 id,
		SenderConditions:   []pallets.Condition{},
		ReceiverConditions: []pallets.Condition{},
	}
	for _, c := range conditions {
		cc := c.toChain()
		if c.Target != TargetReceiver {
			req.SenderConditions = append(req.SenderConditions, cc)
		}
		if c.Target != TargetSender {
			req.ReceiverConditions = append(req.ReceiverConditions, cc)
		}
	}
	return req
}

func newCondition(target ConditionTarget, cc pallets.Condition, defaults []pallets.TrustedIssuer) *Condition {
	c := &Condition{
		Target:              target,
		Type:                cc.ConditionType.Kind,
		Claim:               cc.ConditionType.Claim,
		Claims:              cc.ConditionType.Claims,
		Identity:            cc.ConditionType.Identity,
		TrustedClaimIssuers: cc.Issuers,
	}
	if len(cc.Issuers) == 0 {
		c.TrustedClaimIssuers = defaults
		c.DefaultIssuers = true
	}
	return c
}

// fromChainRequirement merges a condition present in both lists into a single
// condition targeting both parties
func fromChainRequirement(req *pallets.ComplianceRequirement, defaults []pallets.TrustedIssuer) *Requirement {
	r := &Requirement{ID: req.ID, Conditions: []*Condition{}}
	matched := make([]bool, len(req.ReceiverConditions))
	for _, sc := range req.SenderConditions {
		target := TargetSender
		for i, rc := range req.ReceiverConditions {
			if !matched[i] && sc.Equals(rc) {
				matched[i] = true
				target = TargetBoth
				break
			}
		}
		r.Conditions = append(r.Conditions, newCondition(target, sc, defaults))
	}
	for i, rc := range req.ReceiverConditions {
		if !matched[i] {
			r.Conditions = append(r.Conditions, newCondition(TargetReceiver, rc, defaults))
		}
	}
	return r
}

// sortedRequirements copies the requirements in ascending ID order
func sortedRequirements(compliance *pallets.AssetCompliance) []pallets.ComplianceRequirement {
	reqs := append([]pallets.ComplianceRequirement{}, compliance.Requirements...)
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].ID < reqs[j].ID })
	return reqs
}

type SetRequirementsParams struct {
	// each entry is the conditions of one requirement, replacing all current ones
	Requirements [][]*Condition `json:"requirements"`
}

type AddRequirementParams struct {
	Conditions []*Condition `json:"conditions"`
}

type RemoveRequirementParams struct {
	ID uint32 `json:"id"`
}

type ModifyRequirementParams struct {
	ID         uint32       `json:"id"`
	Conditions []*Condition `json:"conditions"`
}

// Requirements are the compliance rules every transfer of the asset must pass
type Requirements struct {
	asset *Asset

	// Set replaces every requirement, removing them all for an empty list
	Set    *procedure.Method[*SetRequirementsParams, *Asset]
	Add    *procedure.Method[*AddRequirementParams, *Asset]
	Remove *procedure.Method[*RemoveRequirementParams, *Asset]
	Modify *procedure.Method[*ModifyRequirementParams, *Asset]
	Reset  *procedure.VoidMethod[*Asset]
	// Pause stops requirements being checked on transfers, until Unpause
	Pause   *procedure.VoidMethod[*Asset]
	Unpause *procedure.VoidMethod[*Asset]
}

func newRequirements(a *Asset) *Requirements {
	r := &Requirements{asset: a}
	r.Set = procedure.NewMethod(a.c, func(args *SetRequirementsParams) (*procedure.Procedure[*SetRequirementsParams, *pallets.AssetCompliance, *Asset], *SetRequirementsParams) {
		return setRequirementsProcedure(a), args
	})
	r.Add = procedure.NewMethod(a.c, func(args *AddRequirementParams) (*procedure.Procedure[*AddRequirementParams, *pallets.AssetCompliance, *Asset], *AddRequirementParams) {
		return addRequirementProcedure(a), args
	})
	r.Remove = procedure.NewMethod(a.c, func(args *RemoveRequirementParams) (*procedure.Procedure[*RemoveRequirementParams, *pallets.AssetCompliance, *Asset], *RemoveRequirementParams) {
		return removeRequirementProcedure(a), args
	})
	r.Modify = procedure.NewMethod(a.c, func(args *ModifyRequirementParams) (*procedure.Procedure[*ModifyRequirementParams, *pallets.AssetCompliance, *Asset], *ModifyRequirementParams) {
		return modifyRequirementProcedure(a), args
	})
	r.Reset = procedure.NewVoidMethod(a.c, func() (*procedure.Procedure[struct{}, *pallets.AssetCompliance, *Asset], struct{}) {
		return resetRequirementsProcedure(a), struct{}{}
	})
	r.Pause = procedure.NewVoidMethod(a.c, func() (*procedure.Procedure[struct{}, *pallets.AssetCompliance, *Asset], struct{}) {
		return togglePauseProcedure(a, true), struct{}{}
	})
	r.Unpause = procedure.NewVoidMethod(a.c, func() (*procedure.Procedure[struct{}, *pallets.AssetCompliance, *Asset], struct{}) {
		return togglePauseProcedure(a, false), struct{}{}
	})
	return r
}

func (r *Requirements) queries() []chainquery.Query {
	return []chainquery.Query{
		chainquery.MapQuery(pallets.AssetCompliances, r.asset.Ticker),
		chainquery.MapQuery(pallets.TrustedClaimIssuer, r.asset.Ticker),
	}
}

func (r *Requirements) decode(ctx context.Context, values []pmtypes.HexBytes) (*ComplianceRequirements, error) {
	compliance, err := pallets.AssetCompliances.Decode(ctx, r.asset.c, values[0])
	if err != nil {
		return nil, err
	}
	defaults, err := pallets.TrustedClaimIssuer.Decode(ctx, r.asset.c, values[1])
	if err != nil {
		return nil, err
	}
	result := &ComplianceRequirements{
		Requirements:               []*Requirement{},
		DefaultTrustedClaimIssuers: []pallets.TrustedIssuer{},
	}
	if defaults != nil && *defaults != nil {
		result.DefaultTrustedClaimIssuers = *defaults
	}
	if compliance != nil {
		for _, req := range sortedRequirements(compliance) {
			result.Requirements = append(result.Requirements, fromChainRequirement(&req, result.DefaultTrustedClaimIssuers))
		}
	}
	return result, nil
}

// Get the requirements with the default trusted claim issuers of the asset
func (r *Requirements) Get(ctx context.Context) (*ComplianceRequirements, error) {
	values, err := chainquery.RequestMulti(ctx, r.asset.c, r.queries()...)
	if err != nil {
		return nil, err
	}
	return r.decode(ctx, values)
}

// Subscribe calls back with the requirements now, and again whenever they or
// the default trusted claim issuers change. A value that cannot be decoded is
// reported as an error and the subscription carries on. A KindConnection error
// means the node ended the subscription, and is the last call.
func (r *Requirements) Subscribe(ctx context.Context, callback func(*ComplianceRequirements, error)) (subscription.UnsubCallback, error) {
	return chainquery.SubscribeMulti(ctx, r.asset.c, func(values []pmtypes.HexBytes, err error) {
		if err != nil {
			callback(nil, err)
			return
		}
		result, err := r.decode(ctx, values)
		if err != nil {
			log.L(ctx).Errorf("Failed to decode requirements of %s: %s", r.asset.Ticker, err)
			callback(nil, err)
			return
		}
		callback(result, nil)
	}, r.queries()...)
}

func (r *Requirements) ArePaused(ctx context.Context) (bool, error) {
	compliance, err := pallets.AssetCompliances.Get(ctx, r.asset.c, r.asset.Ticker)
	if err != nil {
		return false, err
	}
	return compliance != nil && compliance.Paused, nil
}

// loadCompliance is the storage of the requirement procedures, never nil
func loadCompliance[A any](a *Asset) func(ctx context.Context, c *pmcontext.Context, args A) (*pallets.AssetCompliance, error) {
	return func(ctx context.Context, c *pmcontext.Context, args A) (*pallets.AssetCompliance, error) {
		compliance, err := pallets.AssetCompliances.Get(ctx, c, a.Ticker)
		if err != nil || compliance != nil {
			return compliance, err
		}
		return &pallets.AssetCompliance{}, nil
	}
}

func authorizeAgent[A, S any](ticker string, tags ...pmapi.TxTag) func(ctx context.Context, c *pmcontext.Context, args A, storage S) (*pmapi.AuthorizationRequirement, error) {
	return func(ctx context.Context, c *pmcontext.Context, args A, storage S) (*pmapi.AuthorizationRequirement, error) {
		return agentRequirement(ticker, tags...), nil
	}
}

func complianceCall(method string, args ...any) *pmapi.ChainCall {
	return pmapi.NewCall("complianceManager", method, args...)
}

const (
	txReplaceAssetCompliance      pmapi.TxTag = "complianceManager.replaceAssetCompliance"
	txResetAssetCompliance        pmapi.TxTag = "complianceManager.resetAssetCompliance"
	txAddComplianceRequirement    pmapi.TxTag = "complianceManager.addComplianceRequirement"
	txRemoveComplianceRequirement pmapi.TxTag = "complianceManager.removeComplianceRequirement"
	txChangeComplianceRequirement pmapi.TxTag = "complianceManager.changeComplianceRequirement"
	txPauseAssetCompliance        pmapi.TxTag = "complianceManager.pauseAssetCompliance"
	txResumeAssetCompliance       pmapi.TxTag = "complianceManager.resumeAssetCompliance"
)

func setRequirementsProcedure(a *Asset) *procedure.Procedure[*SetRequirementsParams, *pallets.AssetCompliance, *Asset] {
	return &procedure.Procedure[*SetRequirementsParams, *pallets.AssetCompliance, *Asset]{
		Name:           "setAssetRequirements",
		PrepareStorage: loadCompliance[*SetRequirementsParams](a),
		Authorize: func(ctx context.Context, c *pmcontext.Context, args *SetRequirementsParams, storage *pallets.AssetCompliance) (*pmapi.AuthorizationRequirement, error) {
			if len(args.Requirements) == 0 {
				return agentRequirement(a.Ticker, txResetAssetCompliance), nil
			}
			return agentRequirement(a.Ticker, txReplaceAssetCompliance), nil
		},
		Prepare: func(ctx context.Context, c *pmcontext.Context, args *SetRequirementsParams, storage *pallets.AssetCompliance) (*procedure.Plan[*Asset], error) {
			current := sortedRequirements(storage)
			requested := make([]pallets.ComplianceRequirement, len(args.Requirements))
			same := len(current) == len(requested)
			for i, conditions := range args.Requirements {
				requested[i] = toChainRequirement(uint32(i+1), conditions)
				same = same && current[i].SameConditions(&requested[i])
			}
			plan := &procedure.Plan[*Asset]{Resolver: procedure.Value(a)}
			switch {
			case same:
			case len(requested) == 0:
				plan.Calls = append(plan.Calls, complianceCall("resetAssetCompliance", a.Ticker))
			default:
				plan.Calls = append(plan.Calls, complianceCall("replaceAssetCompliance", a.Ticker, requested))
			}
			return plan, nil
		},
	}
}

func addRequirementProcedure(a *Asset) *procedure.Procedure[*AddRequirementParams, *pallets.AssetCompliance, *Asset] {
	return &procedure.Procedure[*AddRequirementParams, *pallets.AssetCompliance, *Asset]{
		Name:           "addAssetRequirement",
		PrepareStorage: loadCompliance[*AddRequirementParams](a),
		Authorize:      authorizeAgent[*AddRequirementParams, *pallets.AssetCompliance](a.Ticker, txAddComplianceRequirement),
		Prepare: func(ctx context.Context, c *pmcontext.Context, args *AddRequirementParams, storage *pallets.AssetCompliance) (*procedure.Plan[*Asset], error) {
			req := toChainRequirement(0, args.Conditions)
			for _, existing := range storage.Requirements {
				if existing.SameConditions(&req) {
					return nil, pmerrors.New(ctx, pmerrors.KindValidation, msgs.MsgRequirementAlreadyExists, a.Ticker).
						WithData("requirementId", existing.ID)
				}
			}
			return &procedure.Plan[*Asset]{
				Calls:    []*pmapi.ChainCall{complianceCall("addComplianceRequirement", a.Ticker, req.SenderConditions, req.ReceiverConditions)},
				Resolver: procedure.Value(a),
			}, nil
		},
	}
}

func findRequirement(ctx context.Context, ticker string, compliance *pallets.AssetCompliance, id uint32) (*pallets.ComplianceRequirement, error) {
	for i := range compliance.Requirements {
		if compliance.Requirements[i].ID == id {
			return &compliance.Requirements[i], nil
		}
	}
	return nil, pmerrors.New(ctx, pmerrors.KindDataUnavailable, msgs.MsgRequirementNotFound, id, ticker)
}

func removeRequirementProcedure(a *Asset) *procedure.Procedure[*RemoveRequirementParams, *pallets.AssetCompliance, *Asset] {
	return &procedure.Procedure[*RemoveRequirementParams, *pallets.AssetCompliance, *Asset]{
		Name:           "removeAssetRequirement",
		PrepareStorage: loadCompliance[*RemoveRequirementParams](a),
		Authorize:      authorizeAgent[*RemoveRequirementParams, *pallets.AssetCompliance](a.Ticker, txRemoveComplianceRequirement),
		Prepare: func(ctx context.Context, c *pmcontext.Context, args *RemoveRequirementParams, storage *pallets.AssetCompliance) (*procedure.Plan[*Asset], error) {
			if _, err := findRequirement(ctx, a.Ticker, storage, args.ID); err != nil {
				return nil, err
			}
			return &procedure.Plan[*Asset]{
				Calls:    []*pmapi.ChainCall{complianceCall("removeComplianceRequirement", a.Ticker, args.ID)},
				Resolver: procedure.Value(a),
			}, nil
		},
	}
}

func modifyRequirementProcedure(a *Asset) *procedure.Procedure[*ModifyRequirementParams, *pallets.AssetCompliance, *Asset] {
	return &procedure.Procedure[*ModifyRequirementParams, *pallets.AssetCompliance, *Asset]{
		Name:           "modifyAssetRequirement",
		PrepareStorage: loadCompliance[*ModifyRequirementParams](a),
		Authorize:      authorizeAgent[*ModifyRequirementParams, *pallets.AssetCompliance](a.Ticker, txChangeComplianceRequirement),
		Prepare: func(ctx context.Context, c *pmcontext.Context, args *ModifyRequirementParams, storage *pallets.AssetCompliance) (*procedure.Plan[*Asset], error) {
			existing, err := findRequirement(ctx, a.Ticker, storage, args.ID)
			if err != nil {
				return nil, err
			}
			req := toChainRequirement(args.ID, args.Conditions)
			plan := &procedure.Plan[*Asset]{Resolver: procedure.Value(a)}
			if !existing.SameConditions(&req) {
				plan.Calls = append(plan.Calls, complianceCall("changeComplianceRequirement", a.Ticker, req))
			}
			return plan, nil
		},
	}
}

func resetRequirementsProcedure(a *Asset) *procedure.Procedure[struct{}, *pallets.AssetCompliance, *Asset] {
	return &procedure.Procedure[struct{}, *pallets.AssetCompliance, *Asset]{
		Name:           "resetAssetRequirements",
		PrepareStorage: loadCompliance[struct{}](a),
		Authorize:      authorizeAgent[struct{}, *pallets.AssetCompliance](a.Ticker, txResetAssetCompliance),
		Prepare: func(ctx context.Context, c *pmcontext.Context, args struct{}, storage *pallets.AssetCompliance) (*procedure.Plan[*Asset], error) {
			plan := &procedure.Plan[*Asset]{Resolver: procedure.Value(a)}
			if len(storage.Requirements) > 0 {
				plan.Calls = append(plan.Calls, complianceCall("resetAssetCompliance", a.Ticker))
			}
			return plan, nil
		},
	}
}

func togglePauseProcedure(a *Asset, pause bool) *procedure.Procedure[struct{}, *pallets.AssetCompliance, *Asset] {
	name, method, tag := "pauseAssetRequirements", "pauseAssetCompliance", txPauseAssetCompliance
	if !pause {
		name, method, tag = "unpauseAssetRequirements", "resumeAssetCompliance", txResumeAssetCompliance
	}
	return &procedure.Procedure[struct{}, *pallets.AssetCompliance, *Asset]{
		Name:           name,
		PrepareStorage: loadCompliance[struct{}](a),
		Authorize:      authorizeAgent[struct{}, *pallets.AssetCompliance](a.Ticker, tag),
		Prepare: func(ctx context.Context, c *pmcontext.Context, args struct{}, storage *pallets.AssetCompliance) (*procedure.Plan[*Asset], error) {
			switch {
			case pause && storage.Paused:
				return nil, pmerrors.New(ctx, pmerrors.KindNoChanges, msgs.MsgRequirementsAlreadyPaused, a.Ticker)
			case !pause && !storage.Paused:
				return nil, pmerrors.New(ctx, pmerrors.KindNoChanges, msgs.MsgRequirementsNotPaused, a.Ticker)
			}
			return &procedure.Plan[*Asset]{
				Calls:    []*pmapi.ChainCall{complianceCall(method, a.Ticker)},
				Resolver: procedure.Value(a),
			}, nil
		},
	}
}
