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

package pallets

import (
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/chain"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmapi"
)

type AgentGroupType string

const (
	AgentGroupFull          AgentGroupType = "Full"
	AgentGroupExceptMeta    AgentGroupType = "ExceptMeta"
	AgentGroupPolymeshV1CAA AgentGroupType = "PolymeshV1CAA"
	AgentGroupPolymeshV1PIA AgentGroupType = "PolymeshV1PIA"
	AgentGroupCustom        AgentGroupType = "Custom"
)

// AgentGroup of an external agent, where Custom holds the ID of the custom group
type AgentGroup struct {
	Type   AgentGroupType `json:"type"`
	Custom uint32         `json:"custom,omitempty"`
}

// permissions of the predefined groups
var (
	exceptMetaPermissions = &pmapi.TransactionPermissions{
		SectionPermissions: pmapi.SectionPermissions[string]{Type: pmapi.PermissionExclude, Values: []string{"externalAgents"}},
	}
	caaPermissions = &pmapi.TransactionPermissions{
		SectionPermissions: pmapi.SectionPermissions[string]{Type: pmapi.PermissionInclude, Values: []string{
			"corporateAction", "corporateBallot", "capitalDistribution",
		}},
	}
	piaPermissions = &pmapi.TransactionPermissions{
		SectionPermissions: pmapi.SectionPermissions[string]{Type: pmapi.PermissionInclude, Values: []string{
			"asset.issue", "asset.redeem", "asset.controllerTransfer", "sto",
		}},
		Exceptions: []string{"sto.invest"},
	}
)

// Permissions of the group. Custom groups need their stored permissions, and
// are denied everything when those are missing.
func (g *AgentGroup) Permissions(custom *pmapi.TransactionPermissions) *pmapi.TransactionPermissions {
	switch g.Type {
	case AgentGroupFull:
		return nil
	case AgentGroupExceptMeta:
		return exceptMetaPermissions
	case AgentGroupPolymeshV1CAA:
		return caaPermissions
	case AgentGroupPolymeshV1PIA:
		return piaPermissions
	}
	if custom == nil {
		return &pmapi.TransactionPermissions{SectionPermissions: pmapi.SectionPermissions[string]{Type: pmapi.PermissionInclude}}
	}
	return custom
}

var (
	// keyed by ticker then DID
	GroupOfAgent = chain.NewStorageMap[AgentGroup]("externalAgents", "groupOfAgent")
	// keyed by ticker then custom group ID
	GroupPermissions = chain.NewStorageMap[pmapi.TransactionPermissions]("externalAgents", "groupPermissions")
)
