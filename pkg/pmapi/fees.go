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

package pmapi

import (
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmtypes"
)

// Fees are in POLYX. The protocol fee is charged by the chain per call type, and
// the gas fee is the network fee for the extrinsic size and weight.
type Fees struct {
	Protocol pmtypes.Balance `json:"protocol"`
	Gas      pmtypes.Balance `json:"gas"`
}

func (f Fees) Total() pmtypes.Balance {
	return f.Protocol.Add(f.Gas)
}

func (f Fees) Add(o Fees) Fees {
	return Fees{Protocol: f.Protocol.Add(o.Protocol), Gas: f.Gas.Add(o.Gas)}
}

type PayingAccountType string

const (
	// the signing account pays
	PayingAccountCaller PayingAccountType = "caller"
	// a relayer subsidizer pays, within an allowance
	PayingAccountSubsidy PayingAccountType = "subsidy"
	// the primary key of the signing Identity pays, for a secondary key with no subsidy
	PayingAccountOther PayingAccountType = "other"
)

func (t PayingAccountType) Enum() pmtypes.Enum[PayingAccountType] {
	return pmtypes.Enum[PayingAccountType](t)
}

func (t PayingAccountType) Options() []string {
	return []string{
		string(PayingAccountCaller),
		string(PayingAccountSubsidy),
		string(PayingAccountOther),
	}
}

type PayingAccount struct {
	Type    PayingAccountType `json:"type"`
	Account string            `json:"account"`
	// remaining subsidy allowance, only for subsidy
	Allowance *pmtypes.Balance `json:"allowance,omitempty"`
}

// PayingAccountFees is the fee estimate for a transaction, and who will pay it
type PayingAccountFees struct {
	Fees          Fees            `json:"fees"`
	PayingAccount PayingAccount   `json:"payingAccount"`
	FreeBalance   pmtypes.Balance `json:"freeBalance"`
}
