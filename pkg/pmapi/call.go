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
	"fmt"
	"strings"
)

// ChainCall describes a single extrinsic call, without submitting it. Args are
// encoded by the chain codec in the order the call declares them.
type ChainCall struct {
	Module string `json:"module"`
	Method string `json:"method"`
	Args   []any  `json:"args,omitempty"`
}

func NewCall(module, method string, args ...any) *ChainCall {
	return &ChainCall{Module: module, Method: method, Args: args}
}

// Tag is the "module.method" name of the call, as used for protocol fees and permissions
func (c *ChainCall) Tag() TxTag {
	return TxTag(fmt.Sprintf("%s.%s", c.Module, c.Method))
}

func (c *ChainCall) String() string {
	return string(c.Tag())
}

// TxTag names a transaction, such as "asset.issue"
type TxTag string

func (t TxTag) Module() string {
	m, _, _ := strings.Cut(string(t), ".")
	return m
}

const (
	TxTagUtilityBatchAll TxTag = "utility.batchAll"
)

// BatchAll wraps the calls into a single atomic call, in which any failure
// reverts every call
func BatchAll(calls []*ChainCall) *ChainCall {
	return &ChainCall{Module: "utility", Method: "batchAll", Args: []any{calls}}
}
