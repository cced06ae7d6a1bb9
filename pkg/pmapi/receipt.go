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
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmerrors"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmtypes"
)

// ChainEvent is an event emitted by the extrinsic, with its data decoded by the codec
type ChainEvent struct {
	Module string          `json:"module"`
	Name   string          `json:"name"`
	Data   pmtypes.RawJSON `json:"data"`
}

// TxReceipt is the outcome of an included extrinsic
type TxReceipt struct {
	TxHash         pmtypes.HexBytes `json:"txHash"`
	BlockHash      pmtypes.HexBytes `json:"blockHash"`
	BlockNumber    uint64           `json:"blockNumber"`
	ExtrinsicIndex int              `json:"extrinsicIndex"`
	Success        bool             `json:"success"`
	Finalized      bool             `json:"finalized"`
	Events         []*ChainEvent    `json:"events"`
	// set when the extrinsic was included, but its dispatch failed
	DispatchError *pmerrors.DispatchError `json:"dispatchError,omitempty"`
}

// FindEvents returns the events of the receipt with the given module and name, in order
func (r *TxReceipt) FindEvents(module, name string) []*ChainEvent {
	var events []*ChainEvent
	for _, e := range r.Events {
		if e.Module == module && e.Name == name {
			events = append(events, e)
		}
	}
	return events
}

func (r *TxReceipt) FindEvent(module, name string) *ChainEvent {
	if events := r.FindEvents(module, name); len(events) > 0 {
		return events[0]
	}
	return nil
}
