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

package chain

import (
	"context"
	"encoding/json"
	"math/big"
	"strings"

	"github.com/PolymeshAssociation/polymesh-sdk-sub000/internal/msgs"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmapi"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmerrors"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmtypes"
	"github.com/hyperledger/firefly-common/pkg/i18n"
)

// StorageChange is a single [key, value] pair, where a nil value means the
// item is absent
type StorageChange struct {
	Key   pmtypes.HexBytes
	Value pmtypes.HexBytes
}

func (sc *StorageChange) UnmarshalJSON(b []byte) error {
	var pair []*pmtypes.HexBytes
	if err := json.Unmarshal(b, &pair); err != nil {
		return err
	}
	if len(pair) != 2 || pair[0] == nil {
		return i18n.NewError(context.Background(), msgs.MsgChainInvalidStorageChange)
	}
	sc.Key = *pair[0]
	sc.Value = nil
	if pair[1] != nil {
		sc.Value = *pair[1]
	}
	return nil
}

func (sc StorageChange) MarshalJSON() ([]byte, error) {
	var value *pmtypes.HexBytes
	if sc.Value != nil {
		value = &sc.Value
	}
	return json.Marshal([]any{sc.Key, value})
}

type StorageChangeSet struct {
	Block   pmtypes.HexBytes `json:"block"`
	Changes []StorageChange  `json:"changes"`
}

// Value returns the changed value for the key, and whether the key was in the set
func (cs *StorageChangeSet) Value(key pmtypes.HexBytes) (pmtypes.HexBytes, bool) {
	for _, c := range cs.Changes {
		if c.Key.Equals(key) {
			return c.Value, true
		}
	}
	return nil, false
}

type ExtrinsicStatusType string

const (
	ExtrinsicFuture          ExtrinsicStatusType = "future"
	ExtrinsicReady           ExtrinsicStatusType = "ready"
	ExtrinsicBroadcast       ExtrinsicStatusType = "broadcast"
	ExtrinsicInBlock         ExtrinsicStatusType = "inBlock"
	ExtrinsicRetracted       ExtrinsicStatusType = "retracted"
	ExtrinsicFinalityTimeout ExtrinsicStatusType = "finalityTimeout"
	ExtrinsicFinalized       ExtrinsicStatusType = "finalized"
	ExtrinsicUsurped         ExtrinsicStatusType = "usurped"
	ExtrinsicDropped         ExtrinsicStatusType = "dropped"
	ExtrinsicInvalid         ExtrinsicStatusType = "invalid"
)

// ExtrinsicStatus is a transaction pool status update. Hash is the block hash for
// inBlock, retracted, finalityTimeout and finalized, and the replacing extrinsic
// for usurped.
type ExtrinsicStatus struct {
	Type ExtrinsicStatusType
	Hash pmtypes.HexBytes
}

// IsTerminal is true for the statuses after which the node stops watching
func (s *ExtrinsicStatus) IsTerminal() bool {
	switch s.Type {
	case ExtrinsicFinalized, ExtrinsicFinalityTimeout, ExtrinsicUsurped, ExtrinsicDropped, ExtrinsicInvalid:
		return true
	}
	return false
}

func (s *ExtrinsicStatus) UnmarshalJSON(b []byte) error {
	var simple string
	if err := json.Unmarshal(b, &simple); err == nil {
		s.Type = ExtrinsicStatusType(simple)
		s.Hash = nil
		return nil
	}
	var detailed map[string]json.RawMessage
	if err := json.Unmarshal(b, &detailed); err != nil || len(detailed) != 1 {
		return i18n.NewError(context.Background(), msgs.MsgChainInvalidStatus, string(b))
	}
	for k, v := range detailed {
		s.Type = ExtrinsicStatusType(k)
		s.Hash = nil
		if s.Type == ExtrinsicBroadcast {
			// list of peers
			continue
		}
		if err := json.Unmarshal(v, &s.Hash); err != nil {
			return i18n.WrapError(context.Background(), err, msgs.MsgChainInvalidStatus, string(b))
		}
	}
	return nil
}

func (s ExtrinsicStatus) MarshalJSON() ([]byte, error) {
	if s.Hash == nil {
		return json.Marshal(string(s.Type))
	}
	return json.Marshal(map[string]pmtypes.HexBytes{string(s.Type): s.Hash})
}

type Block struct {
	Hash       pmtypes.HexBytes
	ParentHash pmtypes.HexBytes
	Number     uint64
	Extrinsics []pmtypes.HexBytes
}

// PaymentInfo is the network fee estimate for an encoded extrinsic, in the
// smallest POLYX unit
type PaymentInfo struct {
	PartialFee *big.Int
}

// parseChainInt accepts the number, decimal string and 0x hex forms nodes use
// for large integers
func parseChainInt(ctx context.Context, raw json.RawMessage) (*big.Int, error) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	i := new(big.Int)
	var ok bool
	if strings.HasPrefix(s, "0x") {
		_, ok = i.SetString(s[2:], 16)
	} else {
		_, ok = i.SetString(s, 10)
	}
	if !ok || i.Sign() < 0 {
		return nil, i18n.NewError(ctx, msgs.MsgChainInvalidInteger, s)
	}
	return i, nil
}

// EventRecord is a decoded system event. ApplyExtrinsic is the index of the
// extrinsic in the block that emitted it, nil for events outside extrinsics.
type EventRecord struct {
	ApplyExtrinsic *int            `json:"applyExtrinsic,omitempty"`
	Module         string          `json:"module"`
	Name           string          `json:"name"`
	Data           pmtypes.RawJSON `json:"data,omitempty"`
}

func (er *EventRecord) ChainEvent() *pmapi.ChainEvent {
	return &pmapi.ChainEvent{Module: er.Module, Name: er.Name, Data: er.Data}
}

// Outcome of an extrinsic in a block
type Outcome struct {
	Block          *Block
	ExtrinsicIndex int
	Success        bool
	Events         []*pmapi.ChainEvent
	DispatchError  *pmerrors.DispatchError
}
