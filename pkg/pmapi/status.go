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
	"github.com/google/uuid"
)

type TxStatus string

const (
	// fees estimated, not submitted
	TxStatusIdle TxStatus = "Idle"
	// submitted, awaiting inclusion or finalization
	TxStatusRunning TxStatus = "Running"
	TxStatusSucceeded TxStatus = "Succeeded"
	TxStatusFailed    TxStatus = "Failed"
	// cancelled before submission
	TxStatusAborted TxStatus = "Aborted"
)

func (s TxStatus) Enum() pmtypes.Enum[TxStatus] {
	return pmtypes.Enum[TxStatus](s)
}

func (s TxStatus) Options() []string {
	return []string{
		string(TxStatusIdle),
		string(TxStatusRunning),
		string(TxStatusSucceeded),
		string(TxStatusFailed),
		string(TxStatusAborted),
	}
}

func (s TxStatus) IsTerminal() bool {
	return s == TxStatusSucceeded || s == TxStatusFailed || s == TxStatusAborted
}

// TxKind tags the shape of a prepared procedure result
type TxKind string

const (
	TxKindSingle TxKind = "single"
	TxKindBatch  TxKind = "batch"
)

func (k TxKind) Options() []string {
	return []string{string(TxKindSingle), string(TxKindBatch)}
}

// StatusChange is delivered to status listeners on every transition
type StatusChange struct {
	ID     uuid.UUID `json:"id"`
	Status TxStatus  `json:"status"`
	// set once the extrinsic has been signed and submitted
	TxHash pmtypes.HexBytes `json:"txHash,omitempty"`
	Error  error            `json:"-"`
}

// SubmissionUpdateType is the progress of a submitted extrinsic, as reported by the node
type SubmissionUpdateType string

const (
	// accepted into the transaction pool of the node
	SubmissionAccepted SubmissionUpdateType = "accepted"
	SubmissionInBlock  SubmissionUpdateType = "inBlock"
	SubmissionFinalized SubmissionUpdateType = "finalized"
	// the node no longer tracks the extrinsic, it was not included
	SubmissionRejected SubmissionUpdateType = "rejected"
	// included, then the block was retracted by a fork
	SubmissionRetracted SubmissionUpdateType = "retracted"
	// included, but the node gave up waiting for finality
	SubmissionFinalityTimeout SubmissionUpdateType = "finalityTimeout"
	// the connection to the node was lost after it accepted the extrinsic, so
	// the outcome is unknown
	SubmissionLost SubmissionUpdateType = "lost"
)

// IsTerminal is true for the last update of a submission
func (t SubmissionUpdateType) IsTerminal() bool {
	switch t {
	case SubmissionFinalized, SubmissionRejected, SubmissionFinalityTimeout, SubmissionLost:
		return true
	}
	return false
}

// SubmissionUpdate is a single status event for a submitted extrinsic.
// Receipt is set for inBlock and finalized, Error for terminal failures.
type SubmissionUpdate struct {
	Type      SubmissionUpdateType `json:"type"`
	TxHash    pmtypes.HexBytes     `json:"txHash"`
	BlockHash pmtypes.HexBytes     `json:"blockHash,omitempty"`
	Receipt   *TxReceipt           `json:"receipt,omitempty"`
	Error     error                `json:"-"`
}
