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

package pmerrors

import (
	"context"
	"errors"

	"github.com/hyperledger/firefly-common/pkg/i18n"
)

// Kind classifies every error the SDK returns, so callers can decide
// whether to correct their input, wait, or retry
type Kind string

const (
	// a precondition of the operation was not met, before any chain interaction
	KindValidation Kind = "ValidationError"
	// the signing identity lacks a required role or permission
	KindAuthorization Kind = "AuthorizationError"
	// a referenced on-chain entity does not exist
	KindDataUnavailable Kind = "DataUnavailableError"
	// a dry-run call ran out of its execution meter, so the real outcome is unknown
	KindLimitExceeded Kind = "LimitExceededError"
	// the chain rejected the call
	KindChainRejection Kind = "ChainRejectionError"
	// the connection to the node was lost, safe to retry
	KindConnection Kind = "ConnectionError"
	// the operation would not change any state
	KindNoChanges Kind = "NoChangesError"
	// anything else
	KindUnexpected Kind = "UnexpectedError"
)

func (k Kind) Options() []string {
	return []string{
		string(KindValidation),
		string(KindAuthorization),
		string(KindDataUnavailable),
		string(KindLimitExceeded),
		string(KindChainRejection),
		string(KindConnection),
		string(KindNoChanges),
		string(KindUnexpected),
	}
}

// DispatchError identifies a module error raised by the chain runtime
type DispatchError struct {
	ModuleIndex uint8  `json:"moduleIndex"`
	ErrorIndex  uint8  `json:"errorIndex"`
	Section     string `json:"section,omitempty"`
	Name        string `json:"name,omitempty"`
	Docs        string `json:"docs,omitempty"`
}

// Code is the stable "section.Name" form when the runtime metadata resolved it,
// and empty when only the raw indices are known
func (de *DispatchError) Code() string {
	if de.Section == "" || de.Name == "" {
		return ""
	}
	return de.Section + "." + de.Name
}

type Error struct {
	kind     Kind
	err      error
	data     map[string]any
	dispatch *DispatchError
}

func New(ctx context.Context, kind Kind, key i18n.ErrorMessageKey, inserts ...any) *Error {
	return &Error{kind: kind, err: i18n.NewError(ctx, key, inserts...)}
}

func Wrap(ctx context.Context, kind Kind, cause error, key i18n.ErrorMessageKey, inserts ...any) *Error {
	return &Error{kind: kind, err: i18n.WrapError(ctx, cause, key, inserts...)}
}

// WithKind classifies an existing error, keeping its message. An error that is
// already classified keeps its original kind.
func WithKind(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		return err
	}
	return &Error{kind: kind, err: err}
}

func (e *Error) WithData(key string, value any) *Error {
	if e.data == nil {
		e.data = map[string]any{}
	}
	e.data[key] = value
	return e
}

func (e *Error) WithDispatchError(de *DispatchError) *Error {
	e.dispatch = de
	return e
}

func (e *Error) Error() string {
	return e.err.Error()
}

func (e *Error) Unwrap() error {
	return e.err
}

func (e *Error) Kind() Kind {
	return e.kind
}

func (e *Error) Data() map[string]any {
	return e.data
}

func (e *Error) DispatchError() *DispatchError {
	return e.dispatch
}

// MessageKey returns the i18n key, when the error was built from one
func (e *Error) MessageKey() string {
	var ffe i18n.FFError
	if errors.As(e.err, &ffe) {
		return string(ffe.MessageKey())
	}
	return ""
}

func (e *Error) Retryable() bool {
	return e.kind == KindConnection
}

// KindOf returns the kind of a classified error, or KindUnexpected
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.kind
	}
	return KindUnexpected
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func IsRetryable(err error) bool {
	return Is(err, KindConnection)
}
