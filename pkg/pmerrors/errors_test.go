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
	"fmt"
	"testing"

	"github.com/PolymeshAssociation/polymesh-sdk-sub000/internal/msgs"
	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	ctx := context.Background()

	err := New(ctx, KindValidation, msgs.MsgRequirementNotFound, 3, "TICKER")
	assert.Regexp(t, "PM010701.*3.*TICKER", err)
	assert.Equal(t, KindValidation, err.Kind())
	assert.Equal(t, "PM010701", err.MessageKey())
	assert.False(t, err.Retryable())
	assert.True(t, Is(err, KindValidation))

	wrapped := fmt.Errorf("outer: %w", Wrap(ctx, KindConnection, fmt.Errorf("pop"), msgs.MsgChainConnectionLost, "pop"))
	assert.Equal(t, KindConnection, KindOf(wrapped))
	assert.True(t, IsRetryable(wrapped))

	assert.Equal(t, KindUnexpected, KindOf(fmt.Errorf("plain")))
	assert.False(t, Is(nil, KindUnexpected))
	assert.False(t, IsRetryable(nil))
}

func TestWithKind(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, WithKind(KindConnection, nil))

	plain := WithKind(KindConnection, fmt.Errorf("pop"))
	assert.Equal(t, KindConnection, KindOf(plain))
	assert.Equal(t, "pop", plain.Error())
	assert.Empty(t, plain.(*Error).MessageKey())

	classified := New(ctx, KindAuthorization, msgs.MsgProcedureUnauthorized, "x", "y")
	assert.Equal(t, KindAuthorization, KindOf(WithKind(KindConnection, classified)))
}

func TestErrorData(t *testing.T) {
	ctx := context.Background()
	de := &DispatchError{ModuleIndex: 12, ErrorIndex: 3, Section: "asset", Name: "InsufficientBalance"}
	err := New(ctx, KindChainRejection, msgs.MsgTransactionDispatchFailed, "tx1", de.Code()).
		WithDispatchError(de).
		WithData("ticker", "ACME")
	assert.Equal(t, "asset.InsufficientBalance", err.DispatchError().Code())
	assert.Equal(t, "ACME", err.Data()["ticker"])
	assert.Empty(t, (&DispatchError{ModuleIndex: 1}).Code())
	assert.Contains(t, KindNoChanges.Options(), "NoChangesError")
}
