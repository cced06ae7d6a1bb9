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

package procedure

import (
	"context"

	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmapi"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmcontext"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/transaction"
)

// Method is a procedure bound to an entity. Every call resolves the procedure
// and its arguments again, so each one validates against current chain state.
type Method[U, T any] struct {
	prepare func(ctx context.Context, args U, opts []Option) (*transaction.Prepared[T], error)
	check   func(ctx context.Context, args U, opts []Option) (*pmapi.AuthorizationResult, error)
}

// Prepare builds the transaction for the arguments without submitting it. The
// result is a single transaction or a batch, depending on the calls required.
func (m *Method[U, T]) Prepare(ctx context.Context, args U, opts ...Option) (*transaction.Prepared[T], error) {
	return m.prepare(ctx, args, opts)
}

// CheckAuthorization reports whether the signer could run the method with the
// arguments, without preparing any calls
func (m *Method[U, T]) CheckAuthorization(ctx context.Context, args U, opts ...Option) (*pmapi.AuthorizationResult, error) {
	return m.check(ctx, args, opts)
}

func NewMethod[U, A, S, R any](c *pmcontext.Context, resolve func(args U) (*Procedure[A, S, R], A)) *Method[U, R] {
	return NewMethodWithTransform(c, resolve, identity[R])
}

// NewMethodWithTransform maps the procedure result. The transform runs only
// after the transaction succeeds, and must not perform I/O.
func NewMethodWithTransform[U, A, S, R, T any](c *pmcontext.Context, resolve func(args U) (*Procedure[A, S, R], A), transform func(R) (T, error)) *Method[U, T] {
	return &Method[U, T]{
		prepare: func(ctx context.Context, args U, opts []Option) (*transaction.Prepared[T], error) {
			proc, procArgs := resolve(args)
			return prepare(ctx, c, proc, procArgs, transform, opts)
		},
		check: func(ctx context.Context, args U, opts []Option) (*pmapi.AuthorizationResult, error) {
			proc, procArgs := resolve(args)
			ctx, account, err := newInvocation(opts).resolveSigner(ctx, c)
			if err != nil {
				return nil, err
			}
			storage, err := proc.storage(ctx, c, procArgs)
			if err != nil {
				return nil, err
			}
			_, res, err := proc.checkAuthorization(ctx, c, account, procArgs, storage)
			return res, err
		},
	}
}

// VoidMethod is a method that takes no arguments from the caller
type VoidMethod[T any] struct {
	m *Method[struct{}, T]
}

func (v *VoidMethod[T]) Prepare(ctx context.Context, opts ...Option) (*transaction.Prepared[T], error) {
	return v.m.Prepare(ctx, struct{}{}, opts...)
}

func (v *VoidMethod[T]) CheckAuthorization(ctx context.Context, opts ...Option) (*pmapi.AuthorizationResult, error) {
	return v.m.CheckAuthorization(ctx, struct{}{}, opts...)
}

func NewVoidMethod[A, S, R any](c *pmcontext.Context, resolve func() (*Procedure[A, S, R], A)) *VoidMethod[R] {
	return &VoidMethod[R]{
		m: NewMethod(c, func(struct{}) (*Procedure[A, S, R], A) {
			return resolve()
		}),
	}
}
