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

// Package polymesh is the entry point of the SDK. A Polymesh instance holds one
// connection to a node, and optionally to the middleware indexer, and exposes
// the entity namespaces over it.
package polymesh

import (
	"context"

	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/chain"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/confutil"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/entities/asset"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/entities/claims"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/log"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmconf"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmcontext"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmerrors"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/signing"
)

type Polymesh struct {
	Assets *asset.Assets
	Claims *claims.Claims

	c *pmcontext.Context
}

// Connect applies the logging config, then opens the connections described by
// the rest of it. Without a signer, the configured mnemonics are loaded into a
// local one. With neither, the instance is read-only and every procedure fails
// on signing.
func Connect(ctx context.Context, conf *pmconf.SDKConfig, codec chain.Codec, signer signing.Manager, opts ...pmcontext.Option) (*Polymesh, error) {
	log.InitConfig(&conf.Log)
	if signer == nil && len(conf.Signing.Mnemonics) > 0 {
		lm, err := localSigner(ctx, &conf.Signing)
		if err != nil {
			return nil, err
		}
		signer = lm
	}
	c := pmcontext.New(conf, codec, signer, opts...)
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	log.L(ctx).Debugf("SDK ready (middleware=%t)", c.IsMiddlewareEnabled())
	return &Polymesh{
		Assets: asset.NewAssets(c),
		Claims: claims.New(c),
		c:      c,
	}, nil
}

func localSigner(ctx context.Context, conf *pmconf.SigningConfig) (*signing.LocalManager, error) {
	def := pmconf.SigningDefaults
	lm := signing.NewLocalManager(confutil.Int(conf.SS58Prefix, *def.SS58Prefix))
	path := confutil.StringNotEmpty(conf.DerivationPath, *def.DerivationPath)
	for _, mnemonic := range conf.Mnemonics {
		if _, err := lm.AddMnemonic(ctx, mnemonic, path); err != nil {
			return nil, pmerrors.WithKind(pmerrors.KindValidation, err)
		}
	}
	return lm, nil
}

// Context is the shared state behind the namespaces, for procedures built
// outside this module
func (p *Polymesh) Context() *pmcontext.Context {
	return p.c
}

func (p *Polymesh) SigningAccount() string {
	return p.c.SigningAccount()
}

func (p *Polymesh) SetSigningAccount(ctx context.Context, address string) error {
	return p.c.SetSigningAccount(ctx, address)
}

// Disconnect cancels every transaction being tracked and every subscription.
// The instance cannot be used afterwards.
func (p *Polymesh) Disconnect() {
	p.c.Disconnect()
}
