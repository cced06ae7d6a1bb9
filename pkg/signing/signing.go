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

package signing

import (
	"context"
	"math/big"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/PolymeshAssociation/polymesh-sdk-sub000/internal/msgs"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/log"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmerrors"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/ss58"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/hyperledger/firefly-signer/pkg/secp256k1"
	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/blake2b"
)

// DefaultDerivationPath is the first account of the Polymesh BIP-44 coin type
const DefaultDerivationPath = "m/44'/595'/0'/0/0"

// SignatureType is the MultiSignature variant prefixed to every signature
type SignatureType byte

const (
	SignatureEd25519 SignatureType = 0x00
	SignatureSr25519 SignatureType = 0x01
	SignatureEcdsa   SignatureType = 0x02
)

// Manager holds the keys of the accounts the SDK can sign for
type Manager interface {
	// Accounts returns the SS58 addresses of every managed account, in a stable order
	Accounts(ctx context.Context) ([]string, error)
	// Sign returns a MultiSignature over the extrinsic signing payload
	Sign(ctx context.Context, address string, payload []byte) ([]byte, error)
}

// LocalManager is an in-memory secp256k1 key store
type LocalManager struct {
	mux        sync.RWMutex
	ss58Prefix int
	keys       map[string]*secp256k1.KeyPair
}

func NewLocalManager(ss58Prefix int) *LocalManager {
	return &LocalManager{
		ss58Prefix: ss58Prefix,
		keys:       make(map[string]*secp256k1.KeyPair),
	}
}

// AccountID of an ECDSA key is the blake2b-256 hash of its compressed public key
func AccountID(kp *secp256k1.KeyPair) []byte {
	h := blake2b.Sum256(kp.PublicKey.SerializeCompressed())
	return h[:]
}

// AddKey imports a 32 byte private key, returning the address of its account
func (lm *LocalManager) AddKey(ctx context.Context, privateKey []byte) (string, error) {
	if len(privateKey) != 32 || new(big.Int).SetBytes(privateKey).Sign() == 0 {
		return "", i18n.NewError(ctx, msgs.MsgSigningInvalidKey, len(privateKey))
	}
	kp, err := secp256k1.NewSecp256k1KeyPair(privateKey)
	if err != nil {
		return "", i18n.WrapError(ctx, err, msgs.MsgSigningInvalidKey, err)
	}
	return lm.add(ctx, kp)
}

// AddMnemonic derives a key from a BIP-39 mnemonic along a BIP-32 path, such as
// DefaultDerivationPath, returning the address of its account
func (lm *LocalManager) AddMnemonic(ctx context.Context, mnemonic, path string) (string, error) {
	seed, err := bip39.NewSeedWithErrorChecking(strings.TrimSpace(mnemonic), "")
	if err != nil {
		return "", i18n.NewError(ctx, msgs.MsgSigningInvalidMnemonic)
	}
	privateKey, err := derivePrivateKey(ctx, seed, path)
	if err != nil {
		return "", err
	}
	return lm.AddKey(ctx, privateKey)
}

func derivePrivateKey(ctx context.Context, seed []byte, path string) ([]byte, error) {
	segments := strings.Split(path, "/")
	if len(segments) < 2 || segments[0] != "m" {
		return nil, i18n.NewError(ctx, msgs.MsgSigningInvalidPath, path)
	}
	pos, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, i18n.WrapError(ctx, err, msgs.MsgSigningInvalidKey, err)
	}
	for _, s := range segments[1:] {
		number, hardened := strings.CutSuffix(s, "'")
		index, err := strconv.ParseUint(number, 10, 32)
		if err == nil && index >= hdkeychain.HardenedKeyStart {
			err = strconv.ErrRange
		}
		if err == nil {
			if hardened {
				index += hdkeychain.HardenedKeyStart
			}
			pos, err = pos.Derive(uint32(index))
		}
		if err != nil {
			return nil, i18n.WrapError(ctx, err, msgs.MsgSigningInvalidPath, s)
		}
	}
	ecPrivKey, err := pos.ECPrivKey()
	if err != nil {
		return nil, i18n.WrapError(ctx, err, msgs.MsgSigningInvalidKey, err)
	}
	b := ecPrivKey.Key.Bytes()
	return b[:], nil
}

func (lm *LocalManager) GenerateKey(ctx context.Context) (string, error) {
	kp, err := secp256k1.GenerateSecp256k1KeyPair()
	if err != nil {
		return "", i18n.WrapError(ctx, err, msgs.MsgSigningInvalidKey, err)
	}
	return lm.add(ctx, kp)
}

func (lm *LocalManager) add(ctx context.Context, kp *secp256k1.KeyPair) (string, error) {
	address, err := ss58.Encode(ctx, lm.ss58Prefix, AccountID(kp))
	if err != nil {
		return "", err
	}
	lm.mux.Lock()
	defer lm.mux.Unlock()
	lm.keys[address] = kp
	log.L(ctx).Debugf("Added signing key for account %s", address)
	return address, nil
}

func (lm *LocalManager) Accounts(ctx context.Context) ([]string, error) {
	lm.mux.RLock()
	defer lm.mux.RUnlock()
	accounts := make([]string, 0, len(lm.keys))
	for a := range lm.keys {
		accounts = append(accounts, a)
	}
	sort.Strings(accounts)
	return accounts, nil
}

// Sign hashes the payload with blake2b-256 and signs it with ECDSA, in the
// r,s,v packing the chain expects
func (lm *LocalManager) Sign(ctx context.Context, address string, payload []byte) ([]byte, error) {
	lm.mux.RLock()
	kp := lm.keys[address]
	lm.mux.RUnlock()
	if kp == nil {
		return nil, pmerrors.New(ctx, pmerrors.KindValidation, msgs.MsgContextUnknownAccount, address)
	}
	hash := blake2b.Sum256(payload)
	sig, err := kp.SignDirect(hash[:])
	if err != nil {
		return nil, pmerrors.Wrap(ctx, pmerrors.KindUnexpected, err, msgs.MsgContextSigningFailed, address, err)
	}
	b := make([]byte, 66)
	b[0] = byte(SignatureEcdsa)
	sig.R.FillBytes(b[1:33])
	sig.S.FillBytes(b[33:65])
	// recovery ID, without the Ethereum offset
	b[65] = byte(sig.V.Int64() - 27)
	return b, nil
}
