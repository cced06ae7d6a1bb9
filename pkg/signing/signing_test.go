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
	"testing"

	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmerrors"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/ss58"
	"github.com/hyperledger/firefly-signer/pkg/secp256k1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"
)

func TestLocalManagerSign(t *testing.T) {
	ctx := context.Background()
	lm := NewLocalManager(ss58.PolymeshPrefix)

	privKey := make([]byte, 32)
	privKey[31] = 1
	address, err := lm.AddKey(ctx, privKey)
	require.NoError(t, err)

	prefix, accountID, err := ss58.Decode(ctx, address)
	require.NoError(t, err)
	assert.Equal(t, ss58.PolymeshPrefix, prefix)
	kp := secp256k1.KeyPairFromBytes(privKey)
	assert.Equal(t, AccountID(kp), accountID)

	payload := []byte("extrinsic signing payload")
	sig, err := lm.Sign(ctx, address, payload)
	require.NoError(t, err)
	require.Len(t, sig, 66)
	assert.Equal(t, byte(SignatureEcdsa), sig[0])
	assert.LessOrEqual(t, sig[65], byte(1))

	// deterministic over the blake2b hash of the payload
	hash := blake2b.Sum256(payload)
	direct, err := kp.SignDirect(hash[:])
	require.NoError(t, err)
	assert.Equal(t, direct.R.Bytes(), new(big.Int).SetBytes(sig[1:33]).Bytes())
	assert.Equal(t, direct.S.Bytes(), new(big.Int).SetBytes(sig[33:65]).Bytes())

	sig2, err := lm.Sign(ctx, address, []byte("other payload"))
	require.NoError(t, err)
	assert.NotEqual(t, sig, sig2)
}

func TestLocalManagerAccounts(t *testing.T) {
	ctx := context.Background()
	lm := NewLocalManager(42)
	a1, err := lm.GenerateKey(ctx)
	require.NoError(t, err)
	a2, err := lm.GenerateKey(ctx)
	require.NoError(t, err)

	accounts, err := lm.Accounts(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a1, a2}, accounts)
	assert.True(t, accounts[0] < accounts[1])
}

func TestLocalManagerUnknownAccount(t *testing.T) {
	lm := NewLocalManager(42)
	_, err := lm.Sign(context.Background(), "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY", []byte{})
	assert.Regexp(t, "PM010301", err)
	assert.Equal(t, pmerrors.KindValidation, pmerrors.KindOf(err))
}

func TestLocalManagerBadKey(t *testing.T) {
	lm := NewLocalManager(42)
	_, err := lm.AddKey(context.Background(), make([]byte, 32))
	assert.Regexp(t, "PM010023", err)
	_, err = lm.AddKey(context.Background(), []byte{1})
	assert.Regexp(t, "PM010023", err)
}

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestLocalManagerAddMnemonic(t *testing.T) {
	ctx := context.Background()
	lm := NewLocalManager(ss58.PolymeshPrefix)

	a1, err := lm.AddMnemonic(ctx, testMnemonic, DefaultDerivationPath)
	require.NoError(t, err)
	again, err := NewLocalManager(ss58.PolymeshPrefix).AddMnemonic(ctx, " "+testMnemonic+"\n", DefaultDerivationPath)
	require.NoError(t, err)
	assert.Equal(t, a1, again)

	a2, err := lm.AddMnemonic(ctx, testMnemonic, "m/44'/595'/0'/0/1")
	require.NoError(t, err)
	assert.NotEqual(t, a1, a2)

	accounts, err := lm.Accounts(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a1, a2}, accounts)

	_, err = lm.Sign(ctx, a2, []byte("payload"))
	require.NoError(t, err)
}

func TestLocalManagerAddMnemonicErrors(t *testing.T) {
	ctx := context.Background()
	lm := NewLocalManager(42)

	_, err := lm.AddMnemonic(ctx, "not a mnemonic", DefaultDerivationPath)
	assert.Regexp(t, "PM010024", err)

	_, err = lm.AddMnemonic(ctx, testMnemonic, "44'/595'")
	assert.Regexp(t, "PM010025", err)

	_, err = lm.AddMnemonic(ctx, testMnemonic, "m/44'/x")
	assert.Regexp(t, "PM010025.*x", err)

	_, err = lm.AddMnemonic(ctx, testMnemonic, "m/2147483648")
	assert.Regexp(t, "PM010025", err)
}
