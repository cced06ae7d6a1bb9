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

package ss58

import (
	"bytes"
	"context"

	"github.com/PolymeshAssociation/polymesh-sdk-sub000/internal/msgs"
	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

const (
	AccountIDLength = 32
	checksumLength  = 2
	// PolymeshPrefix is the address prefix of the Polymesh mainnet and testnet
	PolymeshPrefix = 12
	maxPrefix      = 16383
)

var checksumPreimage = []byte("SS58PRE")

func checksum(data []byte) []byte {
	h, _ := blake2b.New512(nil)
	_, _ = h.Write(checksumPreimage)
	_, _ = h.Write(data)
	return h.Sum(nil)[0:checksumLength]
}

func encodePrefix(prefix uint16) []byte {
	if prefix < 64 {
		return []byte{byte(prefix)}
	}
	return []byte{
		byte((prefix&0x00fc)>>2) | 0x40,
		byte(prefix>>8) | byte((prefix&0x0003)<<6),
	}
}

// Encode formats a 32 byte account ID as an SS58 address for the network prefix
func Encode(ctx context.Context, prefix int, accountID []byte) (string, error) {
	if prefix < 0 || prefix > maxPrefix || prefix == 46 || prefix == 47 {
		return "", i18n.NewError(ctx, msgs.MsgTypesInvalidSS58Prefix, prefix)
	}
	if len(accountID) != AccountIDLength {
		return "", i18n.NewError(ctx, msgs.MsgTypesInvalidAccountID, len(accountID))
	}
	data := append(encodePrefix(uint16(prefix)), accountID...)
	return base58.Encode(append(data, checksum(data)...)), nil
}

// Decode parses an SS58 address into its network prefix and account ID
func Decode(ctx context.Context, address string) (prefix int, accountID []byte, err error) {
	raw, err := base58.Decode(address)
	if err != nil {
		return -1, nil, i18n.NewError(ctx, msgs.MsgTypesInvalidSS58, address, err)
	}
	prefixLen := 1
	if len(raw) > 0 && raw[0]&0x40 != 0 {
		prefixLen = 2
	}
	if len(raw) != prefixLen+AccountIDLength+checksumLength {
		return -1, nil, i18n.NewError(ctx, msgs.MsgTypesInvalidSS58, address, "length")
	}
	data := raw[0 : prefixLen+AccountIDLength]
	if !bytes.Equal(checksum(data), raw[prefixLen+AccountIDLength:]) {
		return -1, nil, i18n.NewError(ctx, msgs.MsgTypesSS58Checksum, address)
	}
	if prefixLen == 1 {
		prefix = int(raw[0])
	} else {
		lower := (raw[0]&0x3f)<<2 | raw[1]>>6
		upper := raw[1] & 0x3f
		prefix = int(lower) | int(upper)<<8
	}
	return prefix, data[prefixLen:], nil
}

// Validate checks the address is well formed and for the expected network
func Validate(ctx context.Context, address string, expectedPrefix int) ([]byte, error) {
	prefix, accountID, err := Decode(ctx, address)
	if err != nil {
		return nil, err
	}
	if prefix != expectedPrefix {
		return nil, i18n.NewError(ctx, msgs.MsgTypesInvalidSS58, address, i18n.NewError(ctx, msgs.MsgTypesInvalidSS58Prefix, prefix))
	}
	return accountID, nil
}
