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

package pmtypes

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/PolymeshAssociation/polymesh-sdk-sub000/internal/msgs"
	"github.com/hyperledger/firefly-common/pkg/i18n"
)

// HexBytes is a byte slice that is formatted in JSON with an 0x prefix, as used for
// storage keys, storage values, hashes and encoded extrinsics on the node JSON/RPC API
type HexBytes []byte

func ParseHexBytes(ctx context.Context, s string) (HexBytes, error) {
	h, err := hex.DecodeString(strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X"))
	if err != nil {
		return nil, i18n.NewError(ctx, msgs.MsgTypesInvalidHex, err)
	}
	return h, nil
}

func MustParseHexBytes(s string) HexBytes {
	h, err := ParseHexBytes(context.Background(), s)
	if err != nil {
		panic(err)
	}
	return h
}

// String is the 0x prefixed form, or empty for nil
func (h HexBytes) String() string {
	if h == nil {
		return ""
	}
	return h.HexString0xPrefix()
}

func (h HexBytes) Equals(h2 HexBytes) bool {
	return bytes.Equal(h, h2)
}

func (h HexBytes) HasPrefix(prefix HexBytes) bool {
	return bytes.HasPrefix(h, prefix)
}

func (h HexBytes) MarshalText() ([]byte, error) {
	return ([]byte)(h.HexString0xPrefix()), nil
}

func (h *HexBytes) UnmarshalText(text []byte) error {
	ph, err := ParseHexBytes(context.Background(), string(text))
	if err != nil {
		return err
	}
	*h = ph
	return nil
}

func (h HexBytes) HexString0xPrefix() string {
	return fmt.Sprintf("0x%s", hex.EncodeToString(h))
}

func (h HexBytes) HexString() string {
	return hex.EncodeToString(h)
}
