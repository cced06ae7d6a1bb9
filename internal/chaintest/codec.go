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

package chaintest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/chain"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmapi"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmerrors"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmtypes"
)

// Codec encodes storage and extrinsics as JSON. A storage key is the item name
// followed by each JSON encoded argument, all terminated by a zero byte, so the
// key of fewer arguments is a prefix of the keys under it.
type Codec struct{}

func NewCodec() *Codec {
	return &Codec{}
}

const sep = 0x00

// Extrinsic is the decoded form of an extrinsic built by the codec
type Extrinsic struct {
	Call            *pmapi.ChainCall `json:"call"`
	Signer          string           `json:"signer"`
	Nonce           uint64           `json:"nonce"`
	MortalityPeriod uint64           `json:"mortalityPeriod"`
	Signature       pmtypes.HexBytes `json:"signature"`
}

type signingPayload struct {
	Call   *pmapi.ChainCall `json:"call"`
	Signer string           `json:"signer"`
	Nonce  uint64           `json:"nonce"`
}

func itemPrefix(module, item string) []byte {
	return append([]byte(module+"."+item), sep)
}

func (c *Codec) StorageKey(ctx context.Context, module, item string, args ...any) (pmtypes.HexBytes, error) {
	key := itemPrefix(module, item)
	for i, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("arg %d: %w", i, err)
		}
		key = append(append(key, b...), sep)
	}
	return key, nil
}

func (c *Codec) DecodeStorageKeyArg(ctx context.Context, module, item string, key pmtypes.HexBytes, index int, v any) error {
	prefix := itemPrefix(module, item)
	if !bytes.HasPrefix(key, prefix) {
		return fmt.Errorf("key %s is not in %s.%s", key, module, item)
	}
	args := bytes.Split(bytes.TrimSuffix(key[len(prefix):], []byte{sep}), []byte{sep})
	if index < 0 || index >= len(args) {
		return fmt.Errorf("key %s has no argument %d", key, index)
	}
	return json.Unmarshal(args[index], v)
}

func (c *Codec) DecodeStorageValue(ctx context.Context, module, item string, raw pmtypes.HexBytes, v any) error {
	return json.Unmarshal(raw, v)
}

// EncodeValue is the storage form of v
func (c *Codec) EncodeValue(v any) pmtypes.HexBytes {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func (c *Codec) EncodeExtrinsic(ctx context.Context, req *chain.ExtrinsicRequest) (pmtypes.HexBytes, error) {
	ext := &Extrinsic{
		Call:            req.Call,
		Signer:          req.Signer,
		Nonce:           req.Nonce,
		MortalityPeriod: req.MortalityPeriod,
	}
	if req.Sign != nil {
		payload, err := json.Marshal(&signingPayload{Call: req.Call, Signer: req.Signer, Nonce: req.Nonce})
		if err != nil {
			return nil, err
		}
		if ext.Signature, err = req.Sign(ctx, payload); err != nil {
			return nil, err
		}
	} else {
		ext.Signature = make(pmtypes.HexBytes, 66)
	}
	return json.Marshal(ext)
}

func (c *Codec) DecodeExtrinsic(raw pmtypes.HexBytes) (*Extrinsic, error) {
	var ext Extrinsic
	if err := json.Unmarshal(raw, &ext); err != nil {
		return nil, err
	}
	return &ext, nil
}

func (c *Codec) DecodeEvents(ctx context.Context, raw pmtypes.HexBytes) ([]*chain.EventRecord, error) {
	var records []*chain.EventRecord
	if raw == nil {
		return records, nil
	}
	err := json.Unmarshal(raw, &records)
	return records, err
}

func (c *Codec) DecodeDispatchError(ctx context.Context, ev *chain.EventRecord) (*pmerrors.DispatchError, error) {
	var de pmerrors.DispatchError
	if err := json.Unmarshal(ev.Data, &de); err != nil {
		return nil, err
	}
	return &de, nil
}
