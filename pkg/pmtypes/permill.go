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
	"context"
	"math/big"

	"github.com/PolymeshAssociation/polymesh-sdk-sub000/internal/msgs"
	"github.com/hyperledger/firefly-common/pkg/i18n"
)

// Permill is a ratio in parts per million, as stored on chain for tax
// withholding and ownership percentages
type Permill uint32

const PermillMax = Permill(1000000)

// percentDecimals is the number of decimal places of a percentage a Permill can carry
const percentDecimals = 4

// Percentage decodes the fixed point value into a percentage, so 100000 is 10
func (p Permill) Percentage() Balance {
	// Balance has six decimals, a percentage is parts per ten thousand
	return Balance{units: new(big.Int).Mul(big.NewInt(int64(p)), big.NewInt(100))}
}

// PermillFromPercentage is the inverse of Percentage, rejecting values outside 0 to 100
// and values with more than four decimal places
func PermillFromPercentage(ctx context.Context, pct Balance) (Permill, error) {
	if _, err := parseFixedPoint(ctx, pct.String(), percentDecimals); err != nil {
		return 0, err
	}
	if pct.Cmp(BalanceFromWhole(100)) > 0 {
		return 0, i18n.NewError(ctx, msgs.MsgTypesInvalidPermill, pct.String())
	}
	return Permill(new(big.Int).Quo(pct.int(), big.NewInt(100)).Uint64()), nil
}
