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
	"encoding/json"
	"math/big"
	"strings"

	"github.com/PolymeshAssociation/polymesh-sdk-sub000/internal/msgs"
	"github.com/hyperledger/firefly-common/pkg/i18n"
)

// BalanceDecimals is the fixed precision of all token and POLYX balances on chain
const BalanceDecimals = 6

var balanceUnit = big.NewInt(1000000)

// Balance is a non-negative fixed point amount with six decimal places.
// The zero value is a zero balance. JSON form is a decimal string.
type Balance struct {
	units *big.Int
}

// NewBalance wraps a raw on-chain amount expressed in the smallest unit
func NewBalance(units *big.Int) Balance {
	if units == nil {
		return Balance{}
	}
	return Balance{units: new(big.Int).Set(units)}
}

func BalanceFromUnits(units int64) Balance {
	return Balance{units: big.NewInt(units)}
}

// BalanceFromWhole builds a balance from a whole number of tokens
func BalanceFromWhole(whole int64) Balance {
	return Balance{units: new(big.Int).Mul(big.NewInt(whole), balanceUnit)}
}

func ParseBalance(ctx context.Context, s string) (Balance, error) {
	return parseFixedPoint(ctx, s, BalanceDecimals)
}

func MustParseBalance(s string) Balance {
	b, err := ParseBalance(context.Background(), s)
	if err != nil {
		panic(err)
	}
	return b
}

func parseFixedPoint(ctx context.Context, s string, maxDecimals int) (Balance, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "-") {
		return Balance{}, i18n.NewError(ctx, msgs.MsgTypesNegativeBalance, s)
	}
	whole, frac, hasDot := strings.Cut(s, ".")
	if whole == "" && (!hasDot || frac == "") {
		return Balance{}, i18n.NewError(ctx, msgs.MsgTypesInvalidBalance, s)
	}
	frac = strings.TrimRight(frac, "0")
	if len(frac) > maxDecimals {
		return Balance{}, i18n.NewError(ctx, msgs.MsgTypesBalanceTooPrecise, s, maxDecimals)
	}
	digits := whole + frac + strings.Repeat("0", BalanceDecimals-len(frac))
	if digits == "" || strings.ContainsFunc(digits, func(r rune) bool { return r < '0' || r > '9' }) {
		return Balance{}, i18n.NewError(ctx, msgs.MsgTypesInvalidBalance, s)
	}
	units, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return Balance{}, i18n.NewError(ctx, msgs.MsgTypesInvalidBalance, s)
	}
	return Balance{units: units}, nil
}

func (b Balance) int() *big.Int {
	if b.units == nil {
		return new(big.Int)
	}
	return b.units
}

// Units returns a copy of the amount in the smallest unit
func (b Balance) Units() *big.Int {
	return new(big.Int).Set(b.int())
}

func (b Balance) String() string {
	q, r := new(big.Int).QuoRem(b.int(), balanceUnit, new(big.Int))
	if r.Sign() == 0 {
		return q.String()
	}
	frac := strings.TrimRight(leftPad(r.String(), BalanceDecimals), "0")
	return q.String() + "." + frac
}

func leftPad(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return strings.Repeat("0", n-len(s)) + s
}

func (b Balance) Add(o Balance) Balance {
	return Balance{units: new(big.Int).Add(b.int(), o.int())}
}

// Sub saturates at zero, as a balance is never negative
func (b Balance) Sub(o Balance) Balance {
	r := new(big.Int).Sub(b.int(), o.int())
	if r.Sign() < 0 {
		return Balance{}
	}
	return Balance{units: r}
}

// MulRatio multiplies by numerator/denominator, rounding down to whole units
func (b Balance) MulRatio(numerator, denominator uint32) Balance {
	if denominator == 0 {
		return Balance{}
	}
	r := new(big.Int).Mul(b.int(), big.NewInt(int64(numerator)))
	return Balance{units: r.Quo(r, big.NewInt(int64(denominator)))}
}

func (b Balance) Mul(factor int64) Balance {
	return Balance{units: new(big.Int).Mul(b.int(), big.NewInt(factor))}
}

func (b Balance) Cmp(o Balance) int {
	return b.int().Cmp(o.int())
}

func (b Balance) Equals(o Balance) bool {
	return b.Cmp(o) == 0
}

func (b Balance) IsZero() bool {
	return b.int().Sign() == 0
}

// IsWhole is true when there is no fractional part, as required by indivisible assets
func (b Balance) IsWhole() bool {
	return new(big.Int).Rem(b.int(), balanceUnit).Sign() == 0
}

func (b Balance) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

func (b *Balance) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*b = Balance{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// plain JSON numbers are accepted too
		s = string(data)
	}
	parsed, err := ParseBalance(context.Background(), s)
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}
