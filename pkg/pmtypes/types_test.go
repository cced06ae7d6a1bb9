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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testColor string

const (
	testColorRed  testColor = "red"
	testColorBlue testColor = "blue"
)

func (tc testColor) Options() []string {
	return []string{string(testColorRed), string(testColorBlue)}
}

func (tc testColor) Default() string {
	return string(testColorBlue)
}

type testShape string

func (ts testShape) Options() []string {
	return []string{"circle"}
}

func TestEnum(t *testing.T) {
	ctx := context.Background()

	v, err := Enum[testColor]("RED").Validate(ctx)
	require.NoError(t, err)
	assert.Equal(t, testColorRed, v)

	v, err = Enum[testColor]("").Validate(ctx)
	require.NoError(t, err)
	assert.Equal(t, testColorBlue, v)

	_, err = Enum[testColor]("green").Validate(ctx)
	assert.Regexp(t, "PM010007.*green", err)

	_, err = Enum[testShape]("").Validate(ctx)
	assert.Regexp(t, "PM010007", err)

	assert.Equal(t, []string{"red", "blue"}, Enum[testColor]("red").Options())
	assert.Equal(t, testColorRed, Enum[testColor]("red").V())
}

func TestHexBytes(t *testing.T) {
	ctx := context.Background()
	h, err := ParseHexBytes(ctx, "0xFEED")
	require.NoError(t, err)
	assert.Equal(t, HexBytes{0xfe, 0xed}, h)
	assert.Equal(t, "0xfeed", h.String())
	assert.Equal(t, "feed", h.HexString())
	assert.True(t, h.HasPrefix(HexBytes{0xfe}))
	assert.True(t, h.Equals(MustParseHexBytes("feed")))
	assert.Equal(t, "", HexBytes(nil).String())

	_, err = ParseHexBytes(ctx, "0xzz")
	assert.Regexp(t, "PM010003", err)
	assert.Panics(t, func() { MustParseHexBytes("wrong") })

	var v struct {
		H HexBytes `json:"h"`
	}
	err = json.Unmarshal([]byte(`{"h":"0x0102"}`), &v)
	require.NoError(t, err)
	assert.Equal(t, HexBytes{1, 2}, v.H)
	b, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"h":"0x0102"}`, string(b))

	err = json.Unmarshal([]byte(`{"h":"wrong"}`), &v)
	assert.Regexp(t, "PM010003", err)
}

func TestRawJSON(t *testing.T) {
	var v struct {
		R RawJSON `json:"r"`
		E RawJSON `json:"e"`
	}
	err := json.Unmarshal([]byte(`{"r":{"a":1}}`), &v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, v.R.String())
	assert.Equal(t, "null", v.E.String())
	assert.True(t, v.E.IsNil())

	var target map[string]int
	require.NoError(t, v.R.Unmarshal(&target))
	assert.Equal(t, 1, target["a"])
	require.NoError(t, v.E.Unmarshal(&target))

	b, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"r":{"a":1},"e":null}`, string(b))

	assert.Equal(t, `"x"`, JSONString("x").String())
	assert.Nil(t, JSONString(func() {}))
}
