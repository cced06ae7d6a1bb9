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
	"encoding/json"
)

// RawJSON is JSON that is passed through untouched, with an empty value
// serialized as null
type RawJSON []byte

func JSONString(v any) RawJSON {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

func (r RawJSON) String() string {
	if len(r) == 0 {
		return "null"
	}
	return string(r)
}

func (r RawJSON) IsNil() bool {
	return len(r) == 0 || string(r) == "null"
}

func (r RawJSON) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

func (r *RawJSON) UnmarshalJSON(b []byte) error {
	*r = append((*r)[0:0], b...)
	return nil
}

// Unmarshal is a convenience for decoding the raw JSON into a typed value
func (r RawJSON) Unmarshal(v any) error {
	if r.IsNil() {
		return nil
	}
	return json.Unmarshal(r, v)
}
