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

package pmapi

import "github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmtypes"

// PaginationOptions for chain storage, where Start is the last storage key of
// the previous page
type PaginationOptions struct {
	Size  int              `json:"size"`
	Start pmtypes.HexBytes `json:"start,omitempty"`
}

// PaginatedEntries is a page of storage entries. LastKey is nil at the end of the results.
type PaginatedEntries[T any] struct {
	Entries []T              `json:"entries"`
	LastKey pmtypes.HexBytes `json:"lastKey"`
}

// MiddlewarePagination for the indexer, where Start is an offset
type MiddlewarePagination struct {
	Size  int `json:"size"`
	Start int `json:"start"`
}

// ResultSet is a page of indexer results. Next is nil at the end of the results,
// and is only valid for the filter that produced it.
type ResultSet[T any] struct {
	Data  []T  `json:"data"`
	Next  *int `json:"next"`
	Count int  `json:"count"`
}
