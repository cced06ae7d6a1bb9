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

package pmconf

// TLSConfig secures connections to the node and the middleware
type TLSConfig struct {
	Enabled                bool              `json:"enabled"`
	CAFile                 string            `json:"caFile,omitempty"`
	CA                     string            `json:"ca,omitempty"`
	CertFile               string            `json:"certFile,omitempty"`
	Cert                   string            `json:"cert,omitempty"`
	KeyFile                string            `json:"keyFile,omitempty"`
	Key                    string            `json:"key,omitempty"`
	InsecureSkipHostVerify bool              `json:"insecureSkipHostVerify"`
	RequiredDNAttributes   map[string]string `json:"requiredDNAttributes,omitempty"`
}
