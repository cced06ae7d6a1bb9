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

import "github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/confutil"

type MiddlewareConfig struct {
	HTTPClientConfig `json:",inline"`
	// maximum requests per second sent to the indexer, zero for unlimited
	RateLimit *float64 `json:"rateLimit"`
	Burst     *int     `json:"burst"`
}

var MiddlewareDefaults = &MiddlewareConfig{
	HTTPClientConfig: *DefaultHTTPConfig,
	RateLimit:        confutil.P(float64(0)),
	Burst:            confutil.P(1),
}

type SigningConfig struct {
	// default signing account, the first managed account is used when unset
	Account *string `json:"account"`
	// SS58 address prefix of the target chain
	SS58Prefix *int `json:"ss58Prefix"`
	// BIP-39 mnemonics loaded into a local signing manager, when none is supplied
	Mnemonics      []string `json:"mnemonics"`
	DerivationPath *string  `json:"derivationPath"`
}

var SigningDefaults = &SigningConfig{
	SS58Prefix:     confutil.P(12),
	DerivationPath: confutil.P("m/44'/595'/0'/0/0"),
}

type SubmissionConfig struct {
	// complete transactions at finalization rather than at block inclusion
	WaitForFinalization *bool `json:"waitForFinalization"`
	// resubmission of extrinsics the node never accepted, due to a lost connection.
	// Accepted extrinsics are never resubmitted.
	ConnectionRetry RetryConfigWithMax `json:"connectionRetry"`
	// fails a running transaction with a connection error if no status is received for this long
	StatusTimeout *string `json:"statusTimeout"`
	// number of blocks an extrinsic stays valid for, zero for immortal
	MortalityPeriod *int `json:"mortalityPeriod"`
}

var SubmissionDefaults = &SubmissionConfig{
	WaitForFinalization: confutil.P(true),
	ConnectionRetry: RetryConfigWithMax{
		RetryConfig: RetryConfig{
			InitialDelay: confutil.P("250ms"),
			MaxDelay:     confutil.P("10s"),
			Factor:       confutil.P(2.0),
		},
		MaxAttempts: confutil.P(1),
	},
	StatusTimeout:   confutil.P("5m"),
	MortalityPeriod: confutil.P(64),
}

type FeesConfig struct {
	ProtocolFeeCache CacheConfig `json:"protocolFeeCache"`
}

var FeesDefaults = &FeesConfig{
	ProtocolFeeCache: CacheConfig{
		Capacity: confutil.P(100),
	},
}

type MetricsConfig struct {
	Enabled *bool `json:"enabled"`
}

var MetricsDefaults = &MetricsConfig{
	Enabled: confutil.P(true),
}
