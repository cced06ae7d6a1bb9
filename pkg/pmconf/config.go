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

import (
	"context"
	"os"

	"github.com/PolymeshAssociation/polymesh-sdk-sub000/internal/msgs"
	"github.com/hyperledger/firefly-common/pkg/i18n"

	"sigs.k8s.io/yaml" // handles the json tags on all of our config structs
)

// SDKConfig is the root configuration of an SDK instance
type SDKConfig struct {
	Log        LogConfig        `json:"log"`
	Node       WSClientConfig   `json:"node"`
	Middleware MiddlewareConfig `json:"middleware"`
	Signing    SigningConfig    `json:"signing"`
	Submission SubmissionConfig `json:"submission"`
	Fees       FeesConfig       `json:"fees"`
	Metrics    MetricsConfig    `json:"metrics"`
}

var SDKDefaults = &SDKConfig{
	Log:        *LogDefaults,
	Node:       *DefaultWSConfig,
	Middleware: *MiddlewareDefaults,
	Signing:    *SigningDefaults,
	Submission: *SubmissionDefaults,
	Fees:       *FeesDefaults,
	Metrics:    *MetricsDefaults,
}

func ReadAndParseYAMLFile(ctx context.Context, filePath string, config interface{}) error {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return i18n.NewError(ctx, msgs.MsgConfigFileMissing, filePath)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return i18n.NewError(ctx, msgs.MsgConfigFileReadError, filePath, err.Error())
	}

	err = yaml.Unmarshal(data, config)
	if err != nil {
		return i18n.NewError(ctx, msgs.MsgConfigFileParseError, err.Error())
	}

	return nil
}
