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
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadAndParseYAMLFile(t *testing.T) {
	confFile := path.Join(t.TempDir(), "sdk.yaml")
	err := os.WriteFile(confFile, []byte(`
log:
  level: debug
node:
  url: ws://localhost:9944
  heartbeatInterval: 5s
middleware:
  url: http://localhost:3000/graphql
  rateLimit: 10
signing:
  account: 5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY
submission:
  waitForFinalization: false
  connectionRetry:
    maxAttempts: 3
`), 0644)
	require.NoError(t, err)

	var conf SDKConfig
	err = ReadAndParseYAMLFile(context.Background(), confFile, &conf)
	require.NoError(t, err)
	assert.Equal(t, "debug", *conf.Log.Level)
	assert.Equal(t, "ws://localhost:9944", conf.Node.URL)
	assert.Equal(t, "5s", *conf.Node.HeartbeatInterval)
	assert.Equal(t, "http://localhost:3000/graphql", conf.Middleware.URL)
	assert.Equal(t, float64(10), *conf.Middleware.RateLimit)
	assert.Equal(t, "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY", *conf.Signing.Account)
	assert.False(t, *conf.Submission.WaitForFinalization)
	assert.Equal(t, 3, *conf.Submission.ConnectionRetry.MaxAttempts)
	assert.Nil(t, conf.Submission.StatusTimeout)
}

func TestReadAndParseYAMLFileMissing(t *testing.T) {
	var conf SDKConfig
	err := ReadAndParseYAMLFile(context.Background(), path.Join(t.TempDir(), "missing.yaml"), &conf)
	assert.Regexp(t, "PM010000", err)
}

func TestReadAndParseYAMLFileBadYAML(t *testing.T) {
	confFile := path.Join(t.TempDir(), "sdk.yaml")
	err := os.WriteFile(confFile, []byte("{!!!"), 0644)
	require.NoError(t, err)

	var conf SDKConfig
	err = ReadAndParseYAMLFile(context.Background(), confFile, &conf)
	assert.Regexp(t, "PM010002", err)
}

func TestDefaults(t *testing.T) {
	assert.True(t, *SDKDefaults.Submission.WaitForFinalization)
	assert.Equal(t, 1, *SDKDefaults.Submission.ConnectionRetry.MaxAttempts)
	assert.Equal(t, "15s", *SDKDefaults.Node.HeartbeatInterval)
	assert.Equal(t, 12, *SDKDefaults.Signing.SS58Prefix)
}
