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

package log

import (
	"context"
	"os"
	"path"
	"testing"

	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/confutil"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmconf"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogContext(t *testing.T) {
	ctx := WithLogField(context.Background(), "myfield", "myvalue")
	assert.Equal(t, "myvalue", L(ctx).Data["myfield"])

	ctx = WithComponent(ctx, "procedure")
	assert.Equal(t, "procedure", L(ctx).Data["role"])
	assert.Equal(t, "myvalue", L(ctx).Data["myfield"])
}

func TestLogContextLimited(t *testing.T) {
	ctx := WithLogField(context.Background(), "myfield", "0123456789012345678901234567890123456789012345678901234567890123456789")
	assert.Equal(t, "0123456789012345678901234567890123456789012345678901234567890...", L(ctx).Data["myfield"])
}

func TestLevels(t *testing.T) {
	defer SetLevel("info")
	for _, tc := range []struct {
		in    string
		level logrus.Level
		out   string
	}{
		{"eRrOr", logrus.ErrorLevel, "error"},
		{"WARNING", logrus.WarnLevel, "warn"},
		{"DEBUG", logrus.DebugLevel, "debug"},
		{"trace", logrus.TraceLevel, "trace"},
		{"info", logrus.InfoLevel, "info"},
		{"something else", logrus.InfoLevel, "info"},
	} {
		SetLevel(tc.in)
		assert.Equal(t, tc.level, logrus.GetLevel())
		assert.Equal(t, tc.out, GetLevel())
	}
	SetLevel("trace")
	assert.True(t, IsDebugEnabled())
	assert.True(t, IsTraceEnabled())
}

func TestSetFormattingVariants(t *testing.T) {
	defer func() { InitConfig(&pmconf.LogConfig{}) }()
	for _, conf := range []*pmconf.LogConfig{
		{DisableColor: confutil.P(true), UTC: confutil.P(true)},
		{Output: confutil.P("stdout")},
		{Output: confutil.P("stderr")},
		{Format: confutil.P("detailed")},
		{Format: confutil.P("json")},
	} {
		InitConfig(conf)
		L(context.Background()).Infof("formatted")
	}
	logrus.SetReportCaller(false)
}

func TestSetFormattingFile(t *testing.T) {
	defer func() { InitConfig(&pmconf.LogConfig{}) }()
	logFile := path.Join(t.TempDir(), "polymesh-sdk.log")
	InitConfig(&pmconf.LogConfig{
		Output: confutil.P("file"),
		File: pmconf.LogFileConfig{
			Filename: confutil.P(logFile),
		},
	})
	L(context.Background()).Infof("File logs")

	fileExists, err := os.Stat(logFile)
	require.NoError(t, err)
	assert.False(t, fileExists.IsDir())
}
