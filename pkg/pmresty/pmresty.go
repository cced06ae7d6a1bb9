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

package pmresty

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PolymeshAssociation/polymesh-sdk-sub000/internal/msgs"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/confutil"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/log"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmconf"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmerrors"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/tlsconf"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/sirupsen/logrus"
)

type retryCtxKey struct{}

type retryCtx struct {
	id       string
	start    time.Time
	attempts uint
}

const maxErrorBodyLength = 256

func onAfterResponse(_ *resty.Client, resp *resty.Response) error {
	if resp == nil {
		return nil
	}
	rCtx := resp.Request.Context()
	level := logrus.DebugLevel
	status := resp.StatusCode()
	if status >= 300 {
		level = logrus.ErrorLevel
	}
	var elapsed time.Duration
	if rc, ok := rCtx.Value(retryCtxKey{}).(*retryCtx); ok {
		elapsed = time.Since(rc.start)
	}
	log.L(rCtx).Logf(level, "<== %s %s [%d] (%dms)", resp.Request.Method, resp.Request.URL, status, elapsed.Milliseconds())
	return nil
}

// New creates a resty client for the node HTTP JSON/RPC endpoint or the middleware,
// with logging, basic auth, TLS and status code based retry from the configuration
func New(ctx context.Context, conf *pmconf.HTTPClientConfig) (client *resty.Client, err error) {
	def := pmconf.DefaultHTTPConfig
	connectionTimeout := confutil.DurationMin(conf.ConnectionTimeout, 0, *def.ConnectionTimeout)
	httpTransport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connectionTimeout,
			KeepAlive: connectionTimeout,
		}).DialContext,
		ForceAttemptHTTP2: true,
	}

	u, err := url.Parse(conf.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, i18n.NewError(ctx, msgs.MsgHTTPInvalidURL, conf.URL)
	}
	tlsConf := conf.TLS
	if u.Scheme == "https" {
		tlsConf.Enabled = true
	}
	if httpTransport.TLSClientConfig, err = tlsconf.BuildClientTLSConfig(ctx, &tlsConf); err != nil {
		return nil, err
	}

	client = resty.NewWithClient(&http.Client{Transport: httpTransport})

	baseURL := strings.TrimSuffix(conf.URL, "/")
	client.SetBaseURL(baseURL)
	client.SetTimeout(confutil.DurationMin(conf.RequestTimeout, 0, *def.RequestTimeout))
	log.L(ctx).Debugf("Created REST client to %s", baseURL)

	client.OnBeforeRequest(func(c *resty.Client, req *resty.Request) error {
		rCtx := req.Context()
		if rCtx.Value(retryCtxKey{}) == nil {
			// first attempt
			r := &retryCtx{
				id:    uuid.NewString()[0:8],
				start: time.Now(),
			}
			rCtx = context.WithValue(rCtx, retryCtxKey{}, r)
			rCtx = log.WithLogField(rCtx, "breq", r.id)
			req.SetContext(rCtx)
		}
		log.L(rCtx).Debugf("==> %s %s%s", req.Method, baseURL, req.URL)
		log.L(rCtx).Tracef("==> (body) %+v", req.Body)
		return nil
	})
	client.OnAfterResponse(onAfterResponse)

	for k, v := range conf.HTTPHeaders {
		if vs, ok := v.(string); ok {
			client.SetHeader(k, vs)
		}
	}

	if conf.Auth.Username != "" && conf.Auth.Password != "" {
		client.SetHeader("Authorization", fmt.Sprintf("Basic %s", base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("%s:%s", conf.Auth.Username, conf.Auth.Password)))))
	}

	if conf.Retry.Enabled {
		var retryStatusCodeRegex *regexp.Regexp
		if conf.Retry.ErrorStatusCodes != "" {
			retryStatusCodeRegex = regexp.MustCompile(conf.Retry.ErrorStatusCodes)
		}

		retryCount := confutil.IntMin(conf.Retry.Count, 0, *def.Retry.Count)
		minTimeout := confutil.DurationMin(conf.Retry.InitialDelay, 0, *def.Retry.InitialDelay)
		maxTimeout := confutil.DurationMin(conf.Retry.MaximumDelay, 0, *def.Retry.MaximumDelay)

		client.
			SetRetryCount(retryCount).
			SetRetryWaitTime(minTimeout).
			SetRetryMaxWaitTime(maxTimeout).
			AddRetryCondition(func(r *resty.Response, err error) bool {
				if r == nil || r.IsSuccess() {
					return false
				}
				if r.StatusCode() > 0 && retryStatusCodeRegex != nil && !retryStatusCodeRegex.MatchString(r.Status()) {
					return false
				}
				rCtx := r.Request.Context()
				if rc, ok := rCtx.Value(retryCtxKey{}).(*retryCtx); ok {
					rc.attempts++
					log.L(rCtx).Infof("retry %d/%d (min=%dms/max=%dms) status=%d", rc.attempts, retryCount, minTimeout.Milliseconds(), maxTimeout.Milliseconds(), r.StatusCode())
				}
				return true
			})
	}

	return client, nil
}

// WrapRestErr classifies a failed HTTP exchange. Transport failures and 5xx
// responses are connection errors, as the request can safely be sent again.
func WrapRestErr(ctx context.Context, res *resty.Response, err error) error {
	if err != nil {
		target := ""
		if res != nil && res.Request != nil {
			target = res.Request.URL
		}
		return pmerrors.Wrap(ctx, pmerrors.KindConnection, err, msgs.MsgHTTPNoResponse, target, err.Error())
	}
	var respData string
	if res.RawBody() != nil {
		defer func() { _ = res.RawBody().Close() }()
		if r, err := io.ReadAll(res.RawBody()); err == nil {
			respData = string(r)
		}
	}
	if respData == "" {
		respData = res.String()
	}
	if len(respData) > maxErrorBodyLength {
		respData = respData[0:maxErrorBodyLength] + "..."
	}
	kind := pmerrors.KindUnexpected
	if res.StatusCode() >= 500 {
		kind = pmerrors.KindConnection
	}
	return pmerrors.New(ctx, kind, msgs.MsgHTTPRequestFailed, res.StatusCode(), respData)
}
