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

package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

type SDKMetrics interface {
	IncProceduresPrepared(procedure string)
	IncProceduresRejected(procedure string, kind string)
	IncTransactionsSubmitted()
	IncTransactionsCompleted(status string)
	IncActiveSubscriptions()
	DecActiveSubscriptions()
}

var METRICS_SUBSYSTEM = "polymesh_sdk"

type sdkMetrics struct {
	proceduresPrepared    *prometheus.CounterVec
	proceduresRejected    *prometheus.CounterVec
	transactionsSubmitted prometheus.Counter
	transactionsCompleted *prometheus.CounterVec
	activeSubscriptions   prometheus.Gauge
}

// InitMetrics creates the SDK collectors, registering them when a registry is supplied
func InitMetrics(ctx context.Context, registry prometheus.Registerer) SDKMetrics {
	metrics := &sdkMetrics{}

	metrics.proceduresPrepared = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "procedures_prepared_total",
		Help: "Procedures prepared into transactions", Subsystem: METRICS_SUBSYSTEM}, []string{"procedure"})
	metrics.proceduresRejected = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "procedures_rejected_total",
		Help: "Procedures rejected before a transaction was built", Subsystem: METRICS_SUBSYSTEM}, []string{"procedure", "kind"})
	metrics.transactionsSubmitted = prometheus.NewCounter(prometheus.CounterOpts{Name: "transactions_submitted_total",
		Help: "Transactions submitted to the chain", Subsystem: METRICS_SUBSYSTEM})
	metrics.transactionsCompleted = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "transactions_completed_total",
		Help: "Transactions reaching a terminal status", Subsystem: METRICS_SUBSYSTEM}, []string{"status"})
	metrics.activeSubscriptions = prometheus.NewGauge(prometheus.GaugeOpts{Name: "active_subscriptions",
		Help: "Storage subscriptions with a registered callback", Subsystem: METRICS_SUBSYSTEM})

	if registry != nil {
		registry.MustRegister(metrics.proceduresPrepared)
		registry.MustRegister(metrics.proceduresRejected)
		registry.MustRegister(metrics.transactionsSubmitted)
		registry.MustRegister(metrics.transactionsCompleted)
		registry.MustRegister(metrics.activeSubscriptions)
	}
	return metrics
}

func (m *sdkMetrics) IncProceduresPrepared(procedure string) {
	m.proceduresPrepared.WithLabelValues(procedure).Inc()
}

func (m *sdkMetrics) IncProceduresRejected(procedure string, kind string) {
	m.proceduresRejected.WithLabelValues(procedure, kind).Inc()
}

func (m *sdkMetrics) IncTransactionsSubmitted() {
	m.transactionsSubmitted.Inc()
}

func (m *sdkMetrics) IncTransactionsCompleted(status string) {
	m.transactionsCompleted.WithLabelValues(status).Inc()
}

func (m *sdkMetrics) IncActiveSubscriptions() {
	m.activeSubscriptions.Inc()
}

func (m *sdkMetrics) DecActiveSubscriptions() {
	m.activeSubscriptions.Dec()
}
