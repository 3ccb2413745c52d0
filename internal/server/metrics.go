// Copyright 2025 The PEAC Protocol Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics holds the service's instrumentation behind its own registry, so
// multiple server instances never collide on metric registration.
type metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	receiptsIssued  *prometheus.CounterVec
	verifyOutcomes  *prometheus.CounterVec
}

func newMetrics() *metrics {
	m := &metrics{registry: prometheus.NewRegistry()}

	m.requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "peac_http_requests_total",
		Help: "HTTP requests by path and status code.",
	}, []string{"path", "status"})

	m.requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "peac_http_request_duration_seconds",
		Help:    "HTTP request latency by path.",
		Buckets: prometheus.DefBuckets,
	}, []string{"path"})

	m.receiptsIssued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "peac_receipts_issued_total",
		Help: "Issued receipts by schema variant.",
	}, []string{"schema"})

	m.verifyOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "peac_verify_outcomes_total",
		Help: "Verification outcomes by result; invalid outcomes carry the error kind.",
	}, []string{"outcome"})

	m.registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.receiptsIssued,
		m.verifyOutcomes,
	)
	return m
}

// handler serves the registry over the standard exposition format.
func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
