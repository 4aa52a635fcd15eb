// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service's Prometheus collectors. It satisfies
// auth.OutcomeRecorder and mail.DeliveryRecorder.
type Metrics struct {
	AuthOutcomes    *prometheus.CounterVec
	MailDeliveries  *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AuthOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webauth_auth_outcomes_total",
				Help: "Account flow results by operation and status",
			},
			[]string{"operation", "status"},
		),
		MailDeliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webauth_mail_deliveries_total",
				Help: "Mail queue and delivery results by message kind and status",
			},
			[]string{"kind", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webauth_http_request_duration_seconds",
				Help:    "API request latency by method, route and status code",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "code"},
		),
	}

	reg.MustRegister(m.AuthOutcomes, m.MailDeliveries, m.RequestDuration)
	return m
}

// RecordOutcome counts an account flow result.
func (m *Metrics) RecordOutcome(operation, status string) {
	m.AuthOutcomes.WithLabelValues(operation, status).Inc()
}

// RecordDelivery counts a mail delivery result.
func (m *Metrics) RecordDelivery(kind, status string) {
	m.MailDeliveries.WithLabelValues(kind, status).Inc()
}

// ObserveRequest records the latency of an API request. route is the
// registered pattern, not the raw path.
func (m *Metrics) ObserveRequest(method, route string, code int, elapsed time.Duration) {
	m.RequestDuration.WithLabelValues(method, route, strconv.Itoa(code)).Observe(elapsed.Seconds())
}
