// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Status label values.
const (
	StatusSuccess  = "success"
	StatusError    = "error"
	StatusRejected = "rejected"
	StatusReverted = "reverted"
)

// =============================================================================
// Prometheus Metrics
// =============================================================================

// Metrics holds the client's collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry prometheus.Gatherer

	// transactions counts writes by operation and outcome.
	// Labels: operation (create, complete, delegate, delete, mint, deploy),
	// status (success, error, rejected, reverted)
	transactions *prometheus.CounterVec

	// confirmation measures submit-to-receipt latency.
	// Labels: operation
	confirmation *prometheus.HistogramVec

	// inFlight tracks submitted transactions awaiting a receipt.
	inFlight prometheus.Gauge

	// viewCalls counts contract reads.
	// Labels: method, status
	viewCalls *prometheus.CounterVec

	// storageOps counts content storage operations.
	// Labels: backend, operation (put, get), status
	storageOps *prometheus.CounterVec

	// notifications counts user-facing notifications.
	// Labels: level
	notifications *prometheus.CounterVec

	// httpRequests measures gateway request latency.
	// Labels: method, route, code
	httpRequests *prometheus.HistogramVec
}

// NewMetrics registers the collectors on reg. A nil reg uses a fresh
// registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		transactions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "web3todo",
			Subsystem: "ledger",
			Name:      "transactions_total",
			Help:      "Contract transactions by operation and outcome",
		}, []string{"operation", "status"}),
		confirmation: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "web3todo",
			Subsystem: "ledger",
			Name:      "confirmation_seconds",
			Help:      "Time from submission to first confirmation",
			Buckets:   []float64{0.5, 1, 2, 4, 8, 15, 30, 60, 120},
		}, []string{"operation"}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "web3todo",
			Subsystem: "ledger",
			Name:      "transactions_in_flight",
			Help:      "Submitted transactions awaiting confirmation",
		}),
		viewCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "web3todo",
			Subsystem: "ledger",
			Name:      "view_calls_total",
			Help:      "Contract view calls by method and outcome",
		}, []string{"method", "status"}),
		storageOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "web3todo",
			Subsystem: "storage",
			Name:      "operations_total",
			Help:      "Content storage operations by backend, operation and outcome",
		}, []string{"backend", "operation", "status"}),
		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "web3todo",
			Subsystem: "notify",
			Name:      "notifications_total",
			Help:      "User-facing notifications by level",
		}, []string{"level"}),
		httpRequests: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "web3todo",
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "Gateway request latency by route and status code",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "code"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// TxSubmitted marks a transaction as in flight and returns a function that
// records its outcome and confirmation latency.
func (m *Metrics) TxSubmitted(operation string) func(status string) {
	if m == nil {
		return func(string) {}
	}
	start := time.Now()
	m.inFlight.Inc()
	return func(status string) {
		m.inFlight.Dec()
		m.transactions.WithLabelValues(operation, status).Inc()
		if status == StatusSuccess {
			m.confirmation.WithLabelValues(operation).Observe(time.Since(start).Seconds())
		}
	}
}

// TxFailed records a transaction that never reached the network.
func (m *Metrics) TxFailed(operation, status string) {
	if m == nil {
		return
	}
	m.transactions.WithLabelValues(operation, status).Inc()
}

// ViewCall records a contract read.
func (m *Metrics) ViewCall(method string, err error) {
	if m == nil {
		return
	}
	m.viewCalls.WithLabelValues(method, statusOf(err)).Inc()
}

// StorageOp records a content storage operation.
func (m *Metrics) StorageOp(backend, operation string, err error) {
	if m == nil {
		return
	}
	m.storageOps.WithLabelValues(backend, operation, statusOf(err)).Inc()
}

// Notification records one user-facing notification.
func (m *Metrics) Notification(level string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(level).Inc()
}

// HTTPRequest records one gateway request.
func (m *Metrics) HTTPRequest(method, route string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Observe(elapsed.Seconds())
}

func statusOf(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}
