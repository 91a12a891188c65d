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
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestMetrics_TxLifecycle(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	done := m.TxSubmitted("create")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inFlight))
	done(StatusSuccess)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.inFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transactions.WithLabelValues("create", StatusSuccess)))

	m.TxFailed("delete", StatusRejected)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transactions.WithLabelValues("delete", StatusRejected)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.confirmation))
}

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics(nil)
	m.ViewCall("getTask", nil)
	m.ViewCall("getTask", errors.New("boom"))
	m.StorageOp("badger", "put", nil)
	m.Notification("error")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.viewCalls.WithLabelValues("getTask", StatusError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.viewCalls.WithLabelValues("getTask", StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.storageOps.WithLabelValues("badger", "put", StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues("error")))
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.TxSubmitted("create")(StatusSuccess)
		m.TxFailed("create", StatusError)
		m.ViewCall("getTask", nil)
		m.StorageOp("gcs", "get", nil)
		m.Notification("info")
		_ = m.Handler()
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.ViewCall("getUserTasks", nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	assert.True(t, strings.Contains(string(body), "web3todo_ledger_view_calls_total"))
}

func TestInit(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	_, err = Init(context.Background(), Config{TraceExporter: "zipkin"})
	require.ErrorIs(t, err, ErrUnknownExporter)

	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	shutdown, err = Init(context.Background(), Config{TraceExporter: ExporterStdout})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	_, span := StartSpan(context.Background(), "tasks.CreateTask", attribute.String("title", "Buy milk"))
	EndSpan(span, nil)
	_, span = StartSpan(context.Background(), "tasks.DeleteTask")
	EndSpan(span, errors.New("reverted"))
	EndSpan(nil, nil)

	ended := recorder.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, "tasks.CreateTask", ended[0].Name())
	assert.Equal(t, codes.Ok, ended[0].Status().Code)
	assert.Equal(t, codes.Error, ended[1].Status().Code)
}
