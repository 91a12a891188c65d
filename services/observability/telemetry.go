// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability wires Prometheus metrics and OpenTelemetry tracing
// for the task client.
//
// Metrics are registered on a caller-supplied registry so tests and
// multiple services can own independent collectors. Traces go to the
// global TracerProvider configured by Init.
package observability

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Trace exporter names.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

// ErrUnknownExporter is returned by Init for an unsupported exporter name.
var ErrUnknownExporter = errors.New("unknown trace exporter")

// Config controls tracing.
type Config struct {
	// ServiceName identifies this process in traces.
	ServiceName string `yaml:"service_name"`

	// ServiceVersion is reported as service.version.
	ServiceVersion string `yaml:"service_version"`

	// TraceExporter is "none", "stdout" or "otlp". Default: "none".
	TraceExporter string `yaml:"trace_exporter" validate:"omitempty,oneof=none stdout otlp"`

	// OTLPEndpoint is the collector's gRPC address. Default:
	// $OTEL_EXPORTER_OTLP_ENDPOINT, then localhost:4317.
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// Init installs the global TracerProvider and propagator.
//
// # Description
//
// With TraceExporter "none" nothing is installed and the returned shutdown
// is a no-op; otel's default no-op provider stays in place. OTLP exports
// over an insecure gRPC connection, the way a local collector sidecar is
// usually reached.
//
// # Outputs
//
//   - shutdown: flushes and stops the exporter. Always non-nil on success.
//   - error: ErrUnknownExporter or an exporter construction failure.
//
// # Thread Safety
//
// Call once at startup.
func Init(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }

	if cfg.TraceExporter == "" || cfg.TraceExporter == ExporterNone {
		return noop, nil
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "web3todo"
	}

	var exporter sdktrace.SpanExporter
	var conn *grpc.ClientConn
	var err error

	switch cfg.TraceExporter {
	case ExporterStdout:
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	case ExporterOTLP:
		endpoint := cfg.OTLPEndpoint
		if endpoint == "" {
			endpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
		}
		if endpoint == "" {
			endpoint = "localhost:4317"
		}
		conn, err = grpc.NewClient(endpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return nil, fmt.Errorf("dial collector %s: %w", endpoint, err)
		}
		exporter, err = otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownExporter, cfg.TraceExporter)
	}
	if err != nil {
		if conn != nil {
			_ = conn.Close()
		}
		return nil, fmt.Errorf("create %s exporter: %w", cfg.TraceExporter, err)
	}

	res := resource.NewWithAttributes("",
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
	)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		err := tp.Shutdown(ctx)
		if conn != nil {
			if cerr := conn.Close(); err == nil {
				err = cerr
			}
		}
		return err
	}, nil
}
