// Copyright 2026 Blink Labs Software
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

package condor

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// setupTracing configures the global OTel tracer provider. Spans are
// submitted via OTLP over HTTP(s), configured using the standard
// OTEL_EXPORTER_OTLP_* env vars, with optional stdout output for
// debugging.
func (s *Sync) setupTracing() error {
	ctx := context.Background()
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName("condor"),
		),
	)
	if err != nil {
		return err
	}
	opts := []trace.TracerProviderOption{
		trace.WithResource(res),
	}
	httpExporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return err
	}
	opts = append(opts, trace.WithBatcher(httpExporter))
	if s.config.tracingStdout {
		stdoutExporter, err := stdouttrace.New(
			stdouttrace.WithPrettyPrint(),
		)
		if err != nil {
			return err
		}
		opts = append(opts, trace.WithBatcher(stdoutExporter))
	}
	tracerProvider := trace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	)
	s.shutdownFuncs = append(
		s.shutdownFuncs,
		func(ctx context.Context) error {
			err := tracerProvider.Shutdown(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	)
	return nil
}
