// Copyright 2024 Google LLC
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

// Package telemetry wraps the small slice of OpenTelemetry tracing the
// engine needs: a span around every engine connection open, and a span
// around the Executor's dual-dispatch. Unlike the teacher's server-oriented
// SetupOTel (OTLP/stdout exporters, a meter provider, periodic readers),
// there is no exporter pipeline here — this is a one-shot CLI run with no
// long-lived process to export metrics from. Spans still resolve against
// whatever global TracerProvider the embedding process configured (a no-op
// one by default), so downstream tooling that does wire up an exporter sees
// the same span names and attributes.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/GoogleCloudPlatform/data-validation-engine"

// Tracer returns the engine's named tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// InitConnectionSpan starts a span around opening a connection to the named
// engine kind, mirroring the teacher's sources.InitConnectionSpan.
func InitConnectionSpan(ctx context.Context, kind, name string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "engine/connect",
		trace.WithAttributes(
			attribute.String("engine.kind", kind),
			attribute.String("engine.name", name),
		),
	)
}

// ExecuteSpan starts a span around a single Execute call on one side
// ("source" or "target") of a validation, or around the single combined
// query of the pushdown path ("pushdown").
func ExecuteSpan(ctx context.Context, side string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "engine/execute", trace.WithAttributes(attribute.String("side", side)))
}
