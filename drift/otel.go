package drift

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "driftwatch/drift"

// Tracer instruments fit and calculate runs with OpenTelemetry spans and
// metrics. A nil *Tracer is valid and records nothing, so callers never need
// to branch on whether telemetry is enabled.
type Tracer struct {
	tracer trace.Tracer

	runsTotal    metric.Int64Counter
	chunksScored metric.Int64Counter
	alertsRaised metric.Int64Counter
	runDuration  metric.Float64Histogram
}

// NewTracer builds a Tracer against the globally registered providers.
func NewTracer() (*Tracer, error) {
	meter := otel.Meter(instrumentationName)

	runs, err := meter.Int64Counter("driftwatch.runs.total",
		metric.WithDescription("Completed fit and calculate runs"))
	if err != nil {
		return nil, err
	}
	chunks, err := meter.Int64Counter("driftwatch.chunks.scored",
		metric.WithDescription("Chunks scored across all runs"))
	if err != nil {
		return nil, err
	}
	alerts, err := meter.Int64Counter("driftwatch.alerts.raised",
		metric.WithDescription("Result rows whose alert flag was raised"))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("driftwatch.run.duration",
		metric.WithDescription("Run duration in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return &Tracer{
		tracer:       otel.Tracer(instrumentationName),
		runsTotal:    runs,
		chunksScored: chunks,
		alertsRaised: alerts,
		runDuration:  duration,
	}, nil
}

// startRun opens a span for one fit or calculate phase.
func (t *Tracer) startRun(ctx context.Context, phase string, pairs int) (context.Context, trace.Span) {
	if t == nil {
		return ctx, nil
	}
	return t.tracer.Start(ctx, "drift."+phase,
		trace.WithAttributes(
			attribute.String("drift.phase", phase),
			attribute.Int("drift.pairs", pairs),
		))
}

// endRun closes the span and records run metrics. Safe on a nil receiver.
func (t *Tracer) endRun(ctx context.Context, span trace.Span, start time.Time, chunks, alerts int, err error) {
	if t == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	attrs := metric.WithAttributes(attribute.String("status", status))

	t.runsTotal.Add(ctx, 1, attrs)
	t.chunksScored.Add(ctx, int64(chunks), attrs)
	t.alertsRaised.Add(ctx, int64(alerts), attrs)
	t.runDuration.Record(ctx, time.Since(start).Seconds(), attrs)

	span.SetAttributes(
		attribute.Int("drift.chunks", chunks),
		attribute.Int("drift.alerts", alerts),
	)
	span.End()
}
