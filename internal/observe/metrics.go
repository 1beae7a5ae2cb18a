// Package observe provides application-wide observability primitives for
// Scrivano: OpenTelemetry metrics and the Prometheus exporter bridge.
//
// Metrics are recorded through the OpenTelemetry Metrics API. [Setup]
// bridges them into a Prometheus registry scraped via the standard
// /metrics endpoint. A package-level default [Metrics] instance
// ([DefaultMetrics]) is provided for convenience; tests should use
// [NewMetrics] with a custom [metric.MeterProvider] to avoid cross-test
// pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Scrivano metrics.
const meterName = "github.com/mverran/scrivano"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// RecognitionDuration tracks, per finalized utterance, the wall-clock
	// lag between the utterance ending in the audio and its final result
	// arriving.
	RecognitionDuration metric.Float64Histogram

	// FramesCaptured counts audio frames accepted from the capture source.
	FramesCaptured metric.Int64Counter

	// PartialResults counts interim recognition results.
	PartialResults metric.Int64Counter

	// SegmentsClosed counts closed transcript segments. Use with attribute:
	//   attribute.String("trigger", "finalize"|"switch"|"stop"|"activate")
	SegmentsClosed metric.Int64Counter

	// RecognitionErrors counts per-frame recognizer errors that were
	// skipped (the stream continues).
	RecognitionErrors metric.Int64Counter

	// RejectedEdits counts edits refused for touching a protected prefix.
	RejectedEdits metric.Int64Counter

	// NotesCreated counts annotation notes.
	NotesCreated metric.Int64Counter

	// Exports counts export attempts. Use with attribute:
	//   attribute.String("status", "ok"|"error")
	Exports metric.Int64Counter

	// ActiveSessions tracks the number of live transcription sessions
	// (0 or 1 in the current application, but the instrument does not
	// assume that).
	ActiveSessions metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// offline-model inference latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.RecognitionDuration, err = m.Float64Histogram("scrivano.recognition.duration",
		metric.WithDescription("Lag from utterance end to final result delivery."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.FramesCaptured, err = m.Int64Counter("scrivano.audio.frames",
		metric.WithDescription("Total audio frames accepted from the capture source."),
	); err != nil {
		return nil, err
	}
	if met.PartialResults, err = m.Int64Counter("scrivano.recognition.partials",
		metric.WithDescription("Total interim recognition results."),
	); err != nil {
		return nil, err
	}
	if met.SegmentsClosed, err = m.Int64Counter("scrivano.segments.closed",
		metric.WithDescription("Total closed transcript segments by trigger."),
	); err != nil {
		return nil, err
	}
	if met.RecognitionErrors, err = m.Int64Counter("scrivano.recognition.errors",
		metric.WithDescription("Total skipped per-frame recognizer errors."),
	); err != nil {
		return nil, err
	}
	if met.RejectedEdits, err = m.Int64Counter("scrivano.edits.rejected",
		metric.WithDescription("Total edits refused for touching a protected prefix."),
	); err != nil {
		return nil, err
	}
	if met.NotesCreated, err = m.Int64Counter("scrivano.notes.created",
		metric.WithDescription("Total annotation notes created."),
	); err != nil {
		return nil, err
	}
	if met.Exports, err = m.Int64Counter("scrivano.exports",
		metric.WithDescription("Total export attempts by status."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("scrivano.active_sessions",
		metric.WithDescription("Number of live transcription sessions."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it
// on first call using [otel.GetMeterProvider]. Subsequent calls return the
// same pointer. Panics if instrument creation fails (should not happen with
// the global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordSegmentClosed records a closed segment with its trigger attribute.
func (m *Metrics) RecordSegmentClosed(ctx context.Context, trigger string) {
	m.SegmentsClosed.Add(ctx, 1,
		metric.WithAttributes(attribute.String("trigger", trigger)),
	)
}

// RecordExport records an export attempt with its status attribute.
func (m *Metrics) RecordExport(ctx context.Context, status string) {
	m.Exports.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}
