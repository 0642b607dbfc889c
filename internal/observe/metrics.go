// Package observe provides observability primitives for dropgate:
// OpenTelemetry metrics with a Prometheus exporter bridge.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A package-level
// default [Metrics] instance ([DefaultMetrics]) is provided for convenience;
// tests should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all dropgate metrics.
const meterName = "github.com/clearpath-voice/dropgate"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// ChunksProcessed counts audio chunks consumed across all streams.
	ChunksProcessed metric.Int64Counter

	// Decisions counts terminal detection results. Use with attribute:
	//   attribute.String("reason", ...)
	Decisions metric.Int64Counter

	// DetectorDuration tracks per-detector evaluation latency. Use with
	// attribute: attribute.String("detector", ...)
	DetectorDuration metric.Float64Histogram

	// StreamDuration tracks wall-clock time to decide one stream.
	StreamDuration metric.Float64Histogram

	// CapabilityErrors counts failures of the external capabilities. Use with
	// attribute: attribute.String("capability", "vad"|"stt"|"phrase")
	CapabilityErrors metric.Int64Counter

	// PhraseCalls counts phrase-analysis invocations. Callers that can
	// attribute the path may tag attribute.String("outcome", ...).
	PhraseCalls metric.Int64Counter

	// ActiveStreams tracks the number of streams currently being processed.
	ActiveStreams metric.Int64UpDownCounter
}

// detectorLatencyBuckets defines histogram boundaries (in seconds) sized for
// per-chunk detector work, which is microseconds to low milliseconds.
var detectorLatencyBuckets = []float64{
	0.00001, 0.000025, 0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01,
}

// streamLatencyBuckets covers whole-stream processing, bounded above by the
// 30 s greeting timeout.
var streamLatencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.ChunksProcessed, err = m.Int64Counter("dropgate.chunks.processed",
		metric.WithDescription("Audio chunks consumed across all streams."),
	); err != nil {
		return nil, err
	}
	if met.Decisions, err = m.Int64Counter("dropgate.decisions",
		metric.WithDescription("Terminal detection results by reason."),
	); err != nil {
		return nil, err
	}
	if met.DetectorDuration, err = m.Float64Histogram("dropgate.detector.duration",
		metric.WithDescription("Per-detector evaluation latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(detectorLatencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.StreamDuration, err = m.Float64Histogram("dropgate.stream.duration",
		metric.WithDescription("Wall-clock time to decide one stream."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(streamLatencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CapabilityErrors, err = m.Int64Counter("dropgate.capability.errors",
		metric.WithDescription("External capability failures by capability."),
	); err != nil {
		return nil, err
	}
	if met.PhraseCalls, err = m.Int64Counter("dropgate.phrase.calls",
		metric.WithDescription("Phrase-analysis invocations."),
	); err != nil {
		return nil, err
	}
	if met.ActiveStreams, err = m.Int64UpDownCounter("dropgate.active.streams",
		metric.WithDescription("Streams currently being processed."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the process-wide [Metrics] instance built from the
// global OTel meter provider. Instrument creation errors are impossible with
// the SDK meter provider, so any error falls back to a no-op meter provider's
// instruments.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		m, err := NewMetrics(otel.GetMeterProvider())
		if err != nil {
			// Should not happen with valid instrument names; keep a usable
			// zero-instrument set rather than panicking in a hot path.
			m = &Metrics{}
		}
		defaultMetrics = m
	})
	return defaultMetrics
}

// RecordDecision is a convenience wrapper for the Decisions counter.
func (m *Metrics) RecordDecision(ctx context.Context, reason string) {
	if m.Decisions == nil {
		return
	}
	m.Decisions.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordCapabilityError is a convenience wrapper for the CapabilityErrors counter.
func (m *Metrics) RecordCapabilityError(ctx context.Context, capability string) {
	if m.CapabilityErrors == nil {
		return
	}
	m.CapabilityErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("capability", capability)))
}
