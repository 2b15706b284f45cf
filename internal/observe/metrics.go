// Package observe provides application-wide observability primitives for
// SpeakCheck: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all SpeakCheck metrics.
const meterName = "speakcheck"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	meter metric.Meter

	// --- Latency histograms ---

	// TranscriptionDuration tracks voice-note transcription latency.
	TranscriptionDuration metric.Float64Histogram

	// CorrectionDuration tracks grammar-correction latency.
	CorrectionDuration metric.Float64Histogram

	// --- Counters ---

	// AnswersProcessed counts rehearsal answers consumed by the engine.
	// Use with attribute: attribute.String("part", ...)
	AnswersProcessed metric.Int64Counter

	// CorrectionOutcomes counts grammar-check outcomes. Use with attribute:
	//   attribute.String("outcome", ...)
	CorrectionOutcomes metric.Int64Counter

	// VoiceNotes counts processed voice notes. Use with attribute:
	//   attribute.String("status", ...)
	VoiceNotes metric.Int64Counter

	// ProviderRequests counts provider API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// transcription and LLM round trips.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{meter: m}

	// Histograms.
	if met.TranscriptionDuration, err = m.Float64Histogram("speakcheck.transcription.duration",
		metric.WithDescription("Latency of voice-note transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CorrectionDuration, err = m.Float64Histogram("speakcheck.correction.duration",
		metric.WithDescription("Latency of grammar correction."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.AnswersProcessed, err = m.Int64Counter("speakcheck.practice.answers",
		metric.WithDescription("Total rehearsal answers processed by exam part."),
	); err != nil {
		return nil, err
	}
	if met.CorrectionOutcomes, err = m.Int64Counter("speakcheck.correction.outcomes",
		metric.WithDescription("Total grammar-check outcomes by kind."),
	); err != nil {
		return nil, err
	}
	if met.VoiceNotes, err = m.Int64Counter("speakcheck.voice_notes",
		metric.WithDescription("Total voice notes processed by status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderRequests, err = m.Int64Counter("speakcheck.provider.requests",
		metric.WithDescription("Total provider API requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("speakcheck.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("speakcheck.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// RegisterActivePracticeGauge registers an observable gauge that reports the
// number of chats currently in a practice flow. The callback is invoked on
// every metrics collection.
func (m *Metrics) RegisterActivePracticeGauge(count func() int64) error {
	_, err := m.meter.Int64ObservableGauge("speakcheck.practice.active",
		metric.WithDescription("Number of chats currently in a practice flow."),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(count())
			return nil
		}),
	)
	return err
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
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

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordTranscription records one transcription with its latency and status.
func (m *Metrics) RecordTranscription(ctx context.Context, seconds float64, status string) {
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.TranscriptionDuration.Record(ctx, seconds, attrs)
}

// RecordCorrection records one grammar check with its latency and outcome.
func (m *Metrics) RecordCorrection(ctx context.Context, seconds float64, outcome string) {
	m.CorrectionDuration.Record(ctx, seconds)
	m.CorrectionOutcomes.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordAnswer records one processed rehearsal answer.
func (m *Metrics) RecordAnswer(ctx context.Context, part string) {
	m.AnswersProcessed.Add(ctx, 1,
		metric.WithAttributes(attribute.String("part", part)))
}

// RecordVoiceNote records one processed voice note by status.
func (m *Metrics) RecordVoiceNote(ctx context.Context, status string) {
	m.VoiceNotes.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)))
}

// RecordProviderRequest records a provider request counter increment with the
// standard attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError records a provider error counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}
