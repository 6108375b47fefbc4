// Package observe provides application-wide observability primitives for
// Lexivox: OpenTelemetry metrics, distributed tracing, and HTTP middleware
// that ties them together.
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
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Lexivox metrics.
const meterName = "github.com/lexivox/lexivox"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// StageDuration tracks per-pipeline-stage latency. Use with attributes:
	//   attribute.String("stage", ...), attribute.String("status", ...)
	StageDuration metric.Float64Histogram

	// JobDuration tracks end-to-end job execution latency by terminal state.
	JobDuration metric.Float64Histogram

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes: attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram

	// --- Counters ---

	// JobsSubmitted counts submissions by admission status
	// (accepted, rejected).
	JobsSubmitted metric.Int64Counter

	// JobsFinal counts jobs reaching a terminal state, by state.
	JobsFinal metric.Int64Counter

	// ProviderRequests counts external collaborator calls. Use with
	// attributes: attribute.String("provider", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts external collaborator errors by provider.
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// QueueDepth tracks the number of jobs waiting for a worker.
	QueueDepth metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// transcription workloads, where a single stage can run for minutes.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.StageDuration, err = m.Float64Histogram("lexivox.stage.duration",
		metric.WithDescription("Latency of one pipeline stage by stage name and status."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.JobDuration, err = m.Float64Histogram("lexivox.job.duration",
		metric.WithDescription("End-to-end job execution latency by terminal state."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("lexivox.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.JobsSubmitted, err = m.Int64Counter("lexivox.jobs.submitted",
		metric.WithDescription("Total job submissions by admission status."),
	); err != nil {
		return nil, err
	}
	if met.JobsFinal, err = m.Int64Counter("lexivox.jobs.final",
		metric.WithDescription("Total jobs reaching a terminal state, by state."),
	); err != nil {
		return nil, err
	}
	if met.ProviderRequests, err = m.Int64Counter("lexivox.provider.requests",
		metric.WithDescription("Total external collaborator requests by provider and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("lexivox.provider.errors",
		metric.WithDescription("Total external collaborator errors by provider."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.QueueDepth, err = m.Int64UpDownCounter("lexivox.queue.depth",
		metric.WithDescription("Number of jobs waiting for a worker."),
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

// RecordStage records one pipeline stage execution with its duration and
// outcome status (ok, error, timeout, skipped).
func (m *Metrics) RecordStage(ctx context.Context, stage, status string, d time.Duration) {
	m.StageDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(
			attribute.String("stage", stage),
			attribute.String("status", status),
		),
	)
}

// RecordJobDuration records one end-to-end job execution.
func (m *Metrics) RecordJobDuration(ctx context.Context, state string, d time.Duration) {
	m.JobDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("state", state)),
	)
}

// RecordSubmission records a submission admission decision.
func (m *Metrics) RecordSubmission(ctx context.Context, status string) {
	m.JobsSubmitted.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}

// RecordJobFinal records a job reaching a terminal state.
func (m *Metrics) RecordJobFinal(ctx context.Context, state string) {
	m.JobsFinal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("state", state)),
	)
}

// AddQueueDepth adjusts the queue depth gauge by delta.
func (m *Metrics) AddQueueDepth(ctx context.Context, delta int64) {
	m.QueueDepth.Add(ctx, delta)
}

// RecordProviderRequest records an external collaborator call with the
// standard attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError records an external collaborator error.
func (m *Metrics) RecordProviderError(ctx context.Context, provider string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("provider", provider)),
	)
}
