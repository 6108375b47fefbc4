package observe

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestHistogramObservation(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	histograms := []struct {
		name string
		h    metric.Float64Histogram
	}{
		{"lexivox.stage.duration", m.StageDuration},
		{"lexivox.job.duration", m.JobDuration},
		{"lexivox.http.request.duration", m.HTTPRequestDuration},
	}

	for _, tc := range histograms {
		tc.h.Record(ctx, 0.123)
		tc.h.Record(ctx, 0.456)
	}

	rm := collect(t, reader)

	for _, tc := range histograms {
		t.Run(tc.name, func(t *testing.T) {
			met := findMetric(rm, tc.name)
			if met == nil {
				t.Fatalf("metric %q not found", tc.name)
			}
			hist, ok := met.Data.(metricdata.Histogram[float64])
			if !ok {
				t.Fatalf("metric %q is not a histogram", tc.name)
			}
			if len(hist.DataPoints) == 0 {
				t.Fatalf("metric %q has no data points", tc.name)
			}
			if got := hist.DataPoints[0].Count; got != 2 {
				t.Errorf("sample count = %d, want 2", got)
			}
		})
	}
}

func TestRecordStage(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordStage(ctx, "transcription", "ok", 2*time.Second)
	m.RecordStage(ctx, "transcription", "ok", 3*time.Second)
	m.RecordStage(ctx, "rule_correction", "error", 10*time.Millisecond)

	rm := collect(t, reader)
	met := findMetric(rm, "lexivox.stage.duration")
	if met == nil {
		t.Fatal("metric not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("metric is not a histogram")
	}
	// One data point per distinct attribute set.
	if len(hist.DataPoints) != 2 {
		t.Fatalf("data points = %d, want 2", len(hist.DataPoints))
	}
}

func TestSubmissionCounter(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordSubmission(ctx, "accepted")
	m.RecordSubmission(ctx, "accepted")
	m.RecordSubmission(ctx, "rejected")

	rm := collect(t, reader)
	met := findMetric(rm, "lexivox.jobs.submitted")
	if met == nil {
		t.Fatal("metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("metric is not a sum")
	}

	var accepted, rejected int64
	for _, dp := range sum.DataPoints {
		if v, found := dp.Attributes.Value(attribute.Key("status")); found {
			switch v.AsString() {
			case "accepted":
				accepted = dp.Value
			case "rejected":
				rejected = dp.Value
			}
		}
	}
	if accepted != 2 || rejected != 1 {
		t.Errorf("accepted=%d rejected=%d, want 2 and 1", accepted, rejected)
	}
}

func TestJobFinalCounter(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordJobFinal(ctx, "completed")
	m.RecordJobFinal(ctx, "failed")
	m.RecordJobFinal(ctx, "completed")

	rm := collect(t, reader)
	met := findMetric(rm, "lexivox.jobs.final")
	if met == nil {
		t.Fatal("metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("metric is not a sum")
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
}

func TestProviderErrorCounter(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordProviderError(ctx, "openai")
	m.RecordProviderRequest(ctx, "openai", "error")

	rm := collect(t, reader)
	if findMetric(rm, "lexivox.provider.errors") == nil {
		t.Error("provider errors metric not found")
	}
	if findMetric(rm, "lexivox.provider.requests") == nil {
		t.Error("provider requests metric not found")
	}
}

func TestQueueDepthGauge(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.AddQueueDepth(ctx, 1)
	m.AddQueueDepth(ctx, 1)
	m.AddQueueDepth(ctx, -1)

	rm := collect(t, reader)
	met := findMetric(rm, "lexivox.queue.depth")
	if met == nil {
		t.Fatal("metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("metric is not a sum")
	}
	if len(sum.DataPoints) == 0 || sum.DataPoints[0].Value != 1 {
		t.Errorf("queue depth = %v, want 1", sum.DataPoints)
	}
}
