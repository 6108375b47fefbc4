package observe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// middlewareSetup wires an in-memory meter and tracer so requests can be
// inspected without the global Prometheus registry.
func middlewareSetup(t *testing.T) (*Metrics, *sdkmetric.ManualReader, *tracetest.InMemoryExporter) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	origTP := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(origTP) })

	return m, reader, exp
}

func serveThrough(m *Metrics, handler http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	Middleware(m)(handler).ServeHTTP(rec, req)
	return rec
}

func TestMiddlewareSetsCorrelationID(t *testing.T) {
	m, _, _ := middlewareSetup(t)

	var cid string
	rec := serveThrough(m, func(w http.ResponseWriter, r *http.Request) {
		cid = CorrelationID(r.Context())
		w.WriteHeader(http.StatusAccepted)
	}, httptest.NewRequest("POST", "/transcribe", nil))

	if cid == "" {
		t.Fatal("no correlation ID in handler context")
	}
	if len(cid) != 32 {
		t.Errorf("correlation ID length = %d, want 32 hex chars", len(cid))
	}
	if got := rec.Header().Get("X-Correlation-ID"); got != cid {
		t.Errorf("X-Correlation-ID = %q, want %q", got, cid)
	}
}

func TestMiddlewareCreatesServerSpan(t *testing.T) {
	m, _, exp := middlewareSetup(t)

	serveThrough(m, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}, httptest.NewRequest("GET", "/jobs/abc123", nil))

	spans := exp.GetSpans()
	if len(spans) == 0 {
		t.Fatal("no span recorded")
	}
	if spans[0].Name != "HTTP GET /jobs/abc123" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "HTTP GET /jobs/abc123")
	}
}

func TestMiddlewareRecordsDuration(t *testing.T) {
	m, reader, _ := middlewareSetup(t)

	serveThrough(m, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}, httptest.NewRequest("GET", "/jobs", nil))

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	met := findMetric(rm, "lexivox.http.request.duration")
	if met == nil {
		t.Fatal("request duration metric not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("metric is not a histogram")
	}
	if len(hist.DataPoints) == 0 {
		t.Fatal("no data points")
	}

	dp := hist.DataPoints[0]
	if dp.Count != 1 {
		t.Errorf("sample count = %d, want 1", dp.Count)
	}
	var gotMethod, gotPath string
	for _, kv := range dp.Attributes.ToSlice() {
		switch string(kv.Key) {
		case "method":
			gotMethod = kv.Value.AsString()
		case "path":
			gotPath = kv.Value.AsString()
		}
	}
	if gotMethod != "GET" || gotPath != "/jobs" {
		t.Errorf("attributes = (%q, %q), want (GET, /jobs)", gotMethod, gotPath)
	}
}

func TestMiddlewareCapturesStatusCode(t *testing.T) {
	m, _, exp := middlewareSetup(t)

	rec := serveThrough(m, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}, httptest.NewRequest("GET", "/jobs/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	spans := exp.GetSpans()
	if len(spans) == 0 {
		t.Fatal("no spans recorded")
	}
	found := false
	for _, a := range spans[0].Attributes {
		if string(a.Key) == "http.response.status_code" && a.Value.AsInt64() == 404 {
			found = true
		}
	}
	if !found {
		t.Error("span missing http.response.status_code attribute")
	}
}

func TestMiddlewareContinuesIncomingTrace(t *testing.T) {
	m, _, _ := middlewareSetup(t)

	const wantTrace = "4bf92f3577b34da6a3ce929d0e0e4736"
	req := httptest.NewRequest("POST", "/transcribe", nil)
	req.Header.Set("traceparent", "00-"+wantTrace+"-00f067aa0ba902b7-01")

	var cid string
	rec := serveThrough(m, func(w http.ResponseWriter, r *http.Request) {
		cid = CorrelationID(r.Context())
		w.WriteHeader(http.StatusAccepted)
	}, req)

	if cid != wantTrace {
		t.Errorf("correlation ID = %q, want trace ID from traceparent %q", cid, wantTrace)
	}
	if got := rec.Header().Get("X-Correlation-ID"); got != wantTrace {
		t.Errorf("X-Correlation-ID = %q, want %q", got, wantTrace)
	}
}
