package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func decodeReport(t *testing.T, rec *httptest.ResponseRecorder) probeReport {
	t.Helper()
	var body probeReport
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return body
}

func TestHealthzAlwaysOK(t *testing.T) {
	t.Parallel()
	h := New()

	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest("GET", "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	if body := decodeReport(t, rec); body.Status != "ok" {
		t.Errorf("status = %q, want %q", body.Status, "ok")
	}
}

func TestReadyzAllProbesPass(t *testing.T) {
	t.Parallel()
	h := New(
		Checker{Name: "whisper_model", Check: func(_ context.Context) error { return nil }},
		Checker{Name: "vocabulary", Check: func(_ context.Context) error { return nil }},
	)

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest("GET", "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := decodeReport(t, rec)
	if body.Status != "ok" {
		t.Errorf("status = %q, want %q", body.Status, "ok")
	}
	for _, name := range []string{"whisper_model", "vocabulary"} {
		if body.Checks[name] != "ok" {
			t.Errorf("check %s = %q, want %q", name, body.Checks[name], "ok")
		}
	}
}

func TestReadyzFailingProbe(t *testing.T) {
	t.Parallel()
	h := New(
		Checker{Name: "database", Check: func(_ context.Context) error {
			return errors.New("connection refused")
		}},
		Checker{Name: "vocabulary", Check: func(_ context.Context) error { return nil }},
	)

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest("GET", "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	body := decodeReport(t, rec)
	if body.Status != "fail" {
		t.Errorf("status = %q, want %q", body.Status, "fail")
	}
	if body.Checks["database"] != "fail: connection refused" {
		t.Errorf("database check = %q", body.Checks["database"])
	}
	// One bad probe must not mask the healthy ones.
	if body.Checks["vocabulary"] != "ok" {
		t.Errorf("vocabulary check = %q, want %q", body.Checks["vocabulary"], "ok")
	}
}

func TestReadyzNoProbesConfigured(t *testing.T) {
	t.Parallel()
	h := New()

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest("GET", "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if body := decodeReport(t, rec); body.Status != "ok" {
		t.Errorf("status = %q, want %q", body.Status, "ok")
	}
}

func TestRegisterMountsRoutes(t *testing.T) {
	t.Parallel()
	h := New(
		Checker{Name: "whisper_model", Check: func(_ context.Context) error { return nil }},
	)

	mux := http.NewServeMux()
	h.Register(mux)

	for _, path := range []string{"/healthz", "/readyz"} {
		t.Run(path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
			if rec.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
			}
		})
	}
}

func TestReadyzRespectsContextCancellation(t *testing.T) {
	t.Parallel()
	h := New(
		Checker{Name: "slow", Check: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}},
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest("GET", "/readyz", nil).WithContext(ctx))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}
