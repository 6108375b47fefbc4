// Package health serves the liveness and readiness probes for the
// transcription server.
//
//   - /healthz — liveness; a process that can answer HTTP is alive.
//   - /readyz  — readiness; passes only when every registered [Checker]
//     (whisper model file, vocabulary table, job store) reports healthy.
//
// Both endpoints answer with a JSON object carrying a top-level "status"
// ("ok" or "fail") and, for readiness, a "checks" map with one entry per
// named probe.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// checkTimeout bounds a single readiness probe. A hung database ping must
// not hold the whole /readyz response hostage.
const checkTimeout = 5 * time.Second

// Checker is a named readiness probe. Check returns nil when the dependency
// is usable and an error describing the problem otherwise; it must respect
// context cancellation.
type Checker struct {
	// Name keys this probe in the /readyz JSON response, e.g.
	// "whisper_model" or "vocabulary".
	Name string

	Check func(ctx context.Context) error
}

// probeReport is the response body for both endpoints.
type probeReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler answers /healthz and /readyz. The checker list is fixed at
// construction, so the handler is safe for concurrent use.
type Handler struct {
	checkers []Checker
}

// New creates a [Handler] over the given probes. On each /readyz request the
// probes run sequentially in the order given here.
func New(checkers ...Checker) *Handler {
	c := make([]Checker, len(checkers))
	copy(c, checkers)
	return &Handler{checkers: c}
}

// Healthz always answers 200 OK.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, probeReport{Status: "ok"})
}

// Readyz answers 200 only when every probe passes, 503 otherwise. Each probe
// gets its own [checkTimeout] deadline derived from the request context.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	report := probeReport{Status: "ok", Checks: make(map[string]string, len(h.checkers))}
	status := http.StatusOK

	for _, c := range h.checkers {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := c.Check(ctx)
		cancel()

		if err != nil {
			report.Checks[c.Name] = "fail: " + err.Error()
			report.Status = "fail"
			status = http.StatusServiceUnavailable
			continue
		}
		report.Checks[c.Name] = "ok"
	}

	writeJSON(w, status, report)
}

// Register mounts both probe routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
