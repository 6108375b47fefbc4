// Package httpapi exposes the transcription job service over HTTP.
//
// The surface is deliberately thin: handlers translate between HTTP and the
// job manager's structured inputs and outputs, and nothing else. Three
// routes make up the API:
//
//   - POST /transcribe    — multipart audio upload, returns the job ID
//   - GET /jobs/{id}      — status snapshot of one job
//   - DELETE /jobs/{id}   — request cancellation
//
// Callers are identified by the X-Caller-ID header, which is assumed to be
// set by an authenticating proxy in front of this service.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/lexivox/lexivox/internal/correct"
	"github.com/lexivox/lexivox/internal/job"
	"github.com/lexivox/lexivox/pkg/provider/audio"
)

// JobService is the slice of the job manager the API needs. Implemented by
// [job.Manager].
type JobService interface {
	Submit(ctx context.Context, callerID, input string, opts job.PipelineOptions) (string, error)
	GetStatus(ctx context.Context, id string) (*job.Job, error)
	List(ctx context.Context) ([]*job.Job, error)
	Cancel(ctx context.Context, id string) (bool, error)
}

var _ JobService = (*job.Manager)(nil)

// API holds the HTTP handlers for the transcription service.
type API struct {
	jobs      JobService
	log       *slog.Logger
	uploadDir string
	maxBytes  int64
}

// Option configures an [API].
type Option func(*API)

// WithLogger sets the structured logger. Defaults to [slog.Default].
func WithLogger(log *slog.Logger) Option {
	return func(a *API) { a.log = log }
}

// WithUploadDir sets the directory uploaded audio is spooled to.
// Defaults to the system temp directory.
func WithUploadDir(dir string) Option {
	return func(a *API) { a.uploadDir = dir }
}

// WithMaxUploadBytes caps the accepted request body size. Zero disables
// the cap.
func WithMaxUploadBytes(n int64) Option {
	return func(a *API) { a.maxBytes = n }
}

// New creates the API over the given job service.
func New(jobs JobService, opts ...Option) *API {
	a := &API{
		jobs:      jobs,
		log:       slog.Default(),
		uploadDir: os.TempDir(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Register adds the transcription routes to mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /transcribe", a.handleSubmit)
	mux.HandleFunc("GET /jobs", a.handleList)
	mux.HandleFunc("GET /jobs/{id}", a.handleStatus)
	mux.HandleFunc("DELETE /jobs/{id}", a.handleCancel)
}

// submitResponse is the body returned by POST /transcribe.
type submitResponse struct {
	JobID string `json:"job_id"`
	State string `json:"state"`
}

// errorBody is the JSON error envelope shared by all handlers.
type errorBody struct {
	Error struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

func (a *API) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if a.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, a.maxBytes)
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		a.writeError(w, fmt.Errorf("%w: parse multipart form: %v", job.ErrValidation, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("audio")
	if err != nil {
		a.writeError(w, fmt.Errorf("%w: missing audio file field", job.ErrValidation))
		return
	}
	defer file.Close()

	opts, err := optionsFromForm(r)
	if err != nil {
		a.writeError(w, err)
		return
	}

	path, err := a.spool(file, header.Filename)
	if err != nil {
		a.log.Error("spooling upload failed", "error", err)
		a.writeError(w, err)
		return
	}

	id, err := a.jobs.Submit(r.Context(), r.Header.Get("X-Caller-ID"), path, opts)
	if err != nil {
		os.Remove(path)
		a.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, submitResponse{JobID: id, State: string(job.StateQueued)})
}

func (a *API) handleStatus(w http.ResponseWriter, r *http.Request) {
	j, err := a.jobs.GetStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, j)
}

func (a *API) handleList(w http.ResponseWriter, r *http.Request) {
	jobs, err := a.jobs.List(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (a *API) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	requested, err := a.jobs.Cancel(r.Context(), id)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"job_id":    id,
		"cancelled": requested,
	})
}

// spool copies the uploaded audio to a uniquely named file under uploadDir,
// preserving the original extension for format sniffing downstream.
func (a *API) spool(src io.Reader, original string) (string, error) {
	name := uuid.NewString() + strings.ToLower(filepath.Ext(original))
	path := filepath.Join(a.uploadDir, name)

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("httpapi: create spool file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("httpapi: write spool file: %w", err)
	}
	return path, nil
}

// optionsFromForm builds pipeline options from the multipart form fields.
// Unknown domain names fall back to general inside the manager; malformed
// booleans are validation errors.
func optionsFromForm(r *http.Request) (job.PipelineOptions, error) {
	opts := job.PipelineOptions{
		LanguageHint:     r.FormValue("language_hint"),
		CorrectionDomain: correct.Domain(r.FormValue("correction_domain")),
		EnhancementLevel: audio.Level(r.FormValue("enhancement_level")),
		TargetLanguage:   r.FormValue("target_language"),
	}

	for _, f := range []struct {
		name string
		dst  *bool
	}{
		{"apply_rule_correction", &opts.ApplyRuleCorrection},
		{"apply_semantic_correction", &opts.ApplySemanticCorrection},
		{"auto_translate", &opts.AutoTranslate},
	} {
		raw := r.FormValue(f.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return opts, fmt.Errorf("%w: field %q: %v", job.ErrValidation, f.name, err)
		}
		*f.dst = v
	}

	return opts, nil
}

// writeError maps job-layer sentinel errors onto HTTP status codes and
// writes the JSON error envelope.
func (a *API) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	kind := job.KindOf(err)

	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		status = http.StatusRequestEntityTooLarge
		kind = job.KindValidation
	case errors.Is(err, job.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, job.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, job.ErrCapacityExceeded):
		status = http.StatusTooManyRequests
	}

	if status == http.StatusInternalServerError {
		a.log.Error("request failed", "error", err)
	}

	var body errorBody
	body.Error.Kind = string(kind)
	body.Error.Message = err.Error()
	writeJSON(w, status, body)
}

// writeJSON encodes v as JSON and writes it with the given status code. On
// encoding failure it falls back to a plain-text 500 response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":{"kind":"internal"}}`, http.StatusInternalServerError)
	}
}
