// Package job owns the transcription job lifecycle: submission, queueing,
// worker dispatch, status snapshots, and cooperative cancellation.
//
// A job moves through the state machine
//
//	queued -> processing -> {completed, failed}
//
// with an optional queued|processing -> cancelled edge. Transitions are
// monotonic and every state write goes through the job's owning worker (or
// the manager's cancel path for still-queued jobs), so status reads are
// plain snapshot reads that never block execution.
package job

import (
	"time"

	"github.com/lexivox/lexivox/internal/correct"
	"github.com/lexivox/lexivox/pkg/provider/audio"
)

// State is the lifecycle state of a [Job].
type State string

const (
	StateQueued     State = "queued"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
	StateCancelled  State = "cancelled"
)

// Terminal reports whether s has no outgoing transitions.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	}
	return false
}

// rank orders states for the monotonicity invariant. Terminal states share
// one rank because no job visits two of them.
func (s State) rank() int {
	switch s {
	case StateQueued:
		return 0
	case StateProcessing:
		return 1
	default:
		return 2
	}
}

// After reports whether s is at or past prev in the state order. A poller
// may observe any monotonically increasing prefix of the sequence, never a
// regression.
func (s State) After(prev State) bool {
	return s.rank() >= prev.rank()
}

// PipelineOptions is the immutable per-job configuration captured at
// submission time. It is never mutated during job execution.
type PipelineOptions struct {
	// LanguageHint is an ISO 639-1 code, or "auto" to use the language
	// detected during transcription.
	LanguageHint string `json:"language_hint"`

	// ApplyRuleCorrection enables the deterministic correction pass.
	ApplyRuleCorrection bool `json:"apply_rule_correction"`

	// ApplySemanticCorrection enables the LLM-backed semantic pass.
	ApplySemanticCorrection bool `json:"apply_semantic_correction"`

	// CorrectionDomain selects the vocabulary and semantic register.
	CorrectionDomain correct.Domain `json:"correction_domain"`

	// EnhancementLevel selects the audio conditioning chain. LevelNone
	// skips enhancement entirely.
	EnhancementLevel audio.Level `json:"enhancement_level"`

	// AutoTranslate enables translation of the corrected transcript into
	// TargetLanguage when the detected language differs.
	AutoTranslate bool `json:"auto_translate"`

	// TargetLanguage is the translation target. Empty defaults to "en".
	TargetLanguage string `json:"target_language,omitempty"`
}

// Degradation records one best-effort stage that failed and was skipped.
type Degradation struct {
	// Stage is the pipeline stage name.
	Stage string `json:"stage"`

	// Reason is the human-readable cause.
	Reason string `json:"reason"`
}

// Result is the payload of a completed job. A failed job carries its
// partial results inside [ErrorInfo.Partial] instead.
type Result struct {
	// Raw is the transcript exactly as produced by the transcriber.
	Raw string `json:"raw"`

	// DetectedLanguage is the ISO 639-1 code reported or hinted.
	DetectedLanguage string `json:"detected_language"`

	// Corrected is the transcript after all applied stages. Equal to Raw
	// when no correction stage ran.
	Corrected string `json:"corrected"`

	// Operations lists every correction substitution applied, in order.
	// Informational only.
	Operations []correct.Operation `json:"operations,omitempty"`

	// EnhancementsApplied names the stages that actually ran, which may be
	// fewer than requested when a best-effort stage failed.
	EnhancementsApplied []string `json:"enhancements_applied,omitempty"`

	// Degraded lists best-effort stages that failed. A populated list on a
	// completed job marks a degraded result.
	Degraded []Degradation `json:"degraded,omitempty"`
}

// ErrorInfo is the structured error of a failed or cancelled job.
type ErrorInfo struct {
	// Kind is the machine-readable error classification.
	Kind ErrorKind `json:"kind"`

	// Message is the human-readable cause.
	Message string `json:"message"`

	// Partial holds results from stages that completed before the failure,
	// so a usable raw transcript survives a late-stage error.
	Partial *Result `json:"partial,omitempty"`
}

// Job is one submitted transcription request and its lifecycle record.
// Exactly one Job exists per ID. Once terminal it carries either a Result
// or an ErrorInfo, never both.
type Job struct {
	ID        string    `json:"id"`
	CallerID  string    `json:"caller_id"`
	State     State     `json:"state"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Input is the reference to the stored audio, never raw bytes.
	Input string `json:"input"`

	Options PipelineOptions `json:"options"`

	// Stage names the pipeline stage currently executing. Empty outside
	// the processing state.
	Stage string `json:"stage,omitempty"`

	Result *Result    `json:"result,omitempty"`
	Error  *ErrorInfo `json:"error,omitempty"`
}

// Clone returns a deep copy so snapshot readers never alias worker-owned
// memory.
func (j *Job) Clone() *Job {
	cp := *j
	if j.Result != nil {
		cp.Result = j.Result.clone()
	}
	if j.Error != nil {
		e := *j.Error
		if j.Error.Partial != nil {
			e.Partial = j.Error.Partial.clone()
		}
		cp.Error = &e
	}
	return &cp
}

func (r *Result) clone() *Result {
	cp := *r
	if r.Operations != nil {
		cp.Operations = append([]correct.Operation(nil), r.Operations...)
	}
	if r.EnhancementsApplied != nil {
		cp.EnhancementsApplied = append([]string(nil), r.EnhancementsApplied...)
	}
	if r.Degraded != nil {
		cp.Degraded = append([]Degradation(nil), r.Degraded...)
	}
	return &cp
}
