// Package mock provides a test double for the stt.Transcriber interface.
//
// Use Transcriber in unit tests to feed controlled transcription results
// without a loaded model. All fields are safe to set before calling any
// method; mutating them during a concurrent call is the caller's
// responsibility.
package mock

import (
	"context"
	"sync"

	"github.com/lexivox/lexivox/pkg/provider/stt"
)

// Call records a single invocation of Transcribe.
type Call struct {
	// AudioPath is the path passed to Transcribe.
	AudioPath string
	// LanguageHint is the hint passed to Transcribe.
	LanguageHint string
}

// Transcriber is a mock implementation of stt.Transcriber.
type Transcriber struct {
	mu sync.Mutex

	// Result is returned by Transcribe. May be nil together with a nil Err,
	// in which case an empty transcript is returned.
	Result *stt.Transcript

	// Err, if non-nil, is returned as the error from Transcribe.
	Err error

	// TranscribeFn, if set, overrides Result/Err entirely.
	TranscribeFn func(ctx context.Context, audioPath, languageHint string) (*stt.Transcript, error)

	calls []Call
}

var _ stt.Transcriber = (*Transcriber)(nil)

// Transcribe implements stt.Transcriber.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath string, languageHint string) (*stt.Transcript, error) {
	t.mu.Lock()
	t.calls = append(t.calls, Call{AudioPath: audioPath, LanguageHint: languageHint})
	fn := t.TranscribeFn
	res, err := t.Result, t.Err
	t.mu.Unlock()

	if fn != nil {
		return fn(ctx, audioPath, languageHint)
	}
	if err != nil {
		return nil, err
	}
	if res == nil {
		return &stt.Transcript{Language: languageHint}, nil
	}
	cp := *res
	return &cp, nil
}

// Calls returns a copy of all recorded invocations.
func (t *Transcriber) Calls() []Call {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Call, len(t.calls))
	copy(out, t.calls)
	return out
}
