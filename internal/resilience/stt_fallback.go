package resilience

import (
	"context"

	"github.com/lexivox/lexivox/pkg/provider/stt"
)

// STTFallback implements [stt.Transcriber] with automatic failover across
// multiple transcription backends, for deployments that pair the local
// whisper model with a second model file or a remote service. Each backend
// has its own circuit breaker.
type STTFallback struct {
	group *FallbackGroup[stt.Transcriber]
}

// Compile-time interface assertion.
var _ stt.Transcriber = (*STTFallback)(nil)

// NewSTTFallback creates an [STTFallback] with primary as the preferred backend.
func NewSTTFallback(primary stt.Transcriber, primaryName string, cfg FallbackConfig) *STTFallback {
	return &STTFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional transcriber as a fallback.
func (f *STTFallback) AddFallback(name string, t stt.Transcriber) {
	f.group.AddFallback(name, t)
}

// Transcribe runs the audio through the first healthy backend. If the primary
// fails, subsequent fallbacks are tried with the same input.
func (f *STTFallback) Transcribe(ctx context.Context, audioPath string, languageHint string) (*stt.Transcript, error) {
	return ExecuteWithResult(f.group, func(t stt.Transcriber) (*stt.Transcript, error) {
		return t.Transcribe(ctx, audioPath, languageHint)
	})
}
