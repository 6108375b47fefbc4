// Package stt defines the Transcriber interface for speech-to-text backends.
//
// A transcriber wraps a batch transcription engine (e.g., a local whisper.cpp
// model or a remote recognition API) and exposes a uniform file-in,
// transcript-out interface. The pipeline treats the transcriber as its only
// required external collaborator: when transcription fails, the whole job
// fails.
//
// Implementations must be safe for concurrent use. Multiple jobs may call
// Transcribe simultaneously, bounded only by the job manager's worker pool.
package stt

import "context"

// LanguageAuto requests automatic language detection from the backend.
const LanguageAuto = "auto"

// Transcriber is the abstraction over any batch speech-to-text backend.
//
// Implementations must be safe for concurrent use.
type Transcriber interface {
	// Transcribe converts the audio file at audioPath to text.
	//
	// languageHint is an ISO 639-1 code (e.g., "en", "es") or [LanguageAuto]
	// to let the backend detect the language. Backends that cannot detect
	// the language should report the hint back unchanged.
	//
	// Returns a non-nil *Transcript on success; Transcript.Language always
	// carries the language the backend actually used. Context cancellation
	// and deadline expiry must be honoured promptly.
	Transcribe(ctx context.Context, audioPath string, languageHint string) (*Transcript, error)
}
