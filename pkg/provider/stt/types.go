package stt

import "time"

// Transcript represents the result of one batch transcription call.
type Transcript struct {
	// Text is the transcribed speech content, exactly as produced by the
	// backend. Correction stages operate on a copy; Text is never mutated.
	Text string

	// Language is the ISO 639-1 code of the language the backend used —
	// either the caller's hint or the detected language when the hint was
	// [LanguageAuto].
	Language string

	// Confidence is the overall confidence score (0.0–1.0). Zero when the
	// backend does not report confidence.
	Confidence float64

	// Words contains per-word detail when the backend supports it.
	// May be nil.
	Words []WordDetail

	// Duration is the length of the transcribed audio.
	Duration time.Duration
}

// WordDetail holds per-word metadata from backends that support it.
type WordDetail struct {
	Word       string
	Start      time.Duration
	End        time.Duration
	Confidence float64
}
