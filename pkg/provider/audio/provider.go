// Package audio defines the Enhancer interface for audio conditioning
// backends.
//
// An enhancer takes a stored audio file and produces a cleaned-up version
// better suited for speech recognition: volume normalisation, noise
// reduction, and band filtering, with intensity selected by [Level]. The
// pipeline treats enhancement as required only when the caller asked for it;
// [LevelNone] is a pass-through that must return the input unchanged.
//
// Implementations must be safe for concurrent use.
package audio

import "context"

// Level selects the intensity of the enhancement chain.
type Level string

const (
	// LevelNone disables enhancement entirely; Enhance returns the input
	// path unchanged.
	LevelNone Level = "none"

	// LevelLight applies volume normalisation and a high-pass rumble filter.
	LevelLight Level = "light"

	// LevelMedium additionally applies band filtering, noise gating, and
	// dynamic range compression. The default for most callers.
	LevelMedium Level = "medium"

	// LevelAggressive applies the full chain with stronger noise reduction.
	// Best for low-quality phone or meeting recordings.
	LevelAggressive Level = "aggressive"
)

// IsValid reports whether l is a recognised enhancement level.
func (l Level) IsValid() bool {
	switch l {
	case LevelNone, LevelLight, LevelMedium, LevelAggressive:
		return true
	}
	return false
}

// Enhancer is the abstraction over any audio conditioning backend.
//
// Implementations must be safe for concurrent use.
type Enhancer interface {
	// Enhance conditions the audio file at inputPath and returns the path of
	// the enhanced file. When level is [LevelNone] the input path is
	// returned unchanged and no work is performed.
	//
	// The returned file is owned by the caller, which is responsible for
	// removing it when the job finishes.
	Enhance(ctx context.Context, inputPath string, level Level) (string, error)
}
