// Package mock provides a test double for the audio.Enhancer interface.
package mock

import (
	"context"
	"sync"

	"github.com/lexivox/lexivox/pkg/provider/audio"
)

// Call records a single invocation of Enhance.
type Call struct {
	InputPath string
	Level     audio.Level
}

// Enhancer is a mock implementation of audio.Enhancer. The zero value
// passes every input through unchanged.
type Enhancer struct {
	mu sync.Mutex

	// OutputPath is returned by Enhance for non-none levels. When empty the
	// input path is echoed back.
	OutputPath string

	// Err, if non-nil, is returned as the error from Enhance.
	Err error

	calls []Call
}

var _ audio.Enhancer = (*Enhancer)(nil)

// Enhance implements audio.Enhancer.
func (e *Enhancer) Enhance(_ context.Context, inputPath string, level audio.Level) (string, error) {
	e.mu.Lock()
	e.calls = append(e.calls, Call{InputPath: inputPath, Level: level})
	out, err := e.OutputPath, e.Err
	e.mu.Unlock()

	if level == audio.LevelNone {
		return inputPath, nil
	}
	if err != nil {
		return "", err
	}
	if out == "" {
		return inputPath, nil
	}
	return out, nil
}

// Calls returns a copy of all recorded invocations.
func (e *Enhancer) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Call, len(e.calls))
	copy(out, e.calls)
	return out
}
