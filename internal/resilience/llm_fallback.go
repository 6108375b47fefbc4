package resilience

import (
	"context"

	"github.com/lexivox/lexivox/pkg/provider/llm"
)

// LLMFallback implements [llm.Provider] with automatic failover across multiple
// LLM backends. Each backend has its own circuit breaker; when the primary fails
// or its breaker is open, the next healthy fallback is tried. The semantic
// correction and translation stages sit behind one of these so a single flaky
// backend degrades as few jobs as possible.
type LLMFallback struct {
	group *FallbackGroup[llm.Provider]
}

// Compile-time interface assertion.
var _ llm.Provider = (*LLMFallback)(nil)

// NewLLMFallback creates an [LLMFallback] with primary as the preferred backend.
func NewLLMFallback(primary llm.Provider, primaryName string, cfg FallbackConfig) *LLMFallback {
	return &LLMFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional LLM provider as a fallback.
func (f *LLMFallback) AddFallback(name string, provider llm.Provider) {
	f.group.AddFallback(name, provider)
}

// Complete sends the request to the first healthy provider and returns its
// response. If the primary fails, subsequent fallbacks are tried.
func (f *LLMFallback) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return ExecuteWithResult(f.group, func(p llm.Provider) (*llm.CompletionResponse, error) {
		return p.Complete(ctx, req)
	})
}
