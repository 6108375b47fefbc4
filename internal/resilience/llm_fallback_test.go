package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/lexivox/lexivox/pkg/provider/llm"
	llmmock "github.com/lexivox/lexivox/pkg/provider/llm/mock"
)

func TestLLMFallback_Complete_PrimarySuccess(t *testing.T) {
	primary := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "hello from primary"},
	}
	secondary := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "hello from secondary"},
	}

	fb := NewLLMFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	resp, err := fb.Complete(context.Background(), llm.CompletionRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "hello from primary" {
		t.Fatalf("content = %q, want 'hello from primary'", resp.Content)
	}
	if got := len(primary.Calls()); got != 1 {
		t.Fatalf("primary called %d times, want 1", got)
	}
	if got := len(secondary.Calls()); got != 0 {
		t.Fatalf("secondary called %d times, want 0", got)
	}
}

func TestLLMFallback_Complete_Failover(t *testing.T) {
	primary := &llmmock.Provider{
		CompleteErr: errors.New("primary down"),
	}
	secondary := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "hello from secondary"},
	}

	fb := NewLLMFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	resp, err := fb.Complete(context.Background(), llm.CompletionRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "hello from secondary" {
		t.Fatalf("content = %q, want 'hello from secondary'", resp.Content)
	}
}

func TestLLMFallback_Complete_AllFail(t *testing.T) {
	primary := &llmmock.Provider{CompleteErr: errors.New("primary down")}
	secondary := &llmmock.Provider{CompleteErr: errors.New("secondary down")}

	fb := NewLLMFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	_, err := fb.Complete(context.Background(), llm.CompletionRequest{})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestLLMFallback_CircuitOpenSkipsPrimary(t *testing.T) {
	primary := &llmmock.Provider{CompleteErr: errors.New("primary down")}
	secondary := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "secondary"},
	}

	fb := NewLLMFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 1},
	})
	fb.AddFallback("secondary", secondary)

	// First call trips the primary's breaker.
	if _, err := fb.Complete(context.Background(), llm.CompletionRequest{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Second call must skip the open primary entirely.
	if _, err := fb.Complete(context.Background(), llm.CompletionRequest{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(primary.Calls()); got != 1 {
		t.Fatalf("primary called %d times, want 1 (breaker open)", got)
	}
	if got := len(secondary.Calls()); got != 2 {
		t.Fatalf("secondary called %d times, want 2", got)
	}
}
