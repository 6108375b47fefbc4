// Package mock provides a test double for the llm.Provider interface.
//
// Use Provider in unit tests to verify that correction stages send the
// expected CompletionRequests and to feed controlled responses without a
// live LLM backend.
//
// Example:
//
//	p := &mock.Provider{
//	    CompleteResponse: &llm.CompletionResponse{Content: "Hello!"},
//	}
//	resp, err := p.Complete(ctx, req)
package mock

import (
	"context"
	"sync"

	"github.com/lexivox/lexivox/pkg/provider/llm"
)

// CompleteCall records a single invocation of Complete.
type CompleteCall struct {
	// Ctx is the context passed to Complete.
	Ctx context.Context
	// Req is the CompletionRequest passed to Complete.
	Req llm.CompletionRequest
}

// Provider is a mock implementation of llm.Provider.
// Zero values for response fields cause Complete to return an empty
// response. Set CompleteErr to inject errors.
type Provider struct {
	mu sync.Mutex

	// CompleteResponse is returned by Complete. May be nil (an empty
	// response is returned instead).
	CompleteResponse *llm.CompletionResponse

	// CompleteErr, if non-nil, is returned as the error from Complete.
	CompleteErr error

	// CompleteFn, if set, overrides CompleteResponse/CompleteErr entirely.
	CompleteFn func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)

	calls []CompleteCall
}

var _ llm.Provider = (*Provider)(nil)

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	p.calls = append(p.calls, CompleteCall{Ctx: ctx, Req: req})
	fn := p.CompleteFn
	resp, err := p.CompleteResponse, p.CompleteErr
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return &llm.CompletionResponse{}, nil
	}
	cp := *resp
	return &cp, nil
}

// Calls returns a copy of all recorded Complete invocations.
func (p *Provider) Calls() []CompleteCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]CompleteCall, len(p.calls))
	copy(out, p.calls)
	return out
}
