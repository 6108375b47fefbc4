// Package llm defines the Provider interface for Large Language Model
// backends.
//
// An LLM provider wraps a remote or local model API (e.g., OpenAI, Anthropic,
// or a local Ollama instance) and exposes a uniform completion interface so
// the semantic enhancement and translation stages never couple to a specific
// SDK. Both stages are best-effort consumers: a provider error degrades the
// job result, it never fails the job.
//
// Implementations must be safe for concurrent use and must propagate context
// cancellation promptly.
package llm

import "context"

// Message is one turn of a model conversation.
type Message struct {
	// Role is "system", "user", or "assistant".
	Role string

	// Content is the text content of the message.
	Content string
}

// Usage holds token accounting information returned by the LLM backend.
// All counts are in the model's native token unit and may differ between
// providers for the same textual content.
type Usage struct {
	// PromptTokens is the number of tokens consumed by the input messages
	// and system prompt.
	PromptTokens int

	// CompletionTokens is the number of tokens generated in the response.
	CompletionTokens int

	// TotalTokens is PromptTokens + CompletionTokens. Some providers return
	// it directly rather than computing it from the parts.
	TotalTokens int
}

// CompletionRequest carries everything the LLM needs to produce a response.
// Callers should treat a zero-value request as invalid; at minimum Messages
// must be non-empty.
type CompletionRequest struct {
	// Messages is the ordered conversation. The last message is typically
	// from the "user" role and drives the response.
	Messages []Message

	// SystemPrompt is an optional high-priority instruction injected before
	// the conversation. If the provider does not natively support a
	// dedicated system prompt, implementors should prepend it as a
	// "system"-role message.
	SystemPrompt string

	// Temperature controls output randomness in the range [0.0, 2.0]. Text
	// correction callers use low values for consistent results.
	Temperature float64

	// MaxTokens caps the number of completion tokens the model may generate.
	// Zero means use the provider default.
	MaxTokens int
}

// CompletionResponse is returned by Complete.
type CompletionResponse struct {
	// Content is the full text of the assistant's reply.
	Content string

	// Usage contains token accounting for this request/response pair.
	Usage Usage
}

// Provider is the abstraction over any LLM backend.
//
// Implementations must be safe for concurrent use from multiple goroutines.
type Provider interface {
	// Complete sends req to the model and blocks until the full response is
	// available. Returns a non-nil *CompletionResponse on success.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}
