// Package translate implements the LLM-backed translation stage.
package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/lexivox/lexivox/internal/observe"
	"github.com/lexivox/lexivox/pkg/provider/llm"
)

const temperature = 0.1

// languageNames maps ISO 639-1 codes to the names used in prompts. Unknown
// codes are passed through verbatim.
var languageNames = map[string]string{
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"it": "Italian",
	"pt": "Portuguese",
	"nl": "Dutch",
	"ja": "Japanese",
	"zh": "Chinese",
}

// Translator translates corrected transcripts into a target language. It
// satisfies the pipeline's Translator contract.
type Translator struct {
	provider  llm.Provider
	maxTokens int
	meter     *observe.Metrics
}

// Option configures a [Translator].
type Option func(*Translator)

// WithMaxTokens caps the completion length. Zero uses the provider default.
func WithMaxTokens(n int) Option {
	return func(t *Translator) { t.maxTokens = n }
}

// WithMetrics enables provider request metrics.
func WithMetrics(m *observe.Metrics) Option {
	return func(t *Translator) { t.meter = m }
}

// New creates a Translator over the given LLM provider.
func New(provider llm.Provider, opts ...Option) *Translator {
	t := &Translator{
		provider: provider,
		meter:    observe.DefaultMetrics(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Translate renders text in the target language with a professional tone.
// Empty input passes through unchanged.
func (t *Translator) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	target := languageName(targetLanguage)

	resp, err := t.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: fmt.Sprintf(
			"You are an expert translator specializing in professional and business translations to %s.",
			target,
		),
		Messages: []llm.Message{{
			Role: "user",
			Content: fmt.Sprintf(
				"Translate this transcription to %s, maintaining professional tone:\n\n%s",
				target, text,
			),
		}},
		Temperature: temperature,
		MaxTokens:   t.maxTokens,
	})
	if err != nil {
		t.meter.RecordProviderError(ctx, "translator")
		return "", fmt.Errorf("translate: complete: %w", err)
	}
	t.meter.RecordProviderRequest(ctx, "translator", "ok")

	translated := strings.TrimSpace(resp.Content)
	if translated == "" {
		return "", fmt.Errorf("translate: model returned empty text")
	}
	return translated, nil
}

func languageName(code string) string {
	if name, ok := languageNames[strings.ToLower(code)]; ok {
		return name
	}
	return code
}
