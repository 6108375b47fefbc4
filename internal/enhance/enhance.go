// Package enhance implements the LLM-backed semantic correction stage:
// grammar, phrasing, and terminology polish layered on top of the
// deterministic rule correction, scoped to the job's correction domain.
package enhance

import (
	"context"
	"fmt"
	"strings"

	"github.com/lexivox/lexivox/internal/correct"
	"github.com/lexivox/lexivox/internal/observe"
	"github.com/lexivox/lexivox/pkg/provider/llm"
)

// temperature keeps model output near-deterministic; semantic correction
// wants consistency, not creativity.
const temperature = 0.1

const basePrompt = "You are an expert transcription editor. Your job is to clean up and " +
	"improve speech-to-text transcriptions while maintaining the original meaning " +
	"and speaker's intent."

// systemPrompts extends the base editor instruction with a per-domain focus.
var systemPrompts = map[correct.Domain]string{
	correct.DomainGeneral: basePrompt + `

Focus on:
- Clear, professional language
- Proper grammar and punctuation
- Correct spelling and capitalization
- Natural sentence flow
- Maintaining the speaker's original meaning
- Professional tone appropriate for business use`,

	correct.DomainMedical: basePrompt + `

Focus on:
- Medical terminology accuracy
- Proper formatting for medical records
- Patient confidentiality considerations
- Professional medical language
- Correct spelling of medical terms, medications, procedures
- Proper capitalization of drug names, conditions, anatomical terms`,

	correct.DomainBusiness: basePrompt + `

Focus on:
- Professional business language
- Proper formatting for business communications
- Correct terminology for meetings, projects, deadlines
- Professional tone and clarity
- Proper names, company names, product names
- Business acronyms and abbreviations`,

	correct.DomainLegal: basePrompt + `

Focus on:
- Legal terminology accuracy
- Formal legal language
- Proper case citations and legal references
- Professional legal formatting
- Accurate representation of legal concepts`,
}

// Enhancer is the semantic correction collaborator. It satisfies the
// pipeline's SemanticEnhancer contract.
type Enhancer struct {
	provider  llm.Provider
	maxTokens int
	meter     *observe.Metrics
}

// Option configures an [Enhancer].
type Option func(*Enhancer)

// WithMaxTokens caps the completion length. Zero uses the provider default.
func WithMaxTokens(n int) Option {
	return func(e *Enhancer) { e.maxTokens = n }
}

// WithMetrics enables provider request metrics.
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Enhancer) { e.meter = m }
}

// New creates an Enhancer over the given LLM provider.
func New(provider llm.Provider, opts ...Option) *Enhancer {
	e := &Enhancer{
		provider: provider,
		meter:    observe.DefaultMetrics(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enhance polishes text using the domain-scoped editor prompt. The model is
// asked for the improved transcription only; an empty reply is an error so
// the stage degrades rather than wiping the transcript.
func (e *Enhancer) Enhance(ctx context.Context, text string, domain correct.Domain) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}

	system, ok := systemPrompts[domain]
	if !ok {
		system = systemPrompts[correct.DomainGeneral]
	}

	resp, err := e.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: system,
		Messages: []llm.Message{
			{Role: "user", Content: userPrompt(text, domain)},
		},
		Temperature: temperature,
		MaxTokens:   e.maxTokens,
	})
	if err != nil {
		e.meter.RecordProviderError(ctx, "semantic_enhancer")
		return "", fmt.Errorf("enhance: complete: %w", err)
	}
	e.meter.RecordProviderRequest(ctx, "semantic_enhancer", "ok")

	improved := strings.TrimSpace(resp.Content)
	if improved == "" {
		return "", fmt.Errorf("enhance: model returned empty text")
	}
	return strings.Trim(improved, `"`), nil
}

func userPrompt(text string, domain correct.Domain) string {
	return fmt.Sprintf(`Please improve this transcription by fixing grammar, punctuation, spelling, and formatting while preserving the original meaning:

Original transcription:
%q

Requirements:
1. Fix obvious transcription errors
2. Add proper punctuation and capitalization
3. Correct spelling mistakes
4. Improve sentence structure for clarity
5. Maintain all original information
6. Use professional language appropriate for %s context
7. If names are mentioned, capitalize them properly
8. Fix any obvious mishearings

Return only the improved transcription text.`, text, domain)
}
