package translate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lexivox/lexivox/pkg/provider/llm"
	"github.com/lexivox/lexivox/pkg/provider/llm/mock"
)

func TestTranslate(t *testing.T) {
	t.Parallel()
	p := &mock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "Hello, world."}}
	tr := New(p)

	got, err := tr.Translate(context.Background(), "Hola, mundo.", "en")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got != "Hello, world." {
		t.Errorf("Translate = %q", got)
	}

	req := p.Calls()[0].Req
	if !strings.Contains(req.SystemPrompt, "translations to English") {
		t.Errorf("system prompt = %q, want English target spelled out", req.SystemPrompt)
	}
	if !strings.Contains(req.Messages[0].Content, "Hola, mundo.") {
		t.Error("user message missing the source text")
	}
}

func TestTranslateUnknownCodePassedVerbatim(t *testing.T) {
	t.Parallel()
	p := &mock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "ok"}}
	tr := New(p)

	if _, err := tr.Translate(context.Background(), "text", "xx"); err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if !strings.Contains(p.Calls()[0].Req.SystemPrompt, "translations to xx") {
		t.Error("unknown code not passed through to the prompt")
	}
}

func TestTranslateProviderError(t *testing.T) {
	t.Parallel()
	wantErr := errors.New("backend down")
	tr := New(&mock.Provider{CompleteErr: wantErr})

	if _, err := tr.Translate(context.Background(), "text", "en"); !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want wrapped provider error", err)
	}
}

func TestTranslateEmptyInputPassesThrough(t *testing.T) {
	t.Parallel()
	p := &mock.Provider{}
	tr := New(p)

	got, err := tr.Translate(context.Background(), "  ", "en")
	if err != nil || got != "  " {
		t.Errorf("Translate(blank) = %q, %v", got, err)
	}
	if len(p.Calls()) != 0 {
		t.Error("blank input must not hit the provider")
	}
}
