// Package whisper implements stt.Transcriber backed by the whisper.cpp CGO
// bindings. The whisper.cpp static library (libwhisper.a) and headers
// (whisper.h) must be available at link time via LIBRARY_PATH and
// C_INCLUDE_PATH environment variables.
//
// The model is loaded once at construction and shared across all concurrent
// transcriptions; each Transcribe call creates its own whisper context, so
// multiple jobs can run inference in parallel without interference.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/lexivox/lexivox/pkg/provider/stt"
)

const (
	defaultSampleRate = 16000
	defaultThreads    = 4
)

// Compile-time assertion that Transcriber satisfies stt.Transcriber.
var _ stt.Transcriber = (*Transcriber)(nil)

// Transcriber implements stt.Transcriber using whisper.cpp Go bindings (CGO).
type Transcriber struct {
	model      whisperlib.Model
	sampleRate int
	threads    int
}

// Option is a functional option for configuring a [Transcriber].
type Option func(*Transcriber)

// WithSampleRate sets the sample rate (Hz) expected by the model. Input audio
// at a different rate is resampled before inference. Defaults to 16000, the
// rate whisper models are trained on.
func WithSampleRate(rate int) Option {
	return func(t *Transcriber) {
		if rate > 0 {
			t.sampleRate = rate
		}
	}
}

// WithThreads sets the number of CPU threads used per inference. Defaults to 4.
func WithThreads(n int) Option {
	return func(t *Transcriber) {
		if n > 0 {
			t.threads = n
		}
	}
}

// New creates a Transcriber that loads the whisper.cpp model from the given
// file path. The caller must call Close when the transcriber is no longer
// needed.
func New(modelPath string, opts ...Option) (*Transcriber, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	t := &Transcriber{
		model:      model,
		sampleRate: defaultSampleRate,
		threads:    defaultThreads,
	}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

// Close releases the whisper model. Must be called when the transcriber is no
// longer needed.
func (t *Transcriber) Close() error {
	if t.model != nil {
		return t.model.Close()
	}
	return nil
}

// Transcribe implements stt.Transcriber. audioPath must point to a 16-bit
// PCM WAV file; multi-channel input is down-mixed to mono and non-16kHz
// input is resampled before inference.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath string, languageHint string) (*stt.Transcript, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("whisper: context already cancelled: %w", err)
	}

	raw, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: read audio %q: %w", audioPath, err)
	}

	pcm, format, err := decodeWAV(raw)
	if err != nil {
		return nil, fmt.Errorf("whisper: decode %q: %w", audioPath, err)
	}

	samples := pcmToFloat32Mono(pcm, format.channels)
	if format.sampleRate != t.sampleRate {
		samples = resampleLinear(samples, format.sampleRate, t.sampleRate)
	}

	// Each whisper context is single-use and not thread-safe; the model
	// itself is shareable.
	wctx, err := t.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("whisper: create context: %w", err)
	}
	wctx.SetThreads(uint(t.threads))
	wctx.SetTokenTimestamps(true)

	lang := languageHint
	if lang == "" {
		lang = stt.LanguageAuto
	}
	if err := wctx.SetLanguage(lang); err != nil {
		return nil, fmt.Errorf("whisper: set language %q: %w", lang, err)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return nil, fmt.Errorf("whisper: process audio: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("whisper: cancelled during inference: %w", err)
	}

	result := &stt.Transcript{
		Language: lang,
		Duration: time.Duration(len(samples)) * time.Second / time.Duration(t.sampleRate),
	}
	if lang == stt.LanguageAuto {
		result.Language = wctx.DetectedLanguage()
	}

	var (
		parts    []string
		probSum  float64
		probN    int
	)
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("whisper: read segment: %w", err)
		}

		text := strings.TrimSpace(segment.Text)
		if text == "" {
			continue
		}
		parts = append(parts, text)

		for _, tok := range segment.Tokens {
			word := strings.TrimSpace(tok.Text)
			if word == "" || strings.HasPrefix(word, "[_") {
				continue
			}
			result.Words = append(result.Words, stt.WordDetail{
				Word:       word,
				Start:      tok.Start,
				End:        tok.End,
				Confidence: float64(tok.P),
			})
			probSum += float64(tok.P)
			probN++
		}
	}

	result.Text = strings.Join(parts, " ")
	if probN > 0 {
		result.Confidence = probSum / float64(probN)
	}
	return result, nil
}
