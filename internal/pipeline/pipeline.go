// Package pipeline executes the ordered stage sequence for one job:
// audio enhancement, transcription (with language detection), rule-based
// correction, optional semantic correction, and optional translation.
//
// Transcription and requested audio enhancement are required stages; their
// failure fails the job. Every other stage is best-effort: a failure is
// logged, recorded on the result's degraded list, and the pipeline continues
// with the last good value. Each external-collaborator stage runs under its
// own timeout, and cancellation is checked between stages only.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lexivox/lexivox/internal/correct"
	"github.com/lexivox/lexivox/internal/job"
	"github.com/lexivox/lexivox/internal/observe"
	"github.com/lexivox/lexivox/internal/resolve"
	"github.com/lexivox/lexivox/pkg/provider/audio"
	"github.com/lexivox/lexivox/pkg/provider/stt"
)

// Stage names, in execution order.
const (
	StageAudioEnhancement   = "audio_enhancement"
	StageTranscription      = "transcription"
	StageRuleCorrection     = "rule_correction"
	StageSemanticCorrection = "semantic_correction"
	StageTranslation        = "translation"
)

// SemanticEnhancer polishes a transcript with an LLM-backed collaborator.
type SemanticEnhancer interface {
	Enhance(ctx context.Context, text string, domain correct.Domain) (string, error)
}

// Translator translates a transcript into a target language.
type Translator interface {
	Translate(ctx context.Context, text, targetLanguage string) (string, error)
}

// Timeouts bounds each external-collaborator stage. Zero disables the bound
// for that stage.
type Timeouts struct {
	Enhancement   time.Duration
	Transcription time.Duration
	Semantic      time.Duration
	Translation   time.Duration
}

// Pipeline wires the stage collaborators together. Construct with [New];
// optional collaborators may be nil, in which case the stages needing them
// degrade (best-effort stages) or fail (required stages).
type Pipeline struct {
	transcriber stt.Transcriber
	enhancer    audio.Enhancer
	semantic    SemanticEnhancer
	translator  Translator
	resolver    *resolve.Resolver
	engine      *correct.Engine
	timeouts    Timeouts
	log         *slog.Logger
	meter       *observe.Metrics
}

// Compile-time check that Pipeline satisfies the manager's runner contract.
var _ job.Runner = (*Pipeline)(nil)

// Option configures a [Pipeline].
type Option func(*Pipeline)

// WithEnhancer sets the audio enhancement collaborator.
func WithEnhancer(e audio.Enhancer) Option {
	return func(p *Pipeline) { p.enhancer = e }
}

// WithSemanticEnhancer sets the LLM-backed semantic correction collaborator.
func WithSemanticEnhancer(s SemanticEnhancer) Option {
	return func(p *Pipeline) { p.semantic = s }
}

// WithTranslator sets the translation collaborator.
func WithTranslator(tr Translator) Option {
	return func(p *Pipeline) { p.translator = tr }
}

// WithTimeouts sets the per-stage timeout bounds.
func WithTimeouts(t Timeouts) Option {
	return func(p *Pipeline) { p.timeouts = t }
}

// WithLogger sets the structured logger. Defaults to [slog.Default].
func WithLogger(log *slog.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// WithMetrics enables stage metrics.
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Pipeline) { p.meter = m }
}

// New creates a Pipeline. The transcriber and resolver are mandatory; all
// other collaborators are optional.
func New(transcriber stt.Transcriber, resolver *resolve.Resolver, opts ...Option) *Pipeline {
	p := &Pipeline{
		transcriber: transcriber,
		resolver:    resolver,
		engine:      correct.NewEngine(),
		log:         slog.Default(),
		meter:       observe.DefaultMetrics(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the stage sequence for j. It returns the accumulated result
// together with an error when a required stage failed, so completed stages
// survive on the failed job's error payload.
func (p *Pipeline) Run(ctx context.Context, j *job.Job, ctl job.RunControl) (*job.Result, error) {
	opts := j.Options
	result := &job.Result{}
	log := p.log.With("job_id", j.ID)

	// Audio enhancement: required once any level above none is requested.
	audioPath := j.Input
	if opts.EnhancementLevel != audio.LevelNone {
		if cancelled(ctl) {
			return result, job.ErrCancelled
		}
		p.enter(ctl, StageAudioEnhancement)
		enhanced, err := p.enhance(ctx, audioPath, opts.EnhancementLevel)
		if err != nil {
			return result, err
		}
		audioPath = enhanced
		result.EnhancementsApplied = append(result.EnhancementsApplied, StageAudioEnhancement)
	}

	// Transcription: the only stage whose failure always fails the job.
	// Language detection rides on its output when the hint is "auto".
	if cancelled(ctl) {
		return result, job.ErrCancelled
	}
	p.enter(ctl, StageTranscription)
	transcript, err := p.transcribe(ctx, audioPath, opts.LanguageHint)
	if err != nil {
		return result, err
	}
	result.Raw = transcript.Text
	result.Corrected = transcript.Text
	result.DetectedLanguage = p.resolver.ResolveLanguage(opts.LanguageHint, transcript.Language)

	// Rule correction: deterministic and local, best-effort only in the
	// sense that an unsupported language degrades to the generic rules.
	if opts.ApplyRuleCorrection {
		if cancelled(ctl) {
			return result, job.ErrCancelled
		}
		p.enter(ctl, StageRuleCorrection)
		p.correctRules(ctx, result, opts.CorrectionDomain, log)
	}

	// Semantic correction: best-effort LLM pass.
	if opts.ApplySemanticCorrection {
		if cancelled(ctl) {
			return result, job.ErrCancelled
		}
		p.enter(ctl, StageSemanticCorrection)
		p.correctSemantic(ctx, result, opts.CorrectionDomain, log)
	}

	// Translation: best-effort, skipped when already in the target language.
	if opts.AutoTranslate && result.DetectedLanguage != opts.TargetLanguage {
		if cancelled(ctl) {
			return result, job.ErrCancelled
		}
		p.enter(ctl, StageTranslation)
		p.translate(ctx, result, opts.TargetLanguage, log)
	}

	return result, nil
}

func (p *Pipeline) enhance(ctx context.Context, path string, level audio.Level) (string, error) {
	if p.enhancer == nil {
		p.meter.RecordStage(ctx, StageAudioEnhancement, "error", 0)
		return "", fmt.Errorf("%w: audio enhancement requested but no enhancer configured", job.ErrStageFailure)
	}

	start := time.Now()
	sctx, cancel := p.bound(ctx, p.timeouts.Enhancement)
	defer cancel()

	enhanced, err := p.enhancer.Enhance(sctx, path, level)
	if err != nil {
		p.meter.RecordStage(ctx, StageAudioEnhancement, statusOf(err), time.Since(start))
		return "", stageErr(StageAudioEnhancement, err)
	}
	p.meter.RecordStage(ctx, StageAudioEnhancement, "ok", time.Since(start))
	return enhanced, nil
}

func (p *Pipeline) transcribe(ctx context.Context, path, hint string) (*stt.Transcript, error) {
	start := time.Now()
	sctx, cancel := p.bound(ctx, p.timeouts.Transcription)
	defer cancel()

	transcript, err := p.transcriber.Transcribe(sctx, path, hint)
	if err != nil {
		p.meter.RecordStage(ctx, StageTranscription, statusOf(err), time.Since(start))
		return nil, stageErr(StageTranscription, err)
	}
	p.meter.RecordStage(ctx, StageTranscription, "ok", time.Since(start))
	return transcript, nil
}

func (p *Pipeline) correctRules(ctx context.Context, result *job.Result, domain correct.Domain, log *slog.Logger) {
	start := time.Now()
	rs, supported := p.resolver.Resolve(result.DetectedLanguage, domain)
	if !supported {
		log.Warn("no correction rule set for language, using generic fallback",
			"language", result.DetectedLanguage)
		result.Degraded = append(result.Degraded, job.Degradation{
			Stage:  StageRuleCorrection,
			Reason: fmt.Sprintf("no rule set for language %q, generic rules applied", result.DetectedLanguage),
		})
	}

	corrected := p.engine.Correct(result.Corrected, rs)
	result.Corrected = corrected.Text
	result.Operations = corrected.Operations
	result.EnhancementsApplied = append(result.EnhancementsApplied, StageRuleCorrection)
	p.meter.RecordStage(ctx, StageRuleCorrection, "ok", time.Since(start))
}

func (p *Pipeline) correctSemantic(ctx context.Context, result *job.Result, domain correct.Domain, log *slog.Logger) {
	if p.semantic == nil {
		p.degrade(ctx, result, log, StageSemanticCorrection, errors.New("no semantic enhancer configured"), 0)
		return
	}

	start := time.Now()
	sctx, cancel := p.bound(ctx, p.timeouts.Semantic)
	defer cancel()

	enhanced, err := p.semantic.Enhance(sctx, result.Corrected, domain)
	if err != nil {
		p.degrade(ctx, result, log, StageSemanticCorrection, err, time.Since(start))
		return
	}
	result.Corrected = enhanced
	result.EnhancementsApplied = append(result.EnhancementsApplied, StageSemanticCorrection)
	p.meter.RecordStage(ctx, StageSemanticCorrection, "ok", time.Since(start))
}

func (p *Pipeline) translate(ctx context.Context, result *job.Result, target string, log *slog.Logger) {
	if p.translator == nil {
		p.degrade(ctx, result, log, StageTranslation, errors.New("no translator configured"), 0)
		return
	}

	start := time.Now()
	sctx, cancel := p.bound(ctx, p.timeouts.Translation)
	defer cancel()

	translated, err := p.translator.Translate(sctx, result.Corrected, target)
	if err != nil {
		p.degrade(ctx, result, log, StageTranslation, err, time.Since(start))
		return
	}
	result.Corrected = translated
	result.EnhancementsApplied = append(result.EnhancementsApplied, StageTranslation)
	p.meter.RecordStage(ctx, StageTranslation, "ok", time.Since(start))
}

// degrade absorbs a best-effort stage failure: log it, record it on the
// result, continue with the pre-stage value.
func (p *Pipeline) degrade(ctx context.Context, result *job.Result, log *slog.Logger, stage string, err error, d time.Duration) {
	log.Warn("best-effort stage failed, continuing",
		"stage", stage,
		"error", err,
	)
	result.Degraded = append(result.Degraded, job.Degradation{
		Stage:  stage,
		Reason: err.Error(),
	})
	p.meter.RecordStage(ctx, stage, statusOf(err), d)
}

// enter reports the stage about to execute to the manager's progress hook.
func (p *Pipeline) enter(ctl job.RunControl, stage string) {
	if ctl.Progress != nil {
		ctl.Progress(stage)
	}
}

func (p *Pipeline) bound(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

func cancelled(ctl job.RunControl) bool {
	return ctl.Cancelled != nil && ctl.Cancelled()
}

// stageErr classifies a required-stage error into the job error taxonomy.
func stageErr(stage string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", job.ErrStageTimeout, stage, err)
	}
	return fmt.Errorf("%w: %s: %v", job.ErrStageFailure, stage, err)
}

func statusOf(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "error"
}
