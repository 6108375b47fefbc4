package job

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lexivox/lexivox/internal/correct"
	"github.com/lexivox/lexivox/internal/observe"
	"github.com/lexivox/lexivox/pkg/provider/audio"
)

// Runner executes the pipeline for one claimed job. Implementations report
// stage progress and poll for cancellation through ctl; they must return
// either a result or an error, and may return both when the error occurred
// after some stages had already produced usable output.
type Runner interface {
	Run(ctx context.Context, j *Job, ctl RunControl) (*Result, error)
}

// RunControl carries the cooperation hooks between the manager's worker and
// the pipeline it runs.
type RunControl struct {
	// Progress reports the stage about to execute. May be nil.
	Progress func(stage string)

	// Cancelled reports whether the caller requested cancellation. The
	// pipeline checks it between stages; a stage already in flight runs to
	// completion.
	Cancelled func() bool
}

// ManagerConfig bounds the manager's queue and worker pool.
type ManagerConfig struct {
	// QueueSize bounds the number of queued jobs. Submissions beyond it
	// fail with [ErrCapacityExceeded].
	QueueSize int

	// Workers is the number of concurrent job executors, capping
	// simultaneous calls into the transcription backend.
	Workers int

	// MaxInputBytes rejects submissions whose audio file exceeds this size.
	// Zero disables the check.
	MaxInputBytes int64
}

func (c *ManagerConfig) applyDefaults() {
	if c.QueueSize <= 0 {
		c.QueueSize = 32
	}
	if c.Workers <= 0 {
		c.Workers = 2
	}
}

// Manager owns the job lifecycle: it validates and enqueues submissions,
// dispatches queued jobs to a bounded worker pool, answers status queries
// with store snapshots, and honours cooperative cancellation.
type Manager struct {
	store  Store
	runner Runner
	cfg    ManagerConfig
	log    *slog.Logger
	meter  *observe.Metrics

	// mu guards queue admission and every state transition not owned by a
	// single worker, preserving the at-most-one-worker-per-job invariant.
	mu      sync.Mutex
	queue   chan string
	cancels map[string]*atomic.Bool
}

// ManagerOption configures a [Manager].
type ManagerOption func(*Manager)

// WithLogger sets the structured logger. Defaults to [slog.Default].
func WithLogger(log *slog.Logger) ManagerOption {
	return func(m *Manager) { m.log = log }
}

// WithMetrics enables job lifecycle metrics.
func WithMetrics(meter *observe.Metrics) ManagerOption {
	return func(m *Manager) { m.meter = meter }
}

// NewManager creates a Manager over the given store and pipeline runner.
func NewManager(store Store, runner Runner, cfg ManagerConfig, opts ...ManagerOption) *Manager {
	cfg.applyDefaults()
	m := &Manager{
		store:   store,
		runner:  runner,
		cfg:     cfg,
		log:     slog.Default(),
		meter:   observe.DefaultMetrics(),
		queue:   make(chan string, cfg.QueueSize),
		cancels: make(map[string]*atomic.Bool),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run starts the worker pool and blocks until ctx is cancelled and all
// workers have drained their current job.
func (m *Manager) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < m.cfg.Workers; i++ {
		worker := i
		g.Go(func() error {
			m.log.Debug("job worker started", "worker", worker)
			for {
				select {
				case <-ctx.Done():
					return nil
				case id := <-m.queue:
					m.meter.AddQueueDepth(ctx, -1)
					m.execute(ctx, id)
				}
			}
		})
	}
	return g.Wait()
}

// Submit validates the input reference and options, creates a job record in
// the queued state, and enqueues it for a worker. It returns the job ID
// immediately; execution happens in the background.
//
// When the queue is full it fails with [ErrCapacityExceeded] before any
// record is created.
func (m *Manager) Submit(ctx context.Context, callerID, input string, opts PipelineOptions) (string, error) {
	if err := m.validate(input, &opts); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.queue) == cap(m.queue) {
		m.meter.RecordSubmission(ctx, "rejected")
		return "", ErrCapacityExceeded
	}

	now := time.Now().UTC()
	j := &Job{
		ID:        uuid.NewString(),
		CallerID:  callerID,
		State:     StateQueued,
		CreatedAt: now,
		UpdatedAt: now,
		Input:     input,
		Options:   opts,
	}
	if err := m.store.Create(ctx, j); err != nil {
		return "", fmt.Errorf("job: persist submission: %w", err)
	}

	m.cancels[j.ID] = &atomic.Bool{}
	m.queue <- j.ID
	m.meter.RecordSubmission(ctx, "accepted")
	m.meter.AddQueueDepth(ctx, 1)
	m.log.Info("job submitted",
		"job_id", j.ID,
		"caller_id", callerID,
		"language_hint", opts.LanguageHint,
		"domain", string(opts.CorrectionDomain),
	)
	return j.ID, nil
}

// GetStatus returns the current snapshot of a job. It never waits on the
// worker; concurrent calls during execution observe a monotonically
// advancing state.
func (m *Manager) GetStatus(ctx context.Context, id string) (*Job, error) {
	return m.store.Get(ctx, id)
}

// List returns snapshots of all jobs, newest first.
func (m *Manager) List(ctx context.Context) ([]*Job, error) {
	return m.store.List(ctx)
}

// Cancel requests cancellation of a job. Queued jobs are finalized as
// cancelled immediately; processing jobs finish their in-flight stage and
// are finalized once the worker observes the flag. Cancelling a terminal
// job is a no-op returning false.
func (m *Manager) Cancel(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, err := m.store.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if j.State.Terminal() {
		return false, nil
	}

	if flag, ok := m.cancels[id]; ok {
		flag.Store(true)
	}

	if j.State == StateQueued {
		// Not claimed yet: finalize here. The worker skips the job when it
		// dequeues it and finds a terminal state.
		m.finalizeLocked(ctx, j, StateCancelled, nil, &ErrorInfo{
			Kind:    KindCancelled,
			Message: "cancelled before processing started",
		})
	}

	m.log.Info("job cancellation requested", "job_id", id, "state", string(j.State))
	return true, nil
}

func (m *Manager) validate(input string, opts *PipelineOptions) error {
	if input == "" {
		return fmt.Errorf("%w: empty input reference", ErrValidation)
	}
	info, err := os.Stat(input)
	if err != nil {
		return fmt.Errorf("%w: input %q not readable: %v", ErrValidation, input, err)
	}
	if m.cfg.MaxInputBytes > 0 && info.Size() > m.cfg.MaxInputBytes {
		return fmt.Errorf("%w: input size %d exceeds limit %d", ErrValidation, info.Size(), m.cfg.MaxInputBytes)
	}
	if opts.LanguageHint == "" {
		opts.LanguageHint = "auto"
	}
	// Unrecognised domains fall back to general rather than failing.
	opts.CorrectionDomain = correct.ParseDomain(string(opts.CorrectionDomain))
	if opts.EnhancementLevel == "" {
		opts.EnhancementLevel = audio.LevelNone
	}
	if !opts.EnhancementLevel.IsValid() {
		return fmt.Errorf("%w: unknown enhancement level %q", ErrValidation, opts.EnhancementLevel)
	}
	if opts.TargetLanguage == "" {
		opts.TargetLanguage = "en"
	}
	return nil
}

// execute claims a queued job and runs the pipeline for it. The claim and
// every finalization happen under mu, so exactly one worker ever owns a job.
func (m *Manager) execute(ctx context.Context, id string) {
	j, ok := m.claim(ctx, id)
	if !ok {
		return
	}

	start := time.Now()
	flag := m.cancelFlag(id)
	ctl := RunControl{
		Progress: func(stage string) { m.progress(ctx, id, stage) },
		Cancelled: func() bool {
			return flag != nil && flag.Load()
		},
	}

	result, err := m.runner.Run(ctx, j, ctl)

	m.mu.Lock()
	defer m.mu.Unlock()
	defer delete(m.cancels, id)

	switch {
	case flag != nil && flag.Load():
		// Result of a cancelled job is discarded.
		m.finalizeLocked(ctx, j, StateCancelled, nil, &ErrorInfo{
			Kind:    KindCancelled,
			Message: "cancelled by caller",
		})
	case err != nil:
		m.finalizeLocked(ctx, j, StateFailed, nil, &ErrorInfo{
			Kind:    KindOf(err),
			Message: err.Error(),
			Partial: result,
		})
		m.log.Error("job failed", "job_id", id, "kind", string(KindOf(err)), "error", err)
	default:
		m.finalizeLocked(ctx, j, StateCompleted, result, nil)
		m.log.Info("job completed",
			"job_id", id,
			"degraded", len(result.Degraded) > 0,
			"duration", time.Since(start),
		)
	}
	m.meter.RecordJobDuration(ctx, string(j.State), time.Since(start))
}

// claim transitions a job from queued to processing, exactly once.
func (m *Manager) claim(ctx context.Context, id string) (*Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, err := m.store.Get(ctx, id)
	if err != nil {
		m.log.Error("claim failed", "job_id", id, "error", err)
		return nil, false
	}
	if j.State != StateQueued {
		// Cancelled (or otherwise finalized) before a worker picked it up.
		return nil, false
	}
	if flag := m.cancels[id]; flag != nil && flag.Load() {
		m.finalizeLocked(ctx, j, StateCancelled, nil, &ErrorInfo{
			Kind:    KindCancelled,
			Message: "cancelled before processing started",
		})
		delete(m.cancels, id)
		return nil, false
	}

	j.State = StateProcessing
	j.UpdatedAt = time.Now().UTC()
	if err := m.store.Update(ctx, j); err != nil {
		m.log.Error("claim update failed", "job_id", id, "error", err)
		return nil, false
	}
	return j, true
}

// progress records the stage currently executing on the job snapshot.
func (m *Manager) progress(ctx context.Context, id, stage string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, err := m.store.Get(ctx, id)
	if err != nil || j.State != StateProcessing {
		return
	}
	j.Stage = stage
	j.UpdatedAt = time.Now().UTC()
	if err := m.store.Update(ctx, j); err != nil {
		m.log.Warn("progress update failed", "job_id", id, "stage", stage, "error", err)
	}
}

// finalizeLocked writes the terminal state. Callers hold mu.
func (m *Manager) finalizeLocked(ctx context.Context, j *Job, state State, result *Result, errInfo *ErrorInfo) {
	j.State = state
	j.Stage = ""
	j.Result = result
	j.Error = errInfo
	j.UpdatedAt = time.Now().UTC()
	if err := m.store.Update(ctx, j); err != nil {
		m.log.Error("finalize failed", "job_id", j.ID, "state", string(state), "error", err)
	}
	m.meter.RecordJobFinal(ctx, string(state))
}

func (m *Manager) cancelFlag(id string) *atomic.Bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancels[id]
}
