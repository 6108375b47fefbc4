package job

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

// stubRunner executes a configurable function in place of the real pipeline.
type stubRunner struct {
	fn func(ctx context.Context, j *Job, ctl RunControl) (*Result, error)
}

func (r *stubRunner) Run(ctx context.Context, j *Job, ctl RunControl) (*Result, error) {
	if r.fn == nil {
		return &Result{Raw: "raw", Corrected: "corrected", DetectedLanguage: "en"}, nil
	}
	return r.fn(ctx, j, ctl)
}

// audioFile writes a small placeholder input file and returns its path.
func audioFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.wav")
	if err := os.WriteFile(path, []byte("RIFF....WAVE"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return path
}

// startManager creates a manager, starts its worker pool, and stops it on
// test cleanup.
func startManager(t *testing.T, runner Runner, cfg ManagerConfig) *Manager {
	t.Helper()
	m := NewManager(NewMemStore(), runner, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return m
}

// waitForTerminal polls until the job reaches a terminal state.
func waitForTerminal(t *testing.T, m *Manager, id string) *Job {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		j, err := m.GetStatus(context.Background(), id)
		if err != nil {
			t.Fatalf("GetStatus(%s): %v", id, err)
		}
		if j.State.Terminal() {
			return j
		}
		select {
		case <-deadline:
			t.Fatalf("job %s never reached a terminal state, last state %s", id, j.State)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSubmitThenStatus(t *testing.T) {
	t.Parallel()
	m := startManager(t, &stubRunner{}, ManagerConfig{})

	id, err := m.Submit(context.Background(), "caller-1", audioFile(t), PipelineOptions{})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	j, err := m.GetStatus(context.Background(), id)
	if err != nil {
		t.Fatalf("GetStatus immediately after Submit: %v", err)
	}
	if !j.State.After(StateQueued) {
		t.Errorf("state = %s, want queued or later", j.State)
	}
	if j.CallerID != "caller-1" {
		t.Errorf("caller = %q, want caller-1", j.CallerID)
	}
}

func TestStateSequenceMonotonic(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	runner := &stubRunner{fn: func(ctx context.Context, j *Job, ctl RunControl) (*Result, error) {
		<-release
		return &Result{Raw: "raw", Corrected: "raw"}, nil
	}}
	m := startManager(t, runner, ManagerConfig{Workers: 1})

	id, err := m.Submit(context.Background(), "c", audioFile(t), PipelineOptions{})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	prev := StateQueued
	sawTerminal := false
	go func() {
		time.Sleep(20 * time.Millisecond)
		close(release)
	}()
	for !sawTerminal {
		j, err := m.GetStatus(context.Background(), id)
		if err != nil {
			t.Fatalf("GetStatus: %v", err)
		}
		if !j.State.After(prev) {
			t.Fatalf("state regressed from %s to %s", prev, j.State)
		}
		prev = j.State
		sawTerminal = j.State.Terminal()
	}
	if prev != StateCompleted {
		t.Errorf("terminal state = %s, want completed", prev)
	}
}

func TestGetStatusIdempotent(t *testing.T) {
	t.Parallel()
	m := NewManager(NewMemStore(), &stubRunner{}, ManagerConfig{})

	// No workers running, so no progress happens between the two reads.
	id, err := m.Submit(context.Background(), "c", audioFile(t), PipelineOptions{})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	first, err := m.GetStatus(context.Background(), id)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	second, err := m.GetStatus(context.Background(), id)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("snapshots differ:\n%+v\n%+v", first, second)
	}
}

func TestSubmitValidation(t *testing.T) {
	t.Parallel()
	m := NewManager(NewMemStore(), &stubRunner{}, ManagerConfig{MaxInputBytes: 4})

	if _, err := m.Submit(context.Background(), "c", "", PipelineOptions{}); !errors.Is(err, ErrValidation) {
		t.Errorf("empty input: err = %v, want ErrValidation", err)
	}
	if _, err := m.Submit(context.Background(), "c", filepath.Join(t.TempDir(), "missing.wav"), PipelineOptions{}); !errors.Is(err, ErrValidation) {
		t.Errorf("missing file: err = %v, want ErrValidation", err)
	}
	if _, err := m.Submit(context.Background(), "c", audioFile(t), PipelineOptions{}); !errors.Is(err, ErrValidation) {
		t.Errorf("oversize file: err = %v, want ErrValidation", err)
	}
	if _, err := m.Submit(context.Background(), "c", audioFile(t), PipelineOptions{EnhancementLevel: "extreme"}); !errors.Is(err, ErrValidation) {
		t.Errorf("bad enhancement level: err = %v, want ErrValidation", err)
	}
}

func TestSubmitCapacityExceeded(t *testing.T) {
	t.Parallel()
	// No workers draining the queue.
	m := NewManager(NewMemStore(), &stubRunner{}, ManagerConfig{QueueSize: 2})

	for i := 0; i < 2; i++ {
		if _, err := m.Submit(context.Background(), "c", audioFile(t), PipelineOptions{}); err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
	}

	_, err := m.Submit(context.Background(), "c", audioFile(t), PipelineOptions{})
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("err = %v, want ErrCapacityExceeded", err)
	}

	// The rejected submission must not have created a record.
	jobs, err := m.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(jobs) != 2 {
		t.Errorf("records = %d, want 2", len(jobs))
	}
}

func TestGetStatusUnknownJob(t *testing.T) {
	t.Parallel()
	m := NewManager(NewMemStore(), &stubRunner{}, ManagerConfig{})

	if _, err := m.GetStatus(context.Background(), "nonexistent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestRunnerFailureFailsJob(t *testing.T) {
	t.Parallel()
	runner := &stubRunner{fn: func(ctx context.Context, j *Job, ctl RunControl) (*Result, error) {
		return &Result{Raw: "partial transcript"}, fmt.Errorf("%w: transcriber unreachable", ErrStageFailure)
	}}
	m := startManager(t, runner, ManagerConfig{})

	id, err := m.Submit(context.Background(), "c", audioFile(t), PipelineOptions{})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	j := waitForTerminal(t, m, id)
	if j.State != StateFailed {
		t.Fatalf("state = %s, want failed", j.State)
	}
	if j.Result != nil {
		t.Error("failed job carries a result")
	}
	if j.Error == nil {
		t.Fatal("failed job missing error info")
	}
	if j.Error.Kind != KindStageFailure {
		t.Errorf("error kind = %s, want stage_failure", j.Error.Kind)
	}
	if j.Error.Partial == nil || j.Error.Partial.Raw != "partial transcript" {
		t.Errorf("partial result not preserved: %+v", j.Error.Partial)
	}
}

func TestCancelQueuedJob(t *testing.T) {
	t.Parallel()
	// No workers: jobs stay queued.
	m := NewManager(NewMemStore(), &stubRunner{}, ManagerConfig{})

	id, err := m.Submit(context.Background(), "c", audioFile(t), PipelineOptions{})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	ok, err := m.Cancel(context.Background(), id)
	if err != nil || !ok {
		t.Fatalf("Cancel = %v, %v; want true, nil", ok, err)
	}

	j, err := m.GetStatus(context.Background(), id)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if j.State != StateCancelled {
		t.Errorf("state = %s, want cancelled", j.State)
	}
	if j.Error == nil || j.Error.Kind != KindCancelled {
		t.Errorf("error = %+v, want kind cancelled", j.Error)
	}

	// Cancelling a terminal job is a no-op.
	ok, err = m.Cancel(context.Background(), id)
	if err != nil || ok {
		t.Errorf("second Cancel = %v, %v; want false, nil", ok, err)
	}
}

func TestCancelProcessingJobDiscardsResult(t *testing.T) {
	t.Parallel()
	started := make(chan struct{})
	release := make(chan struct{})
	runner := &stubRunner{fn: func(ctx context.Context, j *Job, ctl RunControl) (*Result, error) {
		close(started)
		<-release
		// The in-flight stage runs to completion; its output is discarded.
		return &Result{Raw: "late result"}, nil
	}}
	m := startManager(t, runner, ManagerConfig{Workers: 1})

	id, err := m.Submit(context.Background(), "c", audioFile(t), PipelineOptions{})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	<-started
	ok, err := m.Cancel(context.Background(), id)
	if err != nil || !ok {
		t.Fatalf("Cancel = %v, %v; want true, nil", ok, err)
	}
	close(release)

	j := waitForTerminal(t, m, id)
	if j.State != StateCancelled {
		t.Fatalf("state = %s, want cancelled", j.State)
	}
	if j.Result != nil {
		t.Error("cancelled job kept the discarded result")
	}
}

func TestCancelUnknownJob(t *testing.T) {
	t.Parallel()
	m := NewManager(NewMemStore(), &stubRunner{}, ManagerConfig{})

	if _, err := m.Cancel(context.Background(), "nonexistent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestKindOf(t *testing.T) {
	t.Parallel()
	cases := []struct {
		err  error
		want ErrorKind
	}{
		{ErrValidation, KindValidation},
		{fmt.Errorf("wrap: %w", ErrCapacityExceeded), KindCapacityExceeded},
		{ErrStageTimeout, KindStageTimeout},
		{context.DeadlineExceeded, KindStageTimeout},
		{fmt.Errorf("wrap: %w", ErrStageFailure), KindStageFailure},
		{errors.New("mystery"), KindInternal},
	}
	for _, tc := range cases {
		if got := KindOf(tc.err); got != tc.want {
			t.Errorf("KindOf(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}
