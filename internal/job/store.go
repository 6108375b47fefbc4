package job

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Store persists job records. It is the only resource mutated per job, and
// every mutation comes from the job's owning worker or the manager's cancel
// path; arbitrary callers read concurrently via Get.
//
// All implementations must be safe for concurrent use and must hand out
// snapshots: a Job returned by Get never aliases memory a writer mutates.
type Store interface {
	// Create persists a new job record.
	// Returns an error when a job with the same ID already exists.
	Create(ctx context.Context, j *Job) error

	// Get retrieves a snapshot of a job by ID.
	// Returns [ErrNotFound] when no job with that ID exists.
	Get(ctx context.Context, id string) (*Job, error)

	// Update replaces an existing job record.
	// Returns [ErrNotFound] when no job with that ID exists.
	Update(ctx context.Context, j *Job) error

	// List returns snapshots of all jobs, newest first. Intended for
	// operational inspection, not the polling path.
	List(ctx context.Context) ([]*Job, error)
}

// Compile-time assertion that MemStore satisfies the Store interface.
var _ Store = (*MemStore)(nil)

// MemStore is a thread-safe, in-memory [Store]. Jobs are stored and served
// as deep copies so readers and the owning worker never share memory.
type MemStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewMemStore returns an initialised [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{jobs: make(map[string]*Job)}
}

// Create implements [Store.Create].
func (s *MemStore) Create(ctx context.Context, j *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[j.ID]; exists {
		return fmt.Errorf("job: job %q already exists", j.ID)
	}
	s.jobs[j.ID] = j.Clone()
	return nil
}

// Get implements [Store.Get].
func (s *MemStore) Get(ctx context.Context, id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return j.Clone(), nil
}

// Update implements [Store.Update].
func (s *MemStore) Update(ctx context.Context, j *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[j.ID]; !ok {
		return ErrNotFound
	}
	s.jobs[j.ID] = j.Clone()
	return nil
}

// List implements [Store.List].
func (s *MemStore) List(ctx context.Context) ([]*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j.Clone())
	}
	sort.Slice(out, func(i, k int) bool {
		if !out[i].CreatedAt.Equal(out[k].CreatedAt) {
			return out[i].CreatedAt.After(out[k].CreatedAt)
		}
		return out[i].ID < out[k].ID
	})
	return out, nil
}
