package store

import (
	"context"
	"sync"

	"github.com/playbookpilot/api/internal/model"
)

// In-memory store implementations backing the swappable record-store
// contract. Used by tests and local development without Redis.

// MemoryJobStore keeps jobs in a map.
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]model.Job
}

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: make(map[string]model.Job)}
}

func (s *MemoryJobStore) Create(ctx context.Context, job *model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = *job
	return nil
}

func (s *MemoryJobStore) FindByID(ctx context.Context, id string) (*model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &job, nil
}

func (s *MemoryJobStore) Save(ctx context.Context, job *model.Job) error {
	return s.Create(ctx, job)
}

// Len returns the number of stored jobs.
func (s *MemoryJobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// MemoryExecutionStore keeps executions in a map.
type MemoryExecutionStore struct {
	mu         sync.RWMutex
	executions map[string]model.Execution
}

func NewMemoryExecutionStore() *MemoryExecutionStore {
	return &MemoryExecutionStore{executions: make(map[string]model.Execution)}
}

func (s *MemoryExecutionStore) Create(ctx context.Context, execution *model.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executions[execution.ID] = *execution
	return nil
}

func (s *MemoryExecutionStore) FindByID(ctx context.Context, id string) (*model.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	execution, ok := s.executions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &execution, nil
}

func (s *MemoryExecutionStore) Save(ctx context.Context, execution *model.Execution) error {
	return s.Create(ctx, execution)
}

// MemoryPlaybookStore keeps playbooks in a map with counters guarded by the
// same mutex, so increments are atomic with respect to each other.
type MemoryPlaybookStore struct {
	mu        sync.Mutex
	playbooks map[string]model.Playbook
	runs      map[string]int64
	versions  map[string]int64
}

func NewMemoryPlaybookStore() *MemoryPlaybookStore {
	return &MemoryPlaybookStore{
		playbooks: make(map[string]model.Playbook),
		runs:      make(map[string]int64),
		versions:  make(map[string]int64),
	}
}

func (s *MemoryPlaybookStore) Create(ctx context.Context, playbook *model.Playbook) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playbooks[playbook.ID] = *playbook
	if playbook.Version > 0 {
		if _, ok := s.versions[playbook.ID]; !ok {
			s.versions[playbook.ID] = playbook.Version
		}
	}
	return nil
}

func (s *MemoryPlaybookStore) FindByID(ctx context.Context, id string) (*model.Playbook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	playbook, ok := s.playbooks[id]
	if !ok {
		return nil, ErrNotFound
	}
	playbook.RunCount = s.runs[id]
	if v := s.versions[id]; v > 0 {
		playbook.Version = v
	}
	return &playbook, nil
}

func (s *MemoryPlaybookStore) Save(ctx context.Context, playbook *model.Playbook) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playbooks[playbook.ID] = *playbook
	return nil
}

func (s *MemoryPlaybookStore) IncrementRuns(ctx context.Context, id string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[id] += delta
	return s.runs[id], nil
}

func (s *MemoryPlaybookStore) IncrementVersion(ctx context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions[id]++
	return s.versions[id], nil
}

// Len returns the number of stored playbooks.
func (s *MemoryPlaybookStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.playbooks)
}
