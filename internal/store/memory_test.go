package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/playbookpilot/api/internal/model"
)

func TestMemoryJobStore_FindMissing(t *testing.T) {
	s := NewMemoryJobStore()
	if _, err := s.FindByID(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryPlaybookStore_ConcurrentIncrements(t *testing.T) {
	s := NewMemoryPlaybookStore()
	ctx := context.Background()
	if err := s.Create(ctx, &model.Playbook{ID: "pb-1", Version: 1}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.IncrementRuns(ctx, "pb-1", 1); err != nil {
				t.Errorf("IncrementRuns failed: %v", err)
			}
			if _, err := s.IncrementVersion(ctx, "pb-1"); err != nil {
				t.Errorf("IncrementVersion failed: %v", err)
			}
		}()
	}
	wg.Wait()

	playbook, err := s.FindByID(ctx, "pb-1")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if playbook.RunCount != workers {
		t.Errorf("expected run count %d, got %d", workers, playbook.RunCount)
	}
	if playbook.Version != 1+workers {
		t.Errorf("expected version %d, got %d", 1+workers, playbook.Version)
	}
}

func TestMemoryPlaybookStore_CountersSurviveStaleSave(t *testing.T) {
	s := NewMemoryPlaybookStore()
	ctx := context.Background()
	if err := s.Create(ctx, &model.Playbook{ID: "pb-1", Version: 1}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Reader A loads the record, the counter advances, then A writes back its
	// stale copy. The counters are authoritative, so the lookup still reflects
	// the increments.
	stale, err := s.FindByID(ctx, "pb-1")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if _, err := s.IncrementRuns(ctx, "pb-1", 3); err != nil {
		t.Fatalf("IncrementRuns failed: %v", err)
	}
	if _, err := s.IncrementVersion(ctx, "pb-1"); err != nil {
		t.Fatalf("IncrementVersion failed: %v", err)
	}
	if err := s.Save(ctx, stale); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	fresh, err := s.FindByID(ctx, "pb-1")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if fresh.RunCount != 3 {
		t.Errorf("expected run count 3 after stale save, got %d", fresh.RunCount)
	}
	if fresh.Version != 2 {
		t.Errorf("expected version 2 after stale save, got %d", fresh.Version)
	}
}
