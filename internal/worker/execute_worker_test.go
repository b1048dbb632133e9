package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/playbookpilot/api/internal/model"
	"github.com/playbookpilot/api/internal/queue"
)

func executeSuccessBody() map[string]interface{} {
	return map[string]interface{}{
		"success":          true,
		"output":           "PLAY RECAP: ok=3 changed=1 failed=0",
		"stats":            map[string]interface{}{"host1": map[string]int{"ok": 3, "changed": 1}},
		"duration_seconds": 4.2,
	}
}

func TestExecuteWorker_Success(t *testing.T) {
	f := newWorkerFixture(t, jsonHandler(t, 200, executeSuccessBody()))
	w := NewExecuteWorker(f.jobs, f.executions, f.playbooks, f.generator, f.bus)

	playbook := f.seedPlaybook(t, "---\n- hosts: all\n")
	execution := f.seedExecution(t, playbook.ID)
	job := f.seedJob(t, model.JobTypeExecute)
	task := newTask(t, "playbook:execute", job.ID, model.ExecuteJobPayload{
		PlaybookID:  playbook.ID,
		ExecutionID: execution.ID,
		Inventory:   execution.Inventory,
		CheckMode:   true,
		Tags:        []string{"setup"},
	})

	if err := w.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("ProcessTask failed: %v", err)
	}

	stored := f.mustGetJob(t, job.ID)
	if stored.Status != model.JobStatusCompleted {
		t.Errorf("expected completed job, got %s", stored.Status)
	}

	updated, err := f.executions.FindByID(context.Background(), execution.ID)
	if err != nil {
		t.Fatalf("execution lookup failed: %v", err)
	}
	if updated.Status != model.ExecutionStatusSuccess {
		t.Errorf("expected success execution, got %s", updated.Status)
	}
	if updated.StartedAt == nil || updated.CompletedAt == nil {
		t.Error("expected startedAt and completedAt to be set")
	}
	if updated.Output == "" {
		t.Error("expected captured output")
	}
	if updated.DurationSeconds != 4.2 {
		t.Errorf("expected duration 4.2, got %v", updated.DurationSeconds)
	}
	if updated.Command == "" {
		t.Error("expected rendered command")
	}

	refreshed, err := f.playbooks.FindByID(context.Background(), playbook.ID)
	if err != nil {
		t.Fatalf("playbook lookup failed: %v", err)
	}
	if refreshed.RunCount != 1 {
		t.Errorf("expected run count 1, got %d", refreshed.RunCount)
	}

	var result model.ExecuteJobResult
	if err := json.Unmarshal(stored.Result, &result); err != nil {
		t.Fatalf("bad job result: %v", err)
	}
	if result.ExecutionID != execution.ID || !result.Success {
		t.Errorf("unexpected result %+v", result)
	}

	// Result event fans out to job, execution and playbook channels
	for _, channel := range []string{
		model.JobChannel(job.ID),
		model.ExecutionChannel(execution.ID),
		model.PlaybookChannel(playbook.ID),
	} {
		if got := f.bus.byChannel(channel); len(got) == 0 {
			t.Errorf("no events on channel %s", channel)
		}
	}
}

func TestExecuteWorker_RunFailure(t *testing.T) {
	f := newWorkerFixture(t, jsonHandler(t, 200, map[string]interface{}{
		"success":          false,
		"output":           "fatal: [host1]: UNREACHABLE!",
		"error":            "host unreachable",
		"duration_seconds": 1.5,
	}))
	w := NewExecuteWorker(f.jobs, f.executions, f.playbooks, f.generator, f.bus)

	playbook := f.seedPlaybook(t, "---\n- hosts: all\n")
	execution := f.seedExecution(t, playbook.ID)
	job := f.seedJob(t, model.JobTypeExecute)
	task := newTask(t, "playbook:execute", job.ID, model.ExecuteJobPayload{
		PlaybookID:  playbook.ID,
		ExecutionID: execution.ID,
		Inventory:   execution.Inventory,
	})

	if err := w.ProcessTask(context.Background(), task); err == nil {
		t.Fatal("expected run failure to surface")
	}

	stored := f.mustGetJob(t, job.ID)
	if stored.Status != model.JobStatusFailed {
		t.Errorf("expected failed job, got %s", stored.Status)
	}
	if stored.Error == nil || *stored.Error != "host unreachable" {
		t.Errorf("unexpected job error %v", stored.Error)
	}

	updated, err := f.executions.FindByID(context.Background(), execution.ID)
	if err != nil {
		t.Fatalf("execution lookup failed: %v", err)
	}
	if updated.Status != model.ExecutionStatusFailed {
		t.Errorf("expected failed execution, got %s", updated.Status)
	}
	if updated.Output == "" {
		t.Error("expected captured output on a failed run")
	}

	refreshed, _ := f.playbooks.FindByID(context.Background(), playbook.ID)
	if refreshed.RunCount != 0 {
		t.Errorf("failed run must not bump the counter, got %d", refreshed.RunCount)
	}
}

func TestExecuteWorker_DropsCancelledExecution(t *testing.T) {
	f := newWorkerFixture(t, jsonHandler(t, 200, executeSuccessBody()))
	w := NewExecuteWorker(f.jobs, f.executions, f.playbooks, f.generator, f.bus)

	playbook := f.seedPlaybook(t, "---\n- hosts: all\n")
	execution := f.seedExecution(t, playbook.ID)
	execution.Status = model.ExecutionStatusCancelled
	if err := f.executions.Save(context.Background(), execution); err != nil {
		t.Fatalf("failed to cancel execution: %v", err)
	}

	job := f.seedJob(t, model.JobTypeExecute)
	task := newTask(t, "playbook:execute", job.ID, model.ExecuteJobPayload{
		PlaybookID:  playbook.ID,
		ExecutionID: execution.ID,
		Inventory:   execution.Inventory,
	})

	err := w.ProcessTask(context.Background(), task)
	if !errors.Is(err, queue.ErrSkipRetry) {
		t.Fatalf("expected skip-retry for cancelled execution, got %v", err)
	}

	updated, _ := f.executions.FindByID(context.Background(), execution.ID)
	if updated.Status != model.ExecutionStatusCancelled {
		t.Errorf("cancelled execution must not regress, got %s", updated.Status)
	}

	refreshed, _ := f.playbooks.FindByID(context.Background(), playbook.ID)
	if refreshed.RunCount != 0 {
		t.Errorf("dropped run must not bump the counter, got %d", refreshed.RunCount)
	}
}

func TestExecuteWorker_ConcurrentRunsCountExactly(t *testing.T) {
	f := newWorkerFixture(t, jsonHandler(t, 200, executeSuccessBody()))
	w := NewExecuteWorker(f.jobs, f.executions, f.playbooks, f.generator, f.bus)

	playbook := f.seedPlaybook(t, "---\n- hosts: all\n")

	const runs = 2
	var wg sync.WaitGroup
	for i := 0; i < runs; i++ {
		execution := f.seedExecution(t, playbook.ID)
		job := f.seedJob(t, model.JobTypeExecute)
		task := newTask(t, "playbook:execute", job.ID, model.ExecuteJobPayload{
			PlaybookID:  playbook.ID,
			ExecutionID: execution.ID,
			Inventory:   execution.Inventory,
		})

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.ProcessTask(context.Background(), task); err != nil {
				t.Errorf("ProcessTask failed: %v", err)
			}
		}()
	}
	wg.Wait()

	refreshed, err := f.playbooks.FindByID(context.Background(), playbook.ID)
	if err != nil {
		t.Fatalf("playbook lookup failed: %v", err)
	}
	if refreshed.RunCount != runs {
		t.Errorf("expected run count %d from concurrent runs, got %d", runs, refreshed.RunCount)
	}
}

func TestResolveCommand(t *testing.T) {
	payload := &model.ExecuteJobPayload{
		Limit:     "web",
		Tags:      []string{"setup", "deploy"},
		CheckMode: true,
		Verbosity: 2,
	}
	got := resolveCommand(payload)
	want := "ansible-playbook playbook.yml -i inventory.ini --limit web --tags setup,deploy --check -vv"
	if got != want {
		t.Errorf("resolveCommand = %q, want %q", got, want)
	}
}
