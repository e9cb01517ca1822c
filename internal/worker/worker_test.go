package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mohammad-safakhou/slidegen/internal/job"
	"github.com/mohammad-safakhou/slidegen/internal/queue"
)

type fakeOrchestrator struct {
	fn func(ctx context.Context, jobID string) error
}

func (f fakeOrchestrator) Run(ctx context.Context, jobID string) error { return f.fn(ctx, jobID) }

func newTestStore(t *testing.T) *job.Store {
	t.Helper()
	s, err := job.New(filepath.Join(t.TempDir(), "jobs"))
	if err != nil {
		t.Fatalf("job.New: %v", err)
	}
	return s
}

func TestWorkerMarksSucceededJobRunningThenLeavesStatusToOrchestrator(t *testing.T) {
	store := newTestStore(t)
	const jobID = "job-1"
	if err := store.Create(jobID, job.Input{JobID: jobID, Prompt: "x", Aspect: job.Aspect16x9}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	var sawRunning job.Status
	orc := fakeOrchestrator{fn: func(ctx context.Context, id string) error {
		st, _ := store.Get(id)
		sawRunning = st.Status
		return nil
	}}

	q := queue.New()
	q.Enqueue(jobID)
	w := New(q, orc, store, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the worker a moment to drain the single queued job, then stop it.
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	if sawRunning != job.StatusRunning {
		t.Fatalf("expected job to be running during pipeline invocation, got %s", sawRunning)
	}
}

func TestWorkerMarksFailedOnOrchestratorError(t *testing.T) {
	store := newTestStore(t)
	const jobID = "job-2"
	if err := store.Create(jobID, job.Input{JobID: jobID, Prompt: "x", Aspect: job.Aspect16x9}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	orc := fakeOrchestrator{fn: func(context.Context, string) error { return errors.New("boom") }}
	q := queue.New()
	q.Enqueue(jobID)
	w := New(q, orc, store, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	st, err := store.Get(jobID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if st.Status != job.StatusFailed {
		t.Fatalf("expected failed, got %s", st.Status)
	}
	if st.Error != "boom" {
		t.Fatalf("expected error message propagated, got %q", st.Error)
	}
	if st.Step != "" {
		t.Fatalf("expected step cleared, got %q", st.Step)
	}
}

func TestWorkerExitsCleanlyOnShutdown(t *testing.T) {
	store := newTestStore(t)
	orc := fakeOrchestrator{fn: func(context.Context, string) error { return nil }}
	q := queue.New()
	w := New(q, orc, store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Run(ctx); err != nil {
		t.Fatalf("expected clean shutdown, got %v", err)
	}
}
