// Package worker is the job worker (C5): the single logical consumer that
// drains the job queue and drives each job through the pipeline
// orchestrator.
package worker

import (
	"context"
	"errors"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mohammad-safakhou/slidegen/internal/job"
	"github.com/mohammad-safakhou/slidegen/internal/queue"
)

var workerTracer trace.Tracer = otel.Tracer("slidegen/internal/worker")

// Orchestrator is the subset of the pipeline the worker depends on.
type Orchestrator interface {
	Run(ctx context.Context, jobID string) error
}

// Store is the subset of the job store the worker depends on.
type Store interface {
	Update(jobID string, mutate job.Mutator) (job.State, error)
}

// Worker drains q serially, invoking orchestrator for each job id and
// translating any uncaught pipeline failure into a terminal, failed
// state. It never re-raises into its own loop.
type Worker struct {
	queue        *queue.Queue
	orchestrator Orchestrator
	store        Store
	logger       *log.Logger
}

// New constructs a Worker.
func New(q *queue.Queue, orchestrator Orchestrator, store Store, logger *log.Logger) *Worker {
	if logger == nil {
		logger = log.Default()
	}
	return &Worker{queue: q, orchestrator: orchestrator, store: store, logger: logger}
}

// Run blocks, processing one job id at a time, until ctx is cancelled.
// Dequeue cancellation is treated as a clean shutdown, not a job failure.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Printf("worker starting")
	for {
		jobID, err := w.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				w.logger.Printf("worker stopping: %v", err)
				return nil
			}
			w.logger.Printf("worker stopping on dequeue error: %v", err)
			return nil
		}
		w.processOne(ctx, jobID)
	}
}

func (w *Worker) processOne(ctx context.Context, jobID string) {
	ctx, span := workerTracer.Start(ctx, "worker.process")
	defer span.End()

	logger := log.New(w.logger.Writer(), "[job "+jobID+"] ", w.logger.Flags())

	if _, err := w.store.Update(jobID, func(s *job.State) { s.Status = job.StatusRunning }); err != nil {
		logger.Printf("mark running failed: %v", err)
	}

	if err := w.orchestrator.Run(ctx, jobID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Printf("pipeline failed: %v", err)
		if _, updateErr := w.store.Update(jobID, func(s *job.State) {
			s.Status = job.StatusFailed
			s.Step = ""
			s.Error = err.Error()
		}); updateErr != nil {
			logger.Printf("mark failed failed: %v", updateErr)
		}
		return
	}
	logger.Printf("pipeline succeeded")
}
