package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vk/expgrid/internal/ctxlog"
)

// worker is the core processing loop for a single concurrent worker.
func (e *Executor) worker(ctx context.Context, workerID int, ready chan *jobState, wg *sync.WaitGroup, cancel context.CancelFunc) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for st := range ready {
		id := st.job.Locator.String()
		jobLogger := logger.With("workerID", workerID, "job", id)

		if ctx.Err() != nil {
			e.markSkipped(st, ctx.Err(), wg)
			// Anything downstream can never run either.
			e.skipDependents(id, ctx.Err(), wg)
			continue
		}

		// Another path (a failed dependency) may have already settled
		// this job.
		e.mu.Lock()
		if st.status != statusPending {
			e.mu.Unlock()
			continue
		}
		st.status = statusRunning
		e.mu.Unlock()

		err := e.execute(ctx, st, jobLogger)
		if err != nil {
			jobLogger.Error("Job failed.", "error", err)
			e.mu.Lock()
			st.status = statusFailed
			st.err = err
			e.mu.Unlock()
			cancel()
			e.skipDependents(id, err, wg)
			wg.Done()
			continue
		}

		jobLogger.Debug("Job finished.")
		e.mu.Lock()
		st.status = statusDone
		e.mu.Unlock()

		// Unlock dependents whose last dependency just finished.
		dependents, depErr := e.plan.Graph().Dependents(id)
		if depErr != nil {
			jobLogger.Error("Failed to get dependents for completed job.", "error", depErr)
		} else {
			for _, depID := range dependents {
				e.mu.Lock()
				depState := e.states[depID]
				depState.pendingDeps--
				enqueue := depState.pendingDeps == 0 && depState.status == statusPending
				e.mu.Unlock()
				if enqueue {
					jobLogger.Debug("Unlocking dependent job.", "dependent", depID)
					ready <- depState
				}
			}
		}

		wg.Done()
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}

// execute runs one job's handler inside its category slot.
func (e *Executor) execute(ctx context.Context, st *jobState, logger *slog.Logger) error {
	release, err := e.limiter.Acquire(ctx, st.job.Category)
	if err != nil {
		return fmt.Errorf("waiting for category slot: %w", err)
	}
	defer release()

	handler, ok := e.registry.Handler(st.job.Kind)
	if !ok {
		// ValidatePlan runs first, so this indicates registry mutation.
		return fmt.Errorf("no handler for job kind %q", st.job.Kind)
	}

	logger.Debug("Dispatching job.", "kind", st.job.Kind, "category", st.job.Category)
	return handler(ctx, st.job)
}

// markSkipped settles a job that will never run.
func (e *Executor) markSkipped(st *jobState, cause error, wg *sync.WaitGroup) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st.status != statusPending {
		return
	}
	st.status = statusSkipped
	st.err = cause
	wg.Done()
}

// skipDependents transitively settles everything downstream of a failed
// job.
func (e *Executor) skipDependents(id string, cause error, wg *sync.WaitGroup) {
	dependents, err := e.plan.Graph().Dependents(id)
	if err != nil {
		return
	}
	for _, depID := range dependents {
		e.mu.Lock()
		depState := e.states[depID]
		pending := depState.status == statusPending
		if pending {
			depState.status = statusSkipped
			depState.err = fmt.Errorf("dependency %s failed: %w", id, cause)
		}
		e.mu.Unlock()
		if pending {
			wg.Done()
			e.skipDependents(depID, cause, wg)
		}
	}
}
