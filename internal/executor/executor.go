// Package executor runs a finalized workflow plan on the local machine
// with a pool of concurrent workers. A job is dispatched once all of its
// dependencies have completed and its category has a free slot; a failed
// job cancels the run and skips every job downstream of it.
package executor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/vk/expgrid/internal/ctxlog"
	"github.com/vk/expgrid/internal/registry"
	"github.com/vk/expgrid/internal/scheduler"
	"github.com/vk/expgrid/internal/workflow"
)

// jobStatus tracks a job through its lifecycle.
type jobStatus int

const (
	statusPending jobStatus = iota
	statusRunning
	statusDone
	statusFailed
	statusSkipped
)

// jobState pairs a planned job with its execution bookkeeping.
type jobState struct {
	job         *workflow.Job
	status      jobStatus
	pendingDeps int
	err         error
}

// Executor orchestrates the end-to-end execution of a plan.
type Executor struct {
	plan     *workflow.Plan
	registry *registry.Registry
	limiter  *scheduler.CategoryLimiter
	workers  int

	mu     sync.Mutex
	states map[string]*jobState
}

// New creates an executor for a finalized plan.
func New(plan *workflow.Plan, reg *registry.Registry, workers int) *Executor {
	if workers < 1 {
		workers = 1
	}
	return &Executor{
		plan:     plan,
		registry: reg,
		limiter:  scheduler.NewCategoryLimiter(plan.Limits()),
		workers:  workers,
		states:   make(map[string]*jobState),
	}
}

// Run executes every job in the plan. It returns an error summarizing all
// failed and skipped jobs, or nil if everything completed.
func (e *Executor) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	if err := e.registry.ValidatePlan(e.plan); err != nil {
		return err
	}

	jobs := e.plan.Jobs()
	for _, job := range jobs {
		e.states[job.Locator.String()] = &jobState{
			job:         job,
			pendingDeps: len(job.DependsOn),
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ready := make(chan *jobState, len(jobs))
	var wg sync.WaitGroup
	wg.Add(len(jobs))

	for i := 0; i < e.workers; i++ {
		go e.worker(ctx, i, ready, &wg, cancel)
	}

	// Seed the pool with every job that has no dependencies.
	for _, job := range jobs {
		st := e.states[job.Locator.String()]
		if st.pendingDeps == 0 {
			ready <- st
		}
	}

	wg.Wait()
	close(ready)
	logger.Debug("Executor drained all jobs.")

	return e.summarize()
}

// summarize folds per-job failures into one error.
func (e *Executor) summarize() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var failed, skipped []string
	for id, st := range e.states {
		switch st.status {
		case statusFailed:
			failed = append(failed, fmt.Sprintf("%s: %v", id, st.err))
		case statusSkipped:
			skipped = append(skipped, id)
		}
	}
	if len(failed) == 0 && len(skipped) == 0 {
		return nil
	}
	sort.Strings(failed)
	sort.Strings(skipped)
	var parts []string
	if len(failed) > 0 {
		parts = append(parts, "failed: "+strings.Join(failed, "; "))
	}
	if len(skipped) > 0 {
		parts = append(parts, "skipped: "+strings.Join(skipped, ", "))
	}
	return fmt.Errorf("workflow %q did not complete (%s)", e.plan.Name, strings.Join(parts, " / "))
}
