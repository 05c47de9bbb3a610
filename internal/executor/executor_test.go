package executor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/expgrid/internal/registry"
	"github.com/vk/expgrid/internal/workflow"
)

// recorder is a registry whose handlers append the locators they ran, in
// order, so tests can assert on scheduling behavior.
type recorder struct {
	mu   sync.Mutex
	runs []string
}

func (r *recorder) record(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, id)
}

func (r *recorder) ran() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.runs...)
}

// buildPlan wires a plan out of (locator, deps) pairs, all of kind "test".
func buildPlan(t *testing.T, name string, jobs map[string][]string) *workflow.Plan {
	t.Helper()
	plan := workflow.NewPlan(name)
	for id, deps := range jobs {
		job := &workflow.Job{Locator: workflow.ParseLocator(id), Kind: "test"}
		for _, d := range deps {
			job.DependsOn = append(job.DependsOn, workflow.ParseLocator(d))
		}
		require.NoError(t, plan.AddJob(job))
	}
	require.NoError(t, plan.Finalize())
	return plan
}

func TestRunExecutesAllJobsInDependencyOrder(t *testing.T) {
	plan := buildPlan(t, "chain", map[string][]string{
		"curriculum": nil,
		"train":      {"curriculum"},
		"eval":       {"train"},
	})

	rec := &recorder{}
	reg := registry.New()
	reg.RegisterKind("test", func(ctx context.Context, job *workflow.Job) error {
		rec.record(job.Locator.String())
		return nil
	})

	err := New(plan, reg, 4).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"curriculum", "train", "eval"}, rec.ran())
}

func TestIndependentJobsRunConcurrently(t *testing.T) {
	plan := buildPlan(t, "parallel", map[string][]string{
		"a": nil, "b": nil, "c": nil, "d": nil,
	})

	var active, peak int32
	reg := registry.New()
	reg.RegisterKind("test", func(ctx context.Context, job *workflow.Job) error {
		now := atomic.AddInt32(&active, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if now <= old || atomic.CompareAndSwapInt32(&peak, old, now) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return nil
	})

	err := New(plan, reg, 4).Run(context.Background())
	require.NoError(t, err)
	assert.Greater(t, atomic.LoadInt32(&peak), int32(1))
}

func TestFailureSkipsDependentsOnly(t *testing.T) {
	plan := buildPlan(t, "partial", map[string][]string{
		"bad":        nil,
		"downstream": {"bad"},
	})

	boom := errors.New("boom")
	reg := registry.New()
	ran := &recorder{}
	reg.RegisterKind("test", func(ctx context.Context, job *workflow.Job) error {
		if job.Locator.String() == "bad" {
			return boom
		}
		ran.record(job.Locator.String())
		return nil
	})

	err := New(plan, reg, 2).Run(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "failed: bad")
	assert.ErrorContains(t, err, "skipped: downstream")
	assert.NotContains(t, ran.ran(), "downstream")
}

func TestCategoryLimitGatesDispatch(t *testing.T) {
	plan := workflow.NewPlan("limited")
	for _, id := range []string{"p1", "p2", "p3", "p4"} {
		require.NoError(t, plan.AddJob(&workflow.Job{
			Locator:  workflow.ParseLocator(id),
			Kind:     "test",
			Category: "pursuit",
		}))
	}
	require.NoError(t, plan.LimitJobsForCategory("pursuit", 1))
	require.NoError(t, plan.Finalize())

	var active, peak int32
	reg := registry.New()
	reg.RegisterKind("test", func(ctx context.Context, job *workflow.Job) error {
		now := atomic.AddInt32(&active, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if now <= old || atomic.CompareAndSwapInt32(&peak, old, now) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return nil
	})

	err := New(plan, reg, 4).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&peak))
}

func TestUnregisteredKindFailsBeforeExecution(t *testing.T) {
	plan := buildPlan(t, "bad-kind", map[string][]string{"only": nil})

	err := New(plan, registry.New(), 1).Run(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "unregistered kinds")
}

func TestHandlersSeeContextCancellation(t *testing.T) {
	plan := buildPlan(t, "cancel", map[string][]string{"slow": nil})

	reg := registry.New()
	reg.RegisterKind("test", func(ctx context.Context, job *workflow.Job) error {
		<-ctx.Done()
		return ctx.Err()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := New(plan, reg, 1).Run(ctx)
	require.Error(t, err)
	assert.ErrorContains(t, err, "failed: slow")
}
