// Package scheduler provides dispatch gating for the local executor. The
// executor decides *when* a job's dependencies are satisfied; the limiter
// decides *whether* it may start yet, enforcing the per-category
// active-job caps a workflow declares (e.g. at most eight pursuit
// learners running at once).
package scheduler

import (
	"context"
	"sync"
)

// CategoryLimiter caps the number of concurrently active jobs per
// category. Categories without a cap are never blocked.
type CategoryLimiter struct {
	mu   sync.Mutex
	sems map[string]chan struct{}
}

// NewCategoryLimiter builds a limiter from a category -> cap map. Caps
// below one are ignored.
func NewCategoryLimiter(limits map[string]int) *CategoryLimiter {
	sems := make(map[string]chan struct{}, len(limits))
	for category, max := range limits {
		if max >= 1 {
			sems[category] = make(chan struct{}, max)
		}
	}
	return &CategoryLimiter{sems: sems}
}

// Acquire blocks until the category has a free slot or the context is
// cancelled. On success it returns a release function that must be called
// exactly once when the job finishes.
func (l *CategoryLimiter) Acquire(ctx context.Context, category string) (func(), error) {
	l.mu.Lock()
	sem, limited := l.sems[category]
	l.mu.Unlock()

	if !limited {
		return func() {}, nil
	}

	select {
	case sem <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() { <-sem })
		}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Active returns the number of currently held slots for a category. It
// reports 0 for unlimited categories.
func (l *CategoryLimiter) Active(category string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if sem, ok := l.sems[category]; ok {
		return len(sem)
	}
	return 0
}
