// Package registry holds the job-kind handlers available to the local
// execution backend. A workflow job names its kind; the registry maps the
// kind to the Go handler that runs it.
package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/vk/expgrid/internal/workflow"
)

// Handler executes a single job. Implementations must honor context
// cancellation.
type Handler func(ctx context.Context, job *workflow.Job) error

// Module is the interface job-kind packages implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Registry maps job kinds to handlers for a single application instance.
type Registry struct {
	handlers map[string]Handler
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// RegisterKind adds a handler for a job kind. Registering the same kind
// twice is a programmer error and panics.
func (r *Registry) RegisterKind(kind string, h Handler) {
	if _, exists := r.handlers[kind]; exists {
		panic(fmt.Sprintf("registry: job kind %q registered twice", kind))
	}
	r.handlers[kind] = h
}

// Handler looks up the handler for a job kind.
func (r *Registry) Handler(kind string) (Handler, bool) {
	h, ok := r.handlers[kind]
	return h, ok
}

// Kinds returns the sorted registered kinds.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.handlers))
	for k := range r.handlers {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// ValidatePlan checks that every job in the plan names a registered kind,
// so a bad kind fails before execution starts rather than mid-run.
func (r *Registry) ValidatePlan(plan *workflow.Plan) error {
	var unknown []string
	for _, job := range plan.Jobs() {
		if _, ok := r.handlers[job.Kind]; !ok {
			unknown = append(unknown, fmt.Sprintf("%s (kind %q)", job.Locator, job.Kind))
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("jobs with unregistered kinds: %s; registered: %s",
			strings.Join(unknown, ", "), strings.Join(r.Kinds(), ", "))
	}
	return nil
}
