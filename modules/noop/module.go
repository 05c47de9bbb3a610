// Package noop provides the `noop` job kind: a job that does nothing but
// log its payload. It is the default kind for jobs that only exist to
// shape the dependency graph, and is handy when dry-running a workflow.
package noop

import (
	"context"

	"github.com/vk/expgrid/internal/ctxlog"
	"github.com/vk/expgrid/internal/registry"
	"github.com/vk/expgrid/internal/workflow"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Run is the handler for the 'noop' job kind.
func Run(ctx context.Context, job *workflow.Job) error {
	logger := ctxlog.FromContext(ctx)
	logger.Info("noop job executed.", "locator", job.Locator.String(), "payload_keys", job.Params.Keys())
	return nil
}

// Register registers the handler with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind("noop", Run)
}
