// Package command provides the `command` job kind: it writes the job's
// parameter payload to a YAML file and runs a program on it, the way an
// experiment runner is invoked on a parameter file.
//
// Payload keys with meaning to this module:
//
//	program     (required) executable to run
//	args        (optional) extra arguments placed before the params path
//	working_dir (optional) working directory for the process
package command

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vk/expgrid/internal/ctxlog"
	"github.com/vk/expgrid/internal/registry"
	"github.com/vk/expgrid/internal/workflow"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Run is the handler for the 'command' job kind.
func Run(ctx context.Context, job *workflow.Job) error {
	logger := ctxlog.FromContext(ctx).With("locator", job.Locator.String())

	program, err := job.Params.String("program")
	if err != nil {
		return fmt.Errorf("command job %s: %w", job.Locator, err)
	}
	args, err := job.Params.OptionalStringList("args")
	if err != nil {
		return fmt.Errorf("command job %s: %w", job.Locator, err)
	}
	workingDir, err := job.Params.OptionalString("working_dir", "")
	if err != nil {
		return fmt.Errorf("command job %s: %w", job.Locator, err)
	}

	paramsPath, err := writeParamsFile(job)
	if err != nil {
		return err
	}
	defer os.Remove(paramsPath)

	cmd := exec.CommandContext(ctx, program, append(args, paramsPath)...)
	cmd.Dir = workingDir
	output, err := cmd.CombinedOutput()
	if len(output) > 0 {
		logger.Debug("command output.", "program", program, "output", strings.TrimSpace(string(output)))
	}
	if err != nil {
		return fmt.Errorf("command job %s: %s failed: %w", job.Locator, program, err)
	}

	logger.Info("command job finished.", "program", program)
	return nil
}

// Register registers the handler with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind("command", Run)
}

// writeParamsFile serializes the job payload to a temp YAML file the
// program can consume.
func writeParamsFile(job *workflow.Job) (string, error) {
	data, err := yaml.Marshal(job.Params.AsMap())
	if err != nil {
		return "", fmt.Errorf("command job %s: serializing params: %w", job.Locator, err)
	}

	name := strings.ReplaceAll(job.Locator.String(), "/", "_")
	file, err := os.CreateTemp("", "expgrid-"+name+"-*.params")
	if err != nil {
		return "", fmt.Errorf("command job %s: %w", job.Locator, err)
	}
	defer file.Close()

	if _, err := file.Write(data); err != nil {
		os.Remove(file.Name())
		return "", fmt.Errorf("command job %s: %w", job.Locator, err)
	}
	return file.Name(), nil
}
