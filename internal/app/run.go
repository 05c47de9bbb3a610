package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vk/expgrid/internal/ctxlog"
	"github.com/vk/expgrid/internal/executor"
	"github.com/vk/expgrid/internal/fsutil"
	"github.com/vk/expgrid/internal/lintcfg"
	"github.com/vk/expgrid/internal/loader"
	"github.com/vk/expgrid/internal/params"
	"github.com/vk/expgrid/internal/slurm"
	"github.com/vk/expgrid/internal/workflow"
)

// Run executes the selected command.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.", "command", a.config.Command)

	if a.config.Command == CommandLintConfig {
		return a.lintConfig()
	}
	if a.config.Watch {
		return a.watch(ctx)
	}
	_, err := a.runOnce(ctx)
	return err
}

// runOnce performs one full pass of the selected command. It reports the
// files that contributed to the parameter tree, so watch mode knows what
// to observe.
func (a *App) runOnce(ctx context.Context) ([]string, error) {
	info, err := os.Stat(a.config.ParamsPath)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		if a.config.Command != CommandValidate {
			return nil, fmt.Errorf("the %s command needs a single parameter file, got directory %s",
				a.config.Command, a.config.ParamsPath)
		}
		return a.validateTree(ctx)
	}

	result, err := a.loader.Load(ctx, a.config.ParamsPath)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("Parameter files loaded.", "files", len(result.Files))

	resolved, err := result.Params.Interpolate()
	if err != nil {
		return result.Files, err
	}

	switch a.config.Command {
	case CommandValidate:
		return result.Files, a.validate(result, resolved)
	case CommandResolve:
		return result.Files, a.resolve(resolved)
	case CommandPlan:
		return result.Files, a.plan(resolved)
	case CommandRun:
		return result.Files, a.execute(ctx, resolved)
	}
	return result.Files, fmt.Errorf("unknown command %q", a.config.Command)
}

// validateTree validates every parameter file under a directory, treating
// each as a root of its own include chain.
func (a *App) validateTree(ctx context.Context) ([]string, error) {
	roots, err := fsutil.FindFilesByExtensions(a.config.ParamsPath, a.loader.Extensions()...)
	if err != nil {
		return nil, err
	}
	if len(roots) == 0 {
		return nil, fmt.Errorf("no parameter files under %s", a.config.ParamsPath)
	}

	seen := make(map[string]bool)
	var files []string
	for _, root := range roots {
		result, err := a.loader.Load(ctx, root)
		if err != nil {
			return files, fmt.Errorf("%s: %w", root, err)
		}
		for _, f := range result.Files {
			if !seen[f] {
				seen[f] = true
				files = append(files, f)
			}
		}

		resolved, err := result.Params.Interpolate()
		if err != nil {
			return files, fmt.Errorf("%s: %w", root, err)
		}
		if err := a.validate(result, resolved); err != nil {
			return files, fmt.Errorf("%s: %w", root, err)
		}
	}
	a.logger.Info("Parameter tree is valid.", "roots", len(roots), "files", len(files))
	return files, nil
}

// validate checks what loading alone does not: a workflow namespace, when
// present, must also plan cleanly, and a linter config given alongside
// must parse.
func (a *App) validate(result *loader.Result, resolved *params.Parameters) error {
	if resolved.Has(workflow.WorkflowNamespace) {
		if _, err := workflow.PlanFromParams(resolved); err != nil {
			return err
		}
	}
	if a.config.LintConfigPath != "" {
		if _, err := lintcfg.Load(a.config.LintConfigPath); err != nil {
			return err
		}
	}
	a.logger.Info("Parameters are valid.", "files", len(result.Files), "top_level_keys", resolved.Len())
	return nil
}

// resolve prints the merged and interpolated parameter tree as YAML.
func (a *App) resolve(resolved *params.Parameters) error {
	return a.withOutput(func(w io.Writer) error {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(resolved.AsMap()); err != nil {
			return err
		}
		return enc.Close()
	})
}

// plan prints the workflow plan derived from the parameter tree.
func (a *App) plan(resolved *params.Parameters) error {
	plan, err := workflow.PlanFromParams(resolved)
	if err != nil {
		return err
	}
	return a.withOutput(plan.Describe)
}

// execute runs the workflow plan on the backend the parameters select.
func (a *App) execute(ctx context.Context, resolved *params.Parameters) error {
	plan, err := workflow.PlanFromParams(resolved)
	if err != nil {
		return err
	}

	backend, err := workflow.BackendFromParams(resolved)
	if err != nil {
		return err
	}

	if backend == workflow.BackendSlurm {
		return a.executeSlurm(ctx, resolved, plan)
	}

	a.logger.Info("Starting local execution.", "plan", plan.Name, "jobs", plan.Len(), "workers", a.config.WorkerCount)
	if err := executor.New(plan, a.registry, a.config.WorkerCount).Run(ctx); err != nil {
		return err
	}
	a.logger.Info("Workflow finished.", "plan", plan.Name)
	return nil
}

// executeSlurm submits the plan to the cluster and waits for it.
func (a *App) executeSlurm(ctx context.Context, resolved *params.Parameters, plan *workflow.Plan) error {
	cfg, err := slurm.ConfigFromParams(resolved)
	if err != nil {
		return err
	}
	client := slurm.NewClient(cfg)
	defer client.Close()

	ids, err := client.SubmitPlan(ctx, plan)
	if err != nil {
		return err
	}
	a.logger.Info("Plan submitted to cluster.", "plan", plan.Name, "jobs", len(ids))

	if err := client.WaitForPlan(ctx, ids); err != nil {
		return err
	}
	a.logger.Info("Cluster workflow finished.", "plan", plan.Name)
	return nil
}

// lintConfig validates a linter configuration file on its own.
func (a *App) lintConfig() error {
	cfg, err := lintcfg.Load(a.config.LintConfigPath)
	if err != nil {
		return err
	}
	a.logger.Info("Linter configuration is valid.",
		"exclude", len(cfg.Exclude), "ignore", len(cfg.Ignore), "max_line_length", cfg.MaxLineLength)
	return nil
}

// withOutput runs fn against the configured output destination.
func (a *App) withOutput(fn func(io.Writer) error) error {
	if a.config.OutputPath == "" {
		return fn(a.outW)
	}
	f, err := os.Create(a.config.OutputPath)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
