package slurm

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vk/expgrid/internal/ctxlog"
	"github.com/vk/expgrid/internal/workflow"
)

// submitRequest is the slurmrestd job-submit payload.
type submitRequest struct {
	Script string    `json:"script"`
	Job    jobFields `json:"job"`
}

// jobFields carries the subset of sbatch options a ResourceRequest maps to.
type jobFields struct {
	Name           string   `json:"name"`
	Partition      string   `json:"partition,omitempty"`
	ExcludedNodes  string   `json:"excluded_nodes,omitempty"`
	CPUsPerTask    int      `json:"cpus_per_task"`
	TresPerJob     string   `json:"tres_per_job,omitempty"`
	MemoryPerNode  int64    `json:"memory_per_node"`
	TimeLimit      int      `json:"time_limit"`
	Dependency     string   `json:"dependency,omitempty"`
	CurrentWorkDir string   `json:"current_working_directory"`
	Environment    []string `json:"environment"`
}

// SubmitPlan submits every job of a finalized plan in dependency order and
// returns the Slurm job ID assigned to each locator. Dependencies are
// expressed as afterok chains, so a failed upstream job cancels its
// dependents on the cluster side as well.
func (c *Client) SubmitPlan(ctx context.Context, plan *workflow.Plan) (map[string]int64, error) {
	logger := ctxlog.FromContext(ctx)
	ids := make(map[string]int64, plan.Len())

	for _, job := range plan.Jobs() {
		depIDs := make([]int64, 0, len(job.DependsOn))
		for _, dep := range job.DependsOn {
			id, ok := ids[dep.String()]
			if !ok {
				// Plans are topologically ordered, so this is a bug.
				return ids, fmt.Errorf("job %s submitted before its dependency %s", job.Locator, dep)
			}
			depIDs = append(depIDs, id)
		}

		jobID, err := c.submitJob(ctx, plan.Name, job, depIDs)
		if err != nil {
			return ids, fmt.Errorf("submitting %s: %w", job.Locator, err)
		}
		logger.Info("Submitted job to cluster.", "locator", job.Locator.String(), "slurm_job_id", jobID)
		ids[job.Locator.String()] = jobID
	}
	return ids, nil
}

// submitJob posts one job-submit request.
func (c *Client) submitJob(ctx context.Context, planName string, job *workflow.Job, depIDs []int64) (int64, error) {
	script, err := buildScript(job)
	if err != nil {
		return 0, err
	}

	req := submitRequest{
		Script: script,
		Job: jobFields{
			Name:           planName + "/" + job.Locator.String(),
			Partition:      job.Resources.Partition,
			ExcludedNodes:  strings.Join(job.Resources.ExcludeList, ","),
			CPUsPerTask:    job.Resources.NumCPUs,
			MemoryPerNode:  job.Resources.Memory.Mebibytes(),
			TimeLimit:      job.Resources.JobTimeInMinutes,
			CurrentWorkDir: "/tmp",
			Environment:    []string{"PATH=/bin:/usr/bin"},
		},
	}
	if job.Resources.NumGPUs > 0 {
		req.Job.TresPerJob = fmt.Sprintf("gres/gpu:%d", job.Resources.NumGPUs)
	}
	if len(depIDs) > 0 {
		parts := make([]string, 0, len(depIDs))
		for _, id := range depIDs {
			parts = append(parts, fmt.Sprintf("%d", id))
		}
		req.Job.Dependency = "afterok:" + strings.Join(parts, ":")
	}

	var out struct {
		JobID  int64      `json:"job_id"`
		Errors []apiError `json:"errors"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post(fmt.Sprintf("/slurm/%s/job/submit", c.cfg.APIVersion))
	if err != nil {
		return 0, err
	}
	if resp.IsError() {
		return 0, fmt.Errorf("%s: %s", resp.Status(), resp.String())
	}
	if err := collapse(out.Errors); err != nil {
		return 0, err
	}
	if out.JobID == 0 {
		return 0, fmt.Errorf("slurmrestd accepted the submission but returned no job id")
	}
	return out.JobID, nil
}

// buildScript renders the batch script for a job: the parameter payload is
// embedded as a heredoc and handed to the job's program, mirroring how the
// local command kind invokes an experiment runner on a params file.
func buildScript(job *workflow.Job) (string, error) {
	var b strings.Builder
	b.WriteString("#!/bin/bash\n")
	b.WriteString("set -euo pipefail\n")

	program, err := job.Params.OptionalString("program", "")
	if err != nil {
		return "", err
	}
	if program == "" {
		// Graph-shaping job with no work of its own.
		b.WriteString("exit 0\n")
		return b.String(), nil
	}

	payload, err := yaml.Marshal(job.Params.AsMap())
	if err != nil {
		return "", fmt.Errorf("serializing params for %s: %w", job.Locator, err)
	}

	args, err := job.Params.OptionalStringList("args")
	if err != nil {
		return "", err
	}

	b.WriteString("PARAMS_FILE=$(mktemp)\n")
	b.WriteString("cat > \"$PARAMS_FILE\" <<'EXPGRID_PARAMS'\n")
	b.Write(payload)
	b.WriteString("EXPGRID_PARAMS\n")
	b.WriteString("exec " + program)
	for _, arg := range args {
		b.WriteString(" " + arg)
	}
	b.WriteString(" \"$PARAMS_FILE\"\n")
	return b.String(), nil
}

// terminalStates are the Slurm base states a job cannot leave.
var terminalStates = map[string]bool{
	"COMPLETED":     true,
	"FAILED":        true,
	"CANCELLED":     true,
	"TIMEOUT":       true,
	"NODE_FAIL":     true,
	"OUT_OF_MEMORY": true,
}

// WaitForPlan polls every submitted job until all reach a terminal state,
// returning an error naming each job that did not complete successfully.
func (c *Client) WaitForPlan(ctx context.Context, ids map[string]int64) error {
	logger := ctxlog.FromContext(ctx)

	pending := make(map[string]int64, len(ids))
	for locator, id := range ids {
		pending[locator] = id
	}
	var failures []string

	for len(pending) > 0 {
		for locator, id := range pending {
			state, err := c.JobState(ctx, id)
			if err != nil {
				return err
			}
			if !terminalStates[state] {
				continue
			}
			logger.Debug("Cluster job reached terminal state.", "locator", locator, "state", state)
			if state != "COMPLETED" {
				failures = append(failures, fmt.Sprintf("%s (%s)", locator, state))
			}
			delete(pending, locator)
		}
		if len(pending) == 0 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.cfg.PollInterval):
		}
	}

	if len(failures) > 0 {
		sort.Strings(failures)
		return fmt.Errorf("cluster jobs did not complete: %s", strings.Join(failures, ", "))
	}
	return nil
}
