package workflow

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/expgrid/internal/params"
)

// Parameter-file namespaces the planner reads.
const (
	// WorkflowNamespace holds scheduler defaults, the experiment name,
	// the backend selection, and per-category job limits.
	WorkflowNamespace = "workflow"
	// JobsNamespace holds one entry per planned job, keyed by locator.
	JobsNamespace = "jobs"
)

// Backend names, selected by the `workflow.backend` parameter.
const (
	BackendLocal = "local"
	BackendSlurm = "slurm"
)

// reservedJobKeys are job-entry keys with planner meaning; everything else
// in a job entry is payload handed to the job's handler.
var reservedJobKeys = map[string]bool{
	"kind":       true,
	"category":   true,
	"depends_on": true,
	"resources":  true,
}

// BackendFromParams reads the backend selection, defaulting to local.
func BackendFromParams(ps *params.Parameters) (string, error) {
	return ps.OptionalEnum(WorkflowNamespace+".backend", BackendLocal, BackendLocal, BackendSlurm)
}

// PlanFromParams builds a finalized Plan from a merged parameter tree.
//
// The `workflow` namespace supplies the experiment name, scheduler-request
// defaults, and `limit_jobs_for_category` caps. The `jobs` namespace holds
// one entry per job; its `resources` sub-namespace overrides the workflow
// defaults key-by-key.
func PlanFromParams(ps *params.Parameters) (*Plan, error) {
	wf, err := ps.OptionalNamespace(WorkflowNamespace)
	if err != nil {
		return nil, err
	}

	name, err := wf.OptionalString("experiment_name", "experiment")
	if err != nil {
		return nil, err
	}
	plan := NewPlan(name)

	limits, err := wf.OptionalNamespace("limit_jobs_for_category")
	if err != nil {
		return nil, err
	}
	for _, category := range limits.Keys() {
		max, err := limits.Integer(category)
		if err != nil {
			return nil, err
		}
		if err := plan.LimitJobsForCategory(category, max); err != nil {
			return nil, err
		}
	}

	jobs, err := ps.OptionalNamespace(JobsNamespace)
	if err != nil {
		return nil, err
	}
	if jobs.Len() == 0 {
		return nil, fmt.Errorf("parameter tree plans no jobs: %q namespace is empty or absent", JobsNamespace)
	}

	for _, key := range jobs.Keys() {
		entry, err := jobs.Namespace(key)
		if err != nil {
			return nil, fmt.Errorf("job %q: %w", key, err)
		}
		job, err := jobFromEntry(key, entry, wf)
		if err != nil {
			return nil, err
		}
		if err := plan.AddJob(job); err != nil {
			return nil, err
		}
	}

	if err := plan.Finalize(); err != nil {
		return nil, err
	}
	return plan, nil
}

// jobFromEntry translates one jobs-namespace entry into a Job.
func jobFromEntry(key string, entry, defaults *params.Parameters) (*Job, error) {
	kind, err := entry.OptionalString("kind", "noop")
	if err != nil {
		return nil, fmt.Errorf("job %q: %w", key, err)
	}
	category, err := entry.OptionalString("category", "")
	if err != nil {
		return nil, fmt.Errorf("job %q: %w", key, err)
	}

	depStrings, err := entry.OptionalStringList("depends_on")
	if err != nil {
		return nil, fmt.Errorf("job %q: %w", key, err)
	}
	deps := make([]Locator, 0, len(depStrings))
	for _, d := range depStrings {
		deps = append(deps, ParseLocator(d))
	}

	resNS, err := entry.OptionalNamespace("resources")
	if err != nil {
		return nil, fmt.Errorf("job %q: %w", key, err)
	}
	resources, err := ResourceRequestFromParams(defaults.Unify(resNS))
	if err != nil {
		return nil, fmt.Errorf("job %q: %w", key, err)
	}

	payload := make(map[string]cty.Value)
	for _, k := range entry.Keys() {
		if reservedJobKeys[k] {
			continue
		}
		v, err := entry.Get(k)
		if err != nil {
			return nil, fmt.Errorf("job %q: %w", key, err)
		}
		payload[k] = v
	}

	return &Job{
		Locator:   ParseLocator(key),
		Kind:      kind,
		Category:  category,
		Params:    params.FromMap(payload),
		DependsOn: deps,
		Resources: resources,
	}, nil
}
