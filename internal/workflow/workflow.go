package workflow

import (
	"fmt"
	"strings"

	"github.com/vk/expgrid/internal/dag"
	"github.com/vk/expgrid/internal/params"
)

// Locator is the hierarchical address of a job within a workflow, e.g.
// ["pursuit", "train"] rendered as "pursuit/train".
type Locator []string

// NewLocator builds a locator from its parts.
func NewLocator(parts ...string) Locator { return Locator(parts) }

// ParseLocator splits a slash-joined locator string.
func ParseLocator(s string) Locator {
	return Locator(strings.Split(strings.Trim(s, "/"), "/"))
}

// String renders the locator slash-joined.
func (l Locator) String() string { return strings.Join(l, "/") }

// Job is a single planned unit of work.
type Job struct {
	// Locator uniquely addresses the job within its plan.
	Locator Locator
	// Kind names the registered handler that runs the job locally.
	Kind string
	// Category is the concurrency-limit bucket the job counts against.
	// Empty means uncategorized (never limited).
	Category string
	// Params is the job's parameter payload.
	Params *params.Parameters
	// DependsOn lists jobs that must complete before this one starts.
	DependsOn []Locator
	// Resources is the cluster resource request for the job.
	Resources ResourceRequest
}

// Plan is a named collection of jobs forming a DAG. Jobs are added with
// AddJob; Finalize validates the graph and fixes the execution order.
type Plan struct {
	Name string

	jobs   map[string]*Job
	order  []string
	graph  *dag.Graph
	limits map[string]int
	sealed bool
}

// NewPlan creates an empty plan.
func NewPlan(name string) *Plan {
	return &Plan{
		Name:   name,
		jobs:   make(map[string]*Job),
		limits: make(map[string]int),
	}
}

// AddJob registers a job. Duplicate locators and additions after Finalize
// are errors.
func (p *Plan) AddJob(job *Job) error {
	if p.sealed {
		return fmt.Errorf("plan %q is finalized", p.Name)
	}
	if len(job.Locator) == 0 || job.Locator.String() == "" {
		return fmt.Errorf("job must have a locator")
	}
	id := job.Locator.String()
	if _, exists := p.jobs[id]; exists {
		return fmt.Errorf("duplicate job locator %q", id)
	}
	if job.Params == nil {
		job.Params = params.Empty()
	}
	p.jobs[id] = job
	return nil
}

// LimitJobsForCategory caps the number of jobs of a category that may be
// active at once. A limit below one is an error.
func (p *Plan) LimitJobsForCategory(category string, max int) error {
	if max < 1 {
		return fmt.Errorf("category %q: limit must be at least 1, got %d", category, max)
	}
	p.limits[category] = max
	return nil
}

// CategoryLimit returns the active-job cap for a category; 0 means
// unlimited.
func (p *Plan) CategoryLimit(category string) int {
	return p.limits[category]
}

// Limits returns a copy of every category cap.
func (p *Plan) Limits() map[string]int {
	out := make(map[string]int, len(p.limits))
	for k, v := range p.limits {
		out[k] = v
	}
	return out
}

// Finalize builds the dependency graph, checks that every depends_on names
// a known job and that the graph is acyclic, and fixes a deterministic
// execution order.
func (p *Plan) Finalize() error {
	if p.sealed {
		return nil
	}

	graph := dag.New()
	for id := range p.jobs {
		graph.AddNode(id)
	}
	for id, job := range p.jobs {
		for _, dep := range job.DependsOn {
			depID := dep.String()
			if !graph.HasNode(depID) {
				return fmt.Errorf("job %q depends on unknown job %q", id, depID)
			}
			if err := graph.AddEdge(depID, id); err != nil {
				return fmt.Errorf("job %q: %w", id, err)
			}
		}
	}

	if err := graph.DetectCycles(); err != nil {
		return fmt.Errorf("workflow %q: %w", p.Name, err)
	}
	order, err := graph.TopoSort()
	if err != nil {
		return fmt.Errorf("workflow %q: %w", p.Name, err)
	}

	p.graph = graph
	p.order = order
	p.sealed = true
	return nil
}

// Jobs returns every job in execution (topological) order. The plan must
// be finalized.
func (p *Plan) Jobs() []*Job {
	if !p.sealed {
		panic("workflow: Jobs called before Finalize")
	}
	out := make([]*Job, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.jobs[id])
	}
	return out
}

// Job looks a job up by its locator string.
func (p *Plan) Job(locator string) (*Job, bool) {
	j, ok := p.jobs[locator]
	return j, ok
}

// Len returns the number of jobs in the plan.
func (p *Plan) Len() int { return len(p.jobs) }

// Graph exposes the dependency graph. The plan must be finalized.
func (p *Plan) Graph() *dag.Graph {
	if !p.sealed {
		panic("workflow: Graph called before Finalize")
	}
	return p.graph
}
