package workflow

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// description structs shape the workflow-description YAML document.
type description struct {
	Workflow string           `yaml:"workflow"`
	Limits   map[string]int   `yaml:"category_limits,omitempty"`
	Jobs     []jobDescription `yaml:"jobs"`
}

type jobDescription struct {
	Locator   string              `yaml:"locator"`
	Kind      string              `yaml:"kind"`
	Category  string              `yaml:"category,omitempty"`
	DependsOn []string            `yaml:"depends_on,omitempty"`
	Resources resourceDescription `yaml:"resources"`
	Params    map[string]any      `yaml:"params,omitempty"`
}

type resourceDescription struct {
	Partition        string   `yaml:"partition,omitempty"`
	ExcludeList      []string `yaml:"exclude_list,omitempty"`
	NumCPUs          int      `yaml:"num_cpus"`
	NumGPUs          int      `yaml:"num_gpus"`
	Memory           string   `yaml:"memory"`
	JobTimeInMinutes int      `yaml:"job_time_in_minutes"`
}

// Describe writes the plan as a YAML workflow description: jobs in
// execution order with their resources and dependencies. The plan must be
// finalized.
func (p *Plan) Describe(w io.Writer) error {
	doc := description{Workflow: p.Name}
	if len(p.limits) > 0 {
		doc.Limits = p.limits
	}

	for _, job := range p.Jobs() {
		deps := make([]string, 0, len(job.DependsOn))
		for _, d := range job.DependsOn {
			deps = append(deps, d.String())
		}

		doc.Jobs = append(doc.Jobs, jobDescription{
			Locator:   job.Locator.String(),
			Kind:      job.Kind,
			Category:  job.Category,
			DependsOn: deps,
			Resources: resourceDescription{
				Partition:        job.Resources.Partition,
				ExcludeList:      job.Resources.ExcludeList,
				NumCPUs:          job.Resources.NumCPUs,
				NumGPUs:          job.Resources.NumGPUs,
				Memory:           job.Resources.Memory.String(),
				JobTimeInMinutes: job.Resources.JobTimeInMinutes,
			},
			Params: job.Params.AsMap(),
		})
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding workflow description: %w", err)
	}
	return enc.Close()
}
