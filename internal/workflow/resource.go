package workflow

import (
	"fmt"

	"github.com/vk/expgrid/internal/params"
)

// Defaults applied when a job's parameters do not request otherwise.
const (
	DefaultNumCPUs          = 1
	DefaultMemory           = 4 * params.Gibibyte
	DefaultJobTimeInMinutes = 24 * 60
)

// ResourceRequest is what a job asks of the cluster scheduler.
type ResourceRequest struct {
	// Partition names the scheduler partition/queue to run on.
	Partition string
	// ExcludeList names nodes the job must not be placed on.
	ExcludeList []string
	// NumCPUs is the CPU core count.
	NumCPUs int
	// NumGPUs is the GPU count.
	NumGPUs int
	// Memory is the requested memory.
	Memory params.MemorySize
	// JobTimeInMinutes is the wall-clock limit.
	JobTimeInMinutes int
}

// ResourceRequestFromParams reads the scheduler-request keys out of a
// parameter namespace (partition, exclude_list, num_cpus, num_gpus,
// memory, job_time_in_minutes), applying defaults for absent keys.
// Unrelated keys in the namespace are ignored.
func ResourceRequestFromParams(ps *params.Parameters) (ResourceRequest, error) {
	req := ResourceRequest{}
	var err error

	if req.Partition, err = ps.OptionalString("partition", ""); err != nil {
		return req, err
	}
	if req.ExcludeList, err = ps.OptionalStringList("exclude_list"); err != nil {
		return req, err
	}
	if req.NumCPUs, err = ps.OptionalInteger("num_cpus", DefaultNumCPUs); err != nil {
		return req, err
	}
	if req.NumGPUs, err = ps.OptionalInteger("num_gpus", 0); err != nil {
		return req, err
	}
	if req.JobTimeInMinutes, err = ps.OptionalInteger("job_time_in_minutes", DefaultJobTimeInMinutes); err != nil {
		return req, err
	}

	if ps.Has("memory") {
		if req.Memory, err = ps.Memory("memory"); err != nil {
			return req, err
		}
	} else {
		req.Memory = DefaultMemory
	}

	return req, req.validate()
}

// validate applies basic sanity limits.
func (r ResourceRequest) validate() error {
	if r.NumCPUs < 1 {
		return fmt.Errorf("resource request: num_cpus must be at least 1, got %d", r.NumCPUs)
	}
	if r.NumGPUs < 0 {
		return fmt.Errorf("resource request: num_gpus must not be negative, got %d", r.NumGPUs)
	}
	if r.JobTimeInMinutes < 1 {
		return fmt.Errorf("resource request: job_time_in_minutes must be at least 1, got %d", r.JobTimeInMinutes)
	}
	if r.Memory <= 0 {
		return fmt.Errorf("resource request: memory must be positive, got %d", int64(r.Memory))
	}
	return nil
}
