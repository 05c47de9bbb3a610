// Package slurm submits a planned workflow to a cluster running
// slurmrestd, the Slurm REST API daemon. Each job's resource request maps
// onto the job-submit payload; workflow dependencies become afterok
// chains on the submitted job IDs.
package slurm

import (
	"context"
	"fmt"
	"time"

	"resty.dev/v3"

	"github.com/vk/expgrid/internal/params"
)

// DefaultAPIVersion is the slurmrestd OpenAPI plugin version requests are
// issued against.
const DefaultAPIVersion = "v0.0.40"

// Config holds the connection settings for a slurmrestd endpoint.
type Config struct {
	// BaseURL is the slurmrestd root, e.g. "http://head-node:6820".
	BaseURL string
	// Username and Token authenticate via the X-SLURM-USER-* headers.
	Username string
	Token    string
	// APIVersion selects the REST API version path segment.
	APIVersion string
	// PollInterval is the delay between job-state polls while waiting.
	PollInterval time.Duration
}

// ConfigFromParams reads the `workflow.slurm` namespace of a parameter
// tree: base_url (required), username, token, api_version,
// poll_interval_seconds.
func ConfigFromParams(ps *params.Parameters) (Config, error) {
	ns, err := ps.OptionalNamespace("workflow.slurm")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{}
	if cfg.BaseURL, err = ns.String("base_url"); err != nil {
		return Config{}, fmt.Errorf("slurm backend: %w", err)
	}
	if cfg.Username, err = ns.OptionalString("username", ""); err != nil {
		return Config{}, err
	}
	if cfg.Token, err = ns.OptionalString("token", ""); err != nil {
		return Config{}, err
	}
	if cfg.APIVersion, err = ns.OptionalString("api_version", DefaultAPIVersion); err != nil {
		return Config{}, err
	}
	pollSeconds, err := ns.OptionalInteger("poll_interval_seconds", 30)
	if err != nil {
		return Config{}, err
	}
	cfg.PollInterval = time.Duration(pollSeconds) * time.Second
	return cfg, nil
}

// Client talks to one slurmrestd endpoint.
type Client struct {
	http *resty.Client
	cfg  Config
}

// NewClient creates a Client for the given endpoint configuration.
func NewClient(cfg Config) *Client {
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Content-Type", "application/json")
	if cfg.Username != "" {
		httpClient.SetHeader("X-SLURM-USER-NAME", cfg.Username)
	}
	if cfg.Token != "" {
		httpClient.SetHeader("X-SLURM-USER-TOKEN", cfg.Token)
	}

	return &Client{http: httpClient, cfg: cfg}
}

// Close releases the underlying HTTP client resources.
func (c *Client) Close() error {
	return c.http.Close()
}

// apiError is the error shape slurmrestd embeds in every response.
type apiError struct {
	Error       string `json:"error"`
	ErrorNumber int    `json:"error_number"`
	Source      string `json:"source"`
}

// collapse folds API errors into one Go error.
func collapse(errs []apiError) error {
	if len(errs) == 0 {
		return nil
	}
	msg := errs[0].Error
	if len(errs) > 1 {
		msg = fmt.Sprintf("%s (and %d more)", msg, len(errs)-1)
	}
	return fmt.Errorf("slurmrestd: %s", msg)
}

// JobState fetches the current state of a submitted job. Slurm reports a
// job's state as a list of flags; the first entry is the base state.
func (c *Client) JobState(ctx context.Context, jobID int64) (string, error) {
	var out struct {
		Jobs []struct {
			JobState []string `json:"job_state"`
		} `json:"jobs"`
		Errors []apiError `json:"errors"`
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get(fmt.Sprintf("/slurm/%s/job/%d", c.cfg.APIVersion, jobID))
	if err != nil {
		return "", fmt.Errorf("querying job %d: %w", jobID, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("querying job %d: %s: %s", jobID, resp.Status(), resp.String())
	}
	if err := collapse(out.Errors); err != nil {
		return "", err
	}
	if len(out.Jobs) == 0 || len(out.Jobs[0].JobState) == 0 {
		return "", fmt.Errorf("job %d not found", jobID)
	}
	return out.Jobs[0].JobState[0], nil
}
