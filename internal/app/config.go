package app

import (
	"errors"
	"fmt"
	"log/slog"
)

// Command names accepted on the command line.
const (
	CommandValidate   = "validate"
	CommandResolve    = "resolve"
	CommandPlan       = "plan"
	CommandRun        = "run"
	CommandLintConfig = "lint-config"
)

// logLevels maps the accepted log-level names onto slog levels.
var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Command        string
	ParamsPath     string // root parameter file
	LintConfigPath string // INI linter config, lint-config command or extra check
	OutputPath     string // empty means stdout

	LogFormat   string
	LogLevel    string
	WorkerCount int
	Watch       bool
}

// NewConfig validates a Config and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.Command == "" {
		cfg.Command = CommandValidate
	}

	switch cfg.Command {
	case CommandValidate, CommandResolve, CommandPlan, CommandRun:
		if cfg.ParamsPath == "" {
			return nil, errors.New("ParamsPath is a required configuration field and cannot be empty")
		}
	case CommandLintConfig:
		if cfg.LintConfigPath == "" {
			return nil, errors.New("LintConfigPath is required for the lint-config command")
		}
	default:
		return nil, fmt.Errorf("unknown command %q", cfg.Command)
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if _, ok := logLevels[cfg.LogLevel]; !ok {
		return nil, fmt.Errorf("unknown log level %q", cfg.LogLevel)
	}

	switch cfg.LogFormat {
	case "":
		cfg.LogFormat = "text"
	case "text", "json":
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.LogFormat)
	}

	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}

	return &cfg, nil
}
