package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/expgrid/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// commands maps each subcommand name to its one-line help text.
var commands = map[string]string{
	app.CommandValidate:   "Load a parameter file chain and report problems (default).",
	app.CommandResolve:    "Print the fully merged and interpolated parameter tree.",
	app.CommandPlan:       "Print the workflow plan derived from the parameters.",
	app.CommandRun:        "Execute the workflow plan.",
	app.CommandLintConfig: "Validate a linter configuration file.",
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")

	// The first argument may name a subcommand; everything after it is
	// flags plus an optional positional path.
	command := app.CommandValidate
	if len(args) > 0 {
		if _, ok := commands[args[0]]; ok {
			command = args[0]
			args = args[1:]
		}
	}

	flagSet := flag.NewFlagSet("expgrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
expgrid - Hierarchical experiment parameters and workflow planning.

Usage:
  expgrid [command] [options] [PARAMS_PATH]

Commands:
  validate      `+commands[app.CommandValidate]+`
  resolve       `+commands[app.CommandResolve]+`
  plan          `+commands[app.CommandPlan]+`
  run           `+commands[app.CommandRun]+`
  lint-config   `+commands[app.CommandLintConfig]+`

Arguments:
  PARAMS_PATH
    Path to the root parameter file (.yaml, .yml, .params or .hcl), or
    the linter configuration file for the lint-config command.

Options:
`)
		flagSet.PrintDefaults()
	}

	paramsFlag := flagSet.String("params", "", "Path to the root parameter file.")
	pFlag := flagSet.String("p", "", "Path to the root parameter file (shorthand).")
	outFlag := flagSet.String("out", "", "Write command output to a file instead of stdout.")
	lintConfigFlag := flagSet.String("lint-config", "", "Path to the linter configuration file.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	workersFlag := flagSet.Int("workers", 4, "Number of concurrent workers for local execution.")
	watchFlag := flagSet.Bool("watch", false, "Re-run the command whenever a contributing parameter file changes.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.", "command", command)

	path := ""
	if *paramsFlag != "" {
		path = *paramsFlag
	} else if *pFlag != "" {
		path = *pFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}

	lintPath := *lintConfigFlag
	if command == app.CommandLintConfig && lintPath == "" {
		// The positional argument names the linter config for this command.
		lintPath = path
		path = ""
	}

	if command == app.CommandLintConfig {
		if lintPath == "" {
			flagSet.Usage()
			return nil, true, nil
		}
	} else if path == "" {
		slog.Debug("No params path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		Command:        command,
		ParamsPath:     path,
		LintConfigPath: lintPath,
		OutputPath:     *outFlag,
		LogFormat:      logFormat,
		LogLevel:       logLevel,
		WorkerCount:    *workersFlag,
		Watch:          *watchFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
