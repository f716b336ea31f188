// Package cli parses command-line arguments into an app.Config.
package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/pagemill/pagemill/internal/app"
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

// Parse processes command-line arguments. It returns a populated
// app.Config, a boolean indicating the program should exit cleanly
// (help was printed), or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	flagSet := flag.NewFlagSet("pagemill", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
pagemill - a documentation CI pipeline runner.

pagemill loads declarative workflow definitions, matches them against a
repository event, and runs the triggered jobs step by step.

Usage:
  pagemill --workflow PATH --event PATH [options]

Options:
`)
		flagSet.PrintDefaults()
	}

	workflowFlag := flagSet.String("workflow", "", "Path to a workflow .hcl file or a directory of them.")
	eventFlag := flagSet.String("event", "", "Path to the YAML event payload.")
	jobFlag := flagSet.String("job", "", "Run only the named job of each triggered workflow.")
	settingsFlag := flagSet.String("settings", "", "Path to an optional TOML runner settings file.")
	secretsFlag := flagSet.String("secrets", "", "Path to a secrets file (plain or .age sealed).")
	identityFlag := flagSet.String("secrets-identity", "", "Path to the age identity file for sealed secrets.")
	logFormatFlag := flagSet.String("log-format", "", "Log output format: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "", "Logging level: 'debug', 'info', 'warn', 'error'.")
	dryRunFlag := flagSet.Bool("dry-run", false, "Print the plan of each triggered job without executing it.")
	keepFlag := flagSet.Bool("keep-workspace", false, "Do not remove run workspaces afterwards.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	if *workflowFlag == "" && *eventFlag == "" {
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	switch logFormat {
	case "", "text", "json":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	config, err := app.NewConfig(app.Config{
		WorkflowPath:        *workflowFlag,
		EventPath:           *eventFlag,
		JobName:             *jobFlag,
		SettingsPath:        *settingsFlag,
		SecretsPath:         *secretsFlag,
		SecretsIdentityPath: *identityFlag,
		LogFormat:           logFormat,
		LogLevel:            logLevel,
		DryRun:              *dryRunFlag,
		KeepWorkspace:       *keepFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	return config, false, nil
}
