package app

import "errors"

// Config holds everything an App instance needs to run once.
type Config struct {
	// WorkflowPath is a single .hcl file or a directory of them.
	WorkflowPath string

	// EventPath is the YAML event payload that may trigger workflows.
	EventPath string

	// JobName, when non-empty, restricts the run to one job of each
	// triggered workflow.
	JobName string

	// SettingsPath is an optional TOML runner settings file.
	SettingsPath string

	// SecretsPath is an optional secrets file (plain or .age sealed).
	SecretsPath string

	// SecretsIdentityPath is the age identity file for sealed secrets.
	SecretsIdentityPath string

	// LogFormat and LogLevel override the settings file when non-empty.
	LogFormat string
	LogLevel  string

	// DryRun prints each triggered plan without executing it.
	DryRun bool

	// KeepWorkspace leaves run workspaces on disk for inspection.
	KeepWorkspace bool
}

// NewConfig validates a Config.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.WorkflowPath == "" {
		return nil, errors.New("a workflow path is required")
	}
	if cfg.EventPath == "" {
		return nil, errors.New("an event payload path is required")
	}
	return &cfg, nil
}
