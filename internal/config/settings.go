// Package config loads runner-level settings from an optional TOML
// file. Settings cover the machine-local concerns that do not belong in
// a workflow definition: where workspaces live, default log output, and
// whether to keep workspaces around for inspection.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Settings holds the runner-level configuration.
type Settings struct {
	// WorkspaceRoot is the directory under which per-run scratch
	// directories are created.
	WorkspaceRoot string

	// LogFormat is "text" or "json".
	LogFormat string

	// LogLevel is "debug", "info", "warn" or "error".
	LogLevel string

	// KeepWorkspace disables workspace removal after a run.
	KeepWorkspace bool
}

// Default returns the settings used when no file is present.
func Default() Settings {
	return Settings{
		WorkspaceRoot: os.TempDir(),
		LogFormat:     "text",
		LogLevel:      "info",
	}
}

type fileSettings struct {
	WorkspaceRoot string `toml:"workspace_root"`
	LogFormat     string `toml:"log_format"`
	LogLevel      string `toml:"log_level"`
	KeepWorkspace bool   `toml:"keep_workspace"`
}

// Load reads settings from path, applying defaults for keys the file
// does not define. An empty path returns the defaults.
func Load(path string) (Settings, error) {
	settings := Default()
	if path == "" {
		return settings, nil
	}

	var raw fileSettings
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Settings{}, fmt.Errorf("load settings %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Settings{}, fmt.Errorf("settings %s: unknown key %q", path, undecoded[0].String())
	}

	if meta.IsDefined("workspace_root") {
		root := strings.TrimSpace(raw.WorkspaceRoot)
		if root != "" {
			settings.WorkspaceRoot = root
		}
	}
	if meta.IsDefined("log_format") {
		settings.LogFormat = strings.ToLower(strings.TrimSpace(raw.LogFormat))
	}
	if meta.IsDefined("log_level") {
		settings.LogLevel = strings.ToLower(strings.TrimSpace(raw.LogLevel))
	}
	if meta.IsDefined("keep_workspace") {
		settings.KeepWorkspace = raw.KeepWorkspace
	}

	if err := settings.validate(); err != nil {
		return Settings{}, fmt.Errorf("settings %s: %w", path, err)
	}
	return settings, nil
}

func (s Settings) validate() error {
	switch s.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be 'text' or 'json', got %q", s.LogFormat)
	}
	switch s.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be 'debug', 'info', 'warn' or 'error', got %q", s.LogLevel)
	}
	return nil
}
