// Package app wires the application together: logger, runner settings,
// workflow definitions, the step registry, and the run loop.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/pagemill/pagemill/internal/config"
	"github.com/pagemill/pagemill/internal/ctxlog"
	"github.com/pagemill/pagemill/internal/model"
	"github.com/pagemill/pagemill/internal/registry"
)

// App encapsulates one configured runner instance.
type App struct {
	outW      io.Writer
	logger    *slog.Logger
	config    *Config
	settings  config.Settings
	registry  *registry.Registry
	workflows []*model.Workflow
}

// NewApp constructs a fully initialized App: settings and workflow
// definitions loaded, step handlers registered, registry validated
// against the definitions. Startup failures are programmer or
// configuration errors, so NewApp panics; the entrypoint recovers and
// reports them cleanly.
func NewApp(outW io.Writer, cfg *Config, modules ...registry.Module) *App {
	settings, err := config.Load(cfg.SettingsPath)
	if err != nil {
		panic(err)
	}
	if cfg.LogFormat != "" {
		settings.LogFormat = cfg.LogFormat
	}
	if cfg.LogLevel != "" {
		settings.LogLevel = cfg.LogLevel
	}
	if cfg.KeepWorkspace {
		settings.KeepWorkspace = true
	}

	logger := newLogger(settings.LogLevel, settings.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	workflows, err := model.Load(ctx, cfg.WorkflowPath)
	if err != nil {
		panic(fmt.Errorf("failed to load workflow definitions: %w", err))
	}

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("Step modules registered.", "count", len(modules))

	if err := reg.Validate(workflows); err != nil {
		panic(err)
	}
	logger.Debug("Registry validation passed.")

	return &App{
		outW:      outW,
		logger:    logger,
		config:    cfg,
		settings:  settings,
		registry:  reg,
		workflows: workflows,
	}
}

// Registry returns the application's registry. Primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Workflows returns the loaded workflow definitions. Primarily for
// testing.
func (a *App) Workflows() []*model.Workflow {
	return a.workflows
}
