// Package registry holds the step handlers available to workflows. A
// step's runner_type label selects the handler; the handler's input
// struct is decoded from the step's arguments block at execution time.
package registry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zclconf/go-cty/cty"

	"github.com/pagemill/pagemill/internal/model"
	"github.com/pagemill/pagemill/internal/secrets"
)

// Module is the interface step packages implement to plug their
// handlers into an application instance.
type Module interface {
	Register(r *Registry)
}

// RunContext carries the per-run environment a handler may need.
type RunContext struct {
	// Workspace is the absolute path of the run's ephemeral scratch
	// directory. Steps resolve their relative paths against it.
	Workspace string

	// Env holds extra environment variables injected into command
	// steps, alongside the process environment.
	Env map[string]string

	// Secrets is the run's secret store. Handlers must never log
	// secret values.
	Secrets *secrets.Store
}

// StepFunc executes one step. The returned map, if non-nil, is exposed
// to later steps in the evaluation context under
// step.<runner_type>.<instance_name>.
type StepFunc func(ctx context.Context, run *RunContext, input any) (map[string]cty.Value, error)

// RegisteredStep binds a handler function to its argument struct.
type RegisteredStep struct {
	// NewInput returns a pointer to a fresh argument struct for gohcl
	// decoding. Nil means the step takes no arguments.
	NewInput func() any
	Fn       StepFunc
}

// Registry maps runner type names to their handlers.
type Registry struct {
	steps map[string]*RegisteredStep
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{steps: make(map[string]*RegisteredStep)}
}

// RegisterStep registers a handler under a runner type name. A
// duplicate registration is a programmer error and panics.
func (r *Registry) RegisterStep(name string, step *RegisteredStep) {
	if _, exists := r.steps[name]; exists {
		panic(fmt.Sprintf("step handler %q already registered", name))
	}
	if step.Fn == nil {
		panic(fmt.Sprintf("step handler %q has no Fn", name))
	}
	slog.Debug("Registering step handler.", "name", name)
	r.steps[name] = step
}

// Lookup returns the handler for a runner type.
func (r *Registry) Lookup(name string) (*RegisteredStep, bool) {
	step, ok := r.steps[name]
	return step, ok
}

// Validate checks that every step in every workflow names a registered
// runner type, so unknown types fail at startup rather than mid-run.
func (r *Registry) Validate(workflows []*model.Workflow) error {
	for _, wf := range workflows {
		for _, job := range wf.Jobs {
			for _, step := range job.Steps {
				if _, ok := r.steps[step.RunnerType]; !ok {
					return fmt.Errorf("workflow %q: job %q: step %q uses unregistered runner type %q",
						wf.Name, job.Name, step.Name, step.RunnerType)
				}
			}
		}
	}
	return nil
}
