// Package executor runs a plan: strictly sequential steps, fail-fast.
// The first step error aborts the job; remaining steps are recorded as
// skipped. There is no retry and no recovery — error handling beyond
// halting is delegated to the step handlers themselves.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/zclconf/go-cty/cty"

	"github.com/pagemill/pagemill/internal/ctxlog"
	"github.com/pagemill/pagemill/internal/plan"
	"github.com/pagemill/pagemill/internal/registry"
)

// Status is the terminal state of a planned step.
type Status int

const (
	// StatusSucceeded means the handler returned without error.
	StatusSucceeded Status = iota
	// StatusFailed means the handler returned an error.
	StatusFailed
	// StatusSkipped means the step never ran: its gate was false, an
	// earlier step failed, or the run was canceled.
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// StepResult records the outcome of one planned step.
type StepResult struct {
	StepID   string
	Status   Status
	Reason   string
	Duration time.Duration
	Err      error
}

// Result collects the outcomes of a whole job run.
type Result struct {
	Workflow string
	Job      string
	Steps    []StepResult
}

// Failed reports whether any step failed.
func (r *Result) Failed() bool {
	for _, s := range r.Steps {
		if s.Status == StatusFailed {
			return true
		}
	}
	return false
}

// Executor executes plans against a registry. It is single-use: one
// executor per job run.
type Executor struct {
	registry *registry.Registry
	run      *registry.RunContext

	// outputs accumulates step outputs keyed by runner type then
	// instance name, exposed to later steps as step.<type>.<name>.
	outputs map[string]map[string]cty.Value

	cleanups []func(context.Context)
}

// New creates an executor for one run.
func New(reg *registry.Registry, run *registry.RunContext) *Executor {
	return &Executor{
		registry: reg,
		run:      run,
		outputs:  make(map[string]map[string]cty.Value),
	}
}

// PushCleanup registers a function to run after the job finishes,
// regardless of outcome. Cleanups run in reverse registration order.
func (e *Executor) PushCleanup(fn func(context.Context)) {
	e.cleanups = append(e.cleanups, fn)
}

// Run executes the plan's steps in order. It returns the per-step
// results together with the first error encountered, if any.
func (e *Executor) Run(ctx context.Context, p *plan.Plan, base *hcl.EvalContext) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	defer e.runCleanups(ctx)

	result := &Result{Workflow: p.Workflow, Job: p.Job}
	var failed error

	for _, planned := range p.Steps {
		step := planned.Step
		stepLogger := logger.With("step", step.ID())
		stepCtx := ctxlog.WithLogger(ctx, stepLogger)

		switch {
		case failed != nil:
			stepLogger.Warn("Skipping step after earlier failure.")
			result.Steps = append(result.Steps, StepResult{
				StepID: step.ID(), Status: StatusSkipped, Reason: "earlier step failed",
			})
			continue
		case ctx.Err() != nil:
			stepLogger.Warn("Skipping step, run canceled.")
			result.Steps = append(result.Steps, StepResult{
				StepID: step.ID(), Status: StatusSkipped, Reason: "run canceled", Err: ctx.Err(),
			})
			if failed == nil {
				failed = ctx.Err()
			}
			continue
		case planned.Skip:
			stepLogger.Info("⏭️ Step gated out, skipping.", "reason", planned.SkipReason)
			result.Steps = append(result.Steps, StepResult{
				StepID: step.ID(), Status: StatusSkipped, Reason: planned.SkipReason,
			})
			continue
		}

		stepLogger.Info("▶️ Starting step")
		start := time.Now()
		outputs, err := e.executeStep(stepCtx, planned, base)
		elapsed := time.Since(start)

		if err != nil {
			stepLogger.Error("❌ Step failed.", "error", err, "duration", elapsed)
			failed = fmt.Errorf("step %q: %w", step.ID(), err)
			result.Steps = append(result.Steps, StepResult{
				StepID: step.ID(), Status: StatusFailed, Duration: elapsed, Err: err,
			})
			continue
		}

		stepLogger.Info("✅ Step finished.", "duration", elapsed)
		result.Steps = append(result.Steps, StepResult{
			StepID: step.ID(), Status: StatusSucceeded, Duration: elapsed,
		})

		if outputs != nil {
			byInstance, ok := e.outputs[step.RunnerType]
			if !ok {
				byInstance = make(map[string]cty.Value)
				e.outputs[step.RunnerType] = byInstance
			}
			byInstance[step.Name] = cty.ObjectVal(outputs)
		}
	}

	return result, failed
}

// executeStep resolves the handler, decodes its arguments against the
// current evaluation context, and invokes it.
func (e *Executor) executeStep(ctx context.Context, planned *plan.PlannedStep, base *hcl.EvalContext) (map[string]cty.Value, error) {
	step := planned.Step

	handler, ok := e.registry.Lookup(step.RunnerType)
	if !ok {
		// Registry validation at startup makes this unreachable in
		// normal operation.
		return nil, fmt.Errorf("unregistered runner type %q", step.RunnerType)
	}

	evalCtx := e.buildEvalContext(base)

	var input any
	if handler.NewInput != nil {
		input = handler.NewInput()
		body := step.Arguments
		if body == nil {
			body = hcl.EmptyBody()
		}
		if diags := gohcl.DecodeBody(body, evalCtx, input); diags.HasErrors() {
			return nil, fmt.Errorf("decoding arguments: %w", diags)
		}
	}

	return handler.Fn(ctx, e.run, input)
}

// buildEvalContext layers the accumulated step outputs on top of the
// base context as step.<runner_type>.<instance_name> objects.
func (e *Executor) buildEvalContext(base *hcl.EvalContext) *hcl.EvalContext {
	byType := make(map[string]cty.Value, len(e.outputs))
	for runnerType, instances := range e.outputs {
		byType[runnerType] = cty.ObjectVal(instances)
	}

	child := base.NewChild()
	child.Variables = map[string]cty.Value{
		"step": cty.ObjectVal(byType),
	}
	return child
}

// runCleanups executes registered cleanups in LIFO order.
func (e *Executor) runCleanups(ctx context.Context) {
	for i := len(e.cleanups) - 1; i >= 0; i-- {
		e.cleanups[i](ctx)
	}
}
