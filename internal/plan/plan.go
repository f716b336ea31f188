// Package plan turns a triggered workflow job into the ordered list of
// steps to execute. Each step's gate expression is evaluated against
// the run's evaluation context; gated-out steps stay in the plan marked
// as skipped so a dry run can show exactly what a real run would do.
package plan

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/pagemill/pagemill/internal/ctxlog"
	"github.com/pagemill/pagemill/internal/event"
	"github.com/pagemill/pagemill/internal/model"
	"github.com/pagemill/pagemill/internal/secrets"
)

// Plan is the resolved step sequence for one job of one workflow.
type Plan struct {
	Workflow string
	Job      string
	Steps    []*PlannedStep
}

// PlannedStep is a step together with its gate decision.
type PlannedStep struct {
	Step *model.Step

	// Skip is true when the step's gate expression evaluated to false.
	Skip bool

	// SkipReason explains the gate decision for dry-run output.
	SkipReason string
}

// Runnable returns the number of steps that will actually execute.
func (p *Plan) Runnable() int {
	n := 0
	for _, s := range p.Steps {
		if !s.Skip {
			n++
		}
	}
	return n
}

// BaseContext builds the root HCL evaluation context for a run. It
// exposes the event under event.* and the secret values under
// secrets.*. The executor layers step outputs on top as child contexts.
func BaseContext(ev *event.Event, sec *secrets.Store) *hcl.EvalContext {
	eventVals := map[string]cty.Value{
		"kind":   cty.StringVal(string(ev.Kind)),
		"branch": cty.StringVal(ev.Branch),
		"paths":  pathsVal(ev.Paths),
	}

	secretVals := make(map[string]cty.Value)
	for name, value := range sec.Values() {
		secretVals[name] = cty.StringVal(value)
	}
	secretsObj := cty.EmptyObjectVal
	if len(secretVals) > 0 {
		secretsObj = cty.ObjectVal(secretVals)
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"event":   cty.ObjectVal(eventVals),
			"secrets": secretsObj,
		},
	}
}

func pathsVal(paths []string) cty.Value {
	if len(paths) == 0 {
		return cty.ListValEmpty(cty.String)
	}
	vals := make([]cty.Value, len(paths))
	for i, p := range paths {
		vals[i] = cty.StringVal(p)
	}
	return cty.ListVal(vals)
}

// Build resolves the job's steps against the evaluation context. Gate
// expressions must yield a boolean; anything else is a definition
// error.
func Build(ctx context.Context, wf *model.Workflow, job *model.Job, evalCtx *hcl.EvalContext) (*Plan, error) {
	logger := ctxlog.FromContext(ctx)

	p := &Plan{Workflow: wf.Name, Job: job.Name}
	for _, step := range job.Steps {
		planned := &PlannedStep{Step: step}

		if step.If != nil {
			include, err := evalGate(step, evalCtx)
			if err != nil {
				return nil, err
			}
			if !include {
				planned.Skip = true
				planned.SkipReason = "gate condition is false for this event"
				logger.Debug("Step gated out of plan.", "step", step.ID())
			}
		}

		p.Steps = append(p.Steps, planned)
	}

	logger.Debug("Plan built.", "workflow", wf.Name, "job", job.Name,
		"steps", len(p.Steps), "runnable", p.Runnable())
	return p, nil
}

func evalGate(step *model.Step, evalCtx *hcl.EvalContext) (bool, error) {
	val, diags := step.If.Value(evalCtx)
	if diags.HasErrors() {
		return false, fmt.Errorf("evaluating gate of step %q: %w", step.ID(), diags)
	}

	boolVal, err := convert.Convert(val, cty.Bool)
	if err != nil {
		return false, fmt.Errorf("gate of step %q must be a boolean, got %s",
			step.ID(), val.Type().FriendlyName())
	}
	if boolVal.IsNull() {
		return false, fmt.Errorf("gate of step %q evaluated to null", step.ID())
	}
	return boolVal.True(), nil
}
