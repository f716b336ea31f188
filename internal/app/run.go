package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pagemill/pagemill/internal/ctxlog"
	"github.com/pagemill/pagemill/internal/event"
	"github.com/pagemill/pagemill/internal/executor"
	"github.com/pagemill/pagemill/internal/model"
	"github.com/pagemill/pagemill/internal/plan"
	"github.com/pagemill/pagemill/internal/registry"
	"github.com/pagemill/pagemill/internal/secrets"
	"github.com/pagemill/pagemill/internal/trigger"
)

// Run loads the event, matches it against every workflow, and executes
// (or, in dry-run mode, prints) the plan of each triggered job. The
// first failing job aborts the run.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	ev, err := event.Load(a.config.EventPath)
	if err != nil {
		return err
	}
	a.logger.Info("Event loaded.", "event", ev.String())

	sec := secrets.Empty()
	if a.config.SecretsPath != "" {
		sec, err = secrets.Load(a.config.SecretsPath, a.config.SecretsIdentityPath)
		if err != nil {
			return err
		}
		a.logger.Debug("Secrets loaded.", "names", sec.Names())
	}

	triggered := 0
	for _, wf := range a.workflows {
		matched, reason := trigger.Match(wf.Triggers, ev)
		if !matched {
			a.logger.Info("Workflow not triggered.", "workflow", wf.Name, "reason", reason)
			continue
		}
		triggered++
		a.logger.Info("Workflow triggered.", "workflow", wf.Name, "reason", reason)

		jobs := wf.Jobs
		if a.config.JobName != "" {
			job := wf.Job(a.config.JobName)
			if job == nil {
				return fmt.Errorf("workflow %q has no job %q", wf.Name, a.config.JobName)
			}
			jobs = []*model.Job{job}
		}

		for _, job := range jobs {
			if err := a.runJob(ctx, wf, job, ev, sec); err != nil {
				return err
			}
		}
	}

	if triggered == 0 {
		a.logger.Info("No workflow triggered by this event.")
	}
	return nil
}

// runJob plans one job and either prints the plan (dry run) or executes
// it in a fresh workspace.
func (a *App) runJob(ctx context.Context, wf *model.Workflow, job *model.Job, ev *event.Event, sec *secrets.Store) error {
	logger := a.logger.With("workflow", wf.Name, "job", job.Name)
	jobCtx := ctxlog.WithLogger(ctx, logger)

	base := plan.BaseContext(ev, sec)
	p, err := plan.Build(jobCtx, wf, job, base)
	if err != nil {
		return err
	}

	if a.config.DryRun {
		a.printPlan(p, ev)
		return nil
	}

	workspace, err := os.MkdirTemp(a.settings.WorkspaceRoot, "pagemill-"+wf.Name+"-")
	if err != nil {
		return fmt.Errorf("creating workspace: %w", err)
	}
	logger.Debug("Workspace created.", "workspace", workspace)

	runCtx := &registry.RunContext{
		Workspace: workspace,
		Env: map[string]string{
			"PAGEMILL_WORKFLOW":  wf.Name,
			"PAGEMILL_JOB":       job.Name,
			"PAGEMILL_EVENT":     string(ev.Kind),
			"PAGEMILL_WORKSPACE": workspace,
		},
		Secrets: sec,
	}

	exec := executor.New(a.registry, runCtx)
	if !a.settings.KeepWorkspace {
		exec.PushCleanup(func(ctx context.Context) {
			if err := os.RemoveAll(workspace); err != nil {
				ctxlog.FromContext(ctx).Warn("Failed to remove workspace.", "workspace", workspace, "error", err)
			}
		})
	} else {
		exec.PushCleanup(func(ctx context.Context) {
			ctxlog.FromContext(ctx).Info("Keeping workspace.", "workspace", workspace)
		})
	}

	result, runErr := exec.Run(jobCtx, p, base)
	a.printSummary(result)
	if runErr != nil {
		return fmt.Errorf("workflow %q job %q: %w", wf.Name, job.Name, runErr)
	}
	return nil
}

// printPlan writes the dry-run view of a plan to the output writer.
func (a *App) printPlan(p *plan.Plan, ev *event.Event) {
	fmt.Fprintf(a.outW, "workflow %q job %q on %s:\n", p.Workflow, p.Job, ev.String())
	for _, step := range p.Steps {
		if step.Skip {
			fmt.Fprintf(a.outW, "  skip  %-24s (%s)\n", step.Step.ID(), step.SkipReason)
			continue
		}
		fmt.Fprintf(a.outW, "  run   %s\n", step.Step.ID())
	}
}

// printSummary writes the per-step outcome table after a run.
func (a *App) printSummary(result *executor.Result) {
	if result == nil {
		return
	}
	fmt.Fprintf(a.outW, "workflow %q job %q:\n", result.Workflow, result.Job)
	for _, step := range result.Steps {
		switch step.Status {
		case executor.StatusSucceeded:
			fmt.Fprintf(a.outW, "  ok    %-24s %s\n", step.StepID, step.Duration.Round(time.Millisecond))
		case executor.StatusFailed:
			fmt.Fprintf(a.outW, "  fail  %-24s %v\n", step.StepID, step.Err)
		case executor.StatusSkipped:
			fmt.Fprintf(a.outW, "  skip  %-24s (%s)\n", step.StepID, step.Reason)
		}
	}
}
