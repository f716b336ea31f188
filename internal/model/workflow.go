// Package model defines the workflow definition types and the HCL
// decoding that produces them. A workflow declares its trigger filters
// and one or more jobs; a job is an ordered list of steps; a step names
// the runner that executes it and holds its raw arguments body for late
// decoding against the run's evaluation context.
package model

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
)

// Workflow is a single named workflow definition.
type Workflow struct {
	Name     string
	Triggers *Triggers
	Jobs     []*Job

	// SourceFile is the .hcl file the workflow was loaded from.
	SourceFile string
}

// Triggers holds the event filters that decide whether a workflow runs.
// A nil filter means the workflow does not react to that event kind.
type Triggers struct {
	Push        *PushFilter
	PullRequest *PullRequestFilter
	Dispatch    bool
}

// PushFilter matches push events. Empty Branches matches any branch;
// empty Paths matches any changed path.
type PushFilter struct {
	Branches []string
	Paths    []string
}

// PullRequestFilter matches pull request events by changed path prefix.
// Empty Paths matches any changed path.
type PullRequestFilter struct {
	Paths []string
}

// Job is an ordered list of steps executed strictly sequentially.
type Job struct {
	Name  string
	Steps []*Step
}

// Step is a runnable instance of a registered runner. Arguments stays
// an undecoded hcl.Body until execution time so expressions can refer
// to the event, secrets, and earlier step outputs.
type Step struct {
	// RunnerType names the registered handler (e.g. "checkout",
	// "command", "pages").
	RunnerType string

	// Name distinguishes multiple instances of the same runner type
	// within a job.
	Name string

	// If, when non-nil, gates the step: it is evaluated against the
	// run's context and the step only executes if it yields true.
	If hcl.Expression

	// Arguments is the raw body of the step's arguments block. Nil when
	// the step takes no arguments.
	Arguments hcl.Body

	// DeclRange points at the step block for diagnostics.
	DeclRange hcl.Range
}

// ID returns the step's address within its job, e.g. "pages.deploy".
func (s *Step) ID() string {
	return fmt.Sprintf("%s.%s", s.RunnerType, s.Name)
}

// Job returns the named job, or nil if the workflow has no such job.
func (w *Workflow) Job(name string) *Job {
	for _, job := range w.Jobs {
		if job.Name == name {
			return job
		}
	}
	return nil
}

// Validate checks structural invariants that the HCL decoder cannot
// express: every workflow needs at least one trigger and one job, every
// job at least one step, and step instance names must be unique per
// runner type within a job.
func (w *Workflow) Validate() error {
	if w.Triggers == nil || (w.Triggers.Push == nil && w.Triggers.PullRequest == nil && !w.Triggers.Dispatch) {
		return fmt.Errorf("workflow %q: the 'on' block must declare at least one trigger", w.Name)
	}
	if len(w.Jobs) == 0 {
		return fmt.Errorf("workflow %q: at least one job is required", w.Name)
	}
	for _, job := range w.Jobs {
		if len(job.Steps) == 0 {
			return fmt.Errorf("workflow %q: job %q has no steps", w.Name, job.Name)
		}
		seen := make(map[string]struct{}, len(job.Steps))
		for _, step := range job.Steps {
			id := step.ID()
			if _, dup := seen[id]; dup {
				return fmt.Errorf("workflow %q: job %q declares step %q twice", w.Name, job.Name, id)
			}
			seen[id] = struct{}{}
		}
	}
	return nil
}
