package model

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/pagemill/pagemill/internal/ctxlog"
	"github.com/pagemill/pagemill/internal/fsutil"
)

// hclWorkflowFile is the top-level structure of a workflow file.
type hclWorkflowFile struct {
	Workflows []*hclWorkflow `hcl:"workflow,block"`
}

type hclWorkflow struct {
	Name string       `hcl:"name,label"`
	On   *hclTriggers `hcl:"on,block"`
	Jobs []*hclJob    `hcl:"job,block"`
	Body hcl.Body     `hcl:",remain"`
}

type hclTriggers struct {
	Push        *hclPushFilter        `hcl:"push,block"`
	PullRequest *hclPullRequestFilter `hcl:"pull_request,block"`
	Dispatch    *hclDispatch          `hcl:"dispatch,block"`
}

type hclPushFilter struct {
	Branches []string `hcl:"branches,optional"`
	Paths    []string `hcl:"paths,optional"`
}

type hclPullRequestFilter struct {
	Paths []string `hcl:"paths,optional"`
}

type hclDispatch struct{}

type hclJob struct {
	Name  string     `hcl:"name,label"`
	Steps []*hclStep `hcl:"step,block"`
}

type hclStep struct {
	RunnerType string         `hcl:"runner_type,label"`
	Name       string         `hcl:"instance_name,label"`
	If         hcl.Expression `hcl:"if,optional"`
	Arguments  *hclArguments  `hcl:"arguments,block"`
}

type hclArguments struct {
	Body hcl.Body `hcl:",remain"`
}

// Load reads workflow definitions from a single .hcl file or,
// recursively, from every .hcl file under a directory. All discovered
// workflows are validated before any are returned.
func Load(ctx context.Context, path string) ([]*Workflow, error) {
	logger := ctxlog.FromContext(ctx)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("workflow path %s: %w", path, err)
	}

	files := []string{path}
	if info.IsDir() {
		files, err = fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			return nil, fmt.Errorf("scanning %s for workflow files: %w", path, err)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl workflow files found under %s", path)
	}

	parser := hclparse.NewParser()
	var workflows []*Workflow
	for _, file := range files {
		loaded, err := loadFile(file, parser)
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, loaded...)
	}

	names := make(map[string]string, len(workflows))
	for _, wf := range workflows {
		if prev, dup := names[wf.Name]; dup {
			return nil, fmt.Errorf("workflow %q defined in both %s and %s", wf.Name, prev, wf.SourceFile)
		}
		names[wf.Name] = wf.SourceFile
		if err := wf.Validate(); err != nil {
			return nil, err
		}
	}

	logger.Debug("Workflow definitions loaded.", "files", len(files), "workflows", len(workflows))
	return workflows, nil
}

// loadFile parses one HCL file and converts its workflow blocks into
// the public model.
func loadFile(filePath string, parser *hclparse.Parser) ([]*Workflow, error) {
	hclFile, diags := parser.ParseHCLFile(filePath)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing %s: %w", filePath, diags)
	}

	var parsed hclWorkflowFile
	if diags := gohcl.DecodeBody(hclFile.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("decoding %s: %w", filePath, diags)
	}

	workflows := make([]*Workflow, 0, len(parsed.Workflows))
	for _, raw := range parsed.Workflows {
		workflows = append(workflows, newWorkflow(raw, filePath))
	}
	return workflows, nil
}

func newWorkflow(raw *hclWorkflow, filePath string) *Workflow {
	wf := &Workflow{
		Name:       raw.Name,
		SourceFile: filePath,
	}

	if raw.On != nil {
		triggers := &Triggers{}
		if raw.On.Push != nil {
			triggers.Push = &PushFilter{
				Branches: raw.On.Push.Branches,
				Paths:    raw.On.Push.Paths,
			}
		}
		if raw.On.PullRequest != nil {
			triggers.PullRequest = &PullRequestFilter{
				Paths: raw.On.PullRequest.Paths,
			}
		}
		triggers.Dispatch = raw.On.Dispatch != nil
		wf.Triggers = triggers
	}

	for _, rawJob := range raw.Jobs {
		job := &Job{Name: rawJob.Name}
		for _, rawStep := range rawJob.Steps {
			step := &Step{
				RunnerType: rawStep.RunnerType,
				Name:       rawStep.Name,
				If:         gateExpr(rawStep.If),
			}
			if rawStep.Arguments != nil {
				step.Arguments = rawStep.Arguments.Body
			}
			if step.If != nil {
				step.DeclRange = step.If.Range()
			}
			job.Steps = append(job.Steps, step)
		}
		wf.Jobs = append(wf.Jobs, job)
	}

	return wf
}

// gateExpr distinguishes a declared `if` attribute from the synthetic
// null expression gohcl substitutes for an absent optional one. The
// synthetic expression has a zero-length source range; real source
// text never does.
func gateExpr(expr hcl.Expression) hcl.Expression {
	if expr == nil {
		return nil
	}
	if rng := expr.Range(); rng.Start.Byte == rng.End.Byte {
		return nil
	}
	return expr
}
