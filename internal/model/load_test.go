package model

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeWorkflow(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "workflow.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const docsWorkflow = `
workflow "docs" {
  on {
    push {
      branches = ["main"]
      paths    = ["docs/"]
    }
    pull_request {
      paths = ["docs/"]
    }
    dispatch {}
  }

  job "build" {
    step "checkout" "source" {
      arguments {
        from = "/repo"
      }
    }
    step "command" "install" {
      arguments {
        run = "pip install .[docs]"
      }
    }
    step "pages" "deploy" {
      if = event.kind == "push" && event.branch == "main"
      arguments {
        from = "site"
        repo = "https://example.com/pages.git"
        path = "developer_manual"
      }
    }
  }
}
`

func TestLoad_FullWorkflow(t *testing.T) {
	path := writeWorkflow(t, docsWorkflow)

	workflows, err := Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, workflows, 1)

	wf := workflows[0]
	assert.Equal(t, "docs", wf.Name)
	assert.Equal(t, path, wf.SourceFile)

	require.NotNil(t, wf.Triggers)
	require.NotNil(t, wf.Triggers.Push)
	assert.Equal(t, []string{"main"}, wf.Triggers.Push.Branches)
	assert.Equal(t, []string{"docs/"}, wf.Triggers.Push.Paths)
	require.NotNil(t, wf.Triggers.PullRequest)
	assert.Equal(t, []string{"docs/"}, wf.Triggers.PullRequest.Paths)
	assert.True(t, wf.Triggers.Dispatch)

	require.Len(t, wf.Jobs, 1)
	job := wf.Jobs[0]
	assert.Equal(t, "build", job.Name)
	require.Len(t, job.Steps, 3)

	assert.Equal(t, "checkout.source", job.Steps[0].ID())
	assert.NotNil(t, job.Steps[0].Arguments)

	deploy := job.Steps[2]
	assert.Equal(t, "pages.deploy", deploy.ID())
	assert.NotNil(t, deploy.If, "deploy step must carry its gate expression")
}

func TestLoad_UngatedStepsHaveNilIf(t *testing.T) {
	path := writeWorkflow(t, docsWorkflow)

	workflows, err := Load(context.Background(), path)
	require.NoError(t, err)
	job := workflows[0].Jobs[0]

	// gohcl substitutes a synthetic null expression for an absent
	// optional attribute; steps without an `if` must still come out nil
	// so planning treats them as unconditional.
	assert.Nil(t, job.Steps[0].If)
	assert.Nil(t, job.Steps[1].If)
	assert.NotNil(t, job.Steps[2].If)
}

func TestLoad_Directory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.hcl"), []byte(`
workflow "a" {
  on {
    dispatch {}
  }
  job "j" {
    step "command" "x" {
      arguments { run = "true" }
    }
  }
}
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "b.hcl"), []byte(`
workflow "b" {
  on {
    dispatch {}
  }
  job "j" {
    step "command" "x" {
      arguments { run = "true" }
    }
  }
}
`), 0o644))

	workflows, err := Load(context.Background(), dir)
	require.NoError(t, err)
	assert.Len(t, workflows, 2)
}

func TestLoad_DuplicateWorkflowNames(t *testing.T) {
	dir := t.TempDir()
	body := `
workflow "docs" {
  on {
    dispatch {}
  }
  job "j" {
    step "command" "x" {
      arguments { run = "true" }
    }
  }
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.hcl"), []byte(body), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.hcl"), []byte(body), 0o644))

	_, err := Load(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "defined in both")
}

func TestLoad_SyntaxError(t *testing.T) {
	path := writeWorkflow(t, `workflow "broken" {`)

	_, err := Load(context.Background(), path)
	require.Error(t, err)
}

func TestLoad_MissingPath(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.hcl"))
	require.Error(t, err)
}

func TestValidate_NoTriggers(t *testing.T) {
	path := writeWorkflow(t, `
workflow "docs" {
  on {}
  job "j" {
    step "command" "x" {
      arguments { run = "true" }
    }
  }
}
`)
	_, err := Load(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one trigger")
}

func TestValidate_EmptyJob(t *testing.T) {
	path := writeWorkflow(t, `
workflow "docs" {
  on {
    dispatch {}
  }
  job "empty" {}
}
`)
	_, err := Load(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no steps")
}

func TestValidate_DuplicateSteps(t *testing.T) {
	path := writeWorkflow(t, `
workflow "docs" {
  on {
    dispatch {}
  }
  job "j" {
    step "command" "x" {
      arguments { run = "true" }
    }
    step "command" "x" {
      arguments { run = "false" }
    }
  }
}
`)
	_, err := Load(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "twice")
}

func TestWorkflow_JobLookup(t *testing.T) {
	path := writeWorkflow(t, docsWorkflow)
	workflows, err := Load(context.Background(), path)
	require.NoError(t, err)

	wf := workflows[0]
	require.NotNil(t, wf.Job("build"))
	require.Nil(t, wf.Job("missing"))
}
