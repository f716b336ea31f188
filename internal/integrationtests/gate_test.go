package integration_tests

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagemill/pagemill/internal/registry"
	"github.com/pagemill/pagemill/internal/testutil"
)

// gatedWorkflow mirrors the typical docs pipeline shape: the deploy
// step only runs for pushes to main, while the build steps run for any
// triggering event.
const gatedWorkflow = `
workflow "docs" {
  on {
    push {
      branches = ["main"]
      paths    = ["documentation/"]
    }
    pull_request {
      paths = ["documentation/"]
    }
  }
  job "build" {
    step "probe" "build" {
      arguments { id = "build" }
    }
    step "probe" "deploy" {
      if = event.kind == "push" && event.branch == "main"
      arguments { id = "deploy" }
    }
  }
}
`

func TestRun_PushToMainIncludesGatedStep(t *testing.T) {
	eventYAML := `
kind: push
branch: main
paths:
  - documentation/guide.md
`
	recorder := &testutil.RecorderModule{}
	result := testutil.RunWorkflowTest(t, gatedWorkflow, eventYAML, testutil.Options{
		Modules: []registry.Module{recorder},
	})

	require.NoError(t, result.Err)
	assert.Equal(t, []string{"build", "deploy"}, recorder.Ran())
}

func TestRun_PullRequestExcludesGatedStep(t *testing.T) {
	eventYAML := `
kind: pull_request
branch: feature/docs-tweak
paths:
  - documentation/guide.md
`
	recorder := &testutil.RecorderModule{}
	result := testutil.RunWorkflowTest(t, gatedWorkflow, eventYAML, testutil.Options{
		Modules: []registry.Module{recorder},
	})

	require.NoError(t, result.Err)
	assert.Equal(t, []string{"build"}, recorder.Ran(),
		"gated deploy step must be skipped, not failed")
	assert.Contains(t, result.Output, "Step gated out")
	assert.Contains(t, result.Output, "skip  probe.deploy")
}

func TestRun_GateCanReadSecrets(t *testing.T) {
	workflowHCL := `
workflow "secretgate" {
  on {
    dispatch {}
  }
  job "build" {
    step "probe" "guarded" {
      if = secrets.DEPLOY_TOKEN != ""
      arguments { id = "guarded" }
    }
  }
}
`
	recorder := &testutil.RecorderModule{}
	result := testutil.RunWorkflowTest(t, workflowHCL, dispatchEvent, testutil.Options{
		Modules: []registry.Module{recorder},
		Files: map[string]string{
			"secrets.env": "DEPLOY_TOKEN = tok-123\n",
		},
		SecretsFile: "secrets.env",
	})

	require.NoError(t, result.Err)
	assert.Equal(t, []string{"guarded"}, recorder.Ran())
}
