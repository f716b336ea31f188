package integration_tests

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagemill/pagemill/internal/registry"
	"github.com/pagemill/pagemill/internal/testutil"
)

func TestRun_EventOutsideFiltersTriggersNothing(t *testing.T) {
	eventYAML := `
kind: push
branch: main
paths:
  - src/main.go
`
	recorder := &testutil.RecorderModule{}
	result := testutil.RunWorkflowTest(t, gatedWorkflow, eventYAML, testutil.Options{
		Modules: []registry.Module{recorder},
	})

	require.NoError(t, result.Err, "an event that triggers nothing is not a failure")
	assert.Empty(t, recorder.Ran())
	assert.Contains(t, result.Output, "No workflow triggered")
}

func TestRun_PushToOtherBranchTriggersNothing(t *testing.T) {
	eventYAML := `
kind: push
branch: feature/docs-tweak
paths:
  - documentation/guide.md
`
	recorder := &testutil.RecorderModule{}
	result := testutil.RunWorkflowTest(t, gatedWorkflow, eventYAML, testutil.Options{
		Modules: []registry.Module{recorder},
	})

	require.NoError(t, result.Err)
	assert.Empty(t, recorder.Ran())
	assert.Contains(t, result.Output, "Workflow not triggered")
}
