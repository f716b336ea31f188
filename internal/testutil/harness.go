// Package testutil provides the integration test harness: it writes
// inline workflow and event fixtures to a temp directory, builds an app
// around them, and captures the run's combined output.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pagemill/pagemill/internal/app"
	"github.com/pagemill/pagemill/internal/registry"
)

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	// Output is the combined log and plan output of the run.
	Output string

	// Err is the run error, including recovered startup panics.
	Err error

	// App is the constructed application, nil when startup panicked.
	App *app.App

	// Workspace fixtures created by Files end up under this directory.
	Dir string
}

// Options adjusts the harness behavior.
type Options struct {
	// DryRun plans without executing.
	DryRun bool

	// JobName restricts the run to one job.
	JobName string

	// Files are extra fixtures written relative to the temp dir before
	// the run (e.g. a docs tree for a checkout step to copy).
	Files map[string]string

	// SecretsFile names a Files entry to load as the secrets store.
	SecretsFile string

	// Modules overrides the registered step modules. Nil uses the
	// built-in set.
	Modules []registry.Module
}

// RunWorkflowTest writes the workflow HCL and event YAML to a temp
// directory, builds an app, and runs it.
func RunWorkflowTest(t *testing.T, workflowHCL, eventYAML string, opts Options) *HarnessResult {
	t.Helper()
	return RunWorkflowTestWithContext(context.Background(), t, workflowHCL, eventYAML, opts)
}

// RunWorkflowTestWithContext is RunWorkflowTest with a caller-supplied
// context, for cancellation tests.
func RunWorkflowTestWithContext(ctx context.Context, t *testing.T, workflowHCL, eventYAML string, opts Options) *HarnessResult {
	t.Helper()

	tmpDir := t.TempDir()

	workflowPath := filepath.Join(tmpDir, "workflow.hcl")
	require.NoError(t, os.WriteFile(workflowPath, []byte(workflowHCL), 0o644))

	eventPath := filepath.Join(tmpDir, "event.yaml")
	require.NoError(t, os.WriteFile(eventPath, []byte(eventYAML), 0o644))

	for name, content := range opts.Files {
		path := filepath.Join(tmpDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	secretsPath := ""
	if opts.SecretsFile != "" {
		secretsPath = filepath.Join(tmpDir, opts.SecretsFile)
	}

	cfg, err := app.NewConfig(app.Config{
		WorkflowPath: workflowPath,
		EventPath:    eventPath,
		JobName:      opts.JobName,
		SecretsPath:  secretsPath,
		DryRun:       opts.DryRun,
		LogLevel:     "debug",
		LogFormat:    "text",
	})
	require.NoError(t, err)

	result := &HarnessResult{Dir: tmpDir}

	// NewApp panics on startup errors; fold those into the result so
	// tests can assert on them like any other failure.
	var testApp *app.App
	var logBuffer *app.SafeBuffer
	func() {
		defer func() {
			if r := recover(); r != nil {
				result.Err = fmt.Errorf("startup panicked: %v", r)
			}
		}()
		testApp, logBuffer = app.SetupAppTest(t, cfg, opts.Modules...)
	}()
	if result.Err != nil {
		return result
	}

	result.App = testApp
	result.Err = testApp.Run(ctx)
	result.Output = logBuffer.String()
	return result
}
