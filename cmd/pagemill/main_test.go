package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagemill/pagemill/internal/app"
)

func TestRun_HelpFlag(t *testing.T) {
	var out app.SafeBuffer

	err := run(&out, []string{"-h"})

	require.NoError(t, err)
	assert.Contains(t, out.String(), "Usage:")
}

func TestRun_NoArgsPrintsUsage(t *testing.T) {
	var out app.SafeBuffer

	err := run(&out, nil)

	require.NoError(t, err)
	assert.Contains(t, out.String(), "Usage:")
}

func TestRun_StartupPanicIsRecovered(t *testing.T) {
	tmpDir := t.TempDir()
	workflowPath := filepath.Join(tmpDir, "broken.hcl")
	require.NoError(t, os.WriteFile(workflowPath, []byte(`workflow "broken" {`), 0o644))
	eventPath := filepath.Join(tmpDir, "event.yaml")
	require.NoError(t, os.WriteFile(eventPath, []byte("kind: dispatch\n"), 0o644))

	var out app.SafeBuffer
	err := run(&out, []string{"--workflow", workflowPath, "--event", eventPath})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "application startup panicked")
}

func TestRun_MissingEventFlag(t *testing.T) {
	var out app.SafeBuffer

	err := run(&out, []string{"--workflow", "whatever.hcl"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "event")
}

func TestRun_DryRunEndToEnd(t *testing.T) {
	tmpDir := t.TempDir()
	workflowPath := filepath.Join(tmpDir, "docs.hcl")
	require.NoError(t, os.WriteFile(workflowPath, []byte(`
workflow "docs" {
  on {
    push {
      branches = ["main"]
      paths    = ["documentation/"]
    }
  }
  job "build" {
    step "command" "hello" {
      arguments {
        run = "echo hello"
      }
    }
  }
}
`), 0o644))
	eventPath := filepath.Join(tmpDir, "event.yaml")
	require.NoError(t, os.WriteFile(eventPath, []byte(`
kind: push
branch: main
paths:
  - documentation/guide.md
`), 0o644))

	var out app.SafeBuffer
	err := run(&out, []string{"--workflow", workflowPath, "--event", eventPath, "--dry-run"})

	require.NoError(t, err)
	assert.Contains(t, out.String(), "run   command.hello")
}
