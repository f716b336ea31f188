// Package command provides the 'command' step: it runs a shell command
// inside the workspace. A non-zero exit halts the job, matching the
// fail-fast contract of the executor.
package command

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/pagemill/pagemill/internal/ctxlog"
	"github.com/pagemill/pagemill/internal/registry"
)

// Module implements registry.Module.
type Module struct{}

// Input defines the arguments for the command step.
type Input struct {
	// Run is the shell command line, executed with 'sh -c'.
	Run string `hcl:"run"`

	// Dir is the working directory relative to the workspace. Empty
	// means the workspace root.
	Dir string `hcl:"dir,optional"`

	// Env adds environment variables for this command only.
	Env map[string]string `hcl:"env,optional"`
}

// OnRunCommand executes the command line and streams its combined
// output to the run log.
func OnRunCommand(ctx context.Context, run *registry.RunContext, input any) (map[string]cty.Value, error) {
	in := input.(*Input)
	logger := ctxlog.FromContext(ctx)

	if strings.TrimSpace(in.Run) == "" {
		return nil, fmt.Errorf("'run' must not be empty")
	}

	dir := run.Workspace
	if in.Dir != "" {
		dir = filepath.Join(run.Workspace, in.Dir)
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", in.Run)
	cmd.Dir = dir
	cmd.Env = mergedEnv(run.Env, in.Env)

	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined

	logger.Info("Running command.", "run", in.Run, "dir", dir)
	err := cmd.Run()

	scanner := bufio.NewScanner(&combined)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		logger.Info("  | " + scanner.Text())
	}
	if scanErr := scanner.Err(); scanErr != nil {
		logger.Warn("Command output truncated.", "error", scanErr)
	}

	if err != nil {
		return nil, fmt.Errorf("command %q: %w", in.Run, err)
	}

	return nil, nil
}

// mergedEnv layers the run environment and the step's own env on top of
// the process environment. Later entries win.
func mergedEnv(runEnv, stepEnv map[string]string) []string {
	env := os.Environ()
	for k, v := range runEnv {
		env = append(env, k+"="+v)
	}
	for k, v := range stepEnv {
		env = append(env, k+"="+v)
	}
	return env
}

// Register registers the handler with the application registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterStep("command", &registry.RegisteredStep{
		NewInput: func() any { return new(Input) },
		Fn:       OnRunCommand,
	})
}
