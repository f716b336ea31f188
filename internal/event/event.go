// Package event models the repository events that can trigger a
// workflow run: a push to a branch, a pull request, or a manual
// dispatch. Events arrive as small YAML payloads on the command line.
package event

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Kind identifies the event variety.
type Kind string

const (
	Push        Kind = "push"
	PullRequest Kind = "pull_request"
	Dispatch    Kind = "dispatch"
)

// Event describes what happened in the source repository.
type Event struct {
	Kind Kind `yaml:"kind"`

	// Branch is the branch the push landed on, or the base branch of a
	// pull request. Empty for dispatch events.
	Branch string `yaml:"branch,omitempty"`

	// Paths lists the files changed by the push or pull request,
	// relative to the repository root. Empty for dispatch events.
	Paths []string `yaml:"paths,omitempty"`
}

// Load reads and validates an event payload from a YAML file.
func Load(path string) (*Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("event payload %s: %w", path, err)
	}

	var ev Event
	if err := yaml.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("parsing event payload %s: %w", path, err)
	}
	if err := ev.Validate(); err != nil {
		return nil, fmt.Errorf("event payload %s: %w", path, err)
	}
	return &ev, nil
}

// Validate checks that the payload is internally consistent.
func (e *Event) Validate() error {
	switch e.Kind {
	case Push:
		if e.Branch == "" {
			return fmt.Errorf("push events require a branch")
		}
	case PullRequest, Dispatch:
		// Branch is optional for pull requests and absent for dispatch.
	case "":
		return fmt.Errorf("event kind is required")
	default:
		return fmt.Errorf("unknown event kind %q", e.Kind)
	}
	return nil
}

// String renders the event for log output.
func (e *Event) String() string {
	switch e.Kind {
	case Push:
		return fmt.Sprintf("push to %s (%d paths)", e.Branch, len(e.Paths))
	case PullRequest:
		return fmt.Sprintf("pull request against %s (%d paths)", e.Branch, len(e.Paths))
	default:
		return string(e.Kind)
	}
}
