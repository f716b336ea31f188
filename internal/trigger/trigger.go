// Package trigger decides whether an incoming event should start a
// workflow run, applying the workflow's branch and path-prefix filters.
package trigger

import (
	"fmt"
	"strings"

	"github.com/pagemill/pagemill/internal/event"
	"github.com/pagemill/pagemill/internal/model"
)

// Match reports whether the event satisfies the workflow's trigger
// filters, with a human-readable reason either way.
func Match(triggers *model.Triggers, ev *event.Event) (bool, string) {
	if triggers == nil {
		return false, "workflow declares no triggers"
	}

	switch ev.Kind {
	case event.Push:
		if triggers.Push == nil {
			return false, "workflow does not trigger on push"
		}
		if !branchMatches(triggers.Push.Branches, ev.Branch) {
			return false, fmt.Sprintf("branch %q not in push branch filter", ev.Branch)
		}
		if !anyPathMatches(triggers.Push.Paths, ev.Paths) {
			return false, "no changed path under the push path filter"
		}
		return true, fmt.Sprintf("push to %q touching filtered paths", ev.Branch)

	case event.PullRequest:
		if triggers.PullRequest == nil {
			return false, "workflow does not trigger on pull requests"
		}
		if !anyPathMatches(triggers.PullRequest.Paths, ev.Paths) {
			return false, "no changed path under the pull request path filter"
		}
		return true, "pull request touching filtered paths"

	case event.Dispatch:
		if !triggers.Dispatch {
			return false, "workflow does not allow manual dispatch"
		}
		return true, "manual dispatch"
	}

	return false, fmt.Sprintf("unsupported event kind %q", ev.Kind)
}

// branchMatches applies a branch filter; an empty filter matches any
// branch.
func branchMatches(filter []string, branch string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, b := range filter {
		if b == branch {
			return true
		}
	}
	return false
}

// anyPathMatches reports whether at least one changed path falls under
// one of the configured prefixes. An empty filter matches anything,
// including an empty change set.
func anyPathMatches(prefixes []string, paths []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, p := range paths {
		if pathMatches(prefixes, p) {
			return true
		}
	}
	return false
}

func pathMatches(prefixes []string, path string) bool {
	cleaned := strings.TrimPrefix(path, "./")
	for _, prefix := range prefixes {
		prefix = strings.TrimPrefix(prefix, "./")
		if strings.HasPrefix(cleaned, prefix) {
			return true
		}
	}
	return false
}
