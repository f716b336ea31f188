// Package pages provides the 'pages' step: it publishes a built HTML
// directory into a target path inside a separate pages repository,
// committing and pushing through the git CLI. This is the only step
// with a side effect outside the run workspace, which is why workflows
// gate it on pushes to the main branch.
package pages

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/pagemill/pagemill/internal/ctxlog"
	"github.com/pagemill/pagemill/internal/fsutil"
	"github.com/pagemill/pagemill/internal/registry"
)

// Module implements registry.Module.
type Module struct{}

// Input defines the arguments for the pages step.
type Input struct {
	// From is the built site directory, relative to the workspace
	// unless absolute.
	From string `hcl:"from"`

	// Repo is the pages repository: an https URL or a local path.
	Repo string `hcl:"repo"`

	// Path is the directory inside the pages repository that the site
	// replaces, e.g. "developer_manual".
	Path string `hcl:"path"`

	// Branch of the pages repository to push to. Defaults to "main".
	Branch string `hcl:"branch,optional"`

	// Token authenticates the push for https repositories. Usually
	// wired from the secrets store: token = secrets.PAGES_TOKEN.
	// Never logged.
	Token string `hcl:"token,optional"`

	// Message overrides the default commit message.
	Message string `hcl:"message,optional"`

	AuthorName  string `hcl:"author_name,optional"`
	AuthorEmail string `hcl:"author_email,optional"`
}

// OnRunPages clones the pages repository, replaces the target path with
// the built site, and pushes the resulting commit. If the site is
// identical to what the repository already holds, nothing is pushed.
func OnRunPages(ctx context.Context, run *registry.RunContext, input any) (map[string]cty.Value, error) {
	in := input.(*Input)
	logger := ctxlog.FromContext(ctx)

	if in.Path == "" || in.Path == "." || !filepath.IsLocal(in.Path) {
		return nil, fmt.Errorf("'path' must be a relative directory inside the pages repository")
	}

	from := in.From
	if !filepath.IsAbs(from) {
		from = filepath.Join(run.Workspace, from)
	}
	branch := in.Branch
	if branch == "" {
		branch = "main"
	}

	cloneURL, err := authenticatedURL(in.Repo, in.Token)
	if err != nil {
		return nil, err
	}

	checkout := filepath.Join(run.Workspace, ".pages-checkout")
	git := &gitRunner{dir: checkout, redact: in.Token}

	logger.Info("Cloning pages repository.", "repo", in.Repo, "branch", branch)
	if _, err := git.runIn(ctx, run.Workspace,
		"clone", "--depth", "1", "--branch", branch, cloneURL, checkout); err != nil {
		return nil, fmt.Errorf("cloning pages repository: %w", err)
	}

	target := filepath.Join(checkout, in.Path)
	if err := os.RemoveAll(target); err != nil {
		return nil, fmt.Errorf("clearing %s: %w", in.Path, err)
	}
	if err := fsutil.CopyTree(from, target, ".git"); err != nil {
		return nil, fmt.Errorf("staging site into %s: %w", in.Path, err)
	}

	if _, err := git.run(ctx, "add", "-A", "--", in.Path); err != nil {
		return nil, fmt.Errorf("staging changes: %w", err)
	}

	status, err := git.run(ctx, "status", "--porcelain")
	if err != nil {
		return nil, fmt.Errorf("checking for changes: %w", err)
	}
	if strings.TrimSpace(status) == "" {
		logger.Info("Pages already up to date, nothing to push.")
		return map[string]cty.Value{
			"pushed": cty.BoolVal(false),
			"commit": cty.StringVal(""),
		}, nil
	}

	message := in.Message
	if message == "" {
		message = fmt.Sprintf("Update %s", in.Path)
	}
	commitArgs := []string{"commit", "-m", message}
	if in.AuthorName != "" && in.AuthorEmail != "" {
		commitArgs = append(commitArgs,
			"--author", fmt.Sprintf("%s <%s>", in.AuthorName, in.AuthorEmail))
	}
	git.env = commitEnv(in.AuthorName, in.AuthorEmail)
	if _, err := git.run(ctx, commitArgs...); err != nil {
		return nil, fmt.Errorf("committing: %w", err)
	}

	commit, err := git.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return nil, fmt.Errorf("resolving commit: %w", err)
	}
	commit = strings.TrimSpace(commit)

	logger.Info("Pushing pages.", "branch", branch, "commit", commit)
	if _, err := git.run(ctx, "push", "origin", "HEAD:"+branch); err != nil {
		return nil, fmt.Errorf("pushing: %w", err)
	}

	return map[string]cty.Value{
		"pushed": cty.BoolVal(true),
		"commit": cty.StringVal(commit),
	}, nil
}

// authenticatedURL injects the deploy token into an https repository
// URL. Local paths and tokenless URLs pass through unchanged.
func authenticatedURL(repo, token string) (string, error) {
	if token == "" || !strings.HasPrefix(repo, "https://") {
		return repo, nil
	}
	u, err := url.Parse(repo)
	if err != nil {
		return "", fmt.Errorf("parsing repo URL: %w", err)
	}
	u.User = url.UserPassword("x-access-token", token)
	return u.String(), nil
}

// commitEnv supplies committer identity so git never falls back to the
// host's global configuration inside the ephemeral checkout.
func commitEnv(name, email string) []string {
	if name == "" {
		name = "pagemill"
	}
	if email == "" {
		email = "pagemill@localhost"
	}
	return append(os.Environ(),
		"GIT_COMMITTER_NAME="+name,
		"GIT_COMMITTER_EMAIL="+email,
		"GIT_AUTHOR_NAME="+name,
		"GIT_AUTHOR_EMAIL="+email,
	)
}

// gitRunner runs git commands in a checkout, scrubbing the deploy token
// from command output before it can reach an error message or log.
type gitRunner struct {
	dir    string
	redact string
	env    []string
}

func (g *gitRunner) run(ctx context.Context, args ...string) (string, error) {
	return g.runIn(ctx, g.dir, args...)
}

func (g *gitRunner) runIn(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	if g.env != nil {
		cmd.Env = g.env
	}
	out, err := cmd.CombinedOutput()
	text := g.scrub(string(out))
	if err != nil {
		return text, fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(text))
	}
	return text, nil
}

func (g *gitRunner) scrub(s string) string {
	if g.redact == "" {
		return s
	}
	return strings.ReplaceAll(s, g.redact, "***")
}

// Register registers the handler with the application registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterStep("pages", &registry.RegisteredStep{
		NewInput: func() any { return new(Input) },
		Fn:       OnRunPages,
	})
}
