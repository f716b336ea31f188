// Package docs provides the 'docs' step: it renders a tree of Markdown
// files into a static HTML site, with syntax highlighting for fenced
// code blocks.
package docs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/pagemill/pagemill/internal/ctxlog"
	"github.com/pagemill/pagemill/internal/fsutil"
	"github.com/pagemill/pagemill/internal/registry"
)

// Module implements registry.Module.
type Module struct{}

// Input defines the arguments for the docs step.
type Input struct {
	// Source is the directory of Markdown files, relative to the
	// workspace unless absolute.
	Source string `hcl:"source"`

	// Output is the directory the HTML site is written to, relative to
	// the workspace unless absolute.
	Output string `hcl:"output"`

	// Title is the site title used on the generated index page.
	Title string `hcl:"title,optional"`

	// Style selects the chroma highlighting style.
	Style string `hcl:"style,optional"`
}

// OnRunDocs renders every .md file under Source to a mirrored .html
// file under Output and writes an index page linking them all.
func OnRunDocs(ctx context.Context, run *registry.RunContext, input any) (map[string]cty.Value, error) {
	in := input.(*Input)
	logger := ctxlog.FromContext(ctx)

	source := resolve(run.Workspace, in.Source)
	output := resolve(run.Workspace, in.Output)
	title := in.Title
	if title == "" {
		title = "Documentation"
	}
	style := in.Style
	if style == "" {
		style = "github"
	}

	files, err := fsutil.FindFilesByExtension(source, ".md")
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", source, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no Markdown files under %s", source)
	}
	sort.Strings(files)

	renderer := newRenderer(style)
	var pages []sitePage
	for _, file := range files {
		rel, err := filepath.Rel(source, file)
		if err != nil {
			return nil, err
		}
		htmlRel := strings.TrimSuffix(rel, ".md") + ".html"

		page, err := renderer.renderFile(file, htmlRel, title)
		if err != nil {
			return nil, fmt.Errorf("rendering %s: %w", rel, err)
		}

		dest := filepath.Join(output, htmlRel)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(dest, page.html, 0o644); err != nil {
			return nil, fmt.Errorf("writing %s: %w", dest, err)
		}

		pages = append(pages, page)
		logger.Debug("Rendered page.", "source", rel, "output", htmlRel)
	}

	index, err := renderer.renderIndex(title, pages)
	if err != nil {
		return nil, fmt.Errorf("rendering index: %w", err)
	}
	if err := os.WriteFile(filepath.Join(output, "index.html"), index, 0o644); err != nil {
		return nil, fmt.Errorf("writing index: %w", err)
	}

	logger.Info("Documentation site built.", "pages", len(pages), "output", output)
	return map[string]cty.Value{
		"output": cty.StringVal(output),
		"pages":  cty.NumberIntVal(int64(len(pages))),
	}, nil
}

func resolve(workspace, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(workspace, path)
}

// Register registers the handler with the application registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterStep("docs", &registry.RegisteredStep{
		NewInput: func() any { return new(Input) },
		Fn:       OnRunDocs,
	})
}
