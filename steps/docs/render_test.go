package docs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func renderSource(t *testing.T, markdown string) sitePage {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page.md")
	require.NoError(t, os.WriteFile(path, []byte(markdown), 0o644))

	page, err := newRenderer("github").renderFile(path, "page.html", "Site")
	require.NoError(t, err)
	return page
}

func TestRenderFile_TitleFromHeading(t *testing.T) {
	page := renderSource(t, "# Getting Started\n\nbody\n")
	assert.Equal(t, "Getting Started", page.Title)
	assert.Contains(t, string(page.html), "<h1")
	assert.Contains(t, string(page.html), "Getting Started")
}

func TestRenderFile_TitleFallsBackToFileName(t *testing.T) {
	page := renderSource(t, "no headings here\n")
	assert.Equal(t, "page", page.Title)
}

func TestRenderFile_GFMTables(t *testing.T) {
	page := renderSource(t, `# T

| a | b |
|---|---|
| 1 | 2 |
`)
	assert.Contains(t, string(page.html), "<table>")
}

func TestRenderFile_HighlightedCode(t *testing.T) {
	page := renderSource(t, "# C\n\n```go\nfunc main() {}\n```\n")
	html := string(page.html)
	// chroma's inline-style html formatter wraps tokens in styled spans.
	assert.Contains(t, html, "<span")
	assert.Contains(t, html, "func")
}

func TestRenderFile_PlainCodeBlockEscaped(t *testing.T) {
	page := renderSource(t, "# C\n\n```\na < b\n```\n")
	html := string(page.html)
	assert.Contains(t, html, "<pre><code>")
	assert.Contains(t, html, "a &lt; b")
}

func TestRenderIndex_LinksAndEscaping(t *testing.T) {
	pages := []sitePage{
		{Rel: "a.html", Title: "A & B"},
		{Rel: "sub/c.html", Title: "C"},
	}
	out, err := newRenderer("github").renderIndex("Site", pages)
	require.NoError(t, err)

	html := string(out)
	assert.Contains(t, html, `href="a.html"`)
	assert.Contains(t, html, `href="sub/c.html"`)
	assert.Contains(t, html, "A &amp; B")
}
