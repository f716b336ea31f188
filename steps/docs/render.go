package docs

import (
	"bytes"
	"fmt"
	stdhtml "html"
	"html/template"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// sitePage is one rendered page of the site.
type sitePage struct {
	// Rel is the page's path relative to the site root, e.g.
	// "guides/install.html".
	Rel string

	// Title is the page's first level-one heading, or the file name
	// when the page has none.
	Title string

	html []byte
}

// siteRenderer renders Markdown sources into standalone HTML pages.
type siteRenderer struct {
	md goldmark.Markdown
}

func newRenderer(style string) *siteRenderer {
	return &siteRenderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(
				goldmarkhtml.WithUnsafe(),
				renderer.WithNodeRenderers(
					util.Prioritized(&codeBlockRenderer{style: style}, 200),
				),
			),
		),
	}
}

// renderFile reads one Markdown file and produces a full HTML page.
func (r *siteRenderer) renderFile(path, rel, siteTitle string) (sitePage, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return sitePage{}, err
	}

	var body bytes.Buffer
	if err := r.md.Convert(source, &body); err != nil {
		return sitePage{}, err
	}

	title := firstHeading(r.md, source)
	if title == "" {
		base := rel[strings.LastIndex(rel, "/")+1:]
		title = strings.TrimSuffix(base, ".html")
	}

	html, err := renderShell(title, siteTitle, template.HTML(body.String()))
	if err != nil {
		return sitePage{}, err
	}
	return sitePage{Rel: rel, Title: title, html: html}, nil
}

// renderIndex produces the site's index page with links to every
// rendered page.
func (r *siteRenderer) renderIndex(siteTitle string, pages []sitePage) ([]byte, error) {
	var body bytes.Buffer
	body.WriteString("<ul class=\"toc\">\n")
	for _, page := range pages {
		fmt.Fprintf(&body, "<li><a href=%q>%s</a></li>\n",
			page.Rel, stdhtml.EscapeString(page.Title))
	}
	body.WriteString("</ul>\n")
	return renderShell(siteTitle, siteTitle, template.HTML(body.String()))
}

// firstHeading returns the text of the first level-one heading, if any.
func firstHeading(md goldmark.Markdown, source []byte) string {
	document := md.Parser().Parse(text.NewReader(source))
	var title string
	_ = ast.Walk(document, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if heading, ok := node.(*ast.Heading); ok && heading.Level == 1 {
			var sb strings.Builder
			for i := 0; i < heading.Lines().Len(); i++ {
				seg := heading.Lines().At(i)
				sb.Write(seg.Value(source))
			}
			title = strings.TrimSpace(sb.String())
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return title
}

// codeBlockRenderer replaces goldmark's fenced code rendering with
// chroma syntax highlighting. Blocks without a language fall back to a
// plain escaped <pre>.
type codeBlockRenderer struct {
	style string
}

func (r *codeBlockRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindFencedCodeBlock, r.renderFencedCode)
}

func (r *codeBlockRenderer) renderFencedCode(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	block := node.(*ast.FencedCodeBlock)

	var code bytes.Buffer
	lines := block.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		code.Write(seg.Value(source))
	}

	language := string(block.Language(source))
	if language != "" {
		if err := quick.Highlight(w, code.String(), language, "html", r.style); err == nil {
			return ast.WalkSkipChildren, nil
		}
		// Unknown language or formatter failure: fall through to the
		// plain rendering.
	}

	fmt.Fprintf(w, "<pre><code>%s</code></pre>\n", stdhtml.EscapeString(code.String()))
	return ast.WalkSkipChildren, nil
}

var shellTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}} — {{.SiteTitle}}</title>
<style>
body { font-family: sans-serif; max-width: 48rem; margin: 2rem auto; padding: 0 1rem; line-height: 1.5; }
pre { padding: 0.75rem; overflow-x: auto; background: #f6f8fa; }
ul.toc { list-style: none; padding-left: 0; }
ul.toc li { margin: 0.4rem 0; }
</style>
</head>
<body>
{{.Body}}
</body>
</html>
`))

func renderShell(title, siteTitle string, body template.HTML) ([]byte, error) {
	var out bytes.Buffer
	err := shellTemplate.Execute(&out, struct {
		Title     string
		SiteTitle string
		Body      template.HTML
	}{Title: title, SiteTitle: siteTitle, Body: body})
	if err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
