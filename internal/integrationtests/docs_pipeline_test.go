package integration_tests

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagemill/pagemill/internal/testutil"
)

// TestRun_DocsPipeline exercises the real step modules end to end:
// checkout copies a docs tree into the workspace, docs renders it,
// artifact packs the site, and webhook reports the digest.
func TestRun_DocsPipeline(t *testing.T) {
	sourceDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(sourceDir, "documentation"), 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(sourceDir, "documentation", "guide.md"),
		[]byte("# User Guide\n\nSome prose.\n\n```go\nfunc main() {}\n```\n"),
		0o644))
	require.NoError(t, os.WriteFile(
		filepath.Join(sourceDir, "documentation", "faq.md"),
		[]byte("# FAQ\n\nQuestions and answers.\n"),
		0o644))

	var mu sync.Mutex
	var received map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	workflowHCL := fmt.Sprintf(`
workflow "docs" {
  on {
    push {
      branches = ["main"]
      paths    = ["documentation/"]
    }
  }
  job "build" {
    step "checkout" "repo" {
      arguments {
        from = %q
      }
    }
    step "docs" "site" {
      arguments {
        source = "${step.checkout.repo.dir}/documentation"
        output = "site"
        title  = "Project Docs"
      }
    }
    step "artifact" "site" {
      arguments {
        source = step.docs.site.output
        dest   = "site-archive"
      }
    }
    step "webhook" "notify" {
      arguments {
        url = %q
        body = {
          digest = step.artifact.site.digest
          pages  = "${step.docs.site.pages}"
        }
      }
    }
  }
}
`, sourceDir, server.URL)

	eventYAML := `
kind: push
branch: main
paths:
  - documentation/guide.md
`
	result := testutil.RunWorkflowTest(t, workflowHCL, eventYAML, testutil.Options{})
	require.NoError(t, result.Err)

	assert.Contains(t, result.Output, "ok    checkout.repo")
	assert.Contains(t, result.Output, "ok    docs.site")
	assert.Contains(t, result.Output, "ok    artifact.site")
	assert.Contains(t, result.Output, "ok    webhook.notify")

	mu.Lock()
	defer mu.Unlock()
	require.NotNil(t, received, "webhook must have been called")
	assert.Len(t, received["digest"], 64)
	assert.Equal(t, "2", received["pages"])
}

// TestRun_DocsPipelineNoMarkdown checks that the docs step fails the
// job when the checked-out tree has nothing to render.
func TestRun_DocsPipelineNoMarkdown(t *testing.T) {
	sourceDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(sourceDir, "documentation"), 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(sourceDir, "documentation", "notes.txt"),
		[]byte("not markdown\n"), 0o644))

	workflowHCL := fmt.Sprintf(`
workflow "docs" {
  on {
    dispatch {}
  }
  job "build" {
    step "checkout" "repo" {
      arguments {
        from = %q
      }
    }
    step "docs" "site" {
      arguments {
        source = "${step.checkout.repo.dir}/documentation"
        output = "site"
      }
    }
  }
}
`, sourceDir)

	result := testutil.RunWorkflowTest(t, workflowHCL, dispatchEvent, testutil.Options{})
	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "no Markdown files")
	assert.Contains(t, result.Output, "fail  docs.site")
}
