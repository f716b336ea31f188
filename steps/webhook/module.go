// Package webhook provides the 'webhook' step: it POSTs a JSON payload
// to a URL, typically to report run status to an external service.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/zclconf/go-cty/cty"

	"github.com/pagemill/pagemill/internal/ctxlog"
	"github.com/pagemill/pagemill/internal/registry"
)

// Module implements registry.Module.
type Module struct{}

// Input defines the arguments for the webhook step.
type Input struct {
	URL string `hcl:"url"`

	// Method defaults to POST.
	Method string `hcl:"method,optional"`

	// Body is JSON-encoded as a flat string map. Values may reference
	// earlier step outputs, e.g. digest = step.artifact.site.digest.
	Body map[string]string `hcl:"body,optional"`

	// Headers adds request headers, e.g. an Authorization header wired
	// from the secrets store.
	Headers map[string]string `hcl:"headers,optional"`

	// Timeout bounds the request; accepts Go duration syntax and
	// defaults to "30s".
	Timeout string `hcl:"timeout,optional"`
}

// OnRunWebhook sends the request and fails the step on any non-2xx
// response.
func OnRunWebhook(ctx context.Context, run *registry.RunContext, input any) (map[string]cty.Value, error) {
	in := input.(*Input)
	logger := ctxlog.FromContext(ctx)

	method := in.Method
	if method == "" {
		method = http.MethodPost
	}

	timeout := 30 * time.Second
	if in.Timeout != "" {
		parsed, err := time.ParseDuration(in.Timeout)
		if err != nil {
			return nil, fmt.Errorf("parsing timeout: %w", err)
		}
		timeout = parsed
	}

	var body io.Reader
	if in.Body != nil {
		encoded, err := json.Marshal(in.Body)
		if err != nil {
			return nil, fmt.Errorf("encoding body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, in.URL, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if in.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range in.Headers {
		req.Header.Set(k, v)
	}

	logger.Info("Sending webhook.", "method", method, "url", in.URL)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending webhook: %w", err)
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("webhook returned %s", resp.Status)
	}

	return map[string]cty.Value{
		"status": cty.NumberIntVal(int64(resp.StatusCode)),
	}, nil
}

// Register registers the handler with the application registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterStep("webhook", &registry.RegisteredStep{
		NewInput: func() any { return new(Input) },
		Fn:       OnRunWebhook,
	})
}
