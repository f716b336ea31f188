package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/zclconf/go-cty/cty"

	"github.com/pagemill/pagemill/internal/registry"
)

// RecorderModule registers a 'probe' step that records the order in
// which instances execute, so tests can assert sequencing and
// fail-fast behavior without real side effects.
type RecorderModule struct {
	mu  sync.Mutex
	ran []string
}

type probeInput struct {
	// ID names the probe invocation in the recorded order.
	ID string `hcl:"id"`

	// Fail makes the probe return an error after recording itself.
	Fail bool `hcl:"fail,optional"`
}

// Ran returns the recorded invocation IDs in execution order.
func (m *RecorderModule) Ran() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ran...)
}

// Register registers the probe handler.
func (m *RecorderModule) Register(r *registry.Registry) {
	r.RegisterStep("probe", &registry.RegisteredStep{
		NewInput: func() any { return new(probeInput) },
		Fn: func(ctx context.Context, run *registry.RunContext, input any) (map[string]cty.Value, error) {
			in := input.(*probeInput)

			m.mu.Lock()
			m.ran = append(m.ran, in.ID)
			m.mu.Unlock()

			if in.Fail {
				return nil, fmt.Errorf("probe %q failed as requested", in.ID)
			}
			return map[string]cty.Value{
				"id": cty.StringVal(in.ID),
			}, nil
		},
	})
}
