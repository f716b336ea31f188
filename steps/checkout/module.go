// Package checkout provides the 'checkout' step: it copies a source
// tree into the run workspace so later steps operate on an ephemeral
// copy rather than the original checkout.
package checkout

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/zclconf/go-cty/cty"

	"github.com/pagemill/pagemill/internal/ctxlog"
	"github.com/pagemill/pagemill/internal/fsutil"
	"github.com/pagemill/pagemill/internal/registry"
)

// Module implements registry.Module.
type Module struct{}

// Input defines the arguments for the checkout step.
type Input struct {
	// From is the path of the source tree to copy.
	From string `hcl:"from"`

	// To is the destination directory relative to the workspace.
	To string `hcl:"to,optional"`
}

// OnRunCheckout copies the source tree into the workspace. Version
// control metadata (.git) is not copied.
func OnRunCheckout(ctx context.Context, run *registry.RunContext, input any) (map[string]cty.Value, error) {
	in := input.(*Input)
	logger := ctxlog.FromContext(ctx)

	to := in.To
	if to == "" {
		to = "source"
	}
	dest := filepath.Join(run.Workspace, to)

	logger.Info("Checking out source tree.", "from", in.From, "to", dest)
	if err := fsutil.CopyTree(in.From, dest, ".git"); err != nil {
		return nil, fmt.Errorf("copying %s: %w", in.From, err)
	}

	return map[string]cty.Value{
		"dir": cty.StringVal(dest),
	}, nil
}

// Register registers the handler with the application registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterStep("checkout", &registry.RegisteredStep{
		NewInput: func() any { return new(Input) },
		Fn:       OnRunCheckout,
	})
}
