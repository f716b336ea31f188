// Package artifact provides the 'artifact' step: it packs a directory
// (typically the built site) into a compressed tar archive and records
// a BLAKE3 digest so the archive can be verified downstream.
package artifact

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/zclconf/go-cty/cty"
	"github.com/zeebo/blake3"

	"github.com/pagemill/pagemill/internal/ctxlog"
	"github.com/pagemill/pagemill/internal/registry"
)

// Module implements registry.Module.
type Module struct{}

// Input defines the arguments for the artifact step.
type Input struct {
	// Source is the directory to pack, relative to the workspace
	// unless absolute.
	Source string `hcl:"source"`

	// Dest is the archive path without extension, relative to the
	// workspace unless absolute. Defaults to the source's base name.
	Dest string `hcl:"dest,optional"`

	// Compression is "zstd" (default), "lz4" or "none".
	Compression string `hcl:"compression,optional"`
}

// OnRunArtifact packs the source directory and writes the archive next
// to a hex BLAKE3 digest of its bytes.
func OnRunArtifact(ctx context.Context, run *registry.RunContext, input any) (map[string]cty.Value, error) {
	in := input.(*Input)
	logger := ctxlog.FromContext(ctx)

	compression, err := ParseCompression(in.Compression)
	if err != nil {
		return nil, err
	}

	source := in.Source
	if !filepath.IsAbs(source) {
		source = filepath.Join(run.Workspace, source)
	}
	dest := in.Dest
	if dest == "" {
		dest = filepath.Base(source)
	}
	if !filepath.IsAbs(dest) {
		dest = filepath.Join(run.Workspace, dest)
	}
	dest += compression.Extension()

	raw, err := tarDirectory(source)
	if err != nil {
		return nil, fmt.Errorf("packing %s: %w", source, err)
	}

	packed, err := compression.compress(raw)
	if err != nil {
		return nil, err
	}

	sum := blake3.Sum256(packed)
	digest := hex.EncodeToString(sum[:])

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(dest, packed, 0o644); err != nil {
		return nil, fmt.Errorf("writing archive: %w", err)
	}

	logger.Info("Artifact packed.", "archive", dest,
		"compression", compression.String(), "size", len(packed), "digest", digest)

	return map[string]cty.Value{
		"archive": cty.StringVal(dest),
		"digest":  cty.StringVal(digest),
		"size":    cty.NumberIntVal(int64(len(packed))),
	}, nil
}

// tarDirectory serializes a directory tree into an in-memory tar
// stream. Paths inside the archive are relative to the directory root.
func tarDirectory(root string) ([]byte, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)

		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Register registers the handler with the application registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterStep("artifact", &registry.RegisteredStep{
		NewInput: func() any { return new(Input) },
		Fn:       OnRunArtifact,
	})
}
