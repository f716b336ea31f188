package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFindFilesByExtension(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.md"), "# a")
	writeFile(t, filepath.Join(dir, "sub", "b.md"), "# b")
	writeFile(t, filepath.Join(dir, "sub", "c.txt"), "c")

	files, err := FindFilesByExtension(dir, ".md")
	require.NoError(t, err)
	assert.Len(t, files, 2)
	for _, f := range files {
		assert.True(t, filepath.IsAbs(f) || f != "")
		assert.Equal(t, ".md", filepath.Ext(f))
	}
}

func TestFindFilesByExtension_EmptyExtensionPanics(t *testing.T) {
	assert.Panics(t, func() {
		_, _ = FindFilesByExtension(t.TempDir(), "")
	})
}

func TestCopyTree(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "index.md"), "root")
	writeFile(t, filepath.Join(src, "guides", "install.md"), "nested")
	writeFile(t, filepath.Join(src, ".git", "HEAD"), "ref: refs/heads/main")

	dst := filepath.Join(t.TempDir(), "copy")
	require.NoError(t, CopyTree(src, dst, ".git"))

	got, err := os.ReadFile(filepath.Join(dst, "index.md"))
	require.NoError(t, err)
	assert.Equal(t, "root", string(got))

	got, err = os.ReadFile(filepath.Join(dst, "guides", "install.md"))
	require.NoError(t, err)
	assert.Equal(t, "nested", string(got))

	_, err = os.Stat(filepath.Join(dst, ".git"))
	assert.True(t, os.IsNotExist(err), ".git must not be copied")
}

func TestCopyTree_SourceNotADirectory(t *testing.T) {
	src := filepath.Join(t.TempDir(), "file.txt")
	writeFile(t, src, "x")

	err := CopyTree(src, t.TempDir())
	require.Error(t, err)
}

func TestCopyTree_MissingSource(t *testing.T) {
	err := CopyTree(filepath.Join(t.TempDir(), "missing"), t.TempDir())
	require.Error(t, err)
}

func TestCopyTree_PreservesPermissions(t *testing.T) {
	src := t.TempDir()
	script := filepath.Join(src, "build.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\n"), 0o755))

	dst := filepath.Join(t.TempDir(), "copy")
	require.NoError(t, CopyTree(src, dst))

	info, err := os.Stat(filepath.Join(dst, "build.sh"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}
