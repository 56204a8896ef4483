package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCatalog(t *testing.T) {
	cat, err := loadCatalog("")
	require.NoError(t, err)
	assert.True(t, cat.Has("Tomato___Late_blight"))

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("Rice___Blast:\n  disease: Rice Blast\n  severity: High\n"), 0o644))
	cat, err = loadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, 1, cat.Len())
}

func TestClassifyMissingImage(t *testing.T) {
	chdir(t, t.TempDir())

	var out bytes.Buffer
	err := classify("", "no-such-leaf.jpg", &out)
	assert.ErrorContains(t, err, "failed to read image")
	assert.Empty(t, out.String())
}

func TestClassifyMissingModel(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	img := filepath.Join(dir, "leaf.png")
	require.NoError(t, os.WriteFile(img, []byte("x"), 0o644))

	err := classify("", img, &bytes.Buffer{})
	assert.ErrorContains(t, err, "failed to initialize model server")
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
