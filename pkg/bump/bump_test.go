package bump

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const manifest = `package:
  name: llvmlite
  version: 0.2.2

build:
  number: 1 # bumped for rebuild against numpy 1.8

requirements:
  build:
    - python
  run:
    - python

test:
  commands:
    - python -c "import llvmlite"
`

const templatedManifest = `package:
  name: numba
  version: {{ environ.get('GIT_DESCRIBE_TAG', '') }}

build:
  number: {{ environ.get('GIT_DESCRIBE_NUMBER', 0) }}
`

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "meta.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestBump(t *testing.T) {
	path := writeManifest(t, manifest)

	next, err := Bump(context.Background(), path, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, next)

	got, err := os.ReadFile(path)
	require.NoError(t, err)

	// Only the number changes; the trailing comment and the rest of the
	// file survive.
	assert.Contains(t, string(got), "number: 2 # bumped for rebuild against numpy 1.8")
	assert.Contains(t, string(got), "version: 0.2.2")
	assert.NotContains(t, string(got), "number: 1")
}

func TestBump_Twice(t *testing.T) {
	path := writeManifest(t, manifest)

	_, err := Bump(context.Background(), path, Options{})
	require.NoError(t, err)
	next, err := Bump(context.Background(), path, Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, next)
}

func TestBump_DryRun(t *testing.T) {
	path := writeManifest(t, manifest)

	next, err := Bump(context.Background(), path, Options{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 2, next)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, manifest, string(got))
}

func TestBump_TemplatedNumber(t *testing.T) {
	path := writeManifest(t, templatedManifest)

	_, err := Bump(context.Background(), path, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "templated")
}

func TestBump_NoBuildSection(t *testing.T) {
	path := writeManifest(t, "package:\n  name: x\n  version: 1.0\n")

	_, err := Bump(context.Background(), path, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no build section")
}
