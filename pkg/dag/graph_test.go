package dag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssarangi/recipectl/pkg/recipe"
	"github.com/ssarangi/recipectl/pkg/selector"
)

var linuxPy27 = selector.Context{Platform: "linux", Arch: "x86_64", PyVersion: 27}

func parseEntry(t *testing.T, manifest string) *recipe.Entry {
	t.Helper()
	r, err := recipe.Parse([]byte(manifest))
	require.NoError(t, err)
	return &recipe.Entry{Recipe: r, Filename: r.Package.Name + "/meta.yaml"}
}

func testEntries(t *testing.T) map[string]*recipe.Entry {
	t.Helper()
	numba := parseEntry(t, `package:
  name: numba
  version: 0.13.4
requirements:
  build:
    - python
    - llvmlite
    - numpy >=1.6
  run:
    - python
    - llvmlite
    - numpy >=1.6
`)
	llvmlite := parseEntry(t, `package:
  name: llvmlite
  version: 0.2.2
requirements:
  build:
    - python
  run:
    - python
`)
	return map[string]*recipe.Entry{"numba": numba, "llvmlite": llvmlite}
}

func TestNew(t *testing.T) {
	g, err := New(testEntries(t), linuxPy27)
	require.NoError(t, err)

	nodes, err := g.Nodes()
	require.NoError(t, err)
	assert.Equal(t, []string{"llvmlite", "numba", "numpy", "python"}, nodes)

	deps, err := g.DependenciesOf("numba")
	require.NoError(t, err)
	assert.Equal(t, []string{"llvmlite", "numpy", "python"}, deps)

	assert.True(t, g.IsLocal("numba"))
	assert.True(t, g.IsLocal("llvmlite"))
	assert.False(t, g.IsLocal("numpy"))
}

func TestSorted(t *testing.T) {
	g, err := New(testEntries(t), linuxPy27)
	require.NoError(t, err)

	sorted, err := g.Sorted()
	require.NoError(t, err)

	pos := make(map[string]int, len(sorted))
	for i, name := range sorted {
		pos[name] = i
	}
	// Dependencies come before their dependents.
	assert.Less(t, pos["llvmlite"], pos["numba"])
	assert.Less(t, pos["python"], pos["llvmlite"])
	assert.Less(t, pos["numpy"], pos["numba"])
}

func TestNew_Cycle(t *testing.T) {
	a := parseEntry(t, "package:\n  name: a\n  version: 1.0\nrequirements:\n  run:\n    - b\n")
	b := parseEntry(t, "package:\n  name: b\n  version: 1.0\nrequirements:\n  run:\n    - a\n")

	_, err := New(map[string]*recipe.Entry{"a": a, "b": b}, linuxPy27)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestDOT(t *testing.T) {
	g, err := New(testEntries(t), linuxPy27)
	require.NoError(t, err)

	out, err := g.DOT()
	require.NoError(t, err)
	assert.Contains(t, out, "digraph")
	assert.Contains(t, out, "numba")
	assert.Contains(t, out, "llvmlite")
}
