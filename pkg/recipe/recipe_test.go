package recipe

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssarangi/recipectl/pkg/render"
	"github.com/ssarangi/recipectl/pkg/selector"
)

var testEnv = render.Environment{
	"GIT_DESCRIBE_TAG":    "0.13.4",
	"GIT_DESCRIBE_NUMBER": "3",
}

func loadNumba(t *testing.T, env render.Environment) *Entry {
	t.Helper()
	e, err := Load(filepath.Join("testdata", "repo", "numba", ManifestName), render.WithEnv(env))
	require.NoError(t, err)
	return e
}

func TestLoad(t *testing.T) {
	e := loadNumba(t, testEnv)
	r := e.Recipe

	assert.Equal(t, "numba", r.Package.Name)
	assert.Equal(t, "0.13.4", r.Package.Version)
	assert.Equal(t, 3, r.Build.Number)
	assert.Equal(t, "../..", r.Source.Path)

	wantEntryPoints := []EntryPoint{
		{Name: "pycc", Module: "numba.pycc", Callable: "main"},
		{Name: "numba", Module: "numba.numba_entry", Callable: "main"},
	}
	if diff := cmp.Diff(wantEntryPoints, r.Build.EntryPoints); diff != "" {
		t.Errorf("unexpected entry points (-want, +got):\n%s", diff)
	}

	wantRun := []Dependency{
		{Name: "python"},
		{Name: "numpy", Constraint: ">=1.6"},
		{Name: "llvmlite"},
		{Name: "funcsigs", Selector: "py27"},
		{Name: "singledispatch", Selector: "py27 or py33"},
		{Name: "enum34", Selector: "py27 or py33"},
	}
	if diff := cmp.Diff(wantRun, r.Requirements.Run); diff != "" {
		t.Errorf("unexpected run requirements (-want, +got):\n%s", diff)
	}

	assert.Equal(t, []string{"mandel.py"}, r.Test.Files)
	assert.Len(t, r.Test.Commands, 2)
	assert.Equal(t, "pycc -h", r.Test.Commands[0].Command)
}

func TestLoad_DefaultBuildNumber(t *testing.T) {
	// GIT_DESCRIBE_NUMBER unset: the template's default renders build
	// number 0.
	e := loadNumba(t, render.Environment{"GIT_DESCRIBE_TAG": "0.13.4"})
	assert.Equal(t, 0, e.Recipe.Build.Number)
}

func TestRecipe_SelectorFiltering(t *testing.T) {
	e := loadNumba(t, testEnv)

	py27 := selector.Context{Platform: "linux", Arch: "x86_64", PyVersion: 27}
	py34 := selector.Context{Platform: "linux", Arch: "x86_64", PyVersion: 34}

	deps, err := e.Recipe.RunDeps(py27)
	require.NoError(t, err)
	names := make([]string, 0, len(deps))
	for _, d := range deps {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"python", "numpy", "llvmlite", "funcsigs", "singledispatch", "enum34"}, names)

	deps, err = e.Recipe.RunDeps(py34)
	require.NoError(t, err)
	names = names[:0]
	for _, d := range deps {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"python", "numpy", "llvmlite"}, names)

	reqs, err := e.Recipe.TestRequires(py34)
	require.NoError(t, err)
	assert.Len(t, reqs, 1)
	assert.Equal(t, "python", reqs[0].Name)

	cmds, err := e.Recipe.TestCommands(py34)
	require.NoError(t, err)
	assert.Equal(t, []string{"pycc -h", "numba -h"}, cmds)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"no package name", "build:\n  number: 0\n"},
		{"bad entry point", "package:\n  name: x\n  version: 1.0\nbuild:\n  entry_points:\n    - pycc numba.pycc:main\n"},
		{"empty dependency", "package:\n  name: x\n  version: 1.0\nrequirements:\n  run:\n    - \"\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestDependency_String(t *testing.T) {
	assert.Equal(t, "numpy >=1.6", Dependency{Name: "numpy", Constraint: ">=1.6"}.String())
	assert.Equal(t, "python", Dependency{Name: "python"}.String())
}

func TestDependency_Validate(t *testing.T) {
	assert.NoError(t, Dependency{Name: "numpy"}.Validate())
	assert.NoError(t, Dependency{Name: "scikit-learn"}.Validate())
	assert.Error(t, Dependency{Name: "Numpy"}.Validate())
	assert.Error(t, Dependency{Name: "-bad"}.Validate())
}

func TestReadAllFromRepo(t *testing.T) {
	entries, err := ReadAllFromRepo(context.Background(), filepath.Join("testdata", "repo"), render.WithEnv(testEnv))
	require.NoError(t, err)

	// channeldata.yaml is not a recipe and must be skipped.
	require.Len(t, entries, 2)
	require.Contains(t, entries, "numba")
	require.Contains(t, entries, "llvmlite")

	assert.Equal(t, filepath.Join("numba", ManifestName), entries["numba"].Filename)
	assert.Equal(t, "0.2.2", entries["llvmlite"].Recipe.Package.Version)
}

func TestFindNoLint(t *testing.T) {
	raw := []byte("#nolint:duplicate-dependency,missing-smoke-test\npackage:\n  name: x\n")
	assert.Equal(t, []string{"duplicate-dependency", "missing-smoke-test"}, findNoLint(raw))
	assert.Nil(t, findNoLint([]byte("package:\n  name: x\n")))
}
