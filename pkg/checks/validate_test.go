package checks

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssarangi/recipectl/pkg/index"
	"github.com/ssarangi/recipectl/pkg/recipe"
	"github.com/ssarangi/recipectl/pkg/render"
)

func loadTestIndex(t *testing.T) *index.Index {
	t.Helper()
	idx, err := index.Load(filepath.Join("testdata", "repodata.json"))
	require.NoError(t, err)
	return idx
}

func loadRecipe(t *testing.T, name string) *recipe.Entry {
	t.Helper()
	e, err := recipe.Load(filepath.Join("testdata", name), render.WithEnv(render.Environment{
		"GIT_DESCRIBE_TAG":    "0.13.4",
		"GIT_DESCRIBE_NUMBER": "0",
	}))
	require.NoError(t, err)
	return e
}

func TestValidateRecipe(t *testing.T) {
	o := ValidateOptions{
		Index:    loadTestIndex(t),
		Contexts: DefaultContexts("linux", "x86_64", []int{27, 34}),
	}

	err := o.ValidateRecipe(context.Background(), loadRecipe(t, "numba.yaml"))
	assert.NoError(t, err)
}

func TestValidateRecipe_UnresolvableDependency(t *testing.T) {
	o := ValidateOptions{
		Index:    loadTestIndex(t),
		Contexts: DefaultContexts("linux", "x86_64", []int{27}),
	}

	err := o.ValidateRecipe(context.Background(), loadRecipe(t, "unresolvable.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not resolve")
}

func TestValidateRecipe_SelectorScopedDependency(t *testing.T) {
	// argparse is indexed but only required under py26; on py27-only
	// validation the selector filters it out, so its absence from the
	// py27 channel does not fail validation.
	o := ValidateOptions{
		Index:    loadTestIndex(t),
		Contexts: DefaultContexts("linux", "x86_64", []int{27}),
	}

	err := o.ValidateRecipe(context.Background(), loadRecipe(t, "numba.yaml"))
	assert.NoError(t, err)
}

func TestValidateRecipe_UnsatisfiableConstraint(t *testing.T) {
	o := ValidateOptions{
		Index:    loadTestIndex(t),
		Contexts: DefaultContexts("linux", "x86_64", []int{27}),
	}

	err := o.ValidateRecipe(context.Background(), loadRecipe(t, "unsatisfiable.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no indexed version satisfies")
}

func TestValidateRecipe_StructureOnly(t *testing.T) {
	// Without an index only the schema runs.
	o := ValidateOptions{Contexts: DefaultContexts("linux", "x86_64", []int{27})}
	err := o.ValidateRecipe(context.Background(), loadRecipe(t, "unresolvable.yaml"))
	assert.NoError(t, err)
}

func TestValidateAll(t *testing.T) {
	o := ValidateOptions{
		Index:    loadTestIndex(t),
		Contexts: DefaultContexts("linux", "x86_64", []int{27}),
	}
	entries := map[string]*recipe.Entry{
		"numba":        loadRecipe(t, "numba.yaml"),
		"unresolvable": loadRecipe(t, "unresolvable.yaml"),
	}

	results := o.ValidateAll(context.Background(), entries)
	require.Len(t, results, 2)
	assert.Equal(t, "numba", results[0].Package)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, "unresolvable", results[1].Package)
	assert.Error(t, results[1].Err)

	failed, summary := Failed(results)
	assert.True(t, failed)
	assert.Equal(t, "unresolvable", summary)
}

func TestValidateSchema_BadPackageName(t *testing.T) {
	r, err := recipe.Parse([]byte("package:\n  name: bad_name_UPPER\n  version: 1.0\n"))
	require.NoError(t, err)
	err = validateSchema(r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema violation")
}
