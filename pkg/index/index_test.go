package index

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssarangi/recipectl/pkg/recipe"
)

func loadTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := Load(filepath.Join("testdata", "repodata.json"))
	require.NoError(t, err)
	return idx
}

func TestLoad(t *testing.T) {
	idx := loadTestIndex(t)
	assert.True(t, idx.Has("numpy"))
	assert.True(t, idx.Has("python"))
	assert.False(t, idx.Has("no-such-package"))
	assert.Equal(t, []string{"1.5.1", "1.7.0", "1.8.2"}, idx.Versions("numpy"))
}

func TestResolve(t *testing.T) {
	idx := loadTestIndex(t)

	tests := []struct {
		name         string
		dep          recipe.Dependency
		wantVersions []string
		wantErr      bool
	}{
		{
			name:         "unconstrained",
			dep:          recipe.Dependency{Name: "python"},
			wantVersions: []string{"2.7.9", "3.4.1"},
		},
		{
			name:         "constraint filters",
			dep:          recipe.Dependency{Name: "numpy", Constraint: ">=1.6"},
			wantVersions: []string{"1.7.0", "1.8.2"},
		},
		{
			name:         "wildcard pin",
			dep:          recipe.Dependency{Name: "python", Constraint: "2.7.*"},
			wantVersions: []string{"2.7.9"},
		},
		{
			name:    "unknown package",
			dep:     recipe.Dependency{Name: "no-such-package"},
			wantErr: true,
		},
		{
			name:    "unsatisfiable constraint",
			dep:     recipe.Dependency{Name: "numpy", Constraint: ">=2.0"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := idx.Resolve(tt.dep)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			versions := make([]string, 0, len(got))
			for _, p := range got {
				versions = append(versions, p.Version)
			}
			assert.Equal(t, tt.wantVersions, versions)
		})
	}
}

func TestGet_HTTP(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "repodata.json"))
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	xdg.Reload()

	idx, err := Get(context.Background(), srv.URL+"/repodata.json")
	require.NoError(t, err)
	assert.True(t, idx.Has("numba"))
}

func TestGet_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	xdg.Reload()

	_, err := Get(context.Background(), srv.URL+"/repodata.json")
	assert.Error(t, err)
}
