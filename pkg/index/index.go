package index

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/ssarangi/recipectl/pkg/recipe"
	"github.com/ssarangi/recipectl/pkg/versions"
)

// Package is one entry of a channel index (repodata): a built artifact of a
// package at a version.
type Package struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Build       string   `json:"build,omitempty"`
	BuildNumber int      `json:"build_number,omitempty"`
	Depends     []string `json:"depends,omitempty"`
}

// Index is a queryable channel package index, the target a recipe's
// dependency names must resolve against.
type Index struct {
	Info struct {
		Subdir string `json:"subdir,omitempty"`
	} `json:"info"`
	Packages map[string]Package `json:"packages"`

	byName map[string][]Package
}

// Parse decodes a repodata-style JSON index.
func Parse(data []byte) (*Index, error) {
	idx := &Index{}
	if err := json.Unmarshal(data, idx); err != nil {
		return nil, fmt.Errorf("parsing channel index: %w", err)
	}
	idx.byName = make(map[string][]Package)
	for _, p := range idx.Packages {
		idx.byName[p.Name] = append(idx.byName[p.Name], p)
	}
	for name := range idx.byName {
		ps := idx.byName[name]
		sort.Slice(ps, func(i, j int) bool {
			vi, erri := versions.NewVersion(ps[i].Version)
			vj, errj := versions.NewVersion(ps[j].Version)
			if erri != nil || errj != nil {
				return ps[i].Version < ps[j].Version
			}
			if vi.Equal(vj) {
				return ps[i].BuildNumber < ps[j].BuildNumber
			}
			return vi.LessThan(vj)
		})
		idx.byName[name] = ps
	}
	return idx, nil
}

// Load reads a channel index from a local file.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading channel index %s: %w", path, err)
	}
	return Parse(data)
}

// Has reports whether any version of the named package is indexed.
func (i *Index) Has(name string) bool {
	return len(i.byName[name]) > 0
}

// Versions returns the indexed versions of the named package, ascending.
func (i *Index) Versions(name string) []string {
	ps := i.byName[name]
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Version)
	}
	return out
}

// Resolve returns the indexed packages satisfying the dependency spec,
// ascending by version. A dependency that matches nothing is an error: the
// recipe would fail dependency resolution at build time.
func (i *Index) Resolve(d recipe.Dependency) ([]Package, error) {
	candidates := i.byName[d.Name]
	if len(candidates) == 0 {
		return nil, fmt.Errorf("dependency %q does not resolve in the channel index", d.Name)
	}

	if d.Constraint == "" {
		return candidates, nil
	}

	matched := make([]Package, 0, len(candidates))
	for _, p := range candidates {
		ok, err := versions.Matches(d.Constraint, p.Version)
		if err != nil {
			return nil, fmt.Errorf("dependency %q: %w", d.String(), err)
		}
		if ok {
			matched = append(matched, p)
		}
	}
	if len(matched) == 0 {
		return nil, fmt.Errorf("dependency %q: no indexed version satisfies the constraint (have %v)", d.String(), i.Versions(d.Name))
	}
	return matched, nil
}
