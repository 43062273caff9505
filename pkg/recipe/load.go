package recipe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chainguard-dev/clog"
	"gopkg.in/yaml.v3"

	"github.com/ssarangi/recipectl/pkg/render"
)

// ManifestName is the conventional filename of a recipe inside its
// directory.
const ManifestName = "meta.yaml"

// Entry is a recipe loaded from a repository, together with where it came
// from and its lint opt-outs.
type Entry struct {
	Recipe   *Recipe
	Filename string
	Dir      string
	NoLint   []string

	// Raw is the manifest text before rendering. Line-oriented checks
	// (templating, nolint) operate on this.
	Raw []byte
}

// Path returns the full path of the manifest file.
func (e *Entry) Path() string {
	return filepath.Join(e.Dir, e.Filename)
}

type probe struct {
	Package struct {
		Name string `yaml:"name"`
	} `yaml:"package"`
}

// looksLikeRecipe reports whether rendered manifest text has the one key
// every recipe must carry. Files that fail the probe are skipped when
// scanning a repository, not treated as errors.
func looksLikeRecipe(data []byte) bool {
	var p probe
	if err := yaml.Unmarshal(data, &p); err != nil {
		return false
	}
	return p.Package.Name != ""
}

// Load reads, renders, and parses a single manifest file.
func Load(path string, opts ...render.Option) (*Entry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading recipe %s: %w", path, err)
	}

	rendered, err := render.Render(raw, opts...)
	if err != nil {
		return nil, fmt.Errorf("rendering recipe %s: %w", path, err)
	}

	r, err := Parse(rendered)
	if err != nil {
		return nil, fmt.Errorf("recipe %s: %w", path, err)
	}

	return &Entry{
		Recipe:   r,
		Filename: filepath.Base(path),
		Dir:      filepath.Dir(path),
		NoLint:   findNoLint(raw),
		Raw:      raw,
	}, nil
}

// findNoLint returns the rules a manifest opts out of via a "#nolint:"
// comment line.
func findNoLint(raw []byte) []string {
	for _, line := range strings.Split(string(raw), "\n") {
		if strings.HasPrefix(line, "#nolint:") {
			return strings.Split(strings.TrimPrefix(line, "#nolint:"), ",")
		}
	}
	return nil
}

// ReadAllFromRepo walks a recipe repository and loads every manifest it
// finds, keyed by package name. Both the one-directory-per-package layout
// (pkg/meta.yaml) and loose *.yaml files at the top level are accepted.
// YAML files that do not probe as recipes are skipped.
func ReadAllFromRepo(ctx context.Context, dir string, opts ...render.Option) (map[string]*Entry, error) {
	log := clog.FromContext(ctx)

	var fileList []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == ManifestName || (filepath.Dir(path) == dir && filepath.Ext(path) == ".yaml") {
			fileList = append(fileList, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking recipe repository %s: %w", dir, err)
	}

	entries := make(map[string]*Entry)
	for _, path := range fileList {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}

		rendered, err := render.Render(raw, opts...)
		if err != nil {
			return nil, fmt.Errorf("rendering %s: %w", path, err)
		}

		if !looksLikeRecipe(rendered) {
			log.Debugf("skipping %s: not a recipe manifest", path)
			continue
		}

		r, err := Parse(rendered)
		if err != nil {
			return nil, err
		}

		relativeFilename, err := filepath.Rel(dir, path)
		if err != nil {
			return nil, fmt.Errorf("relativizing %s against %s: %w", path, dir, err)
		}

		entries[r.Package.Name] = &Entry{
			Recipe:   r,
			Filename: relativeFilename,
			Dir:      dir,
			NoLint:   findNoLint(raw),
			Raw:      raw,
		}
	}

	log.Infof("found %d recipes in %s", len(entries), dir)
	return entries, nil
}
