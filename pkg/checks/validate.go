package checks

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/hashicorp/go-multierror"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/ssarangi/recipectl/pkg/index"
	"github.com/ssarangi/recipectl/pkg/recipe"
	"github.com/ssarangi/recipectl/pkg/selector"
)

//go:embed schema.json
var schemaJSON string

var recipeSchema = jsonschema.MustCompileString("recipe-schema.json", schemaJSON)

// ValidateOptions configures recipe validation.
type ValidateOptions struct {
	// Index is the channel index dependency names must resolve in. Nil
	// skips resolution checks and validates structure only.
	Index *index.Index

	// Contexts are the supported platform/interpreter combinations. A
	// dependency without a selector must resolve in every one of them.
	Contexts []selector.Context
}

// DefaultContexts returns one evaluation context per supported interpreter
// version on the given platform and architecture.
func DefaultContexts(platform, arch string, pyVersions []int) []selector.Context {
	out := make([]selector.Context, 0, len(pyVersions))
	for _, py := range pyVersions {
		out = append(out, selector.Context{Platform: platform, Arch: arch, PyVersion: py})
	}
	return out
}

// ValidateRecipe checks a single recipe: its rendered structure against the
// manifest schema, and each applicable dependency against the channel
// index. All findings are aggregated rather than stopping at the first.
func (o ValidateOptions) ValidateRecipe(ctx context.Context, e *recipe.Entry) error {
	log := clog.FromContext(ctx)
	name := e.Recipe.Package.Name
	log.Debugf("validating %s", name)

	var result *multierror.Error

	if err := validateSchema(e.Recipe); err != nil {
		result = multierror.Append(result, err)
	}

	for _, sctx := range o.Contexts {
		result = multierror.Append(result, o.validateDepsFor(e, sctx)...)
	}

	return result.ErrorOrNil()
}

func (o ValidateOptions) validateDepsFor(e *recipe.Entry, sctx selector.Context) []error {
	var errs []error

	sections := []struct {
		name   string
		filter func(selector.Context) ([]recipe.Dependency, error)
	}{
		{"requirements.build", e.Recipe.BuildDeps},
		{"requirements.run", e.Recipe.RunDeps},
		{"test.requires", e.Recipe.TestRequires},
	}

	for _, section := range sections {
		deps, err := section.filter(sctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", section.name, err))
			continue
		}
		if o.Index == nil {
			continue
		}
		for _, d := range deps {
			if _, err := o.Index.Resolve(d); err != nil {
				errs = append(errs, fmt.Errorf("%s (py%d/%s): %w", section.name, sctx.PyVersion, sctx.Platform, err))
			}
		}
	}
	return errs
}

// validateSchema checks the rendered manifest shape against the recipe
// schema. The parsed recipe is marshaled back to its generic document form
// so the schema sees what the build tool would.
func validateSchema(r *recipe.Recipe) error {
	text, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("re-encoding recipe for schema validation: %w", err)
	}
	var doc interface{}
	if err := yaml.Unmarshal(text, &doc); err != nil {
		return fmt.Errorf("re-decoding recipe for schema validation: %w", err)
	}

	// The schema engine wants JSON-shaped values.
	jsonText, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("converting recipe to JSON for schema validation: %w", err)
	}
	var jsonDoc interface{}
	if err := json.Unmarshal(jsonText, &jsonDoc); err != nil {
		return err
	}

	if err := recipeSchema.Validate(jsonDoc); err != nil {
		return fmt.Errorf("schema violation: %w", err)
	}
	return nil
}

// ValidationResult pairs a package with its validation outcome.
type ValidationResult struct {
	Package string
	Err     error
}

// ValidateAll validates every recipe and returns one result per package,
// ordered by name.
func (o ValidateOptions) ValidateAll(ctx context.Context, entries map[string]*recipe.Entry) []ValidationResult {
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]ValidationResult, 0, len(names))
	for _, name := range names {
		results = append(results, ValidationResult{
			Package: name,
			Err:     o.ValidateRecipe(ctx, entries[name]),
		})
	}
	return results
}

// Failed reports whether any result carries an error, with a summary of the
// failing packages.
func Failed(results []ValidationResult) (bool, string) {
	var failed []string
	for _, res := range results {
		if res.Err != nil {
			failed = append(failed, res.Package)
		}
	}
	if len(failed) == 0 {
		return false, ""
	}
	return true, strings.Join(failed, ", ")
}
