package lint

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"

	"github.com/samber/lo"

	"github.com/ssarangi/recipectl/pkg/recipe"
	"github.com/ssarangi/recipectl/pkg/selector"
	"github.com/ssarangi/recipectl/pkg/versions"
)

var (
	reValidSHA256 = regexp.MustCompile(`^[a-fA-F0-9]{64}$`)
	reValidMD5    = regexp.MustCompile(`^[a-fA-F0-9]{32}$`)
)

// AllRules is a list of all available rules to evaluate.
var AllRules = func(l *Linter) Rules { //nolint:gocyclo
	return Rules{
		{
			Name:        "duplicate-dependency",
			Description: "a requirements section should not list the same package twice",
			Severity:    SeverityError,
			LintFunc: func(e *recipe.Entry) error {
				sections := map[string][]recipe.Dependency{
					"requirements.build": e.Recipe.Requirements.Build,
					"requirements.run":   e.Recipe.Requirements.Run,
					"test.requires":      e.Recipe.Test.Requires,
				}
				for section, deps := range sections {
					keys := lo.Map(deps, func(d recipe.Dependency, _ int) string {
						return d.Name + " # [" + d.Selector + "]"
					})
					for _, dup := range lo.FindDuplicates(keys) {
						return fmt.Errorf("duplicate dependency %s in %s", dup, section)
					}
				}
				return nil
			},
		},
		{
			Name:        "invalid-dependency",
			Description: "dependency names and version constraints must follow the packaging grammar",
			Severity:    SeverityError,
			LintFunc: func(e *recipe.Entry) error {
				for _, d := range allDeps(e.Recipe) {
					if err := d.Validate(); err != nil {
						return err
					}
					if _, err := versions.ConstraintFromSpec(d.Constraint); err != nil {
						return fmt.Errorf("dependency %q: %w", d.String(), err)
					}
				}
				return nil
			},
		},
		{
			Name:        "invalid-selector",
			Description: "selectors must be valid expressions in the packaging grammar",
			Severity:    SeverityError,
			LintFunc: func(e *recipe.Entry) error {
				for _, sel := range allSelectors(e.Recipe) {
					if _, err := selector.Parse(sel); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			Name:        "url-source-has-checksum",
			Description: "a url source should pin its content with a sha256 or md5 checksum",
			Severity:    SeverityError,
			LintFunc: func(e *recipe.Entry) error {
				src := e.Recipe.Source
				if src.URL == "" {
					return nil
				}
				if _, err := url.ParseRequestURI(src.URL); err != nil {
					return fmt.Errorf("source url %q is not a valid URL", src.URL)
				}
				if src.SHA256 == "" && src.MD5 == "" {
					return fmt.Errorf("source url %q has neither sha256 nor md5", src.URL)
				}
				return nil
			},
		},
		{
			Name:        "valid-checksum-format",
			Description: "source checksums must be well-formed hex digests",
			Severity:    SeverityError,
			LintFunc: func(e *recipe.Entry) error {
				src := e.Recipe.Source
				if src.SHA256 != "" && !reValidSHA256.MatchString(src.SHA256) {
					return fmt.Errorf("sha256 %q is not a valid SHA256 digest", src.SHA256)
				}
				if src.MD5 != "" && !reValidMD5.MatchString(src.MD5) {
					return fmt.Errorf("md5 %q is not a valid MD5 digest", src.MD5)
				}
				return nil
			},
		},
		{
			Name:        "entry-point-has-smoke-test",
			Description: "every declared entry point should be exercised by a test command",
			Severity:    SeverityWarning,
			LintFunc: func(e *recipe.Entry) error {
				for _, ep := range e.Recipe.Build.EntryPoints {
					tested := false
					for _, c := range e.Recipe.Test.Commands {
						if commandInvokes(c.Command, ep.Name) {
							tested = true
							break
						}
					}
					if !tested {
						return fmt.Errorf("entry point %q has no test command invoking it", ep.Name)
					}
				}
				return nil
			},
		},
		{
			Name:        "missing-smoke-test",
			Description: "a recipe should declare at least one test command or import check",
			Severity:    SeverityWarning,
			LintFunc: func(e *recipe.Entry) error {
				if len(e.Recipe.Test.Commands) == 0 && len(e.Recipe.Test.Imports) == 0 {
					return fmt.Errorf("recipe declares no test commands or imports")
				}
				return nil
			},
		},
		{
			Name:        "templated-version",
			Description: "recipes building from a source checkout should derive their version from git describe",
			Severity:    SeverityInfo,
			LintFunc: func(e *recipe.Entry) error {
				if !bytes.Contains(e.Raw, []byte("GIT_DESCRIBE_TAG")) {
					return fmt.Errorf("version is not derived from GIT_DESCRIBE_TAG")
				}
				return nil
			},
			ConditionFuncs: []ConditionFunc{
				sourceIsCheckout(),
			},
		},
		{
			Name:        "build-run-mismatch",
			Description: "the format duplicates build and run requirements by design; drift is usually unintended",
			Severity:    SeverityWarning,
			LintFunc: func(e *recipe.Entry) error {
				if len(e.Recipe.Requirements.Run) == 0 {
					return nil
				}
				key := func(d recipe.Dependency, _ int) string {
					return d.String() + " # [" + d.Selector + "]"
				}
				build := lo.Map(e.Recipe.Requirements.Build, key)
				run := lo.Map(e.Recipe.Requirements.Run, key)
				if missing, extra := lo.Difference(build, run); len(missing) > 0 || len(extra) > 0 {
					return fmt.Errorf("build and run requirements differ (only in build: %v, only in run: %v)", missing, extra)
				}
				return nil
			},
		},
	}
}

// sourceIsCheckout returns a ConditionFunc that is true when the recipe
// builds from a relative source path, i.e. from the surrounding checkout.
func sourceIsCheckout() ConditionFunc {
	return func(e *recipe.Entry) bool {
		return e.Recipe.Source.Path != ""
	}
}

var reWord = regexp.MustCompile(`[^\s;|&]+`)

// commandInvokes reports whether a shell command line invokes the named
// program.
func commandInvokes(command, name string) bool {
	for _, w := range reWord.FindAllString(command, -1) {
		if w == name {
			return true
		}
	}
	return false
}

func allDeps(r *recipe.Recipe) []recipe.Dependency {
	var out []recipe.Dependency
	out = append(out, r.Requirements.Build...)
	out = append(out, r.Requirements.Run...)
	out = append(out, r.Test.Requires...)
	return out
}

func allSelectors(r *recipe.Recipe) []string {
	var out []string
	for _, d := range allDeps(r) {
		if d.Selector != "" {
			out = append(out, d.Selector)
		}
	}
	for _, ep := range r.Build.EntryPoints {
		if ep.Selector != "" {
			out = append(out, ep.Selector)
		}
	}
	for _, c := range r.Test.Commands {
		if c.Selector != "" {
			out = append(out, c.Selector)
		}
	}
	return out
}
