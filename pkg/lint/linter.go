package lint

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/chainguard-dev/clog"
	"github.com/fatih/color"
	"github.com/samber/lo"
	"github.com/texttheater/golang-levenshtein/levenshtein"

	"github.com/ssarangi/recipectl/pkg/recipe"
	"github.com/ssarangi/recipectl/pkg/render"
)

// Linter represents a linter instance.
type Linter struct {
	// options are the options to configure the linter.
	options Options
}

// New initializes a new instance of Linter.
func New(opts ...Option) *Linter {
	o := Options{Env: render.Environment{}}
	for _, opt := range opts {
		opt(&o)
	}
	// Describe variables get placeholders so that templated recipes
	// render and parse even outside a git checkout.
	if _, ok := o.Env["GIT_DESCRIBE_TAG"]; !ok {
		o.Env["GIT_DESCRIBE_TAG"] = "0"
	}
	if _, ok := o.Env["GIT_DESCRIBE_NUMBER"]; !ok {
		o.Env["GIT_DESCRIBE_NUMBER"] = "0"
	}
	return &Linter{options: o}
}

// Lint evaluates all rules at or above minSeverity and returns the result.
func (l *Linter) Lint(ctx context.Context, minSeverity Severity) (Result, error) {
	log := clog.FromContext(ctx)
	rules := AllRules(l)

	l.warnUnknownRuleNames(ctx, rules, l.options.SkipRules)

	entries, err := l.load(ctx)
	if err != nil {
		return Result{}, err
	}

	names := lo.Keys(entries)
	sort.Strings(names)

	results := make(Result, 0)
	for _, name := range names {
		entry := entries[name]
		l.warnUnknownRuleNames(ctx, rules, entry.NoLint)

		failedRules := make(EvalRuleErrors, 0)
		for _, rule := range rules {
			if !rule.Severity.AtLeast(minSeverity) {
				continue
			}
			if lo.Contains(l.options.SkipRules, rule.Name) || lo.Contains(entry.NoLint, rule.Name) {
				if l.options.Verbose {
					log.Infof("%s: skipping rule %s", name, rule.Name)
				}
				continue
			}

			shouldEvaluate := true
			for _, cond := range rule.ConditionFuncs {
				if !cond(entry) {
					shouldEvaluate = false
					break
				}
			}
			if !shouldEvaluate {
				if l.options.Verbose {
					log.Infof("%s: skipping rule %s because condition is not met", name, rule.Name)
				}
				continue
			}

			if err := rule.LintFunc(entry); err != nil {
				failedRules = append(failedRules, EvalRuleError{
					Rule:  rule,
					Error: err,
				})
			}
		}
		if len(failedRules) > 0 {
			results = append(results, EvalResult{
				File:   entry.Filename,
				Errors: failedRules,
			})
		}
	}

	return results, nil
}

// load reads the recipes under the configured path, which may be a single
// manifest file or a repository directory.
func (l *Linter) load(ctx context.Context) (map[string]*recipe.Entry, error) {
	path := l.options.Path
	if path == "" {
		path = "."
	}

	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("linting %s: %w", path, err)
	}

	if fi.IsDir() {
		return recipe.ReadAllFromRepo(ctx, path, render.WithEnv(l.options.Env))
	}

	entry, err := recipe.Load(path, render.WithEnv(l.options.Env))
	if err != nil {
		return nil, err
	}
	return map[string]*recipe.Entry{entry.Recipe.Package.Name: entry}, nil
}

// warnUnknownRuleNames flags skip or nolint names that match no rule,
// suggesting the closest real rule name.
func (l *Linter) warnUnknownRuleNames(ctx context.Context, rules Rules, names []string) {
	log := clog.FromContext(ctx)
	known := lo.Map(rules, func(r Rule, _ int) string { return r.Name })

	for _, name := range names {
		if lo.Contains(known, name) {
			continue
		}
		closest := ""
		best := -1
		for _, k := range known {
			d := levenshtein.DistanceForStrings([]rune(name), []rune(k), levenshtein.DefaultOptions)
			if best == -1 || d < best {
				best = d
				closest = k
			}
		}
		log.Warnf("unknown rule %q, did you mean %q?", name, closest)
	}
}

var severityColor = map[Severity]*color.Color{
	SeverityError:   color.New(color.FgRed, color.Bold),
	SeverityWarning: color.New(color.FgYellow),
	SeverityInfo:    color.New(color.FgCyan),
}

// Print prints the result to stdout.
func (l *Linter) Print(result Result) {
	if !result.HasErrors() {
		fmt.Println("No linting issues found!")
		return
	}
	for _, res := range result {
		fmt.Printf("%s:\n", res.File)
		for _, e := range res.Errors {
			c := severityColor[e.Rule.Severity]
			fmt.Printf("  %s [%s]: %s\n", c.Sprint(string(e.Rule.Severity)), e.Rule.Name, e.Error.Error())
		}
	}
}

// PrintRules prints the rules to stdout.
func (l *Linter) PrintRules() {
	fmt.Println("Available rules:")
	for _, rule := range AllRules(l) {
		fmt.Printf("* %s (%s): %s\n", rule.Name, rule.Severity, rule.Description)
	}
}
