package lint

import "github.com/ssarangi/recipectl/pkg/render"

// Options represents the options to configure the linter.
type Options struct {
	// Path is the path to the recipe file or repository to lint.
	Path string

	// SkipRules removes the given slice of rules from evaluation.
	SkipRules []string

	// Env is the build environment recipes are rendered against before
	// structural rules run. Describe variables default to placeholder
	// values when unset, since lint cares about structure, not the
	// rendered values themselves.
	Env render.Environment

	// Verbose logs skipped rules.
	Verbose bool
}

// Option represents a linter option.
type Option func(*Options)

// WithPath sets the path to the file or directory to lint.
func WithPath(path string) Option {
	return func(o *Options) {
		o.Path = path
	}
}

// WithSkipRules sets the skip rules option.
func WithSkipRules(skipRules []string) Option {
	return func(o *Options) {
		o.SkipRules = skipRules
	}
}

// WithEnv sets the render environment.
func WithEnv(env render.Environment) Option {
	return func(o *Options) {
		o.Env = env
	}
}

// WithVerbose sets the verbose option.
func WithVerbose(verbose bool) Option {
	return func(o *Options) {
		o.Verbose = verbose
	}
}
