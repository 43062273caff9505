package render

import (
	"fmt"
	"regexp"
	"strings"
)

// The recipe format resolves a restricted template expression language
// before the manifest is parsed as YAML: environment lookups with an
// optional default, e.g. {{ environ.get("GIT_DESCRIBE_TAG", "") }}, and
// bare variable references, e.g. {{ PY_VER }}. Anything else inside the
// braces is a render error, matching the build tool's behavior of failing
// the build rather than emitting partial output.

var (
	reExpr       = regexp.MustCompile(`\{\{([^{}]*)\}\}`)
	reEnvironGet = regexp.MustCompile(`^environ\.get\(\s*['"]([A-Za-z_][A-Za-z0-9_]*)['"]\s*(?:,\s*(?:['"]([^'"]*)['"]|(\d+))\s*)?\)$`)
	reBareVar    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Environment supplies values for template variables and environ lookups.
type Environment map[string]string

// Options configures rendering.
type Options struct {
	// Env is the build environment the template is resolved against.
	Env Environment
}

// Option configures rendering.
type Option func(*Options)

// WithEnv sets the build environment used for lookups.
func WithEnv(env Environment) Option {
	return func(o *Options) {
		o.Env = env
	}
}

// EnvironFromOS converts os.Environ-style "KEY=value" pairs into an
// Environment.
func EnvironFromOS(pairs []string) Environment {
	env := make(Environment, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		env[k] = v
	}
	return env
}

// Render resolves every template expression in the raw manifest text and
// returns the rendered text, ready for YAML parsing.
func Render(raw []byte, opts ...Option) ([]byte, error) {
	o := Options{Env: Environment{}}
	for _, opt := range opts {
		opt(&o)
	}

	var firstErr error
	out := reExpr.ReplaceAllFunc(raw, func(m []byte) []byte {
		if firstErr != nil {
			return m
		}
		expr := strings.TrimSpace(string(reExpr.FindSubmatch(m)[1]))
		val, err := evalExpr(expr, o.Env)
		if err != nil {
			firstErr = err
			return m
		}
		return []byte(val)
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// RenderString is Render for string input.
func RenderString(raw string, opts ...Option) (string, error) {
	out, err := Render([]byte(raw), opts...)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func evalExpr(expr string, env Environment) (string, error) {
	if m := reEnvironGet.FindStringSubmatch(expr); m != nil {
		name := m[1]
		if v, ok := env[name]; ok {
			return v, nil
		}
		// m[2] is a quoted default, m[3] a bare numeric default. An
		// empty quoted default still counts as provided.
		if m[2] != "" || m[3] != "" || strings.Contains(expr, ",") {
			if m[3] != "" {
				return m[3], nil
			}
			return m[2], nil
		}
		return "", fmt.Errorf("environment variable %q is not set and the template provides no default", name)
	}

	if reBareVar.MatchString(expr) {
		v, ok := env[expr]
		if !ok {
			return "", fmt.Errorf("template variable %q is not set", expr)
		}
		return v, nil
	}

	return "", fmt.Errorf("unsupported template expression {{ %s }}", expr)
}
