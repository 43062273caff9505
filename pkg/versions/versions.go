package versions

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-version"
)

// NewVersion parses a package version from a channel index or recipe.
// Some older releases separate pre-release tags with an underscore
// ("1.1.0_rc1"), which the underlying parser rejects.
func NewVersion(v string) (*version.Version, error) {
	v = strings.ReplaceAll(v, "_", "")
	return version.NewVersion(v)
}

// ByLatest sorts versions ascending, oldest first.
type ByLatest []*version.Version

func (u ByLatest) Len() int {
	return len(u)
}

func (u ByLatest) Swap(i, j int) {
	u[i], u[j] = u[j], u[i]
}

func (u ByLatest) Less(i, j int) bool {
	return u[i].LessThan(u[j])
}

// Latest returns the greatest of the given version strings. Strings that do
// not parse are skipped.
func Latest(vs []string) (string, error) {
	var latest *version.Version
	var latestRaw string
	for _, raw := range vs {
		v, err := NewVersion(raw)
		if err != nil {
			continue
		}
		if latest == nil || v.GreaterThan(latest) {
			latest = v
			latestRaw = raw
		}
	}
	if latest == nil {
		return "", fmt.Errorf("no parseable versions in %v", vs)
	}
	return latestRaw, nil
}

// ConstraintFromSpec converts the constraint part of a dependency spec into
// a version constraint. The grammar allows relational operators
// (">=1.6", "<2.0", "==1.2.3"), wildcard pins ("2.7.*"), bare versions as
// exact pins ("1.2.3"), and comma-separated conjunctions (">=1.6,<2.0").
// An empty constraint matches everything.
func ConstraintFromSpec(spec string) (version.Constraints, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}

	var parts []string
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("invalid version constraint %q", spec)
		}
		converted, err := convertConstraint(part)
		if err != nil {
			return nil, err
		}
		parts = append(parts, converted...)
	}

	return version.NewConstraint(strings.Join(parts, ","))
}

func convertConstraint(part string) ([]string, error) {
	// Wildcard pins select a version prefix: "2.7.*" means >= 2.7 and
	// below the next minor.
	if strings.HasSuffix(part, ".*") {
		prefix := strings.TrimSuffix(part, ".*")
		if prefix == "" || strings.ContainsAny(prefix, "<>=!") {
			return nil, fmt.Errorf("invalid wildcard constraint %q", part)
		}
		return []string{"~> " + prefix + ".0"}, nil
	}

	switch {
	case strings.HasPrefix(part, "=="):
		return []string{"= " + strings.TrimSpace(part[2:])}, nil
	case strings.HasPrefix(part, "!="),
		strings.HasPrefix(part, ">="),
		strings.HasPrefix(part, "<="):
		return []string{part[:2] + " " + strings.TrimSpace(part[2:])}, nil
	case strings.HasPrefix(part, ">"), strings.HasPrefix(part, "<"):
		return []string{part[:1] + " " + strings.TrimSpace(part[1:])}, nil
	}

	// A bare version is an exact pin.
	if _, err := NewVersion(part); err != nil {
		return nil, fmt.Errorf("invalid version constraint %q: %w", part, err)
	}
	return []string{"= " + part}, nil
}

// Matches reports whether the given version satisfies the constraint part of
// a dependency spec.
func Matches(spec, v string) (bool, error) {
	constraints, err := ConstraintFromSpec(spec)
	if err != nil {
		return false, err
	}
	parsed, err := NewVersion(v)
	if err != nil {
		return false, fmt.Errorf("invalid version %q: %w", v, err)
	}
	if constraints == nil {
		return true, nil
	}
	return constraints.Check(parsed), nil
}
