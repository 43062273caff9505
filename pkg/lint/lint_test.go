package lint

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLinterWithFile(path string, opts ...Option) *Linter {
	opts = append([]Option{WithPath(filepath.Join("testdata", "files", path))}, opts...)
	return New(opts...)
}

func failedRuleNames(result Result) []string {
	var names []string
	for _, res := range result {
		for _, e := range res.Errors {
			names = append(names, e.Rule.Name)
		}
	}
	return names
}

func TestLinter_ValidRecipe(t *testing.T) {
	result, err := newTestLinterWithFile("valid.yaml").Lint(context.Background(), SeverityInfo)
	require.NoError(t, err)
	assert.False(t, result.HasErrors(), "failed rules: %v", failedRuleNames(result))
}

func TestLinter_Rules(t *testing.T) {
	tests := []struct {
		file     string
		wantRule string
	}{
		{"duplicate-dependency.yaml", "duplicate-dependency"},
		{"invalid-selector.yaml", "invalid-selector"},
		{"missing-checksum.yaml", "url-source-has-checksum"},
		{"bad-checksum.yaml", "valid-checksum-format"},
		{"untested-entry-point.yaml", "entry-point-has-smoke-test"},
		{"build-run-drift.yaml", "build-run-mismatch"},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			result, err := newTestLinterWithFile(tt.file).Lint(context.Background(), SeverityInfo)
			require.NoError(t, err)
			assert.Contains(t, failedRuleNames(result), tt.wantRule)
		})
	}
}

func TestLinter_SeverityFilter(t *testing.T) {
	// build-run-mismatch is a warning; at minimum severity ERROR it must
	// not run.
	result, err := newTestLinterWithFile("build-run-drift.yaml").Lint(context.Background(), SeverityError)
	require.NoError(t, err)
	assert.NotContains(t, failedRuleNames(result), "build-run-mismatch")
}

func TestLinter_SkipRules(t *testing.T) {
	result, err := newTestLinterWithFile("build-run-drift.yaml",
		WithSkipRules([]string{"build-run-mismatch"})).Lint(context.Background(), SeverityInfo)
	require.NoError(t, err)
	assert.NotContains(t, failedRuleNames(result), "build-run-mismatch")
}

func TestLinter_NoLintComment(t *testing.T) {
	result, err := newTestLinterWithFile("nolint.yaml").Lint(context.Background(), SeverityInfo)
	require.NoError(t, err)
	assert.NotContains(t, failedRuleNames(result), "missing-smoke-test")
}

func TestLinter_Repo(t *testing.T) {
	linter := New(WithPath(filepath.Join("testdata", "repo")))
	result, err := linter.Lint(context.Background(), SeverityInfo)
	require.NoError(t, err)
	assert.False(t, result.HasErrors(), "failed rules: %v", failedRuleNames(result))
}

func TestResult_HasSeverity(t *testing.T) {
	result, err := newTestLinterWithFile("build-run-drift.yaml").Lint(context.Background(), SeverityInfo)
	require.NoError(t, err)
	assert.True(t, result.HasSeverity(SeverityWarning))
	assert.False(t, result.HasSeverity(SeverityError))
}
