package lint

import (
	"github.com/hashicorp/go-multierror"

	"github.com/ssarangi/recipectl/pkg/recipe"
)

// LintFunc is a function that lints a single recipe.
type LintFunc func(*recipe.Entry) error

// ConditionFunc is a function that checks if a rule should be executed.
type ConditionFunc func(*recipe.Entry) bool

// Severity is the severity of a rule.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
	SeverityInfo    Severity = "INFO"
)

// level returns the numeric rank of a severity, higher is more severe.
func (s Severity) level() int {
	switch s {
	case SeverityError:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	}
	return 0
}

// AtLeast reports whether s is at least as severe as min.
func (s Severity) AtLeast(min Severity) bool {
	return s.level() >= min.level()
}

// Rule represents a linter rule.
type Rule struct {
	// Name is the name of the rule.
	Name string

	// Description is the description of the rule.
	Description string

	// Severity is the severity of the rule.
	Severity Severity

	// LintFunc is the function that lints a single recipe.
	LintFunc LintFunc

	// ConditionFuncs is a list of and-conditioned functions that check if
	// the rule should be executed.
	ConditionFuncs []ConditionFunc
}

// Rules is a list of Rule.
type Rules []Rule

// EvalRuleError pairs a failed rule with the error it produced.
type EvalRuleError struct {
	Rule  Rule
	Error error
}

// EvalRuleErrors is a list of EvalRuleError.
type EvalRuleErrors []EvalRuleError

// WrapErrors aggregates the underlying errors, nil when there are none.
func (e EvalRuleErrors) WrapErrors() error {
	var result *multierror.Error
	for _, ee := range e {
		result = multierror.Append(result, ee.Error)
	}
	return result.ErrorOrNil()
}

// EvalResult represents the result of an evaluation for a single recipe.
type EvalResult struct {
	// File is the name of the file that was evaluated against.
	File string

	// Errors is a list of rule failures.
	Errors EvalRuleErrors
}

// Result is a list of EvalResult.
type Result []EvalResult

// HasErrors reports whether any rule failed at any severity.
func (r Result) HasErrors() bool {
	for _, res := range r {
		if len(res.Errors) > 0 {
			return true
		}
	}
	return false
}

// HasSeverity reports whether any failed rule is at least as severe as min.
func (r Result) HasSeverity(min Severity) bool {
	for _, res := range r {
		for _, e := range res.Errors {
			if e.Rule.Severity.AtLeast(min) {
				return true
			}
		}
	}
	return false
}
