package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/ssarangi/recipectl/pkg/lint"
	"github.com/ssarangi/recipectl/pkg/render"
)

type lintOptions struct {
	args      []string
	list      bool
	skipRules []string
	severity  string
	verbose   bool
	envFlags
}

func cmdLint() *cobra.Command {
	o := &lintOptions{}
	cmd := &cobra.Command{
		Use:               "lint [path...]",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		SilenceErrors:     true,
		Short:             "Lint recipe manifests",
		RunE: func(cmd *cobra.Command, args []string) error {
			o.args = args
			env, err := o.environment(cmd)
			if err != nil {
				return err
			}
			return o.LintCmd(cmd.Context(), env)
		},
	}
	cmd.Flags().BoolVarP(&o.list, "list", "l", false, "prints all of the available rules and exits")
	cmd.Flags().StringArrayVar(&o.skipRules, "skip-rule", []string{}, "list of rules to skip")
	cmd.Flags().StringVarP(&o.severity, "severity", "s", "warning", "minimum severity level to report (error, warning, info)")
	cmd.Flags().BoolVarP(&o.verbose, "verbose", "v", false, "log skipped rules")
	o.addFlags(cmd.Flags())

	return cmd
}

func (o *lintOptions) LintCmd(ctx context.Context, env render.Environment) error {
	// Only errors fail the command; warnings and infos are reported.
	failed := false

	if len(o.args) == 0 {
		o.args = []string{"."}
	}

	minSeverity := lint.SeverityWarning
	switch o.severity {
	case "error", "ERROR":
		minSeverity = lint.SeverityError
	case "info", "INFO":
		minSeverity = lint.SeverityInfo
	}

	for _, path := range o.args {
		linter := lint.New(
			lint.WithPath(path),
			lint.WithSkipRules(o.skipRules),
			lint.WithEnv(env),
			lint.WithVerbose(o.verbose),
		)

		if o.list {
			linter.PrintRules()
			return nil
		}

		result, err := linter.Lint(ctx, minSeverity)
		if err != nil {
			return err
		}
		if result.HasErrors() {
			linter.Print(result)
			if result.HasSeverity(lint.SeverityError) {
				failed = true
			}
		}
	}

	if failed {
		return errors.New("linting failed")
	}

	return nil
}
