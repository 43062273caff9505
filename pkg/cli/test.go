package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ssarangi/recipectl/pkg/smoke"
)

type testOptions struct {
	timeout          time.Duration
	jobs             int
	checkEntryPoints bool
	envFlags
	targetFlags
}

func cmdTest() *cobra.Command {
	o := &testOptions{}
	cmd := &cobra.Command{
		Use:               "test path",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		SilenceErrors:     true,
		Short:             "Run the smoke-test commands declared by recipes",
		Long: `Run the smoke-test commands declared by recipes.

Each recipe's test files are staged into a scratch directory and its test
commands run there. A command exiting nonzero fails the test phase for that
recipe. This exercises the built and installed package, so the package's
entry points must already be on PATH.`,
		Example: `  recipectl test .
  recipectl test --check-entry-points --timeout 60s numba/meta.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.TestCmd(cmd, args[0])
		},
	}
	cmd.Flags().DurationVar(&o.timeout, "timeout", 5*time.Minute, "per-command timeout")
	cmd.Flags().IntVarP(&o.jobs, "jobs", "j", 4, "number of recipes to test concurrently")
	cmd.Flags().BoolVar(&o.checkEntryPoints, "check-entry-points", false, "require every declared entry point to resolve on PATH")
	o.envFlags.addFlags(cmd.Flags())
	o.targetFlags.addFlags(cmd.Flags())

	return cmd
}

func (o *testOptions) TestCmd(cmd *cobra.Command, path string) error {
	env, err := o.environment(cmd)
	if err != nil {
		return err
	}
	sctx, err := o.context()
	if err != nil {
		return err
	}

	entries, err := loadRecipes(cmd, path, env)
	if err != nil {
		return err
	}

	results, err := smoke.RunAll(cmd.Context(), entries, smoke.Options{
		Context:          sctx,
		Timeout:          o.timeout,
		CheckEntryPoints: o.checkEntryPoints,
	}, o.jobs)
	if err != nil {
		return err
	}

	failed := false
	for _, res := range results {
		fmt.Fprintln(cmd.OutOrStdout(), res.Summary())
		if !res.Ok() {
			failed = true
			fmt.Fprint(cmd.OutOrStdout(), smoke.FailureOutput(res))
		}
	}

	if failed {
		return errors.New("smoke tests failed")
	}
	return nil
}
