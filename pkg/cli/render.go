package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssarangi/recipectl/pkg/recipe"
	"github.com/ssarangi/recipectl/pkg/render"
)

type renderOptions struct {
	envFlags
	check bool
}

func cmdRender() *cobra.Command {
	o := &renderOptions{}
	cmd := &cobra.Command{
		Use:               "render config.yaml",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		SilenceErrors:     true,
		Short:             "Resolve a recipe's template expressions against the build environment",
		Example: `  recipectl render meta.yaml
  recipectl render --env GIT_DESCRIBE_TAG=0.13.4 meta.yaml
  recipectl render --git-describe . meta.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := o.environment(cmd)
			if err != nil {
				return err
			}
			return o.RenderCmd(cmd, args[0], env)
		},
	}
	o.addFlags(cmd.Flags())
	cmd.Flags().BoolVar(&o.check, "check", false, "parse the rendered output instead of printing it")

	return cmd
}

func (o *renderOptions) RenderCmd(cmd *cobra.Command, path string, env render.Environment) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	rendered, err := render.Render(raw, render.WithEnv(env))
	if err != nil {
		return err
	}

	if o.check {
		r, err := recipe.Parse(rendered)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s (build %d) renders cleanly\n", r.Package.Name, r.Package.Version, r.Build.Number)
		return nil
	}

	_, err = cmd.OutOrStdout().Write(rendered)
	return err
}
