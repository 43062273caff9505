package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssarangi/recipectl/pkg/dag"
	"github.com/ssarangi/recipectl/pkg/recipe"
	"github.com/ssarangi/recipectl/pkg/render"
)

type depsOptions struct {
	section string
	envFlags
	targetFlags
}

func cmdDeps() *cobra.Command {
	o := &depsOptions{}
	cmd := &cobra.Command{
		Use:               "deps config.yaml",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		SilenceErrors:     true,
		Short:             "List the dependencies of a recipe for a target platform and interpreter",
		Example: `  recipectl deps meta.yaml
  recipectl deps --section build --python 27 meta.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.DepsCmd(cmd, args[0])
		},
	}
	cmd.Flags().StringVar(&o.section, "section", "run", "requirements section to list (build, run, test)")
	o.envFlags.addFlags(cmd.Flags())
	o.targetFlags.addFlags(cmd.Flags())

	return cmd
}

func (o *depsOptions) DepsCmd(cmd *cobra.Command, path string) error {
	env, err := o.environment(cmd)
	if err != nil {
		return err
	}
	sctx, err := o.context()
	if err != nil {
		return err
	}

	entry, err := recipe.Load(path, render.WithEnv(env))
	if err != nil {
		return err
	}

	var deps []recipe.Dependency
	switch o.section {
	case "build":
		deps, err = entry.Recipe.BuildDeps(sctx)
	case "run":
		deps, err = entry.Recipe.RunDeps(sctx)
	case "test":
		deps, err = entry.Recipe.TestRequires(sctx)
	default:
		return fmt.Errorf("unknown section %q (want build, run, or test)", o.section)
	}
	if err != nil {
		return err
	}

	for _, d := range deps {
		fmt.Fprintln(cmd.OutOrStdout(), d.String())
	}
	return nil
}

type dotOptions struct {
	dir string
	envFlags
	targetFlags
}

func cmdDot() *cobra.Command {
	o := &dotOptions{}
	cmd := &cobra.Command{
		Use:               "dot",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		SilenceErrors:     true,
		Short:             "Generate graphviz .dot output for a recipe repository",
		Long: `Generate .dot output and pipe it to dot to generate an SVG

  recipectl dot | dot -Tsvg > graph.svg`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.DotCmd(cmd)
		},
	}
	cmd.Flags().StringVarP(&o.dir, "dir", "d", ".", "directory to search for recipe manifests")
	o.envFlags.addFlags(cmd.Flags())
	o.targetFlags.addFlags(cmd.Flags())

	return cmd
}

func (o *dotOptions) DotCmd(cmd *cobra.Command) error {
	env, err := o.environment(cmd)
	if err != nil {
		return err
	}
	sctx, err := o.context()
	if err != nil {
		return err
	}

	entries, err := recipe.ReadAllFromRepo(cmd.Context(), o.dir, render.WithEnv(env))
	if err != nil {
		return err
	}

	g, err := dag.New(entries, sctx)
	if err != nil {
		return err
	}

	out, err := g.DOT()
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}
