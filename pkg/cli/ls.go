package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ssarangi/recipectl/pkg/recipe"
	"github.com/ssarangi/recipectl/pkg/render"
)

type lsOptions struct {
	dir  string
	wide bool
	envFlags
}

func cmdLs() *cobra.Command {
	o := &lsOptions{}
	cmd := &cobra.Command{
		Use:               "ls",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		SilenceErrors:     true,
		Short:             "List the recipes in a repository",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.LsCmd(cmd)
		},
	}
	cmd.Flags().StringVarP(&o.dir, "dir", "d", ".", "directory to search for recipe manifests")
	cmd.Flags().BoolVarP(&o.wide, "wide", "w", false, "include version and build number")
	o.addFlags(cmd.Flags())

	return cmd
}

func (o *lsOptions) LsCmd(cmd *cobra.Command) error {
	env, err := o.environment(cmd)
	if err != nil {
		return err
	}

	entries, err := recipe.ReadAllFromRepo(cmd.Context(), o.dir, render.WithEnv(env))
	if err != nil {
		return err
	}

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if o.wide {
			r := entries[name].Recipe
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %d\n", name, r.Package.Version, r.Build.Number)
			continue
		}
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}
