package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ssarangi/recipectl/pkg/checks"
	"github.com/ssarangi/recipectl/pkg/index"
	"github.com/ssarangi/recipectl/pkg/recipe"
	"github.com/ssarangi/recipectl/pkg/render"
)

type validateOptions struct {
	indexLocation string
	platform      string
	arch          string
	pythons       []string
	envFlags
}

func cmdValidate() *cobra.Command {
	o := &validateOptions{}
	cmd := &cobra.Command{
		Use:               "validate path",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		SilenceErrors:     true,
		Short:             "Validate recipe structure and dependency resolution against a channel index",
		Long: `Validate recipe manifests.

Structure is checked against the recipe schema. With --index, every
dependency that applies to a target interpreter version must resolve to at
least one package in the channel index; a dependency without a selector
must resolve for every version given via --python.`,
		Example: `  recipectl validate .
  recipectl validate --index repodata.json --python 27 --python 34 .
  recipectl validate --index https://conda.example.com/linux-64/repodata.json meta.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.ValidateCmd(cmd, args[0])
		},
	}
	cmd.Flags().StringVarP(&o.indexLocation, "index", "i", "", "channel index to resolve dependencies against (path or URL)")
	cmd.Flags().StringVar(&o.platform, "platform", defaultPlatform(), "target platform (linux, osx, win)")
	cmd.Flags().StringVar(&o.arch, "arch", defaultArch(), "target architecture")
	cmd.Flags().StringArrayVar(&o.pythons, "python", []string{"310"}, "supported interpreter version without the dot (repeatable)")
	o.addFlags(cmd.Flags())

	return cmd
}

func (o *validateOptions) ValidateCmd(cmd *cobra.Command, path string) error {
	ctx := cmd.Context()

	env, err := o.environment(cmd)
	if err != nil {
		return err
	}

	pys := make([]int, 0, len(o.pythons))
	for _, p := range o.pythons {
		py, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("invalid --python value %q", p)
		}
		pys = append(pys, py)
	}

	opts := checks.ValidateOptions{
		Contexts: checks.DefaultContexts(o.platform, o.arch, pys),
	}
	if o.indexLocation != "" {
		idx, err := index.Get(ctx, o.indexLocation)
		if err != nil {
			return err
		}
		opts.Index = idx
	}

	entries, err := loadRecipes(cmd, path, env)
	if err != nil {
		return err
	}

	results := opts.ValidateAll(ctx, entries)

	ok := color.New(color.FgGreen)
	bad := color.New(color.FgRed, color.Bold)
	for _, res := range results {
		if res.Err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s:\n%v\n", bad.Sprint("FAIL"), res.Package, res.Err)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", ok.Sprint("OK  "), res.Package)
	}

	if failed, summary := checks.Failed(results); failed {
		return fmt.Errorf("validation failed for: %s", summary)
	}
	return nil
}

// loadRecipes loads a single manifest or a repository directory.
func loadRecipes(cmd *cobra.Command, path string, env render.Environment) (map[string]*recipe.Entry, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		entries, err := recipe.ReadAllFromRepo(cmd.Context(), path, render.WithEnv(env))
		if err != nil {
			return nil, err
		}
		if len(entries) == 0 {
			return nil, errors.New("no recipes found")
		}
		return entries, nil
	}
	entry, err := recipe.Load(path, render.WithEnv(env))
	if err != nil {
		return nil, err
	}
	return map[string]*recipe.Entry{entry.Recipe.Package.Name: entry}, nil
}
