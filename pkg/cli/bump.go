package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ssarangi/recipectl/pkg/bump"
)

type bumpOptions struct {
	repoDir string
	dryRun  bool
}

func cmdBump() *cobra.Command {
	o := &bumpOptions{}
	cmd := &cobra.Command{
		Use:               "bump config[.yaml] [config[.yaml]...]",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		SilenceErrors:     true,
		Short:             "Bump the build number in recipe manifests",
		Long: `Bump the build number in recipe manifests.

The bump subcommand increments the build number in recipe files, for
rebuilds of the same upstream version. It can take a filename, a package
directory name, or a file glob, bumping each matching manifest:

    recipectl bump numba/meta.yaml
    recipectl bump llvmlite
    recipectl bump lib*/meta.yaml

The command assumes it is being run from the top of the recipe repository.
To look for files in another location use the --repo flag. Use --dry-run to
see what would be bumped without modifying anything in the filesystem.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.BumpCmd(cmd, args)
		},
	}
	cmd.Flags().StringVar(&o.repoDir, "repo", "", "path to the recipe repository")
	cmd.Flags().BoolVar(&o.dryRun, "dry-run", false, "report what would change without writing files")

	return cmd
}

func (o *bumpOptions) BumpCmd(cmd *cobra.Command, args []string) error {
	paths, err := o.resolvePaths(args)
	if err != nil {
		return err
	}

	for _, path := range paths {
		next, err := bump.Bump(cmd.Context(), path, bump.Options{DryRun: o.dryRun})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: build number %d\n", path, next)
	}
	return nil
}

// resolvePaths turns each argument into manifest paths: a file path is used
// as is, a directory means its meta.yaml, anything else is tried as a glob.
func (o *bumpOptions) resolvePaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		candidate := arg
		if o.repoDir != "" {
			candidate = filepath.Join(o.repoDir, arg)
		}

		if fi, err := os.Stat(candidate); err == nil {
			if fi.IsDir() {
				paths = append(paths, filepath.Join(candidate, "meta.yaml"))
			} else {
				paths = append(paths, candidate)
			}
			continue
		}

		matches, err := filepath.Glob(candidate)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no manifest matches %q", arg)
		}
		paths = append(paths, matches...)
	}
	return paths, nil
}
