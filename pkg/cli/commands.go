package cli

import (
	"fmt"
	"os"
	"runtime"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"sigs.k8s.io/release-utils/version"

	"github.com/ssarangi/recipectl/pkg/gitx"
	"github.com/ssarangi/recipectl/pkg/render"
	"github.com/ssarangi/recipectl/pkg/selector"
)

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "recipectl",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Short:             "A CLI helper for developing package build recipes",
	}

	cmd.AddCommand(
		cmdRender(),
		cmdLint(),
		cmdValidate(),
		cmdDeps(),
		cmdDot(),
		cmdBump(),
		cmdTest(),
		cmdLs(),
		version.Version(),
	)

	return cmd
}

// envFlags carries the build environment a recipe is rendered against.
type envFlags struct {
	env         []string
	gitDescribe string
}

func (f *envFlags) addFlags(fs *pflag.FlagSet) {
	fs.StringArrayVarP(&f.env, "env", "e", nil, "set a build environment variable (KEY=VALUE, repeatable)")
	fs.StringVar(&f.gitDescribe, "git-describe", "", "derive GIT_DESCRIBE_TAG and GIT_DESCRIBE_NUMBER from the git checkout at this path")
}

// environment builds the render environment: process environment first,
// then git describe derivation, then explicit --env overrides.
func (f *envFlags) environment(cmd *cobra.Command) (render.Environment, error) {
	env := render.EnvironFromOS(os.Environ())

	if f.gitDescribe != "" {
		derived, err := gitx.DescribeEnv(cmd.Context(), f.gitDescribe, env)
		if err != nil {
			return nil, err
		}
		env = derived
	}

	for k, v := range render.EnvironFromOS(f.env) {
		env[k] = v
	}
	return env, nil
}

// targetFlags carries the platform/interpreter context selectors are
// evaluated against.
type targetFlags struct {
	platform string
	arch     string
	python   string
}

func (f *targetFlags) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&f.platform, "platform", defaultPlatform(), "target platform (linux, osx, win)")
	fs.StringVar(&f.arch, "arch", defaultArch(), "target architecture")
	fs.StringVar(&f.python, "python", "310", "target interpreter version without the dot, e.g. 27 or 310")
}

func (f *targetFlags) context() (selector.Context, error) {
	py, err := strconv.Atoi(f.python)
	if err != nil {
		return selector.Context{}, fmt.Errorf("invalid --python value %q", f.python)
	}
	return selector.Context{Platform: f.platform, Arch: f.arch, PyVersion: py}, nil
}

func defaultPlatform() string {
	switch runtime.GOOS {
	case "darwin":
		return "osx"
	case "windows":
		return "win"
	}
	return "linux"
}

func defaultArch() string {
	switch runtime.GOARCH {
	case "amd64":
		return "x86_64"
	case "arm64":
		return "arm64"
	}
	return runtime.GOARCH
}
