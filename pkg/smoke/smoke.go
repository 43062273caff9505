package smoke

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/hako/durafmt"
	"golang.org/x/sync/errgroup"

	"github.com/ssarangi/recipectl/pkg/recipe"
	"github.com/ssarangi/recipectl/pkg/selector"
)

// Options configures the smoke-test run.
type Options struct {
	// Context selects which test commands and requirements apply.
	Context selector.Context

	// Timeout bounds each individual command. Zero means no bound beyond
	// the run's own context.
	Timeout time.Duration

	// Env is appended to the inherited environment of each command.
	Env []string

	// CheckEntryPoints additionally requires every declared entry point
	// to be resolvable on PATH before commands run.
	CheckEntryPoints bool
}

// CommandResult is the outcome of one smoke-test command.
type CommandResult struct {
	Command string
	Elapsed time.Duration
	Output  string
	Err     error
}

// Result is the outcome of the smoke-test phase for one recipe.
type Result struct {
	Package  string
	Commands []CommandResult
	Elapsed  time.Duration
}

// Ok reports whether every command exited zero. A recipe with no applicable
// commands passes vacuously; lint flags that case separately.
func (r *Result) Ok() bool {
	for _, c := range r.Commands {
		if c.Err != nil {
			return false
		}
	}
	return true
}

// Summary returns a one-line human summary.
func (r *Result) Summary() string {
	failed := 0
	for _, c := range r.Commands {
		if c.Err != nil {
			failed++
		}
	}
	status := "ok"
	if failed > 0 {
		status = fmt.Sprintf("%d/%d commands failed", failed, len(r.Commands))
	}
	return fmt.Sprintf("%s: %s in %s", r.Package, status, durafmt.Parse(r.Elapsed.Round(time.Millisecond)).String())
}

// Run executes the recipe's test phase: staging its test files into a
// scratch directory and running each applicable command there. Command
// failures are recorded in the result, not returned; the error return is
// for problems with the run itself.
func Run(ctx context.Context, e *recipe.Entry, opts Options) (*Result, error) {
	log := clog.FromContext(ctx)
	start := time.Now()

	commands, err := e.Recipe.TestCommands(opts.Context)
	if err != nil {
		return nil, fmt.Errorf("recipe %s: %w", e.Recipe.Package.Name, err)
	}

	if opts.CheckEntryPoints {
		if err := checkEntryPoints(e.Recipe, opts.Context); err != nil {
			return nil, err
		}
	}

	workDir, err := os.MkdirTemp("", "recipectl-smoke-*")
	if err != nil {
		return nil, fmt.Errorf("creating scratch directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	if err := stageFiles(e, workDir); err != nil {
		return nil, err
	}

	res := &Result{Package: e.Recipe.Package.Name}
	for _, command := range commands {
		log.Debugf("%s: running %q", e.Recipe.Package.Name, command)
		res.Commands = append(res.Commands, runCommand(ctx, command, workDir, opts))
	}
	res.Elapsed = time.Since(start)
	return res, nil
}

func runCommand(ctx context.Context, command, dir string, opts Options) CommandResult {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), opts.Env...)
	out, err := cmd.CombinedOutput()

	result := CommandResult{
		Command: command,
		Elapsed: time.Since(start),
		Output:  string(out),
	}
	if err != nil {
		result.Err = fmt.Errorf("command %q: %w", command, err)
	}
	return result
}

// checkEntryPoints verifies each declared entry point resolves on PATH, the
// post-install property the smoke commands rely on.
func checkEntryPoints(r *recipe.Recipe, ctx selector.Context) error {
	for _, ep := range r.Build.EntryPoints {
		if ep.Selector != "" {
			keep, err := selector.Eval(ep.Selector, ctx)
			if err != nil {
				return err
			}
			if !keep {
				continue
			}
		}
		if _, err := exec.LookPath(ep.Name); err != nil {
			return fmt.Errorf("entry point %q is not invocable: %w", ep.Name, err)
		}
	}
	return nil
}

// stageFiles copies the recipe's test files next to where the commands run.
func stageFiles(e *recipe.Entry, workDir string) error {
	for _, f := range e.Recipe.Test.Files {
		src := filepath.Join(e.Dir, filepath.Dir(e.Filename), f)
		dst := filepath.Join(workDir, filepath.Base(f))
		if err := copyFile(src, dst); err != nil {
			return fmt.Errorf("staging test file %s: %w", f, err)
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// RunAll smoke-tests every recipe in entries with bounded concurrency and
// returns results ordered by package name.
func RunAll(ctx context.Context, entries map[string]*recipe.Entry, opts Options, concurrency int) ([]*Result, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]*Result, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			res, err := Run(gctx, entries[name], opts)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// FailureOutput renders the combined output of failed commands, indented
// for display under a summary line.
func FailureOutput(r *Result) string {
	var b strings.Builder
	for _, c := range r.Commands {
		if c.Err == nil {
			continue
		}
		fmt.Fprintf(&b, "  %v\n", c.Err)
		for _, line := range strings.Split(strings.TrimRight(c.Output, "\n"), "\n") {
			if line != "" {
				fmt.Fprintf(&b, "    %s\n", line)
			}
		}
	}
	return b.String()
}
