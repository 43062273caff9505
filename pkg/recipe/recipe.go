package recipe

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ssarangi/recipectl/pkg/selector"
)

// Recipe is a decoded package build manifest.
type Recipe struct {
	Package      Package      `yaml:"package"`
	Source       Source       `yaml:"source,omitempty"`
	Build        Build        `yaml:"build,omitempty"`
	Requirements Requirements `yaml:"requirements,omitempty"`
	Test         Test         `yaml:"test,omitempty"`
	About        About        `yaml:"about,omitempty"`
}

type Package struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type Source struct {
	Path   string `yaml:"path,omitempty"`
	URL    string `yaml:"url,omitempty"`
	Fn     string `yaml:"fn,omitempty"`
	SHA256 string `yaml:"sha256,omitempty"`
	MD5    string `yaml:"md5,omitempty"`
}

type Build struct {
	Number      int          `yaml:"number"`
	Script      string       `yaml:"script,omitempty"`
	NoArch      string       `yaml:"noarch,omitempty"`
	EntryPoints []EntryPoint `yaml:"entry_points,omitempty"`
}

type Requirements struct {
	Build []Dependency `yaml:"build,omitempty"`
	Run   []Dependency `yaml:"run,omitempty"`
}

type Test struct {
	Requires []Dependency `yaml:"requires,omitempty"`
	Files    []string     `yaml:"files,omitempty"`
	Imports  []string     `yaml:"imports,omitempty"`
	Commands []Command    `yaml:"commands,omitempty"`
}

type About struct {
	Home    string `yaml:"home,omitempty"`
	License string `yaml:"license,omitempty"`
	Summary string `yaml:"summary,omitempty"`
}

var reDependencyName = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// Dependency is one item of a requirements or test.requires list: a package
// name, an optional version constraint, and an optional selector carried in
// the item's trailing line comment.
type Dependency struct {
	Name       string
	Constraint string
	Selector   string
}

func (d *Dependency) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: dependency must be a scalar", node.Line)
	}
	spec := strings.TrimSpace(node.Value)
	if spec == "" {
		return fmt.Errorf("line %d: empty dependency", node.Line)
	}
	name, constraint, _ := strings.Cut(spec, " ")
	d.Name = name
	d.Constraint = strings.TrimSpace(constraint)
	d.Selector = selector.FromComment(node.LineComment)
	return nil
}

func (d Dependency) MarshalYAML() (interface{}, error) {
	n := &yaml.Node{Kind: yaml.ScalarNode, Value: d.String()}
	if d.Selector != "" {
		n.LineComment = fmt.Sprintf("# [%s]", d.Selector)
	}
	return n, nil
}

// String returns the dependency spec without its selector.
func (d Dependency) String() string {
	if d.Constraint == "" {
		return d.Name
	}
	return d.Name + " " + d.Constraint
}

// Validate checks the dependency name against the packaging grammar. The version
// constraint is validated separately by the versions package.
func (d Dependency) Validate() error {
	if !reDependencyName.MatchString(d.Name) {
		return fmt.Errorf("invalid dependency name %q", d.Name)
	}
	return nil
}

// Command is one item of test.commands, with an optional selector.
type Command struct {
	Command  string
	Selector string
}

func (c *Command) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: test command must be a scalar", node.Line)
	}
	c.Command = strings.TrimSpace(node.Value)
	c.Selector = selector.FromComment(node.LineComment)
	return nil
}

func (c Command) MarshalYAML() (interface{}, error) {
	n := &yaml.Node{Kind: yaml.ScalarNode, Value: c.Command}
	if c.Selector != "" {
		n.LineComment = fmt.Sprintf("# [%s]", c.Selector)
	}
	return n, nil
}

var reEntryPoint = regexp.MustCompile(`^([A-Za-z0-9_.-]+)\s*=\s*([A-Za-z0-9_.]+):([A-Za-z0-9_.]+)$`)

// EntryPoint is a declared console command, "name = module:callable". The
// callable lives in the packaged codebase, not in the recipe.
type EntryPoint struct {
	Name     string
	Module   string
	Callable string
	Selector string
}

func (e *EntryPoint) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: entry point must be a scalar", node.Line)
	}
	m := reEntryPoint.FindStringSubmatch(strings.TrimSpace(node.Value))
	if m == nil {
		return fmt.Errorf("line %d: entry point %q is not of the form name = module:callable", node.Line, node.Value)
	}
	e.Name = m[1]
	e.Module = m[2]
	e.Callable = m[3]
	e.Selector = selector.FromComment(node.LineComment)
	return nil
}

func (e EntryPoint) MarshalYAML() (interface{}, error) {
	n := &yaml.Node{Kind: yaml.ScalarNode, Value: e.String()}
	if e.Selector != "" {
		n.LineComment = fmt.Sprintf("# [%s]", e.Selector)
	}
	return n, nil
}

func (e EntryPoint) String() string {
	return fmt.Sprintf("%s = %s:%s", e.Name, e.Module, e.Callable)
}

// Parse decodes a rendered manifest. Selector comments on list items are
// preserved on the decoded values, so parsing must happen on text that has
// already been through the render step.
func Parse(data []byte) (*Recipe, error) {
	var r Recipe
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing recipe: %w", err)
	}
	if r.Package.Name == "" {
		return nil, fmt.Errorf("recipe has no package name")
	}
	return &r, nil
}

// filterBySelector drops items whose selector evaluates false for ctx.
// Items without a selector are always kept. An unparseable selector is an
// error.
func filterDeps(deps []Dependency, ctx selector.Context) ([]Dependency, error) {
	out := make([]Dependency, 0, len(deps))
	for _, d := range deps {
		keep, err := keepForContext(d.Selector, ctx)
		if err != nil {
			return nil, fmt.Errorf("dependency %q: %w", d.String(), err)
		}
		if keep {
			out = append(out, d)
		}
	}
	return out, nil
}

func keepForContext(sel string, ctx selector.Context) (bool, error) {
	if sel == "" {
		return true, nil
	}
	return selector.Eval(sel, ctx)
}

// BuildDeps returns the build requirements that apply to ctx.
func (r *Recipe) BuildDeps(ctx selector.Context) ([]Dependency, error) {
	return filterDeps(r.Requirements.Build, ctx)
}

// RunDeps returns the run requirements that apply to ctx.
func (r *Recipe) RunDeps(ctx selector.Context) ([]Dependency, error) {
	return filterDeps(r.Requirements.Run, ctx)
}

// TestRequires returns the test requirements that apply to ctx.
func (r *Recipe) TestRequires(ctx selector.Context) ([]Dependency, error) {
	return filterDeps(r.Test.Requires, ctx)
}

// TestCommands returns the smoke-test commands that apply to ctx.
func (r *Recipe) TestCommands(ctx selector.Context) ([]string, error) {
	out := make([]string, 0, len(r.Test.Commands))
	for _, c := range r.Test.Commands {
		keep, err := keepForContext(c.Selector, ctx)
		if err != nil {
			return nil, fmt.Errorf("test command %q: %w", c.Command, err)
		}
		if keep {
			out = append(out, c.Command)
		}
	}
	return out, nil
}
