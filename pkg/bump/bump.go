package bump

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/chainguard-dev/clog"
	"github.com/dprotaso/go-yit"
	"gopkg.in/yaml.v3"
)

// Options configures a bump.
type Options struct {
	// DryRun reports what would change without writing the file.
	DryRun bool
}

var reNumberLine = regexp.MustCompile(`^(\s*number:\s*)(\d+)(\s*(?:#.*)?)$`)

// Bump increments the build number of the manifest at path in place,
// leaving every other byte of the file untouched. It returns the new build
// number.
//
// A manifest whose build number is templated from the environment has no
// literal number to bump; that is an error rather than a silent rewrite of
// the template.
func Bump(ctx context.Context, path string, opts Options) (int, error) {
	log := clog.FromContext(ctx)

	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		if bytes.Contains(raw, []byte("{{")) {
			return 0, fmt.Errorf("%s: build metadata is templated; set GIT_DESCRIBE_NUMBER at build time instead of bumping", path)
		}
		return 0, fmt.Errorf("parsing %s: %w", path, err)
	}

	numberNode, err := findBuildNumber(&doc)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}

	current, err := strconv.Atoi(numberNode.Value)
	if err != nil {
		return 0, fmt.Errorf("%s: build number %q is not an integer", path, numberNode.Value)
	}
	next := current + 1

	// The scalar's position in the node tree locates the one line to
	// rewrite; the rest of the file is preserved byte for byte.
	lines := bytes.Split(raw, []byte("\n"))
	lineIdx := numberNode.Line - 1
	if lineIdx < 0 || lineIdx >= len(lines) {
		return 0, fmt.Errorf("%s: build number node reports line %d outside the file", path, numberNode.Line)
	}
	m := reNumberLine.FindSubmatch(lines[lineIdx])
	if m == nil {
		return 0, fmt.Errorf("%s: line %d does not look like a build number line", path, numberNode.Line)
	}
	lines[lineIdx] = []byte(fmt.Sprintf("%s%d%s", m[1], next, m[3]))

	if opts.DryRun {
		log.Infof("%s: would bump build number %d -> %d", path, current, next)
		return next, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("checking file permissions of %s: %w", path, err)
	}
	if err := os.WriteFile(path, bytes.Join(lines, []byte("\n")), info.Mode()); err != nil {
		return 0, fmt.Errorf("writing %s: %w", path, err)
	}

	log.Infof("%s: bumped build number %d -> %d", path, current, next)
	return next, nil
}

// findBuildNumber walks the document for the scalar holding build.number.
func findBuildNumber(doc *yaml.Node) (*yaml.Node, error) {
	root := doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}

	it := yit.FromNode(root).ValuesForMap(yit.WithValue("build"), yit.All)
	buildNode, ok := it()
	if !ok {
		return nil, fmt.Errorf("manifest has no build section")
	}

	it = yit.FromNode(buildNode).ValuesForMap(yit.WithValue("number"), yit.All)
	numberNode, ok := it()
	if !ok {
		return nil, fmt.Errorf("build section has no number field")
	}
	if numberNode.Kind != yaml.ScalarNode {
		return nil, fmt.Errorf("build number is not a scalar")
	}
	return numberNode, nil
}
