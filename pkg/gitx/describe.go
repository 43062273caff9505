package gitx

import (
	"context"
	"fmt"
	"strconv"

	"github.com/chainguard-dev/clog"
	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/ssarangi/recipectl/pkg/render"
)

// Describe resolves the nearest tag reachable from HEAD along the
// first-parent chain, returning the tag name and the number of commits
// HEAD is ahead of it. This is what populates GIT_DESCRIBE_TAG and
// GIT_DESCRIBE_NUMBER in the recipe's build environment.
func Describe(path string) (string, int, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", 0, fmt.Errorf("opening git repository at %s: %w", path, err)
	}

	head, err := repo.Head()
	if err != nil {
		return "", 0, fmt.Errorf("resolving HEAD: %w", err)
	}

	tagsByCommit, err := tagsByCommit(repo)
	if err != nil {
		return "", 0, err
	}

	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return "", 0, fmt.Errorf("reading HEAD commit: %w", err)
	}

	for distance := 0; ; distance++ {
		if tag, ok := tagsByCommit[commit.Hash]; ok {
			return tag, distance, nil
		}
		if commit.NumParents() == 0 {
			return "", 0, fmt.Errorf("no tag reachable from HEAD in %s", path)
		}
		commit, err = commit.Parent(0)
		if err != nil {
			return "", 0, fmt.Errorf("walking history: %w", err)
		}
	}
}

// tagsByCommit maps commit hashes to tag names, resolving annotated tags to
// the commits they point at.
func tagsByCommit(repo *git.Repository) (map[plumbing.Hash]string, error) {
	tags := make(map[plumbing.Hash]string)

	iter, err := repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().Short()
		hash := ref.Hash()
		if tagObj, err := repo.TagObject(hash); err == nil {
			commit, err := tagObj.Commit()
			if err != nil {
				return nil
			}
			tags[commit.Hash] = name
			return nil
		}
		tags[hash] = name
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterating tags: %w", err)
	}
	return tags, nil
}

// DescribeEnv returns the describe variables for the checkout at path,
// merged under env: values already present in env win, matching the build
// tool's rule that explicit environment beats derivation.
func DescribeEnv(ctx context.Context, path string, env render.Environment) (render.Environment, error) {
	log := clog.FromContext(ctx)

	out := render.Environment{}
	for k, v := range env {
		out[k] = v
	}

	_, tagSet := out["GIT_DESCRIBE_TAG"]
	_, numSet := out["GIT_DESCRIBE_NUMBER"]
	if tagSet && numSet {
		return out, nil
	}

	tag, distance, err := Describe(path)
	if err != nil {
		return nil, err
	}
	log.Infof("git describe: %s + %d commits", tag, distance)

	if !tagSet {
		out["GIT_DESCRIBE_TAG"] = tag
	}
	if !numSet {
		out["GIT_DESCRIBE_NUMBER"] = strconv.Itoa(distance)
	}
	return out, nil
}
