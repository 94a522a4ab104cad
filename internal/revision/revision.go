// Package revision stamps build reports with the git revision of the app.
package revision

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// shortHashLen is the length of an abbreviated commit hash.
const shortHashLen = 8

// Info is the revision of a working tree.
type Info struct {
	// Hash is the full commit hash of HEAD.
	Hash string

	// Branch is the short branch name, empty for a detached HEAD.
	Branch string
}

// Short returns "branch@abcdef12", or the short hash alone when detached.
func (i Info) Short() string {
	h := i.Hash
	if len(h) > shortHashLen {
		h = h[:shortHashLen]
	}
	if i.Branch == "" {
		return h
	}
	return i.Branch + "@" + h
}

// Detect returns the HEAD revision of the repository containing dir.
// It returns ok=false, and no error, when dir is not inside a repository or
// the repository has no commits yet.
func Detect(dir string) (Info, bool, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return Info{}, false, nil
	}
	if err != nil {
		return Info{}, false, fmt.Errorf("failed to open git repository at %s: %w", dir, err)
	}

	head, err := repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return Info{}, false, nil
	}
	if err != nil {
		return Info{}, false, fmt.Errorf("failed to read HEAD: %w", err)
	}

	info := Info{Hash: head.Hash().String()}
	if head.Name().IsBranch() {
		info.Branch = head.Name().Short()
	}
	return info, true, nil
}
