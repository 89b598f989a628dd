package config

import (
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/pkg/errors"
)

const shortCommitLength = 7

// CurrentBranch returns the branch checked out in the repository containing dir. It
// returns "" when dir is not in a repository, the repository has no commits or HEAD is detached.
func CurrentBranch(dir string) (string, error) {
	ref, err := head(dir)
	if err != nil || ref == nil {
		return "", err
	}
	if !ref.Name().IsBranch() {
		return "", nil
	}
	return ref.Name().Short(), nil
}

// ShortCommit returns the abbreviated hash of HEAD, or "" when there is none.
func ShortCommit(dir string) (string, error) {
	ref, err := head(dir)
	if err != nil || ref == nil {
		return "", err
	}
	return ref.Hash().String()[:shortCommitLength], nil
}

func head(dir string) (*plumbing.Reference, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "opening git repository")
	}

	ref, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "reading git HEAD")
	}
	return ref, nil
}
