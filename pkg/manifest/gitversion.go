package manifest

import (
	git "gopkg.in/src-d/go-git.v4"

	"github.com/modpack-run/modsync/pkg/errors"
)

// GitVersion derives a manifest version from the git repository containing
// path: the short hash of HEAD. Publishing flows that tag releases properly
// should prefer the configured version; this is for repositories where every
// push is a release.
func GitVersion(path string) (string, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", errors.WithContext(err, "open repository")
	}

	head, err := repo.Head()
	if err != nil {
		return "", errors.WithContext(err, "resolve HEAD")
	}
	return head.Hash().String()[:8], nil
}
