package scan

import (
	"fmt"
	"path/filepath"
	"slices"

	gogit "github.com/go-git/go-git/v5"
)

// ChangedFiles returns the absolute paths of files that are modified,
// added or untracked in the git work tree containing path. Deleted files
// are left out.
func ChangedFiles(path string) ([]string, error) {
	repo, err := gogit.PlainOpenWithOptions(path, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository at %q: %w", path, err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}

	status, err := worktree.Status()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree status: %w", err)
	}

	root := worktree.Filesystem.Root()
	var files []string
	for name, st := range status {
		if st.Worktree == gogit.Deleted || st.Staging == gogit.Deleted {
			continue
		}
		if st.Worktree == gogit.Unmodified && st.Staging == gogit.Unmodified {
			continue
		}
		files = append(files, filepath.Join(root, filepath.FromSlash(name)))
	}
	slices.Sort(files)
	return files, nil
}
