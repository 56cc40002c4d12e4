package gitrepo

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/go-git/go-git/v5"
)

// ErrNotRepository is returned when no git repository encloses a path
var ErrNotRepository = errors.New("not inside a git repository")

// Repo is an opened git work tree
type Repo struct {
	repo *git.Repository
	root string
}

// Open finds the repository enclosing start, walking up parent directories
func Open(start string) (*Repo, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", start, err)
	}

	repo, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", ErrNotRepository, abs)
		}
		return nil, fmt.Errorf("failed to open repository at %s: %w", abs, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		// bare repositories have no hooks to deploy into a work tree
		return nil, fmt.Errorf("failed to open work tree: %w", err)
	}

	return &Repo{repo: repo, root: wt.Filesystem.Root()}, nil
}

// Root returns the top-level directory of the work tree
func (r *Repo) Root() string {
	return r.root
}

// HooksPath returns the core.hooksPath setting, or "" when git uses the
// default .git/hooks directory
func (r *Repo) HooksPath() (string, error) {
	cfg, err := r.repo.Config()
	if err != nil {
		return "", fmt.Errorf("failed to read repository config: %w", err)
	}
	if cfg.Raw == nil {
		return "", nil
	}
	return cfg.Raw.Section("core").Option("hooksPath"), nil
}

// FindRoot returns the work tree root enclosing start
func FindRoot(start string) (string, error) {
	r, err := Open(start)
	if err != nil {
		return "", err
	}
	return r.Root(), nil
}
