package hooks

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// Filesystem is the subset of billy the synchronizer needs. osfs.Default and
// memfs.New() both satisfy it.
type Filesystem interface {
	billy.Basic
	billy.Dir
	billy.TempFile
}

// File is a hook script found in a source directory
type File struct {
	Name string // base name, also the name used in the destination
	Path string // full path in the source directory
}

// KnownHooks are the hook names git invokes, as documented in githooks(5)
var KnownHooks = []string{
	"applypatch-msg",
	"pre-applypatch",
	"post-applypatch",
	"pre-commit",
	"pre-merge-commit",
	"prepare-commit-msg",
	"commit-msg",
	"post-commit",
	"pre-rebase",
	"post-checkout",
	"post-merge",
	"pre-push",
	"pre-receive",
	"update",
	"proc-receive",
	"post-receive",
	"post-update",
	"reference-transaction",
	"push-to-checkout",
	"pre-auto-gc",
	"post-rewrite",
	"sendemail-validate",
	"fsmonitor-watchman",
	"p4-changelist",
	"p4-prepare-changelist",
	"p4-post-changelist",
	"p4-pre-submit",
	"post-index-change",
}

// IsKnownHook returns true if name is a hook git will actually run
func IsKnownHook(name string) bool {
	for _, known := range KnownHooks {
		if name == known {
			return true
		}
	}
	return false
}

// Discover lists the files directly inside dir, sorted by name.
// Subdirectories are not descended into.
func Discover(fs Filesystem, dir string) ([]File, error) {
	entries, err := fs.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	files := make([]File, 0, len(entries))
	for _, info := range entries {
		name := info.Name()
		path := fs.Join(dir, name)

		// Follow symlinks so a linked directory is still skipped
		if info.Mode()&os.ModeSymlink != 0 {
			target, err := fs.Stat(path)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
			}
			info = target
		}

		if info.IsDir() {
			continue
		}

		files = append(files, File{Name: name, Path: path})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// DirExists reports whether path exists. It returns an error if path exists
// but is not a directory.
func DirExists(fs Filesystem, path string) (bool, error) {
	info, err := fs.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if !info.IsDir() {
		return false, fmt.Errorf("%s is not a directory", path)
	}
	return true, nil
}

// ReadContent returns the content of path. A missing file reads as empty.
func ReadContent(fs Filesystem, path string) ([]byte, error) {
	data, err := util.ReadFile(fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}
