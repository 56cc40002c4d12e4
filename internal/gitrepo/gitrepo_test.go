package gitrepo

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
)

// initRepo creates a non-bare repository in a fresh temp dir
func initRepo(t *testing.T) (string, *git.Repository) {
	t.Helper()
	dir := t.TempDir()
	// Resolve symlinks (macOS /var -> /private/var) so roots compare equal.
	dir, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatal(err)
	}
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	return dir, repo
}

func TestFindRoot_FromSubdirectory(t *testing.T) {
	root, _ := initRepo(t)
	sub := filepath.Join(root, "src", "pkg")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}

	got, err := FindRoot(sub)
	if err != nil {
		t.Fatalf("FindRoot: %v", err)
	}
	if got != root {
		t.Errorf("FindRoot() = %s, want %s", got, root)
	}
}

func TestFindRoot_NotRepository(t *testing.T) {
	dir := t.TempDir()

	_, err := FindRoot(dir)
	if err == nil {
		// The temp dir itself may live inside a checkout on some CI hosts.
		t.Skip("temp dir is inside a git repository")
	}
	if !errors.Is(err, ErrNotRepository) {
		t.Errorf("expected ErrNotRepository, got %v", err)
	}
}

func TestHooksPath(t *testing.T) {
	root, repo := initRepo(t)

	r, err := Open(root)
	if err != nil {
		t.Fatal(err)
	}

	got, err := r.HooksPath()
	if err != nil {
		t.Fatalf("HooksPath: %v", err)
	}
	if got != "" {
		t.Errorf("HooksPath() = %q on fresh repo, want empty", got)
	}

	cfg, err := repo.Config()
	if err != nil {
		t.Fatal(err)
	}
	cfg.Raw.Section("core").SetOption("hooksPath", ".githooks")
	if err := repo.SetConfig(cfg); err != nil {
		t.Fatal(err)
	}

	r, err = Open(root)
	if err != nil {
		t.Fatal(err)
	}
	got, err = r.HooksPath()
	if err != nil {
		t.Fatalf("HooksPath: %v", err)
	}
	if got != ".githooks" {
		t.Errorf("HooksPath() = %q, want .githooks", got)
	}
}
