package testutil

import (
	"sort"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// Filesystem is satisfied by memfs.New() and osfs.Default
type Filesystem interface {
	billy.Basic
	billy.Dir
}

// WriteFiles creates dir and writes each name -> content pair into it
func WriteFiles(t *testing.T, fs Filesystem, dir string, files map[string]string) {
	t.Helper()
	if err := fs.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	for name, content := range files {
		if err := util.WriteFile(fs, fs.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

// ReadFiles returns the name -> content pairs of the regular files in dir
func ReadFiles(t *testing.T, fs Filesystem, dir string) map[string]string {
	t.Helper()
	entries, err := fs.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir %s: %v", dir, err)
	}
	got := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := util.ReadFile(fs, fs.Join(dir, e.Name()))
		if err != nil {
			t.Fatalf("read %s: %v", e.Name(), err)
		}
		got[e.Name()] = string(data)
	}
	return got
}

// Names returns the sorted keys of files
func Names(files map[string]string) []string {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
