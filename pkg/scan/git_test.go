package scan

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

func TestChangedFiles(t *testing.T) {
	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit() error = %v, want nil", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree() error = %v, want nil", err)
	}

	committed := writeFile(t, filepath.Join(dir, "A.java"), "class A {}\n")
	unchanged := writeFile(t, filepath.Join(dir, "B.java"), "class B {}\n")
	removed := writeFile(t, filepath.Join(dir, "C.java"), "class C {}\n")
	for _, name := range []string{"A.java", "B.java", "C.java"} {
		if _, err := worktree.Add(name); err != nil {
			t.Fatalf("Add(%s) error = %v, want nil", name, err)
		}
	}
	_, err = worktree.Commit("initial", &gogit.CommitOptions{
		Author: &object.Signature{Name: "dev", Email: "dev@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatalf("Commit() error = %v, want nil", err)
	}

	writeFile(t, committed, "class A {  }\n")
	added := writeFile(t, filepath.Join(dir, "sub", "D.java"), "class D {}\n")
	if err := os.Remove(removed); err != nil {
		t.Fatalf("failed to remove file: %v", err)
	}

	files, err := ChangedFiles(filepath.Join(dir, "sub"))
	if err != nil {
		t.Fatalf("ChangedFiles() error = %v, want nil", err)
	}

	want := []string{committed, added}
	slices.Sort(want)
	if !slices.Equal(files, want) {
		t.Errorf("ChangedFiles() = %v, want %v", files, want)
	}
	if slices.Contains(files, unchanged) {
		t.Error("unchanged file reported")
	}
}

func TestChangedFiles_NotARepository(t *testing.T) {
	if _, err := ChangedFiles(t.TempDir()); err == nil {
		t.Error("ChangedFiles() error = nil, want an error outside a repository")
	}
}
