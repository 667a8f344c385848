package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"mercator-hq/stylecheck/pkg/cli"
	"mercator-hq/stylecheck/pkg/diag"
)

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	return path
}

func TestParseFailOn(t *testing.T) {
	tests := []struct {
		in       string
		want     diag.Level
		wantFail bool
		wantErr  bool
	}{
		{in: "error", want: diag.LevelError, wantFail: true},
		{in: "warning", want: diag.LevelWarning, wantFail: true},
		{in: "none", wantFail: false},
		{in: "NONE", wantFail: false},
		{in: "sometimes", wantErr: true},
	}

	for _, tt := range tests {
		got, fail, err := parseFailOn(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseFailOn(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if tt.wantErr {
			continue
		}
		if fail != tt.wantFail || (fail && got != tt.want) {
			t.Errorf("parseFailOn(%q) = %v, %v, want %v, %v", tt.in, got, fail, tt.want, tt.wantFail)
		}
	}
}

func TestCountAtLeast(t *testing.T) {
	events := []diag.Event{
		{Line: 1, Level: diag.LevelInfo},
		{Line: 2, Level: diag.LevelWarning},
		{Line: 3, Level: diag.LevelError},
		{Line: 4, Level: diag.LevelWarning},
	}

	if got := countAtLeast(events, diag.LevelWarning); got != 3 {
		t.Errorf("countAtLeast(warning) = %d, want 3", got)
	}
	if got := countAtLeast(events, diag.LevelError); got != 1 {
		t.Errorf("countAtLeast(error) = %d, want 1", got)
	}
	if got := countAtLeast(nil, diag.LevelInfo); got != 0 {
		t.Errorf("countAtLeast(nil) = %d, want 0", got)
	}
}

func TestGitChangedPaths(t *testing.T) {
	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit() error = %v, want nil", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree() error = %v, want nil", err)
	}

	top := writeFile(t, filepath.Join(dir, "A.java"), "class A {}\n")
	nested := writeFile(t, filepath.Join(dir, "sub", "B.java"), "class B {}\n")
	for _, name := range []string{"A.java", "sub/B.java"} {
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

	writeFile(t, top, "class A {  }\n")
	writeFile(t, nested, "class B {  }\n")

	got, err := gitChangedPaths([]string{filepath.Join(dir, "sub")})
	if err != nil {
		t.Fatalf("gitChangedPaths() error = %v, want nil", err)
	}
	if !slices.Equal(got, []string{nested}) {
		t.Errorf("gitChangedPaths(sub) = %v, want %v", got, []string{nested})
	}

	got, err = gitChangedPaths([]string{dir, top})
	if err != nil {
		t.Fatalf("gitChangedPaths() error = %v, want nil", err)
	}
	want := []string{top, nested}
	slices.Sort(want)
	if !slices.Equal(got, want) {
		t.Errorf("gitChangedPaths(dir, top) = %v, want %v", got, want)
	}
}

// TestCheckCommand runs the whole check pipeline. It is the only test in
// this package that loads a configuration file, which happens once per
// process.
func TestCheckCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, filepath.Join(dir, "stylecheck.yaml"), `
settings:
  store: memory
scan:
  workers: 2
tasks:
  enabled: false
telemetry:
  listen_address: ""
  logging:
    level: error
  tracing:
    enabled: false
`)
	src := writeFile(t, filepath.Join(dir, "src", "A.java"), "class A {  \n}\n")
	writeFile(t, filepath.Join(dir, "src", "notes.txt"), "ignored  \n")

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	}()
	rootCmd.SetArgs([]string{
		"--config", cfgPath,
		"check", filepath.Join(dir, "src"),
		"--format", "json",
		"--fail-on", "warning",
	})

	err := rootCmd.Execute()
	var findings *cli.FindingsError
	if !errors.As(err, &findings) {
		t.Fatalf("Execute() error = %v, want *cli.FindingsError (stderr: %s)", err, stderr.String())
	}
	if findings.Count != 1 {
		t.Errorf("Count = %d, want 1", findings.Count)
	}

	var events []diag.Event
	if err := json.Unmarshal(stdout.Bytes(), &events); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout.String())
	}
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1: %v", len(events), events)
	}
	if events[0].File != src || events[0].Line != 1 || events[0].Level != diag.LevelWarning {
		t.Errorf("event = %+v, want trailing spaces warning on line 1 of %s", events[0], src)
	}
}
