package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/stylecheck/pkg/cli"
	"mercator-hq/stylecheck/pkg/diag"
	"mercator-hq/stylecheck/pkg/scan"
)

var checkFlags struct {
	gitChanged bool
	format     string
	severity   string
	failOn     string
	progress   bool
	jobs       int
}

var checkCmd = &cobra.Command{
	Use:   "check [paths...]",
	Short: "Check source files",
	Long: `Check source files and print the problems found.

Directories are walked recursively, skipping hidden directories. Only files
with a configured extension are checked. Files outside the checked paths
pattern, inside the ignored paths pattern, or inside generated code regions
produce no problems.

The command exits with status 1 when a problem at or above --fail-on is
reported.

Examples:
  # Check the current directory
  stylecheck check

  # Check two trees and print JSON
  stylecheck check ./src ./test --format json

  # Check files changed in the git work tree, reporting warnings and errors
  stylecheck check --git-changed --severity warning`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().BoolVar(&checkFlags.gitChanged, "git-changed", false, "only check files modified or untracked in the git work tree")
	checkCmd.Flags().StringVarP(&checkFlags.format, "format", "f", "text", "output format: text, json, csv")
	checkCmd.Flags().StringVar(&checkFlags.severity, "severity", "", "override the stored severity (ignore, info, warning, error)")
	checkCmd.Flags().StringVar(&checkFlags.failOn, "fail-on", "error", "lowest level that fails the command (info, warning, error, none)")
	checkCmd.Flags().BoolVar(&checkFlags.progress, "progress", false, "show a progress bar on stderr")
	checkCmd.Flags().IntVarP(&checkFlags.jobs, "jobs", "j", 0, "files checked at once (defaults to scan.workers)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(checkFlags.format)
	if err != nil {
		return err
	}
	failOn, fail, err := parseFailOn(checkFlags.failOn)
	if err != nil {
		return err
	}

	ctx, stop := cli.SetupSignalHandler()
	defer stop()

	errOut := cmd.ErrOrStderr()
	a, err := newApp(ctx, errOut, appOptions{
		severity: checkFlags.severity,
		notify: func(message string) {
			fmt.Fprintln(errOut, "Configuration error:", message)
		},
	})
	if err != nil {
		return err
	}
	defer a.Close()

	var opts []scan.BatchOption
	if checkFlags.jobs > 0 {
		opts = append(opts, scan.WithJobs(checkFlags.jobs))
	}
	if checkFlags.progress {
		opts = append(opts, scan.WithProgress(cli.NewProgressReporter(errOut)))
	}
	batch := a.batch(opts...)
	defer batch.Finish()

	paths := args
	if len(paths) == 0 {
		paths = []string{"."}
	}
	if checkFlags.gitChanged {
		paths, err = gitChangedPaths(paths)
		if err != nil {
			return cli.NewCommandError("check", err)
		}
		if len(paths) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No changed files.")
			return nil
		}
	}

	report, err := batch.ScanAll(ctx, paths)
	if err != nil {
		return cli.NewCommandError("check", err)
	}
	for _, f := range report.Failed() {
		fmt.Fprintf(errOut, "%s: %v\n", f.Path, f.Err)
	}

	events := report.Events()
	formatter := cli.NewFormatter(format, useColor())
	if err := formatter.FormatEvents(cmd.OutOrStdout(), events); err != nil {
		return err
	}

	if fail {
		if n := countAtLeast(events, failOn); n > 0 {
			return &cli.FindingsError{Count: n}
		}
	}
	return nil
}

// gitChangedPaths returns the changed files of the repositories holding
// roots, restricted to files under one of the roots.
func gitChangedPaths(roots []string) ([]string, error) {
	var out []string
	for _, root := range roots {
		prefix, err := filepath.Abs(root)
		if err != nil {
			return nil, err
		}
		repo := prefix
		if info, err := os.Stat(prefix); err == nil && !info.IsDir() {
			repo = filepath.Dir(prefix)
		}
		changed, err := scan.ChangedFiles(repo)
		if err != nil {
			return nil, err
		}
		for _, path := range changed {
			if path == prefix || strings.HasPrefix(path, prefix+string(os.PathSeparator)) {
				out = append(out, path)
			}
		}
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

// parseSeverity parses a --severity value.
func parseSeverity(s string) (diag.Policy, error) {
	policy, err := diag.ParsePolicy(s)
	if err != nil {
		return 0, cli.NewConfigError("--severity", err.Error())
	}
	return policy, nil
}

// parseFailOn parses --fail-on. "none" disables failing.
func parseFailOn(s string) (diag.Level, bool, error) {
	if strings.EqualFold(s, "none") {
		return 0, false, nil
	}
	level, err := diag.ParseLevel(s)
	if err != nil {
		return 0, false, cli.NewConfigError("--fail-on", err.Error())
	}
	return level, true, nil
}

func countAtLeast(events []diag.Event, level diag.Level) int {
	n := 0
	for _, e := range events {
		if e.Level >= level {
			n++
		}
	}
	return n
}
