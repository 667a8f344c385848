package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"mercator-hq/stylecheck/pkg/cli"
)

var (
	// Global flags
	cfgFile string
	verbose bool
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "stylecheck",
	Short: "Stylecheck - configurable style checks for source files",
	Long: `Stylecheck runs style checks over source files and reports problems
filtered by a severity threshold, path patterns and generated code markers.

Preferences live in a YAML, TOML or SQLite preference store. Editing them
rebuilds the checker configuration without restarting a running watch.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var findings *cli.FindingsError
		if !errors.As(err, &findings) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults apply when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	cobra.OnInitialize(func() {
		if noColor {
			color.NoColor = true
		}
	})
}

// useColor reports whether text output should be colored.
func useColor() bool {
	return !noColor && !color.NoColor
}
