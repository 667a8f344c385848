package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"mercator-hq/stylecheck/pkg/cli"
	"mercator-hq/stylecheck/pkg/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the stylecheck configuration file",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a configuration file",
	Long: `Load a configuration file, apply STYLECHECK_* environment overrides and
report every invalid field.

Examples:
  stylecheck config validate stylecheck.yaml
  stylecheck --config /etc/stylecheck.yaml config validate`,
	Args: cobra.MaximumNArgs(1),
	RunE: validateConfig,
}

var configDefaultsCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Print the default configuration as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := yaml.Marshal(config.DefaultConfig())
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configValidateCmd, configDefaultsCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if len(args) == 1 {
		path = args[0]
	}

	cfg, err := config.LoadConfigWithEnvOverrides(path)
	if err != nil {
		return cli.NewConfigError(path, err.Error())
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "✓ Configuration valid")
	fmt.Fprintf(out, "  settings: %s (%s)\n", cfg.Settings.Store, cfg.Settings.Path)
	fmt.Fprintf(out, "  workers: %d, reload delay: %s\n", cfg.Scan.Workers, cfg.Scan.ReloadDelay)
	if cfg.Tasks.Enabled {
		fmt.Fprintf(out, "  tasks: %s\n", cfg.Tasks.SQLite.Path)
	} else {
		fmt.Fprintln(out, "  tasks: disabled")
	}
	return nil
}
