package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"mercator-hq/stylecheck/pkg/cli"
	"mercator-hq/stylecheck/pkg/diag"
	"mercator-hq/stylecheck/pkg/settings"
	"mercator-hq/stylecheck/pkg/telemetry/logging"
)

// propertyPrefix addresses a single custom property, as in
// "properties.max.line.length".
const propertyPrefix = settings.PropCustomProperties + "."

var settingsFlags struct {
	reveal bool
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change preferences",
	Long: `Show or change the preferences stored in the configured preference store.

Properties:
  severity        lowest level reported (ignore, info, warning, error)
  config_file     engine configuration replacing the bundled one
  property_file   key=value file merged below custom properties
  classpath       rule definition files or directories (path list)
  properties      custom properties as key=value lines
  properties.KEY  a single custom property
  ignored_paths   regex of absolute paths never checked
  checked_paths   regex of absolute paths checked (all when empty)

A running watch picks changes up after scan.reload_delay.`,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the preferences",
	Args:  cobra.NoArgs,
	RunE:  showSettings,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <property> <value>",
	Short: "Change one preference",
	Long: `Change one preference.

Examples:
  stylecheck settings set severity warning
  stylecheck settings set classpath rules/:extra/checks.yaml
  stylecheck settings set properties.max.line.length 120
  stylecheck settings set ignored_paths '.*/generated/.*'`,
	Args: cobra.ExactArgs(2),
	RunE: setSetting,
}

var settingsUnsetCmd = &cobra.Command{
	Use:   "unset <property>",
	Short: "Reset one preference to its default",
	Args:  cobra.ExactArgs(1),
	RunE:  unsetSetting,
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd, settingsUnsetCmd)

	settingsShowCmd.Flags().BoolVar(&settingsFlags.reveal, "reveal", false, "print sensitive custom properties")
}

// withPreferences opens the preference store for fn.
func withPreferences(cmd *cobra.Command, fn func(settings.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging, cmd.ErrOrStderr()))
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	prefs, closer, err := openPreferences(context.Background(), cfg.Settings, logger)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer()
	}
	return fn(prefs)
}

func showSettings(cmd *cobra.Command, args []string) error {
	return withPreferences(cmd, func(prefs settings.Store) error {
		values := prefs.Values()
		if !settingsFlags.reveal {
			values.CustomProperties = logging.RedactProperties(values.CustomProperties)
		}
		data, err := yaml.Marshal(values)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	})
}

func setSetting(cmd *cobra.Command, args []string) error {
	return withPreferences(cmd, func(prefs settings.Store) error {
		values, err := applyPreference(prefs.Values(), args[0], args[1])
		if err != nil {
			return err
		}
		if err := prefs.SetValues(values); err != nil {
			return cli.NewCommandError("settings set", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s updated\n", args[0])
		return nil
	})
}

func unsetSetting(cmd *cobra.Command, args []string) error {
	return withPreferences(cmd, func(prefs settings.Store) error {
		values, err := resetPreference(prefs.Values(), args[0])
		if err != nil {
			return err
		}
		if err := prefs.SetValues(values); err != nil {
			return cli.NewCommandError("settings unset", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s reset\n", args[0])
		return nil
	})
}

// applyPreference returns a copy of v with property set to value.
func applyPreference(v settings.Values, property, value string) (settings.Values, error) {
	v = v.Clone()

	if key, ok := strings.CutPrefix(property, propertyPrefix); ok && key != "" {
		if v.CustomProperties == nil {
			v.CustomProperties = make(map[string]string)
		}
		v.CustomProperties[key] = value
		return v, nil
	}

	switch property {
	case settings.PropSeverity:
		policy, err := parseSeverity(value)
		if err != nil {
			return v, err
		}
		v.Severity = policy
	case settings.PropCustomConfigFile:
		v.CustomConfigFile = value
	case settings.PropCustomPropertyFile:
		v.CustomPropertyFile = value
	case settings.PropCustomClasspath:
		v.CustomClasspath = settings.SplitClasspath(value)
	case settings.PropCustomProperties:
		v.CustomProperties = settings.ParseProperties(value)
	case settings.PropIgnoredPathsPattern:
		v.IgnoredPathsPattern = value
	case settings.PropCheckedPathsPattern:
		v.CheckedPathsPattern = value
	default:
		return v, unknownProperty(property)
	}
	return v, nil
}

// resetPreference returns a copy of v with property cleared.
func resetPreference(v settings.Values, property string) (settings.Values, error) {
	v = v.Clone()

	if key, ok := strings.CutPrefix(property, propertyPrefix); ok && key != "" {
		delete(v.CustomProperties, key)
		return v, nil
	}

	switch property {
	case settings.PropSeverity:
		v.Severity = diag.PolicyIgnore
	case settings.PropCustomConfigFile:
		v.CustomConfigFile = ""
	case settings.PropCustomPropertyFile:
		v.CustomPropertyFile = ""
	case settings.PropCustomClasspath:
		v.CustomClasspath = nil
	case settings.PropCustomProperties:
		v.CustomProperties = nil
	case settings.PropIgnoredPathsPattern:
		v.IgnoredPathsPattern = ""
	case settings.PropCheckedPathsPattern:
		v.CheckedPathsPattern = ""
	default:
		return v, unknownProperty(property)
	}
	return v, nil
}

func unknownProperty(property string) error {
	return cli.NewConfigError("property", fmt.Sprintf("unknown preference %q (see stylecheck settings --help)", property))
}
