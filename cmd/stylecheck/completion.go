package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion script for Stylecheck.

To load completions:

Bash:
  $ source <(stylecheck completion bash)
  # To load permanently:
  $ stylecheck completion bash > /etc/bash_completion.d/stylecheck

Zsh:
  $ stylecheck completion zsh > "${fpath[1]}/_stylecheck"
  $ compinit

Fish:
  $ stylecheck completion fish | source
  # To load permanently:
  $ stylecheck completion fish > ~/.config/fish/completions/stylecheck.fish

PowerShell:
  PS> stylecheck completion powershell | Out-String | Invoke-Expression
  # To load permanently, add to your PowerShell profile
`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(cmd.OutOrStdout())
		case "zsh":
			return rootCmd.GenZshCompletion(cmd.OutOrStdout())
		case "fish":
			return rootCmd.GenFishCompletion(cmd.OutOrStdout(), true)
		case "powershell":
			return rootCmd.GenPowerShellCompletion(cmd.OutOrStdout())
		default:
			return fmt.Errorf("unsupported shell: %s", args[0])
		}
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
