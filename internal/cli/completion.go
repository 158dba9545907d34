package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for studyflow.

To load completions:

Bash:
  $ source <(studyflow completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ studyflow completion bash > /etc/bash_completion.d/studyflow
  # macOS:
  $ studyflow completion bash > $(brew --prefix)/etc/bash_completion.d/studyflow

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ studyflow completion zsh > "${fpath[1]}/_studyflow"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ studyflow completion fish | source

  # To load completions for each session, execute once:
  $ studyflow completion fish > ~/.config/fish/completions/studyflow.fish

PowerShell:
  PS> studyflow completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> studyflow completion powershell > studyflow.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}

	return cmd
}
