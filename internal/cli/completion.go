package cli

import (
	"io"

	"github.com/spf13/cobra"
)

// completionGenerators maps each supported shell to its cobra generator.
var completionGenerators = map[string]func(root *cobra.Command, w io.Writer) error{
	"bash":       func(r *cobra.Command, w io.Writer) error { return r.GenBashCompletionV2(w, true) },
	"zsh":        func(r *cobra.Command, w io.Writer) error { return r.GenZshCompletion(w) },
	"fish":       func(r *cobra.Command, w io.Writer) error { return r.GenFishCompletion(w, true) },
	"powershell": func(r *cobra.Command, w io.Writer) error { return r.GenPowerShellCompletionWithDesc(w) },
}

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for tileroute.

Load them for the current shell:

  $ source <(tileroute completion bash)
  $ source <(tileroute completion zsh)
  $ tileroute completion fish | source
  PS> tileroute completion powershell | Out-String | Invoke-Expression

To load them in every session, write the script to your shell's completion
directory, for example:

  $ tileroute completion bash > ~/.local/share/bash-completion/completions/tileroute
  $ tileroute completion zsh > "${fpath[1]}/_tileroute"
  $ tileroute completion fish > ~/.config/fish/completions/tileroute.fish

Run IDs of 'runs show' and 'runs delete' complete from the run store.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return completionGenerators[args[0]](cmd.Root(), c.Out)
		},
	}
}
