package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ito-project/ito/internal/filestate"
	"github.com/ito-project/ito/pkg/config"
	"github.com/ito-project/ito/pkg/model"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion script for ito.

Bash:
  source <(ito completion bash)

Zsh:
  ito completion zsh > "${fpath[1]}/_ito"

Fish:
  ito completion fish | source

PowerShell:
  ito completion powershell | Out-String | Invoke-Expression`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return cmd.Root().GenBashCompletionV2(out, true)
		case "zsh":
			return cmd.Root().GenZshCompletion(out)
		case "fish":
			return cmd.Root().GenFishCompletion(out, true)
		case "powershell":
			return cmd.Root().GenPowerShellCompletionWithDesc(out)
		}
		return fmt.Errorf("unsupported shell type: %s", args[0])
	},
}

// completeConfigKeys completes the first argument of config get/set.
func completeConfigKeys(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var keys []string
	for _, key := range config.Keys() {
		if strings.HasPrefix(key, toComplete) {
			keys = append(keys, key)
		}
	}
	return keys, cobra.ShellCompDirectiveNoFileComp
}

// completeChanges completes --change with the active change directories.
func completeChanges(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	p, err := discoverProject()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	scopes, _ := filestate.NewTasksProvider(p.ChangesDir()).Scopes()
	return scopes, cobra.ShellCompDirectiveNoFileComp
}

func completeEntityKinds(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	kinds := make([]string, len(model.EntityKinds))
	for i, k := range model.EntityKinds {
		kinds[i] = string(k)
	}
	return kinds, cobra.ShellCompDirectiveNoFileComp
}

func init() {
	configGetCmd.ValidArgsFunction = completeConfigKeys
	configSetCmd.ValidArgsFunction = completeConfigKeys
	_ = auditCmd.RegisterFlagCompletionFunc("change", completeChanges)
	_ = auditLogCmd.RegisterFlagCompletionFunc("entity", completeEntityKinds)
	rootCmd.AddCommand(completionCmd)
}
