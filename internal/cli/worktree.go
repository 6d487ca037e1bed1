package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ito-project/ito/internal/repo"
	"github.com/ito-project/ito/internal/worktree"
	"github.com/ito-project/ito/pkg/color"
)

type worktreeEntry struct {
	Path    string `json:"path"`
	Branch  string `json:"branch,omitempty"`
	IsMain  bool   `json:"is_main"`
	LogPath string `json:"log_path"`
	HasLog  bool   `json:"has_log"`
}

var worktreeCmd = &cobra.Command{
	Use:     "worktree",
	Short:   "Inspect git worktrees",
	Aliases: []string{"wt"},
}

var worktreeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List git worktrees and their audit logs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}

		entries, err := s.worktrees().List(cmd.Context())
		if err != nil {
			return fmt.Errorf("list worktrees: %w", err)
		}

		var list []worktreeEntry
		for _, e := range worktree.Resolve(entries, repo.WorktreeLogPath) {
			info, err := os.Stat(e.LogPath)
			list = append(list, worktreeEntry{
				Path:    e.Path,
				Branch:  e.Branch,
				IsMain:  e.IsMain,
				LogPath: e.LogPath,
				HasLog:  err == nil && !info.IsDir(),
			})
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			if list == nil {
				list = []worktreeEntry{}
			}
			return outputJSON(out, list)
		}

		for _, e := range list {
			branch := e.Branch
			if branch == "" {
				branch = "(detached)"
			}
			log := color.Dim("no audit log")
			if e.HasLog {
				log = color.Success("audit log")
			}
			fmt.Fprintf(out, "%-24s  %s  %s\n", branch, e.Path, log)
		}
		return nil
	},
}

func init() {
	worktreeCmd.AddCommand(worktreeListCmd)
	rootCmd.AddCommand(worktreeCmd)
}
