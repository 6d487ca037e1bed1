package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ito-project/ito/internal/repo"
	"github.com/ito-project/ito/pkg/color"
)

var initCmd = &cobra.Command{
	Use:   "init [<dir>]",
	Short: "Initialize an ito project",
	Long: `Initialize an ito project in <dir> (default: the current directory).

This creates:
  - .ito/ with a default config.yaml
  - .ito/changes/ for change proposals
  - .ito/.state/audit/ for the audit log`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) > 0 {
			dir = args[0]
		}
		root, err := filepath.Abs(dir)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(root, 0755); err != nil {
			return fmt.Errorf("create %s: %w", root, err)
		}

		p, err := repo.Init(root)
		if err != nil {
			return fmt.Errorf("initialize project: %w", err)
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			return outputJSON(out, map[string]string{
				"root":      p.Root,
				"ito_dir":   p.ItoDir,
				"audit_log": p.AuditLogPath(),
			})
		}
		fmt.Fprintf(out, "Initialized ito project in %s\n", color.Success(p.ItoDir))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
