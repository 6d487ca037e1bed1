package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ito-project/ito/pkg/color"
)

var reconcileFix bool

var auditReconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Compare the audit log with task files",
	Long: `Replay the audit log and compare every task's last known status with its
tasks.md. Without --fix the drift is only reported. With --fix one
compensating event is appended per missing or diverged task; orphaned
entries are reported but never repaired.

Examples:
  ito audit reconcile
  ito audit reconcile --change 009-02_audit-log --fix`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}

		report, err := s.reconciler(cmd.Context()).Reconcile(auditChange, reconcileFix)
		if err != nil {
			return err
		}
		if report.WriteErrors != nil {
			fmtErr("some compensating events were not written: %v", report.WriteErrors)
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			return outputJSON(out, report)
		}

		if len(report.Drifts) == 0 {
			fmt.Fprintln(out, color.Success("No drift: audit log matches task files."))
			return nil
		}
		for _, d := range report.Drifts {
			fmt.Fprintln(out, renderDrift(d))
		}
		fmt.Fprintf(out, "\n%d drift(s) found.\n", len(report.Drifts))
		if reconcileFix {
			fmt.Fprintf(out, "Appended %d compensating event(s).\n", report.EventsWritten)
		} else {
			fmt.Fprintf(out, "Run %s to append compensating events.\n", color.Info("ito audit reconcile --fix"))
		}
		return nil
	},
}

func init() {
	auditReconcileCmd.Flags().BoolVar(&reconcileFix, "fix", false, "append compensating events")
	auditCmd.AddCommand(auditReconcileCmd)
}
