package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ito-project/ito/internal/audit"
	"github.com/ito-project/ito/pkg/color"
	"github.com/ito-project/ito/pkg/model"
)

var (
	auditChange string
	auditEntity string
	auditOp     string
	logLimit    int
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect and repair the audit log",
	Long: `Inspect and repair the append-only audit log of this working copy.

Available commands:
  log        - Print events, oldest first
  stats      - Count events by kind, operation, actor and change
  reconcile  - Compare the log with task files and optionally repair it
  validate   - Check the log for structural and semantic problems
  stream     - Follow new events live, optionally across all worktrees`,
}

var auditLogCmd = &cobra.Command{
	Use:   "log",
	Short: "Print audit events",
	Long: `Print audit events in log order.

Examples:
  ito audit log
  ito audit log --change 009-02_audit-log --entity task
  ito audit log --op reconciled -n 20`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}

		result, err := audit.ReadFiltered(s.project.AuditLogPath(), auditFilter())
		if err != nil {
			return err
		}
		events := result.Events
		if logLimit > 0 && len(events) > logLimit {
			events = events[len(events)-logLimit:]
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			if events == nil {
				events = []model.AuditEvent{}
			}
			return outputJSON(out, map[string]any{
				"events":   events,
				"warnings": result.Warnings,
			})
		}

		if len(events) == 0 {
			fmt.Fprintln(out, "No audit events.")
			return nil
		}
		for _, e := range events {
			fmt.Fprintln(out, renderEvent(e))
		}
		if n := len(result.Warnings); n > 0 {
			fmt.Fprintln(out, color.Warningf("%d corrupt line(s) skipped", n))
		}
		return nil
	},
}

var auditStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the audit log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}

		result, err := audit.ReadFiltered(s.project.AuditLogPath(), audit.Filter{Scope: auditChange})
		if err != nil {
			return err
		}
		stats := audit.ComputeStats(result.Events)

		out := cmd.OutOrStdout()
		if jsonOutput {
			return outputJSON(out, stats)
		}

		fmt.Fprintf(out, "%s %d\n", color.Header("Total events:"), stats.Total)
		fmt.Fprint(out, renderCounts("By kind:", stats.ByKind))
		fmt.Fprint(out, renderCounts("By operation:", stats.ByOperation))
		fmt.Fprint(out, renderCounts("By actor:", stats.ByActor))
		if len(stats.ByScope) > 0 {
			fmt.Fprint(out, renderCounts("By change:", stats.ByScope))
		}
		return nil
	},
}

func auditFilter() audit.Filter {
	return audit.Filter{
		Kind:      model.EntityKind(auditEntity),
		Scope:     auditChange,
		Operation: model.Operation(auditOp),
	}
}

func init() {
	auditCmd.PersistentFlags().StringVar(&auditChange, "change", "", "restrict to one change")
	auditLogCmd.Flags().StringVar(&auditEntity, "entity", "", "filter by entity kind")
	auditLogCmd.Flags().StringVar(&auditOp, "op", "", "filter by operation")
	auditLogCmd.Flags().IntVarP(&logLimit, "number", "n", 0, "show only the last N events")

	auditCmd.AddCommand(auditLogCmd)
	auditCmd.AddCommand(auditStatsCmd)
	rootCmd.AddCommand(auditCmd)
}
