package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ito-project/ito/internal/validate"
	"github.com/ito-project/ito/pkg/color"
	"github.com/ito-project/ito/pkg/errclass"
)

var (
	validateStrict     bool
	validateCheckState bool
)

var auditValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the audit log",
	Long: `Check every line of the audit log for structural problems and replay it
for semantic ones: duplicate creates, events before a create, illegal
status transitions. --check-state also compares the replayed state with
the task files. --strict treats warnings as errors, for CI.

Exits with status 1 when the log is invalid.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}

		strict := validateStrict
		if !cmd.Flags().Changed("strict") {
			strict = s.config.Audit.Validate.Strict
		}

		v := validate.NewValidator(s.project.AuditLogPath(), nil)
		if validateCheckState {
			v.Reconciler = s.reconciler(cmd.Context())
		}
		report, err := v.Validate(validate.Options{
			Strict:     strict,
			CheckState: validateCheckState,
			Scope:      auditChange,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			if err := outputJSON(out, report); err != nil {
				return err
			}
		} else {
			for _, issue := range report.Issues {
				fmt.Fprintln(out, renderIssue(issue))
			}
			errs, warns := report.Count(validate.SeverityError), report.Count(validate.SeverityWarning)
			summary := fmt.Sprintf("%d event(s), %d error(s), %d warning(s)", report.EventCount, errs, warns)
			if report.Valid {
				fmt.Fprintln(out, color.Success("valid: ")+summary)
			} else {
				fmt.Fprintln(out, color.Error("invalid: ")+summary)
			}
		}

		if !report.Valid {
			return errclass.ErrValidationFailed.WithMessagef("%d error(s)", report.Count(validate.SeverityError))
		}
		return nil
	},
}

func renderIssue(i validate.Issue) string {
	where := ""
	if i.Line > 0 {
		where = fmt.Sprintf("line %d: ", i.Line)
	}
	return fmt.Sprintf("%s [%s] %s%s", color.Severity(string(i.Severity)), i.Rule, where, i.Message)
}

func init() {
	auditValidateCmd.Flags().BoolVar(&validateStrict, "strict", false, "treat warnings as errors")
	auditValidateCmd.Flags().BoolVar(&validateCheckState, "check-state", false, "compare replayed state with task files")
	auditCmd.AddCommand(auditValidateCmd)
}
