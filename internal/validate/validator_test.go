package validate_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ito-project/ito/internal/audit"
	"github.com/ito-project/ito/internal/filestate"
	"github.com/ito-project/ito/internal/validate"
	"github.com/ito-project/ito/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// line renders a task event at minute n.
func line(n int, id, op, from, to string) string {
	s := fmt.Sprintf(`{"schema_version":1,"timestamp":"2026-02-08T14:%02d:00.000Z","entity_kind":"task","entity_id":"%s","scope":"ch","operation":"%s"`, n, id, op)
	if from != "" {
		s += fmt.Sprintf(`,"from":"%s"`, from)
	}
	if to != "" {
		s += fmt.Sprintf(`,"to":"%s"`, to)
	}
	return s + `,"actor":"interactive","context":{"session_id":"s"}}`
}

func writeLog(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644))
	return path
}

func rules(r *validate.Report) []string {
	var out []string
	for _, issue := range r.Issues {
		out = append(out, issue.Rule)
	}
	return out
}

func TestValidate_CleanLog(t *testing.T) {
	path := writeLog(t,
		line(0, "1.1", "create", "", "pending"),
		line(1, "1.1", "status_change", "pending", "in-progress"),
		line(2, "1.1", "status_change", "in-progress", "complete"),
	)

	report, err := validate.NewValidator(path, nil).Validate(validate.Options{})
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Empty(t, report.Issues)
	assert.Equal(t, 3, report.EventCount)
}

func TestValidate_MissingLogIsValid(t *testing.T) {
	report, err := validate.NewValidator(filepath.Join(t.TempDir(), "none.jsonl"), nil).Validate(validate.Options{Strict: true})
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Zero(t, report.EventCount)
}

func TestValidate_DuplicateCreateStrict(t *testing.T) {
	path := writeLog(t,
		line(0, "1.1", "create", "", "pending"),
		line(1, "1.1", "create", "", "pending"),
	)

	report, err := validate.NewValidator(path, nil).Validate(validate.Options{Strict: true})
	require.NoError(t, err)
	assert.False(t, report.Valid)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, validate.SeverityError, report.Issues[0].Severity)
	assert.Equal(t, validate.RuleDuplicateCreate, report.Issues[0].Rule)
	assert.Equal(t, 2, report.Issues[0].Line)
}

func TestValidate_StructuralErrors(t *testing.T) {
	path := writeLog(t,
		line(0, "1.1", "create", "", "pending"),
		`{not json`,
		`{"schema_version":1,"timestamp":"2026-02-08T14:01:00Z","entity_kind":"task","operation":"create","actor":"interactive"}`,
		`{"schema_version":1,"timestamp":"yesterday","entity_kind":"task","entity_id":"2","operation":"create","actor":"interactive"}`,
		line(4, "1.2", "create", "", "pending"),
	)

	report, err := validate.NewValidator(path, nil).Validate(validate.Options{})
	require.NoError(t, err)
	assert.False(t, report.Valid)
	assert.Equal(t, []string{validate.RuleParse, validate.RuleRequiredField, validate.RuleTimestamp}, rules(report))
	assert.Equal(t, 2, report.EventCount)
	assert.Equal(t, 3, report.Count(validate.SeverityError))
}

func TestValidate_ForwardCompatibilityWarnings(t *testing.T) {
	path := writeLog(t,
		`{"schema_version":9,"timestamp":"2026-02-08T14:00:00Z","entity_kind":"ticket","entity_id":"T-1","operation":"create","actor":"automation"}`,
	)

	report, err := validate.NewValidator(path, nil).Validate(validate.Options{})
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Equal(t, []string{validate.RuleUnknownKind, validate.RuleSchemaVersion}, rules(report))

	strict, err := validate.NewValidator(path, nil).Validate(validate.Options{Strict: true})
	require.NoError(t, err)
	assert.False(t, strict.Valid)
	assert.Equal(t, 2, strict.Count(validate.SeverityError))
}

func TestValidate_TimestampOrderWarns(t *testing.T) {
	path := writeLog(t,
		line(5, "1.1", "create", "", "pending"),
		line(3, "1.2", "create", "", "pending"),
	)

	report, err := validate.NewValidator(path, nil).Validate(validate.Options{})
	require.NoError(t, err)
	assert.True(t, report.Valid)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, validate.RuleTimestampOrder, report.Issues[0].Rule)
	assert.Equal(t, validate.SeverityWarning, report.Issues[0].Severity)
}

func TestValidate_SemanticRules(t *testing.T) {
	path := writeLog(t,
		line(0, "1.1", "status_change", "pending", "in-progress"),
		line(1, "1.2", "create", "", "complete"),
		line(2, "1.2", "status_change", "complete", "shelved"),
		line(3, "1.3", "create", "", "pending"),
		line(4, "1.3", "status_change", "in-progress", "complete"),
	)

	report, err := validate.NewValidator(path, nil).Validate(validate.Options{})
	require.NoError(t, err)
	assert.False(t, report.Valid)
	assert.Equal(t, []string{
		validate.RuleMissingCreate,
		validate.RuleIllegalTransition,
		validate.RuleFromMismatch,
	}, rules(report))
	assert.Equal(t, []int{1, 3, 5}, []int{report.Issues[0].Line, report.Issues[1].Line, report.Issues[2].Line})
}

func TestValidate_ReconciledCountsAsCreate(t *testing.T) {
	path := writeLog(t,
		line(0, "1.1", "reconciled", "", "pending"),
		line(1, "1.1", "status_change", "pending", "complete"),
	)

	report, err := validate.NewValidator(path, nil).Validate(validate.Options{Strict: true})
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Empty(t, report.Issues)
}

func TestValidate_ScopeFilter(t *testing.T) {
	other := strings.Replace(line(1, "1.1", "create", "", "pending"), `"scope":"ch"`, `"scope":"other"`, 1)
	path := writeLog(t,
		line(0, "1.1", "create", "", "pending"),
		other,
		strings.Replace(other, "14:01", "14:02", 1),
	)

	report, err := validate.NewValidator(path, nil).Validate(validate.Options{Scope: "ch"})
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Equal(t, 1, report.EventCount)

	all, err := validate.NewValidator(path, nil).Validate(validate.Options{})
	require.NoError(t, err)
	assert.False(t, all.Valid)
}

func TestValidate_CheckState(t *testing.T) {
	path := writeLog(t,
		line(0, "1.1", "create", "", "pending"),
		line(1, "1.1", "status_change", "pending", "in-progress"),
		line(2, "9.9", "create", "", "pending"),
	)

	changes := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(changes, "ch"), 0755))
	tasks := "### Task 1.1: A\n\n- **Status**: [x] complete\n\n### Task 1.2: B\n\n- **Status**: [ ] pending\n"
	require.NoError(t, os.WriteFile(filepath.Join(changes, "ch", filestate.TasksFileName), []byte(tasks), 0644))

	rec := &audit.Reconciler{LogPath: path, Provider: filestate.NewTasksProvider(changes), Writer: audit.DiscardWriter{}}
	report, err := validate.NewValidator(path, rec).Validate(validate.Options{CheckState: true, Scope: "ch"})
	require.NoError(t, err)
	assert.False(t, report.Valid)
	require.Len(t, report.Issues, 3)

	bySeverity := map[validate.Severity][]string{}
	for _, issue := range report.Issues {
		assert.Equal(t, validate.RuleStateDrift, issue.Rule)
		assert.Zero(t, issue.Line)
		bySeverity[issue.Severity] = append(bySeverity[issue.Severity], issue.Message)
	}
	require.Len(t, bySeverity[validate.SeverityError], 1)
	assert.Contains(t, bySeverity[validate.SeverityError][0], string(model.DriftDiverged))
	assert.Len(t, bySeverity[validate.SeverityWarning], 2)
}

func TestValidate_CheckStateNeedsReconciler(t *testing.T) {
	path := writeLog(t, line(0, "1.1", "create", "", "pending"))
	_, err := validate.NewValidator(path, nil).Validate(validate.Options{CheckState: true})
	assert.Error(t, err)
}

func TestLegalTransition(t *testing.T) {
	assert.True(t, validate.LegalTransition(model.EntityTask, "pending", "complete"))
	assert.False(t, validate.LegalTransition(model.EntityTask, "complete", "shelved"))
	assert.True(t, validate.LegalTransition(model.EntityChange, "complete", "archived"))
	assert.False(t, validate.LegalTransition(model.EntityWave, "locked", "locked"))
	assert.False(t, validate.LegalTransition(model.EntityModule, "unknown", "active"))
	assert.True(t, validate.LegalTransition(model.EntityConfig, "a", "b"))
	assert.False(t, validate.Constrained(model.EntityPlanning))
}
