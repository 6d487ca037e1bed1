package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ito-project/ito/pkg/color"
	"github.com/ito-project/ito/pkg/model"
)

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// renderEvent formats one event as a single human-readable line.
func renderEvent(e model.AuditEvent) string {
	parts := []string{color.Dim(e.Timestamp.UTC().Format(timestampLayout))}

	entity := color.Entity(string(e.EntityKind), e.EntityID)
	if e.Scope != "" {
		entity += " " + color.Dim("("+e.Scope+")")
	}
	parts = append(parts, entity, string(e.Operation))

	switch {
	case e.From != "" && e.To != "":
		parts = append(parts, fmt.Sprintf("%s -> %s", e.From, e.To))
	case e.To != "":
		parts = append(parts, "-> "+e.To)
	case e.From != "":
		parts = append(parts, e.From+" ->")
	}

	actor := string(e.Actor)
	if e.By != "" {
		actor += " " + e.By
	}
	parts = append(parts, actor)

	return strings.Join(parts, "  ")
}

// renderTagged prefixes an event line with its worktree label.
func renderTagged(te model.TaggedEvent) string {
	return fmt.Sprintf("[%s] %s", color.Worktree(te.Source.Label()), renderEvent(te.Event))
}

func renderDrift(d model.Drift) string {
	label := fmt.Sprintf("%-8s", d.Kind)
	switch d.Kind {
	case model.DriftDiverged:
		label = color.Error(label)
	case model.DriftMissing, model.DriftOrphaned:
		label = color.Warning(label)
	}
	return fmt.Sprintf("%s  %s", label, strings.TrimPrefix(d.String(), string(d.Kind)+": "))
}

// renderCounts prints one "name  count" line per entry, sorted by name.
func renderCounts(title string, counts map[string]int) string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(color.Header(title) + "\n")
	for _, name := range names {
		fmt.Fprintf(&b, "  %-24s %d\n", name, counts[name])
	}
	return b.String()
}
