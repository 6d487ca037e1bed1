// Package filestate reads entity status from the markdown files of an ito
// project so that the audit log can be reconciled against it.
package filestate

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Task statuses as written in tasks.md.
const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusComplete   = "complete"
	StatusShelved    = "shelved"
)

// Task is one tracked task of a change.
type Task struct {
	ID     string
	Title  string
	Status string
}

var (
	taskHeadingRe = regexp.MustCompile(`^(?:Task\s+)?([0-9][^:\s]*):\s+(.+?)\s*$`)
	statusRe      = regexp.MustCompile(`\*\*Status\*\*:\s*\[([ xX~>\-])\]\s*([a-z-]*)`)
	checkboxRe    = regexp.MustCompile(`^\[([ xX~>])\]\s*(.*?)\s*$`)
	checkboxIDRe  = regexp.MustCompile(`^([0-9]+(?:\.[0-9]+)*)[.:]?$`)
	statusMarker  = []byte("**Status**:")
)

var parser = goldmark.New().Parser()

// ParseTasks extracts tasks from a tasks.md document. Two layouts are
// understood: headings "### Task <id>: <title>" followed by a
// "**Status**: [<mark>] <word>" line, and plain checkbox lists
// "- [<mark>] <id> <title>" when no status lines are present.
func ParseTasks(source []byte) []Task {
	doc := parser.Parse(text.NewReader(source))
	p := &taskParser{
		source:   source,
		enhanced: bytes.Contains(source, statusMarker),
	}
	ast.Walk(doc, p.walk)
	return p.tasks
}

type taskParser struct {
	source   []byte
	enhanced bool
	tasks    []Task
	// current is the index of the task whose status line is expected next,
	// or -1.
	current int
}

func (p *taskParser) walk(node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	switch n := node.(type) {
	case *ast.Document:
		p.current = -1
	case *ast.Heading:
		p.current = -1
		if !p.enhanced || n.Level != 3 {
			return ast.WalkSkipChildren, nil
		}
		m := taskHeadingRe.FindStringSubmatch(p.rawText(n))
		if m == nil {
			return ast.WalkSkipChildren, nil
		}
		p.tasks = append(p.tasks, Task{ID: m[1], Title: m[2], Status: StatusPending})
		p.current = len(p.tasks) - 1
		return ast.WalkSkipChildren, nil
	case *ast.Paragraph, *ast.TextBlock:
		if p.enhanced {
			p.scanStatus(node)
		} else {
			p.scanCheckbox(node)
		}
		return ast.WalkSkipChildren, nil
	}
	return ast.WalkContinue, nil
}

func (p *taskParser) scanStatus(node ast.Node) {
	if p.current < 0 {
		return
	}
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		m := statusRe.FindSubmatch(seg.Value(p.source))
		if m == nil {
			continue
		}
		p.tasks[p.current].Status = resolveStatus(string(m[1]), string(m[2]))
		p.current = -1
		return
	}
}

func (p *taskParser) scanCheckbox(node ast.Node) {
	if _, ok := node.Parent().(*ast.ListItem); !ok || node.PreviousSibling() != nil {
		return
	}
	lines := node.Lines()
	if lines.Len() == 0 {
		return
	}
	seg := lines.At(0)
	m := checkboxRe.FindStringSubmatch(string(seg.Value(p.source)))
	if m == nil {
		return
	}

	id, title := strconv.Itoa(len(p.tasks)+1), m[2]
	if fields := strings.SplitN(m[2], " ", 2); len(fields) == 2 {
		if idm := checkboxIDRe.FindStringSubmatch(fields[0]); idm != nil {
			id, title = idm[1], strings.TrimSpace(fields[1])
		}
	}
	p.tasks = append(p.tasks, Task{ID: id, Title: title, Status: resolveStatus(m[1], "")})
}

func (p *taskParser) rawText(node ast.Node) string {
	var b strings.Builder
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(p.source))
	}
	return strings.TrimSpace(b.String())
}

// resolveStatus prefers an explicit status word and falls back to the
// checkbox mark.
func resolveStatus(mark, word string) string {
	switch word {
	case StatusPending, StatusInProgress, StatusComplete, StatusShelved:
		return word
	}
	switch mark {
	case "x", "X":
		return StatusComplete
	case "~", ">":
		return StatusInProgress
	case "-":
		return StatusShelved
	}
	return StatusPending
}
