package audit

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ito-project/ito/pkg/errclass"
	"github.com/ito-project/ito/pkg/logging"
	"github.com/ito-project/ito/pkg/metrics"
	"github.com/ito-project/ito/pkg/model"
)

// LineWarning reports a log line that was skipped.
type LineWarning struct {
	Line int   `json:"line"`
	Err  error `json:"-"`
}

func (w LineWarning) String() string {
	return fmt.Sprintf("line %d: %v", w.Line, w.Err)
}

// MarshalJSON renders the error as a string.
func (w LineWarning) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Line  int    `json:"line"`
		Error string `json:"error"`
	}{w.Line, w.Err.Error()})
}

// ReadResult holds the decoded events of a log in file order.
type ReadResult struct {
	Events   []model.AuditEvent
	Warnings []LineWarning
}

// Filter narrows events by kind, scope and operation. Zero fields match
// everything.
type Filter struct {
	Kind      model.EntityKind
	Scope     string
	Operation model.Operation
}

// Matches reports whether event passes the filter.
func (f Filter) Matches(event *model.AuditEvent) bool {
	if f.Kind != "" && event.EntityKind != f.Kind {
		return false
	}
	if f.Scope != "" && event.Scope != f.Scope {
		return false
	}
	if f.Operation != "" && event.Operation != f.Operation {
		return false
	}
	return true
}

// IsZero reports whether the filter matches everything.
func (f Filter) IsZero() bool {
	return f == Filter{}
}

// ParseLine decodes one log line. Unknown fields are ignored and unknown
// entity kinds are accepted; the identifying fields must be present.
func ParseLine(line []byte) (model.AuditEvent, error) {
	var event model.AuditEvent
	if err := json.Unmarshal(line, &event); err != nil {
		return model.AuditEvent{}, errclass.ErrEventInvalid.WithMessagef("decode: %v", err)
	}
	switch {
	case event.EntityKind == "":
		return model.AuditEvent{}, errclass.ErrEventInvalid.WithMessage("missing entity_kind")
	case event.EntityID == "":
		return model.AuditEvent{}, errclass.ErrEventInvalid.WithMessage("missing entity_id")
	case event.Operation == "":
		return model.AuditEvent{}, errclass.ErrEventInvalid.WithMessage("missing operation")
	}
	return event, nil
}

// ReadEvents reads every decodable event from the log at path. Blank lines
// are ignored; undecodable lines are logged, recorded as warnings and
// skipped. A missing log yields an empty result.
func ReadEvents(path string) (*ReadResult, error) {
	return ReadFiltered(path, Filter{})
}

// ReadFiltered is ReadEvents keeping only events that match f.
func ReadFiltered(path string, f Filter) (*ReadResult, error) {
	result := &ReadResult{}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return result, nil
		}
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer file.Close()

	err = ScanLines(file, func(lineNo int, line []byte) {
		event, err := ParseLine(line)
		if err != nil {
			result.Warnings = append(result.Warnings, LineWarning{Line: lineNo, Err: err})
			metrics.Default().RecordParseFailure()
			logging.Warn("skipping corrupt audit line", map[string]any{
				"path":  path,
				"line":  lineNo,
				"error": err.Error(),
			})
			return
		}
		if f.Matches(&event) {
			result.Events = append(result.Events, event)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}

	return result, nil
}

// ScanLines calls fn for every non-blank line of r with its 1-based line
// number. Lines have no length limit.
func ScanLines(r io.Reader, fn func(lineNo int, line []byte)) error {
	br := bufio.NewReader(r)
	lineNo := 0
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			lineNo++
			if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
				fn(lineNo, trimmed)
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
