// Package audit implements the append-only audit log: writing, reading,
// replay, drift detection and reconciliation.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ito-project/ito/pkg/errclass"
	"github.com/ito-project/ito/pkg/fsutil"
	"github.com/ito-project/ito/pkg/logging"
	"github.com/ito-project/ito/pkg/metrics"
	"github.com/ito-project/ito/pkg/model"
)

const (
	// StateDir is the audit directory relative to the ito directory.
	StateDir = ".state/audit"
	// LogFileName is the JSONL log inside StateDir.
	LogFileName = "events.jsonl"
)

// LogPath returns the audit log path for an ito directory.
func LogPath(itoDir string) string {
	return filepath.Join(itoDir, filepath.FromSlash(StateDir), LogFileName)
}

// Writer appends events to an audit log. There is no update or delete.
type Writer interface {
	Append(event *model.AuditEvent) error
}

// FileWriter appends audit events to a JSONL file.
type FileWriter struct {
	path string
	mu   sync.Mutex
}

// NewFileWriter creates a FileWriter for the log at path. Nothing is
// touched on disk until the first Append.
func NewFileWriter(path string) *FileWriter {
	return &FileWriter{path: path}
}

// Path returns the log file path.
func (w *FileWriter) Path() string {
	return w.path
}

// Append writes one event as a single line and fsyncs it.
func (w *FileWriter) Append(event *model.AuditEvent) error {
	err := w.append(event)
	metrics.Default().RecordAppend(err == nil)
	return err
}

func (w *FileWriter) append(event *model.AuditEvent) error {
	if event == nil {
		return errclass.ErrEventInvalid.WithMessage("nil event")
	}
	if !event.EntityKind.Known() {
		return errclass.ErrEntityKindUnknown.WithMessagef("entity kind %q is not writable", event.EntityKind)
	}

	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := fsutil.MkdirDurable(filepath.Dir(w.path), 0755); err != nil {
		return errclass.ErrAuditWrite.WithMessagef("create audit dir: %v", err)
	}

	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return errclass.ErrAuditWrite.WithMessagef("open audit log: %v", err)
	}
	defer file.Close()

	if err := lockFile(file); err != nil {
		return errclass.ErrAuditWrite.WithMessagef("lock audit log: %v", err)
	}
	defer unlockFile(file)

	if _, err := file.Write(line); err != nil {
		return errclass.ErrAuditWrite.WithMessagef("write audit event: %v", err)
	}
	if err := file.Sync(); err != nil {
		return errclass.ErrAuditWrite.WithMessagef("sync audit log: %v", err)
	}

	return nil
}

// DiscardWriter accepts every event and writes nothing. Used when auditing
// is disabled and in tests.
type DiscardWriter struct{}

// Append implements Writer.
func (DiscardWriter) Append(*model.AuditEvent) error { return nil }

// Emit appends event through w for a mutation command. A failed append is
// logged and swallowed so it never fails the primary operation.
func Emit(w Writer, event *model.AuditEvent) {
	if event == nil {
		return
	}
	if err := w.Append(event); err != nil {
		logging.Warn("audit event not recorded", map[string]any{
			"entity_kind": string(event.EntityKind),
			"entity_id":   event.EntityID,
			"operation":   string(event.Operation),
			"error":       err.Error(),
		})
	}
}
