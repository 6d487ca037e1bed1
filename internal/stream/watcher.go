// Package stream tails the audit logs of every worktree and merges their new
// events into one live feed. Events are emitted in the order the watcher
// sees them, not by timestamp; the feed is informative, not authoritative.
package stream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/ito-project/ito/internal/audit"
	"github.com/ito-project/ito/pkg/logging"
	"github.com/ito-project/ito/pkg/metrics"
	"github.com/ito-project/ito/pkg/model"
)

// DiscoverFunc returns the worktrees whose logs should be watched.
type DiscoverFunc func(ctx context.Context) ([]model.WorktreeInfo, error)

// Config controls polling and backfill.
type Config struct {
	PollInterval       time.Duration
	RediscoverInterval time.Duration
	// Backfill is the number of trailing events emitted once when a watch
	// starts. Zero emits only events appended afterwards.
	Backfill int
	Filter   audit.Filter
}

// DefaultConfig returns the polling defaults.
func DefaultConfig() Config {
	return Config{
		PollInterval:       500 * time.Millisecond,
		RediscoverInterval: 5 * time.Second,
		Backfill:           10,
	}
}

// Watcher polls a changing set of log files.
type Watcher struct {
	discover DiscoverFunc
	cfg      Config

	mu      sync.Mutex
	watches map[string]*watch
}

type watch struct {
	source model.WorktreeInfo
	file   *os.File
	info   os.FileInfo
	offset int64
	log    *logging.Logger
}

// NewWatcher creates a Watcher. Non-positive intervals fall back to the
// defaults.
func NewWatcher(discover DiscoverFunc, cfg Config) *Watcher {
	def := DefaultConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.RediscoverInterval <= 0 {
		cfg.RediscoverInterval = def.RediscoverInterval
	}
	return &Watcher{
		discover: discover,
		cfg:      cfg,
		watches:  make(map[string]*watch),
	}
}

// Sources returns the worktrees currently watched, sorted by label.
func (w *Watcher) Sources() []model.WorktreeInfo {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]model.WorktreeInfo, 0, len(w.watches))
	for _, wt := range w.watches {
		out = append(out, wt.source)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Label() != out[j].Label() {
			return out[i].Label() < out[j].Label()
		}
		return out[i].LogPath < out[j].LogPath
	})
	return out
}

// Run discovers sources and polls them until ctx is cancelled, calling emit
// from the calling goroutine for every new event. Only the initial
// discovery error is returned; later failures are logged and the affected
// watch is dropped. All file handles are closed before Run returns.
func (w *Watcher) Run(ctx context.Context, emit func(model.TaggedEvent)) error {
	defer w.closeAll()

	if err := w.rediscover(ctx, emit); err != nil {
		return fmt.Errorf("discover worktrees: %w", err)
	}
	lastDiscovery := time.Now()

	wait.UntilWithContext(ctx, func(ctx context.Context) {
		w.pollAll(emit)
		if time.Since(lastDiscovery) >= w.cfg.RediscoverInterval {
			if err := w.rediscover(ctx, emit); err != nil {
				logging.Warn("worktree rediscovery failed", map[string]any{"error": err.Error()})
			}
			lastDiscovery = time.Now()
		}
	}, w.cfg.PollInterval)

	return nil
}

// rediscover starts a watch for every discovered log not yet watched.
func (w *Watcher) rediscover(ctx context.Context, emit func(model.TaggedEvent)) error {
	found, err := w.discover(ctx)
	if err != nil {
		return err
	}

	w.mu.Lock()
	known := sets.KeySet(w.watches)
	w.mu.Unlock()

	for _, source := range found {
		if known.Has(source.LogPath) {
			continue
		}
		known.Insert(source.LogPath)

		wt, err := w.open(source, emit)
		if err != nil {
			logging.Warn("cannot watch audit log", map[string]any{
				"worktree": source.Label(),
				"path":     source.LogPath,
				"error":    err.Error(),
			})
			continue
		}

		w.mu.Lock()
		w.watches[source.LogPath] = wt
		w.mu.Unlock()
		wt.log.Debug("watching audit log")
	}
	return nil
}

// open starts a watch at the end of the last complete line, emitting up to
// Backfill trailing events first.
func (w *Watcher) open(source model.WorktreeInfo, emit func(model.TaggedEvent)) (*watch, error) {
	file, err := os.Open(source.LogPath)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}

	wt := &watch{
		source: source,
		file:   file,
		info:   info,
		log: logging.WithFields(map[string]any{
			"worktree": source.Label(),
			"path":     source.LogPath,
		}),
	}

	end, err := lastLineEnd(file, info.Size(), tailChunk)
	if err != nil {
		file.Close()
		return nil, err
	}
	wt.offset = end

	if w.cfg.Backfill > 0 {
		backlog, err := tailEvents(file, end, tailChunk, w.cfg.Backfill, w.cfg.Filter)
		if err != nil {
			file.Close()
			return nil, err
		}
		for _, event := range backlog {
			w.emit(emit, event, source)
		}
	}

	return wt, nil
}

func (w *Watcher) pollAll(emit func(model.TaggedEvent)) {
	w.mu.Lock()
	watches := make([]*watch, 0, len(w.watches))
	for _, wt := range w.watches {
		watches = append(watches, wt)
	}
	w.mu.Unlock()

	sort.Slice(watches, func(i, j int) bool {
		return watches[i].source.LogPath < watches[j].source.LogPath
	})

	for _, wt := range watches {
		if reason := w.poll(wt, emit); reason != "" {
			w.drop(wt, reason)
		}
	}
}

// poll emits the complete lines appended since the last poll. A non-empty
// return value is the reason the watch must be dropped.
func (w *Watcher) poll(wt *watch, emit func(model.TaggedEvent)) string {
	info, err := os.Stat(wt.source.LogPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "audit log or worktree disappeared"
		}
		return err.Error()
	}
	if !os.SameFile(info, wt.info) {
		return "audit log was replaced"
	}

	size := info.Size()
	if size < wt.offset {
		wt.log.Warn("audit log truncated, restarting from the beginning", map[string]any{
			"offset": wt.offset,
			"size":   size,
		})
		wt.offset = 0
	}
	if size == wt.offset {
		return ""
	}

	data := make([]byte, size-wt.offset)
	n, err := wt.file.ReadAt(data, wt.offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return err.Error()
	}
	complete := completeLines(data[:n])
	if len(complete) == 0 {
		return ""
	}

	audit.ScanLines(bytes.NewReader(complete), func(_ int, line []byte) {
		event, err := audit.ParseLine(line)
		if err != nil {
			metrics.Default().RecordParseFailure()
			wt.log.Warn("skipping corrupt streamed line", map[string]any{"error": err.Error()})
			return
		}
		if w.cfg.Filter.Matches(&event) {
			w.emit(emit, event, wt.source)
		}
	})
	wt.offset += int64(len(complete))
	return ""
}

func (w *Watcher) emit(emit func(model.TaggedEvent), event model.AuditEvent, source model.WorktreeInfo) {
	metrics.Default().RecordStreamEvent()
	emit(model.TaggedEvent{Event: event, Source: source})
}

func (w *Watcher) drop(wt *watch, reason string) {
	w.mu.Lock()
	delete(w.watches, wt.source.LogPath)
	w.mu.Unlock()

	wt.file.Close()
	metrics.Default().RecordWatchDropped()
	wt.log.Warn("dropping stream watch", map[string]any{"reason": reason})
}

func (w *Watcher) closeAll() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, wt := range w.watches {
		wt.file.Close()
		delete(w.watches, path)
	}
}

// completeLines returns the prefix of data up to and including its last
// newline.
func completeLines(data []byte) []byte {
	i := bytes.LastIndexByte(data, '\n')
	if i < 0 {
		return nil
	}
	return data[:i+1]
}
