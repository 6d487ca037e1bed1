package stream

import (
	"bytes"
	"errors"
	"io"

	"github.com/ito-project/ito/internal/audit"
	"github.com/ito-project/ito/pkg/model"
)

// tailChunk is the read size used when scanning a log backwards on open.
const tailChunk int64 = 64 << 10

// lastLineEnd returns the offset just past the last newline in the first
// size bytes of r, or 0 when there is none. It reads backwards chunk bytes
// at a time.
func lastLineEnd(r io.ReaderAt, size, chunk int64) (int64, error) {
	buf := make([]byte, min(size, chunk))
	for end := size; end > 0; {
		start := max(0, end-chunk)
		n, err := r.ReadAt(buf[:end-start], start)
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, err
		}
		if i := bytes.LastIndexByte(buf[:n], '\n'); i >= 0 {
			return start + int64(i) + 1, nil
		}
		end = start
	}
	return 0, nil
}

// tailEvents returns up to n of the last events before end that match f.
// The window read doubles from chunk until it holds n matches or reaches
// the start of the file. Corrupt lines are skipped.
func tailEvents(r io.ReaderAt, end, chunk int64, n int, f audit.Filter) ([]model.AuditEvent, error) {
	for window := chunk; ; window *= 2 {
		start := max(0, end-window)
		data := make([]byte, end-start)
		read, err := r.ReadAt(data, start)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		data = data[:read]
		if start > 0 {
			// The first line may be cut; a wider window rereads it.
			i := bytes.IndexByte(data, '\n')
			if i < 0 {
				continue
			}
			data = data[i+1:]
		}

		var events []model.AuditEvent
		audit.ScanLines(bytes.NewReader(data), func(_ int, line []byte) {
			if event, err := audit.ParseLine(line); err == nil && f.Matches(&event) {
				events = append(events, event)
			}
		})
		if len(events) >= n || start == 0 {
			if len(events) > n {
				events = events[len(events)-n:]
			}
			return events, nil
		}
	}
}
