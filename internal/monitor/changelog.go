// internal/monitor/changelog.go

package monitor

import (
	"bytes"
	"fmt"
	"os"
	"sync"
)

// ChangeLog appends rendered change events to a text file. Every writer goes
// through the same mutex and each Append is one open, one write and one close,
// so a pass never interleaves with another and the file can be rotated
// between calls.
type ChangeLog struct {
	mu   sync.Mutex
	path string
}

// NewChangeLog returns a log writing to path. The file is created lazily.
func NewChangeLog(path string) *ChangeLog {
	return &ChangeLog{path: path}
}

// Path returns the log file location.
func (l *ChangeLog) Path() string {
	return l.path
}

// Append writes one line per event. An empty batch does not touch the file.
func (l *ChangeLog) Append(events []ChangeEvent) error {
	if len(events) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, ev := range events {
		buf.WriteString(ev.String())
		buf.WriteByte('\n')
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open change log: %w", err)
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return fmt.Errorf("failed to write change log: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close change log: %w", err)
	}

	return nil
}
