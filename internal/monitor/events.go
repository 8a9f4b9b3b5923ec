// internal/monitor/events.go

package monitor

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimeLayout is used for every timestamp written to the change log.
const TimeLayout = "2006-01-02 15:04:05"

// EventType tags a ChangeEvent.
type EventType string

const (
	EventAdded    EventType = "added"
	EventDeleted  EventType = "deleted"
	EventModified EventType = "modified"
)

// ChangeEvent is one detected difference between two reconciliation passes.
// SnapshotTime is only meaningful for modified events and is zero when the
// file was never committed.
type ChangeEvent struct {
	Type         EventType `json:"type"`
	Path         string    `json:"path"`
	Timestamp    time.Time `json:"timestamp"`
	SnapshotTime time.Time `json:"snapshot_time"`
}

// String renders the event as a single change log line, without newline.
func (e ChangeEvent) String() string {
	switch e.Type {
	case EventAdded:
		return fmt.Sprintf("%s was added at %s", e.Path, e.Timestamp.Format(TimeLayout))
	case EventDeleted:
		return fmt.Sprintf("%s was deleted at %s", e.Path, e.Timestamp.Format(TimeLayout))
	case EventModified:
		return fmt.Sprintf("%s has changed since the snapshot time of %s", e.Path, formatSnapshot(e.SnapshotTime))
	default:
		return fmt.Sprintf("%s: unknown change %q", e.Path, e.Type)
	}
}

// MarshalJSON leaves snapshot_time out when the file was never committed.
func (e ChangeEvent) MarshalJSON() ([]byte, error) {
	type plain ChangeEvent
	out := struct {
		plain
		SnapshotTime *time.Time `json:"snapshot_time,omitempty"`
	}{plain: plain(e)}
	if !e.SnapshotTime.IsZero() {
		t := e.SnapshotTime
		out.SnapshotTime = &t
	}
	return json.Marshal(out)
}

func formatSnapshot(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format(TimeLayout)
}
