package api

import "time"

// EventType identifies a run history event.
type EventType string

const (
	EventRunStarted   EventType = "run.started"
	EventRunCompleted EventType = "run.completed"
	EventRunFailed    EventType = "run.failed"

	EventNodeStarted   EventType = "node.started"
	EventNodeCompleted EventType = "node.completed"
	EventNodeFailed    EventType = "node.failed"
)

// RunEvent is a minimal append-only history record for audit/debugging.
// It is intentionally small and stable; richer history can be layered later.
type RunEvent struct {
	RunID string
	At    time.Time
	Type  EventType

	// Optional context.
	Flow   string
	Node   string
	Action Action

	// Small, human-oriented details (e.g. an error string).
	// Keep this low-volume: do NOT dump large payloads here.
	Detail string

	// Duration of the node lifecycle, for node.completed / node.failed.
	Duration time.Duration
}
