package history

import (
	"errors"
	"time"

	"github.com/petrijr/grafo/pkg/api"
)

// ErrRunNotFound is returned when a run record is not found.
var ErrRunNotFound = errors.New("run not found")

// RunRecord is the persisted form of a flow run. The error is flattened to
// a string so records survive any storage backend.
type RunRecord struct {
	ID         string
	Flow       string
	Status     api.Status
	LastAction api.Action
	Error      string
	StartedAt  time.Time
	EndedAt    time.Time
}

// RecordFromRun flattens a FlowRun into its persisted form.
func RecordFromRun(run *api.FlowRun) RunRecord {
	rec := RunRecord{
		ID:         run.ID,
		Flow:       run.Flow,
		Status:     run.Status,
		LastAction: run.LastAction,
		StartedAt:  run.StartedAt,
		EndedAt:    run.EndedAt,
	}
	if run.Err != nil {
		rec.Error = run.Err.Error()
	}
	return rec
}

// RunFilter is used to select run records from the store.
// Empty string / zero status mean "no filter" for that field.
type RunFilter struct {
	Flow   string
	Status api.Status
}

// Store handles storage of run records and their event trails.
type Store interface {
	// SaveRun inserts or replaces the record for a run.
	SaveRun(rec RunRecord) error
	GetRun(id string) (RunRecord, error)
	ListRuns(filter RunFilter) ([]RunRecord, error)

	// AppendEvent appends one event to a run's trail. Events are
	// append-only; there is no update or delete.
	AppendEvent(ev api.RunEvent) error
	ListEvents(runID string) ([]api.RunEvent, error)
}
