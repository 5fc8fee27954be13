package grafo

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/petrijr/grafo/internal/history"
	"github.com/petrijr/grafo/pkg/api"
)

// RunRecord is the persisted summary of one flow run.
type RunRecord = history.RunRecord

// RunFilter selects run records; zero fields mean no filter.
type RunFilter = history.RunFilter

// ErrRunNotFound is returned when a run record does not exist.
var ErrRunNotFound = history.ErrRunNotFound

// History records flow runs and their node-level event trails. It implements
// Observer, so attaching it to a flow is all the wiring needed:
//
//	hist := grafo.NewMemoryHistory()
//	flow := grafo.NewFlow("ingest", start).WithObserver(hist)
//
//	_, _ = flow.Run(ctx, shared)
//	runs, _ := hist.ListRuns(grafo.RunFilter{Flow: "ingest"})
//
// Storage failures never fail the run; they are logged and dropped.
type History struct {
	store history.Store
}

// NewMemoryHistory creates a History backed by an in-memory store.
func NewMemoryHistory() *History {
	return &History{store: history.NewMemoryStore()}
}

// NewSQLiteHistory creates a History that persists runs and events in the
// given SQLite database, initializing the schema. The caller imports the
// driver, e.g.:
//
//	import _ "modernc.org/sqlite"
func NewSQLiteHistory(db *sql.DB) (*History, error) {
	store, err := history.NewSQLiteStore(db)
	if err != nil {
		return nil, err
	}
	return &History{store: store}, nil
}

// Ensure History implements Observer.
var _ api.Observer = (*History)(nil)

// GetRun fetches one run record by ID.
func (h *History) GetRun(id string) (RunRecord, error) {
	return h.store.GetRun(id)
}

// ListRuns lists run records matching the filter.
func (h *History) ListRuns(filter RunFilter) ([]RunRecord, error) {
	return h.store.ListRuns(filter)
}

// ListEvents returns a run's event trail in append order.
func (h *History) ListEvents(runID string) ([]RunEvent, error) {
	return h.store.ListEvents(runID)
}

func (h *History) OnFlowStart(ctx context.Context, run *FlowRun) {
	h.saveRun(run)
	h.appendEvent(api.RunEvent{
		RunID: run.ID,
		At:    time.Now(),
		Type:  api.EventRunStarted,
		Flow:  run.Flow,
	})
}

func (h *History) OnFlowCompleted(ctx context.Context, run *FlowRun) {
	h.saveRun(run)
	h.appendEvent(api.RunEvent{
		RunID:  run.ID,
		At:     time.Now(),
		Type:   api.EventRunCompleted,
		Flow:   run.Flow,
		Action: run.LastAction,
	})
}

func (h *History) OnFlowFailed(ctx context.Context, run *FlowRun, err error) {
	h.saveRun(run)
	ev := api.RunEvent{
		RunID: run.ID,
		At:    time.Now(),
		Type:  api.EventRunFailed,
		Flow:  run.Flow,
	}
	if err != nil {
		ev.Detail = err.Error()
	}
	h.appendEvent(ev)
}

func (h *History) OnNodeStart(ctx context.Context, run *FlowRun, node string) {
	h.appendEvent(api.RunEvent{
		RunID: run.ID,
		At:    time.Now(),
		Type:  api.EventNodeStarted,
		Flow:  run.Flow,
		Node:  node,
	})
}

func (h *History) OnNodeCompleted(ctx context.Context, run *FlowRun, node string, action Action, err error, d time.Duration) {
	ev := api.RunEvent{
		RunID:    run.ID,
		At:       time.Now(),
		Type:     api.EventNodeCompleted,
		Flow:     run.Flow,
		Node:     node,
		Action:   action,
		Duration: d,
	}
	if err != nil {
		ev.Type = api.EventNodeFailed
		ev.Detail = err.Error()
	}
	h.appendEvent(ev)
}

func (h *History) saveRun(run *FlowRun) {
	if err := h.store.SaveRun(history.RecordFromRun(run)); err != nil {
		slog.Warn("grafo: history save failed",
			slog.String("run_id", run.ID),
			slog.Any("error", err),
		)
	}
}

func (h *History) appendEvent(ev api.RunEvent) {
	if err := h.store.AppendEvent(ev); err != nil {
		slog.Warn("grafo: history event append failed",
			slog.String("run_id", ev.RunID),
			slog.Any("error", err),
		)
	}
}
