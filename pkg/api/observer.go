package api

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Observer receives callbacks from flow traversals for logging and metrics.
//
// Implementations should be fast and non-blocking; heavy work should be done
// asynchronously so as not to delay the traversal.
type Observer interface {
	// OnFlowStart is called once per traversal, before the first node runs.
	OnFlowStart(ctx context.Context, run *FlowRun)

	// OnFlowCompleted is called when a traversal reaches StatusCompleted.
	OnFlowCompleted(ctx context.Context, run *FlowRun)

	// OnFlowFailed is called when a traversal transitions to StatusFailed.
	OnFlowFailed(ctx context.Context, run *FlowRun, err error)

	// OnNodeStart is called before a node's lifecycle runs.
	OnNodeStart(ctx context.Context, run *FlowRun, node string)

	// OnNodeCompleted is called after a node's lifecycle returns, for both
	// successes and failures (err != nil).
	OnNodeCompleted(ctx context.Context, run *FlowRun, node string, action Action, err error, duration time.Duration)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnFlowStart(ctx context.Context, run *FlowRun)             {}
func (NoopObserver) OnFlowCompleted(ctx context.Context, run *FlowRun)         {}
func (NoopObserver) OnFlowFailed(ctx context.Context, run *FlowRun, err error) {}
func (NoopObserver) OnNodeStart(ctx context.Context, run *FlowRun, node string) {
}
func (NoopObserver) OnNodeCompleted(ctx context.Context, run *FlowRun, node string, action Action, err error, d time.Duration) {
}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnFlowStart(ctx context.Context, run *FlowRun) {
	for _, o := range c.observers {
		o.OnFlowStart(ctx, run)
	}
}

func (c *CompositeObserver) OnFlowCompleted(ctx context.Context, run *FlowRun) {
	for _, o := range c.observers {
		o.OnFlowCompleted(ctx, run)
	}
}

func (c *CompositeObserver) OnFlowFailed(ctx context.Context, run *FlowRun, err error) {
	for _, o := range c.observers {
		o.OnFlowFailed(ctx, run, err)
	}
}

func (c *CompositeObserver) OnNodeStart(ctx context.Context, run *FlowRun, node string) {
	for _, o := range c.observers {
		o.OnNodeStart(ctx, run, node)
	}
}

func (c *CompositeObserver) OnNodeCompleted(ctx context.Context, run *FlowRun, node string, action Action, err error, d time.Duration) {
	for _, o := range c.observers {
		o.OnNodeCompleted(ctx, run, node, action, err, d)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs flow / node lifecycle
// events using the provided slog.Logger. If logger is nil, slog.Default()
// is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnFlowStart(ctx context.Context, run *FlowRun) {
	o.Logger.InfoContext(ctx, "flow_start",
		slog.String("flow", run.Flow),
		slog.String("run_id", run.ID),
	)
}

func (o *LoggingObserver) OnFlowCompleted(ctx context.Context, run *FlowRun) {
	o.Logger.InfoContext(ctx, "flow_completed",
		slog.String("flow", run.Flow),
		slog.String("run_id", run.ID),
		slog.String("last_action", string(run.LastAction)),
	)
}

func (o *LoggingObserver) OnFlowFailed(ctx context.Context, run *FlowRun, err error) {
	o.Logger.ErrorContext(ctx, "flow_failed",
		slog.String("flow", run.Flow),
		slog.String("run_id", run.ID),
		slog.Any("error", err),
	)
}

func (o *LoggingObserver) OnNodeStart(ctx context.Context, run *FlowRun, node string) {
	o.Logger.DebugContext(ctx, "node_start",
		slog.String("flow", run.Flow),
		slog.String("run_id", run.ID),
		slog.String("node", node),
	)
}

func (o *LoggingObserver) OnNodeCompleted(ctx context.Context, run *FlowRun, node string, action Action, err error, d time.Duration) {
	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelError
	}
	o.Logger.Log(ctx, level, "node_completed",
		slog.String("flow", run.Flow),
		slog.String("run_id", run.ID),
		slog.String("node", node),
		slog.String("action", string(action)),
		slog.Duration("duration", d),
		slog.Any("error", err),
	)
}

// BasicMetrics collects simple counters and aggregate node durations.
// It implements Observer, and can be combined with LoggingObserver via
// NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	flowsStarted      atomic.Int64
	flowsCompleted    atomic.Int64
	flowsFailed       atomic.Int64
	nodesCompleted    atomic.Int64
	totalNodeDuration atomic.Int64 // nanoseconds
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	FlowsStarted   int64
	FlowsCompleted int64
	FlowsFailed    int64
	RunningFlows   int64

	NodesCompleted  int64
	AvgNodeDuration time.Duration
}

func (m *BasicMetrics) OnFlowStart(ctx context.Context, run *FlowRun) {
	m.flowsStarted.Add(1)
}

func (m *BasicMetrics) OnFlowCompleted(ctx context.Context, run *FlowRun) {
	m.flowsCompleted.Add(1)
}

func (m *BasicMetrics) OnFlowFailed(ctx context.Context, run *FlowRun, err error) {
	m.flowsFailed.Add(1)
}

func (m *BasicMetrics) OnNodeCompleted(ctx context.Context, run *FlowRun, node string, action Action, err error, d time.Duration) {
	// Only count successful nodes for average duration.
	if err == nil {
		m.nodesCompleted.Add(1)
		m.totalNodeDuration.Add(d.Nanoseconds())
	}
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	started := m.flowsStarted.Load()
	completed := m.flowsCompleted.Load()
	failed := m.flowsFailed.Load()
	nodes := m.nodesCompleted.Load()
	totalNs := m.totalNodeDuration.Load()

	var avg time.Duration
	if nodes > 0 {
		avg = time.Duration(totalNs / nodes)
	}

	return BasicMetricsSnapshot{
		FlowsStarted:    started,
		FlowsCompleted:  completed,
		FlowsFailed:     failed,
		RunningFlows:    started - completed - failed,
		NodesCompleted:  nodes,
		AvgNodeDuration: avg,
	}
}
