package grafo

import (
	"context"

	"github.com/petrijr/grafo/pkg/api"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Action               = api.Action
	Node                 = api.Node
	Successors           = api.Successors
	Shared               = api.Shared
	Params               = api.Params
	Step                 = api.Step
	BatchStep            = api.BatchStep
	BatchFlow            = api.BatchFlow
	ParallelBatchStep    = api.ParallelBatchStep
	ParallelBatchFlow    = api.ParallelBatchFlow
	Flow                 = api.Flow
	FlowRun              = api.FlowRun
	Handle               = api.Handle
	Status               = api.Status
	RetryPolicy          = api.RetryPolicy
	PhaseError           = api.PhaseError
	PrepFunc             = api.PrepFunc
	ExecFunc             = api.ExecFunc
	PostFunc             = api.PostFunc
	FallbackFunc         = api.FallbackFunc
	Observer             = api.Observer
	LoggingObserver      = api.LoggingObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot
	CompositeObserver    = api.CompositeObserver
	NoopObserver         = api.NoopObserver
	RunEvent             = api.RunEvent
	EventType            = api.EventType
)

// Re-export constructors and helpers.

var (
	NewShared            = api.NewShared
	NewSharedFrom        = api.NewSharedFrom
	NewStep              = api.NewStep
	NewBatchStep         = api.NewBatchStep
	NewBatchFlow         = api.NewBatchFlow
	NewParallelBatchStep = api.NewParallelBatchStep
	NewParallelBatchFlow = api.NewParallelBatchFlow
	NewFlow              = api.NewFlow
	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver
	MergeParams          = api.MergeParams
	IsPhaseError         = api.IsPhaseError
)

// ErrNoStartNode is returned when a flow is run without a start node.
var ErrNoStartNode = api.ErrNoStartNode

// DefaultAction routes to a node's default successor.
const DefaultAction = api.DefaultAction

// Re-export status values for convenience.

const (
	StatusPending   = api.StatusPending
	StatusRunning   = api.StatusRunning
	StatusFailed    = api.StatusFailed
	StatusCompleted = api.StatusCompleted
)

// Convenience helpers that just forward to the flow.

// Run runs a flow synchronously against the given shared store.
func Run(ctx context.Context, flow *Flow, shared *Shared) (Action, error) {
	return flow.Run(ctx, shared)
}

// Go starts a flow in a background goroutine and returns its join handle.
func Go(ctx context.Context, flow *Flow, shared *Shared) *Handle {
	return flow.Go(ctx, shared)
}
