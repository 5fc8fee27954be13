package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofrs/uuid/v5"
)

// Status represents the lifecycle state of a flow run.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// FlowRun is the record of one top-level graph traversal. A fresh FlowRun is
// created per Run invocation and handed to observers; it is a trace record,
// not resumable execution state.
type FlowRun struct {
	ID         string
	Flow       string
	Status     Status
	LastAction Action
	Err        error
	StartedAt  time.Time
	EndedAt    time.Time
}

func newFlowRun(flow string) *FlowRun {
	id, _ := uuid.NewV4()
	return &FlowRun{
		ID:        id.String(),
		Flow:      flow,
		Status:    StatusPending,
		StartedAt: time.Now(),
	}
}

// Flow walks a successor graph from a configured start node, executing nodes
// in sequence until the returned action has no successor. Flow itself
// implements Node, so a whole graph can be a single step of an outer graph:
// the action it returns to the outer graph is, by default, the last action of
// its internal traversal.
type Flow struct {
	baseNode

	start    Node
	observer Observer

	// Optional hooks, independent of the inner traversal.
	prep PrepFunc
	post PostFunc
}

// NewFlow creates a Flow starting at start.
func NewFlow(name string, start Node) *Flow {
	return &Flow{
		baseNode: newBaseNode(name),
		start:    start,
		observer: NoopObserver{},
	}
}

// WithObserver attaches an observer that receives run and node lifecycle
// events for every traversal of this flow.
func (f *Flow) WithObserver(obs Observer) *Flow {
	if obs == nil {
		obs = NoopObserver{}
	}
	f.observer = obs
	return f
}

// WithPrep sets a hook that runs before the traversal starts. Its result is
// passed to the flow's post hook, never to the inner nodes.
func (f *Flow) WithPrep(fn PrepFunc) *Flow {
	f.prep = fn
	return f
}

// WithPost sets a hook that runs after the traversal completes. It receives
// the traversal's last action as the exec result and decides the action the
// flow returns to an enclosing graph. When unset, the last action of the
// traversal is returned as-is.
func (f *Flow) WithPost(fn PostFunc) *Flow {
	f.post = fn
	return f
}

// Start returns the flow's entry node.
func (f *Flow) Start() Node { return f.start }

// On links next as the successor for action. See Node.On.
func (f *Flow) On(action Action, next Node) Node {
	return f.link(action, next)
}

// Run executes one full traversal: the flow's prep hook, the graph walk from
// the start node, then the post hook. A node failure aborts the traversal
// and surfaces the original error to the caller.
func (f *Flow) Run(ctx context.Context, shared *Shared) (Action, error) {
	return f.runWithParams(ctx, shared, f.Params())
}

// Go launches Run on its own goroutine and returns a Handle the caller can
// join on. It is the asynchronous entry point: the traversal suspends only
// at context-aware waits (retry backoff, sleep nodes, user I/O), so many
// handles can be in flight on a small number of OS threads.
func (f *Flow) Go(ctx context.Context, shared *Shared) *Handle {
	h := &Handle{done: make(chan struct{})}
	go func() {
		defer close(h.done)
		h.action, h.err = f.Run(ctx, shared)
	}()
	return h
}

// runWithParams is the full run choreography with explicit invocation
// parameters. Batch orchestrators use it to re-run the flow once per merged
// parameter set.
func (f *Flow) runWithParams(ctx context.Context, shared *Shared, params Params) (Action, error) {
	run := newFlowRun(f.name)
	run.Status = StatusRunning
	f.observer.OnFlowStart(ctx, run)

	var prepRes any
	if f.prep != nil {
		var err error
		prepRes, err = f.prep(ctx, shared, params)
		if err != nil {
			return "", f.fail(ctx, run, newPhaseError(f.name, PhasePrep, err))
		}
	}

	last, err := f.orchestrate(ctx, run, shared, params)
	if err != nil {
		return "", f.fail(ctx, run, err)
	}

	action := last
	if f.post != nil {
		action, err = f.post(ctx, shared, prepRes, last, params)
		if err != nil {
			return "", f.fail(ctx, run, newPhaseError(f.name, PhasePost, err))
		}
		if action == "" {
			action = DefaultAction
		}
	}

	run.Status = StatusCompleted
	run.LastAction = action
	run.EndedAt = time.Now()
	f.observer.OnFlowCompleted(ctx, run)
	return action, nil
}

func (f *Flow) fail(ctx context.Context, run *FlowRun, err error) error {
	run.Status = StatusFailed
	run.Err = err
	run.EndedAt = time.Now()
	f.observer.OnFlowFailed(ctx, run, err)
	return err
}

// orchestrate walks the successor graph. Each visited node receives the
// given params before it runs. The walk stops when the returned action has
// no successor: silently when the node has no successors at all, with a
// non-fatal diagnostic when it has some but none match.
func (f *Flow) orchestrate(ctx context.Context, run *FlowRun, shared *Shared, params Params) (Action, error) {
	if f.start == nil {
		return "", ErrNoStartNode
	}

	current := f.start
	var last Action

	for current != nil {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		started := time.Now()
		f.observer.OnNodeStart(ctx, run, current.Name())

		var action Action
		var err error
		if r, ok := current.(paramRunner); ok {
			action, err = r.runWithParams(ctx, shared, params)
		} else {
			current.SetParams(params)
			action, err = current.Run(ctx, shared)
		}
		f.observer.OnNodeCompleted(ctx, run, current.Name(), action, err, time.Since(started))
		if err != nil {
			return "", err
		}
		last = action
		run.LastAction = action

		next, ok := current.Successors().Lookup(action)
		if !ok {
			if len(current.Successors()) > 0 {
				slog.Warn("grafo: flow reached dead end",
					slog.String("flow", f.name),
					slog.String("node", current.Name()),
					slog.String("action", string(action)),
				)
			}
			break
		}
		current = next
	}

	return last, nil
}

// Handle is the join handle of a traversal started with Flow.Go.
type Handle struct {
	done   chan struct{}
	action Action
	err    error
}

// Done returns a channel that closes when the traversal finishes.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the traversal finishes and returns its result.
func (h *Handle) Wait() (Action, error) {
	<-h.done
	return h.action, h.err
}

// WaitContext is like Wait but gives up when ctx is cancelled. The traversal
// itself keeps running; only the join is abandoned.
func (h *Handle) WaitContext(ctx context.Context) (Action, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-h.done:
		return h.action, h.err
	}
}
