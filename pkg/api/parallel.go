package api

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// ParallelBatchStep is a BatchStep whose per-item executions are launched
// concurrently and joined as a unit. The join completes only when every
// launched item has completed or failed; the first failure (in input order)
// surfaces after the join, and completed sibling work is not undone. The
// result sequence always preserves input order, regardless of completion
// order. Because exec never touches the shared store, concurrent items do
// not contend on it; the parallel-write caveats apply only to
// ParallelBatchFlow.
type ParallelBatchStep struct {
	baseNode

	prep     BatchPrepFunc
	execItem ExecItemFunc
	post     BatchPostFunc
	fallback ItemFallbackFunc
	retry    RetryPolicy
	limit    int
}

// NewParallelBatchStep creates a ParallelBatchStep with no-op phases,
// no retries and unbounded fan-out.
func NewParallelBatchStep(name string) *ParallelBatchStep {
	return &ParallelBatchStep{baseNode: newBaseNode(name)}
}

// WithPrep sets the item-producing prep phase.
func (s *ParallelBatchStep) WithPrep(f BatchPrepFunc) *ParallelBatchStep {
	s.prep = f
	return s
}

// WithExecItem sets the per-item exec phase.
func (s *ParallelBatchStep) WithExecItem(f ExecItemFunc) *ParallelBatchStep {
	s.execItem = f
	return s
}

// WithPost sets the post phase.
func (s *ParallelBatchStep) WithPost(f BatchPostFunc) *ParallelBatchStep {
	s.post = f
	return s
}

// WithFallback sets the per-item fallback hook.
func (s *ParallelBatchStep) WithFallback(f ItemFallbackFunc) *ParallelBatchStep {
	s.fallback = f
	return s
}

// WithRetry sets the per-item retry policy.
func (s *ParallelBatchStep) WithRetry(policy RetryPolicy) *ParallelBatchStep {
	s.retry = policy
	return s
}

// WithConcurrency bounds the fan-out to at most n items in flight at once.
// n <= 0 means unbounded.
func (s *ParallelBatchStep) WithConcurrency(n int) *ParallelBatchStep {
	s.limit = n
	return s
}

// On links next as the successor for action. See Node.On.
func (s *ParallelBatchStep) On(action Action, next Node) Node {
	return s.link(action, next)
}

// Run executes prep, fans the per-item executions out concurrently, joins on
// all of them, then runs post with the results in input order.
func (s *ParallelBatchStep) Run(ctx context.Context, shared *Shared) (Action, error) {
	return s.runWithParams(ctx, shared, s.Params())
}

func (s *ParallelBatchStep) runWithParams(ctx context.Context, shared *Shared, params Params) (Action, error) {
	var items []any
	if s.prep != nil {
		var err error
		items, err = s.prep(ctx, shared, params)
		if err != nil {
			return "", newPhaseError(s.name, PhasePrep, err)
		}
	}

	results := make([]any, len(items))
	// A plain Group, not WithContext: a failing item must not cancel its
	// siblings, which complete or fail on their own schedule.
	g := new(errgroup.Group)
	if s.limit > 0 {
		g.SetLimit(s.limit)
	}

	errs := make([]error, len(items))
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			out, err := s.runItem(ctx, item, params)
			if err != nil {
				errs[i] = err
				return err
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		// Surface the earliest failed item rather than whichever goroutine
		// lost the race inside errgroup.
		for i, itemErr := range errs {
			if itemErr != nil {
				return "", newPhaseError(s.name, PhaseExec, fmt.Errorf("item %d: %w", i, itemErr))
			}
		}
		return "", newPhaseError(s.name, PhaseExec, err)
	}

	if s.post == nil {
		return DefaultAction, nil
	}
	action, err := s.post(ctx, shared, items, results, params)
	if err != nil {
		return "", newPhaseError(s.name, PhasePost, err)
	}
	if action == "" {
		action = DefaultAction
	}
	return action, nil
}

func (s *ParallelBatchStep) runItem(ctx context.Context, item any, params Params) (any, error) {
	if s.execItem == nil {
		return item, nil
	}

	var fallback func(ctx context.Context, attempt int, err error) (any, error)
	if s.fallback != nil {
		fallback = func(ctx context.Context, attempt int, err error) (any, error) {
			return s.fallback(ctx, item, params, attempt, err)
		}
	}

	return executeWithRetry(ctx, s.retry,
		func(ctx context.Context) (any, error) {
			return s.execItem(ctx, item, params)
		},
		fallback,
	)
}

// ParallelBatchFlow is a BatchFlow whose per-parameter-set inner traversals
// are launched concurrently against the same Shared store and joined before
// post runs. The engine provides no locking beyond the store's per-operation
// atomicity: branches that write the same key race with last-write-wins
// semantics, so flows run this way should partition keys per branch or
// append to branch-specific collections.
type ParallelBatchFlow struct {
	baseNode

	inner *Flow
	prep  BatchParamsFunc
	post  BatchFlowPostFunc
	limit int
}

// NewParallelBatchFlow creates a ParallelBatchFlow around the given inner
// flow with unbounded fan-out.
func NewParallelBatchFlow(name string, inner *Flow) *ParallelBatchFlow {
	return &ParallelBatchFlow{baseNode: newBaseNode(name), inner: inner}
}

// WithPrep sets the parameter-set-producing prep phase.
func (f *ParallelBatchFlow) WithPrep(fn BatchParamsFunc) *ParallelBatchFlow {
	f.prep = fn
	return f
}

// WithPost sets the post phase.
func (f *ParallelBatchFlow) WithPost(fn BatchFlowPostFunc) *ParallelBatchFlow {
	f.post = fn
	return f
}

// WithConcurrency bounds the fan-out to at most n traversals in flight at
// once. n <= 0 means unbounded.
func (f *ParallelBatchFlow) WithConcurrency(n int) *ParallelBatchFlow {
	f.limit = n
	return f
}

// Inner returns the wrapped flow.
func (f *ParallelBatchFlow) Inner() *Flow { return f.inner }

// On links next as the successor for action. See Node.On.
func (f *ParallelBatchFlow) On(action Action, next Node) Node {
	return f.link(action, next)
}

// Run produces the parameter sets, launches one inner traversal per set
// concurrently, joins on all of them, then runs post.
func (f *ParallelBatchFlow) Run(ctx context.Context, shared *Shared) (Action, error) {
	return f.runWithParams(ctx, shared, f.Params())
}

func (f *ParallelBatchFlow) runWithParams(ctx context.Context, shared *Shared, params Params) (Action, error) {
	var sets []Params
	if f.prep != nil {
		var err error
		sets, err = f.prep(ctx, shared, params)
		if err != nil {
			return "", newPhaseError(f.name, PhasePrep, err)
		}
	}

	g := new(errgroup.Group)
	if f.limit > 0 {
		g.SetLimit(f.limit)
	}

	errs := make([]error, len(sets))
	for i, set := range sets {
		i, set := i, set
		g.Go(func() error {
			if _, err := f.inner.runWithParams(ctx, shared, MergeParams(params, set)); err != nil {
				errs[i] = err
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for i, setErr := range errs {
			if setErr != nil {
				return "", fmt.Errorf("grafo: parallel batch flow %q iteration %d: %w", f.name, i, setErr)
			}
		}
		return "", err
	}

	if f.post == nil {
		return DefaultAction, nil
	}
	action, err := f.post(ctx, shared, sets, params)
	if err != nil {
		return "", newPhaseError(f.name, PhasePost, err)
	}
	if action == "" {
		action = DefaultAction
	}
	return action, nil
}
