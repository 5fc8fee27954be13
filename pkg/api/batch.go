package api

import (
	"context"
	"fmt"
)

// BatchPrepFunc produces the item sequence a batch node maps its exec phase
// over. Returning nil or an empty slice means zero iterations, not an error.
type BatchPrepFunc func(ctx context.Context, shared *Shared, params Params) ([]any, error)

// ExecItemFunc is the per-item business logic of a batch node. Like ExecFunc
// it must not touch the shared store.
type ExecItemFunc func(ctx context.Context, item any, params Params) (any, error)

// BatchPostFunc receives the prep items and the per-item exec results,
// positionally aligned, and decides the routing action.
type BatchPostFunc func(ctx context.Context, shared *Shared, items, results []any, params Params) (Action, error)

// ItemFallbackFunc is the per-item fallback hook: invoked once for an item
// whose retries are exhausted, with the 0-based index of the final failed
// attempt. A nil error recovers the item with the returned result.
type ItemFallbackFunc func(ctx context.Context, item any, params Params, attempt int, err error) (any, error)

// BatchStep maps its exec phase over a sequence of items produced by prep.
// Items are processed sequentially, in order, each independently under the
// full retry/fallback policy. Post receives the results in input order.
type BatchStep struct {
	baseNode

	prep     BatchPrepFunc
	execItem ExecItemFunc
	post     BatchPostFunc
	fallback ItemFallbackFunc
	retry    RetryPolicy
}

// NewBatchStep creates a BatchStep with no-op phases and no retries.
func NewBatchStep(name string) *BatchStep {
	return &BatchStep{baseNode: newBaseNode(name)}
}

// WithPrep sets the item-producing prep phase.
func (s *BatchStep) WithPrep(f BatchPrepFunc) *BatchStep {
	s.prep = f
	return s
}

// WithExecItem sets the per-item exec phase.
func (s *BatchStep) WithExecItem(f ExecItemFunc) *BatchStep {
	s.execItem = f
	return s
}

// WithPost sets the post phase.
func (s *BatchStep) WithPost(f BatchPostFunc) *BatchStep {
	s.post = f
	return s
}

// WithFallback sets the per-item fallback hook.
func (s *BatchStep) WithFallback(f ItemFallbackFunc) *BatchStep {
	s.fallback = f
	return s
}

// WithRetry sets the per-item retry policy.
func (s *BatchStep) WithRetry(policy RetryPolicy) *BatchStep {
	s.retry = policy
	return s
}

// On links next as the successor for action. See Node.On.
func (s *BatchStep) On(action Action, next Node) Node {
	return s.link(action, next)
}

// Run executes prep, maps exec over each item in order, then runs post with
// the positionally aligned results. The first item whose retries and
// fallback are exhausted fails the whole node.
func (s *BatchStep) Run(ctx context.Context, shared *Shared) (Action, error) {
	return s.runWithParams(ctx, shared, s.Params())
}

func (s *BatchStep) runWithParams(ctx context.Context, shared *Shared, params Params) (Action, error) {
	var items []any
	if s.prep != nil {
		var err error
		items, err = s.prep(ctx, shared, params)
		if err != nil {
			return "", newPhaseError(s.name, PhasePrep, err)
		}
	}

	results := make([]any, len(items))
	for i, item := range items {
		out, err := s.runItem(ctx, item, params)
		if err != nil {
			return "", newPhaseError(s.name, PhaseExec, fmt.Errorf("item %d: %w", i, err))
		}
		results[i] = out
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

// runItem executes one item under the retry/fallback policy.
func (s *BatchStep) runItem(ctx context.Context, item any, params Params) (any, error) {
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

// BatchParamsFunc produces the parameter sets a batch flow re-runs its inner
// graph with, one traversal per set. Returning nil or an empty slice means
// zero traversals.
type BatchParamsFunc func(ctx context.Context, shared *Shared, params Params) ([]Params, error)

// BatchFlowPostFunc runs after all iterations complete. It receives the
// parameter sets; there is no aggregate exec result, so result aggregation
// is done by inner nodes writing into the shared store.
type BatchFlowPostFunc func(ctx context.Context, shared *Shared, paramSets []Params, params Params) (Action, error)

// BatchFlow re-runs an entire inner flow once per parameter set, strictly in
// sequence: iteration n+1 does not begin until iteration n's full traversal
// has returned. Every iteration shares the same Shared store; its params are
// the merge of the batch flow's own params with the iteration's set, the
// set's keys winning.
type BatchFlow struct {
	baseNode

	inner *Flow
	prep  BatchParamsFunc
	post  BatchFlowPostFunc
}

// NewBatchFlow creates a BatchFlow around the given inner flow.
func NewBatchFlow(name string, inner *Flow) *BatchFlow {
	return &BatchFlow{baseNode: newBaseNode(name), inner: inner}
}

// WithPrep sets the parameter-set-producing prep phase.
func (f *BatchFlow) WithPrep(fn BatchParamsFunc) *BatchFlow {
	f.prep = fn
	return f
}

// WithPost sets the post phase.
func (f *BatchFlow) WithPost(fn BatchFlowPostFunc) *BatchFlow {
	f.post = fn
	return f
}

// Inner returns the wrapped flow.
func (f *BatchFlow) Inner() *Flow { return f.inner }

// On links next as the successor for action. See Node.On.
func (f *BatchFlow) On(action Action, next Node) Node {
	return f.link(action, next)
}

// Run produces the parameter sets, runs the inner flow once per set in
// order, then runs post. A failed iteration aborts the remaining ones.
func (f *BatchFlow) Run(ctx context.Context, shared *Shared) (Action, error) {
	return f.runWithParams(ctx, shared, f.Params())
}

func (f *BatchFlow) runWithParams(ctx context.Context, shared *Shared, params Params) (Action, error) {
	var sets []Params
	if f.prep != nil {
		var err error
		sets, err = f.prep(ctx, shared, params)
		if err != nil {
			return "", newPhaseError(f.name, PhasePrep, err)
		}
	}

	for i, set := range sets {
		if _, err := f.inner.runWithParams(ctx, shared, MergeParams(params, set)); err != nil {
			return "", fmt.Errorf("grafo: batch flow %q iteration %d: %w", f.name, i, err)
		}
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
