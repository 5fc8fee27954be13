package api

import (
	"context"
	"log/slog"
	"time"
)

// Action is the routing token returned by a node's post phase. It carries no
// data, only routing intent: the orchestrator uses it to look up the next
// node in the current node's successor map.
type Action string

// DefaultAction is the successor key used for unconditional links, and the
// fallback key when a returned action has no exact successor match.
const DefaultAction Action = "default"

// Successors maps action tokens to the next node.
type Successors map[Action]Node

// Lookup resolves an action against the successor map: exact match first,
// then DefaultAction. An empty action is treated as DefaultAction.
func (s Successors) Lookup(action Action) (Node, bool) {
	if action == "" {
		action = DefaultAction
	}
	if next, ok := s[action]; ok {
		return next, true
	}
	next, ok := s[DefaultAction]
	return next, ok
}

// Node is the unit of work in a graph. The basic implementation is Step;
// Flow implements Node too, so a whole graph can be nested as a single step
// of an outer graph.
//
// A Node is stateless between invocations: the orchestrator applies fresh
// params immediately before each Run, and retry bookkeeping lives on the
// call stack, never on the node.
type Node interface {
	// Name identifies the node in diagnostics, observer events and flow
	// definitions. It may be empty for anonymous nodes.
	Name() string

	// Run executes the node's full lifecycle once and returns the action
	// that routes control to a successor.
	Run(ctx context.Context, shared *Shared) (Action, error)

	// SetParams replaces the parameters used when the node runs standalone
	// via Run. The node stores a copy. Inside a flow the orchestrator
	// supplies invocation parameters per traversal instead.
	SetParams(params Params)

	// Params returns the node's current invocation parameters.
	Params() Params

	// On links next as the successor for action and returns next, so links
	// can be chained: a.On("ok", b).On("ok", c). An empty action registers
	// the DefaultAction link. Re-registering an action overwrites the
	// previous target with a warning; the last registration wins.
	On(action Action, next Node) Node

	// Successors returns the node's successor map.
	Successors() Successors
}

// paramRunner is the internal traversal path. Every node type in this
// package runs with explicit invocation params, so concurrent traversals of
// one shared graph never mutate each other's state. Node implementations
// from outside the package fall back to SetParams followed by Run, which is
// safe only for sequential flows.
type paramRunner interface {
	runWithParams(ctx context.Context, shared *Shared, params Params) (Action, error)
}

// baseNode carries the state every node implementation shares: a name,
// invocation parameters and the successor map.
type baseNode struct {
	name       string
	params     Params
	successors Successors
}

func newBaseNode(name string) baseNode {
	return baseNode{
		name:       name,
		params:     make(Params),
		successors: make(Successors),
	}
}

func (b *baseNode) Name() string { return b.name }

func (b *baseNode) SetParams(params Params) {
	b.params = params.Clone()
}

func (b *baseNode) Params() Params {
	if b.params == nil {
		b.params = make(Params)
	}
	return b.params
}

func (b *baseNode) Successors() Successors {
	if b.successors == nil {
		b.successors = make(Successors)
	}
	return b.successors
}

// link registers next under action and returns it for chaining.
func (b *baseNode) link(action Action, next Node) Node {
	if action == "" {
		action = DefaultAction
	}
	succ := b.Successors()
	if _, exists := succ[action]; exists {
		slog.Warn("grafo: overwriting successor",
			slog.String("node", b.name),
			slog.String("action", string(action)),
		)
	}
	succ[action] = next
	return next
}

// RetryPolicy controls how a node's exec phase is retried when it returns an
// error. MaxAttempts includes the first attempt:
//
//	MaxAttempts = 1 => no retries (just the initial call)
//	MaxAttempts = 3 => initial call + up to 2 retries
//
// InitialBackoff is the delay before the first retry; each subsequent retry
// multiplies the delay by BackoffMultiplier (2.0 when unset), capped at
// MaxBackoff when MaxBackoff > 0. A zero InitialBackoff retries immediately.
// Backoff waits are context-aware: cancelling the run's context aborts the
// wait and fails the node with ctx.Err.
type RetryPolicy struct {
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// executeWithRetry runs fn under policy. When all attempts fail it hands the
// last error to fallback together with the index of the final attempt
// (0-based, so MaxAttempts-1); a nil fallback re-raises the last error.
func executeWithRetry(
	ctx context.Context,
	policy RetryPolicy,
	fn func(ctx context.Context) (any, error),
	fallback func(ctx context.Context, attempt int, err error) (any, error),
) (any, error) {
	maxAttempts := policy.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	backoff := policy.InitialBackoff
	multiplier := policy.BackoffMultiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if attempt == maxAttempts-1 {
			break
		}

		// Wait before the next attempt, if backoff is configured.
		if backoff > 0 {
			delay := backoff
			if policy.MaxBackoff > 0 && delay > policy.MaxBackoff {
				delay = policy.MaxBackoff
			}

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}

			next := time.Duration(float64(backoff) * multiplier)
			if policy.MaxBackoff > 0 && next > policy.MaxBackoff {
				backoff = policy.MaxBackoff
			} else {
				backoff = next
			}
		}
	}

	if fallback != nil {
		return fallback(ctx, maxAttempts-1, lastErr)
	}
	return nil, lastErr
}

// PrepFunc reads the shared store and produces the input for the exec phase.
type PrepFunc func(ctx context.Context, shared *Shared, params Params) (any, error)

// ExecFunc is the node's business logic. It must not touch the shared store:
// it operates only on the prep result and the invocation params, so it can be
// retried safely.
type ExecFunc func(ctx context.Context, prep any, params Params) (any, error)

// PostFunc writes results back to the shared store and decides the action
// that routes control. An empty action is normalized to DefaultAction.
type PostFunc func(ctx context.Context, shared *Shared, prep, exec any, params Params) (Action, error)

// FallbackFunc is invoked once after the exec retry policy is exhausted.
// attempt is the 0-based index of the final failed attempt. Returning a nil
// error recovers the node with the returned exec result; returning an error
// fails the node.
type FallbackFunc func(ctx context.Context, prep any, params Params, attempt int, err error) (any, error)

// Step is the basic three-phase node: prep reads the shared store, exec runs
// the business logic under the retry policy, post writes results back and
// returns the routing action.
type Step struct {
	baseNode

	prep     PrepFunc
	exec     ExecFunc
	post     PostFunc
	fallback FallbackFunc
	retry    RetryPolicy
}

// NewStep creates a Step with no-op phases and no retries. Phases are
// attached with the fluent With* setters:
//
//	step := api.NewStep("fetch").
//	    WithExec(fetch).
//	    WithRetry(api.RetryPolicy{MaxAttempts: 3})
func NewStep(name string) *Step {
	return &Step{baseNode: newBaseNode(name)}
}

// WithPrep sets the prep phase.
func (s *Step) WithPrep(f PrepFunc) *Step {
	s.prep = f
	return s
}

// WithExec sets the exec phase.
func (s *Step) WithExec(f ExecFunc) *Step {
	s.exec = f
	return s
}

// WithPost sets the post phase.
func (s *Step) WithPost(f PostFunc) *Step {
	s.post = f
	return s
}

// WithFallback sets the exec fallback hook.
func (s *Step) WithFallback(f FallbackFunc) *Step {
	s.fallback = f
	return s
}

// WithRetry sets the exec retry policy.
func (s *Step) WithRetry(policy RetryPolicy) *Step {
	s.retry = policy
	return s
}

// On links next as the successor for action. See Node.On.
func (s *Step) On(action Action, next Node) Node {
	return s.link(action, next)
}

// Run executes prep, exec (under the retry policy) and post in order.
// Prep and post failures propagate immediately and are never retried.
func (s *Step) Run(ctx context.Context, shared *Shared) (Action, error) {
	return s.runWithParams(ctx, shared, s.Params())
}

func (s *Step) runWithParams(ctx context.Context, shared *Shared, params Params) (Action, error) {
	var prepRes any
	if s.prep != nil {
		var err error
		prepRes, err = s.prep(ctx, shared, params)
		if err != nil {
			return "", newPhaseError(s.name, PhasePrep, err)
		}
	}

	var execRes any
	if s.exec != nil {
		var fallback func(ctx context.Context, attempt int, err error) (any, error)
		if s.fallback != nil {
			fallback = func(ctx context.Context, attempt int, err error) (any, error) {
				return s.fallback(ctx, prepRes, params, attempt, err)
			}
		}

		var err error
		execRes, err = executeWithRetry(ctx, s.retry,
			func(ctx context.Context) (any, error) {
				return s.exec(ctx, prepRes, params)
			},
			fallback,
		)
		if err != nil {
			return "", newPhaseError(s.name, PhaseExec, err)
		}
	}

	if s.post == nil {
		return DefaultAction, nil
	}
	action, err := s.post(ctx, shared, prepRes, execRes, params)
	if err != nil {
		return "", newPhaseError(s.name, PhasePost, err)
	}
	if action == "" {
		action = DefaultAction
	}
	return action, nil
}
