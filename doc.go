// Package grafo provides a lightweight, embeddable graph workflow engine for Go.
//
// Grafo models a workflow as a directed graph of nodes. Each node runs a
// three-phase lifecycle and returns an action string; the action selects the
// next node to run. Flows are nodes themselves, so graphs nest, and batch and
// parallel wrappers re-run whole graphs over collections of inputs. Grafo
// runs fully in Go and integrates cleanly into existing codebases.
//
// # Core Concepts
//
// The Grafo programming model is intentionally small and idiomatic:
//
//  1. Step
//  2. Flow
//  3. FlowBuilder
//  4. Shared
//  5. Runner
//
// These components form a complete orchestration system with explicit routing,
// predictable error handling, and a clear mental model.
//
// # Step
//
// A Step is the fundamental executable unit. It runs three phases in order:
//
//   - prep reads from the shared store and produces the exec input
//   - exec performs the work, isolated from the store, under a retry policy
//   - post writes results back and returns the routing action
//
// Exec failures honor RetryPolicy (attempt count, exponential backoff) and
// can be absorbed by a fallback hook that sees the final attempt index.
// BatchStep maps exec over a sequence of items; ParallelBatchStep does the
// same with concurrent items and order-preserving results.
//
// # Flow
//
// A Flow walks the successor graph from its start node. After each node it
// looks up the returned action among that node's successors, falling back to
// the "default" route, and stops when no successor matches. Because Flow
// implements Node, a flow can itself be one step of a larger flow. BatchFlow
// and ParallelBatchFlow re-run an inner flow once per parameter set.
//
// # FlowBuilder
//
// FlowBuilder provides the ergonomic, declarative API used to assemble
// graphs:
//
//	flow := grafo.New("Example").
//	    Chain(load, transform, save).
//	    Link(transform, "invalid", reject).
//	    Build()
//
// Nodes can also be wired directly with On, which returns its target so
// default chains read left to right:
//
//	load.On("", transform).On("", save)
//
// # Shared
//
// Nodes communicate through a Shared store passed by reference to every node
// of a traversal. Individual operations are atomic; Append supports safe
// aggregation from parallel branches.
//
// # Runner
//
// Runner bundles an in-memory job queue and a worker pool so many flows can
// execute concurrently. Submit returns a Ticket to join on. For one-off
// background runs, Flow.Go returns a Handle without any queue involved.
//
// Beyond the core, NewLoggingObserver and BasicMetrics observe traversals,
// History records runs and node events in memory or SQLite, Scheduler
// triggers flows on cron expressions, and the dsl and nodes packages load
// flow definitions from YAML or JSON.
//
// For examples, see the /examples directory or the project README.
package grafo
