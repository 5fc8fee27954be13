// Package api contains the core building blocks of the grafo orchestration
// engine: the node contract, the shared store, the flow orchestrator and its
// batch and parallel variants, and the observability primitives.
//
// Most users interact with the higher-level grafo package, which re-exports
// selected types and helpers from this package. The api package is intended
// for advanced use cases, custom integrations, or contributors extending the
// engine itself.
//
// # Concepts
//
// The api package centers around a small set of concepts:
//
//   - Nodes and the three-phase lifecycle
//   - The shared store
//   - Flows and successor graphs
//   - Batch and parallel execution
//   - Observability
//
// # Nodes and the Lifecycle
//
// A Node is the unit of work. Every invocation runs three ordered phases:
//
//   - Prep reads the shared store and produces the exec input.
//   - Exec runs the business logic. It never touches the shared store, which
//     is what makes it safe to retry under the node's RetryPolicy; when
//     retries are exhausted, an optional fallback hook gets the last error
//     and the final attempt index.
//   - Post writes results back to the shared store and returns the action
//     token that routes control to a successor.
//
// Prep and post failures are never retried; they propagate immediately and
// abort the enclosing traversal.
//
// Every phase takes a context.Context. Waits inside the engine (retry
// backoff, sleeps) are context-aware selects, so a traversal parked on a wait
// costs a goroutine, not a thread, and cancelling the context aborts the run
// at the next phase or wait boundary.
//
// # The Shared Store
//
// A single Shared store is threaded by reference through an entire run,
// including nested flows and concurrently executing branches. It is the only
// medium by which nodes exchange data. Individual operations are atomic;
// beyond that the engine provides no coordination, and concurrent writers to
// the same key are a documented last-write-wins race the caller must avoid.
//
// # Flows and Successor Graphs
//
// Nodes are wired into a graph with On(action, next). A Flow walks the graph
// from its start node: after each node runs, the returned action is resolved
// against the node's successors (exact match first, then "default"); when
// nothing matches, the traversal ends. Flow itself implements Node, so a
// whole graph nests as a single step of an outer graph.
//
// # Batch and Parallel Execution
//
// BatchStep maps its exec phase over a sequence of items; BatchFlow re-runs
// an entire inner flow once per parameter set. Their parallel counterparts,
// ParallelBatchStep and ParallelBatchFlow, launch the per-item or per-set
// work concurrently and join on the whole set, preserving input order in the
// result sequence regardless of completion order.
//
// # Observability
//
// The Observer interface reports run and node lifecycle events. Ready-made
// implementations cover structured logging (log/slog), basic in-memory
// metrics, and fan-out to multiple observers.
//
// # Usage
//
// Most applications should start from the grafo package, using the builders
// and constructors provided there. See the grafo package documentation and
// the examples directory for end-to-end usage.
package api
