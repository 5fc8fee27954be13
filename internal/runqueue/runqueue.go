package runqueue

import (
	"context"
	"time"

	"github.com/petrijr/grafo/pkg/api"
)

// Outcome is the terminal result of one queued traversal.
type Outcome struct {
	Action api.Action
	Err    error
}

// Job represents one flow traversal waiting for a worker.
type Job struct {
	ID   string
	Flow *api.Flow

	// Shared is the store the traversal runs against.
	Shared *api.Shared

	// Result receives exactly one Outcome when the traversal finishes.
	// It must be buffered so a worker never blocks on delivery.
	Result chan Outcome

	EnqueuedAt time.Time
}

// Queue is a simple async job queue interface.
type Queue interface {
	// Enqueue adds a job to the queue. It should respect ctx for cancellation.
	Enqueue(ctx context.Context, j Job) error

	// Dequeue removes and returns the next job, blocking until one is available
	// or the context is cancelled.
	Dequeue(ctx context.Context) (*Job, error)

	// Len returns the approximate number of jobs queued.
	Len() int
}
