package grafo

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/petrijr/grafo/internal/runqueue"
	"github.com/petrijr/grafo/pkg/api"
)

// Runner bundles an in-memory job queue with a pool of worker goroutines so
// many flows can execute concurrently without the caller managing goroutines.
//
// Typical usage:
//
//	runner := grafo.NewRunner()
//	_ = runner.Start(ctx, 4)
//	defer runner.Stop()
//
//	ticket, _ := runner.Submit(ctx, flow, shared)
//	action, err := ticket.Wait()
type Runner struct {
	queue runqueue.Queue

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewRunner constructs a Runner backed by an in-memory queue with default
// capacity.
//
// This is intended for local development, tests, and single-process
// deployments.
func NewRunner() *Runner {
	return NewRunnerWithQueue(runqueue.NewInMemoryQueue(1024))
}

// NewRunnerWithQueue constructs a Runner over the given queue.
func NewRunnerWithQueue(q runqueue.Queue) *Runner {
	return &Runner{queue: q}
}

// Start launches 'concurrency' worker goroutines that dequeue and run flows
// until the context is cancelled or Stop is called.
//
// If Start is called again without Stop, it returns an error.
func (r *Runner) Start(ctx context.Context, concurrency int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return errors.New("grafo: Runner already started")
	}

	if concurrency <= 0 {
		concurrency = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true

	r.wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func() {
			defer r.wg.Done()

			for {
				job, err := r.queue.Dequeue(ctx)
				if err != nil {
					// Cancellation is the clean shutdown signal.
					if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
						return
					}
					slog.Warn("grafo: runner dequeue error", slog.Any("error", err))
					continue
				}

				action, runErr := job.Flow.Run(ctx, job.Shared)
				if runErr != nil {
					slog.Warn("grafo: runner flow failed",
						slog.String("job_id", job.ID),
						slog.String("flow", job.Flow.Name()),
						slog.Any("error", runErr),
					)
				}
				job.Result <- runqueue.Outcome{Action: action, Err: runErr}
				close(job.Result)
			}
		}()
	}

	return nil
}

// Stop cancels all worker goroutines started by Start and waits for them to
// exit. Jobs still queued are dropped; their tickets never complete, so
// always pair Ticket.Wait with WaitContext or select on Done when the runner
// may shut down early.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel := r.cancel
	r.running = false
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
}

// QueueLen returns the approximate number of jobs waiting for a worker.
func (r *Runner) QueueLen() int {
	return r.queue.Len()
}

// Submit enqueues a flow traversal and returns a ticket to join on. It
// blocks only when the queue is full.
func (r *Runner) Submit(ctx context.Context, flow *api.Flow, shared *api.Shared) (*Ticket, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}

	result := make(chan runqueue.Outcome, 1)
	job := runqueue.Job{
		ID:         id.String(),
		Flow:       flow,
		Shared:     shared,
		Result:     result,
		EnqueuedAt: time.Now(),
	}
	if err := r.queue.Enqueue(ctx, job); err != nil {
		return nil, err
	}

	t := &Ticket{ID: job.ID, done: make(chan struct{})}
	go func() {
		out, ok := <-result
		if ok {
			t.action = out.Action
			t.err = out.Err
		} else {
			t.err = errors.New("grafo: runner stopped before the job ran")
		}
		close(t.done)
	}()
	return t, nil
}

// Ticket is the join handle for a submitted job.
type Ticket struct {
	ID string

	done   chan struct{}
	action api.Action
	err    error
}

// Done returns a channel closed when the job finishes.
func (t *Ticket) Done() <-chan struct{} { return t.done }

// Wait blocks until the job finishes and returns its outcome.
func (t *Ticket) Wait() (api.Action, error) {
	<-t.done
	return t.action, t.err
}

// WaitContext is Wait with a context escape hatch.
func (t *Ticket) WaitContext(ctx context.Context) (api.Action, error) {
	select {
	case <-t.done:
		return t.action, t.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
