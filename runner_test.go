package grafo

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func doubleFlow(name string) *Flow {
	double := NewStep("double").
		WithPrep(func(ctx context.Context, shared *Shared, params Params) (any, error) {
			v, _ := shared.Get("in")
			return v, nil
		}).
		WithExec(func(ctx context.Context, prep any, params Params) (any, error) {
			return prep.(int) * 2, nil
		}).
		WithPost(func(ctx context.Context, shared *Shared, prep, exec any, params Params) (Action, error) {
			shared.Set("out", exec)
			return "done", nil
		})
	return NewFlow(name, double)
}

// TestRunner_SubmitAndWait verifies that submitted flows run on the worker
// pool and the ticket reports the traversal's outcome.
func TestRunner_SubmitAndWait(t *testing.T) {
	runner := NewRunner()
	ctx := context.Background()

	if err := runner.Start(ctx, 2); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer runner.Stop()

	shared := NewSharedFrom(map[string]any{"in": 21})
	ticket, err := runner.Submit(ctx, doubleFlow("runner-double"), shared)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if ticket.ID == "" {
		t.Fatalf("expected a non-empty ticket ID")
	}

	action, err := ticket.Wait()
	if err != nil {
		t.Fatalf("flow failed: %v", err)
	}
	if action != "done" {
		t.Fatalf("expected action %q, got %q", "done", action)
	}
	if out, _ := shared.Get("out"); out != 42 {
		t.Fatalf("expected out=42, got %v", out)
	}
}

// TestRunner_ConcurrentJobs submits more jobs than workers and waits for
// all of them to complete.
func TestRunner_ConcurrentJobs(t *testing.T) {
	runner := NewRunner()
	ctx := context.Background()

	if err := runner.Start(ctx, 3); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer runner.Stop()

	var completed atomic.Int64
	step := NewStep("count").
		WithExec(func(ctx context.Context, prep any, params Params) (any, error) {
			time.Sleep(5 * time.Millisecond)
			completed.Add(1)
			return nil, nil
		})
	flow := NewFlow("runner-many", step)

	const jobs = 10
	tickets := make([]*Ticket, 0, jobs)
	for i := 0; i < jobs; i++ {
		ticket, err := runner.Submit(ctx, flow, NewShared())
		if err != nil {
			t.Fatalf("Submit %d failed: %v", i, err)
		}
		tickets = append(tickets, ticket)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	for i, ticket := range tickets {
		if _, err := ticket.WaitContext(waitCtx); err != nil {
			t.Fatalf("job %d failed: %v", i, err)
		}
	}

	if completed.Load() != jobs {
		t.Fatalf("expected %d completed jobs, got %d", jobs, completed.Load())
	}
}

// TestRunner_StartTwice ensures that Start cannot be called twice without
// Stop in between.
func TestRunner_StartTwice(t *testing.T) {
	runner := NewRunner()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer runner.Stop()

	if err := runner.Start(ctx, 1); err != nil {
		t.Fatalf("first Start failed: %v", err)
	}

	if err := runner.Start(ctx, 1); err == nil {
		t.Fatalf("expected error from second Start call, got nil")
	}
}

// TestRunner_StopWithoutStart ensures Stop is safe when workers were never
// started.
func TestRunner_StopWithoutStart(t *testing.T) {
	runner := NewRunner()
	// Should not panic or deadlock.
	runner.Stop()
}

// TestRunner_FailedFlowReportsError verifies a failing traversal surfaces
// its error through the ticket without disturbing the worker pool.
func TestRunner_FailedFlowReportsError(t *testing.T) {
	runner := NewRunner()
	ctx := context.Background()

	if err := runner.Start(ctx, 1); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer runner.Stop()

	failing := NewFlow("runner-failing", nil)
	ticket, err := runner.Submit(ctx, failing, NewShared())
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if _, err := ticket.Wait(); err == nil {
		t.Fatalf("expected the flow error on the ticket")
	}

	// The pool keeps serving after a failed job.
	shared := NewSharedFrom(map[string]any{"in": 1})
	ticket, err = runner.Submit(ctx, doubleFlow("runner-after-failure"), shared)
	if err != nil {
		t.Fatalf("Submit after failure failed: %v", err)
	}
	if _, err := ticket.Wait(); err != nil {
		t.Fatalf("flow after failure failed: %v", err)
	}
	if out, _ := shared.Get("out"); out != 2 {
		t.Fatalf("expected out=2, got %v", out)
	}
}
