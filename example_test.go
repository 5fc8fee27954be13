package grafo_test

import (
	"context"
	"fmt"
	"log"

	"github.com/petrijr/grafo"
)

// Example_flowBuilder demonstrates assembling and running a simple flow
// using the high-level FlowBuilder API.
func Example_flowBuilder() {
	ctx := context.Background()

	flow := grafo.New("Greeting").
		Chain(sayHello(), decorateMessage()).
		Build()

	shared := grafo.NewSharedFrom(map[string]any{"name": "Gopher"})

	action, err := flow.Run(ctx, shared)
	if err != nil {
		log.Fatal(err)
	}

	message, _ := shared.GetString("message")
	fmt.Printf("flow finished with action %q and message %q\n", action, message)
	// Output: flow finished with action "default" and message "*** Hello, Gopher! ***"
}

// Example_runner demonstrates using Runner to execute flows on an
// in-process worker pool.
func Example_runner() {
	ctx := context.Background()

	runner := grafo.NewRunner()
	if err := runner.Start(ctx, 1); err != nil {
		log.Fatal(err)
	}
	defer runner.Stop()

	flow := grafo.New("Greeting").
		Chain(sayHello(), decorateMessage()).
		Build()

	shared := grafo.NewSharedFrom(map[string]any{"name": "Gopher"})

	ticket, err := runner.Submit(ctx, flow, shared)
	if err != nil {
		log.Fatal(err)
	}
	if _, err := ticket.Wait(); err != nil {
		log.Fatal(err)
	}

	message, _ := shared.GetString("message")
	fmt.Println(message)
	// Output: *** Hello, Gopher! ***
}

func sayHello() *grafo.Step {
	return grafo.NewStep("sayHello").
		WithPrep(func(ctx context.Context, shared *grafo.Shared, params grafo.Params) (any, error) {
			name, ok := shared.GetString("name")
			if !ok {
				return nil, fmt.Errorf("sayHello: missing name")
			}
			return name, nil
		}).
		WithExec(func(ctx context.Context, prep any, params grafo.Params) (any, error) {
			return fmt.Sprintf("Hello, %s!", prep), nil
		}).
		WithPost(func(ctx context.Context, shared *grafo.Shared, prep, exec any, params grafo.Params) (grafo.Action, error) {
			shared.Set("message", exec)
			return "", nil
		})
}

func decorateMessage() *grafo.Step {
	return grafo.NewStep("decorateMessage").
		WithPrep(func(ctx context.Context, shared *grafo.Shared, params grafo.Params) (any, error) {
			msg, _ := shared.GetString("message")
			return msg, nil
		}).
		WithExec(func(ctx context.Context, prep any, params grafo.Params) (any, error) {
			return fmt.Sprintf("*** %s ***", prep), nil
		}).
		WithPost(func(ctx context.Context, shared *grafo.Shared, prep, exec any, params grafo.Params) (grafo.Action, error) {
			shared.Set("message", exec)
			return "", nil
		})
}
