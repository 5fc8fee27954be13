package grafo

import (
	"fmt"

	"github.com/petrijr/grafo/pkg/api"
)

// FlowBuilder provides a fluent API for assembling successor graphs:
//
//	flow := grafo.New("ResizeImages").
//	    Chain(load, resize, save).
//	    Link(resize, "unsupported", reject).
//	    WithObserver(grafo.NewLoggingObserver(nil)).
//	    Build()
//
//	action, err := flow.Run(ctx, shared)
//
// The first node handed to Start or Chain becomes the flow's start node.
type FlowBuilder struct {
	name     string
	start    api.Node
	observer api.Observer
	params   api.Params
	prep     api.PrepFunc
	post     api.PostFunc
}

// New creates a new flow builder with the given name.
func New(name string) *FlowBuilder {
	return &FlowBuilder{name: name}
}

// Name returns the flow name.
func (b *FlowBuilder) Name() string {
	return b.name
}

// Start sets the node the traversal begins at.
func (b *FlowBuilder) Start(n api.Node) *FlowBuilder {
	if n == nil {
		panic(fmt.Sprintf("grafo: flow %q has nil start node", b.name))
	}
	b.start = n
	return b
}

// Chain links the given nodes in sequence along their default actions.
// The first node becomes the start node if none is set yet.
func (b *FlowBuilder) Chain(nodes ...api.Node) *FlowBuilder {
	if len(nodes) == 0 {
		return b
	}
	for i, n := range nodes {
		if n == nil {
			panic(fmt.Sprintf("grafo: flow %q chain has nil node at position %d", b.name, i))
		}
	}
	if b.start == nil {
		b.start = nodes[0]
	}
	for i := 0; i < len(nodes)-1; i++ {
		nodes[i].On("", nodes[i+1])
	}
	return b
}

// Link registers to as from's successor for action. An empty action links
// the default route.
func (b *FlowBuilder) Link(from api.Node, action api.Action, to api.Node) *FlowBuilder {
	if from == nil || to == nil {
		panic(fmt.Sprintf("grafo: flow %q link has nil node", b.name))
	}
	from.On(action, to)
	return b
}

// WithObserver attaches an observer to the built flow.
func (b *FlowBuilder) WithObserver(obs api.Observer) *FlowBuilder {
	b.observer = obs
	return b
}

// WithParams sets the flow's own invocation parameters.
func (b *FlowBuilder) WithParams(params api.Params) *FlowBuilder {
	b.params = params
	return b
}

// WithPrep sets the flow-level prep hook.
func (b *FlowBuilder) WithPrep(fn api.PrepFunc) *FlowBuilder {
	b.prep = fn
	return b
}

// WithPost sets the flow-level post hook.
func (b *FlowBuilder) WithPost(fn api.PostFunc) *FlowBuilder {
	b.post = fn
	return b
}

// Build assembles the flow. It panics if no start node was set; every other
// configuration is optional.
func (b *FlowBuilder) Build() *api.Flow {
	if b.start == nil {
		panic(fmt.Sprintf("grafo: flow %q built without a start node", b.name))
	}

	flow := api.NewFlow(b.name, b.start)
	if b.observer != nil {
		flow.WithObserver(b.observer)
	}
	if b.params != nil {
		flow.SetParams(b.params)
	}
	if b.prep != nil {
		flow.WithPrep(b.prep)
	}
	if b.post != nil {
		flow.WithPost(b.post)
	}
	return flow
}
