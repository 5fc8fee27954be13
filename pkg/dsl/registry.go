package dsl

import (
	"fmt"
	"sort"
	"sync"

	"github.com/petrijr/grafo/pkg/api"
)

// Factory builds a node from its definition. The factory owns config
// decoding and validation; see DecodeConfig.
type Factory func(def NodeDefinition) (api.Node, error)

// Registry maps node type names to factories. It is safe for concurrent
// use; registration typically happens in init functions.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Default is the registry the built-in node types register on.
var Default = NewRegistry()

// Register adds a factory under the given type name. Registering a name
// twice is a programming error and panics.
func (r *Registry) Register(nodeType string, f Factory) {
	if nodeType == "" {
		panic("dsl: node type must not be empty")
	}
	if f == nil {
		panic(fmt.Sprintf("dsl: node type %q has nil factory", nodeType))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[nodeType]; ok {
		panic(fmt.Sprintf("dsl: node type %q registered twice", nodeType))
	}
	r.factories[nodeType] = f
}

// Unregister removes a factory. Unknown names are a no-op.
func (r *Registry) Unregister(nodeType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.factories, nodeType)
}

// Types returns the registered type names in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// New instantiates a node from its definition.
func (r *Registry) New(def NodeDefinition) (api.Node, error) {
	r.mu.RLock()
	f, ok := r.factories[def.Type]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("dsl: unknown node type %q", def.Type)
	}
	return f(def)
}
