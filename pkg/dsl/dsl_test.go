package dsl

import (
	"context"
	"strings"
	"testing"

	"github.com/petrijr/grafo/pkg/api"
)

// newTestRegistry registers a single "append" type whose nodes append their
// configured tag to the shared "trace" list and return the configured action.
func newTestRegistry(t *testing.T) *Registry {
	t.Helper()

	r := NewRegistry()
	r.Register("append", func(def NodeDefinition) (api.Node, error) {
		var cfg struct {
			Tag    string
			Action string
		}
		if err := DecodeConfig(def.Config, &cfg); err != nil {
			return nil, err
		}
		return api.NewStep(def.ID).
			WithPost(func(ctx context.Context, shared *api.Shared, prep, exec any, params api.Params) (api.Action, error) {
				shared.Append("trace", cfg.Tag)
				return api.Action(cfg.Action), nil
			}), nil
	})
	return r
}

const sampleYAML = `
name: pipeline
start: first
params:
  env: test
nodes:
  - id: first
    type: append
    config:
      tag: one
  - id: second
    type: append
    config:
      tag: two
      action: done
links:
  - from: first
    to: second
`

const sampleJSON = `{
  "name": "pipeline",
  "start": "first",
  "nodes": [
    {"id": "first", "type": "append", "config": {"tag": "one"}},
    {"id": "second", "type": "append", "config": {"tag": "two", "action": "done"}}
  ],
  "links": [
    {"from": "first", "to": "second"}
  ]
}`

func runAndTrace(t *testing.T, flow *api.Flow) (api.Action, []any) {
	t.Helper()

	shared := api.NewShared()
	action, err := flow.Run(context.Background(), shared)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	trace, _ := shared.Get("trace")
	list, _ := trace.([]any)
	return action, list
}

func TestRegistry_BuildYAML(t *testing.T) {
	r := newTestRegistry(t)

	flow, err := r.BuildYAML([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("BuildYAML failed: %v", err)
	}
	if flow.Name() != "pipeline" {
		t.Fatalf("unexpected flow name %q", flow.Name())
	}
	if flow.Params()["env"] != "test" {
		t.Fatalf("definition params not applied: %v", flow.Params())
	}

	action, trace := runAndTrace(t, flow)
	if action != "done" {
		t.Fatalf("expected terminal action %q, got %q", "done", action)
	}
	if len(trace) != 2 || trace[0] != "one" || trace[1] != "two" {
		t.Fatalf("unexpected trace: %v", trace)
	}
}

func TestRegistry_BuildJSON(t *testing.T) {
	r := newTestRegistry(t)

	flow, err := r.BuildJSON([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("BuildJSON failed: %v", err)
	}

	action, trace := runAndTrace(t, flow)
	if action != "done" {
		t.Fatalf("expected terminal action %q, got %q", "done", action)
	}
	if len(trace) != 2 {
		t.Fatalf("unexpected trace: %v", trace)
	}
}

func TestRegistry_BuildDefaultsStartToFirstNode(t *testing.T) {
	r := newTestRegistry(t)

	def := FlowDefinition{
		Name: "no-start",
		Nodes: []NodeDefinition{
			{ID: "only", Type: "append", Config: map[string]any{"tag": "x"}},
		},
	}
	flow, err := r.Build(def)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	_, trace := runAndTrace(t, flow)
	if len(trace) != 1 || trace[0] != "x" {
		t.Fatalf("unexpected trace: %v", trace)
	}
}

func TestRegistry_BuildUnknownType(t *testing.T) {
	r := newTestRegistry(t)

	def := FlowDefinition{
		Name:  "bad",
		Nodes: []NodeDefinition{{ID: "n", Type: "nope"}},
	}
	if _, err := r.Build(def); err == nil || !strings.Contains(err.Error(), "unknown node type") {
		t.Fatalf("expected unknown type error, got %v", err)
	}
}

func TestFlowDefinition_Validate(t *testing.T) {
	cases := []struct {
		name string
		def  FlowDefinition
		want string
	}{
		{
			name: "no name",
			def:  FlowDefinition{Nodes: []NodeDefinition{{ID: "a", Type: "append"}}},
			want: "no name",
		},
		{
			name: "no nodes",
			def:  FlowDefinition{Name: "f"},
			want: "no nodes",
		},
		{
			name: "duplicate id",
			def: FlowDefinition{Name: "f", Nodes: []NodeDefinition{
				{ID: "a", Type: "append"}, {ID: "a", Type: "append"},
			}},
			want: "duplicate node id",
		},
		{
			name: "unknown start",
			def: FlowDefinition{Name: "f", Start: "zzz", Nodes: []NodeDefinition{
				{ID: "a", Type: "append"},
			}},
			want: "start",
		},
		{
			name: "link to unknown node",
			def: FlowDefinition{Name: "f", Nodes: []NodeDefinition{
				{ID: "a", Type: "append"},
			}, Links: []LinkDefinition{{From: "a", To: "b"}}},
			want: "unknown node",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.def.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestRegistry_RegisterTwicePanics(t *testing.T) {
	r := newTestRegistry(t)

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on duplicate registration")
		}
	}()
	r.Register("append", func(def NodeDefinition) (api.Node, error) { return nil, nil })
}

func TestRegistry_Unregister(t *testing.T) {
	r := newTestRegistry(t)
	r.Unregister("append")

	if got := r.Types(); len(got) != 0 {
		t.Fatalf("expected empty registry, got %v", got)
	}
	r.Unregister("append") // unknown name is a no-op
}

func TestRegistry_Types(t *testing.T) {
	r := NewRegistry()
	r.Register("b", func(def NodeDefinition) (api.Node, error) { return nil, nil })
	r.Register("a", func(def NodeDefinition) (api.Node, error) { return nil, nil })

	types := r.Types()
	if len(types) != 2 || types[0] != "a" || types[1] != "b" {
		t.Fatalf("expected sorted types, got %v", types)
	}
}
