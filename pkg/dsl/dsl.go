// Package dsl loads flow definitions from YAML or JSON documents and builds
// runnable flows out of registered node types.
//
// A definition names its nodes, each with a type and a free-form config
// block, and wires them with action links:
//
//	name: triage
//	start: check
//	nodes:
//	  - id: check
//	    type: cond
//	    config:
//	      expr: shared.temperature > 50
//	  - id: alert
//	    type: log
//	    config:
//	      message: too hot
//	links:
//	  - from: check
//	    action: "true"
//	    to: alert
//
// Node types are provided by a Registry; the nodes package registers the
// built-in set on the Default registry.
package dsl

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/petrijr/grafo/pkg/api"
)

// NodeDefinition declares one node of a flow definition.
type NodeDefinition struct {
	ID     string         `yaml:"id" json:"id"`
	Type   string         `yaml:"type" json:"type"`
	Config map[string]any `yaml:"config,omitempty" json:"config,omitempty"`
}

// LinkDefinition wires one successor edge. An empty action means the
// default route.
type LinkDefinition struct {
	From   string `yaml:"from" json:"from"`
	Action string `yaml:"action,omitempty" json:"action,omitempty"`
	To     string `yaml:"to" json:"to"`
}

// FlowDefinition is the serializable form of a flow graph.
type FlowDefinition struct {
	Name   string           `yaml:"name" json:"name"`
	Start  string           `yaml:"start,omitempty" json:"start,omitempty"`
	Params map[string]any   `yaml:"params,omitempty" json:"params,omitempty"`
	Nodes  []NodeDefinition `yaml:"nodes" json:"nodes"`
	Links  []LinkDefinition `yaml:"links,omitempty" json:"links,omitempty"`
}

// ParseYAML decodes a YAML flow definition.
func ParseYAML(data []byte) (FlowDefinition, error) {
	var def FlowDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return FlowDefinition{}, fmt.Errorf("dsl: parse yaml: %w", err)
	}
	return def, nil
}

// ParseJSON decodes a JSON flow definition.
func ParseJSON(data []byte) (FlowDefinition, error) {
	var def FlowDefinition
	if err := json.Unmarshal(data, &def); err != nil {
		return FlowDefinition{}, fmt.Errorf("dsl: parse json: %w", err)
	}
	return def, nil
}

// DecodeConfig translates a node's free-form config block into a typed
// config struct. Factories use it so config structs stay plain Go:
//
//	var cfg struct{ Expr string }
//	if err := dsl.DecodeConfig(def.Config, &cfg); err != nil { ... }
func DecodeConfig(config map[string]any, out any) error {
	return mapstructure.Decode(config, out)
}

// Validate checks the definition for structural problems: missing names or
// ids, duplicate ids, links to unknown nodes, an unknown start node.
func (def FlowDefinition) Validate() error {
	if def.Name == "" {
		return fmt.Errorf("dsl: flow definition has no name")
	}
	if len(def.Nodes) == 0 {
		return fmt.Errorf("dsl: flow %q has no nodes", def.Name)
	}

	ids := make(map[string]bool, len(def.Nodes))
	for i, n := range def.Nodes {
		if n.ID == "" {
			return fmt.Errorf("dsl: flow %q node %d has no id", def.Name, i)
		}
		if n.Type == "" {
			return fmt.Errorf("dsl: flow %q node %q has no type", def.Name, n.ID)
		}
		if ids[n.ID] {
			return fmt.Errorf("dsl: flow %q has duplicate node id %q", def.Name, n.ID)
		}
		ids[n.ID] = true
	}

	if def.Start != "" && !ids[def.Start] {
		return fmt.Errorf("dsl: flow %q start %q is not a defined node", def.Name, def.Start)
	}
	for _, l := range def.Links {
		if !ids[l.From] {
			return fmt.Errorf("dsl: flow %q link from unknown node %q", def.Name, l.From)
		}
		if !ids[l.To] {
			return fmt.Errorf("dsl: flow %q link to unknown node %q", def.Name, l.To)
		}
	}
	return nil
}

// Build validates the definition, instantiates every node through the
// registry, wires the links, and returns the assembled flow. The start node
// is def.Start, or the first declared node when unset.
func (r *Registry) Build(def FlowDefinition) (*api.Flow, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	nodes := make(map[string]api.Node, len(def.Nodes))
	for _, nd := range def.Nodes {
		node, err := r.New(nd)
		if err != nil {
			return nil, fmt.Errorf("dsl: flow %q node %q: %w", def.Name, nd.ID, err)
		}
		nodes[nd.ID] = node
	}

	for _, l := range def.Links {
		nodes[l.From].On(api.Action(l.Action), nodes[l.To])
	}

	startID := def.Start
	if startID == "" {
		startID = def.Nodes[0].ID
	}

	flow := api.NewFlow(def.Name, nodes[startID])
	if len(def.Params) > 0 {
		flow.SetParams(api.Params(def.Params))
	}
	return flow, nil
}

// BuildYAML parses a YAML document and builds its flow in one step.
func (r *Registry) BuildYAML(data []byte) (*api.Flow, error) {
	def, err := ParseYAML(data)
	if err != nil {
		return nil, err
	}
	return r.Build(def)
}

// BuildJSON parses a JSON document and builds its flow in one step.
func (r *Registry) BuildJSON(data []byte) (*api.Flow, error) {
	def, err := ParseJSON(data)
	if err != nil {
		return nil, err
	}
	return r.Build(def)
}
