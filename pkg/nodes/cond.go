// Package nodes provides the built-in node types usable from flow
// definitions: expression-driven routing (cond, switch), shared-store
// writes (set), pacing (sleep) and structured logging (log). Importing the
// package registers all of them on dsl.Default.
//
// Expressions are compiled with expr-lang and evaluate against an
// environment with two variables: shared (a snapshot of the shared store)
// and params (the node's invocation parameters):
//
//	shared.temperature > 50 && params.env == "prod"
package nodes

import (
	"context"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/petrijr/grafo/pkg/api"
	"github.com/petrijr/grafo/pkg/dsl"
)

func init() {
	dsl.Default.Register("cond", func(def dsl.NodeDefinition) (api.Node, error) {
		var cfg struct {
			Expr string
		}
		if err := dsl.DecodeConfig(def.Config, &cfg); err != nil {
			return nil, err
		}
		return NewCond(def.ID, cfg.Expr)
	})
}

// exprEnv builds the expression environment for one node invocation.
func exprEnv(shared *api.Shared, params api.Params) map[string]any {
	return map[string]any{
		"shared": shared.Snapshot(),
		"params": map[string]any(params),
	}
}

// NewCond creates a node that evaluates a boolean expression and routes to
// the "true" or "false" action accordingly.
func NewCond(name, expression string) (*api.Step, error) {
	program, err := expr.Compile(expression, expr.AllowUndefinedVariables(), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("nodes: cond %q: %w", name, err)
	}

	return api.NewStep(name).
		WithPrep(func(ctx context.Context, shared *api.Shared, params api.Params) (any, error) {
			return exprEnv(shared, params), nil
		}).
		WithExec(func(ctx context.Context, prep any, params api.Params) (any, error) {
			return vm.Run(program, prep)
		}).
		WithPost(func(ctx context.Context, shared *api.Shared, prep, exec any, params api.Params) (api.Action, error) {
			if exec == true {
				return "true", nil
			}
			return "false", nil
		}), nil
}
