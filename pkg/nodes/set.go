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
	dsl.Default.Register("set", func(def dsl.NodeDefinition) (api.Node, error) {
		var cfg struct {
			Key  string
			Expr string
		}
		if err := dsl.DecodeConfig(def.Config, &cfg); err != nil {
			return nil, err
		}
		return NewSet(def.ID, cfg.Key, cfg.Expr)
	})
}

// NewSet creates a node that evaluates an expression and stores the result
// in the shared store under key.
func NewSet(name, key, expression string) (*api.Step, error) {
	if key == "" {
		return nil, fmt.Errorf("nodes: set %q: key must not be empty", name)
	}
	program, err := expr.Compile(expression, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("nodes: set %q: %w", name, err)
	}

	return api.NewStep(name).
		WithPrep(func(ctx context.Context, shared *api.Shared, params api.Params) (any, error) {
			return exprEnv(shared, params), nil
		}).
		WithExec(func(ctx context.Context, prep any, params api.Params) (any, error) {
			return vm.Run(program, prep)
		}).
		WithPost(func(ctx context.Context, shared *api.Shared, prep, exec any, params api.Params) (api.Action, error) {
			shared.Set(key, exec)
			return "", nil
		}), nil
}
