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
	dsl.Default.Register("switch", func(def dsl.NodeDefinition) (api.Node, error) {
		var cfg struct {
			Expr string
		}
		if err := dsl.DecodeConfig(def.Config, &cfg); err != nil {
			return nil, err
		}
		return NewSwitch(def.ID, cfg.Expr)
	})
}

// NewSwitch creates a node that evaluates a string expression and returns
// the result as the routing action. Successors registered on the node's
// default route catch any case without a dedicated link.
func NewSwitch(name, expression string) (*api.Step, error) {
	program, err := expr.Compile(expression, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("nodes: switch %q: %w", name, err)
	}

	return api.NewStep(name).
		WithPrep(func(ctx context.Context, shared *api.Shared, params api.Params) (any, error) {
			return exprEnv(shared, params), nil
		}).
		WithExec(func(ctx context.Context, prep any, params api.Params) (any, error) {
			out, err := vm.Run(program, prep)
			if err != nil {
				return nil, err
			}
			s, ok := out.(string)
			if !ok {
				return nil, fmt.Errorf("nodes: switch %q: expression returned %T, want string", name, out)
			}
			return s, nil
		}).
		WithPost(func(ctx context.Context, shared *api.Shared, prep, exec any, params api.Params) (api.Action, error) {
			return api.Action(exec.(string)), nil
		}), nil
}
