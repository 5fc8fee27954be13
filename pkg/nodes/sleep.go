package nodes

import (
	"context"
	"fmt"
	"time"

	"github.com/petrijr/grafo/pkg/api"
	"github.com/petrijr/grafo/pkg/dsl"
)

func init() {
	dsl.Default.Register("sleep", func(def dsl.NodeDefinition) (api.Node, error) {
		var cfg struct {
			Duration string
		}
		if err := dsl.DecodeConfig(def.Config, &cfg); err != nil {
			return nil, err
		}
		d, err := time.ParseDuration(cfg.Duration)
		if err != nil {
			return nil, fmt.Errorf("nodes: sleep %q: %w", def.ID, err)
		}
		return NewSleep(def.ID, d), nil
	})
}

// NewSleep creates a node that pauses the traversal for d. The wait is
// context-aware; cancelling the run aborts it with ctx.Err.
func NewSleep(name string, d time.Duration) *api.Step {
	return api.NewStep(name).
		WithExec(func(ctx context.Context, prep any, params api.Params) (any, error) {
			timer := time.NewTimer(d)
			defer timer.Stop()

			select {
			case <-timer.C:
				return nil, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		})
}
