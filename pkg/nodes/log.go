package nodes

import (
	"context"
	"log/slog"

	"github.com/petrijr/grafo/pkg/api"
	"github.com/petrijr/grafo/pkg/dsl"
)

func init() {
	dsl.Default.Register("log", func(def dsl.NodeDefinition) (api.Node, error) {
		var cfg struct {
			Message string
			Level   string
		}
		if err := dsl.DecodeConfig(def.Config, &cfg); err != nil {
			return nil, err
		}
		return NewLog(def.ID, cfg.Message, parseLevel(cfg.Level)), nil
	})
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// NewLog creates a node that emits one structured log line with the node's
// name, message and invocation parameters, then routes to the default
// successor.
func NewLog(name, message string, level slog.Level) *api.Step {
	return api.NewStep(name).
		WithExec(func(ctx context.Context, prep any, params api.Params) (any, error) {
			slog.Log(ctx, level, message,
				slog.String("node", name),
				slog.Any("params", map[string]any(params)),
			)
			return nil, nil
		})
}
