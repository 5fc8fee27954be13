package nodes

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/petrijr/grafo/pkg/api"
	"github.com/petrijr/grafo/pkg/dsl"
)

func TestCondRoutesOnExpression(t *testing.T) {
	cond, err := NewCond("check", `shared.temperature > 50`)
	if err != nil {
		t.Fatalf("NewCond failed: %v", err)
	}

	shared := api.NewSharedFrom(map[string]any{"temperature": 72})
	action, err := cond.Run(context.Background(), shared)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if action != "true" {
		t.Fatalf("expected action %q, got %q", "true", action)
	}

	shared.Set("temperature", 12)
	action, err = cond.Run(context.Background(), shared)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if action != "false" {
		t.Fatalf("expected action %q, got %q", "false", action)
	}
}

func TestCondSeesParams(t *testing.T) {
	cond, err := NewCond("check", `params.env == "prod"`)
	if err != nil {
		t.Fatalf("NewCond failed: %v", err)
	}
	cond.SetParams(api.Params{"env": "prod"})

	action, err := cond.Run(context.Background(), api.NewShared())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if action != "true" {
		t.Fatalf("expected action %q, got %q", "true", action)
	}
}

func TestCondRejectsInvalidExpression(t *testing.T) {
	if _, err := NewCond("bad", `1 +`); err == nil {
		t.Fatalf("expected compile error")
	}
}

func TestSwitchReturnsExpressionAsAction(t *testing.T) {
	sw, err := NewSwitch("route", `shared.tier`)
	if err != nil {
		t.Fatalf("NewSwitch failed: %v", err)
	}

	shared := api.NewSharedFrom(map[string]any{"tier": "premium"})
	action, err := sw.Run(context.Background(), shared)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if action != "premium" {
		t.Fatalf("expected action %q, got %q", "premium", action)
	}
}

func TestSwitchRejectsNonStringResult(t *testing.T) {
	sw, err := NewSwitch("route", `42`)
	if err != nil {
		t.Fatalf("NewSwitch failed: %v", err)
	}

	_, err = sw.Run(context.Background(), api.NewShared())
	if err == nil || !strings.Contains(err.Error(), "want string") {
		t.Fatalf("expected non-string result error, got %v", err)
	}
}

func TestSetWritesEvaluatedValue(t *testing.T) {
	set, err := NewSet("total", "sum", `shared.a + shared.b`)
	if err != nil {
		t.Fatalf("NewSet failed: %v", err)
	}

	shared := api.NewSharedFrom(map[string]any{"a": 2, "b": 3})
	action, err := set.Run(context.Background(), shared)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if action != api.DefaultAction {
		t.Fatalf("expected default action, got %q", action)
	}
	got, _ := shared.Get("sum")
	if got != 5 {
		t.Fatalf("expected sum 5, got %v", got)
	}
}

func TestSetRequiresKey(t *testing.T) {
	if _, err := NewSet("bad", "", `1`); err == nil {
		t.Fatalf("expected error for empty key")
	}
}

func TestSleepHonorsContextCancellation(t *testing.T) {
	sleep := NewSleep("pause", time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := sleep.Run(ctx, api.NewShared())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("sleep did not stop on cancellation")
	}
}

func TestSleepCompletes(t *testing.T) {
	sleep := NewSleep("pause", 5*time.Millisecond)

	action, err := sleep.Run(context.Background(), api.NewShared())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if action != api.DefaultAction {
		t.Fatalf("expected default action, got %q", action)
	}
}

const triageYAML = `
name: triage
start: check
nodes:
  - id: check
    type: cond
    config:
      expr: shared.temperature > 50
  - id: mark-hot
    type: set
    config:
      key: verdict
      expr: '"hot"'
  - id: mark-cold
    type: set
    config:
      key: verdict
      expr: '"cold"'
links:
  - from: check
    action: "true"
    to: mark-hot
  - from: check
    action: "false"
    to: mark-cold
`

// End-to-end: build a flow out of registered built-ins and run it.
func TestDefaultRegistryBuildsRunnableFlow(t *testing.T) {
	flow, err := dsl.Default.BuildYAML([]byte(triageYAML))
	if err != nil {
		t.Fatalf("BuildYAML failed: %v", err)
	}

	shared := api.NewSharedFrom(map[string]any{"temperature": 80})
	if _, err := flow.Run(context.Background(), shared); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if got, _ := shared.Get("verdict"); got != "hot" {
		t.Fatalf("expected verdict %q, got %v", "hot", got)
	}

	shared = api.NewSharedFrom(map[string]any{"temperature": 10})
	if _, err := flow.Run(context.Background(), shared); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if got, _ := shared.Get("verdict"); got != "cold" {
		t.Fatalf("expected verdict %q, got %v", "cold", got)
	}
}

func TestDefaultRegistryHasBuiltins(t *testing.T) {
	types := dsl.Default.Types()
	want := []string{"cond", "log", "set", "sleep", "switch"}
	if len(types) != len(want) {
		t.Fatalf("expected types %v, got %v", want, types)
	}
	for i, w := range want {
		if types[i] != w {
			t.Fatalf("expected types %v, got %v", want, types)
		}
	}
}
