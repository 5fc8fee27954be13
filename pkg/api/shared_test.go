package api

import (
	"sync"
	"testing"
)

func TestSharedGetSetDelete(t *testing.T) {
	t.Parallel()

	s := NewShared()
	if _, ok := s.Get("missing"); ok {
		t.Fatal("expected miss on empty store")
	}

	s.Set("k", 42)
	if v, ok := s.Get("k"); !ok || v != 42 {
		t.Fatalf("got %v (ok=%v), want 42", v, ok)
	}

	s.Delete("k")
	if _, ok := s.Get("k"); ok {
		t.Fatal("expected miss after delete")
	}
}

func TestSharedGetString(t *testing.T) {
	t.Parallel()

	s := NewSharedFrom(map[string]any{"name": "grafo", "n": 7})

	if v, ok := s.GetString("name"); !ok || v != "grafo" {
		t.Fatalf("got %q (ok=%v)", v, ok)
	}
	// Wrong type reads as a miss.
	if _, ok := s.GetString("n"); ok {
		t.Fatal("expected miss for non-string value")
	}
	if _, ok := s.GetString("absent"); ok {
		t.Fatal("expected miss for absent key")
	}
}

func TestSharedKeysSorted(t *testing.T) {
	t.Parallel()

	s := NewSharedFrom(map[string]any{"c": 1, "a": 2, "b": 3})
	keys := s.Keys()
	want := []string{"a", "b", "c"}
	if len(keys) != len(want) {
		t.Fatalf("keys %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("keys %v, want %v", keys, want)
		}
	}
}

func TestSharedSnapshotIsDetached(t *testing.T) {
	t.Parallel()

	s := NewSharedFrom(map[string]any{"k": "v"})
	snap := s.Snapshot()
	snap["k"] = "mutated"
	snap["new"] = true

	if v, _ := s.Get("k"); v != "v" {
		t.Fatalf("snapshot mutation leaked into the store: %v", v)
	}
	if _, ok := s.Get("new"); ok {
		t.Fatal("snapshot insertion leaked into the store")
	}
}

func TestSharedNewSharedFromCopiesInit(t *testing.T) {
	t.Parallel()

	init := map[string]any{"k": 1}
	s := NewSharedFrom(init)
	init["k"] = 2

	if v, _ := s.Get("k"); v != 1 {
		t.Fatalf("store must copy the init map, got %v", v)
	}
}

// Concurrent appends from many goroutines must lose no elements.
func TestSharedAppendUnderContention(t *testing.T) {
	t.Parallel()

	s := NewShared()
	const goroutines = 16
	const perGoroutine = 100

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				s.Append("list", i)
			}
		}()
	}
	wg.Wait()

	v, _ := s.Get("list")
	if got := len(v.([]any)); got != goroutines*perGoroutine {
		t.Fatalf("lost appends: got %d elements, want %d", got, goroutines*perGoroutine)
	}
}
