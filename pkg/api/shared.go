package api

import (
	"maps"
	"sort"
	"sync"
)

// Params holds node-specific invocation parameters. Params are distinct from
// the Shared store: the orchestrator applies them to a node immediately before
// each invocation, and batch orchestrators merge them with per-iteration
// parameter sets.
type Params map[string]any

// Clone returns a shallow copy of p. A nil receiver yields an empty, non-nil
// map so callers can always write to the result.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	maps.Copy(out, p)
	return out
}

// MergeParams returns a new Params containing base overlaid with over.
// Keys in over win on conflict. Neither input is modified.
func MergeParams(base, over Params) Params {
	out := base.Clone()
	maps.Copy(out, over)
	return out
}

// Shared is the single mutable key-value store threaded by reference through
// an entire run. It is the only medium by which nodes exchange data: Prep
// reads it, Post writes it, Exec never touches it.
//
// Individual operations are atomic, which keeps concurrent access from
// parallel branches well-defined at the map level. The engine provides no
// coordination beyond that: two branches writing the same key race with
// last-write-wins semantics, and callers are expected to partition keys per
// branch or append to branch-specific keys instead.
type Shared struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewShared returns an empty Shared store.
func NewShared() *Shared {
	return &Shared{values: make(map[string]any)}
}

// NewSharedFrom returns a Shared store seeded with a copy of init.
func NewSharedFrom(init map[string]any) *Shared {
	s := NewShared()
	maps.Copy(s.values, init)
	return s
}

// Get returns the value stored under key, and whether it was present.
func (s *Shared) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// GetString returns the string stored under key. It returns false if the key
// is absent or holds a non-string value.
func (s *Shared) GetString(key string) (string, bool) {
	v, ok := s.Get(key)
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

// Set stores value under key, replacing any previous value.
func (s *Shared) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Delete removes key from the store.
func (s *Shared) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// Append appends values to the []any slice stored under key, creating the
// slice if the key is absent. The read-modify-write runs under the store
// lock, so concurrent appenders from parallel branches never lose elements;
// their relative order is unspecified.
func (s *Shared) Append(key string, values ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, _ := s.values[key].([]any)
	s.values[key] = append(cur, values...)
}

// Len returns the number of keys in the store.
func (s *Shared) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// Keys returns the stored keys in sorted order.
func (s *Shared) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a shallow copy of the store's contents. The copy is
// detached: later mutations of the store are not reflected in it.
func (s *Shared) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.values))
	maps.Copy(out, s.values)
	return out
}
