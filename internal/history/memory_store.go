package history

import (
	"sync"

	"github.com/petrijr/grafo/pkg/api"
)

// MemoryStore is a simple, goroutine-safe Store backed by maps.
type MemoryStore struct {
	mu     sync.RWMutex
	runs   map[string]RunRecord
	order  []string
	events map[string][]api.RunEvent
}

// NewMemoryStore creates a new MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs:   make(map[string]RunRecord),
		events: make(map[string][]api.RunEvent),
	}
}

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) SaveRun(rec RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[rec.ID]; !ok {
		s.order = append(s.order, rec.ID)
	}
	s.runs[rec.ID] = rec
	return nil
}

func (s *MemoryStore) GetRun(id string) (RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.runs[id]
	if !ok {
		return RunRecord{}, ErrRunNotFound
	}
	return rec, nil
}

// ListRuns returns matching records in insertion order.
func (s *MemoryStore) ListRuns(filter RunFilter) ([]RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []RunRecord
	for _, id := range s.order {
		rec := s.runs[id]
		if filter.Flow != "" && rec.Flow != filter.Flow {
			continue
		}
		if filter.Status != "" && rec.Status != filter.Status {
			continue
		}
		result = append(result, rec)
	}
	return result, nil
}

func (s *MemoryStore) AppendEvent(ev api.RunEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events[ev.RunID] = append(s.events[ev.RunID], ev)
	return nil
}

func (s *MemoryStore) ListEvents(runID string) ([]api.RunEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	evs := s.events[runID]
	out := make([]api.RunEvent, len(evs))
	copy(out, evs)
	return out, nil
}
