package memory

import (
	"context"
	"sort"
	"sync"

	"careledger/internal/audit"
)

// InMemoryStore is an append-only audit store for tests and local runs.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) List(_ context.Context, filter audit.Filter, page audit.Page) ([]audit.Event, int, error) {
	s.mu.RLock()
	matched := make([]audit.Event, 0, len(s.events))
	for _, e := range s.events {
		if matches(e, filter) {
			matched = append(matched, e)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].OccurredAt.Equal(matched[j].OccurredAt) {
			return matched[i].ID.String() > matched[j].ID.String()
		}
		return matched[i].OccurredAt.After(matched[j].OccurredAt)
	})

	total := len(matched)
	start := (page.Number - 1) * page.Size
	if start >= total {
		return []audit.Event{}, total, nil
	}
	end := start + page.Size
	if end > total {
		end = total
	}
	return append([]audit.Event{}, matched[start:end]...), total, nil
}

// Clear resets the store between tests.
func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

func matches(e audit.Event, f audit.Filter) bool {
	if f.From != nil && e.OccurredAt.Before(*f.From) {
		return false
	}
	if f.To != nil && e.OccurredAt.After(*f.To) {
		return false
	}
	if f.ActorID != nil {
		if e.ActorID == nil || *e.ActorID != *f.ActorID {
			return false
		}
	}
	if f.ActionName != "" && e.ActionName != f.ActionName {
		return false
	}
	return true
}
