// Package claims provides identity-store backends for the policy evaluator's
// claims lookups.
package claims

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"careledger/internal/authz"
	"careledger/pkg/sentinel"
)

// InMemoryStore holds claims per subject for tests and local runs.
type InMemoryStore struct {
	mu     sync.RWMutex
	claims map[uuid.UUID][]authz.AccessClaim
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{claims: make(map[uuid.UUID][]authz.AccessClaim)}
}

// Grant adds a claim to a subject.
func (s *InMemoryStore) Grant(_ context.Context, subjectID uuid.UUID, claim authz.AccessClaim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims[subjectID] = append(s.claims[subjectID], claim)
	return nil
}

// Revoke removes all claims of the given type and value from a subject.
func (s *InMemoryStore) Revoke(_ context.Context, subjectID uuid.UUID, claim authz.AccessClaim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.claims[subjectID][:0]
	for _, c := range s.claims[subjectID] {
		if c != claim {
			kept = append(kept, c)
		}
	}
	s.claims[subjectID] = kept
	return nil
}

func (s *InMemoryStore) ClaimsFor(_ context.Context, subjectID uuid.UUID) ([]authz.AccessClaim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	claims, ok := s.claims[subjectID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return append([]authz.AccessClaim{}, claims...), nil
}
