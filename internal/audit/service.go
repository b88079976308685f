package audit

import (
	"context"

	dErrors "careledger/pkg/domainerrors"
)

// Service exposes paginated, filtered read access over the audit store.
// Authorization is the transport layer's concern; the service assumes the
// caller was already cleared to view the trail.
type Service struct {
	store Store
}

// NewService creates the audit query service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// List returns one page of events plus the total match count. Page numbers
// are 1-based; a non-positive page size is rejected.
func (s *Service) List(ctx context.Context, filter Filter, page Page) ([]Event, int, error) {
	if page.Number < 1 {
		return nil, 0, dErrors.New(dErrors.CodeBadRequest, "page number must be at least 1")
	}
	if page.Size < 1 {
		return nil, 0, dErrors.New(dErrors.CodeBadRequest, "page size must be positive")
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, 0, dErrors.New(dErrors.CodeBadRequest, "date range end precedes start")
	}
	return s.store.List(ctx, filter, page)
}
