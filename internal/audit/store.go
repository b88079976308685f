package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Filter narrows an audit query. All fields are optional and combine with
// AND semantics; date bounds are inclusive.
type Filter struct {
	From       *time.Time
	To         *time.Time
	ActorID    *uuid.UUID
	ActionName string
}

// Page selects a 1-based result window.
type Page struct {
	Number int
	Size   int
}

// Store is the durable, append-only record of audit events. Implementations
// live in store subpackages so tests can swap sinks easily.
type Store interface {
	// Append persists one event. Failures wrap storage detail; the drain
	// worker logs and drops rather than retrying indefinitely.
	Append(ctx context.Context, event Event) error

	// List returns one page of events matching the filter, ordered by
	// occurred_at descending, plus the total match count. Out-of-range
	// pages return an empty slice with the correct total.
	List(ctx context.Context, filter Filter, page Page) ([]Event, int, error)
}
