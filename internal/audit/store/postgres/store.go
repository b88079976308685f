// Package postgres persists audit events in the audit_events table.
//
// Schema:
//
//	CREATE TABLE audit_events (
//	    id          UUID PRIMARY KEY,
//	    action_name TEXT        NOT NULL,
//	    description TEXT        NOT NULL,
//	    actor_id    UUID        NULL,
//	    payload     TEXT        NOT NULL DEFAULT '',
//	    occurred_at TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX audit_events_occurred_at_idx ON audit_events (occurred_at DESC);
//	CREATE INDEX audit_events_actor_idx ON audit_events (actor_id);
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"careledger/internal/audit"
)

// Store is the durable append-only audit store. Appends are idempotent via
// ON CONFLICT DO NOTHING so an at-least-once redelivery never duplicates an
// entry.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append writes one event.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	query := `
		INSERT INTO audit_events (id, action_name, description, actor_id, payload, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`
	var actorID *uuid.UUID
	if event.ActorID != nil {
		aid := *event.ActorID
		actorID = &aid
	}
	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.ActionName,
		event.Description,
		actorID,
		event.Payload,
		event.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// List returns one page of matching events ordered by occurred_at descending
// (id descending breaks ties so pagination stays stable), plus the total
// match count.
func (s *Store) List(ctx context.Context, filter audit.Filter, page audit.Page) ([]audit.Event, int, error) {
	where, args := buildWhere(filter)

	countQuery := "SELECT COUNT(*) FROM audit_events" + where
	var total int
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit events: %w", err)
	}

	listQuery := `
		SELECT id, action_name, description, actor_id, payload, occurred_at
		FROM audit_events` + where + `
		ORDER BY occurred_at DESC, id DESC
		LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, page.Size, (page.Number-1)*page.Size)

	rows, err := s.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	events := []audit.Event{}
	for rows.Next() {
		var (
			event   audit.Event
			actorID *uuid.UUID
		)
		err := rows.Scan(
			&event.ID,
			&event.ActionName,
			&event.Description,
			&actorID,
			&event.Payload,
			&event.OccurredAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan audit event: %w", err)
		}
		event.ActorID = actorID
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, total, nil
}

// buildWhere assembles the filter clause. Date bounds are inclusive.
func buildWhere(filter audit.Filter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if filter.From != nil {
		add("occurred_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("occurred_at <= $%d", *filter.To)
	}
	if filter.ActorID != nil {
		add("actor_id = $%d", *filter.ActorID)
	}
	if filter.ActionName != "" {
		add("action_name = $%d", filter.ActionName)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
