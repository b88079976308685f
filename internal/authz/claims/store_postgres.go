package claims

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"careledger/internal/authz"
	"careledger/pkg/sentinel"
)

// PostgresStore reads and writes the access_claims table:
//
//	CREATE TABLE access_claims (
//	    subject_id  UUID NOT NULL,
//	    claim_type  TEXT NOT NULL,
//	    claim_value TEXT NOT NULL,
//	    PRIMARY KEY (subject_id, claim_type, claim_value)
//	);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Grant adds a claim; duplicates are ignored.
func (s *PostgresStore) Grant(ctx context.Context, subjectID uuid.UUID, claim authz.AccessClaim) error {
	query := `
		INSERT INTO access_claims (subject_id, claim_type, claim_value)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, query, subjectID, claim.Type, claim.Value); err != nil {
		return fmt.Errorf("grant claim: %w", err)
	}
	return nil
}

// Revoke removes a claim.
func (s *PostgresStore) Revoke(ctx context.Context, subjectID uuid.UUID, claim authz.AccessClaim) error {
	query := `
		DELETE FROM access_claims
		WHERE subject_id = $1 AND claim_type = $2 AND claim_value = $3
	`
	if _, err := s.db.ExecContext(ctx, query, subjectID, claim.Type, claim.Value); err != nil {
		return fmt.Errorf("revoke claim: %w", err)
	}
	return nil
}

func (s *PostgresStore) ClaimsFor(ctx context.Context, subjectID uuid.UUID) ([]authz.AccessClaim, error) {
	query := `
		SELECT claim_type, claim_value
		FROM access_claims
		WHERE subject_id = $1
	`
	rows, err := s.db.QueryContext(ctx, query, subjectID)
	if err != nil {
		return nil, fmt.Errorf("query claims: %w", err)
	}
	defer rows.Close()

	var claims []authz.AccessClaim
	for rows.Next() {
		var c authz.AccessClaim
		if err := rows.Scan(&c.Type, &c.Value); err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		claims = append(claims, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claims: %w", err)
	}
	if len(claims) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return claims, nil
}
