package mfa

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// DefaultPostgresQuery selects the flag by primary key.
const DefaultPostgresQuery = `SELECT mfa_enabled FROM user_profiles WHERE id = $1`

// Querier is the subset of *pgx.Conn and *pgxpool.Pool used by PostgresGate.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresGate reads the MFA flag with a single-row query that takes the
// principal ID as its only argument. No row means MFA is disabled, and so
// does a NULL column.
type PostgresGate struct {
	db    Querier
	query string
}

// NewPostgresGate returns a gate using query, or DefaultPostgresQuery when
// query is empty.
func NewPostgresGate(db Querier, query string) *PostgresGate {
	if query == "" {
		query = DefaultPostgresQuery
	}
	return &PostgresGate{db: db, query: query}
}

func (g *PostgresGate) IsMFAEnabled(ctx context.Context, principalID string) (bool, error) {
	var enabled *bool
	err := g.db.QueryRow(ctx, g.query, principalID).Scan(&enabled)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	return enabled != nil && *enabled, nil
}
