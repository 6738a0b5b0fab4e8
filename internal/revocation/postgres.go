package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLedger stores revocations in the blocklisted_tokens table. The unique
// constraint on jti makes inserts idempotent, and a row is only visible to
// other connections once its insert has committed.
type PostgresLedger struct {
	pool *pgxpool.Pool
}

// NewPostgresLedger builds a ledger over an open pool.
func NewPostgresLedger(pool *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{pool: pool}
}

func (l *PostgresLedger) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return nil
	}
	const query = `
        INSERT INTO blocklisted_tokens (jti, expires_at)
        VALUES ($1, $2)
        ON CONFLICT (jti) DO NOTHING`

	if _, err := l.pool.Exec(ctx, query, tokenID, expiresAt.UTC()); err != nil {
		return fmt.Errorf("%w: revoke: %w", ErrUnavailable, err)
	}
	return nil
}

func (l *PostgresLedger) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return true, nil
	}
	const query = `SELECT EXISTS (SELECT 1 FROM blocklisted_tokens WHERE jti=$1)`

	var revoked bool
	if err := l.pool.QueryRow(ctx, query, tokenID).Scan(&revoked); err != nil {
		return false, fmt.Errorf("%w: lookup: %w", ErrUnavailable, err)
	}
	return revoked, nil
}

func (l *PostgresLedger) PruneExpiredBefore(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM blocklisted_tokens WHERE expires_at < $1`

	cmd, err := l.pool.Exec(ctx, query, now.UTC().Truncate(time.Second))
	if err != nil {
		return 0, fmt.Errorf("%w: prune: %w", ErrUnavailable, err)
	}
	return cmd.RowsAffected(), nil
}
