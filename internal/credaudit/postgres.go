package credaudit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists credential-fetch records in a Postgres table,
// grounded on the teacher's internal/repository/postgres package: a
// pgxpool.Pool, parameterized SQL, and fmt.Errorf-wrapped errors.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an already-connected pool. Callers are expected to
// have run the migration that creates credential_fetch_audit (mirroring
// the teacher's pattern of a schema_migrations-tracked init migration)
// before passing the pool here.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) RecordFetch(ctx context.Context, rec Record) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO credential_fetch_audit (provider_name, service_name, fetched_at, success, error_message)
		VALUES ($1, $2, $3, $4, $5)
	`, rec.ProviderName, rec.ServiceName, rec.FetchedAt, rec.Success, rec.ErrorMessage)
	if err != nil {
		return fmt.Errorf("credaudit: recording fetch: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecentFailures(ctx context.Context, since time.Time) ([]Record, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT provider_name, service_name, fetched_at, success, error_message
		FROM credential_fetch_audit
		WHERE success = false AND fetched_at >= $1
		ORDER BY fetched_at DESC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("credaudit: querying failures: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ProviderName, &rec.ServiceName, &rec.FetchedAt, &rec.Success, &rec.ErrorMessage); err != nil {
			return nil, fmt.Errorf("credaudit: scanning failure row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("credaudit: iterating failure rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// InitSchema creates the credential_fetch_audit table if it doesn't exist,
// for callers that don't run a separate migration tool.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS credential_fetch_audit (
			id            BIGSERIAL PRIMARY KEY,
			provider_name TEXT NOT NULL,
			service_name  TEXT NOT NULL,
			fetched_at    TIMESTAMPTZ NOT NULL,
			success       BOOLEAN NOT NULL,
			error_message TEXT NOT NULL DEFAULT ''
		)
	`)
	if err != nil {
		return fmt.Errorf("credaudit: initializing schema: %w", err)
	}
	return nil
}
