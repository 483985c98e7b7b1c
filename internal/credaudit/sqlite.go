package credaudit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists credential-fetch records using modernc.org/sqlite,
// the pure-Go, no-CGO driver the teacher's internal/repository/sqlite
// package uses for single-binary deployments.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at path and ensures
// the audit table exists. Pass ":memory:" for an ephemeral store.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("credaudit: opening sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("credaudit: pinging sqlite database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS credential_fetch_audit (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			provider_name TEXT NOT NULL,
			service_name  TEXT NOT NULL,
			fetched_at    TEXT NOT NULL,
			success       INTEGER NOT NULL,
			error_message TEXT NOT NULL DEFAULT ''
		)
	`)
	if err != nil {
		return fmt.Errorf("credaudit: initializing schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RecordFetch(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credential_fetch_audit (provider_name, service_name, fetched_at, success, error_message)
		VALUES (?, ?, ?, ?, ?)
	`, rec.ProviderName, rec.ServiceName, rec.FetchedAt.Format(time.RFC3339Nano), rec.Success, rec.ErrorMessage)
	if err != nil {
		return fmt.Errorf("credaudit: recording fetch: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RecentFailures(ctx context.Context, since time.Time) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT provider_name, service_name, fetched_at, success, error_message
		FROM credential_fetch_audit
		WHERE success = 0 AND fetched_at >= ?
		ORDER BY fetched_at DESC
	`, since.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("credaudit: querying failures: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var fetchedAt string
		if err := rows.Scan(&rec.ProviderName, &rec.ServiceName, &fetchedAt, &rec.Success, &rec.ErrorMessage); err != nil {
			return nil, fmt.Errorf("credaudit: scanning failure row: %w", err)
		}
		rec.FetchedAt, err = time.Parse(time.RFC3339Nano, fetchedAt)
		if err != nil {
			return nil, fmt.Errorf("credaudit: parsing fetched_at: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("credaudit: iterating failure rows: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
