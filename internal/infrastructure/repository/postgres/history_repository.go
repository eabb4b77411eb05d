// Package postgres is the multi-node history backend. The localfs store is
// the default; this one is selected with HISTORY_BACKEND=postgres.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/sahajseva/seva-gateway/internal/core/domain"
)

type HistoryRepository struct {
	db    *sql.DB
	limit int
}

func NewHistoryRepository(db *sql.DB, limit int) *HistoryRepository {
	if limit <= 0 {
		limit = domain.DefaultHistoryLimit
	}
	return &HistoryRepository{db: db, limit: limit}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *HistoryRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS history_entries (
	seq BIGSERIAL PRIMARY KEY,
	id TEXT NOT NULL UNIQUE,
	entry_type TEXT NOT NULL,
	title TEXT NOT NULL,
	timestamp_millis BIGINT NOT NULL
)`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create history table: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// Prepend inserts the entry and evicts everything past the cap in one
// transaction, keeping the newest rows.
func (r *HistoryRepository) Prepend(ctx context.Context, entry domain.HistoryEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
INSERT INTO history_entries (id, entry_type, title, timestamp_millis)
VALUES ($1,$2,$3,$4)
`, entry.ID, string(entry.Type), entry.Title, entry.TimestampMillis)
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
DELETE FROM history_entries
WHERE seq NOT IN (SELECT seq FROM history_entries ORDER BY seq DESC LIMIT $1)
`, r.limit)
	if err != nil {
		return fmt.Errorf("evict history entries: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit history tx: %w", err)
	}
	return nil
}

func (r *HistoryRepository) List(ctx context.Context) ([]domain.HistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, entry_type, title, timestamp_millis
FROM history_entries
ORDER BY seq DESC
LIMIT $1
`, r.limit)
	if err != nil {
		return nil, fmt.Errorf("list history entries: %w", err)
	}
	defer rows.Close()

	out := make([]domain.HistoryEntry, 0)
	for rows.Next() {
		var entry domain.HistoryEntry
		var entryType string
		if err := rows.Scan(&entry.ID, &entryType, &entry.Title, &entry.TimestampMillis); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		entry.Type = domain.HistoryEntryType(entryType)
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history entries: %w", err)
	}
	return out, nil
}

func (r *HistoryRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM history_entries`); err != nil {
		return fmt.Errorf("clear history entries: %w", err)
	}
	return nil
}
