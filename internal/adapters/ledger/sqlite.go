package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikey/inbox-digest/internal/core"
	"go.uber.org/zap"
)

// SQLiteLedger is a SQLite implementation of the core.Ledger interface.
type SQLiteLedger struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteLedger opens (creating if needed) the seen-item database.
func NewSQLiteLedger(dbPath string, logger *zap.Logger) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS seen_items (
			id TEXT NOT NULL,
			source TEXT NOT NULL,
			first_seen_at TEXT NOT NULL,
			PRIMARY KEY (id, source)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create seen_items table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create meta table: %w", err)
	}

	return &SQLiteLedger{db: db, logger: logger}, nil
}

// Seen returns the full seen-item set.
func (l *SQLiteLedger) Seen(ctx context.Context) (core.SeenSet, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT id, source FROM seen_items`)
	if err != nil {
		return nil, fmt.Errorf("failed to query seen items: %w", err)
	}
	defer rows.Close()

	seen := make(core.SeenSet)
	for rows.Next() {
		var key core.SeenKey
		if err := rows.Scan(&key.ID, &key.Source); err != nil {
			return nil, fmt.Errorf("failed to scan seen item: %w", err)
		}
		seen[key] = struct{}{}
	}
	return seen, rows.Err()
}

// MarkSeen inserts the given keys; existing keys are left untouched so
// first_seen_at is written exactly once.
func (l *SQLiteLedger) MarkSeen(ctx context.Context, keys []core.SeenKey) error {
	if len(keys) == 0 {
		return nil
	}
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO seen_items (id, source, first_seen_at)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, key := range keys {
		if _, err := stmt.ExecContext(ctx, key.ID, key.Source, now); err != nil {
			return fmt.Errorf("failed to insert seen item: %w", err)
		}
	}
	return tx.Commit()
}

// GetMeta returns the value for key, or "" when absent.
func (l *SQLiteLedger) GetMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := l.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query meta: %w", err)
	}
	return value, nil
}

// SetMeta overwrites the value for key.
func (l *SQLiteLedger) SetMeta(ctx context.Context, key, value string) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set meta: %w", err)
	}
	return nil
}

// Clear removes seen items, restricted to one source kind when source is
// non-empty.
func (l *SQLiteLedger) Clear(ctx context.Context, source string) error {
	var (
		result sql.Result
		err    error
	)
	if source != "" {
		result, err = l.db.ExecContext(ctx, `DELETE FROM seen_items WHERE source = ?`, source)
	} else {
		result, err = l.db.ExecContext(ctx, `DELETE FROM seen_items`)
	}
	if err != nil {
		return fmt.Errorf("failed to clear seen items: %w", err)
	}
	if removed, err := result.RowsAffected(); err == nil {
		l.logger.Info("Cleared seen items",
			zap.String("source", source), zap.Int64("removed", removed))
	}
	return nil
}

// Stats returns per-source seen counts for the admin surface.
func (l *SQLiteLedger) Stats(ctx context.Context) (map[string]int64, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT source, COUNT(*) FROM seen_items GROUP BY source
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int64)
	for rows.Next() {
		var source string
		var count int64
		if err := rows.Scan(&source, &count); err != nil {
			return nil, fmt.Errorf("failed to scan stats row: %w", err)
		}
		stats[source] = count
	}
	return stats, rows.Err()
}

// Close closes the database connection.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}
