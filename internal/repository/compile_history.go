// Package repository implements persistence for the compile service on the
// SQLite history store.
package repository

import (
	"context"
	"database/sql"
	"time"

	"planql/internal/domain"
)

// CompileHistoryRepo stores and lists compilation attempts.
type CompileHistoryRepo struct {
	db *sql.DB
}

func NewCompileHistoryRepo(db *sql.DB) *CompileHistoryRepo {
	return &CompileHistoryRepo{db: db}
}

const timeLayout = "2006-01-02 15:04:05"

// Record inserts one history entry.
func (r *CompileHistoryRepo) Record(ctx context.Context, e domain.HistoryEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO compile_history
			(id, created_at, intent, used_table, sql_text, status, error_kind, error_text, notes, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.CreatedAt.UTC().Format(timeLayout),
		e.Intent,
		e.UsedTable,
		e.SQL,
		e.Status,
		e.ErrorKind,
		e.ErrorText,
		e.Notes,
		e.DurationMS,
	)
	return err
}

// List returns the most recent entries, newest first. limit <= 0 defaults
// to 50.
func (r *CompileHistoryRepo) List(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, created_at, intent, used_table, sql_text, status, error_kind, error_text, notes, duration_ms
		FROM compile_history
		ORDER BY created_at DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var entries []domain.HistoryEntry
	for rows.Next() {
		var e domain.HistoryEntry
		var createdAt string
		if err := rows.Scan(&e.ID, &createdAt, &e.Intent, &e.UsedTable, &e.SQL,
			&e.Status, &e.ErrorKind, &e.ErrorText, &e.Notes, &e.DurationMS); err != nil {
			return nil, err
		}
		if t, err := time.Parse(timeLayout, createdAt); err == nil {
			e.CreatedAt = t.UTC()
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
