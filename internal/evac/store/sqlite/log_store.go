package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/BrandonDHaskell/Portunus/evacsim/internal/db"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/evac/store"
)

// LogStore keeps the event log in the log_entries table. Writes go through
// the single db.Worker; reads use the shared connection.
type LogStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

var _ store.LogStore = (*LogStore)(nil)

func NewLogStore(db *sql.DB, writer *dbpkg.Worker) *LogStore {
	return &LogStore{db: db, writer: writer}
}

func (s *LogStore) Reset(ctx context.Context) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM log_entries;`); err != nil {
			return fmt.Errorf("%w: reset: %v", store.ErrUnavailable, err)
		}
		return nil
	})
}

func (s *LogStore) Append(ctx context.Context, line string) error {
	nowMs := time.Now().UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO log_entries(line, appended_at_ms) VALUES (?, ?);
`, line, nowMs); err != nil {
			return fmt.Errorf("%w: append: %v", store.ErrUnavailable, err)
		}
		return nil
	})
}

// Lines returns the log in append order.
func (s *LogStore) Lines(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT line FROM log_entries ORDER BY seq;`)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", store.ErrUnavailable, err)
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			return nil, fmt.Errorf("Lines scan: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Lines rows: %w", err)
	}
	return lines, nil
}
