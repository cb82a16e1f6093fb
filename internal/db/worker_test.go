package db_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/BrandonDHaskell/Portunus/evacsim/internal/db"
)

func openMemory(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Open(context.Background(), db.Config{Path: "worker_" + t.Name(), Memory: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestOpen_AppliesMigrations(t *testing.T) {
	conn := openMemory(t)

	var n int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&n); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 applied migration, got %d", n)
	}

	// Running again is a no-op.
	if err := db.Migrate(context.Background(), conn); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

func TestWorker_RollbackOnError(t *testing.T) {
	conn := openMemory(t)
	w := db.NewWorker(conn)
	t.Cleanup(w.Close)
	ctx := context.Background()

	boom := errors.New("boom")
	err := w.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO log_entries(line, appended_at_ms) VALUES('x', 1)`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	var n int
	_ = conn.QueryRow(`SELECT COUNT(*) FROM log_entries`).Scan(&n)
	if n != 0 {
		t.Errorf("expected rollback, found %d rows", n)
	}
}

func TestWorker_DoAfterClose(t *testing.T) {
	conn := openMemory(t)
	w := db.NewWorker(conn)
	w.Close()
	w.Close()

	err := w.Do(context.Background(), func(context.Context, *sql.Tx) error { return nil })
	if !errors.Is(err, db.ErrWorkerClosed) {
		t.Fatalf("expected ErrWorkerClosed, got %v", err)
	}
}
