package sqlite_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/BrandonDHaskell/Portunus/evacsim/internal/db"
)

// openTestDB returns an in-memory SQLite connection with the production
// PRAGMAs and migrations. It is closed when the test finishes.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open(context.Background(), db.Config{
		Path:   "test_" + t.Name(),
		Memory: true,
	})
	if err != nil {
		t.Fatalf("openTestDB: %v", err)
	}

	t.Cleanup(func() { conn.Close() })
	return conn
}

// newTestWriter returns a db.Worker backed by conn, closed on cleanup.
func newTestWriter(t *testing.T, conn *sql.DB) *db.Worker {
	t.Helper()

	w := db.NewWorker(conn)
	t.Cleanup(w.Close)
	return w
}
