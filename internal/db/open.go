package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

type Config struct {
	Path string // e.g. "./data/evacsim.db"
	// Memory opens a private shared-cache in-memory database named Path.
	Memory bool
}

// DSN builds the modernc.org/sqlite connection string with per-connection PRAGMAs.
func DSN(cfg Config) string {
	const pragmas = "_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	if cfg.Memory {
		return fmt.Sprintf("file:%s?mode=memory&cache=shared&%s", cfg.Path, pragmas)
	}
	return fmt.Sprintf("file:%s?%s", cfg.Path, pragmas)
}

func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	if cfg.Path == "" {
		cfg.Path = "./data/evacsim.db"
	}

	if !cfg.Memory {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("mkdir db dir: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}

	// One connection: all writes already funnel through a single Worker.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	if err := Migrate(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return conn, nil
}
