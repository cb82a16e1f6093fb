// Package file keeps the event log as a plain text file, one line per event.
package file

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BrandonDHaskell/Portunus/evacsim/internal/evac/store"
)

type LogStore struct {
	path string
}

var _ store.LogStore = (*LogStore)(nil)

func New(path string) *LogStore {
	return &LogStore{path: path}
}

func (s *LogStore) Path() string { return s.path }

// Reset truncates the file, creating it and its directory if needed.
func (s *LogStore) Reset(_ context.Context) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: mkdir %s: %v", store.ErrUnavailable, dir, err)
		}
	}
	if err := os.WriteFile(s.path, nil, 0o644); err != nil {
		return fmt.Errorf("%w: truncate %s: %v", store.ErrUnavailable, s.path, err)
	}
	return nil
}

// Append opens the file for every line, so a file that could not be opened
// once is retried on the next event.
func (s *LogStore) Append(_ context.Context, line string) error {
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", store.ErrUnavailable, s.path, err)
	}

	line = strings.ReplaceAll(line, "\n", " ")
	if _, err := f.WriteString(line + "\n"); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: write %s: %v", store.ErrUnavailable, s.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", store.ErrUnavailable, s.path, err)
	}
	return nil
}

func (s *LogStore) Lines(_ context.Context) ([]string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", store.ErrUnavailable, s.path, err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return lines, nil
}
