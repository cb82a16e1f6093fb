package memory

import (
	"context"
	"sync"

	"github.com/BrandonDHaskell/Portunus/evacsim/internal/evac/store"
)

// LogStore is an in-memory event log for tests and dry runs.
type LogStore struct {
	mu    sync.Mutex
	lines []string
}

var _ store.LogStore = (*LogStore)(nil)

func New() *LogStore {
	return &LogStore{}
}

func (s *LogStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
	return nil
}

func (s *LogStore) Append(_ context.Context, line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, line)
	return nil
}

// Lines returns a copy of every appended line.
func (s *LogStore) Lines(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.lines))
	copy(out, s.lines)
	return out, nil
}
