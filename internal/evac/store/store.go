package store

import (
	"context"
	"errors"
)

// ErrUnavailable marks a log store that could not be opened or written.
// The log sink treats it as recoverable: the event is dropped and the next
// one tries again.
var ErrUnavailable = errors.New("log store unavailable")

// LogStore is the backing store of the append-only event log. Lines are
// kept in the order Append was called and are never edited or removed,
// except by Reset at the start of a run.
type LogStore interface {
	// Reset creates the store or empties it.
	Reset(ctx context.Context) error
	Append(ctx context.Context, line string) error
	Lines(ctx context.Context) ([]string, error)
}
