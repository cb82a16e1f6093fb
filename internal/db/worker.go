package db

import (
	"context"
	"database/sql"
	"errors"
	"sync"
)

var ErrWorkerClosed = errors.New("db worker closed")

type TxFn func(ctx context.Context, tx *sql.Tx) error

type job struct {
	ctx context.Context
	fn  TxFn
	ch  chan error
}

// Worker owns every write to the database. Jobs run one at a time, each in
// its own transaction, in the order they were queued.
type Worker struct {
	db   *sql.DB
	jobs chan job
	done chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewWorker(conn *sql.DB) *Worker {
	w := &Worker{
		db:   conn,
		jobs: make(chan job, 256),
		done: make(chan struct{}),
	}
	go w.loop()
	return w
}

// Close stops accepting jobs, finishes the queued ones and waits for the
// loop to exit. It is safe to call more than once.
func (w *Worker) Close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.jobs)
	}
	w.mu.Unlock()
	<-w.done
}

// Do runs fn in a transaction on the worker goroutine and returns its result.
// A caller whose ctx expires stops waiting; the job itself still completes.
func (w *Worker) Do(ctx context.Context, fn TxFn) error {
	j := job{ctx: ctx, fn: fn, ch: make(chan error, 1)}

	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return ErrWorkerClosed
	}
	select {
	case w.jobs <- j:
	case <-ctx.Done():
		w.mu.RUnlock()
		return ctx.Err()
	}
	w.mu.RUnlock()

	select {
	case err := <-j.ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer close(w.done)

	for j := range w.jobs {
		j.ch <- w.run(j)
	}
}

func (w *Worker) run(j job) error {
	tx, err := w.db.BeginTx(j.ctx, nil)
	if err != nil {
		return err
	}
	if err := j.fn(j.ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
