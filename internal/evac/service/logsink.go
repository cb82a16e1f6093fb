package service

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/BrandonDHaskell/Portunus/evacsim/internal/evac/store"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/metrics"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/transport"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/wire"
)

// LogSink owns the event log. One goroutine is the only consumer of
// LOG_APPEND messages: it appends them to the store in arrival order and
// answers reads, so a read sees every append that reached the
// coordinator's mailbox before it.
//
// Store failures are reported on the process logger and the event is
// skipped; they never stop the sink.
type LogSink struct {
	tr      transport.Transport
	store   store.LogStore
	logger  *log.Logger
	metrics *metrics.Metrics

	mu        sync.Mutex
	pending   []chan readResult
	interrupt context.CancelFunc // cancels the receive in progress

	stopped  chan struct{}
	cancel   context.CancelFunc
	stopOnce sync.Once
}

type readResult struct {
	lines []string
	err   error
}

// NewLogSink creates a sink but does not start it.
func NewLogSink(tr transport.Transport, st store.LogStore, logger *log.Logger, m *metrics.Metrics) *LogSink {
	return &LogSink{
		tr:      tr,
		store:   st,
		logger:  logger,
		metrics: m,
		stopped: make(chan struct{}),
	}
}

// Start empties the store and begins consuming LOG_APPEND messages. The
// sink runs until ctx is cancelled or Stop is called.
func (s *LogSink) Start(ctx context.Context) {
	if err := s.store.Reset(ctx); err != nil {
		s.logger.Printf("[sink] cannot reset event log: %v", err)
	}

	ctx, s.cancel = context.WithCancel(ctx)
	go s.loop(ctx)
}

// Stop signals the sink to exit and waits for it to finish. Stop must
// only be called after Start.
func (s *LogSink) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		<-s.stopped
	})
}

// Lines returns every line recorded so far, in append order.
func (s *LogSink) Lines(ctx context.Context) ([]string, error) {
	reply := make(chan readResult, 1)

	s.mu.Lock()
	select {
	case <-s.stopped:
		s.mu.Unlock()
		return nil, ErrSinkStopped
	default:
	}
	s.pending = append(s.pending, reply)
	if s.interrupt != nil {
		s.interrupt()
	}
	s.mu.Unlock()

	select {
	case res := <-reply:
		return res.lines, res.err
	case <-s.stopped:
		// The loop may have answered just before exiting.
		select {
		case res := <-reply:
			return res.lines, res.err
		default:
			return nil, ErrSinkStopped
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *LogSink) loop(ctx context.Context) {
	defer close(s.stopped)

	for {
		s.mu.Lock()
		reads := s.pending
		s.pending = nil
		var recvCtx context.Context
		if len(reads) == 0 {
			recvCtx, s.interrupt = context.WithCancel(ctx)
		}
		s.mu.Unlock()

		if len(reads) > 0 {
			s.drain(ctx)
			lines, err := s.store.Lines(ctx)
			for _, reply := range reads {
				reply <- readResult{lines: lines, err: err}
			}
			continue
		}

		msg, err := s.tr.Recv(recvCtx, transport.AnySource, transport.TagLogAppend)

		s.mu.Lock()
		s.interrupt()
		s.interrupt = nil
		s.mu.Unlock()

		switch {
		case err == nil:
			s.append(ctx, msg)
		case ctx.Err() != nil:
			return
		case recvCtx.Err() != nil:
			// interrupted by a read
		case errors.Is(err, transport.ErrClosed):
			return
		default:
			s.logger.Printf("[sink] receive stopped: %v", err)
			return
		}
	}
}

// drain appends every LOG_APPEND already queued in the mailbox. The sink
// is the only consumer, so a positive probe means Recv will not block.
func (s *LogSink) drain(ctx context.Context) {
	for {
		if _, ok := s.tr.Probe(transport.AnySource, transport.TagLogAppend); !ok {
			return
		}
		msg, err := s.tr.Recv(ctx, transport.AnySource, transport.TagLogAppend)
		if err != nil {
			return
		}
		s.append(ctx, msg)
	}
}

func (s *LogSink) append(ctx context.Context, msg transport.Message) {
	entry, err := wire.DecodeLogAppend(msg.Payload)
	if err != nil {
		s.logger.Printf("[sink] bad log append from rank %d: %v", msg.From, err)
		return
	}
	err = s.store.Append(ctx, entry.Text)
	s.metrics.ObserveAppend(err)
	if err != nil {
		s.logger.Printf("[sink] cannot write log line from rank %d: %v", msg.From, err)
	}
}
