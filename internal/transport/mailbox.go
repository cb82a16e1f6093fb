package transport

import (
	"context"
	"sync"
)

// Mailbox is the receive queue of one rank. Receivers pick the oldest
// message matching their filter, so per-sender order is preserved for
// every filter. Several goroutines may wait on the same mailbox with
// different filters.
type Mailbox struct {
	mu     sync.Mutex
	queue  []Message
	notify chan struct{}
	closed bool
}

func NewMailbox() *Mailbox {
	return &Mailbox{notify: make(chan struct{})}
}

// Deliver appends msg and wakes every waiting receiver.
func (m *Mailbox) Deliver(msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.queue = append(m.queue, msg)
	m.wakeLocked()
	return nil
}

// Take removes and returns the oldest matching message, blocking until one
// arrives, ctx is done, or the mailbox is closed.
func (m *Mailbox) Take(ctx context.Context, from Rank, tag Tag) (Message, error) {
	for {
		m.mu.Lock()
		if i := m.findLocked(from, tag); i >= 0 {
			msg := m.queue[i]
			copy(m.queue[i:], m.queue[i+1:])
			m.queue[len(m.queue)-1] = Message{}
			m.queue = m.queue[:len(m.queue)-1]
			m.mu.Unlock()
			return msg, nil
		}
		if m.closed {
			m.mu.Unlock()
			return Message{}, ErrClosed
		}
		wait := m.notify
		m.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return Message{}, ctx.Err()
		}
	}
}

// Peek is the non-blocking probe.
func (m *Mailbox) Peek(from Rank, tag Tag) (Status, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.findLocked(from, tag)
	if i < 0 {
		return Status{}, false
	}
	msg := m.queue[i]
	return Status{From: msg.From, Tag: msg.Tag, Size: len(msg.Payload)}, true
}

// Len is the number of queued messages.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Close rejects further deliveries and releases blocked receivers once the
// matching messages already queued have been drained.
func (m *Mailbox) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true
	m.wakeLocked()
}

func (m *Mailbox) findLocked(from Rank, tag Tag) int {
	for i, msg := range m.queue {
		if matches(msg, from, tag) {
			return i
		}
	}
	return -1
}

func (m *Mailbox) wakeLocked() {
	close(m.notify)
	m.notify = make(chan struct{})
}
