// Package local runs every rank inside one OS process. Each rank owns a
// transport.Mailbox; Send delivers straight into the receiver's mailbox.
package local

import (
	"context"
	"fmt"

	"github.com/BrandonDHaskell/Portunus/evacsim/internal/transport"
)

type Network struct {
	boxes []*transport.Mailbox
}

func NewNetwork(size int) *Network {
	boxes := make([]*transport.Mailbox, size)
	for i := range boxes {
		boxes[i] = transport.NewMailbox()
	}
	return &Network{boxes: boxes}
}

func (n *Network) Size() int { return len(n.boxes) }

// Endpoint returns the transport seen by rank r.
func (n *Network) Endpoint(r transport.Rank) *Endpoint {
	return &Endpoint{net: n, rank: r}
}

// Close shuts every mailbox, releasing all blocked receivers.
func (n *Network) Close() {
	for _, b := range n.boxes {
		b.Close()
	}
}

func (n *Network) box(r transport.Rank) (*transport.Mailbox, error) {
	if r < 0 || int(r) >= len(n.boxes) {
		return nil, fmt.Errorf("rank %d: %w", r, transport.ErrUnknownRank)
	}
	return n.boxes[r], nil
}

type Endpoint struct {
	net  *Network
	rank transport.Rank
}

var _ transport.Transport = (*Endpoint)(nil)

func (e *Endpoint) Rank() transport.Rank { return e.rank }
func (e *Endpoint) Size() int            { return e.net.Size() }

func (e *Endpoint) Send(ctx context.Context, to transport.Rank, tag transport.Tag, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	box, err := e.net.box(to)
	if err != nil {
		return err
	}
	return box.Deliver(transport.Message{
		From:    e.rank,
		To:      to,
		Tag:     tag,
		Payload: append([]byte(nil), payload...),
	})
}

func (e *Endpoint) Recv(ctx context.Context, from transport.Rank, tag transport.Tag) (transport.Message, error) {
	box, err := e.net.box(e.rank)
	if err != nil {
		return transport.Message{}, err
	}
	return box.Take(ctx, from, tag)
}

func (e *Endpoint) Probe(from transport.Rank, tag transport.Tag) (transport.Status, bool) {
	box, err := e.net.box(e.rank)
	if err != nil {
		return transport.Status{}, false
	}
	return box.Peek(from, tag)
}

// Close shuts only this endpoint's own mailbox.
func (e *Endpoint) Close() error {
	box, err := e.net.box(e.rank)
	if err != nil {
		return err
	}
	box.Close()
	return nil
}
