// Package grpcnet carries evacsim messages between OS processes. Every rank
// serves a single unary Deliver RPC; incoming envelopes land in a local
// transport.Mailbox, so Recv and Probe behave exactly as in-process.
//
// Sends to one peer are serialized and each waits for the peer's ack, which
// keeps per-pair ordering even when several goroutines of a rank send.
package grpcnet

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/BrandonDHaskell/Portunus/evacsim/internal/transport"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/wire"
)

var ErrMisrouted = errors.New("envelope addressed to another rank")

type Config struct {
	Rank transport.Rank
	// Peers maps every rank in the run, this one included, to its address.
	Peers map[transport.Rank]string
	// Listener is optional; when nil the endpoint listens on Peers[Rank].
	Listener net.Listener
	Logger   *log.Logger
}

type Endpoint struct {
	rank   transport.Rank
	peers  map[transport.Rank]string
	logger *log.Logger

	box *transport.Mailbox
	lis net.Listener
	srv *grpc.Server

	mu    sync.Mutex
	conns map[transport.Rank]*peerConn
}

type peerConn struct {
	mu sync.Mutex
	cc *grpc.ClientConn
}

var _ transport.Transport = (*Endpoint)(nil)

func New(cfg Config) (*Endpoint, error) {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if _, ok := cfg.Peers[cfg.Rank]; !ok && cfg.Listener == nil {
		return nil, fmt.Errorf("rank %d has no address: %w", cfg.Rank, transport.ErrUnknownRank)
	}

	lis := cfg.Listener
	if lis == nil {
		var err error
		lis, err = net.Listen("tcp", cfg.Peers[cfg.Rank])
		if err != nil {
			return nil, fmt.Errorf("listen %s: %w", cfg.Peers[cfg.Rank], err)
		}
	}

	e := &Endpoint{
		rank:   cfg.Rank,
		peers:  cfg.Peers,
		logger: cfg.Logger,
		box:    transport.NewMailbox(),
		lis:    lis,
		srv:    grpc.NewServer(grpc.ForceServerCodec(wireCodec{})),
		conns:  make(map[transport.Rank]*peerConn),
	}
	e.srv.RegisterService(&mailboxServiceDesc, e)

	go func() {
		if err := e.srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			e.logger.Printf("grpcnet rank %d: serve: %v", e.rank, err)
		}
	}()

	return e, nil
}

// Addr is the address the endpoint actually listens on.
func (e *Endpoint) Addr() string { return e.lis.Addr().String() }

func (e *Endpoint) Rank() transport.Rank { return e.rank }
func (e *Endpoint) Size() int            { return len(e.peers) }

// Deliver is the server side of the RPC.
func (e *Endpoint) Deliver(_ context.Context, env *wire.Envelope) (*ack, error) {
	if transport.Rank(env.To) != e.rank {
		return nil, status.Errorf(codes.InvalidArgument, "envelope %s for rank %d: %v", env.ID, env.To, ErrMisrouted)
	}
	err := e.box.Deliver(transport.Message{
		From:    transport.Rank(env.From),
		To:      e.rank,
		Tag:     transport.Tag(env.Tag),
		Payload: env.Payload,
	})
	if err != nil {
		return nil, status.Error(codes.Unavailable, err.Error())
	}
	return &ack{}, nil
}

func (e *Endpoint) Send(ctx context.Context, to transport.Rank, tag transport.Tag, payload []byte) error {
	if to == e.rank {
		return e.box.Deliver(transport.Message{
			From:    e.rank,
			To:      e.rank,
			Tag:     tag,
			Payload: append([]byte(nil), payload...),
		})
	}

	pc, err := e.conn(to)
	if err != nil {
		return err
	}

	env := &wire.Envelope{
		ID:      uuid.NewString(),
		From:    int(e.rank),
		To:      int(to),
		Tag:     int(tag),
		Payload: payload,
	}

	pc.mu.Lock()
	defer pc.mu.Unlock()

	// WaitForReady lets a rank send before its peer has started listening.
	if err := pc.cc.Invoke(ctx, deliverMethod, env, &ack{}, grpc.WaitForReady(true)); err != nil {
		return fmt.Errorf("send %s %s to rank %d: %w", env.ID, tag, to, err)
	}
	return nil
}

func (e *Endpoint) Recv(ctx context.Context, from transport.Rank, tag transport.Tag) (transport.Message, error) {
	return e.box.Take(ctx, from, tag)
}

func (e *Endpoint) Probe(from transport.Rank, tag transport.Tag) (transport.Status, bool) {
	return e.box.Peek(from, tag)
}

func (e *Endpoint) Close() error {
	e.srv.Stop()
	e.box.Close()

	e.mu.Lock()
	defer e.mu.Unlock()

	var errs []error
	for r, pc := range e.conns {
		if err := pc.cc.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close conn to rank %d: %w", r, err))
		}
	}
	e.conns = map[transport.Rank]*peerConn{}
	return errors.Join(errs...)
}

func (e *Endpoint) conn(to transport.Rank) (*peerConn, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if pc, ok := e.conns[to]; ok {
		return pc, nil
	}
	addr, ok := e.peers[to]
	if !ok {
		return nil, fmt.Errorf("rank %d: %w", to, transport.ErrUnknownRank)
	}

	cc, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(wireCodec{})),
	)
	if err != nil {
		return nil, fmt.Errorf("dial rank %d at %s: %w", to, addr, err)
	}
	pc := &peerConn{cc: cc}
	e.conns[to] = pc
	return pc, nil
}
