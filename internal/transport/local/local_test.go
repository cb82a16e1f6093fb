package local_test

import (
	"context"
	"errors"
	"testing"

	"github.com/BrandonDHaskell/Portunus/evacsim/internal/transport"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/transport/local"
)

func TestEndpoint_SendRecvStampsSender(t *testing.T) {
	n := local.NewNetwork(3)
	t.Cleanup(n.Close)
	ctx := context.Background()

	if err := n.Endpoint(2).Send(ctx, 0, transport.TagLogAppend, []byte("hello")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	msg, err := n.Endpoint(0).Recv(ctx, transport.AnySource, transport.TagLogAppend)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if msg.From != 2 || msg.To != 0 {
		t.Errorf("expected 2->0, got %d->%d", msg.From, msg.To)
	}
	if string(msg.Payload) != "hello" {
		t.Errorf("unexpected payload %q", msg.Payload)
	}
}

func TestEndpoint_SendCopiesPayload(t *testing.T) {
	n := local.NewNetwork(2)
	t.Cleanup(n.Close)
	ctx := context.Background()

	buf := []byte("abc")
	_ = n.Endpoint(0).Send(ctx, 1, transport.TagLogAppend, buf)
	buf[0] = 'z'

	msg, _ := n.Endpoint(1).Recv(ctx, 0, transport.TagLogAppend)
	if string(msg.Payload) != "abc" {
		t.Errorf("payload aliased the sender's buffer: %q", msg.Payload)
	}
}

func TestEndpoint_UnknownRank(t *testing.T) {
	n := local.NewNetwork(2)
	t.Cleanup(n.Close)

	err := n.Endpoint(0).Send(context.Background(), 5, transport.TagFireTrigger, nil)
	if !errors.Is(err, transport.ErrUnknownRank) {
		t.Fatalf("expected ErrUnknownRank, got %v", err)
	}
}

func TestEndpoint_ProbeBySource(t *testing.T) {
	n := local.NewNetwork(3)
	t.Cleanup(n.Close)
	ctx := context.Background()

	_ = n.Endpoint(1).Send(ctx, 0, transport.TagPresenceReport, []byte{1})

	if _, ok := n.Endpoint(0).Probe(2, transport.AnyTag); ok {
		t.Error("expected no message from rank 2")
	}
	st, ok := n.Endpoint(0).Probe(1, transport.AnyTag)
	if !ok || st.Tag != transport.TagPresenceReport {
		t.Errorf("expected PRESENCE_REPORT from rank 1, got %+v ok=%v", st, ok)
	}
}

func TestEndpoint_CloseReleasesReceiver(t *testing.T) {
	n := local.NewNetwork(1)
	ep := n.Endpoint(0)

	done := make(chan error, 1)
	go func() {
		_, err := ep.Recv(context.Background(), transport.AnySource, transport.AnyTag)
		done <- err
	}()

	_ = ep.Close()
	if err := <-done; !errors.Is(err, transport.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
