package service_test

import (
	"errors"
	"fmt"
	"io"
	"log"
	"slices"
	"testing"

	"github.com/BrandonDHaskell/Portunus/evacsim/internal/evac/service"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/evac/store/memory"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/evac/types"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/transport"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/transport/local"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/wire"
)

func TestLogSink_ReadSeesEveryDeliveredAppend(t *testing.T) {
	net := local.NewNetwork(3)
	t.Cleanup(net.Close)
	ctx := testContext(t)

	st := memory.New()
	if err := st.Append(ctx, "stale line from a previous run"); err != nil {
		t.Fatal(err)
	}

	sink := service.NewLogSink(net.Endpoint(0), st, log.New(io.Discard, "", 0), nil)
	sink.Start(ctx)
	t.Cleanup(sink.Stop)

	var want []string
	for i := range 50 {
		from := net.Endpoint(transport.Rank(1 + i%2))
		line := fmt.Sprintf("line %d from rank %d", i, from.Rank())
		payload := wire.EncodeLogAppend(types.LogAppend{Text: line})
		if err := from.Send(ctx, 0, transport.TagLogAppend, payload); err != nil {
			t.Fatalf("Send: %v", err)
		}
		want = append(want, line)

		if i%10 == 9 {
			got, err := sink.Lines(ctx)
			if err != nil {
				t.Fatalf("Lines: %v", err)
			}
			if !slices.Equal(got, want) {
				t.Fatalf("after %d appends\n got: %q\nwant: %q", i+1, got, want)
			}
		}
	}
}

func TestLogSink_SkipsMalformedAppend(t *testing.T) {
	net := local.NewNetwork(2)
	t.Cleanup(net.Close)
	ctx := testContext(t)

	sink := service.NewLogSink(net.Endpoint(0), memory.New(), log.New(io.Discard, "", 0), nil)
	sink.Start(ctx)
	t.Cleanup(sink.Stop)

	b := net.Endpoint(1)
	if err := b.Send(ctx, 0, transport.TagLogAppend, []byte{0xff, 0xff}); err != nil {
		t.Fatal(err)
	}
	if err := b.Send(ctx, 0, transport.TagLogAppend, wire.EncodeLogAppend(types.LogAppend{Text: "ok"})); err != nil {
		t.Fatal(err)
	}

	got, err := sink.Lines(ctx)
	if err != nil {
		t.Fatalf("Lines: %v", err)
	}
	if !slices.Equal(got, []string{"ok"}) {
		t.Errorf("expected [ok], got %q", got)
	}
}

func TestLogSink_LinesAfterStop(t *testing.T) {
	net := local.NewNetwork(1)
	t.Cleanup(net.Close)
	ctx := testContext(t)

	sink := service.NewLogSink(net.Endpoint(0), memory.New(), log.New(io.Discard, "", 0), nil)
	sink.Start(ctx)
	sink.Stop()
	sink.Stop()

	if _, err := sink.Lines(ctx); !errors.Is(err, service.ErrSinkStopped) {
		t.Errorf("expected ErrSinkStopped, got %v", err)
	}
}
