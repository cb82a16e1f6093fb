package roles_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BrandonDHaskell/Portunus/evacsim/internal/evac/roles"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/evac/types"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/transport"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/transport/local"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/wire"
)

// ── Layout ───────────────────────────────────────────────────────────────────

func TestLayout_RankAssignment(t *testing.T) {
	reg := roles.Layout(3, 2)

	if reg.Required() != 6 {
		t.Fatalf("expected 6 required processes, got %d", reg.Required())
	}
	if r, ok := reg.BuildingRank(3); !ok || r != 3 {
		t.Errorf("expected building 3 at rank 3, got %d ok=%v", r, ok)
	}
	if r, ok := reg.SimulatorRank(0); !ok || r != 4 {
		t.Errorf("expected first simulator at rank 4, got %d ok=%v", r, ok)
	}
	if _, ok := reg.BuildingRank(0); ok {
		t.Error("building ids start at 1")
	}
	if _, ok := reg.BuildingRank(4); ok {
		t.Error("building 4 does not exist")
	}

	role, idx, ok := reg.RoleOf(5)
	if !ok || role != types.RoleSimulator || idx != 1 {
		t.Errorf("expected rank 5 = simulator 1, got %v %d %v", role, idx, ok)
	}
	if _, _, ok := reg.RoleOf(6); ok {
		t.Error("rank 6 is outside the layout")
	}
}

func TestValidate_InsufficientProcesses(t *testing.T) {
	reg := roles.Layout(3, 2)

	if err := reg.Validate(5); !errors.Is(err, roles.ErrInsufficientProcesses) {
		t.Fatalf("expected ErrInsufficientProcesses, got %v", err)
	}
	if err := reg.Validate(6); err != nil {
		t.Errorf("expected 6 processes to be enough, got %v", err)
	}
	if err := reg.Validate(9); err != nil {
		t.Errorf("extra processes are allowed, got %v", err)
	}
}

// ── Handshake ────────────────────────────────────────────────────────────────

func TestAwaitCheckIns_AllMembers(t *testing.T) {
	reg := roles.Layout(2, 1)
	n := local.NewNetwork(reg.Required())
	t.Cleanup(n.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for _, r := range reg.Members() {
		if err := roles.CheckIn(ctx, n.Endpoint(r), reg); err != nil {
			t.Fatalf("CheckIn(%d): %v", r, err)
		}
	}
	if err := roles.AwaitCheckIns(ctx, n.Endpoint(0), reg); err != nil {
		t.Fatalf("AwaitCheckIns: %v", err)
	}
}

func TestAwaitCheckIns_WrongRoleRejected(t *testing.T) {
	reg := roles.Layout(1, 1)
	n := local.NewNetwork(reg.Required())
	t.Cleanup(n.Close)
	ctx := context.Background()

	// Rank 1 is building 1 but claims to be a simulator.
	bogus := wire.EncodeHello(types.Hello{Role: types.RoleSimulator, Index: 0})
	_ = n.Endpoint(1).Send(ctx, 0, transport.TagHello, bogus)

	err := roles.AwaitCheckIns(ctx, n.Endpoint(0), reg)
	if !errors.Is(err, roles.ErrRoleMismatch) {
		t.Fatalf("expected ErrRoleMismatch, got %v", err)
	}
}

func TestCheckIn_CoordinatorRefused(t *testing.T) {
	reg := roles.Layout(1, 1)
	n := local.NewNetwork(reg.Required())
	t.Cleanup(n.Close)

	err := roles.CheckIn(context.Background(), n.Endpoint(0), reg)
	if !errors.Is(err, roles.ErrRoleMismatch) {
		t.Fatalf("expected ErrRoleMismatch, got %v", err)
	}
}
