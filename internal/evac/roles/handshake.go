package roles

import (
	"context"
	"fmt"

	"github.com/BrandonDHaskell/Portunus/evacsim/internal/evac/types"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/transport"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/wire"
)

// CheckIn announces tr's role to the coordinator.
func CheckIn(ctx context.Context, tr transport.Transport, reg Registry) error {
	role, index, ok := reg.RoleOf(tr.Rank())
	if !ok || role == types.RoleCoordinator {
		return fmt.Errorf("rank %d: %w", tr.Rank(), ErrRoleMismatch)
	}
	payload := wire.EncodeHello(types.Hello{Role: role, Index: index})
	if err := tr.Send(ctx, reg.Coordinator(), transport.TagHello, payload); err != nil {
		return fmt.Errorf("check in: %w", err)
	}
	return nil
}

// AwaitCheckIns blocks the coordinator until every member has checked in
// with the role the registry expects. Repeated check-ins are ignored.
func AwaitCheckIns(ctx context.Context, tr transport.Transport, reg Registry) error {
	pending := make(map[transport.Rank]struct{})
	for _, r := range reg.Members() {
		pending[r] = struct{}{}
	}

	for len(pending) > 0 {
		msg, err := tr.Recv(ctx, transport.AnySource, transport.TagHello)
		if err != nil {
			return fmt.Errorf("await check-ins (%d pending): %w", len(pending), err)
		}
		hello, err := wire.DecodeHello(msg.Payload)
		if err != nil {
			return err
		}
		role, index, ok := reg.RoleOf(msg.From)
		if !ok || role != hello.Role || index != hello.Index {
			return fmt.Errorf("rank %d claims %s %d: %w", msg.From, hello.Role, hello.Index, ErrRoleMismatch)
		}
		delete(pending, msg.From)
	}
	return nil
}
