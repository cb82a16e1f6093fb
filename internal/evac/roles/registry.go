// Package roles maps the parts of a run (coordinator, building controllers,
// simulators) to transport ranks. The layout is fixed for the lifetime of a
// run: rank 0 is the coordinator, ranks 1..B serve buildings 1..B, and the
// next S ranks are simulators.
package roles

import (
	"errors"
	"fmt"

	"github.com/BrandonDHaskell/Portunus/evacsim/internal/evac/types"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/transport"
)

var (
	ErrInsufficientProcesses = errors.New("not enough processes for the configured roles")
	ErrRoleMismatch          = errors.New("check-in does not match the registry")
)

type Registry struct {
	coordinator transport.Rank
	buildings   []transport.Rank // index i serves building i+1
	simulators  []transport.Rank
}

func Layout(buildings, simulators int) Registry {
	r := Registry{coordinator: 0}
	next := transport.Rank(1)
	for i := 0; i < buildings; i++ {
		r.buildings = append(r.buildings, next)
		next++
	}
	for i := 0; i < simulators; i++ {
		r.simulators = append(r.simulators, next)
		next++
	}
	return r
}

// Required is the minimum process count: buildings + simulators + 1.
func (r Registry) Required() int {
	return 1 + len(r.buildings) + len(r.simulators)
}

// Validate fails when size cannot host every role.
func (r Registry) Validate(size int) error {
	if size < r.Required() {
		return fmt.Errorf("%w: need at least %d, have %d", ErrInsufficientProcesses, r.Required(), size)
	}
	return nil
}

func (r Registry) Coordinator() transport.Rank { return r.coordinator }
func (r Registry) NumBuildings() int           { return len(r.buildings) }
func (r Registry) NumSimulators() int          { return len(r.simulators) }

// BuildingIDs returns 1..B.
func (r Registry) BuildingIDs() []int {
	ids := make([]int, len(r.buildings))
	for i := range ids {
		ids[i] = i + 1
	}
	return ids
}

func (r Registry) BuildingRank(id int) (transport.Rank, bool) {
	if id < 1 || id > len(r.buildings) {
		return 0, false
	}
	return r.buildings[id-1], true
}

func (r Registry) SimulatorRank(index int) (transport.Rank, bool) {
	if index < 0 || index >= len(r.simulators) {
		return 0, false
	}
	return r.simulators[index], true
}

// RoleOf says what rank plays. Index is the building id or simulator index.
// Ranks beyond the layout are idle and reported with ok=false.
func (r Registry) RoleOf(rank transport.Rank) (role types.Role, index int, ok bool) {
	if rank == r.coordinator {
		return types.RoleCoordinator, 0, true
	}
	for i, b := range r.buildings {
		if b == rank {
			return types.RoleBuilding, i + 1, true
		}
	}
	for i, s := range r.simulators {
		if s == rank {
			return types.RoleSimulator, i, true
		}
	}
	return 0, 0, false
}

// Members lists every non-coordinator rank in the layout.
func (r Registry) Members() []transport.Rank {
	out := make([]transport.Rank, 0, len(r.buildings)+len(r.simulators))
	out = append(out, r.buildings...)
	return append(out, r.simulators...)
}
