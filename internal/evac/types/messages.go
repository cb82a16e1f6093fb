package types

// Payloads of the message catalogue. Each one is encoded by package wire.

type AccessRequest struct {
	BadgeID int
	Action  Action
}

type AccessResponse struct {
	Outcome Outcome
}

type FireTrigger struct {
	BuildingID int
}

// PresenceReport lists occupant display names in entry order.
type PresenceReport struct {
	Names []string
}

type LogAppend struct {
	Text string
}

type SimCommand struct {
	BadgeID        int
	TargetBuilding int
	Action         Action
}

// Role is the part a process plays in the run.
type Role int

const (
	RoleCoordinator Role = iota
	RoleBuilding
	RoleSimulator
)

func (r Role) String() string {
	switch r {
	case RoleCoordinator:
		return "coordinator"
	case RoleBuilding:
		return "building"
	case RoleSimulator:
		return "simulator"
	default:
		return "unknown"
	}
}

// Hello is the startup check-in a building or simulator sends to the
// coordinator. Index is the building id for buildings and the zero-based
// simulator index for simulators.
type Hello struct {
	Role  Role
	Index int
}
