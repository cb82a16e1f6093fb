package service

import (
	"fmt"
	"slices"

	"github.com/BrandonDHaskell/Portunus/evacsim/internal/evac/types"
)

// Building is one building's access state machine. It has two states,
// normal and fire override; the alarm is never cleared once raised.
//
// Building is not safe for concurrent use. A BuildingController drives it
// from a single goroutine.
type Building struct {
	id        int
	roster    types.BadgeDatabase
	occupants []int // entry order, no duplicates
	fireAlarm bool
}

// NewBuilding takes its own copy of roster.
func NewBuilding(id int, roster types.BadgeDatabase) *Building {
	return &Building{id: id, roster: roster.Clone()}
}

func (b *Building) ID() int          { return b.id }
func (b *Building) FireAlarm() bool  { return b.fireAlarm }
func (b *Building) Occupants() []int { return slices.Clone(b.occupants) }

// HandleAccess decides one request and returns the decision together with
// the single log line describing it.
func (b *Building) HandleAccess(badgeID int, action types.Action) (types.Decision, string) {
	d := types.Decision{BadgeID: badgeID, Building: b.id, Action: action, Outcome: types.Denied}

	switch action {
	case types.ActionEnter:
		switch {
		case !b.allowed(badgeID):
			d.Reason = types.DenialNotAuthorized
			return d, fmt.Sprintf("Badge %d denied entry to building %d (not authorized)", badgeID, b.id)
		case b.inside(badgeID) >= 0:
			d.Reason = types.DenialAlreadyInside
			return d, fmt.Sprintf("Badge %d denied entry to building %d (already inside)", badgeID, b.id)
		}
		b.occupants = append(b.occupants, badgeID)
		d.Outcome = types.Granted
		return d, fmt.Sprintf("Badge %d entered building %d", badgeID, b.id)

	case types.ActionExit:
		i := b.inside(badgeID)
		if i < 0 {
			d.Reason = types.DenialNotInside
			return d, fmt.Sprintf("Badge %d asked to exit building %d but is not inside", badgeID, b.id)
		}
		b.occupants = slices.Delete(b.occupants, i, i+1)
		d.Outcome = types.Granted
		return d, fmt.Sprintf("Badge %d exited building %d", badgeID, b.id)
	}

	d.Reason = types.DenialInvalidAction
	return d, fmt.Sprintf("Badge %d sent unknown action %d to building %d", badgeID, int(action), b.id)
}

// HandleFire raises the alarm when buildingID is this building. It returns
// the escalation log line and the occupants' names in entry order; ok is
// false when the trigger was meant for another building.
func (b *Building) HandleFire(buildingID int) (line string, names []string, ok bool) {
	if buildingID != b.id {
		return "", nil, false
	}
	b.fireAlarm = true

	if len(b.occupants) > 0 {
		line = fmt.Sprintf("Fire in building %d: alarm active, doors open for emergency evacuation", b.id)
	} else {
		line = fmt.Sprintf("Fire in building %d: alarm active, doors open (nobody inside)", b.id)
	}

	names = make([]string, 0, len(b.occupants))
	for _, id := range b.occupants {
		names = append(names, b.displayName(id))
	}
	return line, names, true
}

func (b *Building) allowed(badgeID int) bool {
	if b.fireAlarm {
		return true
	}
	rec, ok := b.roster[badgeID]
	return ok && rec.CanEnter(b.id)
}

func (b *Building) inside(badgeID int) int {
	return slices.Index(b.occupants, badgeID)
}

// displayName falls back to a placeholder for badges let in by the fire
// override without a roster entry.
func (b *Building) displayName(badgeID int) string {
	if rec, ok := b.roster[badgeID]; ok && rec.Name != "" {
		return rec.Name
	}
	return fmt.Sprintf("badge-%d", badgeID)
}
