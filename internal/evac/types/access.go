package types

import "fmt"

// Action is the direction of an access request. Wire values match the
// operator menu: 1 = enter, 2 = exit.
type Action int

const (
	ActionEnter Action = 1
	ActionExit  Action = 2
)

func (a Action) Valid() bool { return a == ActionEnter || a == ActionExit }

func (a Action) String() string {
	switch a {
	case ActionEnter:
		return "enter"
	case ActionExit:
		return "exit"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// ParseAction accepts "enter"/"exit" or the numeric menu values.
func ParseAction(s string) (Action, error) {
	switch s {
	case "enter", "ENTER", "1":
		return ActionEnter, nil
	case "exit", "EXIT", "2":
		return ActionExit, nil
	}
	return 0, fmt.Errorf("unknown action %q", s)
}

// Outcome is the single integer a building answers with.
type Outcome int

const (
	Denied  Outcome = 0
	Granted Outcome = 1
)

func (o Outcome) String() string {
	if o == Granted {
		return "granted"
	}
	return "denied"
}

// DenialReason says why a request was refused. Empty on grants.
type DenialReason string

const (
	DenialNone          DenialReason = ""
	DenialNotAuthorized DenialReason = "not_authorized"
	DenialAlreadyInside DenialReason = "already_inside"
	DenialNotInside     DenialReason = "not_inside"
	DenialInvalidAction DenialReason = "invalid_action"
)

// Decision is the result of one access check.
type Decision struct {
	BadgeID  int
	Building int
	Action   Action
	Outcome  Outcome
	Reason   DenialReason
}
