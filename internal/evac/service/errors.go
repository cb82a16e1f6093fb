package service

import "errors"

// Command-boundary errors. They are returned to the menu and the HTTP API
// and never reach a remote role.
var (
	ErrUnknownBuilding = errors.New("unknown building")
	ErrInvalidAction   = errors.New("action must be enter or exit")
	ErrNoSimulator     = errors.New("no simulator process available")
	ErrResponseTimeout = errors.New("timed out waiting for a response")
	ErrNotStarted      = errors.New("coordinator not started")
	ErrCoordinatorDone = errors.New("coordinator has quit")
	ErrSinkStopped     = errors.New("log sink stopped")
)
