package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/BrandonDHaskell/Portunus/evacsim/internal/evac/roles"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/evac/types"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/transport"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/wire"
)

// Result is the outcome of one simulated swipe.
type Result struct {
	Command types.SimCommand
	Outcome types.Outcome
	Err     error
}

// SimulatorDeps wires a Simulator to its process.
type SimulatorDeps struct {
	Transport transport.Transport
	Registry  roles.Registry
	Logger    *log.Logger

	// ResponseTimeout bounds the wait for an access response. Zero waits
	// forever.
	ResponseTimeout time.Duration

	// OnResult, if set, is called after every swipe.
	OnResult func(Result)
}

// Simulator stands in for a badge reader. The first simulator is driven
// by the coordinator's SIM_COMMANDs; the others run a fixed script.
type Simulator struct {
	tr       transport.Transport
	reg      roles.Registry
	logger   *log.Logger
	timeout  time.Duration
	onResult func(Result)
	index    int
}

func NewSimulator(d SimulatorDeps) (*Simulator, error) {
	role, index, ok := d.Registry.RoleOf(d.Transport.Rank())
	if !ok || role != types.RoleSimulator {
		return nil, fmt.Errorf("rank %d is not a simulator: %w", d.Transport.Rank(), roles.ErrRoleMismatch)
	}
	return &Simulator{
		tr:       d.Transport,
		reg:      d.Registry,
		logger:   d.Logger,
		timeout:  d.ResponseTimeout,
		onResult: d.OnResult,
		index:    index,
	}, nil
}

// Index is the zero-based simulator index.
func (s *Simulator) Index() int { return s.index }

// RunDirected checks in and then executes SIM_COMMANDs from the
// coordinator until ctx is cancelled or the transport closes.
func (s *Simulator) RunDirected(ctx context.Context) error {
	if err := roles.CheckIn(ctx, s.tr, s.reg); err != nil {
		return quiet(err)
	}
	for {
		msg, err := s.tr.Recv(ctx, s.reg.Coordinator(), transport.TagSimCommand)
		if err != nil {
			return quiet(err)
		}
		cmd, err := wire.DecodeSimCommand(msg.Payload)
		if err != nil {
			s.logger.Printf("[simulator %d] bad command: %v", s.index, err)
			continue
		}
		outcome, err := s.Request(ctx, cmd)
		if shuttingDown(err) {
			return nil
		}
		s.report(cmd, outcome, err)
	}
}

// RunScripted checks in, performs the scripted swipes in order, and
// returns. A nil script just checks in.
func (s *Simulator) RunScripted(ctx context.Context, script []types.SimCommand) error {
	if err := roles.CheckIn(ctx, s.tr, s.reg); err != nil {
		return quiet(err)
	}
	for _, cmd := range script {
		outcome, err := s.Request(ctx, cmd)
		if shuttingDown(err) {
			return nil
		}
		s.report(cmd, outcome, err)
	}
	return nil
}

// Request sends one access request to the target building and waits for
// its decision.
func (s *Simulator) Request(ctx context.Context, cmd types.SimCommand) (types.Outcome, error) {
	rank, ok := s.reg.BuildingRank(cmd.TargetBuilding)
	if !ok {
		return types.Denied, fmt.Errorf("building %d: %w", cmd.TargetBuilding, ErrUnknownBuilding)
	}

	payload := wire.EncodeAccessRequest(types.AccessRequest{BadgeID: cmd.BadgeID, Action: cmd.Action})
	if err := s.tr.Send(ctx, rank, transport.TagAccessRequest, payload); err != nil {
		return types.Denied, fmt.Errorf("access request: %w", err)
	}

	rctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	msg, err := s.tr.Recv(rctx, rank, transport.TagAccessResponse)
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return types.Denied, fmt.Errorf("access response from building %d: %w", cmd.TargetBuilding, ErrResponseTimeout)
		}
		return types.Denied, fmt.Errorf("access response from building %d: %w", cmd.TargetBuilding, err)
	}
	resp, err := wire.DecodeAccessResponse(msg.Payload)
	if err != nil {
		return types.Denied, err
	}
	return resp.Outcome, nil
}

func (s *Simulator) report(cmd types.SimCommand, outcome types.Outcome, err error) {
	if err != nil {
		s.logger.Printf("[simulator %d] badge %d %s building %d failed: %v",
			s.index, cmd.BadgeID, cmd.Action, cmd.TargetBuilding, err)
	} else {
		s.logger.Printf("[simulator %d] access %s for badge %d at building %d (%s)",
			s.index, outcome, cmd.BadgeID, cmd.TargetBuilding, cmd.Action)
	}
	if s.onResult != nil {
		s.onResult(Result{Command: cmd, Outcome: outcome, Err: err})
	}
}
