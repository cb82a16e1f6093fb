package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/BrandonDHaskell/Portunus/evacsim/internal/evac/roles"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/evac/store"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/evac/types"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/metrics"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/transport"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/wire"
)

// CoordinatorDeps wires a Coordinator to its process.
type CoordinatorDeps struct {
	Transport transport.Transport
	Registry  roles.Registry
	Store     store.LogStore
	Logger    *log.Logger
	Metrics   *metrics.Metrics // optional

	// ResponseTimeout bounds the wait for a presence report. Zero waits
	// forever.
	ResponseTimeout time.Duration
}

// Coordinator is the rank-0 role: it distributes the roster, hosts the
// log sink, and carries out operator commands.
type Coordinator struct {
	tr      transport.Transport
	reg     roles.Registry
	sink    *LogSink
	logger  *log.Logger
	timeout time.Duration

	fireMu sync.Mutex  // one outstanding fire trigger at a time
	stale  map[int]int // abandoned presence reports per building, under fireMu

	mu      sync.Mutex
	started bool
	quit    bool
}

func NewCoordinator(d CoordinatorDeps) *Coordinator {
	return &Coordinator{
		tr:      d.Transport,
		reg:     d.Registry,
		sink:    NewLogSink(d.Transport, d.Store, d.Logger, d.Metrics),
		logger:  d.Logger,
		timeout: d.ResponseTimeout,
		stale:   make(map[int]int),
	}
}

// Start empties the event log, starts the sink, waits for every building
// and simulator to check in, and sends each building its roster copy.
// Commands are accepted once Start returns. ctx bounds the startup only;
// the sink keeps running until Quit.
func (c *Coordinator) Start(ctx context.Context, db types.BadgeDatabase) error {
	if c.tr.Rank() != c.reg.Coordinator() {
		return fmt.Errorf("rank %d cannot coordinate: %w", c.tr.Rank(), roles.ErrRoleMismatch)
	}

	c.sink.Start(context.WithoutCancel(ctx))

	if err := roles.AwaitCheckIns(ctx, c.tr, c.reg); err != nil {
		c.sink.Stop()
		return err
	}

	payload := wire.EncodeDBSync(db)
	for _, id := range c.reg.BuildingIDs() {
		rank, _ := c.reg.BuildingRank(id)
		if err := c.tr.Send(ctx, rank, transport.TagDBSync, payload); err != nil {
			c.sink.Stop()
			return fmt.Errorf("roster sync to building %d: %w", id, err)
		}
	}
	c.logger.Printf("[coordinator] roster of %d badges sent to %d buildings", len(db), c.reg.NumBuildings())

	c.mu.Lock()
	c.started = true
	c.mu.Unlock()
	return nil
}

// TriggerFire raises the alarm in building and returns the names of the
// people inside at that moment, in entry order.
func (c *Coordinator) TriggerFire(ctx context.Context, building int) (types.PresenceReport, error) {
	if err := c.ready(); err != nil {
		return types.PresenceReport{}, err
	}
	rank, ok := c.reg.BuildingRank(building)
	if !ok {
		return types.PresenceReport{}, fmt.Errorf("building %d: %w", building, ErrUnknownBuilding)
	}

	c.fireMu.Lock()
	defer c.fireMu.Unlock()

	payload := wire.EncodeFireTrigger(types.FireTrigger{BuildingID: building})
	if err := c.tr.Send(ctx, rank, transport.TagFireTrigger, payload); err != nil {
		return types.PresenceReport{}, fmt.Errorf("fire trigger to building %d: %w", building, err)
	}

	rctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	// Reports for earlier triggers that nobody waited for arrive first.
	for c.stale[building] > 0 {
		if _, err := c.tr.Recv(rctx, rank, transport.TagPresenceReport); err != nil {
			c.stale[building]++
			return types.PresenceReport{}, c.reportError(ctx, building, err)
		}
		c.stale[building]--
	}

	msg, err := c.tr.Recv(rctx, rank, transport.TagPresenceReport)
	if err != nil {
		c.stale[building]++
		return types.PresenceReport{}, c.reportError(ctx, building, err)
	}
	return wire.DecodePresenceReport(msg.Payload)
}

func (c *Coordinator) reportError(ctx context.Context, building int, err error) error {
	if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		err = ErrResponseTimeout
	}
	return fmt.Errorf("presence report from building %d: %w", building, err)
}

// SimulateAccess asks the first simulator to swipe badge at building. It
// returns once the command is sent; the outcome is reported by the
// simulator.
func (c *Coordinator) SimulateAccess(ctx context.Context, badge, building int, action types.Action) error {
	if err := c.ready(); err != nil {
		return err
	}
	if !action.Valid() {
		return fmt.Errorf("action %d: %w", int(action), ErrInvalidAction)
	}
	if _, ok := c.reg.BuildingRank(building); !ok {
		return fmt.Errorf("building %d: %w", building, ErrUnknownBuilding)
	}
	sim, ok := c.reg.SimulatorRank(0)
	if !ok {
		return ErrNoSimulator
	}

	payload := wire.EncodeSimCommand(types.SimCommand{BadgeID: badge, TargetBuilding: building, Action: action})
	if err := c.tr.Send(ctx, sim, transport.TagSimCommand, payload); err != nil {
		return fmt.Errorf("sim command: %w", err)
	}
	return nil
}

// Logs returns the event log in append order.
func (c *Coordinator) Logs(ctx context.Context) ([]string, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	return c.sink.Lines(ctx)
}

// Quit ends the command loop and stops the log sink. Later commands fail
// with ErrCoordinatorDone. Quit is idempotent.
func (c *Coordinator) Quit() {
	c.mu.Lock()
	if c.quit {
		c.mu.Unlock()
		return
	}
	wasStarted := c.started
	c.quit = true
	c.mu.Unlock()

	if wasStarted {
		c.sink.Stop()
	}
	c.logger.Printf("[coordinator] quit")
}

// Buildings lists the valid building ids.
func (c *Coordinator) Buildings() []int { return c.reg.BuildingIDs() }

func (c *Coordinator) ready() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.quit:
		return ErrCoordinatorDone
	case !c.started:
		return ErrNotStarted
	}
	return nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
