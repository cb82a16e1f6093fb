package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/BrandonDHaskell/Portunus/evacsim/internal/evac/roles"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/evac/types"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/metrics"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/transport"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/wire"
)

// BuildingDeps wires a BuildingController to its process.
type BuildingDeps struct {
	Transport transport.Transport
	Registry  roles.Registry
	Logger    *log.Logger
	Metrics   *metrics.Metrics // optional
}

// BuildingController serves one building: it checks in, waits for the
// roster, then answers access requests and fire triggers until ctx ends
// or the transport closes.
type BuildingController struct {
	tr      transport.Transport
	reg     roles.Registry
	logger  *log.Logger
	metrics *metrics.Metrics
	id      int
}

func NewBuildingController(d BuildingDeps) (*BuildingController, error) {
	role, id, ok := d.Registry.RoleOf(d.Transport.Rank())
	if !ok || role != types.RoleBuilding {
		return nil, fmt.Errorf("rank %d is not a building: %w", d.Transport.Rank(), roles.ErrRoleMismatch)
	}
	return &BuildingController{
		tr:      d.Transport,
		reg:     d.Registry,
		logger:  d.Logger,
		metrics: d.Metrics,
		id:      id,
	}, nil
}

// ID is the building id this controller serves.
func (c *BuildingController) ID() int { return c.id }

// Run blocks until ctx is cancelled or the transport closes. Both are a
// normal shutdown and return nil.
func (c *BuildingController) Run(ctx context.Context) error {
	if err := roles.CheckIn(ctx, c.tr, c.reg); err != nil {
		return quiet(err)
	}

	msg, err := c.tr.Recv(ctx, c.reg.Coordinator(), transport.TagDBSync)
	if err != nil {
		return quiet(err)
	}
	db, err := wire.DecodeDBSync(msg.Payload)
	if err != nil {
		return fmt.Errorf("building %d: roster sync: %w", c.id, err)
	}
	b := NewBuilding(c.id, db)
	c.logger.Printf("[building %d] roster received (%d badges)", c.id, len(db))

	for {
		msg, err := c.tr.Recv(ctx, transport.AnySource, transport.AnyTag)
		if err != nil {
			return quiet(err)
		}
		if err := c.dispatch(ctx, b, msg); err != nil {
			return quiet(err)
		}
	}
}

func (c *BuildingController) dispatch(ctx context.Context, b *Building, msg transport.Message) error {
	switch msg.Tag {
	case transport.TagAccessRequest:
		req, err := wire.DecodeAccessRequest(msg.Payload)
		if err != nil {
			c.logger.Printf("[building %d] bad access request from rank %d: %v", c.id, msg.From, err)
			return c.respond(ctx, msg.From, types.Denied)
		}
		d, line := b.HandleAccess(req.BadgeID, req.Action)
		c.metrics.ObserveDecision(d)
		c.metrics.SetOccupancy(c.id, len(b.occupants))
		if err := c.appendLog(ctx, line); err != nil {
			return err
		}
		return c.respond(ctx, msg.From, d.Outcome)

	case transport.TagFireTrigger:
		ft, err := wire.DecodeFireTrigger(msg.Payload)
		if err != nil {
			c.logger.Printf("[building %d] bad fire trigger from rank %d: %v", c.id, msg.From, err)
			return nil
		}
		line, names, ok := b.HandleFire(ft.BuildingID)
		if !ok {
			c.logger.Printf("[building %d] ignoring fire trigger for building %d", c.id, ft.BuildingID)
			return nil
		}
		c.metrics.ObserveFire(c.id)
		if err := c.appendLog(ctx, line); err != nil {
			return err
		}
		report := wire.EncodePresenceReport(types.PresenceReport{Names: names})
		if err := c.tr.Send(ctx, msg.From, transport.TagPresenceReport, report); err != nil {
			return fmt.Errorf("building %d: presence report: %w", c.id, err)
		}
		return nil

	default:
		c.logger.Printf("[building %d] dropping %s from rank %d", c.id, msg.Tag, msg.From)
		return nil
	}
}

// appendLog goes out before the reply so the sink has the line queued
// ahead of anything the requester does next.
func (c *BuildingController) appendLog(ctx context.Context, line string) error {
	payload := wire.EncodeLogAppend(types.LogAppend{Text: line})
	if err := c.tr.Send(ctx, c.reg.Coordinator(), transport.TagLogAppend, payload); err != nil {
		return fmt.Errorf("building %d: log append: %w", c.id, err)
	}
	return nil
}

func (c *BuildingController) respond(ctx context.Context, to transport.Rank, o types.Outcome) error {
	payload := wire.EncodeAccessResponse(types.AccessResponse{Outcome: o})
	if err := c.tr.Send(ctx, to, transport.TagAccessResponse, payload); err != nil {
		return fmt.Errorf("building %d: access response: %w", c.id, err)
	}
	return nil
}

// quiet maps the errors of an orderly shutdown to nil.
func quiet(err error) error {
	if shuttingDown(err) {
		return nil
	}
	return err
}

func shuttingDown(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, transport.ErrClosed)
}
