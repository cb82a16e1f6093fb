package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/BrandonDHaskell/Portunus/evacsim/internal/config"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/db"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/evac/roles"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/evac/roster"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/evac/service"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/evac/store"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/evac/store/file"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/evac/store/memory"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/evac/store/sqlite"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/evac/types"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/httpapi"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/metrics"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/transport"
)

// process holds what every role in this OS process shares.
type process struct {
	cfg     config.Config
	logger  *log.Logger
	metrics *metrics.Metrics
	in      io.Reader
	out     io.Writer
}

// runRole plays whatever role the registry assigns to tr's rank until
// the run ends.
func (p *process) runRole(ctx context.Context, tr transport.Transport, reg roles.Registry) error {
	role, index, ok := reg.RoleOf(tr.Rank())
	if !ok {
		// Extra ranks take part in nothing.
		<-ctx.Done()
		return nil
	}

	switch role {
	case types.RoleCoordinator:
		return p.runCoordinator(ctx, tr, reg)

	case types.RoleBuilding:
		ctl, err := service.NewBuildingController(service.BuildingDeps{
			Transport: tr,
			Registry:  reg,
			Logger:    p.logger,
			Metrics:   p.metrics,
		})
		if err != nil {
			return err
		}
		return ctl.Run(ctx)

	default:
		sim, err := service.NewSimulator(service.SimulatorDeps{
			Transport:       tr,
			Registry:        reg,
			Logger:          p.logger,
			ResponseTimeout: p.cfg.ResponseTimeout,
		})
		if err != nil {
			return err
		}
		script, err := p.script(index)
		if err != nil {
			return err
		}
		if script == nil {
			return sim.RunDirected(ctx)
		}
		return sim.RunScripted(ctx, script)
	}
}

// script returns the scripted swipe for simulator index, or nil when the
// simulator takes commands from the coordinator instead.
func (p *process) script(index int) ([]types.SimCommand, error) {
	if index == 0 {
		return nil, nil
	}
	cmds, err := p.cfg.ScriptCommands()
	if err != nil {
		return nil, err
	}
	if index-1 >= len(cmds) {
		return nil, nil
	}
	return cmds[index-1 : index], nil
}

func (p *process) runCoordinator(ctx context.Context, tr transport.Transport, reg roles.Registry) error {
	badges, err := roster.Load(p.cfg.RosterPath)
	if err != nil {
		reportRoster(p.logger, err)
	}
	p.logger.Printf("[coordinator] %d badges loaded from %s", len(badges), p.cfg.RosterPath)

	st, closeStore, err := p.openLogStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	coord := service.NewCoordinator(service.CoordinatorDeps{
		Transport:       tr,
		Registry:        reg,
		Store:           st,
		Logger:          p.logger,
		Metrics:         p.metrics,
		ResponseTimeout: p.cfg.ResponseTimeout,
	})
	if err := coord.Start(ctx, badges); err != nil {
		return err
	}
	defer coord.Quit()

	if p.cfg.HTTPAddr != "" {
		srv := httpapi.NewServer(httpapi.Dependencies{
			Logger:   p.logger,
			Addr:     p.cfg.HTTPAddr,
			Commands: coord,
			Metrics:  p.metrics,
		})
		go func() {
			p.logger.Printf("listening on %s", p.cfg.HTTPAddr)
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				p.logger.Printf("server error: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	m := newMenu(coord, reg.NumBuildings(), p.in, p.out)
	return m.run(ctx)
}

// openLogStore builds the configured event log backend. The returned
// close function releases it.
func (p *process) openLogStore(ctx context.Context) (store.LogStore, func(), error) {
	switch p.cfg.LogBackend {
	case config.BackendMemory:
		p.logger.Printf("[coordinator] event log kept in memory")
		return memory.New(), func() {}, nil

	case config.BackendSQLite:
		conn, err := db.Open(ctx, db.Config{Path: p.cfg.DBPath})
		if err != nil {
			return nil, nil, fmt.Errorf("open event log: %w", err)
		}
		writer := db.NewWorker(conn)
		p.logger.Printf("[coordinator] event log in %s", p.cfg.DBPath)
		return sqlite.NewLogStore(conn, writer), func() {
			writer.Close()
			_ = conn.Close()
		}, nil

	default:
		p.logger.Printf("[coordinator] event log in %s", p.cfg.LogPath)
		return file.New(p.cfg.LogPath), func() {}, nil
	}
}

// reportRoster logs each rejected roster line on its own.
func reportRoster(logger *log.Logger, err error) {
	var joined interface{ Unwrap() []error }
	if !errors.As(err, &joined) {
		logger.Printf("[coordinator] roster: %v", err)
		return
	}
	for _, e := range joined.Unwrap() {
		logger.Printf("[coordinator] roster: %v", e)
	}
}
