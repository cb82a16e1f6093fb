package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"

	"github.com/BrandonDHaskell/Portunus/evacsim/internal/config"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/evac/roles"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/metrics"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/transport"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/transport/grpcnet"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/transport/local"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "evacsim: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()

	fs := pflag.NewFlagSet("evacsim", pflag.ContinueOnError)
	config.BindFlags(fs, &cfg)
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	logger := log.New(os.Stdout, "evacsim ", log.LstdFlags|log.LUTC)
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := &process{cfg: cfg, logger: logger, metrics: metrics.New(), in: os.Stdin, out: os.Stdout}

	if cfg.Transport == config.TransportGRPC {
		return runDistributed(ctx, p)
	}
	return runLocal(ctx, p)
}

// runLocal plays every rank inside this process. The coordinator runs on
// the calling goroutine; the command loop decides when the run ends.
func runLocal(ctx context.Context, p *process) error {
	reg := roles.Layout(p.cfg.Buildings, p.cfg.Simulators)
	size := p.cfg.ProcessCount()
	if err := reg.Validate(size); err != nil {
		return err
	}

	net := local.NewNetwork(size)
	ctx, cancel := context.WithCancel(ctx)

	done := make(chan struct{})
	pending := 0
	for r := 1; r < size; r++ {
		pending++
		go func() {
			defer func() { done <- struct{}{} }()
			if err := p.runRole(ctx, net.Endpoint(transport.Rank(r)), reg); err != nil {
				p.logger.Printf("rank %d: %v", r, err)
			}
		}()
	}

	err := p.runRole(ctx, net.Endpoint(reg.Coordinator()), reg)

	cancel()
	net.Close()
	for ; pending > 0; pending-- {
		<-done
	}
	return err
}

// runDistributed plays the single rank given by --rank; the other ranks
// are separate processes listed in the topology file.
func runDistributed(ctx context.Context, p *process) error {
	if p.cfg.TopologyPath == "" {
		return errors.New("grpc transport requires --topology")
	}
	topo, err := config.LoadTopology(p.cfg.TopologyPath)
	if err != nil {
		return err
	}

	reg := roles.Layout(topo.Buildings, topo.Simulators)
	if err := reg.Validate(len(topo.Processes)); err != nil {
		return err
	}

	ep, err := grpcnet.New(grpcnet.Config{
		Rank:   transport.Rank(p.cfg.Rank),
		Peers:  topo.Peers(),
		Logger: p.logger,
	})
	if err != nil {
		return err
	}
	defer ep.Close()
	p.logger.Printf("rank %d listening on %s", p.cfg.Rank, ep.Addr())

	return p.runRole(ctx, ep, reg)
}
