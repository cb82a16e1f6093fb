package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/BrandonDHaskell/Portunus/evacsim/internal/transport"
)

var ErrInvalidTopology = errors.New("invalid topology")

// Topology describes a multi-process run over the grpc transport.
//
//	buildings: 3
//	simulators: 2
//	processes:
//	  - {rank: 0, addr: "10.0.0.1:7000"}
//	  - {rank: 1, addr: "10.0.0.2:7000"}
type Topology struct {
	Buildings  int       `yaml:"buildings"`
	Simulators int       `yaml:"simulators"`
	Processes  []Process `yaml:"processes"`
}

type Process struct {
	Rank int    `yaml:"rank"`
	Addr string `yaml:"addr"`
}

// LoadTopology loads and validates a topology from a YAML file.
func LoadTopology(path string) (Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Topology{}, fmt.Errorf("read topology: %w", err)
	}

	var t Topology
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Topology{}, fmt.Errorf("parse topology: %w", err)
	}
	if err := t.Validate(); err != nil {
		return Topology{}, err
	}
	return t, nil
}

// Validate checks that ranks are 0..n-1 with one address each.
func (t Topology) Validate() error {
	if t.Buildings < 1 {
		return fmt.Errorf("%w: at least one building is required", ErrInvalidTopology)
	}
	if t.Simulators < 0 {
		return fmt.Errorf("%w: negative simulator count", ErrInvalidTopology)
	}

	seen := make(map[int]bool, len(t.Processes))
	for _, p := range t.Processes {
		switch {
		case p.Rank < 0 || p.Rank >= len(t.Processes):
			return fmt.Errorf("%w: rank %d out of range", ErrInvalidTopology, p.Rank)
		case seen[p.Rank]:
			return fmt.Errorf("%w: rank %d listed twice", ErrInvalidTopology, p.Rank)
		case strings.TrimSpace(p.Addr) == "":
			return fmt.Errorf("%w: rank %d has no address", ErrInvalidTopology, p.Rank)
		}
		seen[p.Rank] = true
	}
	return nil
}

// Peers maps every rank to its listen address.
func (t Topology) Peers() map[transport.Rank]string {
	peers := make(map[transport.Rank]string, len(t.Processes))
	for _, p := range t.Processes {
		peers[transport.Rank(p.Rank)] = p.Addr
	}
	return peers
}
