package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BrandonDHaskell/Portunus/evacsim/internal/evac/types"
)

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"

	TransportLocal = "local"
	TransportGRPC  = "grpc"
)

type Config struct {
	Buildings  int
	Simulators int
	Processes  int // 0 = exactly enough for the roles

	RosterPath string

	// Event log
	LogBackend string // "file" | "sqlite" | "memory"
	LogPath    string // file backend
	DBPath     string // sqlite backend, e.g. "./data/evacsim.db"

	HTTPAddr string // empty disables the operator API

	// Distribution
	Transport    string // "local" | "grpc"
	Rank         int    // this process's rank in grpc mode
	TopologyPath string

	ResponseTimeout time.Duration // 0 = wait forever
	Scripts         []string      // "badge:building:action", one per extra simulator
}

func FromEnv() Config {
	backend := strings.ToLower(getenvDefault("EVACSIM_LOG_BACKEND", BackendFile))
	switch backend {
	case BackendFile, BackendSQLite, BackendMemory:
	default:
		// fail-soft: treat unknown as file
		backend = BackendFile
	}

	tr := strings.ToLower(getenvDefault("EVACSIM_TRANSPORT", TransportLocal))
	if tr != TransportLocal && tr != TransportGRPC {
		tr = TransportLocal
	}

	timeoutMS := getenvInt("EVACSIM_RESPONSE_TIMEOUT_MS", 0)

	return Config{
		Buildings:  getenvInt("EVACSIM_BUILDINGS", 3),
		Simulators: getenvInt("EVACSIM_SIMULATORS", 2),
		Processes:  getenvInt("EVACSIM_PROCESSES", 0),

		RosterPath: getenvDefault("EVACSIM_ROSTER", "badges.txt"),

		LogBackend: backend,
		LogPath:    getenvDefault("EVACSIM_LOG_PATH", "log.txt"),
		DBPath:     getenvDefault("EVACSIM_DB_PATH", "./data/evacsim.db"),

		HTTPAddr: strings.TrimSpace(os.Getenv("EVACSIM_HTTP_ADDR")),

		Transport:    tr,
		Rank:         getenvInt("EVACSIM_RANK", 0),
		TopologyPath: strings.TrimSpace(os.Getenv("EVACSIM_TOPOLOGY")),

		ResponseTimeout: time.Duration(timeoutMS) * time.Millisecond,
		Scripts:         splitCSV(os.Getenv("EVACSIM_SCRIPTS")),
	}
}

// ProcessCount is the configured process count, or buildings+simulators+1
// when none was given.
func (c Config) ProcessCount() int {
	if c.Processes > 0 {
		return c.Processes
	}
	return c.Buildings + c.Simulators + 1
}

// ScriptCommands parses Scripts. Entry i drives simulator i+1.
func (c Config) ScriptCommands() ([]types.SimCommand, error) {
	out := make([]types.SimCommand, 0, len(c.Scripts))
	for _, s := range c.Scripts {
		cmd, err := parseScript(s)
		if err != nil {
			return nil, err
		}
		out = append(out, cmd)
	}
	return out, nil
}

func parseScript(s string) (types.SimCommand, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return types.SimCommand{}, fmt.Errorf("script %q: want badge:building:action", s)
	}
	badge, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return types.SimCommand{}, fmt.Errorf("script %q: badge: %w", s, err)
	}
	building, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return types.SimCommand{}, fmt.Errorf("script %q: building: %w", s, err)
	}
	action, err := types.ParseAction(strings.TrimSpace(parts[2]))
	if err != nil {
		return types.SimCommand{}, fmt.Errorf("script %q: %w", s, err)
	}
	return types.SimCommand{BadgeID: badge, TargetBuilding: building, Action: action}, nil
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func splitCSV(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
