package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/BrandonDHaskell/Portunus/evacsim/internal/config"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/evac/types"
)

// ── Environment ──────────────────────────────────────────────────────────────

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{
		"EVACSIM_BUILDINGS", "EVACSIM_SIMULATORS", "EVACSIM_PROCESSES", "EVACSIM_LOG_BACKEND",
		"EVACSIM_TRANSPORT", "EVACSIM_HTTP_ADDR", "EVACSIM_RESPONSE_TIMEOUT_MS", "EVACSIM_SCRIPTS",
	} {
		t.Setenv(k, "")
	}

	cfg := config.FromEnv()
	if cfg.Buildings != 3 || cfg.Simulators != 2 {
		t.Errorf("expected 3 buildings and 2 simulators, got %d and %d", cfg.Buildings, cfg.Simulators)
	}
	if cfg.ProcessCount() != 6 {
		t.Errorf("expected 6 processes, got %d", cfg.ProcessCount())
	}
	if cfg.LogBackend != config.BackendFile || cfg.Transport != config.TransportLocal {
		t.Errorf("unexpected backend/transport %q/%q", cfg.LogBackend, cfg.Transport)
	}
	if cfg.HTTPAddr != "" {
		t.Errorf("expected operator API off, got %q", cfg.HTTPAddr)
	}
	if cfg.ResponseTimeout != 0 {
		t.Errorf("expected no timeout, got %v", cfg.ResponseTimeout)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("EVACSIM_BUILDINGS", "5")
	t.Setenv("EVACSIM_PROCESSES", "10")
	t.Setenv("EVACSIM_LOG_BACKEND", "SQLite")
	t.Setenv("EVACSIM_RESPONSE_TIMEOUT_MS", "250")
	t.Setenv("EVACSIM_SCRIPTS", "101:1:enter, 102:2:2")

	cfg := config.FromEnv()
	if cfg.Buildings != 5 || cfg.ProcessCount() != 10 {
		t.Errorf("unexpected counts %d/%d", cfg.Buildings, cfg.ProcessCount())
	}
	if cfg.LogBackend != config.BackendSQLite {
		t.Errorf("expected sqlite backend, got %q", cfg.LogBackend)
	}
	if cfg.ResponseTimeout != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %v", cfg.ResponseTimeout)
	}
	if len(cfg.Scripts) != 2 {
		t.Errorf("expected 2 scripts, got %q", cfg.Scripts)
	}
}

func TestFromEnv_FailSoft(t *testing.T) {
	t.Setenv("EVACSIM_LOG_BACKEND", "postgres")
	t.Setenv("EVACSIM_TRANSPORT", "carrier-pigeon")
	t.Setenv("EVACSIM_BUILDINGS", "-2")

	cfg := config.FromEnv()
	if cfg.LogBackend != config.BackendFile {
		t.Errorf("expected fallback to file, got %q", cfg.LogBackend)
	}
	if cfg.Transport != config.TransportLocal {
		t.Errorf("expected fallback to local, got %q", cfg.Transport)
	}
	if cfg.Buildings != 3 {
		t.Errorf("expected fallback to 3 buildings, got %d", cfg.Buildings)
	}
}

// ── Scripts ──────────────────────────────────────────────────────────────────

func TestScriptCommands(t *testing.T) {
	cfg := config.Config{Scripts: []string{"101:1:enter", "102:3:EXIT"}}

	cmds, err := cfg.ScriptCommands()
	if err != nil {
		t.Fatalf("ScriptCommands: %v", err)
	}
	want := []types.SimCommand{
		{BadgeID: 101, TargetBuilding: 1, Action: types.ActionEnter},
		{BadgeID: 102, TargetBuilding: 3, Action: types.ActionExit},
	}
	if len(cmds) != len(want) {
		t.Fatalf("expected %d commands, got %d", len(want), len(cmds))
	}
	for i := range want {
		if cmds[i] != want[i] {
			t.Errorf("command %d: expected %+v, got %+v", i, want[i], cmds[i])
		}
	}
}

func TestScriptCommands_Malformed(t *testing.T) {
	for _, s := range []string{"101:1", "x:1:enter", "101:y:enter", "101:1:jump"} {
		cfg := config.Config{Scripts: []string{s}}
		if _, err := cfg.ScriptCommands(); err == nil {
			t.Errorf("%q: expected an error", s)
		}
	}
}

// ── Flags ────────────────────────────────────────────────────────────────────

func TestBindFlags_OverrideEnv(t *testing.T) {
	cfg := config.Config{Buildings: 3, Simulators: 2, LogBackend: config.BackendFile}
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.BindFlags(fs, &cfg)

	err := fs.Parse([]string{"-b", "4", "--log-backend", "memory", "--response-timeout", "2s", "--script", "101:1:enter"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Buildings != 4 {
		t.Errorf("expected 4 buildings, got %d", cfg.Buildings)
	}
	if cfg.Simulators != 2 {
		t.Errorf("unset flag must keep the env value, got %d", cfg.Simulators)
	}
	if cfg.LogBackend != config.BackendMemory {
		t.Errorf("expected memory backend, got %q", cfg.LogBackend)
	}
	if cfg.ResponseTimeout != 2*time.Second {
		t.Errorf("expected 2s, got %v", cfg.ResponseTimeout)
	}
	if len(cfg.Scripts) != 1 || cfg.Scripts[0] != "101:1:enter" {
		t.Errorf("unexpected scripts %q", cfg.Scripts)
	}
}

// ── Topology ─────────────────────────────────────────────────────────────────

func writeTopology(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "topology.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadTopology(t *testing.T) {
	path := writeTopology(t, `
buildings: 1
simulators: 1
processes:
  - rank: 0
    addr: "127.0.0.1:7000"
  - rank: 1
    addr: "127.0.0.1:7001"
  - rank: 2
    addr: "127.0.0.1:7002"
`)

	topo, err := config.LoadTopology(path)
	if err != nil {
		t.Fatalf("LoadTopology: %v", err)
	}
	if topo.Buildings != 1 || topo.Simulators != 1 {
		t.Errorf("unexpected counts %+v", topo)
	}
	peers := topo.Peers()
	if len(peers) != 3 || peers[2] != "127.0.0.1:7002" {
		t.Errorf("unexpected peers %v", peers)
	}
}

func TestLoadTopology_Invalid(t *testing.T) {
	cases := map[string]string{
		"no buildings": "buildings: 0\nprocesses: [{rank: 0, addr: a}]\n",
		"rank gap":     "buildings: 1\nprocesses: [{rank: 0, addr: a}, {rank: 2, addr: b}]\n",
		"duplicate":    "buildings: 1\nprocesses: [{rank: 0, addr: a}, {rank: 0, addr: b}]\n",
		"no addr":      "buildings: 1\nprocesses: [{rank: 0, addr: a}, {rank: 1}]\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := config.LoadTopology(writeTopology(t, body))
			if !errors.Is(err, config.ErrInvalidTopology) {
				t.Errorf("expected ErrInvalidTopology, got %v", err)
			}
		})
	}
}

func TestLoadTopology_MissingFile(t *testing.T) {
	if _, err := config.LoadTopology(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
