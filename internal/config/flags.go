package config

import "github.com/spf13/pflag"

// BindFlags registers command-line overrides for cfg on fs. The current
// values of cfg become the flag defaults, so environment settings apply
// unless a flag is given.
func BindFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.IntVarP(&cfg.Buildings, "buildings", "b", cfg.Buildings, "number of buildings")
	fs.IntVarP(&cfg.Simulators, "simulators", "s", cfg.Simulators, "number of access simulators")
	fs.IntVarP(&cfg.Processes, "processes", "n", cfg.Processes, "process count (0 = buildings+simulators+1)")
	fs.StringVar(&cfg.RosterPath, "roster", cfg.RosterPath, "badge roster file")
	fs.StringVar(&cfg.LogBackend, "log-backend", cfg.LogBackend, "event log backend: file, sqlite or memory")
	fs.StringVar(&cfg.LogPath, "log-path", cfg.LogPath, "event log file for the file backend")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "database file for the sqlite backend")
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "operator API listen address (empty = off)")
	fs.StringVar(&cfg.Transport, "transport", cfg.Transport, "message transport: local or grpc")
	fs.IntVar(&cfg.Rank, "rank", cfg.Rank, "this process's rank (grpc transport)")
	fs.StringVar(&cfg.TopologyPath, "topology", cfg.TopologyPath, "YAML topology file (grpc transport)")
	fs.DurationVar(&cfg.ResponseTimeout, "response-timeout", cfg.ResponseTimeout, "bound on reply waits (0 = forever)")
	fs.StringSliceVar(&cfg.Scripts, "script", cfg.Scripts, "badge:building:action for simulator 1, 2, ... (repeatable)")
}
