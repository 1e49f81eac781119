package config

import "time"

// Config holds runtime settings for the shelfsync CLI.
//
// Fields:
//   - ServerEndpointAddr: host:port of the catalog gRPC endpoint.
//   - OnlineCheckInterval: how often the client probes server reachability.
//   - DatabasePath: SQLite file holding cursors, snapshots and the session.
//   - RevalidateInterval: period of the background refresh of all collections.
//   - SnapshotTTL: age after which a snapshot is served but refreshed.
//   - SnapshotSealKey: passphrase sealing snapshots at rest; empty disables.
type Config struct {
	ServerEndpointAddr  string
	OnlineCheckInterval time.Duration
	DatabasePath        string
	RevalidateInterval  time.Duration
	SnapshotTTL         time.Duration
	SnapshotSealKey     string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.OnlineCheckInterval = 3 * time.Second
	c.DatabasePath = "shelfsync.db"
	c.RevalidateInterval = time.Minute
	c.SnapshotTTL = 24 * time.Hour
	c.SnapshotSealKey = ""
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
