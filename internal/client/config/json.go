package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/shelfsync/internal/flagx"
	"github.com/dmitrijs2005/shelfsync/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "3s" or as integer nanoseconds.
type JsonConfig struct {
	ServerEndpointAddr  string         `json:"server_endpoint_addr"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	DatabasePath        string         `json:"database_path"`
	RevalidateInterval  timex.Duration `json:"revalidate_interval"`
	SnapshotTTL         timex.Duration `json:"snapshot_ttl"`
	SnapshotSealKey     string         `json:"snapshot_seal_key"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// -c or -config. Keys absent from the file leave the current values alone.
// Read or unmarshal errors panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerEndpointAddr != "" {
		cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	}
	if jc.OnlineCheckInterval.Duration > 0 {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.RevalidateInterval.Duration > 0 {
		cfg.RevalidateInterval = jc.RevalidateInterval.Duration
	}
	if jc.SnapshotTTL.Duration > 0 {
		cfg.SnapshotTTL = jc.SnapshotTTL.Duration
	}
	if jc.SnapshotSealKey != "" {
		cfg.SnapshotSealKey = jc.SnapshotSealKey
	}
}
