// Package config loads runtime configuration for the shelfsync CLI.
//
// Sources, in increasing precedence:
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. Command-line flags.
//
// Supported flags
//
//	-a string   address:port of the catalog gRPC endpoint
//	-i int      online status check interval (seconds)
//	-d string   local SQLite database path
//	-r int      background revalidation interval (seconds)
//	-t int      snapshot time-to-live (seconds)
//	-k string   snapshot sealing passphrase
//
// # JSON schema
//
// Intervals use timex.Duration, so values can be strings like "3s" or
// integer nanoseconds:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "online_check_interval": "3s",
//	  "database_path": "shelfsync.db",
//	  "revalidate_interval": "1m",
//	  "snapshot_ttl": "24h",
//	  "snapshot_seal_key": ""
//	}
package config
