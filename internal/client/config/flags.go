package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/shelfsync/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   address and port of the catalog server
//	-i int      online check interval (seconds)
//	-d string   path of the local SQLite database
//	-r int      background revalidation interval (seconds)
//	-t int      snapshot time-to-live (seconds)
//	-k string   snapshot sealing passphrase
//
// Only these flags are parsed (see flagx.FilterArgs); a malformed value
// panics.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-i", "-d", "-r", "-t", "-k"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	flagx.SecondsVar(fs, &cfg.OnlineCheckInterval, "i", "online check interval (in seconds)")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "local database path")
	flagx.SecondsVar(fs, &cfg.RevalidateInterval, "r", "revalidation interval (in seconds)")
	flagx.SecondsVar(fs, &cfg.SnapshotTTL, "t", "snapshot time-to-live (in seconds)")
	fs.StringVar(&cfg.SnapshotSealKey, "k", cfg.SnapshotSealKey, "snapshot sealing passphrase")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
