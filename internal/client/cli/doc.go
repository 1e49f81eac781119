// Package cli provides the interactive shelfsync command-line client.
//
// It wires configuration, the local SQLite replica, the catalog transport
// and the sync services behind a small REPL. A saved session is resumed on
// start, a background watcher tracks whether the server is reachable, and
// while signed in the replica is revalidated periodically.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App, StartOnlineStatusWatcher, and runREPL for details.
package cli
