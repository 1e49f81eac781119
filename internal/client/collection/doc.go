// Package collection keeps a client-side replica of one server-owned record
// set incrementally synchronized.
//
// A Synced collection stores its rows in the shared query cache, pulls only
// rows newer than its cursor, merges them last-write-wins by UpdatedAt and
// layers optimistic local writes on top until the server confirms them.
package collection
