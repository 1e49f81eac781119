// Package client contains client-side building blocks for shelfsync.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic API contract (see the Client interface) for the
//     catalog backend: WhoAmI, Ping, Pull and Push.
//  2. A concrete gRPC implementation (see GRPCClient) that manages a
//     connection, injects the access token via an interceptor and maps gRPC
//     status codes to sentinel errors.
//  3. Source, an adapter that exposes one catalog collection as a
//     collection.Source and collection.Mutator.
//  4. Local persistence bootstrap utilities (InitDatabase, RunMigrations),
//     wiring an SQLite database and applying embedded goose migrations.
//
// # Error Handling
//
// Common conditions are exposed as sentinel errors that callers can match
// with errors.Is: ErrUnavailable, ErrUnauthorized.
package client
