// Package db opens the catalog's Postgres database, applies the embedded
// migrations and hands out repositories bound to the connection.
package db

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/shelfsync/internal/server/catalog"
)

type RepositoryManager interface {
	RunMigrations(context.Context) error
	Conn() *sql.DB
	Catalog() catalog.Repository
	Close() error
}
