package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/shelfsync/internal/server/catalog"
	"github.com/dmitrijs2005/shelfsync/internal/server/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// seams for tests
var (
	openDB  = func(dsn string) (*sql.DB, error) { return sql.Open("pgx", dsn) }
	migrate = func(ctx context.Context, db *sql.DB) error {
		goose.SetBaseFS(migrations.Migrations)
		if err := goose.SetDialect("postgres"); err != nil {
			return fmt.Errorf("failed to set goose dialect: %w", err)
		}
		return goose.UpContext(ctx, db, ".")
	}
)

type PostgresRepositoryManager struct {
	db      *sql.DB
	catalog catalog.Repository
}

func (m *PostgresRepositoryManager) Conn() *sql.DB {
	return m.db
}

func (m *PostgresRepositoryManager) Catalog() catalog.Repository {
	return m.catalog
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	return migrate(ctx, m.db)
}

func (m *PostgresRepositoryManager) Close() error {
	return m.db.Close()
}

// NewPostgresRepositoryManager connects to dsn and migrates the schema.
func NewPostgresRepositoryManager(ctx context.Context, dsn string) (*PostgresRepositoryManager, error) {

	db, err := openDB(dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	m := &PostgresRepositoryManager{
		db:      db,
		catalog: catalog.NewPostgresRepository(db),
	}

	if err := m.RunMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return m, nil
}
