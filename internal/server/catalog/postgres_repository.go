package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/shelfsync/internal/dbx"
	"github.com/dmitrijs2005/shelfsync/internal/record"
)

type PostgresRepository struct {
	db dbx.DB
}

func NewPostgresRepository(db dbx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Since(ctx context.Context, userID, collection string, since time.Time) ([]record.Row, error) {

	query := `SELECT id, title, data, deleted, updated_at
		FROM catalog_rows
		WHERE user_id = $1 AND collection = $2 AND updated_at > $3
		ORDER BY updated_at, id`

	rows, err := r.db.QueryContext(ctx, query, userID, collection, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]record.Row, 0)
	for rows.Next() {
		var (
			row  record.Row
			data []byte
		)
		if err := rows.Scan(&row.ID, &row.Title, &data, &row.Deleted, &row.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		if len(data) > 0 {
			row.Data = json.RawMessage(data)
		}
		row.UpdatedAt = row.UpdatedAt.UTC()
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return result, nil
}

// Upsert stamps row with clock_timestamp() while holding a transaction-scoped
// advisory lock on (user, collection). Stamps within a collection therefore
// follow commit order. row.UpdatedAt is ignored.
func (r *PostgresRepository) Upsert(ctx context.Context, userID, collection string, row record.Row) (time.Time, error) {

	lock := `SELECT pg_advisory_xact_lock(hashtext($1), hashtext($2))`

	query := `INSERT INTO catalog_rows (user_id, collection, id, title, data, deleted, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, clock_timestamp())
		ON CONFLICT (user_id, collection, id) DO UPDATE SET
			title = EXCLUDED.title,
			data = EXCLUDED.data,
			deleted = EXCLUDED.deleted,
			updated_at = EXCLUDED.updated_at
		RETURNING updated_at`

	var stored time.Time
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, lock, userID, collection); err != nil {
			return fmt.Errorf("lock error: %w", err)
		}
		err := tx.QueryRowContext(ctx, query,
			userID, collection, row.ID, row.Title, jsonArg(row.Data), row.Deleted).Scan(&stored)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		return nil
	})
	if err != nil {
		return time.Time{}, err
	}

	return stored.UTC(), nil
}

// jsonArg passes a payload to a JSONB column as text, or NULL when empty.
func jsonArg(data json.RawMessage) any {
	if len(data) == 0 {
		return nil
	}
	return string(data)
}
