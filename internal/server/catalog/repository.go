package catalog

import (
	"context"
	"time"

	"github.com/dmitrijs2005/shelfsync/internal/record"
)

// Repository persists catalog rows.
type Repository interface {
	// Since returns the rows of collection updated strictly after since,
	// oldest first. Tombstones are included.
	Since(ctx context.Context, userID, collection string, since time.Time) ([]record.Row, error)
	// Upsert stores row and returns the UpdatedAt it was stored under. An
	// implementation may replace row.UpdatedAt with its own stamp; stamps
	// within one user's collection must follow commit order.
	Upsert(ctx context.Context, userID, collection string, row record.Row) (time.Time, error)
}
