package client

import (
	"context"
	"time"

	"github.com/dmitrijs2005/shelfsync/internal/record"
)

type Client interface {
	Close() error
	SetAccessToken(token string)
	WhoAmI(ctx context.Context) (string, error)
	Ping(ctx context.Context) error
	Pull(ctx context.Context, collection string, since time.Time) ([]record.Row, error)
	Push(ctx context.Context, collection string, row record.Row) (record.Row, error)
}
