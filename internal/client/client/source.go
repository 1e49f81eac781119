package client

import (
	"context"
	"time"

	"github.com/dmitrijs2005/shelfsync/internal/record"
)

// Source exposes one catalog collection through a Client. It satisfies
// collection.Source and collection.Mutator.
type Source struct {
	client     Client
	collection string
}

func NewSource(c Client, collection string) *Source {
	return &Source{client: c, collection: collection}
}

func (s *Source) Pull(ctx context.Context, since time.Time) ([]record.Row, error) {
	return s.client.Pull(ctx, s.collection, since)
}

func (s *Source) Push(ctx context.Context, row record.Row) (record.Row, error) {
	return s.client.Push(ctx, s.collection, row)
}
