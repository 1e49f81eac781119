package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/shelfsync/internal/common"
	"github.com/dmitrijs2005/shelfsync/internal/logging"
	"github.com/dmitrijs2005/shelfsync/internal/record"
)

// Service implements pull and push over a Repository.
type Service struct {
	repo      Repository
	presigner Presigner
	logger    logging.Logger
	now       func() time.Time
}

// NewService builds a Service. presigner may be nil, in which case image
// rows are returned without URLs.
func NewService(repo Repository, presigner Presigner, logger logging.Logger) *Service {
	return &Service{
		repo:      repo,
		presigner: presigner,
		logger:    logging.OrNop(logger).With("module", "catalog_service"),
		now:       time.Now,
	}
}

// stamp returns the server time at the precision PostgreSQL stores.
func (s *Service) stamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// Pull returns the rows of collection changed after since together with the
// server time of the answer.
func (s *Service) Pull(ctx context.Context, userID, collection string, since time.Time) ([]record.Row, time.Time, error) {
	if !common.IsKnownCollection(collection) {
		return nil, time.Time{}, fmt.Errorf("%w: %q", common.ErrUnknownCollection, collection)
	}

	serverTime := s.stamp()

	rows, err := s.repo.Since(ctx, userID, collection, since)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("pull %s: %w", collection, err)
	}

	if collection == common.CollectionImages {
		for i := range rows {
			rows[i] = s.decorateImage(ctx, rows[i])
		}
	}

	return rows, serverTime, nil
}

// Push stores row with a fresh server UpdatedAt and returns the stored row.
func (s *Service) Push(ctx context.Context, userID, collection string, row record.Row) (record.Row, error) {
	if !common.IsKnownCollection(collection) {
		return record.Row{}, fmt.Errorf("%w: %q", common.ErrUnknownCollection, collection)
	}
	if row.ID == "" {
		return record.Row{}, fmt.Errorf("%w: empty id", common.ErrInvalidRow)
	}
	if len(row.Data) > 0 && !json.Valid(row.Data) {
		return record.Row{}, fmt.Errorf("%w: payload is not JSON", common.ErrInvalidRow)
	}

	row = row.Clone()
	row.UpdatedAt = s.stamp()
	if row.Deleted {
		row.Data = nil
	}

	stored, err := s.repo.Upsert(ctx, userID, collection, row)
	if err != nil {
		return record.Row{}, fmt.Errorf("push %s/%s: %w", collection, row.ID, err)
	}
	row.UpdatedAt = stored.UTC().Truncate(time.Microsecond)

	s.logger.Debug(ctx, "row stored", "collection", collection, "id", row.ID, "deleted", row.Deleted)

	if collection == common.CollectionImages {
		row = s.decorateImage(ctx, row)
	}
	return row, nil
}

// decorateImage fills Image.URL with a presigned GET for its storage key.
// Rows it cannot decorate are returned unchanged.
func (s *Service) decorateImage(ctx context.Context, row record.Row) record.Row {
	if s.presigner == nil || row.Deleted {
		return row
	}

	img, err := record.Unwrap[record.Image](row)
	if err != nil || img.StorageKey == "" {
		return row
	}

	url, err := s.presigner.PresignGet(ctx, img.StorageKey)
	if err != nil {
		s.logger.Warn(ctx, "presign failed", "id", row.ID, "error", err)
		return row
	}
	img.URL = url

	wrapped, err := record.Wrap(row.ID, row.Title, row.UpdatedAt, img)
	if err != nil {
		return row
	}
	row.Data = wrapped.Data
	return row
}
