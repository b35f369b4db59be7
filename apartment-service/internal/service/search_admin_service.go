package service

import (
	"context"
	"errors"
	"strconv"

	"github.com/manyalawy/nawy/apartment-service/internal/audit"
	"github.com/manyalawy/nawy/apartment-service/internal/domain"
	"github.com/manyalawy/nawy/apartment-service/internal/indexer"
	"github.com/manyalawy/nawy/apartment-service/internal/search"
)

type searchAdminServiceImpl struct {
	index       search.Index
	coordinator *indexer.Coordinator
}

// NewSearchAdminService creates the index maintenance service.
func NewSearchAdminService(index search.Index, coordinator *indexer.Coordinator) SearchAdminService {
	return &searchAdminServiceImpl{
		index:       index,
		coordinator: coordinator,
	}
}

// Reindex rebuilds the whole index from the database.
func (s *searchAdminServiceImpl) Reindex(ctx context.Context, userID string) (*domain.ReindexResult, error) {
	res, err := s.coordinator.FullReindex(ctx)
	switch {
	case errors.Is(err, search.ErrUnavailable):
		return nil, ErrSearchUnavailable
	case errors.Is(err, indexer.ErrReindexRunning):
		return nil, ErrReindexRunning
	case err != nil:
		return nil, err
	}

	audit.LogWithDetail(ctx, audit.ActionReindex, userID, s.index.Name(), strconv.Itoa(res.Indexed), "search index rebuilt")
	return &res, nil
}

// Status reports availability and index statistics.
func (s *searchAdminServiceImpl) Status(ctx context.Context) *SearchStatus {
	return &SearchStatus{
		Available: s.index.IsAvailable(),
		Engine:    s.index.Name(),
		Stats:     s.index.Stats(ctx),
	}
}

// Health reports the availability flag keyed by engine name.
func (s *searchAdminServiceImpl) Health() map[string]bool {
	return map[string]bool{s.index.Name(): s.index.IsAvailable()}
}
