package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/manyalawy/nawy/apartment-service/internal/domain"
	"github.com/manyalawy/nawy/apartment-service/internal/metrics"
	"github.com/manyalawy/nawy/apartment-service/internal/repository"
	"github.com/manyalawy/nawy/apartment-service/internal/search"
	"github.com/manyalawy/nawy/pkg/log"
)

// EngineDatabase is the default name of the database path in list responses.
const EngineDatabase = "database"

// Path is the backend a list request is served from.
type Path int

const (
	PathRecordStore Path = iota
	PathIndex
)

func (p Path) String() string {
	if p == PathIndex {
		return metrics.PathIndex
	}
	return metrics.PathRecordStore
}

// ChoosePath returns PathIndex only when the filter carries a free-text term
// and the index is available.
func ChoosePath(filter domain.ApartmentFilter, indexAvailable bool) Path {
	if filter.Term() != "" && indexAvailable {
		return PathIndex
	}
	return PathRecordStore
}

type apartmentSearchServiceImpl struct {
	repo            repository.ApartmentRepository
	index           search.Index
	metrics         *metrics.Registry
	recordStoreName string
}

// SearchOption configures the apartment query router.
type SearchOption func(*apartmentSearchServiceImpl)

// WithRecordStoreName sets the searchEngine value of pages served from the
// database. Empty keeps EngineDatabase.
func WithRecordStoreName(name string) SearchOption {
	return func(s *apartmentSearchServiceImpl) {
		if name != "" {
			s.recordStoreName = name
		}
	}
}

// NewApartmentSearchService creates the apartment query router.
func NewApartmentSearchService(repo repository.ApartmentRepository, index search.Index, m *metrics.Registry, opts ...SearchOption) ApartmentSearchService {
	s := &apartmentSearchServiceImpl{
		repo:            repo,
		index:           index,
		metrics:         m,
		recordStoreName: EngineDatabase,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search serves one page of apartments. Index failures fall back to the
// database; only database failures are returned.
func (s *apartmentSearchServiceImpl) Search(ctx context.Context, filter domain.ApartmentFilter) (*domain.ApartmentPage, error) {
	filter.Normalize()
	start := time.Now()

	if ChoosePath(filter, s.index.IsAvailable()) == PathIndex {
		page, err := s.searchIndex(ctx, filter)
		if err == nil {
			s.observe(PathIndex, start)
			return page, nil
		}

		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldSearchEngine, s.index.Name()).Msg("search index query failed, falling back to database")
		if s.metrics != nil {
			s.metrics.Fallbacks.Inc()
		}
	}

	page, err := s.searchRecordStore(ctx, filter)
	if err != nil {
		return nil, err
	}
	s.observe(PathRecordStore, start)
	return page, nil
}

func (s *apartmentSearchServiceImpl) searchIndex(ctx context.Context, filter domain.ApartmentFilter) (*domain.ApartmentPage, error) {
	res, err := s.index.Query(ctx, search.Query{
		Text:    filter.Term(),
		Filters: indexFilters(filter),
		Sort:    []search.Sort{{Field: search.AttrCreatedAt, Desc: true}},
		Offset:  filter.Offset(),
		Limit:   filter.Limit,
	})
	if err != nil {
		return nil, err
	}

	page := &domain.ApartmentPage{
		Data:         []domain.ApartmentResponse{},
		Meta:         domain.NewPageMeta(res.EstimatedTotal, filter.Page, filter.Limit),
		SearchEngine: s.index.Name(),
	}
	if len(res.IDs) == 0 {
		return page, nil
	}

	apartments, err := s.repo.FindByIDs(ctx, res.IDs)
	if err != nil {
		return nil, fmt.Errorf("load index hits: %w", err)
	}

	byID := make(map[string]*domain.Apartment, len(apartments))
	for i := range apartments {
		byID[apartments[i].ID] = &apartments[i]
	}
	for _, id := range res.IDs {
		apt, ok := byID[id]
		if !ok {
			// Deleted since it was indexed.
			continue
		}
		page.Data = append(page.Data, apt.ToResponse())
	}
	return page, nil
}

func (s *apartmentSearchServiceImpl) searchRecordStore(ctx context.Context, filter domain.ApartmentFilter) (*domain.ApartmentPage, error) {
	var (
		total      int64
		apartments []domain.Apartment
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		total, err = s.repo.Count(gCtx, filter)
		return err
	})

	g.Go(func() error {
		var err error
		apartments, err = s.repo.Find(gCtx, filter)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &domain.ApartmentPage{
		Data:         domain.ToResponses(apartments),
		Meta:         domain.NewPageMeta(total, filter.Page, filter.Limit),
		SearchEngine: s.recordStoreName,
	}, nil
}

func (s *apartmentSearchServiceImpl) observe(path Path, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.Queries.WithLabelValues(path.String()).Inc()
	s.metrics.QueryLatencySec.WithLabelValues(path.String()).Observe(time.Since(start).Seconds())
}

// indexFilters translates the structural part of a filter into index filter
// expressions.
func indexFilters(f domain.ApartmentFilter) []search.Filter {
	var filters []search.Filter
	if f.ProjectID != "" {
		filters = append(filters, search.Eq(search.AttrProjectID, f.ProjectID))
	}
	if f.Bedrooms != nil {
		filters = append(filters, search.Eq(search.AttrBedrooms, *f.Bedrooms))
	}
	if f.MinPrice != nil {
		filters = append(filters, search.Gte(search.AttrPrice, *f.MinPrice))
	}
	if f.MaxPrice != nil {
		filters = append(filters, search.Lte(search.AttrPrice, *f.MaxPrice))
	}
	if f.Status != "" {
		filters = append(filters, search.Eq(search.AttrStatus, string(f.Status)))
	}
	return filters
}
