package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/manyalawy/nawy/apartment-service/internal/audit"
	"github.com/manyalawy/nawy/apartment-service/internal/cache"
	"github.com/manyalawy/nawy/apartment-service/internal/domain"
	"github.com/manyalawy/nawy/apartment-service/internal/indexer"
	"github.com/manyalawy/nawy/apartment-service/internal/metrics"
	"github.com/manyalawy/nawy/apartment-service/internal/repository"
	"github.com/manyalawy/nawy/pkg/log"
	"github.com/manyalawy/nawy/pkg/storage"
)

// loadTimeout bounds a shared apartment load.
const loadTimeout = 10 * time.Second

// generationShards is the number of invalidation counters ids hash onto.
const generationShards = 256

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// CatalogConfig holds optional catalog settings.
type CatalogConfig struct {
	CacheTTL     time.Duration
	MaxImageSize int64
}

type catalogServiceImpl struct {
	projects   repository.ProjectRepository
	apartments repository.ApartmentRepository
	dispatcher indexer.Dispatcher
	cache      cache.ApartmentCache
	storage    storage.Storage
	metrics    *metrics.Registry
	cfg        CatalogConfig
	sf         singleflight.Group

	// Bumped on every invalidation; a cache fill started before a bump is
	// discarded.
	generations [generationShards]atomic.Uint64
}

// NewCatalogService creates the catalog service. apartmentCache may be nil to
// disable caching; store may be nil to disable image uploads.
func NewCatalogService(
	projects repository.ProjectRepository,
	apartments repository.ApartmentRepository,
	dispatcher indexer.Dispatcher,
	apartmentCache cache.ApartmentCache,
	store storage.Storage,
	m *metrics.Registry,
	cfg CatalogConfig,
) CatalogService {
	if apartmentCache == nil {
		apartmentCache = cache.NoopCache{}
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.MaxImageSize <= 0 {
		cfg.MaxImageSize = 5 << 20
	}
	return &catalogServiceImpl{
		projects:   projects,
		apartments: apartments,
		dispatcher: dispatcher,
		cache:      apartmentCache,
		storage:    store,
		metrics:    m,
		cfg:        cfg,
	}
}

// ListProjects returns every project ordered by name.
func (s *catalogServiceImpl) ListProjects(ctx context.Context) ([]domain.ProjectResponse, error) {
	projects, err := s.projects.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.ProjectResponse, len(projects))
	for i := range projects {
		out[i] = *projects[i].ToResponse()
	}
	return out, nil
}

// CreateProject creates a project with a unique name.
func (s *catalogServiceImpl) CreateProject(ctx context.Context, userID string, req *domain.CreateProjectRequest) (*domain.ProjectResponse, error) {
	project := &domain.Project{
		Name:        strings.TrimSpace(req.Name),
		Location:    strings.TrimSpace(req.Location),
		Description: req.Description,
		Developer:   req.Developer,
	}
	if err := s.projects.Create(ctx, project); err != nil {
		return nil, mapRepoError(err)
	}

	audit.Log(ctx, audit.ActionCreateProject, userID, project.ID, "project created")
	return project.ToResponse(), nil
}

// UpdateProject applies the non-nil fields of req. Every apartment of the
// project is re-indexed since project fields are copied into its documents.
func (s *catalogServiceImpl) UpdateProject(ctx context.Context, userID, id string, req *domain.UpdateProjectRequest) (*domain.ProjectResponse, error) {
	project, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}

	if req.Name != nil {
		project.Name = strings.TrimSpace(*req.Name)
	}
	if req.Location != nil {
		project.Location = strings.TrimSpace(*req.Location)
	}
	if req.Description != nil {
		project.Description = req.Description
	}
	if req.Developer != nil {
		project.Developer = req.Developer
	}

	if err := s.projects.Update(ctx, project); err != nil {
		return nil, mapRepoError(err)
	}

	s.dispatcher.Dispatch(ctx, indexer.SyncProject(project.ID))
	s.invalidateProject(ctx, project.ID)
	audit.Log(ctx, audit.ActionUpdateProject, userID, project.ID, "project updated")
	return project.ToResponse(), nil
}

// GetApartment returns an apartment with its project, read through the cache.
// Concurrent reads of one id share a single load, which runs without the
// cancellation of the caller that started it.
func (s *catalogServiceImpl) GetApartment(ctx context.Context, id string) (*domain.ApartmentResponse, error) {
	ch := s.sf.DoChan(id, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		return s.loadApartment(loadCtx, id)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.ApartmentResponse), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *catalogServiceImpl) loadApartment(ctx context.Context, id string) (*domain.ApartmentResponse, error) {
	cached, err := s.cache.Get(ctx, id)
	if err == nil {
		s.countCache("hit")
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldApartmentID, id).Msg("cache get error")
	}
	s.countCache("miss")

	gen := s.generation(id).Load()
	apt, err := s.apartments.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}

	resp := apt.ToResponse()
	s.asyncCacheSet(ctx, id, &resp, gen)
	return &resp, nil
}

// CreateApartment creates an apartment in an existing project.
func (s *catalogServiceImpl) CreateApartment(ctx context.Context, userID string, req *domain.CreateApartmentRequest) (*domain.ApartmentResponse, error) {
	apt := &domain.Apartment{
		UnitName:    strings.TrimSpace(req.UnitName),
		UnitNumber:  strings.TrimSpace(req.UnitNumber),
		ProjectID:   req.ProjectID,
		Price:       decimal.NewFromFloat(req.Price),
		Area:        decimal.NewFromFloat(req.Area),
		Bedrooms:    req.Bedrooms,
		Bathrooms:   req.Bathrooms,
		Floor:       req.Floor,
		Description: req.Description,
		Features:    req.Features,
		Images:      req.Images,
		Status:      req.Status,
	}
	if err := s.apartments.Create(ctx, apt); err != nil {
		return nil, mapRepoError(err)
	}

	s.dispatcher.Dispatch(ctx, indexer.SyncApartment(apt.ID))
	audit.Log(ctx, audit.ActionCreateApartment, userID, apt.ID, "apartment created")

	resp := apt.ToResponse()
	return &resp, nil
}

// UpdateApartment applies the non-nil fields of req.
func (s *catalogServiceImpl) UpdateApartment(ctx context.Context, userID, id string, req *domain.UpdateApartmentRequest) (*domain.ApartmentResponse, error) {
	apt, err := s.apartments.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}

	applyUpdate(apt, req)
	if err := s.apartments.Update(ctx, apt); err != nil {
		return nil, mapRepoError(err)
	}

	s.afterApartmentChange(ctx, apt.ID)
	audit.Log(ctx, audit.ActionUpdateApartment, userID, apt.ID, "apartment updated")

	resp := apt.ToResponse()
	return &resp, nil
}

// DeleteApartment deletes an apartment and removes it from the index.
func (s *catalogServiceImpl) DeleteApartment(ctx context.Context, userID, id string) error {
	if err := s.apartments.Delete(ctx, id); err != nil {
		return mapRepoError(err)
	}

	s.dispatcher.Dispatch(ctx, indexer.RemoveApartment(id))
	s.invalidate(ctx, id)
	audit.Log(ctx, audit.ActionDeleteApartment, userID, id, "apartment deleted")
	return nil
}

// AddImage stores an image and appends its URL to the apartment.
func (s *catalogServiceImpl) AddImage(ctx context.Context, userID, id string, image Upload) (*domain.ApartmentResponse, error) {
	if s.storage == nil {
		return nil, fmt.Errorf("%w: uploads are disabled", ErrInvalidImage)
	}
	ext, ok := imageExtensions[image.ContentType]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported content type %q", ErrInvalidImage, image.ContentType)
	}
	if image.Size <= 0 || image.Size > s.cfg.MaxImageSize {
		return nil, fmt.Errorf("%w: size must be between 1 and %d bytes", ErrInvalidImage, s.cfg.MaxImageSize)
	}

	apt, err := s.apartments.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}

	key := path.Join("apartments", apt.ID, uuid.New().String()+ext)
	if err := s.storage.Write(ctx, key, image.Body, image.Size, image.ContentType); err != nil {
		return nil, fmt.Errorf("store image: %w", err)
	}

	apt.Images = append(apt.Images, s.storage.URL(key))
	if err := s.apartments.Update(ctx, apt); err != nil {
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			l := log.Ctx(ctx)
			l.Warn().Err(delErr).Str("key", key).Msg("failed to remove orphaned image")
		}
		return nil, mapRepoError(err)
	}

	s.afterApartmentChange(ctx, apt.ID)
	audit.LogWithDetail(ctx, audit.ActionAddImage, userID, apt.ID, key, "apartment image added")

	resp := apt.ToResponse()
	return &resp, nil
}

func (s *catalogServiceImpl) afterApartmentChange(ctx context.Context, id string) {
	s.dispatcher.Dispatch(ctx, indexer.SyncApartment(id))
	s.invalidate(ctx, id)
}

func (s *catalogServiceImpl) generation(id string) *atomic.Uint64 {
	return &s.generations[xxhash.Sum64String(id)%generationShards]
}

func (s *catalogServiceImpl) invalidate(ctx context.Context, id string) {
	s.generation(id).Add(1)
	s.sf.Forget(id)
	if err := s.cache.Delete(ctx, id); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldApartmentID, id).Msg("cache delete error")
	}
}

func (s *catalogServiceImpl) invalidateProject(ctx context.Context, projectID string) {
	apartments, err := s.apartments.ListByProject(ctx, projectID)
	if err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldProjectID, projectID).Msg("failed to list project apartments for cache invalidation")
		return
	}
	if len(apartments) == 0 {
		return
	}

	ids := make([]string, len(apartments))
	for i := range apartments {
		ids[i] = apartments[i].ID
		s.generation(ids[i]).Add(1)
		s.sf.Forget(ids[i])
	}
	if err := s.cache.Delete(ctx, ids...); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldProjectID, projectID).Msg("cache delete error")
	}
}

// asyncCacheSet stores resp unless the apartment was invalidated after gen
// was read. An invalidation racing the write removes the entry again.
func (s *catalogServiceImpl) asyncCacheSet(ctx context.Context, id string, resp *domain.ApartmentResponse, gen uint64) {
	l := log.Ctx(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		counter := s.generation(id)
		if counter.Load() != gen {
			l.Debug().Str(log.FieldApartmentID, id).Msg("apartment changed during load, skipping cache set")
			return
		}
		if err := s.cache.Set(ctx, id, resp, s.cfg.CacheTTL); err != nil {
			l.Warn().Err(err).Str(log.FieldApartmentID, id).Msg("cache set error")
			return
		}
		if counter.Load() != gen {
			if err := s.cache.Delete(ctx, id); err != nil {
				l.Warn().Err(err).Str(log.FieldApartmentID, id).Msg("cache delete error")
			}
		}
	}()
}

func (s *catalogServiceImpl) countCache(result string) {
	if s.metrics != nil {
		s.metrics.CacheLookups.WithLabelValues(result).Inc()
	}
}

func applyUpdate(apt *domain.Apartment, req *domain.UpdateApartmentRequest) {
	if req.UnitName != nil {
		apt.UnitName = strings.TrimSpace(*req.UnitName)
	}
	if req.UnitNumber != nil {
		apt.UnitNumber = strings.TrimSpace(*req.UnitNumber)
	}
	if req.ProjectID != nil {
		apt.ProjectID = *req.ProjectID
	}
	if req.Price != nil {
		apt.Price = decimal.NewFromFloat(*req.Price)
	}
	if req.Area != nil {
		apt.Area = decimal.NewFromFloat(*req.Area)
	}
	if req.Bedrooms != nil {
		apt.Bedrooms = *req.Bedrooms
	}
	if req.Bathrooms != nil {
		apt.Bathrooms = *req.Bathrooms
	}
	if req.Floor != nil {
		apt.Floor = req.Floor
	}
	if req.Description != nil {
		apt.Description = req.Description
	}
	if req.Features != nil {
		apt.Features = req.Features
	}
	if req.Images != nil {
		apt.Images = req.Images
	}
	if req.Status != nil {
		apt.Status = *req.Status
	}
}

func mapRepoError(err error) error {
	switch {
	case errors.Is(err, repository.ErrApartmentNotFound):
		return ErrApartmentNotFound
	case errors.Is(err, repository.ErrProjectNotFound):
		return ErrProjectNotFound
	case errors.Is(err, repository.ErrDuplicateProject):
		return ErrDuplicateProject
	default:
		return err
	}
}
