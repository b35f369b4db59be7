package service

import (
	"context"
	"errors"
	"io"

	"github.com/manyalawy/nawy/apartment-service/internal/domain"
	"github.com/manyalawy/nawy/apartment-service/internal/search"
)

var (
	ErrApartmentNotFound = errors.New("apartment not found")
	ErrProjectNotFound   = errors.New("project not found")
	ErrDuplicateProject  = errors.New("project name already exists")
	ErrInvalidImage      = errors.New("invalid image")
	ErrSearchUnavailable = errors.New("search index unavailable")
	ErrReindexRunning    = errors.New("full reindex already running")
)

// ApartmentSearchService serves filtered apartment listings from the search
// index or the database.
type ApartmentSearchService interface {
	Search(ctx context.Context, filter domain.ApartmentFilter) (*domain.ApartmentPage, error)
}

// CatalogService manages projects and apartments. Every mutation schedules
// the matching index sync without waiting for it.
type CatalogService interface {
	ListProjects(ctx context.Context) ([]domain.ProjectResponse, error)
	CreateProject(ctx context.Context, userID string, req *domain.CreateProjectRequest) (*domain.ProjectResponse, error)
	UpdateProject(ctx context.Context, userID, id string, req *domain.UpdateProjectRequest) (*domain.ProjectResponse, error)

	GetApartment(ctx context.Context, id string) (*domain.ApartmentResponse, error)
	CreateApartment(ctx context.Context, userID string, req *domain.CreateApartmentRequest) (*domain.ApartmentResponse, error)
	UpdateApartment(ctx context.Context, userID, id string, req *domain.UpdateApartmentRequest) (*domain.ApartmentResponse, error)
	DeleteApartment(ctx context.Context, userID, id string) error
	AddImage(ctx context.Context, userID, id string, image Upload) (*domain.ApartmentResponse, error)
}

// Upload is an image file received from a client.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// SearchStatus reports the search index state.
type SearchStatus struct {
	Available bool          `json:"available"`
	Engine    string        `json:"engine"`
	Stats     *search.Stats `json:"stats"`
}

// SearchAdminService exposes index maintenance operations.
type SearchAdminService interface {
	Reindex(ctx context.Context, userID string) (*domain.ReindexResult, error)
	Status(ctx context.Context) *SearchStatus
	Health() map[string]bool
}
