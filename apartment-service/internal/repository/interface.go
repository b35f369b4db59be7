package repository

import (
	"context"
	"errors"

	"github.com/manyalawy/nawy/apartment-service/internal/domain"
)

var (
	ErrApartmentNotFound = errors.New("apartment not found")
	ErrProjectNotFound   = errors.New("project not found")
	ErrDuplicateProject  = errors.New("project name already exists")
)

// ProjectRepository defines the interface for project persistence.
type ProjectRepository interface {
	Create(ctx context.Context, project *domain.Project) error
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	List(ctx context.Context) ([]domain.Project, error)
	Update(ctx context.Context, project *domain.Project) error
}

// ApartmentRepository defines the interface for apartment persistence.
// Every read returns apartments with their project loaded.
type ApartmentRepository interface {
	Create(ctx context.Context, apartment *domain.Apartment) error
	GetByID(ctx context.Context, id string) (*domain.Apartment, error)
	Update(ctx context.Context, apartment *domain.Apartment) error
	Delete(ctx context.Context, id string) error

	// Find returns one page of apartments matching the filter, newest first.
	Find(ctx context.Context, filter domain.ApartmentFilter) ([]domain.Apartment, error)
	// Count returns the number of apartments matching the filter.
	Count(ctx context.Context, filter domain.ApartmentFilter) (int64, error)
	// FindByIDs returns the apartments with the given ids in no particular
	// order. Unknown ids are skipped.
	FindByIDs(ctx context.Context, ids []string) ([]domain.Apartment, error)
	// ListBatch returns apartments ordered by creation time ascending.
	ListBatch(ctx context.Context, offset, limit int) ([]domain.Apartment, error)
	// ListByProject returns every apartment of a project.
	ListByProject(ctx context.Context, projectID string) ([]domain.Apartment, error)
}
