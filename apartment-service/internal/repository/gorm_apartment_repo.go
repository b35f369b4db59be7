package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/manyalawy/nawy/apartment-service/internal/domain"
	"github.com/manyalawy/nawy/pkg/log"
)

// GormApartmentRepository implements ApartmentRepository using GORM.
type GormApartmentRepository struct {
	db *gorm.DB
}

// NewGormApartmentRepository creates a new GORM-based apartment repository.
func NewGormApartmentRepository(db *gorm.DB) *GormApartmentRepository {
	return &GormApartmentRepository{db: db}
}

// Create creates a new apartment. The referenced project must exist.
func (r *GormApartmentRepository) Create(ctx context.Context, apartment *domain.Apartment) error {
	l := log.Ctx(ctx)

	project, err := r.project(ctx, apartment.ProjectID)
	if err != nil {
		return err
	}

	if apartment.ID == "" {
		apartment.ID = uuid.New().String()
	}
	if apartment.Status == "" {
		apartment.Status = domain.StatusAvailable
	}

	model := domain.ApartmentToModel(apartment)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		l.Error().Err(err).Msg("failed to create apartment in db")
		return err
	}

	apartment.Project = project
	apartment.CreatedAt = model.CreatedAt
	apartment.UpdatedAt = model.UpdatedAt
	l.Debug().Str(log.FieldApartmentID, apartment.ID).Msg("apartment created in db")
	return nil
}

// GetByID retrieves an apartment with its project.
func (r *GormApartmentRepository) GetByID(ctx context.Context, id string) (*domain.Apartment, error) {
	var model domain.ApartmentModel
	err := r.db.WithContext(ctx).Preload("Project").First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrApartmentNotFound
		}
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldApartmentID, id).Msg("failed to get apartment by id")
		return nil, err
	}
	return model.ToDomain(), nil
}

// Update saves every editable field of the apartment. A changed project
// must exist.
func (r *GormApartmentRepository) Update(ctx context.Context, apartment *domain.Apartment) error {
	l := log.Ctx(ctx)

	project, err := r.project(ctx, apartment.ProjectID)
	if err != nil {
		return err
	}

	result := r.db.WithContext(ctx).Model(&domain.ApartmentModel{ID: apartment.ID}).
		Select("unit_name", "unit_number", "project_id", "price", "area", "bedrooms",
			"bathrooms", "floor", "description", "features", "images", "status").
		Updates(domain.ApartmentToModel(apartment))
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldApartmentID, apartment.ID).Msg("failed to update apartment in db")
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrApartmentNotFound
	}

	apartment.Project = project
	return nil
}

// Delete removes an apartment.
func (r *GormApartmentRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&domain.ApartmentModel{}, "id = ?", id)
	if result.Error != nil {
		l := log.Ctx(ctx)
		l.Error().Err(result.Error).Str(log.FieldApartmentID, id).Msg("failed to delete apartment in db")
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrApartmentNotFound
	}
	return nil
}

// Find returns one page of apartments matching the filter. The filter must
// be normalized.
func (r *GormApartmentRepository) Find(ctx context.Context, filter domain.ApartmentFilter) ([]domain.Apartment, error) {
	var models []domain.ApartmentModel
	err := r.filtered(ctx, filter).
		Preload("Project").
		Order("apartments.created_at DESC").
		Order("apartments.id DESC").
		Offset(filter.Offset()).
		Limit(filter.Limit).
		Find(&models).Error
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to find apartments")
		return nil, err
	}
	return toDomain(models), nil
}

// Count returns the number of apartments matching the filter.
func (r *GormApartmentRepository) Count(ctx context.Context, filter domain.ApartmentFilter) (int64, error) {
	var total int64
	if err := r.filtered(ctx, filter).Count(&total).Error; err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to count apartments")
		return 0, err
	}
	return total, nil
}

// FindByIDs returns the apartments with the given ids.
func (r *GormApartmentRepository) FindByIDs(ctx context.Context, ids []string) ([]domain.Apartment, error) {
	if len(ids) == 0 {
		return []domain.Apartment{}, nil
	}

	var models []domain.ApartmentModel
	if err := r.db.WithContext(ctx).Preload("Project").Where("id IN ?", ids).Find(&models).Error; err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Int(log.FieldCount, len(ids)).Msg("failed to find apartments by ids")
		return nil, err
	}
	return toDomain(models), nil
}

// ListBatch returns apartments ordered by creation time ascending.
func (r *GormApartmentRepository) ListBatch(ctx context.Context, offset, limit int) ([]domain.Apartment, error) {
	var models []domain.ApartmentModel
	err := r.db.WithContext(ctx).
		Preload("Project").
		Order("created_at ASC").
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Int("offset", offset).Msg("failed to list apartment batch")
		return nil, err
	}
	return toDomain(models), nil
}

// ListByProject returns every apartment of a project.
func (r *GormApartmentRepository) ListByProject(ctx context.Context, projectID string) ([]domain.Apartment, error) {
	var models []domain.ApartmentModel
	err := r.db.WithContext(ctx).
		Preload("Project").
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldProjectID, projectID).Msg("failed to list project apartments")
		return nil, err
	}
	return toDomain(models), nil
}

// filtered builds a fresh query for the filter. Each call returns a new
// statement so count and page fetch can run concurrently.
func (r *GormApartmentRepository) filtered(ctx context.Context, f domain.ApartmentFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&domain.ApartmentModel{})

	if term := f.Term(); term != "" {
		pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
		q = q.Joins("LEFT JOIN projects ON projects.id = apartments.project_id").
			Where("(LOWER(apartments.unit_name) LIKE ? ESCAPE '!' OR LOWER(apartments.unit_number) LIKE ? ESCAPE '!' OR LOWER(projects.name) LIKE ? ESCAPE '!')",
				pattern, pattern, pattern)
	}
	if f.ProjectID != "" {
		q = q.Where("apartments.project_id = ?", f.ProjectID)
	}
	if f.Bedrooms != nil {
		q = q.Where("apartments.bedrooms = ?", *f.Bedrooms)
	}
	if f.MinPrice != nil {
		q = q.Where("apartments.price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("apartments.price <= ?", *f.MaxPrice)
	}
	if f.Status != "" {
		q = q.Where("apartments.status = ?", string(f.Status))
	}

	return q
}

func (r *GormApartmentRepository) project(ctx context.Context, id string) (*domain.Project, error) {
	var model domain.ProjectModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// escapeLike escapes LIKE wildcards so the term matches literally.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func toDomain(models []domain.ApartmentModel) []domain.Apartment {
	apartments := make([]domain.Apartment, len(models))
	for i := range models {
		apartments[i] = *models[i].ToDomain()
	}
	return apartments
}
