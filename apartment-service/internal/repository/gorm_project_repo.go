package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/manyalawy/nawy/apartment-service/internal/domain"
	"github.com/manyalawy/nawy/pkg/log"
)

// GormProjectRepository implements ProjectRepository using GORM.
type GormProjectRepository struct {
	db *gorm.DB
}

// NewGormProjectRepository creates a new GORM-based project repository.
func NewGormProjectRepository(db *gorm.DB) *GormProjectRepository {
	return &GormProjectRepository{db: db}
}

// Create creates a new project. Project names are unique.
func (r *GormProjectRepository) Create(ctx context.Context, project *domain.Project) error {
	l := log.Ctx(ctx)

	taken, err := r.nameTaken(ctx, project.Name, "")
	if err != nil {
		l.Error().Err(err).Msg("failed to check project name")
		return err
	}
	if taken {
		return ErrDuplicateProject
	}

	if project.ID == "" {
		project.ID = uuid.New().String()
	}

	model := domain.ProjectToModel(project)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateProject
		}
		l.Error().Err(err).Msg("failed to create project in db")
		return err
	}

	project.CreatedAt = model.CreatedAt
	project.UpdatedAt = model.UpdatedAt
	l.Debug().Str(log.FieldProjectID, project.ID).Msg("project created in db")
	return nil
}

// GetByID retrieves a project by ID.
func (r *GormProjectRepository) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	var model domain.ProjectModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldProjectID, id).Msg("failed to get project by id")
		return nil, err
	}
	return model.ToDomain(), nil
}

// List returns all projects ordered by name.
func (r *GormProjectRepository) List(ctx context.Context) ([]domain.Project, error) {
	var models []domain.ProjectModel
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&models).Error; err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to list projects from db")
		return nil, err
	}

	projects := make([]domain.Project, len(models))
	for i := range models {
		projects[i] = *models[i].ToDomain()
	}
	return projects, nil
}

// Update saves every editable field of the project.
func (r *GormProjectRepository) Update(ctx context.Context, project *domain.Project) error {
	l := log.Ctx(ctx)

	taken, err := r.nameTaken(ctx, project.Name, project.ID)
	if err != nil {
		l.Error().Err(err).Msg("failed to check project name")
		return err
	}
	if taken {
		return ErrDuplicateProject
	}

	result := r.db.WithContext(ctx).Model(&domain.ProjectModel{ID: project.ID}).
		Select("name", "location", "description", "developer").
		Updates(domain.ProjectToModel(project))
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return ErrDuplicateProject
		}
		l.Error().Err(result.Error).Str(log.FieldProjectID, project.ID).Msg("failed to update project in db")
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrProjectNotFound
	}
	return nil
}

func (r *GormProjectRepository) nameTaken(ctx context.Context, name, exceptID string) (bool, error) {
	q := r.db.WithContext(ctx).Model(&domain.ProjectModel{}).Where("name = ?", name)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
