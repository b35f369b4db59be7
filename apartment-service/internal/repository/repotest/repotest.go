// Package repotest provides an in-memory record store and fixtures for tests.
package repotest

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/manyalawy/nawy/apartment-service/internal/domain"
	"github.com/manyalawy/nawy/pkg/database"
)

// NewDB opens a private in-memory sqlite database with the schema migrated.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	db, err := database.New(&database.Config{
		Driver:       "sqlite",
		FilePath:     fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, uuid.NewString()[:8]),
		MaxOpenConns: 1,
		LogLevel:     "silent",
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db, &domain.ProjectModel{}, &domain.ApartmentModel{}))

	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

// CreateProject inserts a project with the given name.
func CreateProject(t testing.TB, db *gorm.DB, name string) *domain.Project {
	t.Helper()

	developer := name + " Developments"
	model := &domain.ProjectModel{
		ID:        uuid.New().String(),
		Name:      name,
		Location:  "New Cairo",
		Developer: &developer,
	}
	require.NoError(t, db.Create(model).Error)
	return model.ToDomain()
}

// Apartment describes a fixture apartment. Zero fields get defaults.
type Apartment struct {
	ID         string
	UnitName   string
	UnitNumber string
	ProjectID  string
	Price      float64
	Area       float64
	Bedrooms   int
	Bathrooms  int
	Status     domain.ApartmentStatus
	Features   []string
	CreatedAt  time.Time
}

// CreateApartment inserts an apartment and returns it with its project loaded.
func CreateApartment(t testing.TB, db *gorm.DB, a Apartment) *domain.Apartment {
	t.Helper()

	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.UnitName == "" {
		a.UnitName = "Unit " + a.ID[:4]
	}
	if a.UnitNumber == "" {
		a.UnitNumber = strings.ToUpper(a.ID[:6])
	}
	if a.Status == "" {
		a.Status = domain.StatusAvailable
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	model := &domain.ApartmentModel{
		ID:         a.ID,
		UnitName:   a.UnitName,
		UnitNumber: a.UnitNumber,
		ProjectID:  a.ProjectID,
		Price:      decimal.NewFromFloat(a.Price),
		Area:       decimal.NewFromFloat(a.Area),
		Bedrooms:   a.Bedrooms,
		Bathrooms:  a.Bathrooms,
		Features:   database.StringArray(a.Features),
		Status:     string(a.Status),
		CreatedAt:  a.CreatedAt,
	}
	require.NoError(t, db.Create(model).Error)
	require.NoError(t, db.Preload("Project").First(model, "id = ?", a.ID).Error)
	return model.ToDomain()
}
