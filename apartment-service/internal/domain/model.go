package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/manyalawy/nawy/pkg/database"
)

// ProjectModel is the GORM model for projects table.
type ProjectModel struct {
	ID          string    `gorm:"type:varchar(36);primaryKey"`
	Name        string    `gorm:"type:varchar(200);uniqueIndex;not null"`
	Location    string    `gorm:"type:varchar(200);not null"`
	Description *string   `gorm:"type:text"`
	Developer   *string   `gorm:"type:varchar(200)"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for ProjectModel.
func (ProjectModel) TableName() string {
	return "projects"
}

// ApartmentModel is the GORM model for apartments table.
type ApartmentModel struct {
	ID          string               `gorm:"type:varchar(36);primaryKey"`
	UnitName    string               `gorm:"type:varchar(200);not null"`
	UnitNumber  string               `gorm:"type:varchar(50);not null"`
	ProjectID   string               `gorm:"type:varchar(36);index;not null"`
	Project     *ProjectModel        `gorm:"foreignKey:ProjectID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Price       decimal.Decimal      `gorm:"type:decimal(14,2);not null"`
	Area        decimal.Decimal      `gorm:"type:decimal(10,2);not null"`
	Bedrooms    int                  `gorm:"not null;index"`
	Bathrooms   int                  `gorm:"not null"`
	Floor       *int
	Description *string              `gorm:"type:text"`
	Features    database.StringArray `gorm:"type:text"`
	Images      database.StringArray `gorm:"type:text"`
	Status      string               `gorm:"type:varchar(20);index;not null;default:'AVAILABLE'"`
	CreatedAt   time.Time            `gorm:"autoCreateTime;index"`
	UpdatedAt   time.Time            `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for ApartmentModel.
func (ApartmentModel) TableName() string {
	return "apartments"
}

// ToDomain converts ProjectModel to domain Project.
func (m *ProjectModel) ToDomain() *Project {
	if m == nil {
		return nil
	}
	return &Project{
		ID:          m.ID,
		Name:        m.Name,
		Location:    m.Location,
		Description: m.Description,
		Developer:   m.Developer,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// ProjectToModel converts domain Project to ProjectModel.
func ProjectToModel(p *Project) *ProjectModel {
	return &ProjectModel{
		ID:          p.ID,
		Name:        p.Name,
		Location:    p.Location,
		Description: p.Description,
		Developer:   p.Developer,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// ToDomain converts ApartmentModel to domain Apartment, including the
// project when it was preloaded.
func (m *ApartmentModel) ToDomain() *Apartment {
	return &Apartment{
		ID:          m.ID,
		UnitName:    m.UnitName,
		UnitNumber:  m.UnitNumber,
		ProjectID:   m.ProjectID,
		Project:     m.Project.ToDomain(),
		Price:       m.Price,
		Area:        m.Area,
		Bedrooms:    m.Bedrooms,
		Bathrooms:   m.Bathrooms,
		Floor:       m.Floor,
		Description: m.Description,
		Features:    m.Features.Strings(),
		Images:      m.Images.Strings(),
		Status:      ApartmentStatus(m.Status),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// ApartmentToModel converts domain Apartment to ApartmentModel. The project
// association is not carried over.
func ApartmentToModel(a *Apartment) *ApartmentModel {
	return &ApartmentModel{
		ID:          a.ID,
		UnitName:    a.UnitName,
		UnitNumber:  a.UnitNumber,
		ProjectID:   a.ProjectID,
		Price:       a.Price,
		Area:        a.Area,
		Bedrooms:    a.Bedrooms,
		Bathrooms:   a.Bathrooms,
		Floor:       a.Floor,
		Description: a.Description,
		Features:    database.StringArray(a.Features),
		Images:      database.StringArray(a.Images),
		Status:      string(a.Status),
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}
