package domain

import "time"

// CreateProjectRequest represents a create project request.
type CreateProjectRequest struct {
	Name        string  `json:"name" binding:"required,min=1,max=200"`
	Location    string  `json:"location" binding:"required,min=1,max=200"`
	Description *string `json:"description"`
	Developer   *string `json:"developer" binding:"omitempty,max=200"`
}

// UpdateProjectRequest represents an update project request. Nil fields are
// left unchanged.
type UpdateProjectRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=200"`
	Location    *string `json:"location" binding:"omitempty,min=1,max=200"`
	Description *string `json:"description"`
	Developer   *string `json:"developer" binding:"omitempty,max=200"`
}

// CreateApartmentRequest represents a create apartment request.
type CreateApartmentRequest struct {
	UnitName    string          `json:"unitName" binding:"required,min=1,max=200"`
	UnitNumber  string          `json:"unitNumber" binding:"required,min=1,max=50"`
	ProjectID   string          `json:"projectId" binding:"required,uuid"`
	Price       float64         `json:"price" binding:"min=0"`
	Area        float64         `json:"area" binding:"min=0"`
	Bedrooms    int             `json:"bedrooms" binding:"min=0"`
	Bathrooms   int             `json:"bathrooms" binding:"min=0"`
	Floor       *int            `json:"floor" binding:"omitempty,min=0"`
	Description *string         `json:"description"`
	Features    []string        `json:"features"`
	Images      []string        `json:"images" binding:"omitempty,dive,url"`
	Status      ApartmentStatus `json:"status" binding:"omitempty,oneof=AVAILABLE RESERVED SOLD"`
}

// UpdateApartmentRequest represents an update apartment request. Nil fields
// are left unchanged.
type UpdateApartmentRequest struct {
	UnitName    *string          `json:"unitName" binding:"omitempty,min=1,max=200"`
	UnitNumber  *string          `json:"unitNumber" binding:"omitempty,min=1,max=50"`
	ProjectID   *string          `json:"projectId" binding:"omitempty,uuid"`
	Price       *float64         `json:"price" binding:"omitempty,min=0"`
	Area        *float64         `json:"area" binding:"omitempty,min=0"`
	Bedrooms    *int             `json:"bedrooms" binding:"omitempty,min=0"`
	Bathrooms   *int             `json:"bathrooms" binding:"omitempty,min=0"`
	Floor       *int             `json:"floor" binding:"omitempty,min=0"`
	Description *string          `json:"description"`
	Features    []string         `json:"features"`
	Images      []string         `json:"images" binding:"omitempty,dive,url"`
	Status      *ApartmentStatus `json:"status" binding:"omitempty,oneof=AVAILABLE RESERVED SOLD"`
}

// ProjectResponse represents a project in API responses.
type ProjectResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Location    string    `json:"location"`
	Description *string   `json:"description"`
	Developer   *string   `json:"developer"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ApartmentResponse represents an apartment in API responses. Price and
// area are plain JSON numbers.
type ApartmentResponse struct {
	ID          string           `json:"id"`
	UnitName    string           `json:"unitName"`
	UnitNumber  string           `json:"unitNumber"`
	ProjectID   string           `json:"projectId"`
	Project     *ProjectResponse `json:"project,omitempty"`
	Price       float64          `json:"price"`
	Area        float64          `json:"area"`
	Bedrooms    int              `json:"bedrooms"`
	Bathrooms   int              `json:"bathrooms"`
	Floor       *int             `json:"floor"`
	Description *string          `json:"description"`
	Features    []string         `json:"features"`
	Images      []string         `json:"images"`
	Status      ApartmentStatus  `json:"status"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// ToResponse converts a Project to ProjectResponse.
func (p *Project) ToResponse() *ProjectResponse {
	if p == nil {
		return nil
	}
	return &ProjectResponse{
		ID:          p.ID,
		Name:        p.Name,
		Location:    p.Location,
		Description: p.Description,
		Developer:   p.Developer,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// ToResponse converts an Apartment to ApartmentResponse.
func (a *Apartment) ToResponse() ApartmentResponse {
	features := a.Features
	if features == nil {
		features = []string{}
	}
	images := a.Images
	if images == nil {
		images = []string{}
	}
	return ApartmentResponse{
		ID:          a.ID,
		UnitName:    a.UnitName,
		UnitNumber:  a.UnitNumber,
		ProjectID:   a.ProjectID,
		Project:     a.Project.ToResponse(),
		Price:       a.Price.InexactFloat64(),
		Area:        a.Area.InexactFloat64(),
		Bedrooms:    a.Bedrooms,
		Bathrooms:   a.Bathrooms,
		Floor:       a.Floor,
		Description: a.Description,
		Features:    features,
		Images:      images,
		Status:      a.Status,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

// ToResponses converts a slice of apartments, never returning nil.
func ToResponses(apartments []Apartment) []ApartmentResponse {
	out := make([]ApartmentResponse, len(apartments))
	for i := range apartments {
		out[i] = apartments[i].ToResponse()
	}
	return out
}
