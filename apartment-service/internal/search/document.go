package search

import "github.com/manyalawy/nawy/apartment-service/internal/domain"

// Document is the flat, denormalized projection of an apartment and its
// project stored in the search index. It is keyed by the apartment id.
type Document struct {
	ID               string   `json:"id"`
	UnitName         string   `json:"unitName"`
	UnitNumber       string   `json:"unitNumber"`
	Description      *string  `json:"description"`
	Features         []string `json:"features"`
	ProjectID        string   `json:"projectId"`
	ProjectName      string   `json:"projectName"`
	ProjectLocation  string   `json:"projectLocation"`
	ProjectDeveloper *string  `json:"projectDeveloper"`
	Price            float64  `json:"price"`
	Area             float64  `json:"area"`
	Bedrooms         int      `json:"bedrooms"`
	Bathrooms        int      `json:"bathrooms"`
	Floor            *int     `json:"floor"`
	Status           string   `json:"status"`
	CreatedAt        int64    `json:"createdAt"` // epoch milliseconds
	Images           []string `json:"images"`
}

// ToDocument builds the search document for an apartment. project may be
// nil, in which case the project fields are left empty.
func ToDocument(apt *domain.Apartment, project *domain.Project) Document {
	doc := Document{
		ID:          apt.ID,
		UnitName:    apt.UnitName,
		UnitNumber:  apt.UnitNumber,
		Description: apt.Description,
		Features:    nonNil(apt.Features),
		ProjectID:   apt.ProjectID,
		Price:       apt.Price.InexactFloat64(),
		Area:        apt.Area.InexactFloat64(),
		Bedrooms:    apt.Bedrooms,
		Bathrooms:   apt.Bathrooms,
		Floor:       apt.Floor,
		Status:      string(apt.Status),
		CreatedAt:   apt.CreatedAt.UnixMilli(),
		Images:      nonNil(apt.Images),
	}
	if project != nil {
		doc.ProjectName = project.Name
		doc.ProjectLocation = project.Location
		doc.ProjectDeveloper = project.Developer
	}
	return doc
}

// ToDocuments transforms apartments loaded with their project.
func ToDocuments(apartments []domain.Apartment) []Document {
	docs := make([]Document, len(apartments))
	for i := range apartments {
		docs[i] = ToDocument(&apartments[i], apartments[i].Project)
	}
	return docs
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
