package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ApartmentStatus represents the sale status of a unit.
type ApartmentStatus string

const (
	StatusAvailable ApartmentStatus = "AVAILABLE"
	StatusReserved  ApartmentStatus = "RESERVED"
	StatusSold      ApartmentStatus = "SOLD"
)

// Valid reports whether s is one of the known statuses.
func (s ApartmentStatus) Valid() bool {
	switch s {
	case StatusAvailable, StatusReserved, StatusSold:
		return true
	}
	return false
}

// Project is a development that groups apartments.
type Project struct {
	ID          string
	Name        string
	Location    string
	Description *string
	Developer   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Apartment is a single unit for sale. Project is populated when the record
// was loaded with its project joined.
type Apartment struct {
	ID          string
	UnitName    string
	UnitNumber  string
	ProjectID   string
	Project     *Project
	Price       decimal.Decimal
	Area        decimal.Decimal
	Bedrooms    int
	Bathrooms   int
	Floor       *int
	Description *string
	Features    []string
	Images      []string
	Status      ApartmentStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ApartmentFilter is the query accepted by the apartment list endpoint.
type ApartmentFilter struct {
	Search    string          `form:"search"`
	ProjectID string          `form:"projectId"`
	Bedrooms  *int            `form:"bedrooms" binding:"omitempty,min=0"`
	MinPrice  *float64        `form:"minPrice" binding:"omitempty,min=0"`
	MaxPrice  *float64        `form:"maxPrice"`
	Status    ApartmentStatus `form:"status" binding:"omitempty,oneof=AVAILABLE RESERVED SOLD"`
	Page      int             `form:"page" binding:"omitempty,min=1"`
	Limit     int             `form:"limit" binding:"omitempty,min=1"`
}

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Normalize fills in pagination defaults and caps the page size.
func (f *ApartmentFilter) Normalize() {
	if f.Page < 1 {
		f.Page = DefaultPage
	}
	if f.Limit < 1 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
}

// Term returns the trimmed free-text search term.
func (f ApartmentFilter) Term() string {
	return strings.TrimSpace(f.Search)
}

// Offset returns the row offset of the requested page.
func (f ApartmentFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// PageMeta is the pagination block of a list response.
type PageMeta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

// NewPageMeta computes the page count for total items split into pages of limit.
func NewPageMeta(total int64, page, limit int) PageMeta {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return PageMeta{
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}
}

// ApartmentPage is one page of apartments plus the name of the backend that
// served it.
type ApartmentPage struct {
	Data         []ApartmentResponse
	Meta         PageMeta
	SearchEngine string
}

// ReindexResult reports a completed full reindex.
type ReindexResult struct {
	Indexed  int   `json:"indexed"`
	Duration int64 `json:"duration"` // milliseconds
}
