package search

import "context"

// Engine is a remote full-text search backend holding one document index.
// Implementations return transport errors as is; Client decides whether
// they are swallowed or surfaced.
type Engine interface {
	// Name identifies the backend, e.g. "meilisearch".
	Name() string
	Health(ctx context.Context) error
	// EnsureIndex creates the index if it does not exist and applies the
	// settings. An existing index is not an error.
	EnsureIndex(ctx context.Context, settings Settings) error
	// Upsert adds or replaces documents by id.
	Upsert(ctx context.Context, docs []Document) error
	// Delete removes a document. A missing document is not an error.
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
	Search(ctx context.Context, q Query) (*Result, error)
	Stats(ctx context.Context) (*Stats, error)
}

// Query is a ranked full-text query. An empty Text browses by filter only.
type Query struct {
	Text    string
	Filters []Filter // AND-ed
	Sort    []Sort
	Offset  int
	Limit   int
}

// Sort orders results by a sortable attribute.
type Sort struct {
	Field string
	Desc  bool
}

// String renders the sort as "field:asc" or "field:desc".
func (s Sort) String() string {
	if s.Desc {
		return s.Field + ":desc"
	}
	return s.Field + ":asc"
}

// Result holds the ranked hit ids of one page plus the engine's estimate of
// the total number of matches.
type Result struct {
	IDs            []string
	EstimatedTotal int64
}

// Stats describes the index contents.
type Stats struct {
	NumberOfDocuments int64            `json:"numberOfDocuments"`
	IsIndexing        bool             `json:"isIndexing"`
	FieldDistribution map[string]int64 `json:"fieldDistribution"`
}
