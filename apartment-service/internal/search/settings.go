package search

// Document attribute names.
const (
	AttrID               = "id"
	AttrUnitName         = "unitName"
	AttrUnitNumber       = "unitNumber"
	AttrDescription      = "description"
	AttrFeatures         = "features"
	AttrProjectID        = "projectId"
	AttrProjectName      = "projectName"
	AttrProjectLocation  = "projectLocation"
	AttrProjectDeveloper = "projectDeveloper"
	AttrPrice            = "price"
	AttrArea             = "area"
	AttrBedrooms         = "bedrooms"
	AttrBathrooms        = "bathrooms"
	AttrFloor            = "floor"
	AttrStatus           = "status"
	AttrCreatedAt        = "createdAt"
	AttrImages           = "images"
)

// Settings is the index configuration applied on every initialization.
type Settings struct {
	// SearchableAttributes are ordered by decreasing weight.
	SearchableAttributes []string
	FilterableAttributes []string
	SortableAttributes   []string
	RankingRules         []string
	TypoTolerance        TypoTolerance
}

// TypoTolerance configures how many typos a query word may contain.
type TypoTolerance struct {
	Enabled bool
	// OneTypoMinWordSize is the shortest word allowed one typo.
	OneTypoMinWordSize int
	// TwoTyposMinWordSize is the shortest word allowed two typos.
	TwoTyposMinWordSize int
}

// DefaultSettings returns the apartment index configuration.
func DefaultSettings() Settings {
	return Settings{
		SearchableAttributes: []string{
			AttrUnitName,
			AttrUnitNumber,
			AttrDescription,
			AttrFeatures,
			AttrProjectName,
			AttrProjectLocation,
			AttrProjectDeveloper,
		},
		FilterableAttributes: []string{
			AttrProjectID,
			AttrBedrooms,
			AttrBathrooms,
			AttrPrice,
			AttrArea,
			AttrFloor,
			AttrStatus,
		},
		SortableAttributes: []string{AttrPrice, AttrArea, AttrBedrooms, AttrCreatedAt},
		RankingRules:       []string{"words", "typo", "proximity", "attribute", "sort", "exactness"},
		TypoTolerance: TypoTolerance{
			Enabled:             true,
			OneTypoMinWordSize:  4,
			TwoTyposMinWordSize: 8,
		},
	}
}
