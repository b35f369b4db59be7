package search_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/manyalawy/nawy/apartment-service/internal/domain"
	"github.com/manyalawy/nawy/apartment-service/internal/search"
)

func TestFilter_String(t *testing.T) {
	tests := []struct {
		name   string
		filter search.Filter
		want   string
	}{
		{"string", search.Eq("projectId", "p-1"), `projectId = "p-1"`},
		{"int", search.Eq("bedrooms", 3), `bedrooms = 3`},
		{"float gte", search.Gte("price", 1500000.0), `price >= 1500000`},
		{"fraction lte", search.Lte("price", 99.5), `price <= 99.5`},
		{"named string", search.Eq("status", domain.StatusSold), `status = "SOLD"`},
		{"quotes escaped", search.Eq("projectId", `a"b\c`), `projectId = "a\"b\\c"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.String())
		})
	}
}

func TestJoinFilters(t *testing.T) {
	got := search.JoinFilters([]search.Filter{
		search.Eq("bedrooms", 3),
		search.Gte("price", 100.0),
		search.Eq("status", "AVAILABLE"),
	})
	assert.Equal(t, `bedrooms = 3 AND price >= 100 AND status = "AVAILABLE"`, got)
	assert.Equal(t, "", search.JoinFilters(nil))
}

func TestSort_String(t *testing.T) {
	assert.Equal(t, "createdAt:desc", search.Sort{Field: "createdAt", Desc: true}.String())
	assert.Equal(t, "price:asc", search.Sort{Field: "price"}.String())
}
