package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeiliSettings(t *testing.T) {
	s := meiliSettings(DefaultSettings())

	assert.Equal(t, DefaultSettings().SearchableAttributes, s.SearchableAttributes)
	assert.Equal(t, DefaultSettings().FilterableAttributes, s.FilterableAttributes)
	assert.Equal(t, []string{"price", "area", "bedrooms", "createdAt"}, s.SortableAttributes)
	assert.Equal(t, []string{"words", "typo", "proximity", "attribute", "sort", "exactness"}, s.RankingRules)
	require.NotNil(t, s.TypoTolerance)
	assert.True(t, s.TypoTolerance.Enabled)
	assert.Equal(t, int64(4), s.TypoTolerance.MinWordSizeForTypos.OneTypo)
	assert.Equal(t, int64(8), s.TypoTolerance.MinWordSizeForTypos.TwoTypos)
}

func TestMeiliEngine_Search(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/indexes/apartments/search" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"hits":[{"id":"a2"},{"id":"a1"}],"estimatedTotalHits":12,"offset":0,"limit":2,"processingTimeMs":1,"query":"skyline"}`))
	}))
	defer srv.Close()

	engine := NewMeiliEngine(MeiliConfig{Host: srv.URL, APIKey: "key", Timeout: time.Second})
	res, err := engine.Search(context.Background(), Query{
		Text:    "skyline",
		Filters: []Filter{Eq(AttrBedrooms, 3), Eq(AttrStatus, "AVAILABLE")},
		Sort:    []Sort{{Field: AttrCreatedAt, Desc: true}},
		Limit:   2,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"a2", "a1"}, res.IDs)
	assert.Equal(t, int64(12), res.EstimatedTotal)
	assert.Equal(t, "skyline", got["q"])
	assert.Equal(t, `bedrooms = 3 AND status = "AVAILABLE"`, got["filter"])
	assert.Equal(t, []interface{}{"createdAt:desc"}, got["sort"])
}

func TestMeiliEngine_HealthUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	engine := NewMeiliEngine(MeiliConfig{Host: url, APIKey: "key", Timeout: 200 * time.Millisecond})
	assert.Error(t, engine.Health(context.Background()))
}
