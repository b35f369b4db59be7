package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manyalawy/nawy/apartment-service/internal/indexer"
	"github.com/manyalawy/nawy/apartment-service/internal/repository"
	"github.com/manyalawy/nawy/apartment-service/internal/repository/repotest"
	"github.com/manyalawy/nawy/apartment-service/internal/search"
	"github.com/manyalawy/nawy/apartment-service/internal/service"
)

func TestSearchAdmin_Reindex(t *testing.T) {
	e := newEnv(t)
	e.seedScenario(t)
	admin := service.NewSearchAdminService(e.client, e.coordinator)

	res, err := admin.Reindex(context.Background(), "admin-1")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Indexed)
	assert.GreaterOrEqual(t, res.Duration, int64(0))

	status := admin.Status(context.Background())
	assert.True(t, status.Available)
	assert.Equal(t, "meilisearch", status.Engine)
	require.NotNil(t, status.Stats)
	assert.Equal(t, int64(2), status.Stats.NumberOfDocuments)

	assert.Equal(t, map[string]bool{"meilisearch": true}, admin.Health())
}

func TestSearchAdmin_Unavailable(t *testing.T) {
	db := repotest.NewDB(t)
	client := search.NewClient(search.EngineElasticsearch, nil)
	_ = client.Initialize(context.Background())
	coordinator := indexer.NewCoordinator(repository.NewGormApartmentRepository(db), client, 0, nil)
	admin := service.NewSearchAdminService(client, coordinator)

	_, err := admin.Reindex(context.Background(), "admin-1")
	assert.ErrorIs(t, err, service.ErrSearchUnavailable)

	status := admin.Status(context.Background())
	assert.False(t, status.Available)
	assert.Equal(t, "elasticsearch", status.Engine)
	assert.Nil(t, status.Stats)

	assert.Equal(t, map[string]bool{"elasticsearch": false}, admin.Health())
}
