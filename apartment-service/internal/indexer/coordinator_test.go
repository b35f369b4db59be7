package indexer_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/manyalawy/nawy/apartment-service/internal/indexer"
	"github.com/manyalawy/nawy/apartment-service/internal/metrics"
	"github.com/manyalawy/nawy/apartment-service/internal/repository"
	"github.com/manyalawy/nawy/apartment-service/internal/repository/repotest"
	"github.com/manyalawy/nawy/apartment-service/internal/search"
	"github.com/manyalawy/nawy/apartment-service/internal/search/searchtest"
)

type fixture struct {
	db          *gorm.DB
	engine      *searchtest.Engine
	client      *search.Client
	metrics     *metrics.Registry
	coordinator *indexer.Coordinator
}

func newFixture(t *testing.T, batchSize int) *fixture {
	t.Helper()

	db := repotest.NewDB(t)
	engine := searchtest.NewEngine(search.EngineMeilisearch)
	m := metrics.NewRegistry()
	client := search.NewClient(engine.Name(), engine, search.WithMetrics(m))
	require.NoError(t, client.Initialize(context.Background()))

	return &fixture{
		db:          db,
		engine:      engine,
		client:      client,
		metrics:     m,
		coordinator: indexer.NewCoordinator(repository.NewGormApartmentRepository(db), client, batchSize, m),
	}
}

func (f *fixture) seed(t *testing.T, projectName string, n int) []string {
	t.Helper()
	p := repotest.CreateProject(t, f.db, projectName)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		apt := repotest.CreateApartment(t, f.db, repotest.Apartment{
			UnitName:  fmt.Sprintf("%s Unit %d", projectName, i),
			ProjectID: p.ID,
			Price:     1_000_000 + float64(i)*10_000,
			Area:      100,
			Bedrooms:  2,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
		ids[i] = apt.ID
	}
	return ids
}

func TestFullReindex_Idempotent(t *testing.T) {
	f := newFixture(t, 2)
	ids := f.seed(t, "Skyline", 5)
	f.engine.Put(search.Document{ID: "leftover", UnitName: "Gone"})

	ctx := context.Background()
	first, err := f.coordinator.FullReindex(ctx)
	require.NoError(t, err)
	second, err := f.coordinator.FullReindex(ctx)
	require.NoError(t, err)

	assert.Equal(t, 5, first.Indexed)
	assert.Equal(t, first.Indexed, second.Indexed)
	assert.ElementsMatch(t, ids, f.engine.IDs())
	assert.Equal(t, float64(10), testutil.ToFloat64(f.metrics.ReindexIndexed))
}

func TestFullReindex_EmptyStore(t *testing.T) {
	f := newFixture(t, 2)

	res, err := f.coordinator.FullReindex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Indexed)
	assert.Empty(t, f.engine.IDs())
}

func TestFullReindex_Unavailable(t *testing.T) {
	db := repotest.NewDB(t)
	client := search.NewClient(search.EngineMeilisearch, nil)
	_ = client.Initialize(context.Background())
	c := indexer.NewCoordinator(repository.NewGormApartmentRepository(db), client, 0, nil)

	_, err := c.FullReindex(context.Background())
	assert.ErrorIs(t, err, search.ErrUnavailable)
}

func TestSyncOne(t *testing.T) {
	f := newFixture(t, 0)
	ids := f.seed(t, "Skyline", 1)
	ctx := context.Background()

	require.NoError(t, f.coordinator.SyncOne(ctx, ids[0]))
	doc, ok := f.engine.Doc(ids[0])
	require.True(t, ok)
	assert.Equal(t, "Skyline", doc.ProjectName)

	// A missing apartment is not an error and writes nothing.
	require.NoError(t, f.coordinator.SyncOne(ctx, "missing"))
	assert.Len(t, f.engine.IDs(), 1)
}

func TestRemoveOne(t *testing.T) {
	f := newFixture(t, 0)
	f.engine.Put(search.Document{ID: "a1"})
	ctx := context.Background()

	require.NoError(t, f.coordinator.RemoveOne(ctx, "a1"))
	require.NoError(t, f.coordinator.RemoveOne(ctx, "a1"))
	assert.Empty(t, f.engine.IDs())
}

func TestSyncProject_CascadesProjectFields(t *testing.T) {
	f := newFixture(t, 0)
	ids := f.seed(t, "Skyline", 3)
	other := f.seed(t, "Harbor", 1)
	ctx := context.Background()
	_, err := f.coordinator.FullReindex(ctx)
	require.NoError(t, err)

	projects := repository.NewGormProjectRepository(f.db)
	apt, err := repository.NewGormApartmentRepository(f.db).GetByID(ctx, ids[0])
	require.NoError(t, err)
	project := *apt.Project
	project.Name = "Skyline Heights"
	require.NoError(t, projects.Update(ctx, &project))

	require.NoError(t, f.coordinator.SyncProject(ctx, project.ID))

	for _, id := range ids {
		doc, ok := f.engine.Doc(id)
		require.True(t, ok)
		assert.Equal(t, "Skyline Heights", doc.ProjectName)
	}
	doc, _ := f.engine.Doc(other[0])
	assert.Equal(t, "Harbor", doc.ProjectName)
}

func TestOnStartup_ReindexesEmptyIndexOnce(t *testing.T) {
	f := newFixture(t, 0)
	f.seed(t, "Skyline", 2)
	ctx := context.Background()

	require.NoError(t, f.coordinator.OnStartup(ctx))
	assert.Len(t, f.engine.IDs(), 2)
	assert.Equal(t, 1, f.engine.Calls("delete_all"))

	// The bootstrap decision is made once per process.
	require.NoError(t, f.engine.DeleteAll(ctx))
	require.NoError(t, f.coordinator.OnStartup(ctx))
	assert.Equal(t, 2, f.engine.Calls("delete_all"))
	assert.Empty(t, f.engine.IDs())
}

func TestOnStartup_SkipsPopulatedIndex(t *testing.T) {
	f := newFixture(t, 0)
	f.seed(t, "Skyline", 2)
	f.engine.Put(search.Document{ID: "existing"})

	require.NoError(t, f.coordinator.OnStartup(context.Background()))
	assert.Equal(t, 0, f.engine.Calls("delete_all"))
	assert.Equal(t, []string{"existing"}, f.engine.IDs())
}

func TestOnStartup_ReindexesWhenStatsFail(t *testing.T) {
	f := newFixture(t, 0)
	f.seed(t, "Skyline", 1)
	f.engine.Put(search.Document{ID: "existing"})
	f.engine.Fail("stats", searchtest.ErrInjected)

	require.NoError(t, f.coordinator.OnStartup(context.Background()))
	assert.Equal(t, 1, f.engine.Calls("delete_all"))
	assert.Len(t, f.engine.IDs(), 1)
}

func TestOnStartup_WaitsForAvailability(t *testing.T) {
	db := repotest.NewDB(t)
	engine := searchtest.NewEngine(search.EngineMeilisearch)
	engine.Fail("health", searchtest.ErrInjected)
	client := search.NewClient(engine.Name(), engine)
	require.Error(t, client.Initialize(context.Background()))
	c := indexer.NewCoordinator(repository.NewGormApartmentRepository(db), client, 0, nil)

	require.NoError(t, c.OnStartup(context.Background()))
	assert.Equal(t, 0, engine.Calls("stats"))

	engine.Fail("health", nil)
	require.NoError(t, client.Initialize(context.Background()))
	require.NoError(t, c.OnStartup(context.Background()))
	assert.Equal(t, 1, engine.Calls("stats"))
}

func TestExecute_UnknownKind(t *testing.T) {
	f := newFixture(t, 0)
	err := f.coordinator.Execute(context.Background(), indexer.Task{Kind: "bogus", ID: "x"})
	assert.Error(t, err)
}
