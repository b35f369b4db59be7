package main

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/manyalawy/nawy/apartment-service/internal/config"
	"github.com/manyalawy/nawy/apartment-service/internal/domain"
	"github.com/manyalawy/nawy/apartment-service/internal/metrics"
	"github.com/manyalawy/nawy/apartment-service/internal/search"
	"github.com/manyalawy/nawy/pkg/database"
	pkglog "github.com/manyalawy/nawy/pkg/log"
)

const serviceName = "apartment-service"

// bootstrap loads configuration and initializes the structured logger.
func bootstrap() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	pkglog.Init(pkglog.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Pretty || cfg.Log.Level == "debug",
		ServiceName: serviceName,
	})
	return cfg, nil
}

// openDatabase connects to the record store and migrates the schema.
func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.New(&database.Config{
		Driver:          cfg.Database.Driver,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		FilePath:        cfg.Database.FilePath,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        cfg.Database.LogLevel,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := database.AutoMigrate(db, &domain.ProjectModel{}, &domain.ApartmentModel{}); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("failed to auto-migrate: %w", err)
	}
	return db, nil
}

// newSearchEngine builds the configured engine, or nil when its credentials
// are missing.
func newSearchEngine(cfg config.SearchConfig) (search.Engine, error) {
	switch cfg.Driver {
	case search.EngineMeilisearch:
		if cfg.Meilisearch.APIKey == "" {
			return nil, nil
		}
		return search.NewMeiliEngine(cfg.Meilisearch), nil
	case search.EngineElasticsearch:
		if len(cfg.Elasticsearch.Addresses) == 0 {
			return nil, nil
		}
		return search.NewESEngine(cfg.Elasticsearch)
	default:
		return nil, fmt.Errorf("unsupported search driver: %s", cfg.Driver)
	}
}

// newSearchClient creates and initializes the search client. Initialization
// failures leave the client unavailable and are only logged.
func newSearchClient(ctx context.Context, cfg *config.Config, m *metrics.Registry) *search.Client {
	engine, err := newSearchEngine(cfg.Search)
	if err != nil {
		l := pkglog.Ctx(ctx)
		l.Warn().Err(err).Str(pkglog.FieldSearchEngine, cfg.Search.Driver).Msg("failed to create search engine, search index disabled")
		engine = nil
	}

	client := search.NewClient(cfg.Search.Driver, engine,
		search.WithQueryTimeout(cfg.Search.QueryTimeout),
		search.WithMetrics(m),
	)
	_ = client.Initialize(ctx)
	return client
}
