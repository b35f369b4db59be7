package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/manyalawy/nawy/apartment-service/internal/cache"
	"github.com/manyalawy/nawy/apartment-service/internal/config"
	"github.com/manyalawy/nawy/apartment-service/internal/handler"
	"github.com/manyalawy/nawy/apartment-service/internal/indexer"
	"github.com/manyalawy/nawy/apartment-service/internal/metrics"
	"github.com/manyalawy/nawy/apartment-service/internal/repository"
	"github.com/manyalawy/nawy/apartment-service/internal/service"
	"github.com/manyalawy/nawy/pkg/database"
	"github.com/manyalawy/nawy/pkg/jwt"
	pkglog "github.com/manyalawy/nawy/pkg/log"
	"github.com/manyalawy/nawy/pkg/middleware"
	"github.com/manyalawy/nawy/pkg/pubsub"
	"github.com/manyalawy/nawy/pkg/storage"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the index sync workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}

	// 1. Load configuration and initialize logger
	cfg, err := bootstrap()
	if err != nil {
		return err
	}
	logger := pkglog.L()

	// 2. Init DB (GORM, auto-migrate projects and apartments)
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close(db)
	logger.Info().Str("driver", cfg.Database.Driver).Msg("database migration completed")

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	ctx = pkglog.WithLogger(ctx, logger)

	// 3. Search index; the service runs in database mode when it is unavailable
	m := metrics.NewRegistry()
	projectRepo := repository.NewGormProjectRepository(db)
	apartmentRepo := repository.NewGormApartmentRepository(db)

	searchClient := newSearchClient(ctx, cfg, m)
	coordinator := indexer.NewCoordinator(apartmentRepo, searchClient, cfg.Search.BatchSize, m)
	if err := coordinator.OnStartup(ctx); err != nil {
		logger.Error().Err(err).Msg("startup reindex failed")
	}

	var prober *indexer.Prober
	if cfg.Search.ReprobeInterval > 0 && searchClient.Configured() {
		prober = indexer.NewProber(searchClient, coordinator, cfg.Search.ReprobeInterval)
		prober.Start(ctx)
		logger.Info().Dur("interval", cfg.Search.ReprobeInterval).Msg("search index prober started")
	}

	// 4. Sync task delivery
	dispatcher, consumer, closeBus, err := newSyncPipeline(ctx, cfg, coordinator, m)
	if err != nil {
		return err
	}
	defer closeBus()

	// 5. Apartment cache
	apartmentCache := newApartmentCache(cfg)
	defer apartmentCache.Close()

	// 6. Image storage
	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		logger.Warn().Err(err).Str("driver", cfg.Storage.Driver).Msg("failed to create image storage, uploads disabled")
		store = nil
	}

	// 7. Auth
	jwtManager, err := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessDuration)
	if err != nil {
		return fmt.Errorf("failed to create jwt manager: %w", err)
	}
	authMiddleware := middleware.NewAuthMiddleware(jwtManager)

	// 8. Services and handler
	searchService := service.NewApartmentSearchService(apartmentRepo, searchClient, m,
		service.WithRecordStoreName(cfg.Search.RecordStoreName))
	catalogService := service.NewCatalogService(projectRepo, apartmentRepo, dispatcher, apartmentCache, store, m, service.CatalogConfig{
		CacheTTL:     cfg.Cache.TTL,
		MaxImageSize: cfg.Upload.MaxImageSize,
	})
	adminService := service.NewSearchAdminService(searchClient, coordinator)
	httpHandler := handler.NewHandler(searchService, catalogService, adminService, authMiddleware)

	// 9. Setup Gin router + HTTP server
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger))
	r.GET("/metrics", gin.WrapH(m.Handler()))
	if local, ok := store.(*storage.LocalStorage); ok {
		r.Static(local.PublicPath(), local.BasePath())
	}
	httpHandler.RegisterRoutes(r)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Str("search_engine", searchClient.Name()).Bool("search_available", searchClient.IsAvailable()).Msg("apartment-service starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// 10. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		logger.Info().Msg("shutdown signal received")
	case err := <-serveErr:
		logger.Error().Err(err).Msg("HTTP server error")
	case <-parent.Done():
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)

		// Drain HTTP first so no new tasks are dispatched
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("HTTP server forced to shutdown")
		}

		// Finish accepted sync tasks
		if err := dispatcher.Close(); err != nil {
			logger.Warn().Err(err).Msg("error closing sync dispatcher")
		}

		// Stop the consumer loop and prober
		cancel()
		if consumer != nil {
			<-consumer.Done()
		}
		if prober != nil {
			prober.Stop()
			<-prober.Done()
		}
	}()

	select {
	case <-shutdownDone:
		logger.Info().Msg("apartment-service stopped")
	case <-time.After(cfg.Server.ShutdownTimeout):
		logger.Warn().Dur("timeout", cfg.Server.ShutdownTimeout).Msg("shutdown timed out")
	}
	return nil
}

// newSyncPipeline builds the dispatcher for the configured sync driver. With
// a bus driver it also starts a consumer when this instance consumes tasks.
// The returned close func releases the bus connection.
func newSyncPipeline(
	ctx context.Context,
	cfg *config.Config,
	coordinator *indexer.Coordinator,
	m *metrics.Registry,
) (indexer.Dispatcher, *indexer.Consumer, func(), error) {
	logger := pkglog.Ctx(ctx)

	if cfg.Sync.Driver == "" || cfg.Sync.Driver == "local" {
		d := indexer.NewLocalDispatcher(coordinator, cfg.Sync.Local(), m)
		logger.Info().Int("workers", cfg.Sync.Workers).Int("queue_size", cfg.Sync.QueueSize).Msg("local sync dispatcher started")
		return d, nil, func() {}, nil
	}

	cfg.Sync.PubSub.Driver = cfg.Sync.Driver
	bus, err := pubsub.NewPubSub(cfg.Sync.PubSub)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect sync bus: %w", err)
	}
	closeBus := func() {
		if err := bus.Close(); err != nil {
			logger.Warn().Err(err).Msg("error closing sync bus")
		}
	}

	d := indexer.NewBusDispatcher(bus, 0, m)

	var consumer *indexer.Consumer
	if cfg.Sync.Consume {
		consumer = indexer.NewConsumer(bus, coordinator, cfg.Sync.TaskTimeout, m)
		if err := consumer.Start(ctx); err != nil {
			closeBus()
			return nil, nil, nil, fmt.Errorf("failed to start sync consumer: %w", err)
		}
		logger.Info().Str("driver", cfg.Sync.Driver).Msg("sync consumer started")
	}

	logger.Info().Str("driver", cfg.Sync.Driver).Msg("bus sync dispatcher started")
	return d, consumer, closeBus, nil
}

// newApartmentCache connects the Redis read-through cache, falling back to a
// no-op cache when disabled or unreachable.
func newApartmentCache(cfg *config.Config) cache.ApartmentCache {
	logger := pkglog.L()
	if !cfg.Cache.Enabled {
		return cache.NoopCache{}
	}

	c, err := cache.NewRedisApartmentCache(cfg.Cache.Redis, cfg.Cache.Prefix)
	if err != nil {
		logger.Warn().Err(err).Str("addr", cfg.Cache.Redis.Address).Msg("failed to connect apartment cache, caching disabled")
		return cache.NoopCache{}
	}
	logger.Info().Str("addr", cfg.Cache.Redis.Address).Dur("ttl", cfg.Cache.TTL).Msg("apartment cache connected")
	return c
}
