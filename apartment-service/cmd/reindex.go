package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/manyalawy/nawy/apartment-service/internal/config"
	"github.com/manyalawy/nawy/apartment-service/internal/domain"
	"github.com/manyalawy/nawy/apartment-service/internal/indexer"
	"github.com/manyalawy/nawy/apartment-service/internal/metrics"
	"github.com/manyalawy/nawy/apartment-service/internal/repository"
	"github.com/manyalawy/nawy/pkg/database"
	pkglog "github.com/manyalawy/nawy/pkg/log"
)

func reindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the search index from the database and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := bootstrap()
			if err != nil {
				return err
			}
			db, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			defer database.Close(db)

			ctx := pkglog.WithLogger(cmd.Context(), pkglog.L())
			result, err := reindex(ctx, cfg, db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d apartments in %dms\n", result.Indexed, result.Duration)
			return nil
		},
	}
}

// reindex runs one full reindex against the configured engine.
func reindex(ctx context.Context, cfg *config.Config, db *gorm.DB) (domain.ReindexResult, error) {
	m := metrics.NewRegistry()
	client := newSearchClient(ctx, cfg, m)
	coordinator := indexer.NewCoordinator(repository.NewGormApartmentRepository(db), client, cfg.Search.BatchSize, m)

	result, err := coordinator.FullReindex(ctx)
	if err != nil {
		return result, fmt.Errorf("full reindex: %w", err)
	}
	return result, nil
}
