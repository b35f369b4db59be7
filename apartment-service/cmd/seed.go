package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/manyalawy/nawy/apartment-service/internal/domain"
	"github.com/manyalawy/nawy/apartment-service/internal/repository"
	"github.com/manyalawy/nawy/apartment-service/internal/search"
	"github.com/manyalawy/nawy/pkg/database"
	pkglog "github.com/manyalawy/nawy/pkg/log"
)

type seedApartment struct {
	unitName   string
	unitNumber string
	price      int64
	area       int64
	bedrooms   int
	bathrooms  int
	floor      int
	status     domain.ApartmentStatus
	features   []string
}

type seedProject struct {
	name       string
	location   string
	developer  string
	about      string
	apartments []seedApartment
}

var demoCatalog = []seedProject{
	{
		name:      "Palm Hills October",
		location:  "6th of October City, Giza",
		developer: "Palm Hills Developments",
		about:     "Gated community with landscaped parks and a central clubhouse.",
		apartments: []seedApartment{
			{"Garden Apartment", "PH-G01", 3200000, 165, 3, 2, 0, domain.StatusAvailable, []string{"private garden", "parking"}},
			{"Skyline Residence", "PH-704", 4500000, 190, 3, 3, 7, domain.StatusAvailable, []string{"balcony", "parking", "gym"}},
			{"Studio Loft", "PH-212", 1450000, 68, 1, 1, 2, domain.StatusReserved, []string{"furnished"}},
		},
	},
	{
		name:      "Mountain View iCity",
		location:  "New Cairo, Cairo",
		developer: "Mountain View",
		about:     "Mixed-use development built around a linear park.",
		apartments: []seedApartment{
			{"Park View Duplex", "MV-D14", 6800000, 260, 4, 3, 3, domain.StatusAvailable, []string{"roof terrace", "park view", "parking"}},
			{"Family Apartment", "MV-508", 3900000, 175, 3, 2, 5, domain.StatusSold, []string{"balcony", "kids area"}},
			{"Compact Two Bedroom", "MV-115", 2300000, 112, 2, 1, 1, domain.StatusAvailable, []string{"balcony"}},
		},
	},
	{
		name:      "Marassi North Coast",
		location:  "Sidi Abdel Rahman, North Coast",
		developer: "Emaar Misr",
		about:     "Seasonal resort with marina and beach access.",
		apartments: []seedApartment{
			{"Sea View Chalet", "MR-C33", 5200000, 140, 2, 2, 1, domain.StatusAvailable, []string{"sea view", "pool access"}},
			{"Marina Penthouse", "MR-P02", 12500000, 320, 4, 4, 9, domain.StatusReserved, []string{"sea view", "private pool", "roof terrace"}},
		},
	},
}

func seedCmd() *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a demo catalog and index it",
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
			count, err := seed(ctx, db, reset)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d apartments\n", count)

			result, err := reindex(ctx, cfg, db)
			if errors.Is(err, search.ErrUnavailable) {
				fmt.Fprintln(cmd.OutOrStdout(), "search index unavailable, skipped indexing")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d apartments in %dms\n", result.Indexed, result.Duration)
			return nil
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "delete all projects and apartments before seeding")
	return cmd
}

// seed writes the demo catalog. Without reset it does nothing when projects
// already exist.
func seed(ctx context.Context, db *gorm.DB, reset bool) (int, error) {
	l := pkglog.Ctx(ctx)
	projects := repository.NewGormProjectRepository(db)
	apartments := repository.NewGormApartmentRepository(db)

	if reset {
		if err := clearCatalog(ctx, db); err != nil {
			return 0, err
		}
		l.Info().Msg("catalog cleared")
	} else {
		existing, err := projects.List(ctx)
		if err != nil {
			return 0, fmt.Errorf("list projects: %w", err)
		}
		if len(existing) > 0 {
			l.Info().Int(pkglog.FieldCount, len(existing)).Msg("catalog already seeded, use --reset to reload")
			return 0, nil
		}
	}

	count := 0
	for _, sp := range demoCatalog {
		about, developer := sp.about, sp.developer
		project := &domain.Project{
			Name:        sp.name,
			Location:    sp.location,
			Description: &about,
			Developer:   &developer,
		}
		if err := projects.Create(ctx, project); err != nil {
			return count, fmt.Errorf("create project %q: %w", sp.name, err)
		}

		for _, sa := range sp.apartments {
			floor := sa.floor
			apt := &domain.Apartment{
				UnitName:   sa.unitName,
				UnitNumber: sa.unitNumber,
				ProjectID:  project.ID,
				Price:      decimal.NewFromInt(sa.price),
				Area:       decimal.NewFromInt(sa.area),
				Bedrooms:   sa.bedrooms,
				Bathrooms:  sa.bathrooms,
				Floor:      &floor,
				Features:   sa.features,
				Images:     []string{},
				Status:     sa.status,
			}
			if err := apartments.Create(ctx, apt); err != nil {
				return count, fmt.Errorf("create apartment %s: %w", sa.unitNumber, err)
			}
			count++
		}
	}
	return count, nil
}

func clearCatalog(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped()
		if err := all.Delete(&domain.ApartmentModel{}).Error; err != nil {
			return fmt.Errorf("delete apartments: %w", err)
		}
		if err := all.Delete(&domain.ProjectModel{}).Error; err != nil {
			return fmt.Errorf("delete projects: %w", err)
		}
		return nil
	})
}
