package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/xu-rsd-gen/internal/formatter"
	"github.com/kyleking/xu-rsd-gen/internal/storage"
)

func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:        "stats",
		Usage:       "Display generation history statistics",
		Description: `Show how many files were generated, for how many extractions and runs, and the database size.`,
		Action: withConfig(func(ctx context.Context, _ *cli.Command) error {
			return runStatsWithStorage(ctx, nil)
		}),
	}
}

func runStatsWithStorage(ctx context.Context, repo storage.Repository) error {
	// Initialize storage if not provided (for testing)
	if repo == nil {
		var err error

		repo, err = initializeStorage(ctx, getConfigFromContext(ctx))
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}

		defer repo.Close()
	}

	stats, err := repo.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("failed to get statistics: %w", err)
	}

	fmt.Println(formatter.NewFormatter().FormatStats(stats))

	return nil
}
