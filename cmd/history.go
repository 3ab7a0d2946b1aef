package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/xu-rsd-gen/internal/formatter"
	"github.com/kyleking/xu-rsd-gen/internal/storage"
)

func HistoryCommand() *cli.Command {
	return &cli.Command{
		Name:        "history",
		Usage:       "Show recently generated files",
		Description: `List the most recently generated RSD files from the local history database.`,
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 20, Usage: "Maximum number of entries"},
			&cli.BoolFlag{Name: "runs", Usage: "Summarize by run instead of listing files"},
			&cli.BoolFlag{Name: "long", Aliases: []string{"l"}, Usage: "Show all fields"},
		},
		Action: withConfig(func(ctx context.Context, cmd *cli.Command) error {
			format := formatter.FormatShort
			if cmd.Bool("long") {
				format = formatter.FormatLong
			}

			return runHistoryWithStorage(ctx, int(cmd.Int("limit")), cmd.Bool("runs"), format, nil)
		}),
	}
}

func runHistoryWithStorage(
	ctx context.Context,
	limit int,
	byRun bool,
	format formatter.OutputFormat,
	repo storage.Repository,
) error {
	if repo == nil {
		var err error

		repo, err = initializeStorage(ctx, getConfigFromContext(ctx))
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}

		defer repo.Close()
	}

	if limit <= 0 {
		limit = 20
	}

	f := formatter.NewFormatter()

	if byRun {
		runs, err := repo.ListRuns(ctx, limit)
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}

		if len(runs) == 0 {
			fmt.Println("No generation runs recorded.")
			return nil
		}

		for _, run := range runs {
			fmt.Println(f.FormatRun(run))
		}

		return nil
	}

	records, err := repo.ListGenerations(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list generations: %w", err)
	}

	if len(records) == 0 {
		fmt.Println("No generated files recorded.")
		return nil
	}

	for i, rec := range records {
		if format == formatter.FormatLong && i > 0 {
			fmt.Println()
		}

		fmt.Println(f.FormatGeneration(rec, format))
	}

	return nil
}
