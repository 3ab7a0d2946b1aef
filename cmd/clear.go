package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/xu-rsd-gen/internal/storage"
)

func ClearCommand() *cli.Command {
	return &cli.Command{
		Name:        "clear",
		Usage:       "Clear the generation history",
		Description: `Remove every recorded generation from the local database. Generated files are left alone. Requires confirmation.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "Skip confirmation prompt"},
		},
		Action: withConfig(func(ctx context.Context, cmd *cli.Command) error {
			return runClearWithStorage(ctx, cmd.Bool("force"), os.Stdin, nil)
		}),
	}
}

func runClearWithStorage(ctx context.Context, force bool, in io.Reader, repo storage.Repository) error {
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

	if stats.TotalFiles == 0 {
		fmt.Println("History is already empty.")
		return nil
	}

	fmt.Printf("This will delete:\n")
	fmt.Printf("  • %d generated file records\n", stats.TotalFiles)
	fmt.Printf("  • %d runs\n", stats.TotalRuns)

	if !force {
		fmt.Printf("\nAre you sure you want to clear the history? This action cannot be undone.\n")
		fmt.Printf("Type 'yes' to confirm: ")

		response, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("failed to read input: %w", err)
		}

		if strings.TrimSpace(strings.ToLower(response)) != "yes" {
			fmt.Println("Operation cancelled.")
			return nil
		}
	}

	if err := repo.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}

	fmt.Println("History cleared successfully.")

	return nil
}
