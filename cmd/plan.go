package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/xu-rsd-gen/internal/config"
	"github.com/kyleking/xu-rsd-gen/internal/errors"
	"github.com/kyleking/xu-rsd-gen/internal/formatter"
	"github.com/kyleking/xu-rsd-gen/internal/generator"
	"github.com/kyleking/xu-rsd-gen/internal/rsd"
	"github.com/kyleking/xu-rsd-gen/internal/xu"
)

func PlanCommand() *cli.Command {
	return &cli.Command{
		Name:        "plan",
		Usage:       "Show the files generate would write, without writing them",
		Description: `Fetch extractions and columns and print every planned output path with its source URL.`,
		Flags:       generationFlags(),
		Action: withConfig(func(ctx context.Context, cmd *cli.Command) error {
			cfg := getConfigFromContext(ctx)

			client, release := newMetadataClient(cfg)
			defer release()

			return runPlanWithClient(ctx, cfg, client, cmd.StringSlice("extraction"))
		}),
	}
}

func runPlanWithClient(ctx context.Context, cfg *config.Config, client xu.Client, names []string) error {
	extractions, err := client.ListExtractions(ctx, cfg.Service.FilterDestinationType)
	if err != nil {
		return err
	}

	extractions, err = generator.SelectExtractions(extractions, names)
	if err != nil {
		return err
	}

	if len(extractions) == 0 {
		fmt.Println("No extractions found.")
		return nil
	}

	driver := &generator.Driver{
		Source:  client,
		Planner: rsd.NewPlannerFromConfig(cfg),
	}

	plans, failures, err := driver.Plans(ctx, extractions)
	if err != nil {
		return err
	}

	f := formatter.NewFormatter()
	files := 0

	for _, plan := range plans {
		fmt.Println(f.FormatPlan(plan))
		fmt.Println()

		files += plan.Len()
	}

	fmt.Printf("%d files from %d extractions.\n", files, len(plans))

	if len(failures) > 0 {
		for _, failure := range failures {
			fmt.Printf("  • %s: %v\n", failure.Extraction, failure.Err)
		}

		return errors.Newf(errors.ErrTypeMetadata, "could not plan %d extractions", len(failures))
	}

	return nil
}
