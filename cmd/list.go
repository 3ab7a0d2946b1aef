package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/xu-rsd-gen/internal/formatter"
	"github.com/kyleking/xu-rsd-gen/internal/xu"
)

func ListCommand() *cli.Command {
	return &cli.Command{
		Name:        "list",
		Usage:       "List extractions on the server",
		Description: `Display the extractions defined on the Xtract Universal server, filtered by destination type unless --all is given.`,
		Flags: append(filterFlags(),
			&cli.BoolFlag{Name: "long", Aliases: []string{"l"}, Usage: "Show all fields"},
		),
		Action: withConfig(func(ctx context.Context, cmd *cli.Command) error {
			cfg := getConfigFromContext(ctx)

			client, release := newMetadataClient(cfg)
			defer release()

			format := formatter.FormatShort
			if cmd.Bool("long") {
				format = formatter.FormatLong
			}

			return runListWithClient(ctx, client, cfg.Service.FilterDestinationType, format)
		}),
	}
}

func runListWithClient(ctx context.Context, client xu.Client, filter string, format formatter.OutputFormat) error {
	extractions, err := client.ListExtractions(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to list extractions: %w", err)
	}

	if len(extractions) == 0 {
		fmt.Println("No extractions found.")
		return nil
	}

	f := formatter.NewFormatter()

	for i, extraction := range extractions {
		if format == formatter.FormatLong && i > 0 {
			fmt.Println()
		}

		fmt.Println(f.FormatExtraction(extraction, format))
	}

	if xu.IsDestinationType(filter) {
		fmt.Printf("\n%d extractions with destination %s.\n", len(extractions), filter)
	} else {
		fmt.Printf("\n%d extractions.\n", len(extractions))
	}

	return nil
}
