package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/xu-rsd-gen/internal/formatter"
	"github.com/kyleking/xu-rsd-gen/internal/xu"
)

func ColumnsCommand() *cli.Command {
	return &cli.Command{
		Name:        "columns",
		Usage:       "Show the result columns of an extraction",
		Description: `List the result columns of an extraction with the RSD type each one maps to.`,
		ArgsUsage:   " <extraction>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "parameters", Aliases: []string{"p"}, Usage: "Also list custom run parameters"},
		},
		Action: withConfig(func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args()
			if args.Len() != 1 {
				return fmt.Errorf("expected exactly 1 argument, got %d", args.Len())
			}

			cfg := getConfigFromContext(ctx)

			client, release := newMetadataClient(cfg)
			defer release()

			return runColumnsWithClient(ctx, client, args.First(), cmd.Bool("parameters"))
		}),
	}
}

func runColumnsWithClient(ctx context.Context, client xu.Client, extraction string, withParameters bool) error {
	columns, err := client.ListColumns(ctx, extraction)
	if err != nil {
		return fmt.Errorf("failed to get columns of %s: %w", extraction, err)
	}

	f := formatter.NewFormatter()

	fmt.Printf("Columns of %s:\n", extraction)
	fmt.Println(f.FormatColumns(columns))

	if !withParameters {
		return nil
	}

	parameters, err := client.ListParameters(ctx, extraction)
	if err != nil {
		return fmt.Errorf("failed to get parameters of %s: %w", extraction, err)
	}

	fmt.Printf("\nCustom parameters of %s:\n", extraction)
	fmt.Println(f.FormatParameters(parameters))

	return nil
}
