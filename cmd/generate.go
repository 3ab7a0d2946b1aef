package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/urfave/cli/v3"

	"github.com/kyleking/xu-rsd-gen/internal/config"
	"github.com/kyleking/xu-rsd-gen/internal/generator"
	"github.com/kyleking/xu-rsd-gen/internal/logging"
	"github.com/kyleking/xu-rsd-gen/internal/rsd"
	"github.com/kyleking/xu-rsd-gen/internal/xu"
)

func GenerateCommand() *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "Generate RSD files for all matching extractions",
		Description: `Fetch the extraction list and the result columns of each extraction, then
write <name>.rsd and one <name>_sliding_<column>_<days>days.rsd per configured
sliding column into the output directory. Failing extractions are skipped and
reported; the command exits non-zero when anything failed.`,
		Flags: append(generationFlags(),
			&cli.BoolFlag{Name: "no-history", Usage: "Do not record generated files"},
		),
		Action: withConfig(func(ctx context.Context, cmd *cli.Command) error {
			return runGenerate(ctx, cmd.StringSlice("extraction"))
		}),
	}
}

func runGenerate(ctx context.Context, names []string) error {
	cfg := getConfigFromContext(ctx)

	client, release := newMetadataClient(cfg)
	defer release()

	var recorder generator.HistoryRecorder

	if cfg.Database.Enabled {
		repo, err := initializeStorage(ctx, cfg)
		if err != nil {
			logging.GetLogger().WithError(err).Warn("Generation history disabled")
		} else {
			defer repo.Close()

			recorder = repo
		}
	}

	return runGenerateWithClient(ctx, cfg, client, recorder, names)
}

func runGenerateWithClient(
	ctx context.Context,
	cfg *config.Config,
	client xu.Client,
	recorder generator.HistoryRecorder,
	names []string,
) error {
	logger := logging.GetLogger()

	template, err := rsd.LoadTemplateFromConfig(cfg, logger)
	if err != nil {
		return err
	}

	extractions, err := fetchExtractions(ctx, cfg, client, names)
	if err != nil {
		return err
	}

	if len(extractions) == 0 {
		fmt.Println("No extractions found.")
		return nil
	}

	driver := &generator.Driver{
		Source:   client,
		Template: template,
		Planner:  rsd.NewPlannerFromConfig(cfg),
		Recorder: recorder,
		Logger:   logger,
		Progress: func(p generator.Progress) {
			fmt.Println(p.String())
		},
	}

	report, err := driver.Run(ctx, extractions)
	if report != nil {
		printReport(report)
	}

	if err != nil {
		return err
	}

	return report.Err()
}

// fetchExtractions lists extractions behind a spinner and applies --extraction
func fetchExtractions(ctx context.Context, cfg *config.Config, client xu.Client, names []string) ([]xu.Extraction, error) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " Fetching extractions from " + cfg.Service.BaseURL
	s.Start()

	var extractions []xu.Extraction

	err := logging.Track("list_extractions", func() error {
		var err error
		extractions, err = client.ListExtractions(ctx, cfg.Service.FilterDestinationType)

		return err
	})

	s.Stop()

	if err != nil {
		return nil, err
	}

	return generator.SelectExtractions(extractions, names)
}

func printReport(report *generator.Report) {
	fmt.Printf("\nGenerated %d files for %d of %d extractions.\n",
		report.FilesWritten, report.Processed, report.Total)

	if !report.HasFailures() {
		return
	}

	fmt.Printf("%d failures:\n", len(report.Failures))

	for _, failure := range report.Failures {
		target := failure.Extraction
		if failure.Path != "" {
			target = failure.Path
		}

		fmt.Printf("  • %s: %v\n", target, failure.Err)
	}
}
