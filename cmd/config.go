package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/xu-rsd-gen/internal/config"
	"github.com/kyleking/xu-rsd-gen/internal/errors"
)

func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:        "config",
		Usage:       "Display the active configuration",
		Description: `Show the current active configuration including all settings from file, environment variables, and command-line flags.`,
		Action:      withConfig(runConfig),
	}
}

func runConfig(ctx context.Context, _ *cli.Command) error {
	return printConfig(getConfigFromContext(ctx))
}

func printConfig(cfg *config.Config) error {
	if cfg == nil {
		return errors.NewConfigError("failed to load configuration", "")
	}

	fmt.Println("====================")
	fmt.Println("Active Configuration:")

	fmt.Println("\nService:")
	fmt.Printf("  Base URL: %s\n", cfg.Service.BaseURL)
	fmt.Printf("  Filter Destination Type: %s\n", valueOrAll(cfg.Service.FilterDestinationType))
	fmt.Printf("  Destination Parameter: %s\n", cfg.Service.DestinationTypeParameter)
	fmt.Printf("  Force Destination Type: %t\n", cfg.Service.ForceDestinationType)
	fmt.Printf("  Timeout: %s\n", cfg.Service.Timeout)
	fmt.Printf("  Rate Limit: %.1f req/s\n", cfg.Service.RateLimit)

	fmt.Println("\nGeneration:")
	fmt.Printf("  Template: %s\n", cfg.Generation.Template)
	fmt.Printf("  Target Folder: %s\n", cfg.Generation.TargetFolder)
	fmt.Printf("  Sliding Days: %d\n", cfg.Generation.SlidingDays)
	fmt.Printf("  Sliding Columns: %v\n", []string(cfg.Generation.SlidingColumns))

	fmt.Println("\nDatabase:")
	fmt.Printf("  Enabled: %t\n", cfg.Database.Enabled)
	fmt.Printf("  Path: %s\n", cfg.Database.Path)
	fmt.Printf("  Query Timeout: %s\n", cfg.Database.QueryTimeout)

	fmt.Println("\nCache:")
	fmt.Printf("  Enabled: %t\n", cfg.Cache.Enabled)
	fmt.Printf("  Directory: %s\n", cfg.Cache.Directory)
	fmt.Printf("  TTL: %s\n", cfg.Cache.TTL)
	fmt.Printf("  Max Size: %d MB\n", cfg.Cache.MaxSizeMB)

	fmt.Println("\nLogging:")
	fmt.Printf("  Level: %s\n", cfg.Logging.Level)
	fmt.Printf("  Format: %s\n", cfg.Logging.Format)
	fmt.Printf("  Output: %s\n", cfg.Logging.Output)

	if cfg.Logging.Output == "file" {
		fmt.Printf("  File: %s\n", cfg.Logging.File)
	}

	fmt.Println("\nDebug:")
	fmt.Printf("  Enabled: %t\n", cfg.Debug.Enabled)
	fmt.Printf("  Verbose: %t\n", cfg.Debug.Verbose)

	// Show raw JSON if debug is enabled
	if cfg.Debug.Enabled {
		fmt.Println("\nRaw Configuration (JSON):")
		fmt.Println("==========================")

		jsonData, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config to JSON: %w", err)
		}

		fmt.Println(string(jsonData))
	}

	return nil
}

func valueOrAll(s string) string {
	if s == "" {
		return "(all)"
	}

	return s
}
