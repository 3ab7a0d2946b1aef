package cmd

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/xu-rsd-gen/internal/config"
	"github.com/kyleking/xu-rsd-gen/internal/logging"
)

var (
	Version = "dev"
	Commit  = "none"
)

type configKey struct{}

// NewApp builds the root command
func NewApp() *cli.Command {
	return &cli.Command{
		Name:    "xu-rsd-gen",
		Usage:   "Generate CData RSD schema files from Xtract Universal extractions",
		Version: Version + " (" + Commit + ")",
		Description: `xu-rsd-gen reads extraction metadata from an Xtract Universal server and
writes one RSD file per extraction, plus one sliding-window file per configured
date column, by filling in a template RSD.`,
		Flags: globalFlags(),
		Commands: []*cli.Command{
			GenerateCommand(),
			PlanCommand(),
			ListCommand(),
			ColumnsCommand(),
			HistoryCommand(),
			StatsCommand(),
			ClearCommand(),
			ConfigCommand(),
		},
	}
}

// Execute runs the CLI with the process arguments
func Execute(ctx context.Context) error {
	return NewApp().Run(ctx, os.Args)
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "base-url", Usage: "Xtract Universal server address"},
		&cli.StringFlag{Name: "log-level", Usage: "Log level (debug, info, warn, error)"},
		&cli.BoolFlag{Name: "verbose", Usage: "Verbose output"},
		&cli.BoolFlag{Name: "debug", Usage: "Debug logging"},
		&cli.StringFlag{Name: "db-path", Usage: "Generation history database path"},
		&cli.StringFlag{Name: "cache-dir", Usage: "Cache metadata responses in this directory"},
		&cli.StringFlag{Name: "env-file", Usage: "Load environment variables from this file"},
	}
}

// Flags that map onto config overrides, looked up through the command lineage
var (
	stringOverrides = []string{
		"base-url", "log-level", "db-path", "cache-dir", "env-file",
		"filter", "template", "output-dir",
	}
	boolOverrides = []string{"verbose", "debug", "force-destination-type", "no-history"}
)

func flagOverrides(cmd *cli.Command) map[string]interface{} {
	overrides := make(map[string]interface{})

	for _, name := range stringOverrides {
		if cmd.IsSet(name) {
			overrides[name] = cmd.String(name)
		}
	}

	for _, name := range boolOverrides {
		if cmd.IsSet(name) {
			overrides[name] = cmd.Bool(name)
		}
	}

	if cmd.IsSet("sliding-days") {
		overrides["sliding-days"] = int(cmd.Int("sliding-days"))
	}

	if cmd.IsSet("sliding-column") {
		overrides["sliding-columns"] = cmd.StringSlice("sliding-column")
	}

	if cmd.IsSet("all") && cmd.Bool("all") {
		overrides["filter"] = ""
	}

	return overrides
}

// withConfig loads configuration and the logger before running action
func withConfig(action cli.ActionFunc) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := config.LoadConfigWithOverrides(flagOverrides(cmd))
		if err != nil {
			return err
		}

		cfg.ExpandAllPaths()

		if cfg.Debug.Enabled || cfg.Debug.Verbose {
			cfg.Logging.Level = "debug"
		}

		if err := logging.InitializeLogger(cfg.Logging); err != nil {
			logging.SetupFallbackLogger()
			logging.WithError(err).Warn("Failed to initialize logger, using stderr")
		}

		logging.WithFields(cfg.Fields()).Debug("Resolved configuration")

		return action(contextWithConfig(ctx, cfg), cmd)
	}
}

func contextWithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// getConfigFromContext returns the configuration stored by withConfig,
// loading it from the environment when absent
func getConfigFromContext(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey{}).(*config.Config); ok && cfg != nil {
		return cfg
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logging.WithError(err).Warn("Failed to load configuration, using defaults")
		return config.DefaultConfig()
	}

	cfg.ExpandAllPaths()

	return cfg
}
