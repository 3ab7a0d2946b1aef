package rsd

import (
	"github.com/kyleking/xu-rsd-gen/internal/config"
	"github.com/kyleking/xu-rsd-gen/internal/logging"
)

// NewPlannerFromConfig builds a planner from the service and generation settings
func NewPlannerFromConfig(cfg *config.Config) *Planner {
	return &Planner{
		BaseURL:              cfg.Service.BaseURL,
		OutputDir:            cfg.Generation.TargetFolder,
		DestinationParameter: cfg.Service.DestinationTypeParameter,
		ForceDestinationType: cfg.Service.ForceDestinationType,
		SlidingDays:          cfg.Generation.SlidingDays,
		SlidingColumns:       append([]string(nil), cfg.Generation.SlidingColumns...),
	}
}

// LoadTemplateFromConfig loads the configured template
func LoadTemplateFromConfig(cfg *config.Config, logger *logging.Logger) (*Template, error) {
	t, err := LoadTemplate(cfg.Generation.Template)
	if err != nil {
		return nil, err
	}

	return t.WithLogger(logger), nil
}
