package storage

import (
	"time"

	"github.com/kyleking/xu-rsd-gen/internal/config"
	"github.com/kyleking/xu-rsd-gen/internal/errors"
)

// NewDuckDBRepositoryFromConfig creates a new DuckDB repository with settings from config
func NewDuckDBRepositoryFromConfig(cfg *config.DatabaseConfig) (*DuckDBRepository, error) {
	queryTimeout, err := time.ParseDuration(cfg.QueryTimeout)
	if err != nil {
		return nil, errors.NewConfigError("invalid query_timeout: "+err.Error(), "database.query_timeout")
	}

	return NewDuckDBRepositoryWithTimeout(cfg.Path, queryTimeout)
}
