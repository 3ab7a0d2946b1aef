package cmd

import (
	"github.com/kyleking/xu-rsd-gen/internal/cache"
	"github.com/kyleking/xu-rsd-gen/internal/config"
	"github.com/kyleking/xu-rsd-gen/internal/logging"
	"github.com/kyleking/xu-rsd-gen/internal/xu"
)

// newMetadataClient builds the HTTP client, wrapped in a file cache when
// caching is enabled. The returned func releases the cache.
func newMetadataClient(cfg *config.Config) (xu.Client, func()) {
	logger := logging.GetLogger()
	client := xu.NewClientFromConfig(cfg, logger)

	if !cfg.Cache.Enabled {
		return client, func() {}
	}

	fc, err := cache.NewFileCacheFromConfig(cfg)
	if err != nil {
		logger.WithError(err).Warn("Metadata cache unavailable, continuing without it")
		return client, func() {}
	}

	logger.WithField("directory", cfg.Cache.Directory).Debug("Caching metadata responses")

	return xu.NewCachedClient(client, fc, cfg.CacheTTL(), logger), func() { _ = fc.Close() }
}
