package xu

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kyleking/xu-rsd-gen/internal/cache"
	"github.com/kyleking/xu-rsd-gen/internal/logging"
)

// CachedClient wraps a Client and stores its responses in a file cache
type CachedClient struct {
	client Client
	cache  cache.Cache
	ttl    time.Duration
	logger *logging.Logger
}

// NewCachedClient creates a caching decorator; ttl zero uses the cache default
func NewCachedClient(client Client, c cache.Cache, ttl time.Duration, logger *logging.Logger) *CachedClient {
	if logger == nil {
		logger = logging.Discard()
	}

	return &CachedClient{
		client: client,
		cache:  c,
		ttl:    ttl,
		logger: logger,
	}
}

// CacheEntry is the envelope stored for every cached response
type CacheEntry struct {
	Data     json.RawMessage `json:"data"`
	CachedAt time.Time       `json:"cached_at"`
	Type     string          `json:"type"`
}

// ListExtractions returns the cached extraction list or fetches it
func (c *CachedClient) ListExtractions(ctx context.Context, destinationType string) ([]Extraction, error) {
	key := "extractions:" + destinationType

	var extractions []Extraction
	if c.load(ctx, key, &extractions) {
		return extractions, nil
	}

	extractions, err := c.client.ListExtractions(ctx, destinationType)
	if err != nil {
		return nil, err
	}

	c.store(ctx, key, "extractions", extractions)

	return extractions, nil
}

// ListColumns returns the cached columns of an extraction or fetches them
func (c *CachedClient) ListColumns(ctx context.Context, extraction string) ([]Column, error) {
	key := "columns:" + extraction

	var columns []Column
	if c.load(ctx, key, &columns) {
		return columns, nil
	}

	columns, err := c.client.ListColumns(ctx, extraction)
	if err != nil {
		return nil, err
	}

	c.store(ctx, key, "columns", columns)

	return columns, nil
}

// ListParameters returns the cached parameters of an extraction or fetches them
func (c *CachedClient) ListParameters(ctx context.Context, extraction string) ([]Parameter, error) {
	key := "parameters:" + extraction

	var parameters []Parameter
	if c.load(ctx, key, &parameters) {
		return parameters, nil
	}

	parameters, err := c.client.ListParameters(ctx, extraction)
	if err != nil {
		return nil, err
	}

	c.store(ctx, key, "parameters", parameters)

	return parameters, nil
}

// Invalidate drops the cached columns and parameters of an extraction
func (c *CachedClient) Invalidate(ctx context.Context, extraction string) error {
	for _, key := range []string{"columns:" + extraction, "parameters:" + extraction} {
		if err := c.cache.Delete(ctx, key); err != nil {
			return err
		}
	}

	return nil
}

func (c *CachedClient) load(ctx context.Context, key string, target any) bool {
	raw, err := c.cache.Get(ctx, key)
	if err != nil {
		return false
	}

	var entry CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.logger.WithField("key", key).WithError(err).Debug("discarding unreadable cache entry")
		return false
	}

	if err := json.Unmarshal(entry.Data, target); err != nil {
		c.logger.WithField("key", key).WithError(err).Debug("discarding unreadable cache entry")
		return false
	}

	c.logger.WithField("key", key).Debug("metadata served from cache")

	return true
}

// store caches data, logging failures
func (c *CachedClient) store(ctx context.Context, key, entryType string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		c.logger.WithField("key", key).WithError(err).Warn("failed to encode cache entry")
		return
	}

	raw, err := json.Marshal(CacheEntry{
		Data:     payload,
		CachedAt: time.Now(),
		Type:     entryType,
	})
	if err != nil {
		c.logger.WithField("key", key).WithError(err).Warn("failed to encode cache entry")
		return
	}

	if err := c.cache.Set(ctx, key, raw, c.ttl); err != nil {
		c.logger.WithField("key", key).WithError(err).Warn("failed to write cache entry")
	}
}
