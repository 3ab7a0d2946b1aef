package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kyleking/xu-rsd-gen/internal/config"
	"github.com/kyleking/xu-rsd-gen/internal/errors"
)

const (
	dataSuffix = ".data"
	metaSuffix = ".meta"

	dirPerm  = 0755
	filePerm = 0600

	bytesPerMB = 1024 * 1024
)

// ErrMiss is returned by Get when a key is absent or expired
var ErrMiss = errors.New(errors.ErrTypeCache, "cache miss")

// Cache stores metadata responses on disk keyed by request
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Cleanup(ctx context.Context) error
	GetStats(ctx context.Context) (*Stats, error)
}

// Entry is the metadata stored next to each cached payload
type Entry struct {
	Key       string    `json:"key"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Size      int64     `json:"size"`
}

// Stats represents cache statistics
type Stats struct {
	TotalEntries int64   `json:"total_entries"`
	TotalSize    int64   `json:"total_size"`
	HitRate      float64 `json:"hit_rate"`
	Hits         int64   `json:"hits"`
	Misses       int64   `json:"misses"`
}

// FileCache implements Cache with one data and one meta file per key
type FileCache struct {
	directory   string
	maxBytes    int64
	defaultTTL  time.Duration
	mu          sync.Mutex
	hits        int64
	misses      int64
	stopCleanup chan struct{}
	cleanupOnce sync.Once
}

// NewFileCache creates the cache directory and, when cleanupFreq is positive,
// starts a background sweep of expired entries
func NewFileCache(directory string, maxSizeMB int, defaultTTL, cleanupFreq time.Duration) (*FileCache, error) {
	if err := os.MkdirAll(directory, dirPerm); err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeFileSystem, "failed to create cache directory %s", directory)
	}

	c := &FileCache{
		directory:   directory,
		maxBytes:    int64(maxSizeMB) * bytesPerMB,
		defaultTTL:  defaultTTL,
		stopCleanup: make(chan struct{}),
	}

	if cleanupFreq > 0 {
		go c.backgroundCleanup(cleanupFreq)
	}

	return c, nil
}

// NewFileCacheFromConfig creates a file cache from the cache section. The
// directory is expected to be expanded already.
func NewFileCacheFromConfig(cfg *config.Config) (*FileCache, error) {
	ttl := cfg.CacheTTL()
	return NewFileCache(cfg.Cache.Directory, cfg.Cache.MaxSizeMB, ttl, ttl)
}

// Get returns the cached payload for key
func (c *FileCache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, err := c.readEntry(c.metaPath(key))
	if err != nil {
		c.misses++
		return nil, ErrMiss
	}

	if time.Now().After(entry.ExpiresAt) {
		c.misses++
		c.removeFiles(c.hashKey(key))

		return nil, ErrMiss
	}

	data, err := os.ReadFile(c.dataPath(key))
	if err != nil {
		c.misses++
		return nil, ErrMiss
	}

	c.hits++

	return data, nil
}

// Set stores data under key for ttl, or the default TTL when ttl is zero
func (c *FileCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if ttl == 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	entry := Entry{
		Key:       key,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		Size:      int64(len(data)),
	}

	if err := c.enforceSize(entry.Size); err != nil {
		return err
	}

	meta, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeCache, "failed to encode cache entry")
	}

	if err := os.WriteFile(c.dataPath(key), data, filePerm); err != nil {
		return errors.Wrap(err, errors.ErrTypeCache, "failed to write cache data")
	}

	if err := os.WriteFile(c.metaPath(key), meta, filePerm); err != nil {
		c.removeFiles(c.hashKey(key))
		return errors.Wrap(err, errors.ErrTypeCache, "failed to write cache metadata")
	}

	return nil
}

// Delete removes key; a missing key is not an error
func (c *FileCache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.removeFiles(c.hashKey(key))

	return nil
}

// Clear removes every entry and resets the hit counters
func (c *FileCache) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(c.directory)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeCache, "failed to read cache directory")
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			_ = os.Remove(filepath.Join(c.directory, entry.Name()))
		}
	}

	c.hits, c.misses = 0, 0

	return nil
}

// Cleanup removes expired entries
func (c *FileCache) Cleanup(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(c.directory)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeCache, "failed to read cache directory")
	}

	now := time.Now()

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), metaSuffix) {
			continue
		}

		entry, err := c.readEntry(filepath.Join(c.directory, e.Name()))
		if err != nil {
			continue
		}

		if now.After(entry.ExpiresAt) {
			c.removeFiles(strings.TrimSuffix(e.Name(), metaSuffix))
		}
	}

	return nil
}

// GetStats returns entry counts, total payload size and hit rate
func (c *FileCache) GetStats(ctx context.Context) (*Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	stats := &Stats{Hits: c.hits, Misses: c.misses}

	err := filepath.WalkDir(c.directory, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() || !strings.HasSuffix(path, dataSuffix) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		stats.TotalEntries++
		stats.TotalSize += info.Size()

		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeCache, "failed to scan cache directory")
	}

	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}

	return stats, nil
}

// Close stops the background cleanup goroutine
func (c *FileCache) Close() error {
	c.cleanupOnce.Do(func() {
		close(c.stopCleanup)
	})

	return nil
}

func (c *FileCache) readEntry(metaPath string) (*Entry, error) {
	raw, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, err
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, err
	}

	return &entry, nil
}

func (c *FileCache) dataPath(key string) string {
	return filepath.Join(c.directory, c.hashKey(key)+dataSuffix)
}

func (c *FileCache) metaPath(key string) string {
	return filepath.Join(c.directory, c.hashKey(key)+metaSuffix)
}

func (c *FileCache) removeFiles(hash string) {
	_ = os.Remove(filepath.Join(c.directory, hash+dataSuffix))
	_ = os.Remove(filepath.Join(c.directory, hash+metaSuffix))
}

// hashKey turns a request key into a short, filesystem safe name
func (c *FileCache) hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:16]
}

// enforceSize evicts the oldest entries until newSize fits. Caller holds mu.
func (c *FileCache) enforceSize(newSize int64) error {
	if c.maxBytes <= 0 {
		return nil
	}

	type candidate struct {
		hash    string
		modTime time.Time
		size    int64
	}

	entries, err := os.ReadDir(c.directory)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeCache, "failed to read cache directory")
	}

	var (
		candidates []candidate
		current    int64
	)

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), dataSuffix) {
			continue
		}

		info, err := e.Info()
		if err != nil {
			continue
		}

		current += info.Size()
		candidates = append(candidates, candidate{
			hash:    strings.TrimSuffix(e.Name(), dataSuffix),
			modTime: info.ModTime(),
			size:    info.Size(),
		})
	}

	if current+newSize <= c.maxBytes {
		return nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].modTime.Before(candidates[j].modTime)
	})

	needed := current + newSize - c.maxBytes

	for _, cand := range candidates {
		if needed <= 0 {
			break
		}

		c.removeFiles(cand.hash)
		needed -= cand.size
	}

	return nil
}

func (c *FileCache) backgroundCleanup(freq time.Duration) {
	ticker := time.NewTicker(freq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = c.Cleanup(context.Background())
		case <-c.stopCleanup:
			return
		}
	}
}
