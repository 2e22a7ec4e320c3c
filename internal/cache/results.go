package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spherical/payroll-extract/internal/domain"
)

// CachedResult is the stored form of a successful extraction.
type CachedResult struct {
	Payroll            domain.PayrollSnapshot `json:"payroll"`
	Period             domain.PeriodDetection `json:"period"`
	Pages              int                    `json:"pages"`
	LinesScanned       int                    `json:"lines_scanned"`
	BlocksFound        int                    `json:"blocks_found"`
	DuplicatesResolved int                    `json:"duplicates_resolved"`
	Anomalies          []domain.Anomaly       `json:"anomalies,omitempty"`
	Rejections         []domain.Rejection     `json:"rejections,omitempty"`
	CachedAt           time.Time              `json:"cached_at"`
}

// ResultCacheConfig configures the result cache.
type ResultCacheConfig struct {
	TTL       time.Duration // 0 keeps entries until evicted
	KeyPrefix string
}

// DefaultResultCacheConfig returns default cache configuration.
func DefaultResultCacheConfig() ResultCacheConfig {
	return ResultCacheConfig{
		TTL:       24 * time.Hour,
		KeyPrefix: "result",
	}
}

// ResultCache stores extraction results keyed by document content and options.
type ResultCache struct {
	client Client
	config ResultCacheConfig
	logger *domain.Logger
}

// NewResultCache creates a result cache over any Client.
func NewResultCache(client Client, config ResultCacheConfig, logger *domain.Logger) *ResultCache {
	if config.KeyPrefix == "" {
		config.KeyPrefix = DefaultResultCacheConfig().KeyPrefix
	}
	if logger == nil {
		logger = domain.DefaultLogger
	}
	return &ResultCache{
		client: client,
		config: config,
		logger: logger.WithPrefix("cache"),
	}
}

// Key derives the cache key from the document bytes and an options fingerprint.
func (c *ResultCache) Key(document []byte, fingerprint string) string {
	sum := sha256.Sum256(document)
	opts := sha256.Sum256([]byte(fingerprint))
	return CacheKey(c.config.KeyPrefix, hex.EncodeToString(sum[:]), hex.EncodeToString(opts[:8]))
}

// Get returns the cached result for key, or ErrCacheMiss.
func (c *ResultCache) Get(ctx context.Context, key string) (*CachedResult, error) {
	data, err := c.client.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var res CachedResult
	if err := json.Unmarshal(data, &res); err != nil {
		c.logger.Warn("Dropping undecodable cache entry %s: %v", key, err)
		_ = c.client.Delete(ctx, key)
		return nil, ErrCacheMiss
	}
	return &res, nil
}

// Put stores a result under key.
func (c *ResultCache) Put(ctx context.Context, key string, res CachedResult) error {
	if res.CachedAt.IsZero() {
		res.CachedAt = time.Now().UTC()
	}
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal cached result: %w", err)
	}
	return c.client.Set(ctx, key, data, c.config.TTL)
}

// Purge removes every cached result.
func (c *ResultCache) Purge(ctx context.Context) error {
	return c.client.DeleteByPrefix(ctx, c.config.KeyPrefix+":")
}

// IsMiss reports whether err is a cache miss.
func IsMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}
