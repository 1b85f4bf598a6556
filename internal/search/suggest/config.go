// internal/search/suggest/config.go
package suggest

import (
	"time"

	"catalog-search/internal/common/config"
)

type Config struct {
	Index          string
	DefaultLimit   int
	MaxLimit       int
	MinQueryLength int
	CacheTTL       time.Duration
	CacheTimeout   time.Duration
	IndexTimeout   time.Duration
	QueryTimeout   time.Duration
}

func LoadConfig(cfg config.SearchConfig) *Config {
	return &Config{
		Index:          cfg.Index,
		DefaultLimit:   cfg.SuggestLimit,
		MaxLimit:       cfg.MaxSuggestLimit,
		MinQueryLength: cfg.MinSearchLength,
		CacheTTL:       config.GetSeconds(cfg.CacheTTL),
		CacheTimeout:   config.GetDuration(cfg.CacheTimeout),
		IndexTimeout:   config.GetDuration(cfg.IndexTimeout),
		QueryTimeout:   config.GetDuration(cfg.QueryTimeout),
	}
}

const defaultCacheTimeout = 200 * time.Millisecond

func (c *Config) cacheTimeout() time.Duration {
	if c.CacheTimeout <= 0 {
		return defaultCacheTimeout
	}
	return c.CacheTimeout
}

// NormalizeLimit maps non-positive limits to the default and caps the rest.
func (c *Config) NormalizeLimit(limit int) int {
	def, max := c.DefaultLimit, c.MaxLimit
	if def <= 0 {
		def = 8
	}
	if max <= 0 {
		max = 50
	}
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
