// internal/catalog/products/config.go
package products

import (
	"time"

	"catalog-search/internal/catalog/filters"
	"catalog-search/internal/common/config"
)

type Config struct {
	QueryTimeout    time.Duration
	ConcurrentCount bool
	Limits          filters.Limits
}

func LoadConfig(cfg config.CatalogConfig) *Config {
	return &Config{
		QueryTimeout:    config.GetDuration(cfg.QueryTimeout),
		ConcurrentCount: cfg.ConcurrentCount,
		Limits: filters.Limits{
			DefaultPageSize: cfg.DefaultPageSize,
			MaxPageSize:     cfg.MaxPageSize,
		},
	}
}
