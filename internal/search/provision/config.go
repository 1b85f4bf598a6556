// internal/search/provision/config.go
package provision

import (
	"time"

	"catalog-search/internal/common/config"
)

type Config struct {
	Index      string
	MaxRetries int
	Backoff    time.Duration
	SeedLimit  int
	Timeout    time.Duration
}

func LoadConfig(cfg config.ProvisionerConfig, index string) *Config {
	return &Config{
		Index:      index,
		MaxRetries: cfg.MaxRetries,
		Backoff:    config.GetDuration(cfg.Backoff),
		SeedLimit:  cfg.SeedLimit,
		Timeout:    config.GetDuration(cfg.Timeout),
	}
}
