// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Catalog     CatalogConfig     `mapstructure:"catalog"`
	Search      SearchConfig      `mapstructure:"search"`
	Provisioner ProvisionerConfig `mapstructure:"provisioner"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address         string `mapstructure:"address"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// ElasticsearchConfig is optional: with no address the service runs on the
// relational fallback only.
type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	APIKey    string   `mapstructure:"api_key"`
	URL       string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

// Enabled reports whether an index node is configured.
func (e ElasticsearchConfig) Enabled() bool {
	return e.GetURL() != ""
}

// RedisConfig is optional; it only backs the suggestion cache.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// --- Specific Configuration Sections ---

// CatalogConfig holds settings for product listing and lookup.
type CatalogConfig struct {
	DefaultPageSize int  `mapstructure:"default_page_size"`
	MaxPageSize     int  `mapstructure:"max_page_size"`
	QueryTimeout    int  `mapstructure:"query_timeout"` // milliseconds
	ConcurrentCount bool `mapstructure:"concurrent_count"`
}

// SearchConfig holds settings for the suggest engine.
type SearchConfig struct {
	Index           string `mapstructure:"index"`
	SuggestLimit    int    `mapstructure:"suggest_limit"`
	MaxSuggestLimit int    `mapstructure:"max_suggest_limit"`
	MinSearchLength int    `mapstructure:"min_search_length"`
	CacheEnabled    bool   `mapstructure:"cache_enabled"`
	CacheTTL        int    `mapstructure:"cache_ttl"`     // seconds
	CacheTimeout    int    `mapstructure:"cache_timeout"` // milliseconds
	IndexTimeout    int    `mapstructure:"index_timeout"` // milliseconds
	QueryTimeout    int    `mapstructure:"query_timeout"` // milliseconds

	// CacheUnavailable is set when caching was wanted but no redis address
	// is configured.
	CacheUnavailable bool `mapstructure:"-"`
}

// ProvisionerConfig holds settings for the startup index provisioner.
type ProvisionerConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	MaxRetries int  `mapstructure:"max_retries"`
	Backoff    int  `mapstructure:"backoff"` // milliseconds
	SeedLimit  int  `mapstructure:"seed_limit"`
	Timeout    int  `mapstructure:"timeout"` // milliseconds, per step
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
