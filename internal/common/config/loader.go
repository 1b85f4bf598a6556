// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	// Enable ENV override like DATABASE_POSTGRES_HOST
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := environment()

	// 1. base config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// 2. per-environment overlay
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // ignore error if not found

	return finish(v, env)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v, environment())
}

// envOnlyKeys may be absent from every config file but still settable from the
// environment; AutomaticEnv alone only covers keys viper already knows.
var envOnlyKeys = []string{
	"app.environment",
	"catalog.concurrent_count",
	"search.cache_enabled",
	"provisioner.enabled",
}

func finish(v *viper.Viper, env string) (*Config, error) {
	for _, key := range envOnlyKeys {
		_ = v.BindEnv(key)
	}
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.App.Environment == "" {
		cfg.App.Environment = env
	}

	// Flags whose default is true cannot be expressed through the zero value.
	if !v.IsSet("catalog.concurrent_count") {
		cfg.Catalog.ConcurrentCount = true
	}
	if !v.IsSet("provisioner.enabled") {
		cfg.Provisioner.Enabled = true
	}
	cacheExplicit := v.IsSet("search.cache_enabled")

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)
	resolveCache(&cfg.Search, cfg.Database.Redis, cfg.App.Environment, cacheExplicit)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func environment() string {
	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	return env
}

// loadEnvFile loads .env from the first location that has one.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars resolves ${VAR} placeholders left in string values. An unset
// variable expands to "", which leaves optional backends disabled.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			if expanded := os.ExpandEnv(strVal); expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// resolveCache decides whether suggestions are cached. Unless set explicitly the
// cache is on in production. Without a redis address it is always off and
// CacheUnavailable records that it was wanted.
func resolveCache(search *SearchConfig, redis RedisConfig, env string, explicit bool) {
	if !explicit {
		search.CacheEnabled = env == "production"
	}
	if search.CacheEnabled && redis.Address == "" {
		search.CacheEnabled = false
		search.CacheUnavailable = true
	}
}

// overrideEmptyConfig fills connection settings from the conventional
// environment variable names when the config files left them empty.
func overrideEmptyConfig(cfg *Config) {
	pg := &cfg.Database.Postgres
	setIfEmpty(&pg.Host, "DB_HOST")
	setIfEmpty(&pg.Database, "DB_NAME")
	setIfEmpty(&pg.User, "DB_USER")
	setIfEmpty(&pg.Password, "DB_PASSWORD")

	es := &cfg.Database.Elasticsearch
	setIfEmpty(&es.URL, "ELASTICSEARCH_NODE")
	setIfEmpty(&es.Username, "ELASTICSEARCH_USERNAME")
	setIfEmpty(&es.Password, "ELASTICSEARCH_PASSWORD")
	setIfEmpty(&es.APIKey, "ELASTICSEARCH_API_KEY")
	if val := os.Getenv("ELASTICSEARCH_INDEX"); val != "" && cfg.Search.Index == "products" {
		cfg.Search.Index = val
	}

	setIfEmpty(&cfg.Database.Redis.Address, "REDIS_ADDRESS")
}

func setIfEmpty(dst *string, envKey string) {
	if *dst != "" {
		return
	}
	if val := os.Getenv(envKey); val != "" {
		*dst = val
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "catalog-search"
	}

	// Server defaults
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":3000"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 15000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30000
	}

	// Database defaults
	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 20
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}

	// Catalog defaults
	if cfg.Catalog.DefaultPageSize <= 0 {
		cfg.Catalog.DefaultPageSize = 12
	}
	if cfg.Catalog.MaxPageSize <= 0 {
		cfg.Catalog.MaxPageSize = 100
	}
	if cfg.Catalog.QueryTimeout == 0 {
		cfg.Catalog.QueryTimeout = 5000
	}

	// Search defaults
	if cfg.Search.Index == "" {
		cfg.Search.Index = "products"
	}
	if cfg.Search.SuggestLimit <= 0 {
		cfg.Search.SuggestLimit = 8
	}
	if cfg.Search.MaxSuggestLimit <= 0 {
		cfg.Search.MaxSuggestLimit = 50
	}
	if cfg.Search.MinSearchLength <= 0 {
		cfg.Search.MinSearchLength = 2
	}
	if cfg.Search.CacheTTL == 0 {
		cfg.Search.CacheTTL = 300
	}
	if cfg.Search.CacheTimeout == 0 {
		cfg.Search.CacheTimeout = 200
	}
	if cfg.Search.IndexTimeout == 0 {
		cfg.Search.IndexTimeout = 2000
	}
	if cfg.Search.QueryTimeout == 0 {
		cfg.Search.QueryTimeout = 3000
	}

	// Provisioner defaults
	if cfg.Provisioner.MaxRetries == 0 {
		cfg.Provisioner.MaxRetries = 30
	}
	if cfg.Provisioner.Backoff == 0 {
		cfg.Provisioner.Backoff = 10000
	}
	if cfg.Provisioner.SeedLimit == 0 {
		cfg.Provisioner.SeedLimit = 5000
	}
	if cfg.Provisioner.Timeout == 0 {
		cfg.Provisioner.Timeout = 60000
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}

	if cfg.Catalog.DefaultPageSize > cfg.Catalog.MaxPageSize {
		return fmt.Errorf("catalog.default_page_size (%d) exceeds catalog.max_page_size (%d)",
			cfg.Catalog.DefaultPageSize, cfg.Catalog.MaxPageSize)
	}
	if cfg.Search.SuggestLimit > cfg.Search.MaxSuggestLimit {
		return fmt.Errorf("search.suggest_limit (%d) exceeds search.max_suggest_limit (%d)",
			cfg.Search.SuggestLimit, cfg.Search.MaxSuggestLimit)
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetSeconds converts seconds from config to time.Duration
func GetSeconds(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}
