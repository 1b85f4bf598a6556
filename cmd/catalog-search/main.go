package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"catalog-search/internal/catalog/products"
	"catalog-search/internal/catalog/tags"
	"catalog-search/internal/common/config"
	"catalog-search/internal/common/database"
	"catalog-search/internal/common/logger"
	"catalog-search/internal/common/observability"
	"catalog-search/internal/search/provision"
	"catalog-search/internal/search/suggest"
	"catalog-search/internal/transport/rest"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting catalog search service...",
		zap.String("environment", cfg.App.Environment),
		zap.String("version", cfg.App.Version),
	)

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		zapLog.Warn("observability init failed, continuing without otel metrics", zap.Error(err))
		obs = nil
	}
	defer obs.Shutdown(context.Background())

	ctx := context.Background()

	// --- PostgreSQL (required) ---
	pg, err := connectPostgres(ctx, func() (*database.PostgresClient, error) {
		return database.NewPostgres(cfg.Database.Postgres)
	}, postgresRetry, zapLog)
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	var deps []rest.Dependency

	// --- Elasticsearch (optional) ---
	var es *database.ElasticsearchClient
	if cfg.Database.Elasticsearch.Enabled() {
		es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			zapLog.Warn("elasticsearch client init failed, suggestions use PostgreSQL only", zap.Error(err))
			es = nil
		} else {
			deps = append(deps, rest.Dependency{Name: "elasticsearch", Ping: es.Ping})
		}
	} else {
		zapLog.Warn("Elasticsearch is not configured, suggestions use PostgreSQL only")
	}

	// --- Redis (optional, backs the suggest cache) ---
	var cache suggest.SuggestCache
	if cfg.Search.CacheUnavailable {
		zapLog.Warn("suggest cache wanted but no redis address configured, running without cache")
	}
	if cfg.Search.CacheEnabled {
		rdb, err := database.NewRedis(cfg.Database.Redis)
		if err != nil {
			zapLog.Warn("redis init failed, suggest cache disabled", zap.Error(err))
		} else {
			defer rdb.Close()
			if err := rdb.Ping(ctx); err != nil {
				zapLog.Warn("redis not reachable yet, cache errors will be logged", zap.Error(err))
			}
			cache = suggest.NewRedisCache(rdb.Client, config.GetSeconds(cfg.Search.CacheTTL))
			deps = append(deps, rest.Dependency{Name: "redis", Ping: rdb.Ping})
		}
	}

	// --- Domain services ---
	tagAgg := tags.NewAggregator(pg.DB, log)
	productSvc := products.NewService(products.LoadConfig(cfg.Catalog), pg.DB, tagAgg, obs, log)

	suggestCfg := suggest.LoadConfig(cfg.Search)
	var sources []suggest.SuggestionSource
	if es != nil {
		sources = append(sources, suggest.NewIndexSource(es.Client, suggestCfg.Index, suggestCfg.IndexTimeout))
	}
	sources = append(sources, suggest.NewRelationalSource(pg.DB, suggestCfg.QueryTimeout))
	suggestEngine := suggest.NewFallbackSuggestEngine(suggestCfg, cache, obs, log, sources...)

	// --- Index provisioning, in the background and never fatal ---
	provisionCtx, stopProvisioning := context.WithCancel(ctx)
	defer stopProvisioning()
	if es != nil && cfg.Provisioner.Enabled {
		p := provision.New(provision.LoadConfig(cfg.Provisioner, cfg.Search.Index), es.Client, pg.DB, log)
		go func() {
			if _, err := p.Run(provisionCtx); err != nil {
				zapLog.Warn("search index provisioning did not complete", zap.Error(err))
			}
		}()
	}

	// --- HTTP server ---
	server := rest.NewServer(rest.Options{
		Products:     productSvc,
		Suggest:      suggestEngine,
		Database:     pg,
		Dependencies: deps,
		Version:      cfg.App.Version,
		Logger:       log,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      server.Routes(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining requests...")
	stopProvisioning()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error during shutdown", zap.Error(err))
	}

	zapLog.Info("Catalog search service stopped gracefully")
}
