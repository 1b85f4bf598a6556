// cmd/tools/es-import/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"catalog-search/internal/common/config"
	"catalog-search/internal/common/database"
	"catalog-search/internal/common/logger"
	"catalog-search/internal/search/provision"
	"catalog-search/internal/search/suggest"
)

func main() {
	configPath := flag.String("config", "", "Path to a config file (default: configs/config.yaml lookup)")
	onlyIfEmpty := flag.Bool("if-empty", false, "Seed only when the index holds no documents")
	keepCache := flag.Bool("keep-cache", false, "Do not invalidate cached suggestions after import")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewStructured(cfg.Logging.Level, "console")

	if !cfg.Database.Elasticsearch.Enabled() {
		fmt.Println("Error: no Elasticsearch node configured (database.elasticsearch.url or ELASTICSEARCH_NODE)")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		fmt.Printf("Error opening PostgreSQL: %v\n", err)
		os.Exit(1)
	}
	defer pg.Close()
	if err := pg.Ping(ctx); err != nil {
		fmt.Printf("Error connecting to PostgreSQL: %v\n", err)
		os.Exit(1)
	}

	es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	if err != nil {
		fmt.Printf("Error creating Elasticsearch client: %v\n", err)
		os.Exit(1)
	}

	p := provision.New(provision.LoadConfig(cfg.Provisioner, cfg.Search.Index), es.Client, pg.DB, log)

	var res *provision.Result
	if *onlyIfEmpty {
		res, err = p.Run(ctx)
	} else {
		res, err = p.Reindex(ctx)
	}
	if err != nil {
		fmt.Printf("Import failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Index %q (run %s): created=%t existing=%d imported=%d\n",
		cfg.Search.Index, res.RunID, res.IndexCreated, res.Existing, res.Seeded)

	if *keepCache || res.Seeded == 0 || cfg.Database.Redis.Address == "" {
		return
	}

	rdb, err := database.NewRedis(cfg.Database.Redis)
	if err != nil {
		fmt.Printf("Warning: cache not invalidated: %v\n", err)
		return
	}
	defer rdb.Close()

	removed, err := suggest.NewRedisCache(rdb.Client, config.GetSeconds(cfg.Search.CacheTTL)).Invalidate(ctx)
	if err != nil {
		fmt.Printf("Warning: cache invalidation incomplete (%d removed): %v\n", removed, err)
		return
	}
	fmt.Printf("Invalidated %d cached suggestion entries\n", removed)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}
