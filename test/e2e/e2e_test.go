// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-search/internal/catalog/products"
	"catalog-search/internal/catalog/tags"
	"catalog-search/internal/common/config"
	"catalog-search/internal/common/database"
	"catalog-search/internal/common/logger"
	"catalog-search/internal/models"
	"catalog-search/internal/search/provision"
	"catalog-search/internal/search/suggest"
	"catalog-search/internal/transport/rest"
)

const (
	e2eBrand = "E2E Brand"
	e2eTag   = "e2e-tag"
	e2eIndex = "products_e2e"
)

// TestFullE2E runs the HTTP surface against real PostgreSQL and, when
// reachable, Elasticsearch. It skips when PostgreSQL is not available.
func TestFullE2E(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}

	cfg, err := config.Load()
	if err != nil {
		t.Skipf("config not loadable: %v", err)
	}

	t.Log("🚀 Starting catalog E2E test with real services...")

	pg := connectPostgres(t, cfg)
	createTables(t, pg.DB)
	insertFixtures(t, pg.DB)

	log := logger.NewTestLogger(t)
	tagAgg := tags.NewAggregator(pg.DB, log)
	productSvc := products.NewService(products.LoadConfig(cfg.Catalog), pg.DB, tagAgg, nil, log)

	suggestCfg := suggest.LoadConfig(cfg.Search)
	engine := suggest.NewFallbackSuggestEngine(suggestCfg, nil, nil, log,
		suggest.NewRelationalSource(pg.DB, suggestCfg.QueryTimeout))

	server := rest.NewServer(rest.Options{
		Products: productSvc,
		Suggest:  engine,
		Database: pg,
		Version:  "e2e",
		Logger:   log,
	})
	ts := httptest.NewServer(server.Routes())
	defer ts.Close()

	t.Run("health", func(t *testing.T) {
		res := get(t, ts.URL+"/health")
		defer res.Body.Close()
		assert.Equal(t, http.StatusOK, res.StatusCode)
	})

	t.Run("list by brand applies the quality gate", func(t *testing.T) {
		res := get(t, ts.URL+"/api/v1/products?brand=e2e%20brand&pageSize=2")
		defer res.Body.Close()
		require.Equal(t, http.StatusOK, res.StatusCode)
		assert.Equal(t, "3", res.Header.Get("X-Total-Count"))

		var items []models.Product
		require.NoError(t, json.NewDecoder(res.Body).Decode(&items))
		require.Len(t, items, 2)
		assert.Equal(t, int64(990003), items[0].ID, "newest first")
		for _, p := range items {
			assert.NotNil(t, p.Tags)
		}
	})

	t.Run("get by id ignores the quality gate", func(t *testing.T) {
		res := get(t, ts.URL+"/api/v1/products/990004")
		defer res.Body.Close()
		require.Equal(t, http.StatusOK, res.StatusCode)

		var p models.Product
		require.NoError(t, json.NewDecoder(res.Body).Decode(&p))
		assert.Equal(t, "E2E Widget Draft", p.Name)
		assert.Empty(t, p.Img)
	})

	t.Run("products by tag", func(t *testing.T) {
		res := get(t, ts.URL+"/api/v1/tags/"+e2eTag+"/products?includeMeta=true")
		defer res.Body.Close()
		require.Equal(t, http.StatusOK, res.StatusCode)

		var result models.ListResult
		require.NoError(t, json.NewDecoder(res.Body).Decode(&result))
		assert.Equal(t, int64(2), result.Total)
		for _, p := range result.Items {
			assert.Contains(t, p.Tags, e2eTag)
		}
	})

	t.Run("relational suggestions", func(t *testing.T) {
		res := get(t, ts.URL+"/api/v1/search/suggest?q=E2E%20Widget&limit=5")
		defer res.Body.Close()
		require.Equal(t, http.StatusOK, res.StatusCode)

		var got []models.Suggestion
		require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
		assert.NotEmpty(t, got)
		for _, s := range got {
			assert.Contains(t, s.Name, "E2E Widget")
		}
	})

	if cfg.Database.Elasticsearch.Enabled() {
		testIndexSuggestions(t, cfg, pg.DB, log)
	}

	t.Log("✅ Catalog E2E test passed")
}

func testIndexSuggestions(t *testing.T, cfg *config.Config, db *sql.DB, log logger.Logger) {
	es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	require.NoError(t, err)
	if err := es.Ping(context.Background()); err != nil {
		t.Logf("⚠️ Elasticsearch not reachable, skipping index checks: %v", err)
		return
	}

	provCfg := provision.LoadConfig(cfg.Provisioner, e2eIndex)
	provCfg.MaxRetries = 1
	result, err := provision.New(provCfg, es.Client, db, log).Reindex(context.Background())
	require.NoError(t, err)
	assert.Positive(t, result.Seeded)

	t.Cleanup(func() {
		res, err := es.Client.Indices.Delete([]string{e2eIndex})
		if err == nil {
			res.Body.Close()
		}
	})

	source := suggest.NewIndexSource(es.Client, e2eIndex, 5*time.Second)
	got, err := source.Suggest(context.Background(), "E2E Widg", 5)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Contains(t, got[0].Name, "E2E Widget")
}

func connectPostgres(t *testing.T, cfg *config.Config) *database.PostgresClient {
	t.Helper()
	t.Log("🔍 Checking PostgreSQL connectivity...")

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err)
	t.Cleanup(func() { pg.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pg.Ping(ctx); err != nil {
		t.Skipf("PostgreSQL not reachable: %v", err)
	}
	return pg
}

func createTables(t *testing.T, db *sql.DB) {
	t.Helper()
	t.Log("🔧 Creating catalog tables...")

	ddl := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id BIGSERIAL PRIMARY KEY,
			name TEXT,
			price TEXT,
			price_old TEXT,
			percent TEXT,
			brand TEXT,
			category TEXT,
			img TEXT,
			rating TEXT,
			flash_sale_count TEXT,
			sold TEXT,
			is_flash_sale BOOLEAN DEFAULT false,
			is_new BOOLEAN DEFAULT false,
			is_loan BOOLEAN DEFAULT false,
			is_online BOOLEAN DEFAULT false,
			is_upcoming BOOLEAN DEFAULT false,
			link TEXT,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS product_tags (
			product_id BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
			tag TEXT NOT NULL,
			PRIMARY KEY (product_id, tag)
		)`,
	}
	for _, q := range ddl {
		_, err := db.ExecContext(context.Background(), q)
		require.NoError(t, err)
	}
}

func insertFixtures(t *testing.T, db *sql.DB) {
	t.Helper()

	ctx := context.Background()
	cleanup := func() {
		_, _ = db.ExecContext(ctx, `DELETE FROM products WHERE brand = $1`, e2eBrand)
	}
	cleanup()
	t.Cleanup(cleanup)

	rows := []struct {
		id        int64
		name, img string
		isNew     bool
		createdAt time.Time
	}{
		{990001, "E2E Widget One", "one.png", false, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{990002, "E2E Widget Two", "two.png", true, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
		{990003, "E2E Widget Three", "three.png", false, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{990004, "E2E Widget Draft", "", false, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, r := range rows {
		_, err := db.ExecContext(ctx, `
			INSERT INTO products (id, name, price, brand, category, img, is_new, created_at, updated_at)
			VALUES ($1, $2, '19.99', $3, 'Gadgets', $4, $5, $6, $6)`,
			r.id, r.name, e2eBrand, r.img, r.isNew, r.createdAt)
		require.NoError(t, err)
	}

	for _, id := range []int64{990001, 990002} {
		_, err := db.ExecContext(ctx, `INSERT INTO product_tags (product_id, tag) VALUES ($1, $2)`, id, e2eTag)
		require.NoError(t, err)
	}
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	res, err := http.Get(url)
	require.NoError(t, err)
	return res
}
