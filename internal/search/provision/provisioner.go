// Package provision prepares the search index at startup: it waits for the
// cluster, creates the products index when missing and seeds it from the
// relational store when empty. Failures are reported, never fatal.
package provision

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"

	apperrors "catalog-search/internal/common/errors"
	"catalog-search/internal/common/logger"
	"catalog-search/internal/common/metrics"
)

const seedQuery = `
	SELECT id, name, price, brand, category, img, created_at
	FROM products
	WHERE name IS NOT NULL AND TRIM(name) <> ''
	ORDER BY created_at DESC
	LIMIT $1`

// indexMapping mirrors the fields the suggest query reads and boosts.
var indexMapping = map[string]interface{}{
	"settings": map[string]interface{}{
		"number_of_shards":   1,
		"number_of_replicas": 0,
	},
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			"id":         map[string]interface{}{"type": "keyword"},
			"name":       textWithKeyword(),
			"brand":      textWithKeyword(),
			"category":   textWithKeyword(),
			"price":      map[string]interface{}{"type": "keyword"},
			"img":        map[string]interface{}{"type": "keyword"},
			"created_at": map[string]interface{}{"type": "date"},
		},
	},
}

func textWithKeyword() map[string]interface{} {
	return map[string]interface{}{
		"type": "text",
		"fields": map[string]interface{}{
			"keyword": map[string]interface{}{"type": "keyword"},
		},
	}
}

// Result describes what a run changed.
type Result struct {
	RunID        string
	IndexCreated bool
	Existing     int64
	Seeded       int
}

type Provisioner struct {
	config *Config
	es     *elasticsearch.Client
	db     *sql.DB
	logger logger.Logger
}

func New(cfg *Config, es *elasticsearch.Client, db *sql.DB, log logger.Logger) *Provisioner {
	return &Provisioner{
		config: cfg,
		es:     es,
		db:     db,
		logger: logger.Component(log, "index-provisioner"),
	}
}

// Run waits for the cluster, ensures the index exists and seeds it when it
// holds no documents. Running it again against a populated index is a no-op.
func (p *Provisioner) Run(ctx context.Context) (*Result, error) {
	return p.run(ctx, false)
}

// Reindex is Run without the empty-index check: the seed is always loaded.
// Documents are keyed by product id, so existing entries are overwritten.
func (p *Provisioner) Reindex(ctx context.Context) (*Result, error) {
	return p.run(ctx, true)
}

func (p *Provisioner) run(ctx context.Context, force bool) (*Result, error) {
	runID := uuid.NewString()
	res, err := p.provision(ctx, force)
	res.RunID = runID
	if err != nil {
		metrics.ProvisioningRuns.WithLabelValues("failed").Inc()
		p.logger.Warn("search index provisioning failed", map[string]interface{}{
			"run_id": runID,
			"index":  p.config.Index,
			"error": err,
		})
		return res, err
	}

	outcome := "skipped"
	if res.Seeded > 0 {
		outcome = "seeded"
		metrics.ProvisionedDocuments.Set(float64(res.Seeded))
	}
	metrics.ProvisioningRuns.WithLabelValues(outcome).Inc()
	p.logger.Info("search index ready", map[string]interface{}{
		"run_id":   runID,
		"index":    p.config.Index,
		"created":  res.IndexCreated,
		"existing": res.Existing,
		"seeded":   res.Seeded,
	})
	return res, nil
}

func (p *Provisioner) provision(ctx context.Context, force bool) (*Result, error) {
	res := &Result{}

	if err := p.waitForCluster(ctx); err != nil {
		return res, err
	}

	created, err := p.ensureIndex(ctx)
	if err != nil {
		return res, apperrors.NewProvisioningError("create index", err)
	}
	res.IndexCreated = created

	if !force {
		count, err := p.documentCount(ctx)
		if err != nil {
			return res, apperrors.NewProvisioningError("count documents", err)
		}
		res.Existing = count
		if count > 0 {
			return res, nil
		}
	}

	seeded, err := p.seed(ctx)
	if err != nil {
		return res, apperrors.NewProvisioningError("seed", err)
	}
	res.Seeded = seeded
	return res, nil
}

// waitForCluster pings with a fixed delay between attempts.
func (p *Provisioner) waitForCluster(ctx context.Context) error {
	maxRetries := p.config.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}

	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err = p.ping(ctx); err == nil {
			return nil
		}
		if attempt == maxRetries {
			break
		}

		p.logger.Info("waiting for search cluster", map[string]interface{}{
			"attempt":     attempt,
			"maxRetries":  maxRetries,
			"nextRetryIn": p.config.Backoff.String(),
			"error":       err,
		})
		select {
		case <-ctx.Done():
			return apperrors.NewProvisioningError("wait for cluster", ctx.Err())
		case <-time.After(p.config.Backoff):
		}
	}
	return apperrors.NewProvisioningError("wait for cluster",
		fmt.Errorf("unavailable after %d attempts: %w", maxRetries, err))
}

func (p *Provisioner) ping(ctx context.Context) error {
	ctx, cancel := p.stepContext(ctx)
	defer cancel()

	res, err := p.es.Ping(p.es.Ping.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("ping: %s", res.Status())
	}
	return nil
}

// ensureIndex creates the index when it is missing and reports whether it did.
func (p *Provisioner) ensureIndex(ctx context.Context) (bool, error) {
	ctx, cancel := p.stepContext(ctx)
	defer cancel()

	exists, err := p.es.Indices.Exists([]string{p.config.Index}, p.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, err
	}
	exists.Body.Close()

	switch exists.StatusCode {
	case 200:
		return false, nil
	case 404:
	default:
		return false, fmt.Errorf("index exists check: %s", exists.Status())
	}

	body, err := json.Marshal(indexMapping)
	if err != nil {
		return false, err
	}

	res, err := p.es.Indices.Create(
		p.config.Index,
		p.es.Indices.Create.WithContext(ctx),
		p.es.Indices.Create.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return false, err
	}
	defer res.Body.Close()

	if res.IsError() {
		raw, _ := io.ReadAll(res.Body)
		// Another instance won the race.
		if strings.Contains(string(raw), "resource_already_exists_exception") {
			return false, nil
		}
		return false, fmt.Errorf("create index: %s: %s", res.Status(), raw)
	}

	p.logger.Info("search index created", map[string]interface{}{"index": p.config.Index})
	return true, nil
}

func (p *Provisioner) documentCount(ctx context.Context) (int64, error) {
	ctx, cancel := p.stepContext(ctx)
	defer cancel()

	res, err := p.es.Count(p.es.Count.WithContext(ctx), p.es.Count.WithIndex(p.config.Index))
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, fmt.Errorf("count: %s", res.Status())
	}

	var parsed struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("decode count: %w", err)
	}
	return parsed.Count, nil
}

type seedDocument struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Price     *string    `json:"price"`
	Brand     *string    `json:"brand"`
	Category  *string    `json:"category"`
	Img       *string    `json:"img"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// seed loads the newest named products and bulk-indexes them.
func (p *Provisioner) seed(ctx context.Context) (int, error) {
	ctx, cancel := p.stepContext(ctx)
	defer cancel()

	docs, err := p.loadSeed(ctx)
	if err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		p.logger.Warn("no products to seed", map[string]interface{}{"index": p.config.Index})
		return 0, nil
	}

	body, err := encodeBulk(p.config.Index, docs)
	if err != nil {
		return 0, err
	}

	res, err := p.es.Bulk(
		bytes.NewReader(body),
		p.es.Bulk.WithContext(ctx),
		p.es.Bulk.WithRefresh("true"),
	)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, fmt.Errorf("bulk: %s", res.Status())
	}

	var parsed struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("decode bulk response: %w", err)
	}
	if parsed.Errors {
		return 0, fmt.Errorf("bulk reported item errors")
	}

	p.logger.Info("search index seeded", map[string]interface{}{
		"index":     p.config.Index,
		"documents": len(docs),
	})
	return len(docs), nil
}

func (p *Provisioner) loadSeed(ctx context.Context) ([]seedDocument, error) {
	limit := p.config.SeedLimit
	if limit <= 0 {
		limit = 5000
	}

	rows, err := p.db.QueryContext(ctx, seedQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("load seed rows: %w", err)
	}
	defer rows.Close()

	var docs []seedDocument
	for rows.Next() {
		var (
			d                             seedDocument
			price, brand, category, image sql.NullString
			createdAt                     sql.NullTime
		)
		if err := rows.Scan(&d.ID, &d.Name, &price, &brand, &category, &image, &createdAt); err != nil {
			return nil, fmt.Errorf("scan seed row: %w", err)
		}
		d.Price = nullString(price)
		d.Brand = nullString(brand)
		d.Category = nullString(category)
		d.Img = nullString(image)
		if createdAt.Valid {
			t := createdAt.Time
			d.CreatedAt = &t
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate seed rows: %w", err)
	}
	return docs, nil
}

// encodeBulk renders docs as an NDJSON bulk body keyed by product id.
func encodeBulk(index string, docs []seedDocument) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, d := range docs {
		action := map[string]interface{}{
			"index": map[string]interface{}{
				"_index": index,
				"_id":    strconv.FormatInt(d.ID, 10),
			},
		}
		if err := enc.Encode(action); err != nil {
			return nil, err
		}
		if err := enc.Encode(d); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func (p *Provisioner) stepContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.config.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.config.Timeout)
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
