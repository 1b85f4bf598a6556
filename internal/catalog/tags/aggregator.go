// Package tags loads the product-to-tag relation in batches.
package tags

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"catalog-search/internal/common/logger"
	"catalog-search/internal/models"
)

const (
	loadQuery       = `SELECT product_id, tag FROM product_tags WHERE product_id = ANY($1) ORDER BY product_id, tag`
	forProductQuery = `SELECT tag FROM product_tags WHERE product_id = $1 ORDER BY tag`
	allTagsQuery    = `SELECT DISTINCT tag FROM product_tags ORDER BY tag`
)

// Aggregator attaches tags to products with one query per page.
type Aggregator struct {
	db     *sql.DB
	logger logger.Logger
}

func NewAggregator(db *sql.DB, log logger.Logger) *Aggregator {
	return &Aggregator{
		db:     db,
		logger: logger.Component(log, "tag-aggregator"),
	}
}

// Load returns the tags of every id. Each requested id maps to a non-nil
// slice; no query is issued for an empty id list.
func (a *Aggregator) Load(ctx context.Context, ids []int64) (map[int64][]string, error) {
	out := make(map[int64][]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	for _, id := range ids {
		out[id] = []string{}
	}

	rows, err := a.db.QueryContext(ctx, loadQuery, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("load tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pt models.ProductTag
		if err := rows.Scan(&pt.ProductID, &pt.Tag); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		if _, ok := out[pt.ProductID]; ok {
			out[pt.ProductID] = append(out[pt.ProductID], pt.Tag)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}

	a.logger.Debug("tags loaded", map[string]interface{}{
		"products": len(ids),
	})
	return out, nil
}

// Attach loads and assigns tags in place.
func (a *Aggregator) Attach(ctx context.Context, products []models.Product) error {
	if len(products) == 0 {
		return nil
	}

	ids := make([]int64, len(products))
	for i := range products {
		ids[i] = products[i].ID
	}

	byID, err := a.Load(ctx, ids)
	if err != nil {
		return err
	}
	for i := range products {
		products[i].Tags = byID[products[i].ID]
	}
	return nil
}

// ForProduct returns the sorted tags of one product.
func (a *Aggregator) ForProduct(ctx context.Context, id int64) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, forProductQuery, id)
	if err != nil {
		return nil, fmt.Errorf("load product tags: %w", err)
	}
	return collectStrings(rows)
}

// AllTags returns every distinct tag in ascending order.
func (a *Aggregator) AllTags(ctx context.Context) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, allTagsQuery)
	if err != nil {
		return nil, fmt.Errorf("load all tags: %w", err)
	}
	return collectStrings(rows)
}

func collectStrings(rows *sql.Rows) ([]string, error) {
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}
	return out, nil
}
