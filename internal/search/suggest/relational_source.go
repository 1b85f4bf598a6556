package suggest

import (
	"context"
	"database/sql"
	"time"

	"catalog-search/internal/catalog/queries"
	apperrors "catalog-search/internal/common/errors"
	"catalog-search/internal/models"
)

// Prefix matches rank ahead of substring matches; newest first within a rank.
const relationalSuggestQuery = `
	SELECT id, name, price, brand, category, img
	FROM products
	WHERE name IS NOT NULL AND TRIM(name) <> ''
	  AND (name ILIKE $1 OR name ILIKE $2)
	ORDER BY CASE WHEN name ILIKE $1 THEN 1 ELSE 2 END, id DESC
	LIMIT $3`

// RelationalSource answers suggestions straight from PostgreSQL.
type RelationalSource struct {
	db      *sql.DB
	timeout time.Duration
}

func NewRelationalSource(db *sql.DB, timeout time.Duration) *RelationalSource {
	return &RelationalSource{db: db, timeout: timeout}
}

func (s *RelationalSource) Name() string { return "relational" }

func (s *RelationalSource) Suggest(ctx context.Context, q string, limit int) ([]models.Suggestion, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	escaped := queries.EscapeLike(q)
	rows, err := s.db.QueryContext(ctx, relationalSuggestQuery, escaped+"%", "%"+escaped+"%", limit)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	defer rows.Close()

	out := make([]models.Suggestion, 0, limit)
	for rows.Next() {
		var (
			sg                            models.Suggestion
			price, brand, category, image sql.NullString
		)
		if err := rows.Scan(&sg.ID, &sg.Name, &price, &brand, &category, &image); err != nil {
			return nil, s.fail(ctx, err)
		}
		sg.Price = price.String
		sg.Brand = brand.String
		sg.Category = category.String
		sg.Img = image.String
		out = append(out, sg)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail(ctx, err)
	}
	return out, nil
}

func (s *RelationalSource) fail(ctx context.Context, err error) error {
	if ctx.Err() == context.DeadlineExceeded {
		return apperrors.NewQueryTimeoutError("suggest.relational", err)
	}
	return apperrors.NewStorageError("suggest.relational", err)
}
