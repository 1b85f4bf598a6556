// Package suggest answers autocomplete queries from the search index, falling
// back to the relational store, with an optional TTL cache in front.
package suggest

import (
	"context"

	"catalog-search/internal/models"
)

// SuggestionSource produces up to limit suggestions for a trimmed query.
type SuggestionSource interface {
	Name() string
	Suggest(ctx context.Context, q string, limit int) ([]models.Suggestion, error)
}
