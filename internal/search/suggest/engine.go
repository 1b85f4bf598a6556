package suggest

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"catalog-search/internal/common/logger"
	"catalog-search/internal/common/metrics"
	"catalog-search/internal/common/observability"
	"catalog-search/internal/models"
)

const OpSuggest = "search.suggest"

// FallbackSuggestEngine tries each source in order and returns the first
// successful answer. Only the last source's failure reaches the caller.
type FallbackSuggestEngine struct {
	config  *Config
	sources []SuggestionSource
	cache   SuggestCache
	obs     *observability.Observability
	logger  logger.Logger
}

// NewFallbackSuggestEngine builds an engine. cache and obs may be nil; sources
// are tried in the order given.
func NewFallbackSuggestEngine(cfg *Config, cache SuggestCache, obs *observability.Observability, log logger.Logger, sources ...SuggestionSource) *FallbackSuggestEngine {
	return &FallbackSuggestEngine{
		config:  cfg,
		sources: sources,
		cache:   cache,
		obs:     obs,
		logger:  logger.Component(log, "suggest"),
	}
}

// CacheTTL is the freshness window clients may cache responses for.
func (e *FallbackSuggestEngine) CacheTTL() time.Duration {
	return e.config.CacheTTL
}

// Suggest returns at most limit suggestions for q. Queries shorter than the
// minimum length return an empty list without touching any backend.
func (e *FallbackSuggestEngine) Suggest(ctx context.Context, q string, limit int) ([]models.Suggestion, error) {
	start := time.Now()
	q = strings.TrimSpace(q)

	minLen := e.config.MinQueryLength
	if minLen <= 0 {
		minLen = 2
	}
	if utf8.RuneCountInString(q) < minLen {
		return []models.Suggestion{}, nil
	}
	limit = e.config.NormalizeLimit(limit)
	key := CacheKey(q, limit)

	if cached, ok := e.cacheGet(ctx, key); ok {
		metrics.SuggestRequests.WithLabelValues("cache").Inc()
		e.obs.Record(ctx, OpSuggest, "cache", time.Since(start))
		return cached, nil
	}

	var lastErr error
	for i, src := range e.sources {
		out, err := src.Suggest(ctx, q, limit)
		if err == nil {
			if out == nil {
				out = []models.Suggestion{}
			}
			metrics.SuggestRequests.WithLabelValues(src.Name()).Inc()
			e.obs.Record(ctx, OpSuggest, src.Name(), time.Since(start))
			e.cacheSet(ctx, key, out)
			return out, nil
		}

		lastErr = err
		if i < len(e.sources)-1 {
			metrics.SuggestFallbacks.WithLabelValues(src.Name()).Inc()
			e.logger.Warn("suggest source failed, falling back", map[string]interface{}{
				"source": src.Name(),
				"next":   e.sources[i+1].Name(),
				"error":  err,
			})
		}
	}

	e.obs.Record(ctx, OpSuggest, "error", time.Since(start))
	if lastErr == nil {
		return []models.Suggestion{}, nil
	}
	e.logger.Error("all suggest sources failed", map[string]interface{}{
		"query": q,
		"error": lastErr,
	})
	return nil, lastErr
}

func (e *FallbackSuggestEngine) cacheGet(ctx context.Context, key string) ([]models.Suggestion, bool) {
	if e.cache == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, e.config.cacheTimeout())
	defer cancel()

	out, ok, err := e.cache.Get(ctx, key)
	if err != nil {
		metrics.SuggestCacheLookups.WithLabelValues("error").Inc()
		e.logger.Warn("suggest cache read failed", map[string]interface{}{"key": key, "error": err})
		return nil, false
	}
	if !ok {
		metrics.SuggestCacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	metrics.SuggestCacheLookups.WithLabelValues("hit").Inc()
	return out, true
}

func (e *FallbackSuggestEngine) cacheSet(ctx context.Context, key string, out []models.Suggestion) {
	if e.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, e.config.cacheTimeout())
	defer cancel()

	if err := e.cache.Set(ctx, key, out); err != nil {
		e.logger.Warn("suggest cache write failed", map[string]interface{}{"key": key, "error": err})
	}
}
