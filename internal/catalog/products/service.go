// Package products serves product listings, lookups and name search from the
// relational store.
package products

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"catalog-search/internal/catalog/filters"
	"catalog-search/internal/catalog/queries"
	"catalog-search/internal/catalog/tags"
	apperrors "catalog-search/internal/common/errors"
	"catalog-search/internal/common/logger"
	"catalog-search/internal/common/metrics"
	"catalog-search/internal/common/observability"
	"catalog-search/internal/models"
)

const (
	OpList   = "products.list"
	OpGet    = "products.get"
	OpSearch = "products.search"
	OpByTag  = "products.by_tag"
	OpTags   = "tags.all"
)

type Service struct {
	config *Config
	db     *sql.DB
	tags   *tags.Aggregator
	obs    *observability.Observability
	logger logger.Logger
}

// NewService wires the service. obs may be nil.
func NewService(cfg *Config, db *sql.DB, tagAgg *tags.Aggregator, obs *observability.Observability, log logger.Logger) *Service {
	return &Service{
		config: cfg,
		db:     db,
		tags:   tagAgg,
		obs:    obs,
		logger: logger.Component(log, "products"),
	}
}

// Limits exposes the pagination bounds so adapters normalize with the same rules.
func (s *Service) Limits() filters.Limits {
	return s.config.Limits
}

// List returns one page of products matching f plus the total match count.
func (s *Service) List(ctx context.Context, f models.FilterSet) (*models.ListResult, error) {
	f.Page, f.PageSize = filters.Clamp(f.Page, f.PageSize, s.config.Limits)
	q := queries.BuildProductList(f)

	res, err := s.runPaged(ctx, OpList, q, f.Page, f.PageSize)
	if err != nil {
		return nil, err
	}
	res.ResolvedCategory = q.ResolvedCategory
	res.ResolvedBrand = q.ResolvedBrand
	return res, nil
}

// FlashSale lists products flagged as flash sale.
func (s *Service) FlashSale(ctx context.Context, page, pageSize int) (*models.ListResult, error) {
	flag := true
	return s.List(ctx, models.FilterSet{Page: page, PageSize: pageSize, IsFlashSale: &flag})
}

// NewArrivals lists products flagged as new.
func (s *Service) NewArrivals(ctx context.Context, page, pageSize int) (*models.ListResult, error) {
	flag := true
	return s.List(ctx, models.FilterSet{Page: page, PageSize: pageSize, IsNew: &flag})
}

// Search matches q anywhere in the product name.
func (s *Service) Search(ctx context.Context, q string, page, pageSize int) (*models.ListResult, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, apperrors.NewValidationError("q", "search term is required")
	}
	page, pageSize = filters.Clamp(page, pageSize, s.config.Limits)
	return s.runPaged(ctx, OpSearch, queries.BuildProductSearch(q, page, pageSize), page, pageSize)
}

// ByTag lists products carrying tag.
func (s *Service) ByTag(ctx context.Context, tag string, page, pageSize int) (*models.ListResult, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return nil, apperrors.NewValidationError("tag", "tag is required")
	}
	page, pageSize = filters.Clamp(page, pageSize, s.config.Limits)
	return s.runPaged(ctx, OpByTag, queries.BuildProductsByTag(tag, page, pageSize), page, pageSize)
}

// Get returns one product as stored, with its tags.
func (s *Service) Get(ctx context.Context, id int64) (*models.Product, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	start := time.Now()

	q := queries.BuildProductByID(id)
	p, err := queries.ScanProduct(s.db.QueryRowContext(ctx, q.SQL, q.Args...))
	if errors.Is(err, sql.ErrNoRows) {
		s.observe(ctx, OpGet, start, nil)
		return nil, apperrors.NewNotFoundError("product", id)
	}
	if err != nil {
		return nil, s.fail(ctx, OpGet, start, err)
	}

	if p.Tags, err = s.tags.ForProduct(ctx, id); err != nil {
		return nil, s.fail(ctx, OpGet, start, err)
	}

	s.observe(ctx, OpGet, start, nil)
	return &p, nil
}

// Tags returns every distinct tag.
func (s *Service) Tags(ctx context.Context) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	start := time.Now()

	all, err := s.tags.AllTags(ctx)
	if err != nil {
		return nil, s.fail(ctx, OpTags, start, err)
	}
	s.observe(ctx, OpTags, start, nil)
	return all, nil
}

// runPaged executes the count and page statements and attaches tags. Either
// statement failing fails the whole call.
func (s *Service) runPaged(ctx context.Context, op string, q queries.ProductListQuery, page, pageSize int) (*models.ListResult, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	start := time.Now()

	var (
		total int64
		items []models.Product
	)

	countFn := func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, q.Count.SQL, q.Count.Args...).Scan(&total)
	}
	pageFn := func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, q.Page.SQL, q.Page.Args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		items, err = queries.ScanProducts(rows)
		return err
	}

	if s.config.ConcurrentCount {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return countFn(gctx) })
		g.Go(func() error { return pageFn(gctx) })
		if err := g.Wait(); err != nil {
			return nil, s.fail(ctx, op, start, err)
		}
	} else {
		if err := countFn(ctx); err != nil {
			return nil, s.fail(ctx, op, start, err)
		}
		if err := pageFn(ctx); err != nil {
			return nil, s.fail(ctx, op, start, err)
		}
	}

	if err := s.tags.Attach(ctx, items); err != nil {
		return nil, s.fail(ctx, op, start, err)
	}

	s.observe(ctx, op, start, nil)
	s.logger.Debug("page served", map[string]interface{}{
		"operation": op,
		"page":      page,
		"pageSize":  pageSize,
		"returned":  len(items),
		"total":     total,
	})

	return &models.ListResult{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.QueryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.config.QueryTimeout)
}

// fail converts a driver error into a StandardError and records it.
func (s *Service) fail(ctx context.Context, op string, start time.Time, err error) error {
	var stdErr *apperrors.StandardError
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		stdErr = apperrors.NewQueryTimeoutError(op, err)
	} else {
		stdErr = apperrors.NewStorageError(op, err)
	}

	metrics.CatalogQueryErrors.WithLabelValues(op, string(stdErr.Code)).Inc()
	s.observe(ctx, op, start, stdErr)
	s.logger.Error("catalog query failed", map[string]interface{}{
		"operation": op,
		"errorCode": string(stdErr.Code),
		"error":     err,
	})
	return stdErr
}

func (s *Service) observe(ctx context.Context, op string, start time.Time, err error) {
	elapsed := time.Since(start)
	metrics.CatalogQueryDuration.WithLabelValues(op).Observe(elapsed.Seconds())

	status := "ok"
	if err != nil {
		status = "error"
	}
	s.obs.Record(context.WithoutCancel(ctx), op, status, elapsed)
}
