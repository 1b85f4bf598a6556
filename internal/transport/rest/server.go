// Package rest exposes the catalog and suggest operations over HTTP.
package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"catalog-search/internal/catalog/filters"
	apperrors "catalog-search/internal/common/errors"
	"catalog-search/internal/common/logger"
	"catalog-search/internal/common/metrics"
	"catalog-search/internal/models"
)

// ProductService is the catalog surface the handlers need.
type ProductService interface {
	Limits() filters.Limits
	List(ctx context.Context, f models.FilterSet) (*models.ListResult, error)
	Get(ctx context.Context, id int64) (*models.Product, error)
	Search(ctx context.Context, q string, page, pageSize int) (*models.ListResult, error)
	FlashSale(ctx context.Context, page, pageSize int) (*models.ListResult, error)
	NewArrivals(ctx context.Context, page, pageSize int) (*models.ListResult, error)
	ByTag(ctx context.Context, tag string, page, pageSize int) (*models.ListResult, error)
	Tags(ctx context.Context) ([]string, error)
}

// Suggester answers autocomplete queries.
type Suggester interface {
	Suggest(ctx context.Context, q string, limit int) ([]models.Suggestion, error)
	CacheTTL() time.Duration
}

// Database is the relational health surface.
type Database interface {
	Ping(ctx context.Context) error
	ServerVersion(ctx context.Context) (string, error)
}

// Dependency is an optional backend reported by /ready. Its failure marks the
// service degraded, not unavailable.
type Dependency struct {
	Name string
	Ping func(ctx context.Context) error
}

type Options struct {
	Products     ProductService
	Suggest      Suggester
	Database     Database
	Dependencies []Dependency
	Version      string
	Logger       logger.Logger
}

type Server struct {
	products ProductService
	suggest  Suggester
	db       Database
	deps     []Dependency
	version  string
	errors   *apperrors.ErrorHandler
	logger   logger.Logger
}

func NewServer(opts Options) *Server {
	log := logger.Component(opts.Logger, "http")
	return &Server{
		products: opts.Products,
		suggest:  opts.Suggest,
		db:       opts.Database,
		deps:     opts.Dependencies,
		version:  opts.Version,
		errors:   apperrors.NewErrorHandler(log),
		logger:   log,
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.recoverer)
	r.Use(middleware.RequestID)
	r.Use(echoRequestID)
	r.Use(s.accessLog)
	r.Use(metrics.Middleware())

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", s.handleListProducts)
			r.Get("/search", s.handleSearchProducts)
			r.Get("/flash-sale", s.handleFlashSale)
			r.Get("/new", s.handleNewArrivals)
			r.Get("/{id}", s.handleGetProduct)
		})
		r.Get("/search/suggest", s.handleSuggest)
		r.Get("/tags", s.handleListTags)
		r.Get("/tags/{tag}/products", s.handleProductsByTag)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.errors.HandleRequestError(w, r, apperrors.NewNotFoundError("route", r.URL.Path))
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
