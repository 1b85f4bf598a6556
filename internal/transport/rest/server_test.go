package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-search/internal/catalog/filters"
	apperrors "catalog-search/internal/common/errors"
	"catalog-search/internal/common/logger"
	"catalog-search/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeProducts struct {
	lastFilter   models.FilterSet
	lastQuery    string
	lastTag      string
	lastPage     int
	lastPageSize int
	result       *models.ListResult
	product      *models.Product
	tags         []string
	err          error
}

func (f *fakeProducts) Limits() filters.Limits {
	return filters.Limits{DefaultPageSize: 12, MaxPageSize: 100}
}

func (f *fakeProducts) List(_ context.Context, fs models.FilterSet) (*models.ListResult, error) {
	f.lastFilter = fs
	return f.result, f.err
}

func (f *fakeProducts) Get(_ context.Context, id int64) (*models.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.product, nil
}

func (f *fakeProducts) Search(_ context.Context, q string, page, pageSize int) (*models.ListResult, error) {
	f.lastQuery, f.lastPage, f.lastPageSize = q, page, pageSize
	return f.result, f.err
}

func (f *fakeProducts) FlashSale(_ context.Context, page, pageSize int) (*models.ListResult, error) {
	f.lastPage, f.lastPageSize = page, pageSize
	return f.result, f.err
}

func (f *fakeProducts) NewArrivals(_ context.Context, page, pageSize int) (*models.ListResult, error) {
	f.lastPage, f.lastPageSize = page, pageSize
	return f.result, f.err
}

func (f *fakeProducts) ByTag(_ context.Context, tag string, page, pageSize int) (*models.ListResult, error) {
	f.lastTag, f.lastPage, f.lastPageSize = tag, page, pageSize
	return f.result, f.err
}

func (f *fakeProducts) Tags(_ context.Context) ([]string, error) {
	return f.tags, f.err
}

type fakeSuggester struct {
	lastQuery string
	lastLimit int
	out       []models.Suggestion
	err       error
}

func (f *fakeSuggester) Suggest(_ context.Context, q string, limit int) ([]models.Suggestion, error) {
	f.lastQuery, f.lastLimit = q, limit
	return f.out, f.err
}

func (f *fakeSuggester) CacheTTL() time.Duration { return 5 * time.Minute }

type fakeDatabase struct {
	err error
}

func (f *fakeDatabase) Ping(context.Context) error { return f.err }

func (f *fakeDatabase) ServerVersion(context.Context) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "PostgreSQL 16.2", nil
}

func newTestServer(t *testing.T, products *fakeProducts, suggester *fakeSuggester, db *fakeDatabase, deps ...Dependency) http.Handler {
	return NewServer(Options{
		Products:     products,
		Suggest:      suggester,
		Database:     db,
		Dependencies: deps,
		Version:      "test",
		Logger:       logger.NewTestLogger(t),
	}).Routes()
}

func do(h http.Handler, target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, http.NoBody))
	return rr
}

func sampleResult() *models.ListResult {
	category := "Laptop"
	return &models.ListResult{
		Items:            []models.Product{{ID: 1, Name: "ThinkPad", Tags: []string{}}},
		Total:            25,
		Page:             2,
		PageSize:         10,
		ResolvedCategory: &category,
	}
}

// ==========================
// Products
// ==========================

func TestListProducts_ItemsOnly(t *testing.T) {
	products := &fakeProducts{result: sampleResult()}
	h := newTestServer(t, products, &fakeSuggester{}, &fakeDatabase{})

	rr := do(h, "/api/v1/products?category=Laptop%2520&page=2&pageSize=10&isNew=false")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "25", rr.Header().Get("X-Total-Count"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	var items []models.Product
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.NotNil(t, items[0].Tags)

	require.NotNil(t, products.lastFilter.Category)
	assert.Equal(t, "Laptop", *products.lastFilter.Category)
	assert.Equal(t, 2, products.lastFilter.Page)
	assert.Equal(t, 10, products.lastFilter.PageSize)
	require.NotNil(t, products.lastFilter.IsNew)
	assert.False(t, *products.lastFilter.IsNew)
	assert.Nil(t, products.lastFilter.IsFlashSale)
}

func TestListProducts_MetaEnvelope(t *testing.T) {
	products := &fakeProducts{result: sampleResult()}
	h := newTestServer(t, products, &fakeSuggester{}, &fakeDatabase{})

	rr := do(h, "/api/v1/products?includeMeta=true")
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, float64(25), body["total"])
	assert.Equal(t, float64(2), body["page"])
	assert.Equal(t, float64(10), body["pageSize"])
	assert.Equal(t, "Laptop", body["resolvedCategory"])
	assert.Len(t, body["items"], 1)
}

func TestListProducts_InvalidFlag(t *testing.T) {
	h := newTestServer(t, &fakeProducts{}, &fakeSuggester{}, &fakeDatabase{})

	rr := do(h, "/api/v1/products?isFlashSale=perhaps")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "VALIDATION_FAILED", body["code"])
}

func TestListProducts_StorageErrorHidesDetails(t *testing.T) {
	products := &fakeProducts{err: apperrors.NewStorageError("products.list", errors.New("password authentication failed"))}
	h := newTestServer(t, products, &fakeSuggester{}, &fakeDatabase{})

	rr := do(h, "/api/v1/products")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "password")
	assert.Contains(t, rr.Body.String(), "STORAGE_FAILED")
}

func TestSearchProducts(t *testing.T) {
	products := &fakeProducts{result: sampleResult()}
	h := newTestServer(t, products, &fakeSuggester{}, &fakeDatabase{})

	rr := do(h, "/api/v1/products/search?q=think&page=3&pageSize=500")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "think", products.lastQuery)
	assert.Equal(t, 3, products.lastPage)
	assert.Equal(t, 100, products.lastPageSize)

	rr = do(h, "/api/v1/products/search")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestFlashSaleAndNewArrivals(t *testing.T) {
	products := &fakeProducts{result: sampleResult()}
	h := newTestServer(t, products, &fakeSuggester{}, &fakeDatabase{})

	rr := do(h, "/api/v1/products/flash-sale?pageSize=0")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 12, products.lastPageSize)

	rr = do(h, "/api/v1/products/new?page=2")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 2, products.lastPage)
}

func TestGetProduct(t *testing.T) {
	products := &fakeProducts{product: &models.Product{ID: 9, Name: "Pixel", Tags: []string{"phone"}}}
	h := newTestServer(t, products, &fakeSuggester{}, &fakeDatabase{})

	rr := do(h, "/api/v1/products/9")
	require.Equal(t, http.StatusOK, rr.Code)

	var p models.Product
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	assert.Equal(t, int64(9), p.ID)
	assert.Equal(t, []string{"phone"}, p.Tags)
}

func TestGetProduct_Errors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		err    error
		want   int
	}{
		{"non numeric id", "/api/v1/products/abc", nil, http.StatusBadRequest},
		{"overflowing id", "/api/v1/products/9999999999999999999", nil, http.StatusBadRequest},
		{"missing product", "/api/v1/products/404", apperrors.NewNotFoundError("product", 404), http.StatusNotFound},
		{"timeout", "/api/v1/products/1", apperrors.NewQueryTimeoutError("products.get", context.DeadlineExceeded), http.StatusGatewayTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, &fakeProducts{err: tt.err}, &fakeSuggester{}, &fakeDatabase{})
			assert.Equal(t, tt.want, do(h, tt.target).Code)
		})
	}
}

func TestTags(t *testing.T) {
	products := &fakeProducts{tags: []string{"gaming", "sale"}, result: sampleResult()}
	h := newTestServer(t, products, &fakeSuggester{}, &fakeDatabase{})

	rr := do(h, "/api/v1/tags")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `["gaming","sale"]`, rr.Body.String())

	rr = do(h, "/api/v1/tags/back%20to%20school/products?page=2&pageSize=5")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "back to school", products.lastTag)
	assert.Equal(t, 2, products.lastPage)
	assert.Equal(t, 5, products.lastPageSize)
}

// ==========================
// Suggest
// ==========================

func TestSuggest(t *testing.T) {
	suggester := &fakeSuggester{out: []models.Suggestion{{ID: 1, Name: "iPhone 15"}}}
	h := newTestServer(t, &fakeProducts{}, suggester, &fakeDatabase{})

	rr := do(h, "/api/v1/search/suggest?q=iph&limit=5")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "public, max-age=300", rr.Header().Get("Cache-Control"))
	assert.Equal(t, "iph", suggester.lastQuery)
	assert.Equal(t, 5, suggester.lastLimit)

	var out []models.Suggestion
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Len(t, out, 1)
}

func TestSuggest_Validation(t *testing.T) {
	h := newTestServer(t, &fakeProducts{}, &fakeSuggester{}, &fakeDatabase{})

	assert.Equal(t, http.StatusBadRequest, do(h, "/api/v1/search/suggest").Code)
	assert.Equal(t, http.StatusBadRequest, do(h, "/api/v1/search/suggest?q=iph&limit=many").Code)
}

func TestSuggest_StorageFailure(t *testing.T) {
	suggester := &fakeSuggester{err: apperrors.NewStorageError("suggest.relational", errors.New("down"))}
	h := newTestServer(t, &fakeProducts{}, suggester, &fakeDatabase{})

	assert.Equal(t, http.StatusInternalServerError, do(h, "/api/v1/search/suggest?q=iph").Code)
}

// ==========================
// Health
// ==========================

func TestHealth(t *testing.T) {
	h := newTestServer(t, &fakeProducts{}, &fakeSuggester{}, &fakeDatabase{})

	rr := do(h, "/health")
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "PostgreSQL 16.2", body["database"].(map[string]interface{})["version"])

	h = newTestServer(t, &fakeProducts{}, &fakeSuggester{}, &fakeDatabase{err: errors.New("refused")})
	assert.Equal(t, http.StatusServiceUnavailable, do(h, "/health").Code)
}

func TestReady(t *testing.T) {
	down := Dependency{Name: "elasticsearch", Ping: func(context.Context) error { return errors.New("no route") }}
	h := newTestServer(t, &fakeProducts{}, &fakeSuggester{}, &fakeDatabase{}, down)

	rr := do(h, "/ready")
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body["status"])
	checks := body["checks"].(map[string]interface{})
	assert.Equal(t, "ok", checks["postgres"])
	assert.Equal(t, "no route", checks["elasticsearch"])

	h = newTestServer(t, &fakeProducts{}, &fakeSuggester{}, &fakeDatabase{err: errors.New("refused")})
	assert.Equal(t, http.StatusServiceUnavailable, do(h, "/ready").Code)
}

func TestRequestIDIsPropagated(t *testing.T) {
	h := newTestServer(t, &fakeProducts{}, &fakeSuggester{}, &fakeDatabase{})

	req := httptest.NewRequest(http.MethodGet, "/health", http.NoBody)
	req.Header.Set("X-Request-ID", "abc-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "abc-123", rr.Header().Get("X-Request-ID"))
}

func TestRequestIDIsGeneratedWhenMissing(t *testing.T) {
	h := newTestServer(t, &fakeProducts{}, &fakeSuggester{}, &fakeDatabase{})

	first := do(h, "/health").Header().Get("X-Request-ID")
	second := do(h, "/health").Header().Get("X-Request-ID")
	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}

func TestUnknownRoute(t *testing.T) {
	h := newTestServer(t, &fakeProducts{}, &fakeSuggester{}, &fakeDatabase{})
	assert.Equal(t, http.StatusNotFound, do(h, "/api/v1/nope").Code)
}
