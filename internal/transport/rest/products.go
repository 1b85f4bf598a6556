package rest

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"catalog-search/internal/catalog/filters"
	apperrors "catalog-search/internal/common/errors"
	"catalog-search/internal/common/validation"
	"catalog-search/internal/models"
)

const totalCountHeader = "X-Total-Count"

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	f, err := filters.Normalize(filters.FromQuery(r.URL.Query()), s.products.Limits())
	if err != nil {
		s.errors.HandleRequestError(w, r, err)
		return
	}

	res, err := s.products.List(r.Context(), f)
	if err != nil {
		s.errors.HandleRequestError(w, r, err)
		return
	}
	writeList(w, res, f.IncludeMeta)
}

func (s *Server) handleSearchProducts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if err := validation.SearchParams.Validate(validation.FromQuery(query)); err != nil {
		s.errors.HandleRequestError(w, r, err)
		return
	}

	page, pageSize := s.pagination(r)
	res, err := s.products.Search(r.Context(), query.Get("q"), page, pageSize)
	if err != nil {
		s.errors.HandleRequestError(w, r, err)
		return
	}
	writeList(w, res, includeMeta(r))
}

func (s *Server) handleFlashSale(w http.ResponseWriter, r *http.Request) {
	page, pageSize := s.pagination(r)
	res, err := s.products.FlashSale(r.Context(), page, pageSize)
	if err != nil {
		s.errors.HandleRequestError(w, r, err)
		return
	}
	writeList(w, res, includeMeta(r))
}

func (s *Server) handleNewArrivals(w http.ResponseWriter, r *http.Request) {
	page, pageSize := s.pagination(r)
	res, err := s.products.NewArrivals(r.Context(), page, pageSize)
	if err != nil {
		s.errors.HandleRequestError(w, r, err)
		return
	}
	writeList(w, res, includeMeta(r))
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	if err := validation.ProductIDParams.Validate(map[string]interface{}{"id": raw}); err != nil {
		s.errors.HandleRequestError(w, r, err)
		return
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.errors.HandleRequestError(w, r, apperrors.NewValidationError("id", "id is out of range"))
		return
	}

	p, err := s.products.Get(r.Context(), id)
	if err != nil {
		s.errors.HandleRequestError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	all, err := s.products.Tags(r.Context())
	if err != nil {
		s.errors.HandleRequestError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, all)
}

func (s *Server) handleProductsByTag(w http.ResponseWriter, r *http.Request) {
	var value string
	if tag := filters.DecodeText(chi.URLParam(r, "tag")); tag != nil {
		value = *tag
	}

	page, pageSize := s.pagination(r)
	res, err := s.products.ByTag(r.Context(), value, page, pageSize)
	if err != nil {
		s.errors.HandleRequestError(w, r, err)
		return
	}
	writeList(w, res, includeMeta(r))
}

func (s *Server) pagination(r *http.Request) (int, int) {
	raw := filters.FromQuery(r.URL.Query())
	return filters.Pagination(raw.Page, raw.PageSize, s.products.Limits())
}

func includeMeta(r *http.Request) bool {
	v, _ := strconv.ParseBool(filters.FromQuery(r.URL.Query()).IncludeMeta)
	return v
}

// writeList sends the bare item array, or the full envelope when meta was
// requested. The total is always in X-Total-Count.
func writeList(w http.ResponseWriter, res *models.ListResult, meta bool) {
	w.Header().Set(totalCountHeader, strconv.FormatInt(res.Total, 10))
	if meta {
		writeJSON(w, http.StatusOK, res)
		return
	}
	writeJSON(w, http.StatusOK, res.Items)
}
