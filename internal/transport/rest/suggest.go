package rest

import (
	"fmt"
	"net/http"
	"strconv"

	"catalog-search/internal/common/validation"
)

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if err := validation.SuggestParams.Validate(validation.FromQuery(query)); err != nil {
		s.errors.HandleRequestError(w, r, err)
		return
	}

	limit, _ := strconv.Atoi(query.Get("limit"))
	out, err := s.suggest.Suggest(r.Context(), query.Get("q"), limit)
	if err != nil {
		s.errors.HandleRequestError(w, r, err)
		return
	}

	if ttl := s.suggest.CacheTTL(); ttl > 0 {
		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(ttl.Seconds())))
	}
	writeJSON(w, http.StatusOK, out)
}
