package http

import (
	"net/http"

	"freightapi/src/domain"
)

// ListFreights atende GET /api/freights?q=&page=&size=. Sem q, lista tudo.
func (s *Server) ListFreights(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	size, err := queryInt(r, "size", domain.DefaultPageSize)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.freightService.Search(r.Context(), domain.SearchQuery{
		Query: r.URL.Query().Get("q"),
		Page:  page,
		Size:  size,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, MapPageToResponse(result))
}
