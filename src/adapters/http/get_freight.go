package http

import (
	"net/http"
)

func (s *Server) GetFreight(w http.ResponseWriter, r *http.Request) {
	id, err := parseFreightID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	freight, err := s.freightService.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, MapFreightToResponse(freight))
}
