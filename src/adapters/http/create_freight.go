package http

import (
	"net/http"
)

func (s *Server) CreateFreight(w http.ResponseWriter, r *http.Request) {
	payload, err := readFreightPayload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	freight, err := decodeCreatePayload(payload)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	created, err := s.freightService.Create(r.Context(), freight)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, MapFreightToResponse(created))
}
