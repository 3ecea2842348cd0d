package http

import (
	"net/http"
)

func (s *Server) DeleteFreight(w http.ResponseWriter, r *http.Request) {
	id, err := parseFreightID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.freightService.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
