package http

import (
	"net/http"
)

// UpdateFreight aplica só as chaves presentes no body. "status": null limpa o campo,
// ausência de "status" mantém o valor atual.
func (s *Server) UpdateFreight(w http.ResponseWriter, r *http.Request) {
	id, err := parseFreightID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	payload, err := readFreightPayload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	patch, err := decodePatchPayload(payload)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	updated, err := s.freightService.Update(r.Context(), id, patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, MapFreightToResponse(updated))
}
