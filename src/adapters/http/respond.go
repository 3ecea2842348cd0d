package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"freightapi/src/domain"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Failed to write JSON response", "error", err)
	}
}

// writeError traduz os erros de domínio para status HTTP. Erros inesperados são
// logados e respondidos com a mensagem genérica.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *domain.ValidationError

	switch {
	case errors.As(err, &validationErr):
		s.writeJSON(w, http.StatusBadRequest, ErrorDTO{Error: validationErr.Error(), Field: validationErr.Field})
	case errors.Is(err, domain.ErrValidation):
		s.writeJSON(w, http.StatusBadRequest, ErrorDTO{Error: domain.ErrValidation.Error()})
	case errors.Is(err, domain.ErrFreightNotFound):
		s.writeJSON(w, http.StatusNotFound, ErrorDTO{Error: domain.ErrFreightNotFound.Error()})
	default:
		s.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		s.writeJSON(w, http.StatusInternalServerError, ErrorDTO{Error: domain.ErrUnavailableServer.Error()})
	}
}

func parseFreightID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError("id", "must be a positive integer")
	}
	return id, nil
}

// queryInt reads an optional integer query parameter.
func queryInt(r *http.Request, key string, defaultValue int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError(key, "must be an integer")
	}
	return value, nil
}
