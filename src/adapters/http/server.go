package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"freightapi/src/infra/metrics"
	"freightapi/src/services/freight"
)

// Server representa o servidor HTTP da API
type Server struct {
	logger         *slog.Logger
	server         *http.Server
	mux            *http.ServeMux
	port           int
	freightService *freight.FreightService
	metrics        *metrics.HTTPMetrics
	allowedOrigins []string
}

// NewServer cria uma nova instância do servidor
func NewServer(
	logger *slog.Logger,
	port int,
	freightService *freight.FreightService,
	httpMetrics *metrics.HTTPMetrics,
	allowedOrigins []string,
) *Server {
	server := &Server{
		mux:            http.NewServeMux(),
		port:           port,
		logger:         logger,
		freightService: freightService,
		metrics:        httpMetrics,
		allowedOrigins: allowedOrigins,
	}

	server.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      server.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Rotas de Leitura
	server.mux.HandleFunc("GET /api/freights", server.ListFreights)
	server.mux.HandleFunc("GET /api/freights/{id}", server.GetFreight)

	// Rotas de Escrita
	server.mux.HandleFunc("POST /api/freights", server.CreateFreight)
	server.mux.HandleFunc("PUT /api/freights/{id}", server.UpdateFreight)
	server.mux.HandleFunc("DELETE /api/freights/{id}", server.DeleteFreight)

	server.mux.HandleFunc("GET /health", server.Health)
	server.mux.Handle("GET /metrics", httpMetrics.Handler())

	return server
}

// Handler returns the mux wrapped in the CORS and request logging middlewares.
func (s *Server) Handler() http.Handler {
	return s.withCORS(s.withRequestLogging(s.mux))
}

// Start inicia o servidor HTTP
func (s *Server) Start() error {
	s.logger.Info("Server started", "port", s.port, "allowed_origins", s.allowedOrigins)

	return s.server.ListenAndServe()
}

// Shutdown encerra o servidor HTTP de forma graciosa
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
