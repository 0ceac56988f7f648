package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/kasuganosora/dbmagic/pkg/config"
	"github.com/kasuganosora/dbmagic/pkg/magic"
)

// Server is the HTTP server exposing handlers under the session middleware.
type Server struct {
	factory    *magic.Factory
	cfg        *config.ServerConfig
	mux        *http.ServeMux
	httpServer *http.Server
}

// NewServer creates a server. Handlers added with Handle run with a
// per-request session scope available from their request context.
func NewServer(factory *magic.Factory, cfg *config.ServerConfig) *Server {
	s := &Server{
		factory: factory,
		cfg:     cfg,
		mux:     http.NewServeMux(),
	}

	s.mux.HandleFunc("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: "1.0.0",
		})
	})

	return s
}

// Handle registers a handler under the session middleware.
func (s *Server) Handle(pattern string, handler http.Handler) {
	s.mux.Handle(pattern, SessionMiddleware(s.factory)(handler))
}

// HandleFunc registers a handler function under the session middleware.
func (s *Server) HandleFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.Handle(pattern, http.HandlerFunc(handler))
}

// Handler returns the fully assembled handler chain:
// Recovery → Logging → mux.
func (s *Server) Handler() http.Handler {
	logger := s.factory.Logger()
	return RecoveryMiddleware(logger)(LoggingMiddleware(logger)(s.mux))
}

// Start starts the HTTP server (blocking).
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	s.factory.Logger().Info("[HTTP] listening on %s", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
