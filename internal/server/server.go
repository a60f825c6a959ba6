// Package server is the HTTP shell: routing, middleware and the handlers
// that wire the normalizer, the agent invoker and the response encoder
// together.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/n0madic/go-ollama-claude/internal/agent"
	"github.com/n0madic/go-ollama-claude/internal/codec"
	"github.com/n0madic/go-ollama-claude/internal/config"
	"github.com/n0madic/go-ollama-claude/internal/models"
)

// maxBodyBytes limits the size of incoming request bodies.
const maxBodyBytes = 10 * 1024 * 1024 // 10 MB

// Server is the main HTTP server.
type Server struct {
	Config   *config.ServerConfig
	Registry *models.Registry
	Invoker  agent.Invoker

	handler    http.Handler
	httpServer *http.Server
}

// New creates a server with all routes registered.
func New(cfg *config.ServerConfig) *Server {
	s := &Server{
		Config:   cfg,
		Registry: models.NewRegistry(cfg.Models),
		Invoker:  agent.NewRunner(cfg.ClaudeBinary, cfg.WorkDir),
	}

	mux := http.NewServeMux()

	// Health
	mux.HandleFunc("GET /", s.handleHealth)
	mux.HandleFunc("GET /health", s.handleHealth)

	// Ollama-compatible routes
	mux.HandleFunc("POST /api/generate", s.handleGenerate)
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/tags", s.handleTags)
	mux.HandleFunc("GET /api/ps", s.handlePS)
	mux.HandleFunc("POST /api/show", s.handleShow)
	mux.HandleFunc("GET /api/version", s.handleVersion)

	// OPTIONS for CORS preflight
	mux.HandleFunc("OPTIONS /", s.handleOptions)

	s.handler = corsMiddleware(authMiddleware(cfg, requestLogMiddleware(cfg, mux)))

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	s.httpServer = &http.Server{
		Addr:        addr,
		Handler:     s.handler,
		ReadTimeout: 30 * time.Second,
		// Streaming responses stay open for the whole agent invocation.
		WriteTimeout: 600 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Handler exposes the full middleware chain, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe starts the server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		codec.WriteError(w, http.StatusBadRequest, "Failed to read request body")
		return nil, false
	}
	return body, true
}
