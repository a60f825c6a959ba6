package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/n0madic/go-ollama-claude/internal/codec"
	"github.com/n0madic/go-ollama-claude/internal/config"
	"github.com/n0madic/go-ollama-claude/internal/normalize"
	"github.com/n0madic/go-ollama-claude/internal/types"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	codec.WriteJSON(w, http.StatusOK, map[string]string{"status": "Ollama-Claude bridge is running"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	codec.WriteJSON(w, http.StatusOK, types.VersionResponse{Version: config.Version})
}

// handleGenerate handles POST /api/generate.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	var req types.GenerateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		codec.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	canon, err := normalize.FromGenerate(&req, s.Config.DefaultMaxTurns)
	if err != nil {
		writeNormalizeError(w, err)
		return
	}
	s.complete(w, r, canon, codec.ShapeGenerate)
}

// handleChat handles POST /api/chat.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	var req types.ChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		codec.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	canon, err := normalize.FromChat(&req, s.Config.DefaultMaxTurns)
	if err != nil {
		writeNormalizeError(w, err)
		return
	}
	s.complete(w, r, canon, codec.ShapeChat)
}

// complete runs the shared normalizer-to-encoder path for both completion
// endpoints: catalog check, agent invocation, response encoding.
func (s *Server) complete(w http.ResponseWriter, r *http.Request, canon *types.CanonicalRequest, shape codec.Shape) {
	if _, ok := s.Registry.Lookup(canon.Model); !ok {
		msg := fmt.Sprintf("model %q is not available via this endpoint", canon.Model)
		if hint := s.Registry.Hint(); hint != "" {
			msg += "; available models: " + hint
		}
		codec.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	if s.Config.Verbose {
		slog.Info("ollama.request",
			"model", canon.Model,
			"stream", canon.Stream,
			"turns", len(canon.Turns),
			"max_turns", canon.MaxTurns,
			"system_chars", len(canon.SystemInstruction),
		)
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	st := s.Invoker.Invoke(ctx, canon)
	defer st.Close()

	enc := codec.NewEncoder(canon.Model, shape)
	if canon.Stream {
		if err := enc.EncodeStream(w, st); err != nil {
			// The client went away. Cancelling the context stops the
			// runtime instead of draining its output into the void.
			cancel()
			slog.Warn("client disconnected mid-stream", "model", canon.Model, "error", err)
		}
		return
	}
	if err := enc.EncodeBuffered(w, st); err != nil {
		slog.Warn("failed to write buffered response", "model", canon.Model, "error", err)
	}
}

func writeNormalizeError(w http.ResponseWriter, err error) {
	var verr *normalize.ValidationError
	if errors.As(err, &verr) {
		codec.WriteError(w, http.StatusBadRequest, verr.Reason)
		return
	}
	codec.WriteError(w, http.StatusBadRequest, err.Error())
}

// handleTags handles GET /api/tags.
func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	codec.WriteJSON(w, http.StatusOK, s.Registry.Tags())
}

// handlePS handles GET /api/ps.
func (s *Server) handlePS(w http.ResponseWriter, r *http.Request) {
	codec.WriteJSON(w, http.StatusOK, s.Registry.PS())
}

// handleShow handles POST /api/show.
func (s *Server) handleShow(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	var req struct {
		Model string `json:"model"`
		Name  string `json:"name"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		codec.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	model := req.Model
	if model == "" {
		model = req.Name
	}
	if model == "" {
		codec.WriteError(w, http.StatusBadRequest, "model is required")
		return
	}
	resp, found := s.Registry.Show(model)
	if !found {
		codec.WriteError(w, http.StatusNotFound, fmt.Sprintf("model %q not found", model))
		return
	}
	codec.WriteJSON(w, http.StatusOK, resp)
}
