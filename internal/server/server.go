// Package server exposes the chat API over HTTP: orchestration requests,
// the agent directory, and session management.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/nhcloud/agentframework-workshop-sub001/agent"
	"github.com/nhcloud/agentframework-workshop-sub001/chat"
	"github.com/nhcloud/agentframework-workshop-sub001/internal/orchestration"
	"github.com/nhcloud/agentframework-workshop-sub001/pkg/observability"
	"github.com/nhcloud/agentframework-workshop-sub001/pkg/session"
)

// FormatSynthesized requests the single-answer response view.
const FormatSynthesized = "synthesized"

// Server is the chat API HTTP server.
type Server struct {
	engine     *orchestration.Engine
	registry   agent.Registry
	sessions   *session.Manager
	httpServer *http.Server
	port       int
}

// New creates a chat API server.
func New(engine *orchestration.Engine, registry agent.Registry, sessions *session.Manager, port int) *Server {
	return &Server{
		engine:   engine,
		registry: registry,
		sessions: sessions,
		port:     port,
	}
}

// Handler builds the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/chat", s.instrument("/v1/chat", s.handleChat))
	mux.HandleFunc("GET /v1/agents", s.instrument("/v1/agents", s.handleListAgents))
	mux.HandleFunc("GET /v1/sessions", s.instrument("/v1/sessions", s.handleListSessions))
	mux.HandleFunc("GET /v1/sessions/{id}", s.instrument("/v1/sessions/{id}", s.handleGetSession))
	mux.HandleFunc("DELETE /v1/sessions/{id}", s.instrument("/v1/sessions/{id}", s.handleDeleteSession))

	return mux
}

// Start begins serving the chat API.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // must outlast the orchestration deadline
		IdleTimeout:  120 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) instrument(path string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		observability.RecordHTTPRequest(r.Method, path, strconv.Itoa(rec.status), time.Since(start))
	}
}

// synthesizedResponse is the single-answer view of an orchestration result.
type synthesizedResponse struct {
	Content          string    `json:"content"`
	SessionID        string    `json:"session_id"`
	Mode             chat.Mode `json:"mode"`
	AgentCount       int       `json:"agent_count"`
	TotalTurns       int       `json:"total_turns"`
	TerminatedAgents []string  `json:"terminated_agents"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chat.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	if req.Message == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "message is required"})
		return
	}

	result, err := s.engine.Orchestrate(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, orchestration.ErrTimeout):
			writeJSON(w, http.StatusGatewayTimeout, errorResponse{
				Error: "request timed out; try fewer agents or a shorter message",
			})
		case errors.Is(err, orchestration.ErrCancelled):
			writeJSON(w, http.StatusRequestTimeout, errorResponse{Error: "request cancelled"})
		default:
			log.Printf("[SERVER] orchestration failed: %v", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "orchestration failed"})
		}
		return
	}

	if req.Format == FormatSynthesized {
		content, err := s.engine.Assembler().Synthesize(r.Context(), result.Turns)
		if err != nil {
			// Synthesis failure degrades to the detailed view.
			log.Printf("[SERVER] synthesis failed, returning detailed view: %v", err)
			writeJSON(w, http.StatusOK, result)
			return
		}
		writeJSON(w, http.StatusOK, synthesizedResponse{
			Content:          content,
			SessionID:        result.SessionID,
			Mode:             result.Mode,
			AgentCount:       result.AgentCount,
			TotalTurns:       result.TotalTurns,
			TerminatedAgents: result.TerminatedAgents,
		})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"agents": s.registry.Describe(),
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	opts := session.ListOptions{}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.Offset = n
		}
	}

	sessions, err := s.sessions.List(r.Context(), opts)
	if err != nil {
		log.Printf("[SERVER] list sessions failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "listing sessions failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": sessions,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	turns, err := s.sessions.History(r.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "session not found"})
			return
		}
		log.Printf("[SERVER] load session %s failed: %v", id, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "loading session failed"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": id,
		"messages":   turns,
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := s.sessions.Delete(r.Context(), id); err != nil {
		log.Printf("[SERVER] delete session %s failed: %v", id, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "deleting session failed"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("[SERVER] encoding response failed: %v", err)
	}
}
