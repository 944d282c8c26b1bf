package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthzResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		AgentState:    s.agent.Status().State,
	})
}

func (s *Server) handleAgentStart(w http.ResponseWriter, r *http.Request) {
	ok := s.agent.Start()
	status := s.agent.Status()
	if !ok {
		code := http.StatusConflict
		if status.Disabled {
			s.writeError(w, code, "agent disabled after repeated crashes")
			return
		}
		s.writeError(w, code, "agent failed to start")
		return
	}
	respondJSON(w, http.StatusOK, AgentResponse{OK: true, Status: status})
}

func (s *Server) handleAgentStop(w http.ResponseWriter, r *http.Request) {
	ok := s.agent.Stop()
	respondJSON(w, http.StatusOK, AgentResponse{OK: ok, Status: s.agent.Status()})
}

func (s *Server) handleAgentSend(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Text == "" {
		s.writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	if !s.agent.Send(req.Text) {
		s.writeError(w, http.StatusConflict, "agent is not running")
		return
	}
	respondJSON(w, http.StatusAccepted, AgentResponse{OK: true, Status: s.agent.Status()})
}

func (s *Server) handleAgentStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.agent.Status())
}

func (s *Server) handleHistorySessions(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			s.writeError(w, http.StatusBadRequest, "limit must be 1..500")
			return
		}
		limit = n
	}
	sessions, err := s.history.RecentSessions(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list sessions", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	respondJSON(w, http.StatusOK, SessionsResponse{Sessions: sessions})
}

func (s *Server) handleHistoryExits(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	exits, err := s.history.ExitsForSession(r.Context(), sessionID)
	if err != nil {
		s.logger.Error("failed to list exits", "session", sessionID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list exits")
		return
	}
	respondJSON(w, http.StatusOK, ExitsResponse{SessionID: sessionID, Exits: exits})
}

// respondJSON is a helper to write JSON responses.
func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}
