package api

import (
	"github.com/mattjoyce/kgbridge/internal/history"
	"github.com/mattjoyce/kgbridge/internal/supervisor"
)

// SendRequest is the JSON body for POST /agent/send.
type SendRequest struct {
	Text string `json:"text"`
}

// AgentResponse is returned by the agent lifecycle endpoints.
type AgentResponse struct {
	OK     bool              `json:"ok"`
	Status supervisor.Status `json:"status"`
}

// SessionsResponse is returned by GET /history/sessions.
type SessionsResponse struct {
	Sessions []history.Session `json:"sessions"`
}

// ExitsResponse is returned by GET /history/sessions/{sessionID}/exits.
type ExitsResponse struct {
	SessionID string         `json:"session_id"`
	Exits     []history.Exit `json:"exits"`
}

// ErrorResponse is returned on errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthzResponse is returned by GET /healthz.
type HealthzResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	AgentState    string `json:"agent_state"`
}
