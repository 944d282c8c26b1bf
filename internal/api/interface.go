package api

import (
	"context"

	"github.com/mattjoyce/kgbridge/internal/history"
	"github.com/mattjoyce/kgbridge/internal/supervisor"
)

//go:generate mockgen -destination=mocks/mock_controller.go -package=mocks github.com/mattjoyce/kgbridge/internal/api AgentController,HistoryReader

// AgentController is the supervisor surface the API exposes.
type AgentController interface {
	Start() bool
	Stop() bool
	Send(text string) bool
	Status() supervisor.Status
}

// HistoryReader serves the read-only history endpoints.
type HistoryReader interface {
	RecentSessions(ctx context.Context, limit int) ([]history.Session, error)
	ExitsForSession(ctx context.Context, sessionID string) ([]history.Exit, error)
}
