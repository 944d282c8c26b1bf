package api

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/kgbridge/internal/api/mocks"
	"github.com/mattjoyce/kgbridge/internal/auth"
	"github.com/mattjoyce/kgbridge/internal/events"
	"github.com/mattjoyce/kgbridge/internal/history"
	"github.com/mattjoyce/kgbridge/internal/supervisor"
)

const (
	adminKey    = "admin-key"
	readerToken = "reader-token"
)

func newTestServer(t *testing.T) (*Server, *mocks.MockAgentController, *mocks.MockHistoryReader, *events.Hub) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	agent := mocks.NewMockAgentController(ctrl)
	hist := mocks.NewMockHistoryReader(ctrl)
	hub := events.NewHub()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	s := New(Config{
		Listen: "127.0.0.1:0",
		APIKey: adminKey,
		Tokens: []auth.TokenConfig{
			{Token: readerToken, Scopes: []string{"events:ro", "history:ro"}},
		},
	}, agent, hub, hist, logger)
	return s, agent, hist, hub
}

func doRequest(t *testing.T, s *Server, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.setupRoutes().ServeHTTP(rec, req)
	return rec
}

func TestHealthzRequiresNoAuth(t *testing.T) {
	s, agent, _, _ := newTestServer(t)
	agent.EXPECT().Status().Return(supervisor.Status{State: "idle"})

	rec := doRequest(t, s, "GET", "/healthz", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthzResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "idle", resp.AgentState)
}

func TestAuthRequired(t *testing.T) {
	s, _, _, _ := newTestServer(t)

	rec := doRequest(t, s, "GET", "/agent/status", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, s, "GET", "/agent/status", "wrong-key", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestScopeEnforced(t *testing.T) {
	s, _, _, _ := newTestServer(t)

	// The reader token has no agent:rw.
	rec := doRequest(t, s, "POST", "/agent/start", readerToken, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAgentStart(t *testing.T) {
	s, agent, _, _ := newTestServer(t)
	agent.EXPECT().Start().Return(true)
	agent.EXPECT().Status().Return(supervisor.Status{State: "running", PID: 42})

	rec := doRequest(t, s, "POST", "/agent/start", adminKey, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AgentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, "running", resp.Status.State)
	assert.Equal(t, 42, resp.Status.PID)
}

func TestAgentStartWhileDisabled(t *testing.T) {
	s, agent, _, _ := newTestServer(t)
	agent.EXPECT().Start().Return(false)
	agent.EXPECT().Status().Return(supervisor.Status{State: "disabled", Disabled: true})

	rec := doRequest(t, s, "POST", "/agent/start", adminKey, "")
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "disabled")
}

func TestAgentStop(t *testing.T) {
	s, agent, _, _ := newTestServer(t)
	agent.EXPECT().Stop().Return(true)
	agent.EXPECT().Status().Return(supervisor.Status{State: "stopping"})

	rec := doRequest(t, s, "POST", "/agent/stop", adminKey, "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAgentSend(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		sendOK   *bool
		wantCode int
	}{
		{name: "ok", body: `{"text":"hello"}`, sendOK: boolPtr(true), wantCode: http.StatusAccepted},
		{name: "not running", body: `{"text":"hello"}`, sendOK: boolPtr(false), wantCode: http.StatusConflict},
		{name: "empty text", body: `{"text":""}`, wantCode: http.StatusBadRequest},
		{name: "invalid json", body: `{`, wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, agent, _, _ := newTestServer(t)
			if tt.sendOK != nil {
				agent.EXPECT().Send("hello").Return(*tt.sendOK)
				if *tt.sendOK {
					agent.EXPECT().Status().Return(supervisor.Status{State: "running"})
				}
			}
			rec := doRequest(t, s, "POST", "/agent/send", adminKey, tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestHistorySessions(t *testing.T) {
	s, _, hist, _ := newTestServer(t)
	hist.EXPECT().RecentSessions(gomock.Any(), 5).Return([]history.Session{
		{ID: "s1", Mode: "production", Executable: "/usr/bin/kg-agent"},
	}, nil)

	rec := doRequest(t, s, "GET", "/history/sessions?limit=5", readerToken, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SessionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Sessions, 1)
	assert.Equal(t, "s1", resp.Sessions[0].ID)
}

func TestHistorySessionsRejectsBadLimit(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	for _, limit := range []string{"0", "-1", "9999", "abc"} {
		rec := doRequest(t, s, "GET", "/history/sessions?limit="+limit, readerToken, "")
		assert.Equalf(t, http.StatusBadRequest, rec.Code, "limit=%s", limit)
	}
}

func TestHistoryExits(t *testing.T) {
	s, _, hist, _ := newTestServer(t)
	code := 1
	hist.EXPECT().ExitsForSession(gomock.Any(), "s1").Return([]history.Exit{
		{ID: "e1", SessionID: "s1", ExitCode: &code},
	}, nil)

	rec := doRequest(t, s, "GET", "/history/sessions/s1/exits", readerToken, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ExitsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "s1", resp.SessionID)
	require.Len(t, resp.Exits, 1)
}

func TestEventsRejectsUnknownChannel(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	rec := doRequest(t, s, "GET", "/events?channels=bogus", readerToken, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEventsStreamsSSE(t *testing.T) {
	s, _, _, hub := newTestServer(t)
	srv := httptest.NewServer(s.setupRoutes())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/events?channels=status", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+readerToken)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	hub.Publish(events.ChannelStatus, map[string]any{"running": true})

	scanner := bufio.NewScanner(resp.Body)
	var eventLine, dataLine string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			eventLine = line
		case strings.HasPrefix(line, "data: "):
			dataLine = line
		}
		if dataLine != "" {
			break
		}
	}
	assert.Equal(t, "event: status", eventLine)
	assert.Contains(t, dataLine, `"running":true`)
}

func boolPtr(b bool) *bool { return &b }
