package watch

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mattjoyce/kgbridge/internal/events"
	"github.com/mattjoyce/kgbridge/internal/supervisor"
)

// --- Message types ---

type eventMsg events.Event

type healthMsg struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	AgentState    string `json:"agent_state"`
}

type statusMsg supervisor.Status

type tickMsg time.Time

type errMsg error

type sseDisconnectedMsg struct{}
type reconnectMsg struct{}

type actionDoneMsg struct {
	action string
	err    error
}

// --- Commands ---

// subscribeToEvents connects to the SSE /events endpoint and feeds events
// into the provided channel. Returns sseDisconnectedMsg when the connection drops.
func subscribeToEvents(apiURL, apiKey string, ch chan<- events.Event) tea.Cmd {
	return func() tea.Msg {
		client := &http.Client{}
		req, err := http.NewRequest("GET", apiURL+"/events", nil)
		if err != nil {
			return errMsg(err)
		}
		req.Header.Set("Authorization", "Bearer "+apiKey)

		resp, err := client.Do(req)
		if err != nil {
			return sseDisconnectedMsg{}
		}
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		var current struct {
			id      int64
			channel string
			data    string
		}

		for scanner.Scan() {
			line := scanner.Text()

			if line == "" {
				if current.data != "" {
					ch <- events.Event{
						ID:      current.id,
						Channel: events.Channel(current.channel),
						At:      time.Now(),
						Data:    []byte(current.data),
					}
					current = struct {
						id      int64
						channel string
						data    string
					}{}
				}
				continue
			}

			if strings.HasPrefix(line, "id: ") {
				if id, err := strconv.ParseInt(line[4:], 10, 64); err == nil {
					current.id = id
				}
			} else if strings.HasPrefix(line, "event: ") {
				current.channel = line[7:]
			} else if strings.HasPrefix(line, "data: ") {
				current.data = line[6:]
			}
		}

		return sseDisconnectedMsg{}
	}
}

// receiveNextEvent waits for the next event from the channel.
func receiveNextEvent(ch <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		return eventMsg(<-ch)
	}
}

// fetchHealth queries the /healthz endpoint.
func fetchHealth(apiURL, apiKey string) tea.Msg {
	var h healthMsg
	if err := getJSON(apiURL+"/healthz", apiKey, &h); err != nil {
		return errMsg(err)
	}
	return h
}

// fetchStatus queries /agent/status.
func fetchStatus(apiURL, apiKey string) tea.Msg {
	var st supervisor.Status
	if err := getJSON(apiURL+"/agent/status", apiKey, &st); err != nil {
		return errMsg(err)
	}
	return statusMsg(st)
}

// sendLine fires POST /agent/send with one line of input.
func sendLine(apiURL, apiKey, text string) tea.Cmd {
	return func() tea.Msg {
		body, err := json.Marshal(map[string]string{"text": text})
		if err != nil {
			return actionDoneMsg{action: "send", err: err}
		}
		client := &http.Client{Timeout: 5 * time.Second}
		req, err := http.NewRequest("POST", apiURL+"/agent/send", bytes.NewReader(body))
		if err != nil {
			return actionDoneMsg{action: "send", err: err}
		}
		req.Header.Set("Authorization", "Bearer "+apiKey)
		req.Header.Set("Content-Type", "application/json")
		resp, err := client.Do(req)
		if err != nil {
			return actionDoneMsg{action: "send", err: err}
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 400 {
			return actionDoneMsg{action: "send", err: fmt.Errorf("send rejected: %s", resp.Status)}
		}
		return actionDoneMsg{action: "send"}
	}
}

// agentAction fires POST /agent/{start,stop}.
func agentAction(apiURL, apiKey, action string) tea.Cmd {
	return func() tea.Msg {
		client := &http.Client{Timeout: 5 * time.Second}
		req, err := http.NewRequest("POST", apiURL+"/agent/"+action, bytes.NewReader(nil))
		if err != nil {
			return actionDoneMsg{action: action, err: err}
		}
		req.Header.Set("Authorization", "Bearer "+apiKey)
		resp, err := client.Do(req)
		if err != nil {
			return actionDoneMsg{action: action, err: err}
		}
		defer resp.Body.Close()
		return actionDoneMsg{action: action}
	}
}

func getJSON(url, apiKey string, out any) error {
	client := &http.Client{Timeout: 2 * time.Second}
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(out)
}
