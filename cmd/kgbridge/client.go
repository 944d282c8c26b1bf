package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mattjoyce/kgbridge/internal/api"
	"github.com/mattjoyce/kgbridge/internal/config"
	"github.com/mattjoyce/kgbridge/internal/supervisor"
)

// loadConfigFromArgs parses the shared --config flag and loads the
// configuration, discovering it when the flag is absent.
func loadConfigFromArgs(action string, args []string) (*config.Config, string, int) {
	fs := flag.NewFlagSet(action, flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return nil, "", 1
	}

	if *configPath == "" {
		discovered, err := config.DiscoverConfigDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to discover config: %v\n", err)
			return nil, "", 1
		}
		*configPath = discovered
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, *configPath, 1
	}
	return cfg, *configPath, 0
}

// apiClient talks to a running daemon's HTTP API.
type apiClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func clientFromArgs(action string, args []string) (*apiClient, int) {
	cfg, _, code := loadConfigFromArgs(action, args)
	if cfg == nil {
		return nil, code
	}
	if !cfg.API.Enabled {
		fmt.Fprintln(os.Stderr, "The API is disabled in this configuration; this command needs a running daemon with api.enabled: true")
		return nil, 1
	}
	return &apiClient{
		baseURL: "http://" + cfg.API.Listen,
		apiKey:  cfg.API.Auth.APIKey,
		http:    &http.Client{Timeout: 10 * time.Second},
	}, 0
}

func (c *apiClient) do(method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("is the daemon running? %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr api.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s", apiErr.Error)
		}
		return fmt.Errorf("daemon returned %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *apiClient) printHealth() int {
	var h api.HealthzResponse
	if err := c.do("GET", "/healthz", nil, &h); err != nil {
		fmt.Fprintf(os.Stderr, "Status check failed: %v\n", err)
		return 1
	}
	fmt.Printf("Daemon:  %s (up %ds)\n", h.Status, h.UptimeSeconds)
	fmt.Printf("Agent:   %s\n", h.AgentState)
	return 0
}

// --- AGENT NOUN ---

func runAgentNoun(args []string) int {
	if len(args) < 1 || isHelpToken(args[0]) {
		fmt.Print(`Agent commands:
  kgbridge agent start  [--config PATH]          Spawn the agent process
  kgbridge agent stop   [--config PATH]          Stop the agent gracefully
  kgbridge agent send <text> [--config PATH]     Write one line to the agent
  kgbridge agent status [--config PATH] [--json] Show supervisor state
`)
		if len(args) < 1 {
			return 1
		}
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "start":
		return runAgentLifecycle("start", actionArgs)
	case "stop":
		return runAgentLifecycle("stop", actionArgs)
	case "send":
		return runAgentSend(actionArgs)
	case "status":
		return runAgentStatus(actionArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown agent action: %s\n", action)
		return 1
	}
}

func runAgentLifecycle(action string, args []string) int {
	client, code := clientFromArgs(action, args)
	if client == nil {
		return code
	}
	var resp api.AgentResponse
	if err := client.do("POST", "/agent/"+action, nil, &resp); err != nil {
		fmt.Fprintf(os.Stderr, "Agent %s failed: %v\n", action, err)
		return 1
	}
	fmt.Printf("Agent %s: ok=%v state=%s", action, resp.OK, resp.Status.State)
	if resp.Status.PID != 0 {
		fmt.Printf(" pid=%d", resp.Status.PID)
	}
	fmt.Println()
	return 0
}

func runAgentSend(args []string) int {
	// The text is positional; flags may follow it.
	var text string
	var remainingArgs []string
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") && text == "" {
			text = arg
		} else {
			remainingArgs = append(remainingArgs, arg)
		}
	}
	if text == "" {
		fmt.Fprintln(os.Stderr, "Usage: kgbridge agent send <text> [--config PATH]")
		return 1
	}

	client, code := clientFromArgs("send", remainingArgs)
	if client == nil {
		return code
	}
	if err := client.do("POST", "/agent/send", api.SendRequest{Text: text}, nil); err != nil {
		fmt.Fprintf(os.Stderr, "Send failed: %v\n", err)
		return 1
	}
	fmt.Println("Sent.")
	return 0
}

func runAgentStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	jsonOut := fs.Bool("json", false, "Output in JSON format")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	clientArgs := []string{}
	if *configPath != "" {
		clientArgs = append(clientArgs, "--config", *configPath)
	}
	client, code := clientFromArgs("status", clientArgs)
	if client == nil {
		return code
	}

	var st supervisor.Status
	if err := client.do("GET", "/agent/status", nil, &st); err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		return 1
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(st)
		return 0
	}
	fmt.Printf("State:    %s\n", st.State)
	fmt.Printf("Mode:     %s\n", st.Mode)
	if st.PID != 0 {
		fmt.Printf("PID:      %d\n", st.PID)
	}
	if st.SessionID != "" {
		fmt.Printf("Session:  %s\n", st.SessionID)
	}
	fmt.Printf("Crashes:  %d\n", st.CrashCount)
	if st.Disabled {
		fmt.Println("Disabled: crash breaker tripped")
	}
	return 0
}

// --- HISTORY NOUN ---

func runHistoryNoun(args []string) int {
	if len(args) < 1 || isHelpToken(args[0]) {
		fmt.Print(`History commands:
  kgbridge history sessions [--config PATH] [--limit N]  List recent sessions
  kgbridge history exits <session> [--config PATH]       List exits for a session
`)
		if len(args) < 1 {
			return 1
		}
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "sessions":
		return runHistorySessions(actionArgs)
	case "exits":
		return runHistoryExits(actionArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown history action: %s\n", action)
		return 1
	}
}

func runHistorySessions(args []string) int {
	fs := flag.NewFlagSet("sessions", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	limit := fs.Int("limit", 20, "Number of sessions to show")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	clientArgs := []string{}
	if *configPath != "" {
		clientArgs = append(clientArgs, "--config", *configPath)
	}
	client, code := clientFromArgs("sessions", clientArgs)
	if client == nil {
		return code
	}

	var resp api.SessionsResponse
	if err := client.do("GET", fmt.Sprintf("/history/sessions?limit=%d", *limit), nil, &resp); err != nil {
		fmt.Fprintf(os.Stderr, "History failed: %v\n", err)
		return 1
	}
	if len(resp.Sessions) == 0 {
		fmt.Println("No sessions recorded.")
		return 0
	}
	for _, s := range resp.Sessions {
		end := "running"
		if s.EndedAt != nil {
			end = s.EndedAt.Format(time.RFC3339)
		}
		flags := ""
		if s.Disabled {
			flags = " [disabled]"
		}
		fmt.Printf("%s  %s  %s  %s → %s%s\n",
			s.ID, s.Mode, s.Executable, s.StartedAt.Format(time.RFC3339), end, flags)
	}
	return 0
}

func runHistoryExits(args []string) int {
	var sessionID string
	var remainingArgs []string
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") && sessionID == "" {
			sessionID = arg
		} else {
			remainingArgs = append(remainingArgs, arg)
		}
	}
	if sessionID == "" {
		fmt.Fprintln(os.Stderr, "Usage: kgbridge history exits <session> [--config PATH]")
		return 1
	}

	client, code := clientFromArgs("exits", remainingArgs)
	if client == nil {
		return code
	}

	var resp api.ExitsResponse
	if err := client.do("GET", "/history/sessions/"+sessionID+"/exits", nil, &resp); err != nil {
		fmt.Fprintf(os.Stderr, "History failed: %v\n", err)
		return 1
	}
	if len(resp.Exits) == 0 {
		fmt.Println("No exits recorded for this session.")
		return 0
	}
	for _, e := range resp.Exits {
		how := "code ?"
		if e.ExitCode != nil {
			how = fmt.Sprintf("code %d", *e.ExitCode)
		}
		if e.Signal != nil {
			how = "signal " + *e.Signal
		}
		kind := "unexpected"
		if e.Expected {
			kind = "expected"
		}
		fmt.Printf("%s  %s  %s (%s)\n", e.ID, e.ExitedAt.Format(time.RFC3339), how, kind)
	}
	return 0
}
