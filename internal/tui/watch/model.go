package watch

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mattjoyce/kgbridge/internal/events"
	"github.com/mattjoyce/kgbridge/internal/supervisor"
)

// Model is the main BubbleTea model for the watch TUI.
type Model struct {
	apiURL string
	apiKey string

	width  int
	height int

	// State
	health   HealthState
	agent    supervisor.Status
	eventLog []events.Event

	// Live indicators
	pulse    Heartbeat
	activity ActivityMeter

	theme Theme

	// Send prompt
	input     textinput.Model
	inputMode bool

	// Communication
	hubEvents chan events.Event

	// Error display
	lastError string
}

// New creates a new watch TUI model.
func New(apiURL, apiKey string) *Model {
	input := textinput.New()
	input.Placeholder = "line to send to the agent"
	input.CharLimit = 4096
	return &Model{
		input:     input,
		apiURL:    apiURL,
		apiKey:    apiKey,
		eventLog:  make([]events.Event, 0),
		hubEvents: make(chan events.Event, 100),
		pulse:     NewHeartbeat(),
		activity:  NewActivityMeter(),
		theme:     NewDefaultTheme(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		subscribeToEvents(m.apiURL, m.apiKey, m.hubEvents),
		receiveNextEvent(m.hubEvents),
		func() tea.Msg { return fetchHealth(m.apiURL, m.apiKey) },
		func() tea.Msg { return fetchStatus(m.apiURL, m.apiKey) },
		tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) }),
		tea.EnterAltScreen,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.inputMode {
			switch msg.String() {
			case "esc":
				m.inputMode = false
				m.input.Blur()
				m.input.Reset()
				return m, nil
			case "enter":
				text := strings.TrimSpace(m.input.Value())
				m.inputMode = false
				m.input.Blur()
				m.input.Reset()
				if text == "" {
					return m, nil
				}
				return m, sendLine(m.apiURL, m.apiKey, text)
			default:
				var cmd tea.Cmd
				m.input, cmd = m.input.Update(msg)
				return m, cmd
			}
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "s":
			return m, agentAction(m.apiURL, m.apiKey, "start")
		case "x":
			return m, agentAction(m.apiURL, m.apiKey, "stop")
		case "i":
			m.inputMode = true
			m.lastError = ""
			return m, m.input.Focus()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		m.pulse.Beat()
		return m, tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })

	case eventMsg:
		e := events.Event(msg)

		// Event log is newest first.
		m.eventLog = append([]events.Event{e}, m.eventLog...)
		if len(m.eventLog) > 50 {
			m.eventLog = m.eventLog[:50]
		}

		m.activity.Mark()
		m.health.Connected = true
		m.lastError = ""

		// Status and exit events change the agent snapshot; refresh it.
		if e.Channel == events.ChannelStatus || e.Channel == events.ChannelExit {
			return m, tea.Batch(
				receiveNextEvent(m.hubEvents),
				func() tea.Msg { return fetchStatus(m.apiURL, m.apiKey) },
			)
		}
		return m, receiveNextEvent(m.hubEvents)

	case healthMsg:
		m.health.Status = msg.Status
		m.health.UptimeSeconds = msg.UptimeSeconds
		m.health.Connected = true
		m.health.LastCheck = time.Now()
		m.lastError = ""

		return m, tea.Tick(5*time.Second, func(t time.Time) tea.Msg {
			return fetchHealth(m.apiURL, m.apiKey)
		})

	case statusMsg:
		m.agent = supervisor.Status(msg)

	case actionDoneMsg:
		if msg.err != nil {
			m.lastError = fmt.Sprintf("%s failed: %v", msg.action, msg.err)
			return m, nil
		}
		return m, func() tea.Msg { return fetchStatus(m.apiURL, m.apiKey) }

	case sseDisconnectedMsg:
		m.health.Connected = false
		m.lastError = "SSE disconnected, reconnecting..."
		// Reconnect after a short delay; the existing receiveNextEvent
		// goroutine is still waiting on the channel and will pick up
		// events from the new subscription.
		return m, tea.Tick(3*time.Second, func(t time.Time) tea.Msg {
			return reconnectMsg{}
		})

	case reconnectMsg:
		return m, subscribeToEvents(m.apiURL, m.apiKey, m.hubEvents)

	case errMsg:
		m.lastError = msg.Error()
		// Retry health in 5s
		return m, tea.Tick(5*time.Second, func(t time.Time) tea.Msg {
			return fetchHealth(m.apiURL, m.apiKey)
		})
	}

	return m, nil
}

func (m Model) View() string {
	if m.width == 0 {
		return "Initializing watch..."
	}

	header := renderHeader(m.health, m.agent, m.pulse, m.activity, m.theme, m.width)
	stream := renderEventStream(m.eventLog, m.theme, m.width)

	var errBar string
	if m.lastError != "" {
		errBar = m.theme.StatusFailed.Render(fmt.Sprintf(" ⚠ %s", m.lastError))
	}

	help := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Render(" [q] Quit • [s] Start agent • [x] Stop agent • [i] Send line")

	parts := []string{header, stream}
	if m.inputMode {
		parts = append(parts, m.theme.Border.Width(m.width-4).Render(" send> "+m.input.View()))
	}
	if errBar != "" {
		parts = append(parts, errBar)
	}
	parts = append(parts, help)

	return lipgloss.NewStyle().Margin(1, 2).Render(
		lipgloss.JoinVertical(lipgloss.Left, parts...),
	)
}
