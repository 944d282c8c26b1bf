package watch

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/tidwall/gjson"

	"github.com/mattjoyce/kgbridge/internal/events"
)

func renderEventStream(eventLog []events.Event, theme Theme, width int) string {
	innerWidth := width - 4

	if len(eventLog) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			theme.Title.Render("AGENT STREAM"),
			theme.Dim.Render("  Waiting for events..."),
		)
		return theme.Border.Width(innerWidth).Render(content)
	}

	var lines []string
	for i, e := range eventLog {
		if i >= 15 {
			break
		}
		lines = append(lines, formatEvent(e, theme))
	}

	eventsText := lipgloss.NewStyle().Padding(0, 1).Render(strings.Join(lines, "\n"))
	content := lipgloss.JoinVertical(lipgloss.Left,
		theme.Title.Render("AGENT STREAM"),
		eventsText,
	)

	return theme.Border.Width(innerWidth).Render(content)
}

func formatEvent(e events.Event, theme Theme) string {
	ts := theme.Dim.Render(e.At.Format("15:04:05"))

	var chStyle lipgloss.Style
	switch e.Channel {
	case events.ChannelMessage:
		chStyle = theme.StatusOK
	case events.ChannelStatus:
		chStyle = theme.Highlight
	case events.ChannelError:
		chStyle = theme.StatusFailed
	case events.ChannelExit:
		chStyle = theme.StatusRunning
	default:
		chStyle = theme.Dim
	}
	channel := chStyle.Render(fmt.Sprintf("%-8s", e.Channel))

	return fmt.Sprintf("%s %s %s", ts, channel, eventDesc(e))
}

// eventDesc extracts a one-line description from the event payload.
func eventDesc(e events.Event) string {
	data := gjson.ParseBytes(e.Data)

	switch e.Channel {
	case events.ChannelMessage:
		typ := data.Get("type").String()
		if typ == "raw" {
			return truncate(data.Get("line").String(), 70)
		}
		if typ != "" {
			return fmt.Sprintf("%s %s", typ, truncate(string(e.Data), 60))
		}
	case events.ChannelStatus:
		if data.Get("running").Bool() {
			return fmt.Sprintf("running pid %d", data.Get("pid").Int())
		}
		return "stopped"
	case events.ChannelError:
		return fmt.Sprintf("%s: %s", data.Get("kind").String(), truncate(data.Get("message").String(), 60))
	case events.ChannelExit:
		if sig := data.Get("signal").String(); sig != "" {
			return fmt.Sprintf("signal %s expected=%v", sig, data.Get("expected").Bool())
		}
		return fmt.Sprintf("code %d expected=%v", data.Get("code").Int(), data.Get("expected").Bool())
	}
	return truncate(string(e.Data), 70)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
