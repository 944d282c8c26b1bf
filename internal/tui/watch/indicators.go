package watch

import (
	"strings"
	"time"
)

// Heartbeat rotates a glyph on every poll tick so a frozen watch loop
// is visible at a glance.
type Heartbeat struct {
	frames []string
	index  int
}

func NewHeartbeat() Heartbeat {
	return Heartbeat{frames: []string{"◐", "◓", "◑", "◒"}}
}

func (h *Heartbeat) Beat() {
	h.index = (h.index + 1) % len(h.frames)
}

func (h Heartbeat) Glyph() string {
	return h.frames[h.index]
}

// ActivityMeter gauges how recently the agent emitted anything. The
// level is derived from the time since the last event, so there is no
// decay state to tick.
type ActivityMeter struct {
	lastEvent time.Time
}

const meterDots = 5

func NewActivityMeter() ActivityMeter {
	return ActivityMeter{}
}

func (a *ActivityMeter) Mark() {
	a.lastEvent = time.Now()
}

func (a ActivityMeter) LastEvent() time.Time {
	return a.lastEvent
}

// level maps elapsed time since the last event to 0..meterDots.
func (a ActivityMeter) level() int {
	if a.lastEvent.IsZero() {
		return 0
	}
	elapsed := time.Since(a.lastEvent)
	lit := meterDots - int(elapsed/(2*time.Second))
	if lit < 0 {
		return 0
	}
	return lit
}

func (a ActivityMeter) Render(theme Theme) string {
	lit := a.level()
	var b strings.Builder
	for i := 0; i < meterDots; i++ {
		if i < lit {
			b.WriteString(theme.MeterOn.Render("●"))
		} else {
			b.WriteString(theme.MeterOff.Render("○"))
		}
	}
	return b.String()
}
