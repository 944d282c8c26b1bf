// Package events fans supervisor events out to observers. Observers may
// attach after the supervised process has already started: each channel
// buffers its events until the first observer of that channel attaches,
// then flushes them in arrival order and switches to live delivery.
package events

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Channel is a logical event stream.
type Channel string

const (
	// ChannelMessage carries decoded objects from the agent.
	ChannelMessage Channel = "message"
	// ChannelStatus carries running-state transitions.
	ChannelStatus Channel = "status"
	// ChannelError carries structured error reports.
	ChannelError Channel = "error"
	// ChannelExit carries process exit notifications.
	ChannelExit Channel = "exit"
)

// AllChannels lists every channel, in a stable order.
func AllChannels() []Channel {
	return []Channel{ChannelMessage, ChannelStatus, ChannelError, ChannelExit}
}

// Known reports whether c names a real channel.
func Known(c Channel) bool {
	switch c {
	case ChannelMessage, ChannelStatus, ChannelError, ChannelExit:
		return true
	}
	return false
}

type Event struct {
	ID      int64           `json:"id"`
	Channel Channel         `json:"channel"`
	At      time.Time       `json:"at"`
	Data    json.RawMessage `json:"data"`
}

// Hub is an in-memory broadcaster with per-channel early buffers.
type Hub struct {
	nextID atomic.Int64

	mu        sync.Mutex
	channels  map[Channel]*channelState
	nextSubID int
}

type channelState struct {
	// early holds events published before any observer of this channel
	// attached. Flushed to the first observer, then never used again.
	early    []Event
	attached bool
	subs     map[int]chan Event
}

func NewHub() *Hub {
	h := &Hub{channels: make(map[Channel]*channelState)}
	for _, c := range AllChannels() {
		h.channels[c] = &channelState{subs: make(map[int]chan Event)}
	}
	return h
}

// Publish delivers data (JSON-marshaled) on channel. Before the first
// observer of the channel attaches, events accumulate in the channel's
// early buffer. Afterwards every attached observer receives every event;
// a stalled observer's overflowing events are dropped rather than
// blocking the producer.
func (h *Hub) Publish(channel Channel, data any) {
	payload := []byte("{}")
	if data != nil {
		if b, err := json.Marshal(data); err == nil {
			payload = b
		}
	}

	ev := Event{
		ID:      h.nextID.Add(1),
		Channel: channel,
		At:      time.Now().UTC(),
		Data:    payload,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	state, ok := h.channels[channel]
	if !ok {
		return
	}

	if !state.attached {
		state.early = append(state.early, ev)
		return
	}

	for _, ch := range state.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe attaches an observer to the given channels (all channels
// when none are named). Any early-buffered events on a channel whose
// first observer this is are delivered immediately, in original arrival
// order, before live events. The cancel func detaches the observer and
// closes its channel.
func (h *Hub) Subscribe(channels ...Channel) (<-chan Event, func()) {
	if len(channels) == 0 {
		channels = AllChannels()
	}

	h.mu.Lock()

	// Size the subscriber channel to hold the entire early flush plus
	// headroom for live events.
	pending := 0
	for _, c := range channels {
		if state, ok := h.channels[c]; ok && !state.attached {
			pending += len(state.early)
		}
	}
	capacity := 64
	if pending > capacity {
		capacity = pending + 64
	}
	ch := make(chan Event, capacity)

	id := h.nextSubID
	h.nextSubID++

	var flush []Event
	for _, c := range channels {
		state, ok := h.channels[c]
		if !ok {
			continue
		}
		if !state.attached {
			flush = append(flush, state.early...)
			state.early = nil
			state.attached = true
		}
		state.subs[id] = ch
	}

	// Early events keep their arrival order even across channels.
	sortEventsByID(flush)
	for _, ev := range flush {
		ch <- ev
	}

	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		closed := false
		for _, state := range h.channels {
			if _, ok := state.subs[id]; ok {
				delete(state.subs, id)
				if !closed {
					close(ch)
					closed = true
				}
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

func sortEventsByID(evs []Event) {
	// Insertion sort: flushes are tiny and almost always sorted.
	for i := 1; i < len(evs); i++ {
		for j := i; j > 0 && evs[j].ID < evs[j-1].ID; j-- {
			evs[j], evs[j-1] = evs[j-1], evs[j]
		}
	}
}
