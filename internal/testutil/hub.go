package testutil

import (
	"github.com/google/uuid"

	"cardczar/internal/network"
	"cardczar/internal/protocol/clientbound"
)

// ForwardCall records one Hub.Forward invocation.
type ForwardCall struct {
	Client uuid.UUID
	Target uuid.UUID
}

// CapturingHub is an in-memory Hub for listener tests. Sends are
// recorded per client and per frame; forwards deliver the synthetic
// connect just like the real router.
type CapturingHub struct {
	LobbyID   uuid.UUID
	Listeners map[uuid.UUID]network.Listener
	Frames    map[uuid.UUID][][]clientbound.Packet
	Forwards  []ForwardCall

	// FailForwards makes every Forward report failure.
	FailForwards bool
}

var _ network.Hub = (*CapturingHub)(nil)

func NewCapturingHub() *CapturingHub {
	return &CapturingHub{
		LobbyID:   uuid.New(),
		Listeners: make(map[uuid.UUID]network.Listener),
		Frames:    make(map[uuid.UUID][][]clientbound.Packet),
	}
}

func (h *CapturingHub) Send(client uuid.UUID, packets ...clientbound.Packet) {
	if len(packets) == 0 {
		return
	}
	h.Frames[client] = append(h.Frames[client], packets)
}

func (h *CapturingHub) Forward(client, target uuid.UUID) bool {
	if h.FailForwards {
		return false
	}
	h.Forwards = append(h.Forwards, ForwardCall{Client: client, Target: target})
	if l, ok := h.Listeners[target]; ok {
		l.ClientConnected(h, client)
	}
	return true
}

func (h *CapturingHub) AddListener(l network.Listener) uuid.UUID {
	id := uuid.New()
	h.Listeners[id] = l
	return id
}

func (h *CapturingHub) HasListener(id uuid.UUID) bool {
	if id == h.LobbyID {
		return true
	}
	_, ok := h.Listeners[id]
	return ok
}

func (h *CapturingHub) Lobby() uuid.UUID {
	return h.LobbyID
}

// RemoveListener drops a listener, mimicking the router's reaper.
func (h *CapturingHub) RemoveListener(id uuid.UUID) {
	delete(h.Listeners, id)
}

// PacketsFor flattens every frame sent to one client, in order.
func (h *CapturingHub) PacketsFor(client uuid.UUID) []clientbound.Packet {
	var out []clientbound.Packet
	for _, frame := range h.Frames[client] {
		out = append(out, frame...)
	}
	return out
}

// LastFrame returns the most recent frame sent to a client, or nil.
func (h *CapturingHub) LastFrame(client uuid.UUID) []clientbound.Packet {
	frames := h.Frames[client]
	if len(frames) == 0 {
		return nil
	}
	return frames[len(frames)-1]
}

// Reset clears recorded sends and forwards, keeping listeners.
func (h *CapturingHub) Reset() {
	h.Frames = make(map[uuid.UUID][][]clientbound.Packet)
	h.Forwards = nil
}
