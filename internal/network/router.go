package network

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"cardczar/internal/protocol"
	"cardczar/internal/protocol/clientbound"
	"cardczar/internal/protocol/serverbound"
)

const defaultInboxSize = 1024

type eventKind uint8

const (
	eventConnect eventKind = iota
	eventMessage
	eventDisconnect
)

type event struct {
	kind   eventKind
	client *Client
	frame  []byte
}

// Router owns the listener registry and runs the serial event loop that
// drives every listener. Listener state is only ever touched from that
// loop, which is what lets the lobby and games stay lock-free.
type Router struct {
	clients *ClientManager
	inbox   chan event
	done    chan struct{}

	// Touched only on the loop after Run starts.
	listeners map[uuid.UUID]Listener
	lobbyID   uuid.UUID
}

var _ Hub = (*Router)(nil)

func NewRouter(clients *ClientManager, inboxSize int) *Router {
	if inboxSize <= 0 {
		inboxSize = defaultInboxSize
	}
	return &Router{
		clients:   clients,
		inbox:     make(chan event, inboxSize),
		done:      make(chan struct{}),
		listeners: make(map[uuid.UUID]Listener),
	}
}

// RegisterLobby installs the listener every new connection is bound to.
// Must be called once, before Run.
func (r *Router) RegisterLobby(l Listener) uuid.UUID {
	r.lobbyID = r.AddListener(l)
	return r.lobbyID
}

// Run processes events until ctx is cancelled, then disconnects every
// client.
func (r *Router) Run(ctx context.Context) error {
	slog.Info("router started", "lobby", r.lobbyID)
	defer r.shutdown()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-r.inbox:
			r.dispatch(ev)
			r.reapListeners()
		}
	}
}

// Accept hands a newly registered connection to the loop. False means
// the router has already stopped.
func (r *Router) Accept(c *Client) bool {
	return r.post(event{kind: eventConnect, client: c})
}

func (r *Router) post(ev event) bool {
	select {
	case r.inbox <- ev:
		return true
	case <-r.done:
		return false
	}
}

func (r *Router) dispatch(ev event) {
	switch ev.kind {
	case eventConnect:
		r.handleConnect(ev.client)
	case eventMessage:
		r.handleMessage(ev.client, ev.frame)
	case eventDisconnect:
		r.handleDisconnect(ev.client)
	}
}

func (r *Router) handleConnect(c *Client) {
	lobby, ok := r.listeners[r.lobbyID]
	if !ok {
		slog.Error("no lobby registered, dropping client", "client", c.id)
		c.Close()
		return
	}
	c.bound = r.lobbyID
	slog.Info("client connected", "client", c.id, "addr", c.addr)
	lobby.ClientConnected(r, c.id)
}

func (r *Router) handleMessage(c *Client, frame []byte) {
	wrapped, err := serverbound.DecodeFrame(frame)
	if err != nil {
		slog.Warn("dropping malformed frame", "client", c.id, "addr", c.addr, "error", err)
		return
	}

	// The binding is captured once per frame: even if a packet forwards
	// the client elsewhere, the rest of the frame is handled where it
	// was addressed.
	listener := r.listeners[c.bound]
	if listener == nil {
		slog.Warn("client bound to missing listener", "client", c.id, "listener", c.bound)
	}

	var acks []clientbound.Packet
	for _, w := range wrapped {
		resp := protocol.Rejected
		if listener != nil {
			resp = listener.HandlePacket(r, c.id, w.Packet)
		}
		if w.ID != nil {
			acks = append(acks, clientbound.Ack{PacketID: *w.ID, Response: resp})
		}
	}
	if len(acks) > 0 {
		r.Send(c.id, acks...)
	}
}

func (r *Router) handleDisconnect(c *Client) {
	if l, ok := r.listeners[c.bound]; ok {
		l.ClientDisconnected(r, c.id)
	}
	r.clients.Unregister(c.id)
	c.Close()
	slog.Info("client disconnected", "client", c.id, "addr", c.addr)
}

// reapListeners drops terminated listeners that no client is bound to.
func (r *Router) reapListeners() {
	for id, l := range r.listeners {
		if id == r.lobbyID || !l.Terminated() || r.anyBound(id) {
			continue
		}
		delete(r.listeners, id)
		if closer, ok := l.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				slog.Warn("closing listener", "listener", id, "error", err)
			}
		}
		slog.Info("listener reaped", "listener", id)
	}
}

func (r *Router) anyBound(id uuid.UUID) bool {
	bound := false
	r.clients.ForEach(func(c *Client) bool {
		if c.bound == id {
			bound = true
			return false
		}
		return true
	})
	return bound
}

func (r *Router) shutdown() {
	close(r.done)
	n := r.clients.Count()
	r.clients.ForEach(func(c *Client) bool {
		c.Close()
		return true
	})
	slog.Info("router stopped", "clients", n)
}

// Send implements Hub.
func (r *Router) Send(client uuid.UUID, packets ...clientbound.Packet) {
	if len(packets) == 0 {
		return
	}
	c := r.clients.Get(client)
	if c == nil {
		slog.Debug("send to unknown client", "client", client)
		return
	}

	frame, err := clientbound.EncodeFrame(packets...)
	if err != nil {
		slog.Error("encoding frame", "client", client, "error", err)
		return
	}

	hasAck := false
	for _, p := range packets {
		if _, ok := p.(clientbound.Ack); ok {
			hasAck = true
			break
		}
	}
	c.enqueue(outFrame{data: frame, ack: hasAck})
}

// Forward implements Hub.
func (r *Router) Forward(client, target uuid.UUID) bool {
	c := r.clients.Get(client)
	if c == nil {
		return false
	}
	l, ok := r.listeners[target]
	if !ok {
		return false
	}
	c.bound = target
	l.ClientConnected(r, client)
	return true
}

// AddListener implements Hub.
func (r *Router) AddListener(l Listener) uuid.UUID {
	id := uuid.New()
	r.listeners[id] = l
	slog.Debug("listener registered", "listener", id)
	return id
}

// HasListener implements Hub.
func (r *Router) HasListener(id uuid.UUID) bool {
	_, ok := r.listeners[id]
	return ok
}

// Lobby implements Hub.
func (r *Router) Lobby() uuid.UUID {
	return r.lobbyID
}
