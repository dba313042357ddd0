package network

import (
	"github.com/google/uuid"

	"cardczar/internal/protocol"
	"cardczar/internal/protocol/clientbound"
	"cardczar/internal/protocol/serverbound"
)

// Hub is the router surface a listener may call while handling an event.
type Hub interface {
	// Send queues packets as a single frame to one client. Unknown
	// client ids are dropped silently.
	Send(client uuid.UUID, packets ...clientbound.Packet)

	// Forward rebinds a client to another listener and delivers a
	// synthetic connect there. Reports whether the rebind happened.
	Forward(client, target uuid.UUID) bool

	// AddListener registers a listener and returns its id.
	AddListener(l Listener) uuid.UUID

	// HasListener reports whether id names a live listener.
	HasListener(id uuid.UUID) bool

	// Lobby returns the well-known lobby listener id.
	Lobby() uuid.UUID
}

// Listener is an actor clients are bound to: the lobby or a single
// game. All methods run on the router's event loop, so implementations
// need no locking of their own.
type Listener interface {
	ClientConnected(hub Hub, client uuid.UUID)
	ClientDisconnected(hub Hub, client uuid.UUID)
	HandlePacket(hub Hub, sender uuid.UUID, packet serverbound.Packet) protocol.PacketResponse

	// Terminated marks the listener as done; the router reaps it once
	// no client is bound to it.
	Terminated() bool
}
