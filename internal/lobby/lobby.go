// Package lobby implements the listener every client lands on first:
// it lists the open games, owns game creation and hands clients over
// to the game they join.
package lobby

import (
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"cardczar/internal/cards"
	"cardczar/internal/game"
	"cardczar/internal/network"
	"cardczar/internal/protocol"
	"cardczar/internal/protocol/clientbound"
	"cardczar/internal/protocol/serverbound"
)

type entry struct {
	id   uuid.UUID
	game *game.Game
}

// Lobby is the singleton listener clients are bound to between games.
// Like every listener it runs on the router loop, so nothing here
// needs locking.
type Lobby struct {
	store *cards.Store
	games []entry
	seq   int
}

var _ network.Listener = (*Lobby)(nil)

func New(store *cards.Store) *Lobby {
	return &Lobby{store: store}
}

// ClientConnected greets a client with the server list and the pack
// catalog.
func (l *Lobby) ClientConnected(hub network.Hub, client uuid.UUID) {
	l.reap(hub)
	hub.Send(client, l.serverList())
	hub.Send(client, l.cardPacks())
}

func (l *Lobby) ClientDisconnected(network.Hub, uuid.UUID) {}

func (l *Lobby) HandlePacket(hub network.Hub, sender uuid.UUID, packet serverbound.Packet) protocol.PacketResponse {
	switch p := packet.(type) {
	case serverbound.CreateServer:
		return l.createServer(hub, sender, p.Settings)
	case serverbound.JoinGame:
		return l.joinGame(hub, sender, uuid.UUID(p))
	case serverbound.RefreshServerList:
		l.reap(hub)
		hub.Send(sender, l.serverList())
		return protocol.Accepted
	case serverbound.RequestCardPacks:
		hub.Send(sender, l.cardPacks())
		return protocol.Accepted
	default:
		slog.Debug("packet not expected in lobby", "player", sender)
		return protocol.Rejected
	}
}

// Terminated always reports false; the lobby outlives every game.
func (l *Lobby) Terminated() bool {
	return false
}

func (l *Lobby) createServer(hub network.Hub, sender uuid.UUID, settings protocol.GameSettings) protocol.PacketResponse {
	if len(settings.Packs) == 0 {
		return protocol.RejectedWithReason("Packs cannot be empty")
	}
	if settings.PointsToWin < 1 {
		return protocol.RejectedWithReason("Points to win has to be at least 1")
	}
	if settings.MaxPlayers != nil && *settings.MaxPlayers < 2 {
		return protocol.RejectedWithReason("Max players needs to be at least 2")
	}

	packs := make([]*cards.Pack, 0, len(settings.Packs))
	for _, name := range settings.Packs {
		pack, err := l.store.Load(name)
		if err != nil {
			slog.Warn("creating game failed", "pack", name, "error", err)
			for _, loaded := range settings.Packs[:len(packs)] {
				l.store.Unload(loaded)
			}
			return protocol.RejectedWithReason("Failed to load pack " + name)
		}
		packs = append(packs, pack)
	}

	l.seq++
	g := game.New(l.store, l.seq, packs, settings)
	id := hub.AddListener(g)
	l.games = append(l.games, entry{id: id, game: g})
	slog.Info("game created", "game", l.seq, "id", id, "host", sender, "packs", len(packs))

	if !hub.Forward(sender, id) {
		slog.Warn("moving creator into new game failed", "id", id, "player", sender)
		return protocol.Rejected
	}
	return protocol.Accepted
}

func (l *Lobby) joinGame(hub network.Hub, sender, target uuid.UUID) protocol.PacketResponse {
	if !hub.HasListener(target) {
		return protocol.RejectedWithReason("Invalid server id")
	}
	for _, e := range l.games {
		if e.id == target {
			if max := e.game.MaxPlayers(); max != nil && e.game.NumPlayers() >= *max {
				return protocol.RejectedWithReason("Server is full")
			}
			break
		}
	}
	if !hub.Forward(sender, target) {
		return protocol.Rejected
	}
	return protocol.Accepted
}

// reap drops handles to games the router has discarded or is about to.
func (l *Lobby) reap(hub network.Hub) {
	l.games = slices.DeleteFunc(l.games, func(e entry) bool {
		return e.game.Terminated() || !hub.HasListener(e.id)
	})
}

func (l *Lobby) serverList() clientbound.ServerList {
	servers := make([]clientbound.ServerEntry, len(l.games))
	for i, e := range l.games {
		servers[i] = clientbound.ServerEntry{
			ID:         e.id,
			HostName:   e.game.HostName(),
			Players:    e.game.NumPlayers(),
			MaxPlayers: e.game.MaxPlayers(),
		}
	}
	return clientbound.ServerList{Servers: servers}
}

func (l *Lobby) cardPacks() clientbound.CardPacks {
	listing := l.store.Catalog()
	packs := make(clientbound.CardPacks, len(listing))
	for i, meta := range listing {
		packs[i] = clientbound.PackSummary{
			Name:      meta.Name,
			Prompts:   meta.PromptCount,
			Responses: meta.ResponseCount,
		}
	}
	return packs
}
