// Package game implements a single table: its players, decks and the
// round state machine. A Game is driven entirely from the router loop,
// so it holds no locks.
package game

import (
	"log/slog"
	"math/rand/v2"
	"slices"

	"github.com/google/uuid"

	"cardczar/internal/cards"
	"cardczar/internal/network"
	"cardczar/internal/protocol"
	"cardczar/internal/protocol/clientbound"
	"cardczar/internal/protocol/serverbound"
)

// State is the lifecycle phase of a game.
type State uint8

const (
	StateWaitingToStart State = iota
	StatePlayerSelection
	StateCzarSelection
	StateEnd
)

func (s State) String() string {
	switch s {
	case StateWaitingToStart:
		return "waiting_to_start"
	case StatePlayerSelection:
		return "player_selection"
	case StateCzarSelection:
		return "czar_selection"
	case StateEnd:
		return "end"
	default:
		return "unknown"
	}
}

// handSize is the number of response cards dealt when a game starts.
const handSize = 10

// Player is one seat at the table. Hands live client-side; the server
// tracks only what has been submitted this round.
type Player struct {
	ID         uuid.UUID
	Name       string
	IsHost     bool
	Points     int
	Selections []cards.ID
}

// Game is one table. Packs are indexed in join order; card ids refer to
// those indexes, so the pack list is frozen while a round is running.
type Game struct {
	store    *cards.Store
	no       int
	settings protocol.GameSettings
	packs    []*cards.Pack

	players   []*Player // join order; index 0 joined first
	state     State
	czarIndex int
	prompt    *cards.Prompt
	prompts   *pool
	responses *pool

	rng *rand.Rand
}

var _ network.Listener = (*Game)(nil)

// New builds a waiting game. packs must align index-for-index with
// settings.Packs; the caller holds a store reference for each.
func New(store *cards.Store, no int, packs []*cards.Pack, settings protocol.GameSettings) *Game {
	return &Game{
		store:    store,
		no:       no,
		settings: settings,
		packs:    packs,
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// ClientConnected seats a new player. The first to arrive is the host.
func (g *Game) ClientConnected(hub network.Hub, client uuid.UUID) {
	newcomer := &Player{ID: client, IsHost: len(g.players) == 0}
	g.broadcast(hub, clientbound.AddPlayer{ID: client, Name: newcomer.Name, IsHost: newcomer.IsHost})
	g.players = append(g.players, newcomer)

	slog.Info("player joined", "game", g.no, "player", client, "players", len(g.players))

	// Catch the newcomer up: roster, settings, then whatever round is
	// in flight.
	burst := make([]clientbound.Packet, 0, len(g.players)+8)
	for _, p := range g.players {
		burst = append(burst, clientbound.AddPlayer{ID: p.ID, Name: p.Name, IsHost: p.IsHost, Points: p.Points})
	}
	burst = append(burst,
		clientbound.SettingUpdate{Setting: protocol.MaxPlayers{Value: g.settings.MaxPlayers}},
		clientbound.SettingUpdate{Setting: protocol.MaxSelectionTime{Value: g.settings.MaxSelectionTime}},
		clientbound.SettingUpdate{Setting: protocol.PointsToWin(g.settings.PointsToWin)},
	)
	for _, name := range g.settings.Packs {
		burst = append(burst, clientbound.SettingUpdate{Setting: protocol.AddPack(name)})
	}

	if g.playing() {
		hand := g.deal(handSize)
		burst = append(burst, clientbound.NextRound{
			Czar:         g.czar().ID,
			Prompt:       *g.prompt,
			NewResponses: g.responseData(hand),
		})
	}
	if g.state == StateCzarSelection {
		burst = append(burst, g.displayResponsesPacket())
	}

	hub.Send(client, burst...)
}

// ClientDisconnected removes a player, promoting a new host and
// cancelling the round if the czar departed mid-play.
func (g *Game) ClientDisconnected(hub network.Hub, client uuid.UUID) {
	idx := g.playerIndex(client)
	if idx < 0 {
		return
	}

	if len(g.players) == 1 {
		g.players = nil
		g.prompt = nil
		g.state = StateEnd
		slog.Info("last player left, game over", "game", g.no)
		return
	}

	wasCzar := g.playing() && idx == g.czarIndex

	leaving := g.players[idx]
	g.players = slices.Delete(g.players, idx, idx+1)
	if idx <= g.czarIndex {
		// May go to -1 when the first-seated czar leaves; the next
		// rotation's modulo brings it back into range.
		g.czarIndex--
	}

	var newHost *uuid.UUID
	if leaving.IsHost {
		g.players[0].IsHost = true
		id := g.players[0].ID
		newHost = &id
		slog.Info("host left, promoted", "game", g.no, "host", id)
	}
	g.broadcast(hub, clientbound.RemovePlayer{ID: client, NewHost: newHost})
	slog.Info("player left", "game", g.no, "player", client, "players", len(g.players))

	if wasCzar {
		g.skipRound(hub)
		return
	}
	// A departure can complete the round for everyone else.
	if g.state == StatePlayerSelection && len(g.players) > 1 {
		g.checkAllPicked(hub)
	}
}

// HandlePacket applies one packet against the current state. Anything
// not allowed in the current state is rejected.
func (g *Game) HandlePacket(hub network.Hub, sender uuid.UUID, packet serverbound.Packet) protocol.PacketResponse {
	if name, ok := packet.(serverbound.SetPlayerName); ok {
		return g.setPlayerName(hub, sender, string(name))
	}

	switch g.state {
	case StateWaitingToStart:
		switch p := packet.(type) {
		case serverbound.StartGame:
			return g.startGame(hub, sender)
		case serverbound.UpdateSetting:
			return g.updateSetting(hub, sender, p.Setting)
		}
	case StatePlayerSelection:
		if p, ok := packet.(serverbound.SelectResponse); ok {
			return g.selectResponse(hub, sender, cards.ID(p))
		}
	case StateCzarSelection:
		if p, ok := packet.(serverbound.SelectRoundWinner); ok {
			return g.selectRoundWinner(hub, sender, uuid.UUID(p))
		}
	case StateEnd:
		switch packet.(type) {
		case serverbound.StartGame:
			return g.startGame(hub, sender)
		case serverbound.LeaveGame:
			return g.leaveGame(hub, sender)
		}
	}

	slog.Debug("packet not allowed", "game", g.no, "state", g.state, "player", sender)
	return protocol.Rejected
}

// Terminated reports whether the game is over with nobody left; the
// router reaps it then.
func (g *Game) Terminated() bool {
	return g.state == StateEnd && len(g.players) == 0
}

// Close releases the game's pack references. Called when the game is
// reaped.
func (g *Game) Close() error {
	for _, name := range g.settings.Packs {
		g.store.Unload(name)
	}
	g.packs = nil
	slog.Info("game closed", "game", g.no)
	return nil
}

func (g *Game) NumPlayers() int {
	return len(g.players)
}

func (g *Game) MaxPlayers() *int {
	return g.settings.MaxPlayers
}

func (g *Game) HostName() string {
	if h := g.host(); h != nil {
		return h.Name
	}
	return ""
}

func (g *Game) setPlayerName(hub network.Hub, sender uuid.UUID, name string) protocol.PacketResponse {
	p := g.player(sender)
	if p == nil {
		return protocol.Rejected
	}
	p.Name = name
	g.broadcast(hub, clientbound.UpdatePlayerName{ID: sender, Name: name})
	return protocol.Accepted
}

func (g *Game) startGame(hub network.Hub, sender uuid.UUID) protocol.PacketResponse {
	host := g.host()
	if host == nil || host.ID != sender {
		return protocol.Rejected
	}
	if len(g.players) < 2 {
		return protocol.RejectedWithReason("Not enough players")
	}

	for _, p := range g.players {
		p.Points = 0
		p.Selections = nil
	}
	g.prompts = newPool()
	g.responses = newPool()
	g.refillPrompts()
	g.refillResponses()

	g.czarIndex = g.rng.IntN(len(g.players))
	prompt := g.nextPrompt()
	g.prompt = &prompt
	g.state = StatePlayerSelection

	slog.Info("game started", "game", g.no, "players", len(g.players), "czar", g.czar().ID)

	g.broadcast(hub, clientbound.StartGame{})
	for _, p := range g.players {
		hand := g.deal(handSize)
		hub.Send(p.ID, clientbound.NextRound{
			Czar:         g.czar().ID,
			Prompt:       prompt,
			NewResponses: g.responseData(hand),
		})
	}
	return protocol.Accepted
}

func (g *Game) updateSetting(hub network.Hub, sender uuid.UUID, setting protocol.GameSetting) protocol.PacketResponse {
	host := g.host()
	if host == nil || host.ID != sender {
		return protocol.Rejected
	}

	switch s := setting.(type) {
	case protocol.MaxPlayers:
		if s.Value != nil && *s.Value < 2 {
			return protocol.RejectedWithReason("Max players needs to be at least 2")
		}
		if s.Value != nil && *s.Value < len(g.players) {
			return protocol.RejectedWithReason("Max players cannot be below the current player count")
		}
		g.settings.MaxPlayers = s.Value
	case protocol.MaxSelectionTime:
		g.settings.MaxSelectionTime = s.Value
	case protocol.PointsToWin:
		if s < 1 {
			return protocol.RejectedWithReason("Points to win has to be at least 1")
		}
		g.settings.PointsToWin = int(s)
	case protocol.AddPack:
		name := string(s)
		if slices.Contains(g.settings.Packs, name) {
			return protocol.RejectedWithReason("Pack already added")
		}
		pack, err := g.store.Load(name)
		if err != nil {
			slog.Warn("adding pack failed", "game", g.no, "pack", name, "error", err)
			return protocol.RejectedWithReason("Failed to load pack " + name)
		}
		g.packs = append(g.packs, pack)
		g.settings.Packs = append(g.settings.Packs, name)
	case protocol.RemovePack:
		name := string(s)
		i := slices.Index(g.settings.Packs, name)
		if i < 0 {
			return protocol.RejectedWithReason("Pack not in game")
		}
		if len(g.settings.Packs) == 1 {
			return protocol.RejectedWithReason("A game needs at least one pack")
		}
		g.settings.Packs = slices.Delete(g.settings.Packs, i, i+1)
		g.packs = slices.Delete(g.packs, i, i+1)
		g.store.Unload(name)
	default:
		return protocol.Rejected
	}

	g.broadcast(hub, clientbound.SettingUpdate{Setting: setting})
	return protocol.Accepted
}

func (g *Game) selectResponse(hub network.Hub, sender uuid.UUID, id cards.ID) protocol.PacketResponse {
	p := g.player(sender)
	czar := g.czar()
	if p == nil || czar == nil || czar.ID == sender {
		return protocol.Rejected
	}
	if len(p.Selections) >= g.prompt.Pick {
		return protocol.Rejected
	}
	if id.Pack < 0 || id.Pack >= len(g.packs) ||
		id.Card < 0 || id.Card >= len(g.packs[id.Pack].Responses) {
		return protocol.Rejected
	}
	if slices.Contains(p.Selections, id) {
		return protocol.Rejected
	}

	p.Selections = append(p.Selections, id)
	if len(p.Selections) == g.prompt.Pick {
		g.broadcast(hub, clientbound.PlayerFinishedPicking(sender))
		g.checkAllPicked(hub)
	}
	return protocol.Accepted
}

// checkAllPicked flips to czar selection once every non-czar player has
// a complete submission.
func (g *Game) checkAllPicked(hub network.Hub) {
	for i, p := range g.players {
		if i == g.czarIndex {
			continue
		}
		if len(p.Selections) < g.prompt.Pick {
			return
		}
	}
	g.state = StateCzarSelection
	slog.Info("all players picked", "game", g.no)
	g.broadcast(hub, g.displayResponsesPacket())
}

func (g *Game) selectRoundWinner(hub network.Hub, sender uuid.UUID, winner uuid.UUID) protocol.PacketResponse {
	czar := g.czar()
	if czar == nil || czar.ID != sender {
		return protocol.Rejected
	}
	w := g.player(winner)
	if w == nil || winner == sender {
		return protocol.Rejected
	}
	if len(w.Selections) < g.prompt.Pick {
		// A player who never finished picking cannot win the round.
		return protocol.Rejected
	}

	w.Points++
	won := w.Points >= g.settings.PointsToWin
	slog.Info("round won", "game", g.no, "winner", winner, "points", w.Points, "game_over", won)
	g.broadcast(hub, clientbound.DisplayWinner{Winner: winner, EndGame: won})

	if won {
		g.state = StateEnd
		g.prompt = nil
		for _, p := range g.players {
			p.Selections = nil
		}
		return protocol.Accepted
	}
	g.nextRound(hub)
	return protocol.Accepted
}

func (g *Game) leaveGame(hub network.Hub, sender uuid.UUID) protocol.PacketResponse {
	if g.player(sender) == nil {
		return protocol.Rejected
	}
	g.ClientDisconnected(hub, sender)
	if !hub.Forward(sender, hub.Lobby()) {
		slog.Warn("returning player to lobby failed", "game", g.no, "player", sender)
	}
	return protocol.Accepted
}

// nextRound rotates the czar, draws a prompt and tops every hand up by
// the spent prompt's pick count. The outgoing czar played nothing and
// gets nothing.
func (g *Game) nextRound(hub network.Hub) {
	for _, p := range g.players {
		p.Selections = nil
	}

	lastCzar := g.czarIndex
	n := len(g.players)
	g.czarIndex = ((g.czarIndex+1)%n + n) % n

	refill := 0
	if g.prompt != nil {
		refill = g.prompt.Pick
	}
	prompt := g.nextPrompt()
	g.prompt = &prompt
	g.state = StatePlayerSelection

	slog.Info("round started", "game", g.no, "czar", g.czar().ID, "pick", prompt.Pick)
	for i, p := range g.players {
		var hand []cards.ID
		if i != lastCzar {
			hand = g.deal(refill)
		}
		hub.Send(p.ID, clientbound.NextRound{
			Czar:         g.czar().ID,
			Prompt:       prompt,
			NewResponses: g.responseData(hand),
		})
	}
}

// skipRound aborts the round after the czar left. Submitted cards go
// back to the undealt pile, and with the prompt gone nobody is topped
// up for the restart.
func (g *Game) skipRound(hub network.Hub) {
	slog.Info("czar left, round cancelled", "game", g.no)
	g.broadcast(hub, clientbound.CancelRound{})
	for _, p := range g.players {
		for _, id := range p.Selections {
			g.responses.add(id)
		}
	}
	g.prompt = nil
	g.nextRound(hub)
}

// deal draws n responses, starting a new cycle whenever the pool runs
// dry.
func (g *Game) deal(n int) []cards.ID {
	out := make([]cards.ID, 0, n)
	for len(out) < n {
		id, ok := g.responses.draw(g.rng)
		if !ok {
			g.refillResponses()
			if g.responses.size() == 0 {
				slog.Warn("response pool exhausted", "game", g.no, "dealt", len(out), "wanted", n)
				break
			}
			continue
		}
		out = append(out, id)
	}
	return out
}

func (g *Game) nextPrompt() cards.Prompt {
	id, ok := g.prompts.draw(g.rng)
	if !ok {
		// New cycle; validated packs hold at least one prompt each.
		g.refillPrompts()
		id, ok = g.prompts.draw(g.rng)
		if !ok {
			slog.Error("prompt pool empty after refill", "game", g.no)
			return cards.Prompt{Pick: 1}
		}
	}
	return g.packs[id.Pack].Prompts[id.Card]
}

func (g *Game) refillPrompts() {
	for pi, pack := range g.packs {
		for ci := range pack.Prompts {
			g.prompts.add(cards.ID{Pack: pi, Card: ci})
		}
	}
}

// refillResponses starts a new deal cycle over the full catalog,
// reshuffling everything played in earlier cycles.
func (g *Game) refillResponses() {
	for pi, pack := range g.packs {
		for ci := range pack.Responses {
			g.responses.add(cards.ID{Pack: pi, Card: ci})
		}
	}
}

func (g *Game) responseData(ids []cards.ID) []clientbound.ResponseData {
	out := make([]clientbound.ResponseData, len(ids))
	for i, id := range ids {
		out[i] = clientbound.ResponseData{ID: id, Text: g.packs[id.Pack].Responses[id.Card]}
	}
	return out
}

func (g *Game) displayResponsesPacket() clientbound.DisplayResponses {
	out := make(clientbound.DisplayResponses, len(g.players))
	for i, p := range g.players {
		if i == g.czarIndex || len(p.Selections) < g.prompt.Pick {
			continue
		}
		out[p.ID] = g.responseData(p.Selections)
	}
	return out
}

func (g *Game) playing() bool {
	return g.state == StatePlayerSelection || g.state == StateCzarSelection
}

func (g *Game) player(id uuid.UUID) *Player {
	if i := g.playerIndex(id); i >= 0 {
		return g.players[i]
	}
	return nil
}

func (g *Game) playerIndex(id uuid.UUID) int {
	return slices.IndexFunc(g.players, func(p *Player) bool { return p.ID == id })
}

func (g *Game) host() *Player {
	for _, p := range g.players {
		if p.IsHost {
			return p
		}
	}
	return nil
}

func (g *Game) czar() *Player {
	if g.czarIndex < 0 || g.czarIndex >= len(g.players) {
		return nil
	}
	return g.players[g.czarIndex]
}

func (g *Game) broadcast(hub network.Hub, packets ...clientbound.Packet) {
	for _, p := range g.players {
		hub.Send(p.ID, packets...)
	}
}
