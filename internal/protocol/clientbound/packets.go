// Package clientbound defines every packet the server sends to clients.
package clientbound

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"cardczar/internal/cards"
	"cardczar/internal/protocol"
)

// Packet is a server-to-client message.
type Packet interface {
	clientbound()
}

// SetID announces the session id. It is the first frame on every
// connection.
type SetID uuid.UUID

func (SetID) clientbound() {}

func (p SetID) MarshalJSON() ([]byte, error) {
	return protocol.Tagged("SetId", uuid.UUID(p))
}

// StartGame tells players the game left the waiting state.
type StartGame struct{}

func (StartGame) clientbound() {}

func (StartGame) MarshalJSON() ([]byte, error) {
	return protocol.Unit("StartGame")
}

// SettingUpdate echoes one applied setting change to the whole game.
type SettingUpdate struct {
	Setting protocol.GameSetting
}

func (SettingUpdate) clientbound() {}

func (p SettingUpdate) MarshalJSON() ([]byte, error) {
	return protocol.Tagged("SettingUpdate", p.Setting)
}

// AddPlayer announces a player joining, or describes an existing player
// to a newcomer.
type AddPlayer struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	IsHost bool      `json:"is_host"`
	Points int       `json:"points"`
}

func (AddPlayer) clientbound() {}

func (p AddPlayer) MarshalJSON() ([]byte, error) {
	type body AddPlayer
	return protocol.Tagged("AddPlayer", body(p))
}

type UpdatePlayerName struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

func (UpdatePlayerName) clientbound() {}

func (p UpdatePlayerName) MarshalJSON() ([]byte, error) {
	type body UpdatePlayerName
	return protocol.Tagged("UpdatePlayerName", body(p))
}

// RemovePlayer announces a player leaving. NewHost is set when the
// departure promoted someone.
type RemovePlayer struct {
	ID      uuid.UUID  `json:"id"`
	NewHost *uuid.UUID `json:"new_host"`
}

func (RemovePlayer) clientbound() {}

func (p RemovePlayer) MarshalJSON() ([]byte, error) {
	type body RemovePlayer
	return protocol.Tagged("RemovePlayer", body(p))
}

// PlayerFinishedPicking marks a player's submission as complete.
type PlayerFinishedPicking uuid.UUID

func (PlayerFinishedPicking) clientbound() {}

func (p PlayerFinishedPicking) MarshalJSON() ([]byte, error) {
	return protocol.Tagged("PlayerFinishedPicking", uuid.UUID(p))
}

// ResponseData is one response card with its text resolved.
type ResponseData struct {
	ID   cards.ID `json:"id"`
	Text string   `json:"text"`
}

// DisplayResponses reveals every complete submission, keyed by player.
type DisplayResponses map[uuid.UUID][]ResponseData

func (DisplayResponses) clientbound() {}

func (p DisplayResponses) MarshalJSON() ([]byte, error) {
	return protocol.Tagged("DisplayResponses", map[uuid.UUID][]ResponseData(p))
}

// NextRound starts a round: who judges, what the prompt is, and the
// recipient's replacement cards.
type NextRound struct {
	Czar         uuid.UUID      `json:"czar"`
	Prompt       cards.Prompt   `json:"prompt"`
	NewResponses []ResponseData `json:"new_responses"`
}

func (NextRound) clientbound() {}

func (p NextRound) MarshalJSON() ([]byte, error) {
	type body NextRound
	return protocol.Tagged("NextRound", body(p))
}

// CancelRound aborts the current round without a winner.
type CancelRound struct{}

func (CancelRound) clientbound() {}

func (CancelRound) MarshalJSON() ([]byte, error) {
	return protocol.Unit("CancelRound")
}

type DisplayWinner struct {
	Winner  uuid.UUID `json:"winner"`
	EndGame bool      `json:"end_game"`
}

func (DisplayWinner) clientbound() {}

func (p DisplayWinner) MarshalJSON() ([]byte, error) {
	type body DisplayWinner
	return protocol.Tagged("DisplayWinner", body(p))
}

// Ack answers one id-carrying inbound packet.
type Ack struct {
	PacketID uuid.UUID               `json:"packet_id"`
	Response protocol.PacketResponse `json:"response"`
}

func (Ack) clientbound() {}

func (p Ack) MarshalJSON() ([]byte, error) {
	type body Ack
	return protocol.Tagged("Ack", body(p))
}

// ServerEntry is one joinable game, encoded on the wire as the tuple
// [id, host_name, num_players, max_players].
type ServerEntry struct {
	ID         uuid.UUID
	HostName   string
	Players    int
	MaxPlayers *int
}

func (e ServerEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{e.ID, e.HostName, e.Players, e.MaxPlayers})
}

func (e *ServerEntry) UnmarshalJSON(data []byte) error {
	var fields []json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if len(fields) != 4 {
		return fmt.Errorf("server entry: expected 4 fields, got %d", len(fields))
	}
	if err := json.Unmarshal(fields[0], &e.ID); err != nil {
		return err
	}
	if err := json.Unmarshal(fields[1], &e.HostName); err != nil {
		return err
	}
	if err := json.Unmarshal(fields[2], &e.Players); err != nil {
		return err
	}
	return json.Unmarshal(fields[3], &e.MaxPlayers)
}

// ServerList is the lobby's view of every open game.
type ServerList struct {
	Servers []ServerEntry `json:"servers"`
}

func (ServerList) clientbound() {}

func (p ServerList) MarshalJSON() ([]byte, error) {
	type body ServerList
	return protocol.Tagged("ServerList", body(p))
}

// PackSummary is one catalog row, encoded on the wire as the tuple
// [name, num_prompts, num_responses].
type PackSummary struct {
	Name      string
	Prompts   int
	Responses int
}

func (s PackSummary) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{s.Name, s.Prompts, s.Responses})
}

func (s *PackSummary) UnmarshalJSON(data []byte) error {
	var fields []json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if len(fields) != 3 {
		return fmt.Errorf("pack summary: expected 3 fields, got %d", len(fields))
	}
	if err := json.Unmarshal(fields[0], &s.Name); err != nil {
		return err
	}
	if err := json.Unmarshal(fields[1], &s.Prompts); err != nil {
		return err
	}
	return json.Unmarshal(fields[2], &s.Responses)
}

// CardPacks is the catalog of packs available for new games.
type CardPacks []PackSummary

func (CardPacks) clientbound() {}

func (p CardPacks) MarshalJSON() ([]byte, error) {
	return protocol.Tagged("CardPacks", []PackSummary(p))
}
