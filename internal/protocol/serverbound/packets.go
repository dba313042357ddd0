// Package serverbound defines every packet clients send to the server.
package serverbound

import (
	"github.com/google/uuid"

	"cardczar/internal/cards"
	"cardczar/internal/protocol"
)

// Packet is a client-to-server message.
type Packet interface {
	serverbound()
}

// SetPlayerName sets the sender's display name. Valid in every state.
type SetPlayerName string

func (SetPlayerName) serverbound() {}

func (p SetPlayerName) MarshalJSON() ([]byte, error) {
	return protocol.Tagged("SetPlayerName", string(p))
}

// StartGame asks the host's game to begin.
type StartGame struct{}

func (StartGame) serverbound() {}

func (StartGame) MarshalJSON() ([]byte, error) {
	return protocol.Unit("StartGame")
}

// UpdateSetting changes one field of a waiting game's configuration.
type UpdateSetting struct {
	Setting protocol.GameSetting
}

func (UpdateSetting) serverbound() {}

func (p UpdateSetting) MarshalJSON() ([]byte, error) {
	return protocol.Tagged("UpdateSetting", p.Setting)
}

// SelectResponse submits one card towards the sender's answer.
type SelectResponse cards.ID

func (SelectResponse) serverbound() {}

func (p SelectResponse) MarshalJSON() ([]byte, error) {
	return protocol.Tagged("SelectResponse", cards.ID(p))
}

// SelectRoundWinner is the czar's pick for the round.
type SelectRoundWinner uuid.UUID

func (SelectRoundWinner) serverbound() {}

func (p SelectRoundWinner) MarshalJSON() ([]byte, error) {
	return protocol.Tagged("SelectRoundWinner", uuid.UUID(p))
}

// CreateServer asks the lobby to open a new game.
type CreateServer struct {
	Settings protocol.GameSettings
}

func (CreateServer) serverbound() {}

func (p CreateServer) MarshalJSON() ([]byte, error) {
	return protocol.Tagged("CreateServer", p.Settings)
}

// JoinGame asks the lobby to move the sender into an open game.
type JoinGame uuid.UUID

func (JoinGame) serverbound() {}

func (p JoinGame) MarshalJSON() ([]byte, error) {
	return protocol.Tagged("JoinGame", uuid.UUID(p))
}

// RefreshServerList asks the lobby for a fresh ServerList.
type RefreshServerList struct{}

func (RefreshServerList) serverbound() {}

func (RefreshServerList) MarshalJSON() ([]byte, error) {
	return protocol.Unit("RefreshServerList")
}

// RequestCardPacks asks the lobby for the pack catalog.
type RequestCardPacks struct{}

func (RequestCardPacks) serverbound() {}

func (RequestCardPacks) MarshalJSON() ([]byte, error) {
	return protocol.Unit("RequestCardPacks")
}

// LeaveGame returns the sender to the lobby once a game has ended.
type LeaveGame struct{}

func (LeaveGame) serverbound() {}

func (LeaveGame) MarshalJSON() ([]byte, error) {
	return protocol.Unit("LeaveGame")
}
