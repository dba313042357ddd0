package protocol

import (
	"encoding/json"
	"fmt"
)

// GameSettings is the full configuration snapshot a game is created with.
// Nil pointer fields mean "no limit".
type GameSettings struct {
	MaxPlayers       *int     `json:"max_players"`
	MaxSelectionTime *int     `json:"max_selection_time"`
	PointsToWin      int      `json:"points_to_win"`
	Packs            []string `json:"packs"`
}

// GameSetting is a single updatable field of a game's configuration,
// sent one at a time while a game waits to start.
type GameSetting interface {
	isGameSetting()
}

type MaxPlayers struct{ Value *int }

type MaxSelectionTime struct{ Value *int }

type PointsToWin int

// AddPack names a card pack to append to the game's pack list.
type AddPack string

// RemovePack names a card pack to drop from the game's pack list.
type RemovePack string

func (MaxPlayers) isGameSetting()       {}
func (MaxSelectionTime) isGameSetting() {}
func (PointsToWin) isGameSetting()      {}
func (AddPack) isGameSetting()          {}
func (RemovePack) isGameSetting()       {}

func (s MaxPlayers) MarshalJSON() ([]byte, error) {
	return Tagged("MaxPlayers", s.Value)
}

func (s MaxSelectionTime) MarshalJSON() ([]byte, error) {
	return Tagged("MaxSelectionTime", s.Value)
}

func (s PointsToWin) MarshalJSON() ([]byte, error) {
	return Tagged("PointsToWin", int(s))
}

func (s AddPack) MarshalJSON() ([]byte, error) {
	return Tagged("AddPack", string(s))
}

func (s RemovePack) MarshalJSON() ([]byte, error) {
	return Tagged("RemovePack", string(s))
}

// UnmarshalSetting decodes one externally tagged GameSetting value.
func UnmarshalSetting(data []byte) (GameSetting, error) {
	name, payload, err := Variant(data)
	if err != nil {
		return nil, err
	}

	switch name {
	case "MaxPlayers":
		var v *int
		if err := decodePayload(payload, &v); err != nil {
			return nil, err
		}
		return MaxPlayers{Value: v}, nil
	case "MaxSelectionTime":
		var v *int
		if err := decodePayload(payload, &v); err != nil {
			return nil, err
		}
		return MaxSelectionTime{Value: v}, nil
	case "PointsToWin":
		var v int
		if err := requirePayload(name, payload, &v); err != nil {
			return nil, err
		}
		return PointsToWin(v), nil
	case "AddPack":
		var v string
		if err := requirePayload(name, payload, &v); err != nil {
			return nil, err
		}
		return AddPack(v), nil
	case "RemovePack":
		var v string
		if err := requirePayload(name, payload, &v); err != nil {
			return nil, err
		}
		return RemovePack(v), nil
	default:
		return nil, fmt.Errorf("unknown game setting %q", name)
	}
}

// decodePayload tolerates a missing payload, leaving the target zero.
func decodePayload(payload json.RawMessage, into any) error {
	if payload == nil {
		return nil
	}
	return json.Unmarshal(payload, into)
}

func requirePayload(name string, payload json.RawMessage, into any) error {
	if payload == nil {
		return fmt.Errorf("%s: missing payload", name)
	}
	return json.Unmarshal(payload, into)
}
