package clientbound

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"cardczar/internal/protocol"
)

// EncodeFrame renders packets as one outbound text frame. Frames are
// always JSON arrays, even for a single packet.
func EncodeFrame(packets ...Packet) ([]byte, error) {
	data, err := json.Marshal(packets)
	if err != nil {
		return nil, fmt.Errorf("encoding frame: %w", err)
	}
	return data, nil
}

// DecodeFrame parses an outbound frame back into packets. Used by test
// clients; the server only encodes.
func DecodeFrame(data []byte) ([]Packet, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty frame")
	}

	if trimmed[0] != '[' {
		p, err := decodePacket(trimmed)
		if err != nil {
			return nil, err
		}
		return []Packet{p}, nil
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(trimmed, &raws); err != nil {
		return nil, fmt.Errorf("decoding frame: %w", err)
	}
	packets := make([]Packet, 0, len(raws))
	for _, raw := range raws {
		p, err := decodePacket(raw)
		if err != nil {
			return nil, err
		}
		packets = append(packets, p)
	}
	return packets, nil
}

func decodePacket(raw json.RawMessage) (Packet, error) {
	name, payload, err := protocol.Variant(raw)
	if err != nil {
		return nil, err
	}

	switch name {
	case "SetId":
		var id uuid.UUID
		if err := json.Unmarshal(payload, &id); err != nil {
			return nil, err
		}
		return SetID(id), nil
	case "StartGame":
		return StartGame{}, nil
	case "SettingUpdate":
		setting, err := protocol.UnmarshalSetting(payload)
		if err != nil {
			return nil, err
		}
		return SettingUpdate{Setting: setting}, nil
	case "AddPlayer":
		type body AddPlayer
		var b body
		if err := json.Unmarshal(payload, &b); err != nil {
			return nil, err
		}
		return AddPlayer(b), nil
	case "UpdatePlayerName":
		type body UpdatePlayerName
		var b body
		if err := json.Unmarshal(payload, &b); err != nil {
			return nil, err
		}
		return UpdatePlayerName(b), nil
	case "RemovePlayer":
		type body RemovePlayer
		var b body
		if err := json.Unmarshal(payload, &b); err != nil {
			return nil, err
		}
		return RemovePlayer(b), nil
	case "PlayerFinishedPicking":
		var id uuid.UUID
		if err := json.Unmarshal(payload, &id); err != nil {
			return nil, err
		}
		return PlayerFinishedPicking(id), nil
	case "DisplayResponses":
		var m map[uuid.UUID][]ResponseData
		if err := json.Unmarshal(payload, &m); err != nil {
			return nil, err
		}
		return DisplayResponses(m), nil
	case "NextRound":
		type body NextRound
		var b body
		if err := json.Unmarshal(payload, &b); err != nil {
			return nil, err
		}
		return NextRound(b), nil
	case "CancelRound":
		return CancelRound{}, nil
	case "DisplayWinner":
		type body DisplayWinner
		var b body
		if err := json.Unmarshal(payload, &b); err != nil {
			return nil, err
		}
		return DisplayWinner(b), nil
	case "Ack":
		type body Ack
		var b body
		if err := json.Unmarshal(payload, &b); err != nil {
			return nil, err
		}
		return Ack(b), nil
	case "ServerList":
		type body ServerList
		var b body
		if err := json.Unmarshal(payload, &b); err != nil {
			return nil, err
		}
		return ServerList(b), nil
	case "CardPacks":
		var packs []PackSummary
		if err := json.Unmarshal(payload, &packs); err != nil {
			return nil, err
		}
		return CardPacks(packs), nil
	default:
		return nil, fmt.Errorf("unknown clientbound packet %q", name)
	}
}
