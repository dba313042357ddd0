package serverbound

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"cardczar/internal/cards"
	"cardczar/internal/protocol"
)

// Wrapped pairs a packet with the optional id a client attached to
// request an Ack. A nil ID means the packet was sent raw.
type Wrapped struct {
	Packet Packet
	ID     *uuid.UUID
}

// envelope is the wire shape of an id-carrying packet.
type envelope struct {
	Packet   json.RawMessage `json:"packet"`
	PacketID *uuid.UUID      `json:"packet_id"`
}

func (w Wrapped) MarshalJSON() ([]byte, error) {
	if w.ID == nil {
		return json.Marshal(w.Packet)
	}
	return json.Marshal(struct {
		Packet   Packet    `json:"packet"`
		PacketID uuid.UUID `json:"packet_id"`
	}{w.Packet, *w.ID})
}

func (w *Wrapped) UnmarshalJSON(data []byte) error {
	// An object with a "packet" key is an envelope; anything else is a
	// raw packet.
	var env envelope
	if err := json.Unmarshal(data, &env); err == nil && env.Packet != nil {
		p, err := decodePacket(env.Packet)
		if err != nil {
			return err
		}
		w.Packet, w.ID = p, env.PacketID
		return nil
	}

	p, err := decodePacket(data)
	if err != nil {
		return err
	}
	w.Packet, w.ID = p, nil
	return nil
}

// DecodeFrame parses one inbound text frame: either a single wrapped
// packet or an array of them.
func DecodeFrame(data []byte) ([]Wrapped, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty frame")
	}

	if trimmed[0] == '[' {
		var packets []Wrapped
		if err := json.Unmarshal(trimmed, &packets); err != nil {
			return nil, fmt.Errorf("decoding frame: %w", err)
		}
		return packets, nil
	}

	var w Wrapped
	if err := json.Unmarshal(trimmed, &w); err != nil {
		return nil, fmt.Errorf("decoding frame: %w", err)
	}
	return []Wrapped{w}, nil
}

// EncodeFrame renders wrapped packets as one inbound frame. Used by
// test clients; the server only decodes.
func EncodeFrame(packets ...Wrapped) ([]byte, error) {
	data, err := json.Marshal(packets)
	if err != nil {
		return nil, fmt.Errorf("encoding frame: %w", err)
	}
	return data, nil
}

func decodePacket(raw json.RawMessage) (Packet, error) {
	name, payload, err := protocol.Variant(raw)
	if err != nil {
		return nil, err
	}

	switch name {
	case "SetPlayerName":
		var s string
		if err := requirePayload(name, payload, &s); err != nil {
			return nil, err
		}
		return SetPlayerName(s), nil
	case "StartGame":
		return StartGame{}, nil
	case "UpdateSetting":
		if payload == nil {
			return nil, fmt.Errorf("UpdateSetting: missing payload")
		}
		setting, err := protocol.UnmarshalSetting(payload)
		if err != nil {
			return nil, err
		}
		return UpdateSetting{Setting: setting}, nil
	case "SelectResponse":
		var id cards.ID
		if err := requirePayload(name, payload, &id); err != nil {
			return nil, err
		}
		return SelectResponse(id), nil
	case "SelectRoundWinner":
		var id uuid.UUID
		if err := requirePayload(name, payload, &id); err != nil {
			return nil, err
		}
		return SelectRoundWinner(id), nil
	case "CreateServer":
		var settings protocol.GameSettings
		if err := requirePayload(name, payload, &settings); err != nil {
			return nil, err
		}
		return CreateServer{Settings: settings}, nil
	case "JoinGame":
		var id uuid.UUID
		if err := requirePayload(name, payload, &id); err != nil {
			return nil, err
		}
		return JoinGame(id), nil
	case "RefreshServerList":
		return RefreshServerList{}, nil
	case "RequestCardPacks":
		return RequestCardPacks{}, nil
	case "LeaveGame":
		return LeaveGame{}, nil
	default:
		return nil, fmt.Errorf("unknown serverbound packet %q", name)
	}
}

func requirePayload(name string, payload json.RawMessage, into any) error {
	if payload == nil {
		return fmt.Errorf("%s: missing payload", name)
	}
	if err := json.Unmarshal(payload, into); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
