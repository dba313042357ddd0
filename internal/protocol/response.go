package protocol

import (
	"encoding/json"
	"fmt"
)

type verdict uint8

const (
	verdictAccepted verdict = iota
	verdictRejected
	verdictRejectedWithReason
)

// PacketResponse is the verdict a listener returns for a handled packet.
// It is delivered to the sender inside an Ack when the packet carried an id.
type PacketResponse struct {
	verdict verdict
	reason  string
}

var (
	// Accepted reports that the packet was applied.
	Accepted = PacketResponse{verdict: verdictAccepted}
	// Rejected reports a refusal without explanation.
	Rejected = PacketResponse{verdict: verdictRejected}
)

// RejectedWithReason builds a refusal carrying a human-readable cause.
func RejectedWithReason(reason string) PacketResponse {
	return PacketResponse{verdict: verdictRejectedWithReason, reason: reason}
}

func (r PacketResponse) IsAccepted() bool {
	return r.verdict == verdictAccepted
}

// Reason returns the rejection cause, empty unless built with
// RejectedWithReason.
func (r PacketResponse) Reason() string {
	return r.reason
}

func (r PacketResponse) String() string {
	switch r.verdict {
	case verdictAccepted:
		return "Accepted"
	case verdictRejected:
		return "Rejected"
	default:
		return fmt.Sprintf("Rejected(%s)", r.reason)
	}
}

func (r PacketResponse) MarshalJSON() ([]byte, error) {
	switch r.verdict {
	case verdictAccepted:
		return Unit("Accepted")
	case verdictRejected:
		return Unit("Rejected")
	default:
		return Tagged("RejectedWithReason", r.reason)
	}
}

func (r *PacketResponse) UnmarshalJSON(data []byte) error {
	name, payload, err := Variant(data)
	if err != nil {
		return err
	}
	switch name {
	case "Accepted":
		*r = Accepted
	case "Rejected":
		*r = Rejected
	case "RejectedWithReason":
		var reason string
		if err := json.Unmarshal(payload, &reason); err != nil {
			return fmt.Errorf("decoding rejection reason: %w", err)
		}
		*r = RejectedWithReason(reason)
	default:
		return fmt.Errorf("unknown packet response %q", name)
	}
	return nil
}
