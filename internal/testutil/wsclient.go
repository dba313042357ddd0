package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"cardczar/internal/protocol"
	"cardczar/internal/protocol/clientbound"
	"cardczar/internal/protocol/serverbound"
)

// WSClient is a scripted websocket client for integration tests. It
// dials the server, captures the announced session id and exposes
// typed frame reads and writes.
type WSClient struct {
	t    testing.TB
	conn *websocket.Conn

	// ID is the session id from the server's first frame.
	ID uuid.UUID

	timeout time.Duration
}

// DialWS connects to a running server and consumes the SetId frame.
// The connection is closed automatically when the test ends.
func DialWS(tb testing.TB, url string) *WSClient {
	tb.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		tb.Fatalf("dialing %s: %v", url, err)
	}
	tb.Cleanup(func() { _ = conn.Close() })

	c := &WSClient{t: tb, conn: conn, timeout: 5 * time.Second}

	packets := c.ReadFrame()
	if len(packets) != 1 {
		tb.Fatalf("expected the id announcement alone in the first frame, got %d packets", len(packets))
	}
	setID, ok := packets[0].(clientbound.SetID)
	if !ok {
		tb.Fatalf("expected SetId as the first packet, got %T", packets[0])
	}
	c.ID = uuid.UUID(setID)
	return c
}

// ReadFrame blocks for the next text frame and decodes it.
func (c *WSClient) ReadFrame() []clientbound.Packet {
	c.t.Helper()

	_ = c.conn.SetReadDeadline(time.Now().Add(c.timeout))
	messageType, data, err := c.conn.ReadMessage()
	if err != nil {
		c.t.Fatalf("reading frame: %v", err)
	}
	if messageType != websocket.TextMessage {
		c.t.Fatalf("expected a text frame, got type %d", messageType)
	}

	packets, err := clientbound.DecodeFrame(data)
	if err != nil {
		c.t.Fatalf("decoding frame %s: %v", data, err)
	}
	return packets
}

// Send writes wrapped packets as one frame.
func (c *WSClient) Send(packets ...serverbound.Wrapped) {
	c.t.Helper()

	frame, err := serverbound.EncodeFrame(packets...)
	if err != nil {
		c.t.Fatalf("encoding frame: %v", err)
	}
	c.SendRaw(frame)
}

// SendPacket writes a single packet without an ack id.
func (c *WSClient) SendPacket(p serverbound.Packet) {
	c.t.Helper()
	c.Send(serverbound.Wrapped{Packet: p})
}

// SendRaw writes data as one text frame, unvalidated.
func (c *WSClient) SendRaw(data []byte) {
	c.t.Helper()

	_ = c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.t.Fatalf("writing frame: %v", err)
	}
}

// AwaitAck sends a packet with a fresh id and reads frames until its
// Ack arrives, returning the verdict and everything seen on the way.
func (c *WSClient) AwaitAck(p serverbound.Packet) (protocol.PacketResponse, []clientbound.Packet) {
	c.t.Helper()

	id := uuid.New()
	c.Send(serverbound.Wrapped{Packet: p, ID: &id})

	var seen []clientbound.Packet
	deadline := time.Now().Add(c.timeout)
	for time.Now().Before(deadline) {
		for _, packet := range c.ReadFrame() {
			if ack, ok := packet.(clientbound.Ack); ok && ack.PacketID == id {
				return ack.Response, seen
			}
			seen = append(seen, packet)
		}
	}
	c.t.Fatalf("no ack for %T within %v", p, c.timeout)
	return protocol.PacketResponse{}, nil
}

// Close performs a clean websocket close.
func (c *WSClient) Close() {
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	_ = c.conn.Close()
}
