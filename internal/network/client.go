package network

import (
	"log/slog"
	"net"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	defaultSendQueueSize = 256
	defaultWriteTimeout  = 5 * time.Second
	defaultPongWait      = 120 * time.Second
	defaultPingInterval  = 50 * time.Second
)

// Conn is the subset of a websocket connection the session layer uses.
// Satisfied by *websocket.Conn; tests substitute a scripted fake.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
	RemoteAddr() net.Addr
}

// outFrame is one encoded text frame queued for delivery.
type outFrame struct {
	data []byte
	ack  bool // frames carrying Acks are never dropped on overflow
}

// Client is one connected session: its identity, listener binding and
// outbound queue. A dedicated writer goroutine owns the socket's write
// side; reads happen on the connection's handler goroutine.
type Client struct {
	id   uuid.UUID
	addr string
	conn Conn

	// bound is the listener currently receiving this client's events.
	// Owned by the router loop.
	bound uuid.UUID

	mu       sync.Mutex
	queue    []outFrame
	maxQueue int

	wakeCh    chan struct{}
	closeCh   chan struct{}
	closeOnce sync.Once

	writeTimeout time.Duration
	pongWait     time.Duration
	pingInterval time.Duration
}

func NewClient(id uuid.UUID, conn Conn, queueSize int, writeTimeout, pongWait, pingInterval time.Duration) *Client {
	if queueSize <= 0 {
		queueSize = defaultSendQueueSize
	}
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	if pongWait <= 0 {
		pongWait = defaultPongWait
	}
	if pingInterval <= 0 {
		pingInterval = defaultPingInterval
	}

	addr := ""
	if ra := conn.RemoteAddr(); ra != nil {
		addr = ra.String()
	}

	return &Client{
		id:           id,
		addr:         addr,
		conn:         conn,
		maxQueue:     queueSize,
		wakeCh:       make(chan struct{}, 1),
		closeCh:      make(chan struct{}),
		writeTimeout: writeTimeout,
		pongWait:     pongWait,
		pingInterval: pingInterval,
	}
}

func (c *Client) ID() uuid.UUID {
	return c.id
}

func (c *Client) Addr() string {
	return c.addr
}

// enqueue appends a frame for the writer, applying the overflow policy:
// when the queue is full the oldest ack-free frame is dropped; frames
// carrying Acks are never discarded.
func (c *Client) enqueue(f outFrame) {
	c.mu.Lock()
	if len(c.queue) >= c.maxQueue {
		dropped := false
		for i := range c.queue {
			if !c.queue[i].ack {
				c.queue = slices.Delete(c.queue, i, i+1)
				dropped = true
				break
			}
		}
		switch {
		case dropped:
			slog.Warn("send queue full, dropped oldest frame", "client", c.id, "addr", c.addr)
		case f.ack:
			// The queue holds only acks; let it grow rather than lose one.
			slog.Warn("send queue full of acks, growing", "client", c.id, "addr", c.addr)
		default:
			c.mu.Unlock()
			slog.Warn("send queue full, dropped new frame", "client", c.id, "addr", c.addr)
			return
		}
	}
	c.queue = append(c.queue, f)
	c.mu.Unlock()

	select {
	case c.wakeCh <- struct{}{}:
	default:
	}
}

func (c *Client) takePending() []outFrame {
	c.mu.Lock()
	frames := c.queue
	c.queue = nil
	c.mu.Unlock()
	return frames
}

// writePump is the single writer for this connection. It drains the
// queue in batches and emits keepalive pings until the client closes.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.wakeCh:
			for _, f := range c.takePending() {
				if err := c.writeFrame(websocket.TextMessage, f.data); err != nil {
					slog.Warn("write failed", "client", c.id, "addr", c.addr, "error", err)
					_ = c.conn.Close()
					return
				}
			}
		case <-ticker.C:
			if err := c.writeFrame(websocket.PingMessage, nil); err != nil {
				slog.Debug("ping failed", "client", c.id, "error", err)
				_ = c.conn.Close()
				return
			}
		case <-c.closeCh:
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = c.writeFrame(websocket.CloseMessage, msg)
			_ = c.conn.Close()
			return
		}
	}
}

func (c *Client) writeFrame(messageType int, data []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

// readPump feeds inbound frames to the router until the socket dies,
// then posts the disconnect. Non-text frames are ignored.
func (c *Client) readPump(r *Router) {
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	})

	for {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}
		if !r.post(event{kind: eventMessage, client: c, frame: data}) {
			return
		}
	}
	r.post(event{kind: eventDisconnect, client: c})
}

// Close asks the writer to flush a close frame and tear the socket
// down. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.closeCh)
	})
}
