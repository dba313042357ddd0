package network

import (
	"io"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// mockRead is one scripted inbound frame.
type mockRead struct {
	messageType int
	data        []byte
}

// mockConn is a scripted Conn for session tests: reads come from a
// channel, writes are recorded.
type mockConn struct {
	reads chan mockRead

	mu       sync.Mutex
	writes   []mockWrite
	writeErr error
	closed   bool
}

type mockWrite struct {
	messageType int
	data        []byte
}

func newMockConn() *mockConn {
	return &mockConn{reads: make(chan mockRead, 16)}
}

func (m *mockConn) ReadMessage() (int, []byte, error) {
	r, ok := <-m.reads
	if !ok {
		return 0, nil, io.EOF
	}
	return r.messageType, r.data, nil
}

func (m *mockConn) WriteMessage(messageType int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	if m.closed {
		return net.ErrClosed
	}
	m.writes = append(m.writes, mockWrite{messageType: messageType, data: append([]byte(nil), data...)})
	return nil
}

func (m *mockConn) SetReadDeadline(time.Time) error  { return nil }
func (m *mockConn) SetWriteDeadline(time.Time) error { return nil }
func (m *mockConn) SetPongHandler(func(string) error) {}

func (m *mockConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockConn) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 40000}
}

// textFrames returns the data of every recorded text write.
func (m *mockConn) textFrames() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out [][]byte
	for _, w := range m.writes {
		if w.messageType == websocket.TextMessage {
			out = append(out, w.data)
		}
	}
	return out
}

func (m *mockConn) wroteCloseFrame() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.writes {
		if w.messageType == websocket.CloseMessage {
			return true
		}
	}
	return false
}

func (m *mockConn) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
