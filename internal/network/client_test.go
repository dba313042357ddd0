package network

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frameDatas(frames []outFrame) []string {
	out := make([]string, len(frames))
	for i, f := range frames {
		out[i] = string(f.data)
	}
	return out
}

func TestClient_Enqueue_OverflowDropsOldest(t *testing.T) {
	c := NewClient(uuid.New(), newMockConn(), 2, 0, 0, 0)

	c.enqueue(outFrame{data: []byte("one")})
	c.enqueue(outFrame{data: []byte("two")})
	c.enqueue(outFrame{data: []byte("three")})

	assert.Equal(t, []string{"two", "three"}, frameDatas(c.takePending()))
}

func TestClient_Enqueue_AcksSurviveOverflow(t *testing.T) {
	c := NewClient(uuid.New(), newMockConn(), 2, 0, 0, 0)

	c.enqueue(outFrame{data: []byte("ack1"), ack: true})
	c.enqueue(outFrame{data: []byte("broadcast")})

	// Overflow drops the broadcast, not the older ack.
	c.enqueue(outFrame{data: []byte("ack2"), ack: true})
	// Queue now holds only acks; a new broadcast is the one discarded.
	c.enqueue(outFrame{data: []byte("late broadcast")})
	// A third ack grows the queue past its bound instead of being lost.
	c.enqueue(outFrame{data: []byte("ack3"), ack: true})

	assert.Equal(t, []string{"ack1", "ack2", "ack3"}, frameDatas(c.takePending()))
}

func TestClient_WritePump_DrainsInOrder(t *testing.T) {
	conn := newMockConn()
	c := NewClient(uuid.New(), conn, 8, 0, 0, 0)

	go c.writePump()
	defer c.Close()

	c.enqueue(outFrame{data: []byte("first")})
	c.enqueue(outFrame{data: []byte("second")})
	c.enqueue(outFrame{data: []byte("third")})

	require.Eventually(t, func() bool {
		return len(conn.textFrames()) == 3
	}, time.Second, 5*time.Millisecond)

	frames := conn.textFrames()
	assert.Equal(t, "first", string(frames[0]))
	assert.Equal(t, "second", string(frames[1]))
	assert.Equal(t, "third", string(frames[2]))
}

func TestClient_Close_SendsCloseFrame(t *testing.T) {
	conn := newMockConn()
	c := NewClient(uuid.New(), conn, 8, 0, 0, 0)

	done := make(chan struct{})
	go func() {
		c.writePump()
		close(done)
	}()

	c.Close()
	c.Close() // idempotent

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("write pump did not stop")
	}
	assert.True(t, conn.wroteCloseFrame())
	assert.True(t, conn.isClosed())
}

func TestClient_WritePump_StopsOnWriteError(t *testing.T) {
	conn := newMockConn()
	conn.mu.Lock()
	conn.writeErr = assert.AnError
	conn.mu.Unlock()

	c := NewClient(uuid.New(), conn, 8, 0, 0, 0)
	done := make(chan struct{})
	go func() {
		c.writePump()
		close(done)
	}()

	c.enqueue(outFrame{data: []byte("doomed")})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("write pump did not stop on error")
	}
	assert.True(t, conn.isClosed())
}

func TestClient_ReadPump_SkipsNonText(t *testing.T) {
	conn := newMockConn()
	conn.reads <- mockRead{messageType: websocket.BinaryMessage, data: []byte("ignored")}
	conn.reads <- mockRead{messageType: websocket.TextMessage, data: []byte(`"LeaveGame"`)}
	close(conn.reads)

	c := NewClient(uuid.New(), conn, 8, 0, 0, 0)
	r := NewRouter(NewClientManager(), 16)
	c.readPump(r)

	ev := <-r.inbox
	assert.Equal(t, eventMessage, ev.kind)
	assert.Equal(t, `"LeaveGame"`, string(ev.frame))
	assert.Same(t, c, ev.client)

	ev = <-r.inbox
	assert.Equal(t, eventDisconnect, ev.kind)
}
