package network_test

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardczar/internal/cards"
	"cardczar/internal/config"
	"cardczar/internal/lobby"
	"cardczar/internal/network"
	"cardczar/internal/protocol"
	"cardczar/internal/protocol/clientbound"
	"cardczar/internal/protocol/serverbound"
	"cardczar/internal/testutil"
)

// startServer boots the full stack, router loop included, on an
// ephemeral loopback port and returns its address.
func startServer(t *testing.T) string {
	t.Helper()

	cfg := config.DefaultServer()
	cfg.PublicDir = ""

	clients := network.NewClientManager()
	router := network.NewRouter(clients, cfg.EventQueueSize)
	router.RegisterLobby(lobby.New(testutil.NewStore(t)))
	srv := network.NewServer(cfg, router, clients)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	routerDone := make(chan error, 1)
	serverDone := make(chan error, 1)
	go func() { routerDone <- router.Run(ctx) }()
	go func() { serverDone <- srv.Serve(ctx, ln) }()

	t.Cleanup(func() {
		cancel()
		for _, done := range []chan error{routerDone, serverDone} {
			select {
			case err := <-done:
				assert.NoError(t, err)
			case <-time.After(5 * time.Second):
				t.Error("server did not stop in time")
			}
		}
	})

	return ln.Addr().String()
}

// drainGreeting consumes the two lobby frames every fresh connection
// receives and returns the server list from the first.
func drainGreeting(t *testing.T, c *testutil.WSClient) clientbound.ServerList {
	t.Helper()

	frame := c.ReadFrame()
	require.Len(t, frame, 1)
	list, ok := frame[0].(clientbound.ServerList)
	require.True(t, ok, "expected ServerList, got %T", frame[0])

	frame = c.ReadFrame()
	require.Len(t, frame, 1)
	_, ok = frame[0].(clientbound.CardPacks)
	require.True(t, ok, "expected CardPacks, got %T", frame[0])
	return list
}

func findNextRound(t *testing.T, packets []clientbound.Packet) clientbound.NextRound {
	t.Helper()
	for _, p := range packets {
		if nr, ok := p.(clientbound.NextRound); ok {
			return nr
		}
	}
	t.Fatal("no NextRound among packets")
	return clientbound.NextRound{}
}

// createAndJoin builds a one-point game hosted by the first returned
// client, with the second seated beside them.
func createAndJoin(t *testing.T, addr string) (*testutil.WSClient, *testutil.WSClient) {
	t.Helper()
	url := "ws://" + addr + "/ws"

	host := testutil.DialWS(t, url)
	drainGreeting(t, host)
	resp, _ := host.AwaitAck(serverbound.CreateServer{Settings: protocol.GameSettings{
		PointsToWin: 1,
		Packs:       []string{cards.DefaultPack},
	}})
	require.True(t, resp.IsAccepted(), "create server: %s", resp)

	guest := testutil.DialWS(t, url)
	list := drainGreeting(t, guest)
	require.Len(t, list.Servers, 1)
	resp, _ = guest.AwaitAck(serverbound.JoinGame(list.Servers[0].ID))
	require.True(t, resp.IsAccepted(), "join game: %s", resp)

	// The host hears the guest arrive.
	frame := host.ReadFrame()
	require.Len(t, frame, 1)
	assert.Equal(t, clientbound.AddPlayer{ID: guest.ID}, frame[0])
	return host, guest
}

func TestEndToEnd_TwoPlayerMatch(t *testing.T) {
	addr := startServer(t)
	url := "ws://" + addr + "/ws"

	alice := testutil.DialWS(t, url)
	drainGreeting(t, alice)

	resp, seen := alice.AwaitAck(serverbound.CreateServer{Settings: protocol.GameSettings{
		PointsToWin: 1,
		Packs:       []string{cards.DefaultPack},
	}})
	require.True(t, resp.IsAccepted(), "create server: %s", resp)
	assert.Contains(t, seen, clientbound.AddPlayer{ID: alice.ID, IsHost: true})

	bob := testutil.DialWS(t, url)
	list := drainGreeting(t, bob)
	require.Len(t, list.Servers, 1)

	resp, seen = bob.AwaitAck(serverbound.JoinGame(list.Servers[0].ID))
	require.True(t, resp.IsAccepted(), "join game: %s", resp)
	assert.Contains(t, seen, clientbound.AddPlayer{ID: alice.ID, IsHost: true})
	assert.Contains(t, seen, clientbound.AddPlayer{ID: bob.ID})

	frame := alice.ReadFrame()
	assert.Equal(t, []clientbound.Packet{clientbound.AddPlayer{ID: bob.ID}}, frame)

	// Kick off: both get StartGame and a ten-card hand.
	resp, seen = alice.AwaitAck(serverbound.StartGame{})
	require.True(t, resp.IsAccepted(), "start game: %s", resp)
	assert.Contains(t, seen, clientbound.StartGame{})
	aliceRound := findNextRound(t, seen)
	require.Len(t, aliceRound.NewResponses, 10)

	bobSeen := bob.ReadFrame()
	bobSeen = append(bobSeen, bob.ReadFrame()...)
	assert.Contains(t, bobSeen, clientbound.StartGame{})
	bobRound := findNextRound(t, bobSeen)
	require.Len(t, bobRound.NewResponses, 10)
	assert.Equal(t, aliceRound.Czar, bobRound.Czar)
	assert.Equal(t, aliceRound.Prompt, bobRound.Prompt)

	picker, judge, pickerRound := alice, bob, aliceRound
	if aliceRound.Czar == alice.ID {
		picker, judge, pickerRound = bob, alice, bobRound
	}

	card := pickerRound.NewResponses[0]
	resp, _ = picker.AwaitAck(serverbound.SelectResponse(card.ID))
	require.True(t, resp.IsAccepted(), "select response: %s", resp)

	frame = judge.ReadFrame()
	assert.Equal(t, []clientbound.Packet{clientbound.PlayerFinishedPicking(picker.ID)}, frame)

	frame = judge.ReadFrame()
	require.Len(t, frame, 1)
	assert.Equal(t, clientbound.DisplayResponses{
		picker.ID: {{ID: card.ID, Text: card.Text}},
	}, frame[0])

	// One point wins the match.
	resp, seen = judge.AwaitAck(serverbound.SelectRoundWinner(picker.ID))
	require.True(t, resp.IsAccepted(), "select winner: %s", resp)
	assert.Contains(t, seen, clientbound.DisplayWinner{Winner: picker.ID, EndGame: true})

	frame = picker.ReadFrame()
	assert.Equal(t, []clientbound.Packet{clientbound.DisplayWinner{Winner: picker.ID, EndGame: true}}, frame)

	// Leaving the finished game lands the winner back in the lobby.
	resp, seen = picker.AwaitAck(serverbound.LeaveGame{})
	require.True(t, resp.IsAccepted(), "leave game: %s", resp)
	backInLobby := false
	for _, p := range seen {
		if _, ok := p.(clientbound.ServerList); ok {
			backInLobby = true
		}
	}
	assert.True(t, backInLobby, "expected a lobby greeting after leaving")

	frame = judge.ReadFrame()
	assert.Equal(t, []clientbound.Packet{clientbound.RemovePlayer{ID: picker.ID}}, frame)
}

func TestEndToEnd_AcksBatchPerInboundFrame(t *testing.T) {
	addr := startServer(t)
	c := testutil.DialWS(t, "ws://"+addr+"/ws")
	drainGreeting(t, c)

	id1, id2 := uuid.New(), uuid.New()
	c.Send(
		serverbound.Wrapped{Packet: serverbound.RefreshServerList{}, ID: &id1},
		serverbound.Wrapped{Packet: serverbound.RequestCardPacks{}, ID: &id2},
	)

	// Replies flush as the packets are handled; the acks follow in one
	// frame, in submission order.
	frame := c.ReadFrame()
	require.Len(t, frame, 1)
	_, ok := frame[0].(clientbound.ServerList)
	require.True(t, ok, "expected ServerList, got %T", frame[0])

	frame = c.ReadFrame()
	require.Len(t, frame, 1)
	_, ok = frame[0].(clientbound.CardPacks)
	require.True(t, ok, "expected CardPacks, got %T", frame[0])

	frame = c.ReadFrame()
	require.Len(t, frame, 2)
	for i, wantID := range []uuid.UUID{id1, id2} {
		ack, ok := frame[i].(clientbound.Ack)
		require.True(t, ok, "expected Ack, got %T", frame[i])
		assert.Equal(t, wantID, ack.PacketID)
		assert.True(t, ack.Response.IsAccepted())
	}
}

func TestEndToEnd_MalformedFrameIgnored(t *testing.T) {
	addr := startServer(t)
	c := testutil.DialWS(t, "ws://"+addr+"/ws")
	drainGreeting(t, c)

	c.SendRaw([]byte("{this is not json"))

	// The session survives and keeps answering.
	resp, _ := c.AwaitAck(serverbound.RequestCardPacks{})
	assert.True(t, resp.IsAccepted())
}

func TestEndToEnd_DisconnectRemovesPlayer(t *testing.T) {
	addr := startServer(t)
	host, guest := createAndJoin(t, addr)

	guest.Close()

	frame := host.ReadFrame()
	require.Len(t, frame, 1)
	assert.Equal(t, clientbound.RemovePlayer{ID: guest.ID}, frame[0])
}

func TestEndToEnd_Healthz(t *testing.T) {
	addr := startServer(t)

	resp, err := http.Get("http://" + addr + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
