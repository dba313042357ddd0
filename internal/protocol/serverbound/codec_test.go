package serverbound

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardczar/internal/cards"
	"cardczar/internal/protocol"
)

var (
	gameID   = uuid.MustParse("11111111-2222-3333-4444-555555555555")
	packetID = uuid.MustParse("aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee")
)

func TestDecodeFrame_RawSinglePacket(t *testing.T) {
	tests := []struct {
		raw  string
		want Packet
	}{
		{raw: `"StartGame"`, want: StartGame{}},
		{raw: `"RefreshServerList"`, want: RefreshServerList{}},
		{raw: `"RequestCardPacks"`, want: RequestCardPacks{}},
		{raw: `"LeaveGame"`, want: LeaveGame{}},
		{raw: `{"SetPlayerName":"Alice"}`, want: SetPlayerName("Alice")},
		{raw: `{"SelectResponse":{"pack_number":0,"card_number":12}}`, want: SelectResponse(cards.ID{Pack: 0, Card: 12})},
		{raw: `{"SelectRoundWinner":"11111111-2222-3333-4444-555555555555"}`, want: SelectRoundWinner(gameID)},
		{raw: `{"JoinGame":"11111111-2222-3333-4444-555555555555"}`, want: JoinGame(gameID)},
		{raw: `{"UpdateSetting":{"PointsToWin":5}}`, want: UpdateSetting{Setting: protocol.PointsToWin(5)}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			packets, err := DecodeFrame([]byte(tt.raw))
			require.NoError(t, err)
			require.Len(t, packets, 1)
			assert.Equal(t, tt.want, packets[0].Packet)
			assert.Nil(t, packets[0].ID, "raw packets carry no id")
		})
	}
}

func TestDecodeFrame_CreateServer(t *testing.T) {
	raw := `{"CreateServer":{
		"max_players": null,
		"max_selection_time": 60,
		"points_to_win": 3,
		"packs": ["CAH Base Set"]
	}}`

	packets, err := DecodeFrame([]byte(raw))
	require.NoError(t, err)
	require.Len(t, packets, 1)

	create, ok := packets[0].Packet.(CreateServer)
	require.True(t, ok)
	assert.Nil(t, create.Settings.MaxPlayers)
	require.NotNil(t, create.Settings.MaxSelectionTime)
	assert.Equal(t, 60, *create.Settings.MaxSelectionTime)
	assert.Equal(t, 3, create.Settings.PointsToWin)
	assert.Equal(t, []string{"CAH Base Set"}, create.Settings.Packs)
}

func TestDecodeFrame_WrappedEnvelope(t *testing.T) {
	raw := `{"packet":{"SetPlayerName":"Alice"},"packet_id":"aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee"}`

	packets, err := DecodeFrame([]byte(raw))
	require.NoError(t, err)
	require.Len(t, packets, 1)
	assert.Equal(t, SetPlayerName("Alice"), packets[0].Packet)
	require.NotNil(t, packets[0].ID)
	assert.Equal(t, packetID, *packets[0].ID)
}

func TestDecodeFrame_WrappedUnitPacket(t *testing.T) {
	raw := `{"packet":"StartGame","packet_id":"aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee"}`

	packets, err := DecodeFrame([]byte(raw))
	require.NoError(t, err)
	require.Len(t, packets, 1)
	assert.Equal(t, StartGame{}, packets[0].Packet)
	require.NotNil(t, packets[0].ID)
}

func TestDecodeFrame_ArrayMixed(t *testing.T) {
	raw := `[
		{"packet":{"SetPlayerName":"Alice"},"packet_id":"aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee"},
		"RefreshServerList",
		{"JoinGame":"11111111-2222-3333-4444-555555555555"}
	]`

	packets, err := DecodeFrame([]byte(raw))
	require.NoError(t, err)
	require.Len(t, packets, 3)

	assert.Equal(t, SetPlayerName("Alice"), packets[0].Packet)
	require.NotNil(t, packets[0].ID)
	assert.Equal(t, RefreshServerList{}, packets[1].Packet)
	assert.Nil(t, packets[1].ID)
	assert.Equal(t, JoinGame(gameID), packets[2].Packet)
	assert.Nil(t, packets[2].ID)
}

func TestDecodeFrame_Malformed(t *testing.T) {
	for _, raw := range []string{
		``,
		`   `,
		`{`,
		`42`,
		`"NoSuchPacket"`,
		`{"NoSuchPacket":1}`,
		`{"SelectRoundWinner":"not-a-uuid"}`,
		`{"packet":{"NoSuchPacket":1},"packet_id":"aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee"}`,
		`[{"packet":"StartGame","packet_id":"bogus"}]`,
	} {
		_, err := DecodeFrame([]byte(raw))
		assert.Error(t, err, "input %q", raw)
	}
}

func TestEncodeFrame_RoundTrip(t *testing.T) {
	id := packetID
	frame, err := EncodeFrame(
		Wrapped{Packet: SetPlayerName("Bob"), ID: &id},
		Wrapped{Packet: StartGame{}},
	)
	require.NoError(t, err)

	packets, err := DecodeFrame(frame)
	require.NoError(t, err)
	require.Len(t, packets, 2)
	assert.Equal(t, SetPlayerName("Bob"), packets[0].Packet)
	require.NotNil(t, packets[0].ID)
	assert.Equal(t, id, *packets[0].ID)
	assert.Equal(t, StartGame{}, packets[1].Packet)
	assert.Nil(t, packets[1].ID)
}

func TestWrapped_MarshalMatchesWire(t *testing.T) {
	id := packetID
	data, err := json.Marshal(Wrapped{Packet: SetPlayerName("Alice"), ID: &id})
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"packet":{"SetPlayerName":"Alice"},"packet_id":"aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee"}`,
		string(data))

	data, err = json.Marshal(Wrapped{Packet: LeaveGame{}})
	require.NoError(t, err)
	assert.JSONEq(t, `"LeaveGame"`, string(data))
}
