package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bassj/spinner-app/room"
	"github.com/bassj/spinner-app/types"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// newTestHub spins up a room with the given members pre-joined and an http
// server that speaks the session protocol for it.
func newTestHub(t *testing.T, password, creatorId string, members map[string]string) (*room.Room, *Hub, *httptest.Server) {
	t.Helper()
	reg := room.NewRegistry(4, 32)
	rm, err := reg.Create("Pizza", password, creatorId)
	require.NoError(t, err)
	for userId, displayName := range members {
		_, err := rm.Join(userId, displayName, password)
		require.NoError(t, err)
	}
	hub := NewHub(rm)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		Serve(hub, conn)
	}))
	t.Cleanup(srv.Close)
	return rm, hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendEvent(t *testing.T, conn *websocket.Conn, event string, payload interface{}) {
	t.Helper()
	data, err := types.NewMessage(event, payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

// awaitEvent reads messages until it sees the wanted event, skipping unrelated
// broadcasts, and returns its payload.
func awaitEvent(t *testing.T, conn *websocket.Conn, event string) json.RawMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %q", event)
		msg := types.WebsocketMessage{}
		require.NoError(t, json.Unmarshal(raw, &msg))
		if msg.Event == event {
			return msg.Data
		}
	}
}

// assertNoEvent asserts that the given event does not arrive within the grace
// period. Other events may arrive and are ignored.
func assertNoEvent(t *testing.T, conn *websocket.Conn, event string) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return // timed out, nothing arrived
		}
		msg := types.WebsocketMessage{}
		require.NoError(t, json.Unmarshal(raw, &msg))
		require.NotEqual(t, event, msg.Event)
	}
}

func bind(t *testing.T, conn *websocket.Conn, userId string) {
	t.Helper()
	sendEvent(t, conn, types.EventAuth, types.AuthMessage{UserId: userId})
	// settings snapshot is the tail of the bind sequence
	awaitEvent(t, conn, types.EventRoomSettings)
	awaitEvent(t, conn, types.EventRoomImages)
}

func TestRoomNotFoundKick(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		KickConn(conn, room.ErrRoomNotFound.Message)
	}))
	t.Cleanup(srv.Close)

	conn := dial(t, srv)
	data := awaitEvent(t, conn, types.EventKick)
	kick := types.KickMessage{}
	require.NoError(t, json.Unmarshal(data, &kick))
	assert.Equal(t, "Room does not exist.", kick.Message)

	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestUnauthorizedKick(t *testing.T) {
	_, _, srv := newTestHub(t, "", "creator", nil)

	conn := dial(t, srv)
	sendEvent(t, conn, types.EventAuth, types.AuthMessage{UserId: "intruder"})

	data := awaitEvent(t, conn, types.EventKick)
	kick := types.KickMessage{}
	require.NoError(t, json.Unmarshal(data, &kick))
	assert.Equal(t, "Not authenticated.", kick.Message)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestBindAutoAssignsController(t *testing.T) {
	rm, _, srv := newTestHub(t, "", "u1", map[string]string{"u1": "Al"})

	conn := dial(t, srv)
	sendEvent(t, conn, types.EventAuth, types.AuthMessage{UserId: "u1"})

	data := awaitEvent(t, conn, types.EventPlayers)
	players := []types.Player{}
	require.NoError(t, json.Unmarshal(data, &players))
	require.Len(t, players, 1)
	assert.Equal(t, "Al", players[0].DisplayName)
	assert.True(t, players[0].Connected)

	data = awaitEvent(t, conn, types.EventSetController)
	ctrl := types.ControllerMessage{}
	require.NoError(t, json.Unmarshal(data, &ctrl))
	assert.Equal(t, "u1", ctrl.ControllerId)
	assert.Equal(t, "Al", ctrl.DisplayName)
	assert.True(t, rm.IsController("u1"))

	awaitEvent(t, conn, types.EventRoomSettings)
	awaitEvent(t, conn, types.EventRoomImages)
}

func TestLateJoinerSeesCurrentController(t *testing.T) {
	_, _, srv := newTestHub(t, "", "u1", map[string]string{"u1": "Al", "u2": "Bo"})

	first := dial(t, srv)
	bind(t, first, "u1")

	second := dial(t, srv)
	sendEvent(t, second, types.EventAuth, types.AuthMessage{UserId: "u2"})

	// the second session is told who drives, point-to-point
	data := awaitEvent(t, second, types.EventSetController)
	ctrl := types.ControllerMessage{}
	require.NoError(t, json.Unmarshal(data, &ctrl))
	assert.Equal(t, "u1", ctrl.ControllerId)

	// no second auto-assignment happened
	data = awaitEvent(t, first, types.EventPlayers)
	players := []types.Player{}
	require.NoError(t, json.Unmarshal(data, &players))
	assert.Len(t, players, 2)
}

func TestControllerHandoffAndTickRelay(t *testing.T) {
	rm, _, srv := newTestHub(t, "", "u1", map[string]string{"u1": "Al", "u2": "Bo"})

	alice := dial(t, srv)
	bind(t, alice, "u1")
	bob := dial(t, srv)
	bind(t, bob, "u2")

	// creator hands control to Bo
	sendEvent(t, alice, types.EventSetController, types.ControllerMessage{ControllerId: "u2"})
	for _, conn := range []*websocket.Conn{alice, bob} {
		data := awaitEvent(t, conn, types.EventSetController)
		ctrl := types.ControllerMessage{}
		require.NoError(t, json.Unmarshal(data, &ctrl))
		if ctrl.ControllerId == "u1" {
			// skip the auto-assignment announcement still queued
			data = awaitEvent(t, conn, types.EventSetController)
			require.NoError(t, json.Unmarshal(data, &ctrl))
		}
		assert.Equal(t, "u2", ctrl.ControllerId)
		assert.Equal(t, "Bo", ctrl.DisplayName)
	}
	assert.True(t, rm.IsController("u2"))

	// controller ticks reach everyone else, never echo back
	sendEvent(t, bob, types.EventTick, types.TickMessage{Rotation: 1.5, AngularVelocity: 0.25})
	data := awaitEvent(t, alice, types.EventTick)
	tick := types.TickMessage{}
	require.NoError(t, json.Unmarshal(data, &tick))
	assert.Equal(t, 1.5, tick.Rotation)
	assert.Equal(t, 0.25, tick.AngularVelocity)
	assertNoEvent(t, bob, types.EventTick)

	// a stale sender that lost control is silently dropped
	sendEvent(t, alice, types.EventTick, types.TickMessage{Rotation: 9})
	assertNoEvent(t, bob, types.EventTick)
}

func TestSetControllerFromUnprivilegedSenderIgnored(t *testing.T) {
	rm, _, srv := newTestHub(t, "", "u1", map[string]string{"u1": "Al", "u2": "Bo"})

	alice := dial(t, srv)
	bind(t, alice, "u1")
	bob := dial(t, srv)
	bind(t, bob, "u2")

	// Bo is neither creator nor controller
	sendEvent(t, bob, types.EventSetController, types.ControllerMessage{ControllerId: "u2"})
	assertNoEvent(t, alice, types.EventSetController)
	assert.True(t, rm.IsController("u1"))
}

func TestCreatorOnlyEvents(t *testing.T) {
	rm, _, srv := newTestHub(t, "", "u1", map[string]string{"u1": "Al", "u2": "Bo"})

	alice := dial(t, srv)
	bind(t, alice, "u1")
	bob := dial(t, srv)
	bind(t, bob, "u2")

	// non-creator settings/title/image edits are refused
	sendEvent(t, bob, types.EventRoomTitle, "hijacked")
	assertNoEvent(t, alice, types.EventRoomTitle)
	assert.Equal(t, "Pizza", rm.Name())

	sendEvent(t, alice, types.EventRoomTitle, "Dinner Wheel")
	data := awaitEvent(t, bob, types.EventRoomTitle)
	var title string
	require.NoError(t, json.Unmarshal(data, &title))
	assert.Equal(t, "Dinner Wheel", title)
	assert.Equal(t, "Dinner Wheel", rm.Name())

	newSettings := types.Settings{
		Sections: []types.Section{{Size: 2, Text: "Tacos"}, {Size: 1, Text: "Sushi"}},
		Colors:   []string{"#112233"},
	}
	sendEvent(t, alice, types.EventRoomSettings, newSettings)
	data = awaitEvent(t, bob, types.EventRoomSettings)
	got := types.Settings{}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, newSettings, got)
	assert.Equal(t, newSettings, rm.Settings())

	sendEvent(t, alice, types.EventAddImage, types.ImageMessage{Hash: "h1", Image: "data"})
	data = awaitEvent(t, bob, types.EventAddImage)
	img := types.ImageMessage{}
	require.NoError(t, json.Unmarshal(data, &img))
	assert.Equal(t, "h1", img.Hash)
	require.Len(t, rm.Images(), 1)

	sendEvent(t, alice, types.EventDeleteImage, types.ImageMessage{Hash: "h1"})
	awaitEvent(t, bob, types.EventDeleteImage)
	assert.Empty(t, rm.Images())
}

func TestDisconnectBroadcastsRoster(t *testing.T) {
	rm, _, srv := newTestHub(t, "", "u1", map[string]string{"u1": "Al", "u2": "Bo"})

	alice := dial(t, srv)
	bind(t, alice, "u1")
	bob := dial(t, srv)
	bind(t, bob, "u2")

	// drain the roster broadcast caused by Bo's bind
	awaitEvent(t, alice, types.EventPlayers)

	require.NoError(t, bob.Close())

	require.Eventually(t, func() bool {
		return rm.ConnectedCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	data := awaitEvent(t, alice, types.EventPlayers)
	players := []types.Player{}
	require.NoError(t, json.Unmarshal(data, &players))
	require.Len(t, players, 2)
	for _, p := range players {
		if p.UserId == "u2" {
			assert.False(t, p.Connected)
		}
	}
}
