package ws

import (
	"encoding/json"
	"time"

	"github.com/bassj/spinner-app/globals"
	"github.com/bassj/spinner-app/metrics"
	"github.com/bassj/spinner-app/types"
	"github.com/gorilla/websocket"
)

const (
	// images travel inline as base64, so the read limit is generous
	maxMessageSize = 1 << 20
	pongWait       = 2 * time.Minute
	pingPeriod     = time.Minute
	writeWait      = 10 * time.Second

	sendChannelSize = 256
)

type sessionState int

const (
	// stateAuthenticating covers a fresh connection whose room exists but whose
	// identity is still unknown. The unbound case (room does not exist) never
	// produces a Client, the handler kicks the raw connection instead.
	stateAuthenticating sessionState = iota
	stateBound
	stateClosed
)

// Client is one transport connection bound (or binding) to a room. The state
// field is only touched from the client's own read goroutine.
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan []byte

	state   sessionState
	userId  string
	creator bool
}

func newClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:   hub,
		conn:  conn,
		send:  make(chan []byte, sendChannelSize),
		state: stateAuthenticating,
	}
}

// Serve runs a connection's session until the connection goes away. It blocks.
func Serve(hub *Hub, conn *websocket.Conn) {
	c := newClient(hub, conn)
	go c.writeLoop()
	c.readLoop()
}

// KickConn refuses a connection that never reaches a session: the room address
// did not resolve. The kick is written directly, there is no client to speak of.
func KickConn(conn *websocket.Conn, message string) {
	data, err := types.NewMessage(types.EventKick, types.KickMessage{Message: message})
	if err == nil {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = conn.WriteMessage(websocket.TextMessage, data)
	}
	conn.Close()
}

// readLoop pumps messages from the websocket connection into the protocol
// state machine. The application ensures that there is at most one reader on a
// connection by executing all reads from this goroutine.
func (c *Client) readLoop() {
	defer c.teardown()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { _ = c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				globals.AppLogger.Warn("ws closed unexpected", "error", err)
			}
			return
		}

		message := &types.WebsocketMessage{}
		if err := json.Unmarshal(raw, message); err != nil {
			globals.AppLogger.Warn("could not unmarshal ws message", "error", err)
			return
		}
		if !c.handleEvent(message) {
			return
		}
	}
}

// teardown runs the disconnecting transition: mark the seat disconnected,
// rebroadcast the roster and make the session terminal.
func (c *Client) teardown() {
	switch c.state {
	case stateBound:
		rm := c.hub.Room()
		rm.Disconnect(c.userId)
		c.hub.unregister(c)
		metrics.ActiveConnections.Dec()
		c.hub.Broadcast(types.EventPlayers, rm.Players(), nil)
		globals.AppLogger.Info("session closed", "room", rm.Slug(), "user", c.userId)
	case stateAuthenticating:
		close(c.send)
	}
	c.state = stateClosed
	c.conn.Close()
}

// writeLoop pumps messages from the send channel to the websocket connection.
// A goroutine running writeLoop is started for each connection. The application
// ensures that there is at most one writer to a connection by executing all
// writes from this goroutine.
func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// the hub closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// sendEvent queues a point-to-point message for this session only. Only called
// from the client's own read goroutine while the send channel is open.
func (c *Client) sendEvent(event string, payload interface{}) {
	data, err := types.NewMessage(event, payload)
	if err != nil {
		globals.AppLogger.Error("could not marshal message", "event", event, "error", err)
		return
	}
	select {
	case c.send <- data:
	default:
		globals.AppLogger.Warn("send channel full, dropping event", "event", event, "user", c.userId)
	}
}
