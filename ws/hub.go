package ws

import (
	"sync"

	"github.com/bassj/spinner-app/globals"
	"github.com/bassj/spinner-app/metrics"
	"github.com/bassj/spinner-app/room"
	"github.com/bassj/spinner-app/types"
)

// Hub is the fan-out primitive for one room: it tracks every bound session and
// delivers events to all of them, optionally excluding the sender. Delivery
// order matches emission order for a single room; there is no guarantee across
// rooms.
type Hub struct {
	room *room.Room

	// bound sessions
	clients map[*Client]struct{}

	// mutex for manipulating the clients
	sync.RWMutex
}

func NewHub(rm *room.Room) *Hub {
	return &Hub{
		room:    rm,
		clients: make(map[*Client]struct{}),
	}
}

func (h *Hub) Room() *room.Room {
	return h.room
}

// NoClients returns the number of sessions currently bound.
func (h *Hub) NoClients() int {
	h.RLock()
	defer h.RUnlock()
	return len(h.clients)
}

// register binds a client and returns the room size right after binding. The
// count taken under the lock is what the controller auto-assignment rule keys
// on, so two sessions binding at once cannot both observe a size of one.
func (h *Hub) register(c *Client) int {
	h.Lock()
	defer h.Unlock()
	h.clients[c] = struct{}{}
	return len(h.clients)
}

// unregister removes a client and closes its send channel. Closing under the
// lock guarantees no broadcast is concurrently writing to the channel.
func (h *Hub) unregister(c *Client) {
	h.Lock()
	defer h.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Broadcast delivers payload to every bound session except exclude (which may
// be nil).
func (h *Hub) Broadcast(event string, payload interface{}, exclude *Client) {
	data, err := types.NewMessage(event, payload)
	if err != nil {
		globals.AppLogger.Error("could not marshal broadcast", "event", event, "error", err)
		return
	}
	h.send(data, event, exclude)
}

// BroadcastRaw is the low-latency relay path: the payload is forwarded
// verbatim, it is never decoded or buffered by business logic.
func (h *Hub) BroadcastRaw(event string, data []byte, exclude *Client) {
	msg, err := types.NewRawMessage(event, data)
	if err != nil {
		globals.AppLogger.Error("could not frame relay", "event", event, "error", err)
		return
	}
	h.send(msg, event, exclude)
}

func (h *Hub) send(data []byte, event string, exclude *Client) {
	h.RLock()
	defer h.RUnlock()
	for c := range h.clients {
		if c == exclude {
			continue
		}
		select {
		case c.send <- data:
		default:
			// a slow client misses this frame, the next tick self-corrects
			globals.AppLogger.Warn("send channel full, dropping event", "event", event, "room", h.room.Slug(), "user", c.userId)
		}
	}
	metrics.EventsBroadcast.Inc()
}

// Close kicks every bound session, used when a room is expired.
func (h *Hub) Close(message string) {
	data, err := types.NewMessage(types.EventKick, types.KickMessage{Message: message})
	if err != nil {
		return
	}
	h.Lock()
	defer h.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
		}
		c.conn.Close()
	}
}
