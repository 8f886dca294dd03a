package types

import "encoding/json"

// Names of the events transferred via the websocket connection, both directions.
const (
	EventAuth          = "auth"
	EventKick          = "kick"
	EventPlayers       = "players"
	EventSetController = "set_controller"
	EventTick          = "tick"
	EventRoomSettings  = "room_settings"
	EventRoomTitle     = "room_title"
	EventAddImage      = "add_image"
	EventDeleteImage   = "delete_image"
	EventRoomImages    = "room_images"
)

// JSON-serialized WebsocketMessage is what is actually sent via the Websocket connection
type WebsocketMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// NewMessage wraps a payload in the wire envelope and serializes it.
func NewMessage(event string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(WebsocketMessage{Event: event, Data: data})
}

// NewRawMessage wraps an already-serialized payload in the wire envelope. Used on the
// tick relay path so the controller's physics state passes through verbatim.
func NewRawMessage(event string, data json.RawMessage) ([]byte, error) {
	return json.Marshal(WebsocketMessage{Event: event, Data: data})
}
