package ws

import (
	"encoding/json"

	"github.com/bassj/spinner-app/globals"
	"github.com/bassj/spinner-app/metrics"
	"github.com/bassj/spinner-app/room"
	"github.com/bassj/spinner-app/types"
	"github.com/mitchellh/mapstructure"
)

// decode unwraps an event payload into its typed form.
func decode(data json.RawMessage, out interface{}) error {
	payload := make(map[string]interface{})
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	return mapstructure.WeakDecode(payload, out)
}

// handleEvent advances the session state machine by one inbound message. It
// returns false when the session is over and the connection should close.
func (c *Client) handleEvent(message *types.WebsocketMessage) bool {
	switch c.state {
	case stateAuthenticating:
		if message.Event != types.EventAuth {
			globals.AppLogger.Debug("dropping pre-auth event", "event", message.Event)
			return true
		}
		return c.handleAuth(message.Data)
	case stateBound:
		c.handleRoomEvent(message)
		return true
	}
	return false
}

// handleAuth runs the Authenticating -> Bound transition: verify the identity
// against the room, restore the seat on reconnect, then bring the new session
// in sync with the room.
func (c *Client) handleAuth(data json.RawMessage) bool {
	authMsg := types.AuthMessage{}
	if err := decode(data, &authMsg); err != nil {
		globals.AppLogger.Warn("could not decode auth message", "error", err)
		return false
	}
	rm := c.hub.Room()
	if !rm.IsCreator(authMsg.UserId) && !rm.IsMember(authMsg.UserId) {
		c.kick(room.ErrUnauthorized.Message)
		return false
	}
	if rm.IsMember(authMsg.UserId) {
		rm.Reconnect(authMsg.UserId)
	}
	c.userId = authMsg.UserId
	c.creator = rm.IsCreator(authMsg.UserId)
	c.state = stateBound
	size := c.hub.register(c)
	metrics.ActiveConnections.Inc()
	globals.AppLogger.Info("session bound", "room", rm.Slug(), "user", c.userId, "creator", c.creator)

	// every view converges on the same membership snapshot
	c.hub.Broadcast(types.EventPlayers, rm.Players(), nil)

	if ctrl, ok := rm.Controller(); ok {
		c.sendEvent(types.EventSetController, ctrl)
	} else if size == 1 {
		// first bound session of an uncontrolled room drives the wheel
		if ctrl, promoted := rm.PromoteIfUncontrolled(c.userId); promoted {
			c.hub.Broadcast(types.EventSetController, ctrl, nil)
		}
	}

	// late joiners start in sync
	c.sendEvent(types.EventRoomSettings, rm.Settings())
	c.sendEvent(types.EventRoomImages, rm.Images())
	return true
}

func (c *Client) kick(message string) {
	c.sendEvent(types.EventKick, types.KickMessage{Message: message})
}

// handleRoomEvent is the Bound steady state. Unprivileged ticks and controller
// grabs are dropped silently: a stale client that lost control is expected, not
// exceptional, and must not corrupt shared state.
func (c *Client) handleRoomEvent(message *types.WebsocketMessage) {
	rm := c.hub.Room()
	switch message.Event {
	case types.EventTick:
		if rm.IsController(c.userId) {
			c.hub.BroadcastRaw(types.EventTick, message.Data, c)
		}

	case types.EventSetController:
		ctrlMsg := types.ControllerMessage{}
		if err := decode(message.Data, &ctrlMsg); err != nil {
			globals.AppLogger.Warn("could not decode set_controller", "error", err)
			return
		}
		if !rm.CanSetController(c.userId) {
			globals.AppLogger.Debug("ignoring set_controller from unprivileged sender", "user", c.userId)
			return
		}
		if !rm.IsMember(ctrlMsg.ControllerId) && !rm.IsCreator(ctrlMsg.ControllerId) {
			globals.AppLogger.Warn("set_controller target has no seat", "target", ctrlMsg.ControllerId)
			return
		}
		c.hub.Broadcast(types.EventSetController, rm.SetController(ctrlMsg.ControllerId), nil)

	case types.EventRoomSettings:
		if !c.requireCreator(message.Event) {
			return
		}
		settings := types.Settings{}
		if err := decode(message.Data, &settings); err != nil {
			globals.AppLogger.Warn("could not decode room_settings", "error", err)
			return
		}
		rm.SetSettings(settings)
		c.hub.Broadcast(types.EventRoomSettings, settings, nil)

	case types.EventRoomTitle:
		var title string
		if !c.requireCreator(message.Event) {
			return
		}
		if err := json.Unmarshal(message.Data, &title); err != nil {
			globals.AppLogger.Warn("could not decode room_title", "error", err)
			return
		}
		rm.SetName(title)
		c.hub.Broadcast(types.EventRoomTitle, title, nil)

	case types.EventAddImage:
		if !c.requireCreator(message.Event) {
			return
		}
		img := types.ImageMessage{}
		if err := decode(message.Data, &img); err != nil {
			globals.AppLogger.Warn("could not decode add_image", "error", err)
			return
		}
		img.Hash = rm.AddImage(img.Hash, img.Image)
		c.hub.Broadcast(types.EventAddImage, img, nil)

	case types.EventDeleteImage:
		if !c.requireCreator(message.Event) {
			return
		}
		img := types.ImageMessage{}
		if err := decode(message.Data, &img); err != nil {
			globals.AppLogger.Warn("could not decode delete_image", "error", err)
			return
		}
		rm.DeleteImage(img.Hash)
		c.hub.Broadcast(types.EventDeleteImage, types.ImageMessage{Hash: img.Hash}, nil)

	default:
		globals.AppLogger.Debug("unknown event", "event", message.Event)
	}
}

func (c *Client) requireCreator(event string) bool {
	if !c.creator {
		globals.AppLogger.Warn("refusing creator-only event", "event", event, "user", c.userId)
		return false
	}
	return true
}
