package types

// Player is one entry of the roster that is broadcast to all members of a room.
// Disconnected members stay in the roster, they are only marked as such.
type Player struct {
	UserId      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Controlling bool   `json:"controlling"`
	Connected   bool   `json:"connected"`
}

// AuthMessage is the first message a client has to send on a fresh connection.
type AuthMessage struct {
	UserId string `json:"user_id" mapstructure:"user_id"`
}

// KickMessage is sent right before the server closes the connection.
type KickMessage struct {
	Message string `json:"message"`
}

// ControllerMessage announces who currently drives the wheel.
type ControllerMessage struct {
	ControllerId string `json:"controller_id" mapstructure:"controller_id"`
	DisplayName  string `json:"display_name,omitempty" mapstructure:"display_name"`
}

// TickMessage is the physics state of the wheel. It is relayed verbatim, the
// fields are only spelled out here for documentation and tests.
type TickMessage struct {
	Rotation        float64 `json:"rotation" mapstructure:"rotation"`
	AngularVelocity float64 `json:"angularVelocity" mapstructure:"angularVelocity"`
}

// ImageMessage adds or removes an entry of the room's image cache.
type ImageMessage struct {
	Hash  string `json:"hash" mapstructure:"hash"`
	Image string `json:"image,omitempty" mapstructure:"image"`
}
