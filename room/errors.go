package room

// Kind is the wire discriminant of a room error. It is what HTTP clients see in
// the "type" field of an error response.
type Kind string

const (
	KindInvalidPassword Kind = "invalid_password"
	KindNameTaken       Kind = "name_taken"
	KindRoomNotFound    Kind = "room_not_found"
	KindUnauthorized    Kind = "unauthorized"
)

// Error is a client-correctable room error carrying its discriminant.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrInvalidPassword = &Error{Kind: KindInvalidPassword, Message: "Invalid Password"}
	ErrNameTaken       = &Error{Kind: KindNameTaken, Message: "Display Name taken."}
	ErrRoomNotFound    = &Error{Kind: KindRoomNotFound, Message: "Room does not exist."}
	ErrUnauthorized    = &Error{Kind: KindUnauthorized, Message: "Not authenticated."}
)
