package room

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bassj/spinner-app/types"
	lru "github.com/hashicorp/golang-lru"
	"github.com/mitchellh/hashstructure/v2"
)

type member struct {
	displayName string
	connected   bool
}

// Room is one shared wheel session. Its members, controller pointer, settings
// and image cache are shared by every connection bound to it, so every mutation
// happens under the room mutex. A member's seat is permanent: seats are only
// ever marked disconnected, never removed.
type Room struct {
	id   int64
	slug string

	mu           sync.RWMutex
	name         string
	passwordHash string
	creatorId    string
	controllerId string
	members      map[string]*member
	displayNames map[string]struct{}
	settings     types.Settings
	images       *lru.ARCCache
	lastActive   time.Time
}

func newRoom(id int64, slug, name, passwordHash, creatorId string, imageCacheSize int) (*Room, error) {
	images, err := lru.NewARC(imageCacheSize)
	if err != nil {
		return nil, fmt.Errorf("could not create image cache: %w", err)
	}
	return &Room{
		id:           id,
		slug:         slug,
		name:         name,
		passwordHash: passwordHash,
		creatorId:    creatorId,
		members:      make(map[string]*member),
		displayNames: make(map[string]struct{}),
		settings:     types.DefaultSettings(),
		images:       images,
		lastActive:   time.Now(),
	}, nil
}

func (r *Room) Id() int64         { return r.id }
func (r *Room) Slug() string      { return r.slug }
func (r *Room) CreatorId() string { return r.creatorId }

func (r *Room) Name() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.name
}

func (r *Room) HasPassword() bool {
	return r.passwordHash != ""
}

func (r *Room) IsCreator(userId string) bool {
	return userId == r.creatorId
}

func (r *Room) IsMember(userId string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[userId]
	return ok
}

// Join claims a seat in the room. It is strictly a first-time claim: a display
// name stays claimed for the life of the room, reconnecting members go through
// Reconnect instead. The password check runs before any room state is written.
func (r *Room) Join(userId, displayName, password string) (bool, error) {
	if !Authorize(r.creatorId, r.passwordHash, userId, password) {
		return false, ErrInvalidPassword
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.displayNames[displayName]; ok {
		return false, ErrNameTaken
	}
	r.members[userId] = &member{displayName: displayName, connected: true}
	r.displayNames[displayName] = struct{}{}
	r.lastActive = time.Now()
	return true, nil
}

// Disconnect marks a member's seat as disconnected. Idempotent, unknown users
// are ignored.
func (r *Room) Disconnect(userId string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.members[userId]; ok {
		m.connected = false
	}
	r.lastActive = time.Now()
}

// Reconnect marks an existing member's seat as connected again. Callers must
// have verified membership first, reconnecting an unknown user is a programming
// error.
func (r *Room) Reconnect(userId string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[userId]
	if !ok {
		panic(fmt.Sprintf("room: reconnect of unknown user %q in room %s", userId, r.slug))
	}
	m.connected = true
	r.lastActive = time.Now()
}

// Players is the roster projection that is broadcast to clients. Disconnected
// members remain visible.
func (r *Room) Players() []types.Player {
	r.mu.RLock()
	defer r.mu.RUnlock()
	players := make([]types.Player, 0, len(r.members))
	for userId, m := range r.members {
		players = append(players, types.Player{
			UserId:      userId,
			DisplayName: m.displayName,
			Controlling: userId == r.controllerId,
			Connected:   m.connected,
		})
	}
	sort.Slice(players, func(i, j int) bool { return players[i].DisplayName < players[j].DisplayName })
	return players
}

// Controller returns the current controller announcement, or false if no
// controller has been assigned yet.
func (r *Room) Controller() (types.ControllerMessage, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.controllerId == "" {
		return types.ControllerMessage{}, false
	}
	return r.controllerMessageLocked(), true
}

// CanSetController reports whether userId may hand control to someone else:
// only the creator and the current controller may.
func (r *Room) CanSetController(userId string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return userId == r.creatorId || (r.controllerId != "" && userId == r.controllerId)
}

// SetController makes targetId the controller and returns the announcement to
// broadcast.
func (r *Room) SetController(targetId string) types.ControllerMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.controllerId = targetId
	r.lastActive = time.Now()
	return r.controllerMessageLocked()
}

// PromoteIfUncontrolled assigns userId as controller only if the room has none
// yet. Used for the first bound session of a room.
func (r *Room) PromoteIfUncontrolled(userId string) (types.ControllerMessage, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.controllerId != "" {
		return types.ControllerMessage{}, false
	}
	r.controllerId = userId
	r.lastActive = time.Now()
	return r.controllerMessageLocked(), true
}

// IsController reports whether userId currently drives the wheel.
func (r *Room) IsController(userId string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.controllerId != "" && userId == r.controllerId
}

func (r *Room) controllerMessageLocked() types.ControllerMessage {
	msg := types.ControllerMessage{ControllerId: r.controllerId}
	if m, ok := r.members[r.controllerId]; ok {
		msg.DisplayName = m.displayName
	}
	return msg
}

func (r *Room) Settings() types.Settings {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.settings
}

func (r *Room) SetSettings(settings types.Settings) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings = settings
	r.lastActive = time.Now()
}

func (r *Room) SetName(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.name = name
	r.lastActive = time.Now()
}

// AddImage puts an encoded image into the room's asset cache and returns the
// cache key. When the client does not supply a content hash one is derived
// from the payload.
func (r *Room) AddImage(hash, image string) string {
	if hash == "" {
		h, _ := hashstructure.Hash(image, hashstructure.FormatV2, nil)
		hash = fmt.Sprintf("%016x", h)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.images.Add(hash, image)
	r.lastActive = time.Now()
	return hash
}

func (r *Room) DeleteImage(hash string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.images.Remove(hash)
	r.lastActive = time.Now()
}

// Images returns the current image cache snapshot sent to freshly bound
// sessions.
func (r *Room) Images() []types.ImageMessage {
	r.mu.RLock()
	defer r.mu.RUnlock()
	images := make([]types.ImageMessage, 0, r.images.Len())
	for _, key := range r.images.Keys() {
		if image, ok := r.images.Get(key); ok {
			images = append(images, types.ImageMessage{Hash: key.(string), Image: image.(string)})
		}
	}
	return images
}

// ConnectedCount returns the number of seats currently marked connected.
func (r *Room) ConnectedCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, m := range r.members {
		if m.connected {
			n++
		}
	}
	return n
}

// LastActive is the time of the last mutation, used by the expiry sweep.
func (r *Room) LastActive() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastActive
}
