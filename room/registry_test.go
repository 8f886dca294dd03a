package room

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRoomWithoutPassword(t *testing.T) {
	reg := newTestRegistry()
	rm, err := reg.Create("test_room", "", "test_user_id")
	require.NoError(t, err)

	assert.Equal(t, "test_room", rm.Name())
	assert.Equal(t, "test_user_id", rm.CreatorId())
	assert.False(t, rm.HasPassword())
	assert.NotEmpty(t, rm.Slug())
	assert.NotZero(t, rm.Id())
}

func TestCreateRoomWithPassword(t *testing.T) {
	reg := newTestRegistry()
	rm, err := reg.Create("test_room", "test_password", "test_user_id")
	require.NoError(t, err)

	assert.True(t, rm.HasPassword())
	authed, err := rm.Join("other_user", "Someone", "test_password")
	require.NoError(t, err)
	assert.True(t, authed)
}

func TestRetrieveCreatedRoom(t *testing.T) {
	reg := newTestRegistry()
	rm, err := reg.Create("test_room", "", "test_user_id")
	require.NoError(t, err)

	got, ok := reg.GetBySlug(rm.Slug())
	require.True(t, ok)
	assert.Same(t, rm, got)

	byId, ok := reg.GetById(rm.Id())
	require.True(t, ok)
	assert.Same(t, rm, byId)

	_, ok = reg.GetBySlug("no-such-room")
	assert.False(t, ok)
}

func TestRoomIdsNeverReused(t *testing.T) {
	reg := newTestRegistry()
	a, err := reg.Create("a", "", "u")
	require.NoError(t, err)
	b, err := reg.Create("b", "", "u")
	require.NoError(t, err)
	assert.NotEqual(t, a.Id(), b.Id())
	assert.NotEqual(t, a.Slug(), b.Slug())
}

func TestSweepRemovesIdleRooms(t *testing.T) {
	reg := newTestRegistry()
	idle, err := reg.Create("idle", "", "u1")
	require.NoError(t, err)
	busy, err := reg.Create("busy", "", "u2")
	require.NoError(t, err)
	_, err = busy.Join("u2", "Al", "")
	require.NoError(t, err)

	expired := make([]*Room, 0)
	time.Sleep(10 * time.Millisecond)
	reg.sweep(time.Nanosecond, func(rm *Room) { expired = append(expired, rm) })

	require.Len(t, expired, 1)
	assert.Same(t, idle, expired[0])
	_, ok := reg.GetBySlug(idle.Slug())
	assert.False(t, ok)
	_, ok = reg.GetBySlug(busy.Slug())
	assert.True(t, ok)
}
