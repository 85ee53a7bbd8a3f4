package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.uber.org/zap"
)

func TestHubDispatchMissingRoom(t *testing.T) {
	h := NewHub(zap.NewNop(), nil, nil)
	ran := false
	ok := h.Dispatch("nope", func(*Room) { ran = true })
	assert.False(t, ok)
	assert.False(t, ran)
}

func TestHubCreateAndRetire(t *testing.T) {
	h := NewHub(zap.NewNop(), nil, nil)

	var room *Room
	h.DispatchCreate("s1", func(r *Room) { room = r })
	require.NotNil(t, room)
	assert.Len(t, h.rooms, 1)

	// a second dispatch reuses the same actor
	h.DispatchCreate("s1", func(r *Room) { assert.Same(t, room, r) })

	h.Dispatch("s1", func(r *Room) { h.retireIfEmpty(r) })
	assert.Len(t, h.rooms, 0)

	// retired room: Do refuses, Dispatch reports no room
	assert.False(t, room.Do(func() {}))
	assert.False(t, h.Dispatch("s1", func(*Room) {}))
}

func TestRoomSize(t *testing.T) {
	env := newTestEnv(t)
	env.waitingStream("s1", "u-streamer")
	assert.Equal(t, 0, env.hub.RoomSize("s1"))

	v1 := env.newClient("u1", "alice", "viewer")
	v2 := env.newClient("u2", "bob", "viewer")
	env.join(t, v1, "s1")
	env.join(t, v2, "s1")
	assert.Equal(t, 2, env.hub.RoomSize("s1"))

	env.coord.HandleDisconnect(v1)
	assert.Equal(t, 1, env.hub.RoomSize("s1"))
}

func TestRoomUnicastByBoundIdentity(t *testing.T) {
	env := newTestEnv(t)
	env.waitingStream("s1", "u-streamer")

	v1 := env.newClient("u1", "alice", "viewer")
	v2 := env.newClient("u2", "bob", "viewer")
	env.join(t, v1, "s1")
	env.join(t, v2, "s1")
	drain(v1)
	drain(v2)

	env.hub.Dispatch("s1", func(r *Room) {
		assert.True(t, r.unicast("u2", "ping", map[string]string{"x": "y"}))
		assert.False(t, r.unicast("u3", "ping", nil), "missing member drops the message")
	})

	assert.Empty(t, drain(v1))
	msgs := drain(v2)
	require.Len(t, msgs, 1)
	assert.Equal(t, "ping", msgs[0].Event)
}
