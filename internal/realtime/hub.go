package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// BroadcastPublisher publishes room events for other coordinator instances.
type BroadcastPublisher interface {
	PublishStreamEvent(streamID, event string, payload []byte) error
}

// BroadcastSubscriber subscribes to a stream's channel and invokes handler
// for events published by other instances.
type BroadcastSubscriber interface {
	SubscribeStream(streamID string, handler func(event string, payload []byte)) (cancel func(), err error)
}

// Hub is the room registry: it maps stream ids to live rooms and owns room
// lifecycle. Rooms are created on the first join and retired when the last
// member leaves. With a backplane configured, each live room is also
// subscribed to its cross-instance channel.
type Hub struct {
	rooms map[string]*Room
	mu    sync.RWMutex

	pub    BroadcastPublisher
	sub    BroadcastSubscriber
	logger *zap.Logger
}

// NewHub creates the room registry. pub/sub may be nil for a
// single-instance deployment.
func NewHub(logger *zap.Logger, pub BroadcastPublisher, sub BroadcastSubscriber) *Hub {
	return &Hub{
		rooms:  make(map[string]*Room),
		pub:    pub,
		sub:    sub,
		logger: logger,
	}
}

// Dispatch runs fn on the room's actor goroutine and waits for it. Returns
// false when no room exists for streamID.
func (h *Hub) Dispatch(streamID string, fn func(*Room)) bool {
	for {
		h.mu.RLock()
		r := h.rooms[streamID]
		h.mu.RUnlock()
		if r == nil {
			return false
		}
		if r.Do(func() { fn(r) }) {
			return true
		}
		// room retired between lookup and Do; resolve again
	}
}

// DispatchCreate is Dispatch with get-or-create semantics, used by join.
func (h *Hub) DispatchCreate(streamID string, fn func(*Room)) {
	for {
		h.mu.Lock()
		r := h.rooms[streamID]
		if r == nil {
			r = newRoom(streamID, h.logger)
			if h.pub != nil {
				r.publish = func(event string, payload []byte) {
					if err := h.pub.PublishStreamEvent(streamID, event, payload); err != nil {
						h.logger.Warn("backplane publish failed",
							zap.String("stream_id", streamID), zap.String("event", event), zap.Error(err))
					}
				}
			}
			if h.sub != nil {
				cancel, err := h.sub.SubscribeStream(streamID, func(event string, payload []byte) {
					h.Dispatch(streamID, func(room *Room) {
						room.deliverLocal(event, json.RawMessage(payload), "")
					})
				})
				if err != nil {
					h.logger.Warn("backplane subscribe failed", zap.String("stream_id", streamID), zap.Error(err))
				} else {
					r.cancelSub = cancel
				}
			}
			h.rooms[streamID] = r
		}
		h.mu.Unlock()
		if r.Do(func() { fn(r) }) {
			return
		}
	}
}

// RoomSize reports the current member count for a stream, 0 if no room.
func (h *Hub) RoomSize(streamID string) int {
	n := 0
	h.Dispatch(streamID, func(r *Room) { n = r.size() })
	return n
}

// retireIfEmpty removes and stops the room when its last member is gone.
// Must be called from inside one of the room's own commands.
func (h *Hub) retireIfEmpty(r *Room) {
	if len(r.members) != 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[r.StreamID] != r {
		return
	}
	delete(h.rooms, r.StreamID)
	if r.cancelSub != nil {
		r.cancelSub()
	}
	close(r.quit)
	h.logger.Debug("room retired", zap.String("stream_id", r.StreamID))
}
