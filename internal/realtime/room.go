package realtime

import (
	"encoding/json"

	"go.uber.org/zap"
)

// Room is the multicast group of all connections joined to one stream. It is
// an actor: a single goroutine consumes the command channel, so every
// mutation of room membership and of the stream's presence/lifecycle fields
// runs serialized, even when events arrive concurrently from many
// connections.
type Room struct {
	StreamID string

	// streamerUserID is cached from the stream document on the first
	// successful join, so relay paths never hit the store.
	streamerUserID string

	members map[string]*Client // connectionID -> client
	cmds    chan func()
	quit    chan struct{}

	publish   func(event string, payload []byte) // nil without a backplane
	cancelSub func()

	logger *zap.Logger
}

func newRoom(streamID string, logger *zap.Logger) *Room {
	r := &Room{
		StreamID: streamID,
		members:  make(map[string]*Client),
		cmds:     make(chan func()),
		quit:     make(chan struct{}),
		logger:   logger,
	}
	go r.run()
	return r
}

func (r *Room) run() {
	for {
		select {
		case fn := <-r.cmds:
			fn()
		case <-r.quit:
			// drain commands that won the race against retirement
			for {
				select {
				case fn := <-r.cmds:
					fn()
				default:
					return
				}
			}
		}
	}
}

// Do runs fn on the room goroutine and waits for completion. Returns false
// if the room retired before fn could be scheduled; the caller should
// re-resolve the room through the hub.
func (r *Room) Do(fn func()) bool {
	done := make(chan struct{})
	select {
	case r.cmds <- func() { fn(); close(done) }:
		<-done
		return true
	case <-r.quit:
		return false
	}
}

// The methods below must only be called from inside a room command.

func (r *Room) add(c *Client) {
	r.members[c.session.ConnectionID] = c
}

// remove is idempotent: removing an absent connection is a no-op.
func (r *Room) remove(connectionID string) bool {
	if _, ok := r.members[connectionID]; !ok {
		return false
	}
	delete(r.members, connectionID)
	return true
}

func (r *Room) size() int {
	return len(r.members)
}

// memberByUser finds the room member whose bound session matches userID.
func (r *Room) memberByUser(userID string) *Client {
	for _, c := range r.members {
		if c.session.UserID == userID {
			return c
		}
	}
	return nil
}

// broadcast delivers to every member except the optional excluded
// connection, and forwards to the backplane when one is configured.
func (r *Room) broadcast(event string, payload interface{}, exceptConnID string) {
	data, err := json.Marshal(payload)
	if err != nil {
		r.logger.Error("marshal broadcast payload", zap.String("event", event), zap.Error(err))
		return
	}
	r.deliverLocal(event, data, exceptConnID)
	if r.publish != nil {
		r.publish(event, data)
	}
}

// deliverLocal fans out to local members only (no backplane publish). Also
// the entry point for events arriving from other instances.
func (r *Room) deliverLocal(event string, data []byte, exceptConnID string) {
	msg := WSMessage{Event: event, Data: data}
	for id, c := range r.members {
		if id == exceptConnID {
			continue
		}
		c.deliver(msg)
	}
}

// unicast delivers to exactly the member bound to userID. Returns false when
// no such member is connected; the message is dropped, never queued.
func (r *Room) unicast(userID, event string, payload interface{}) bool {
	c := r.memberByUser(userID)
	if c == nil {
		return false
	}
	data, err := json.Marshal(payload)
	if err != nil {
		r.logger.Error("marshal unicast payload", zap.String("event", event), zap.Error(err))
		return false
	}
	c.deliver(WSMessage{Event: event, Data: data})
	return true
}
