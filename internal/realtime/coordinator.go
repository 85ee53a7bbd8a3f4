package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/shoplive/backend/internal/models"
)

// StreamStore is the read/write contract against the stream document store.
// GetByID returns (nil, nil) for an unknown stream. The Update* calls write
// back a document that was read and modified in memory; there is no
// optimistic concurrency, which is safe under a single coordinator instance.
type StreamStore interface {
	GetByID(ctx context.Context, streamID string) (*models.Stream, error)
	UpdatePresence(ctx context.Context, s *models.Stream) error
	UpdateStatus(ctx context.Context, s *models.Stream) error
}

// ChatStore appends chat messages.
type ChatStore interface {
	Insert(ctx context.Context, m *models.ChatMessage) error
}

// Coordinator wires inbound connection events to rooms, presence, the
// lifecycle state machine, the chat relay, and the signaling relay. All
// handling for one stream runs on that stream's room actor.
type Coordinator struct {
	hub     *Hub
	streams StreamStore
	chat    ChatStore
	logger  *zap.Logger
	now     func() time.Time
}

// NewCoordinator creates the event coordinator.
func NewCoordinator(hub *Hub, streams StreamStore, chat ChatStore, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		hub:     hub,
		streams: streams,
		chat:    chat,
		logger:  logger,
		now:     time.Now,
	}
}

// HandleEvent routes one inbound event. Unknown events are ignored.
func (co *Coordinator) HandleEvent(c *Client, event string, data json.RawMessage) {
	switch event {
	case EventJoinStream:
		co.handleJoin(c, data)
	case EventLeaveStream:
		co.handleLeave(c, data)
	case EventSendMessage:
		co.handleSendMessage(c, data)
	case EventWebRTCOffer:
		co.handleOffer(c, data)
	case EventWebRTCAnswer:
		co.handleAnswer(c, data)
	case EventWebRTCICE:
		co.handleICECandidate(c, data)
	case EventStartBroadcast:
		co.handleStartBroadcast(c, data)
	case EventStopBroadcast:
		co.handleStopBroadcast(c, data)
	case EventRequestOffer:
		co.handleRequestOffer(c, data)
	default:
		co.logger.Debug("ignoring unknown event",
			zap.String("event", event),
			zap.String("connection_id", c.session.ConnectionID))
	}
}

// boundStreamID checks that the event's streamId matches the connection's
// bound stream. Every post-join event must pass through here.
func (co *Coordinator) boundStreamID(c *Client, data json.RawMessage) (string, bool) {
	streamID := gjson.GetBytes(data, "streamId").String()
	if streamID == "" {
		c.sendError("streamId is required")
		return "", false
	}
	if c.session.StreamID() != streamID {
		c.sendError("not joined to this stream")
		return "", false
	}
	return streamID, true
}

func (co *Coordinator) handleJoin(c *Client, data json.RawMessage) {
	var req joinRequest
	if err := json.Unmarshal(data, &req); err != nil || req.StreamID == "" {
		c.sendError("streamId is required")
		return
	}
	if bound := c.session.StreamID(); bound != "" {
		if bound == req.StreamID {
			c.sendError("already joined this stream")
		} else {
			c.sendError("already joined another stream")
		}
		return
	}

	co.hub.DispatchCreate(req.StreamID, func(r *Room) {
		ctx := context.Background()
		s, err := co.streams.GetByID(ctx, req.StreamID)
		if err != nil {
			co.logger.Error("stream lookup failed", zap.String("stream_id", req.StreamID), zap.Error(err))
			c.sendError("stream lookup failed")
			co.hub.retireIfEmpty(r)
			return
		}
		if s == nil {
			c.sendError(ErrStreamNotFound.Error())
			co.hub.retireIfEmpty(r)
			return
		}
		r.streamerUserID = s.Streamer.UserID

		viewer := models.Viewer{
			UserID:       c.session.UserID,
			Username:     c.session.Username,
			JoinedAt:     co.now(),
			ConnectionID: c.session.ConnectionID,
			IsActive:     true,
		}
		applyJoin(s, viewer)
		if err := co.streams.UpdatePresence(ctx, s); err != nil {
			co.logger.Error("persist viewer join failed",
				zap.String("stream_id", s.StreamID),
				zap.String("user_id", c.session.UserID),
				zap.Error(err))
			c.sendError("could not join stream")
			co.hub.retireIfEmpty(r)
			return
		}

		_ = c.session.BindStream(s.StreamID)
		r.add(c)

		r.broadcast(EventViewerJoined, ViewerJoinedPayload{
			UserID:      c.session.UserID,
			Username:    c.session.Username,
			ViewerCount: s.ViewerCount,
		}, "")
		r.broadcast(EventStreamStats, StreamStatsPayload{
			ViewerCount: s.ViewerCount,
			PeakViewers: s.PeakViewers,
		}, "")
		co.systemMessage(ctx, r, s, c.session.Username+" joined the stream")

		co.logger.Info("viewer joined",
			zap.String("stream_id", s.StreamID),
			zap.String("user_id", c.session.UserID),
			zap.Int("viewer_count", s.ViewerCount))
	})
}

// handleLeave is idempotent: leaving a stream the connection is not in is a
// no-op, not an error.
func (co *Coordinator) handleLeave(c *Client, data json.RawMessage) {
	streamID := gjson.GetBytes(data, "streamId").String()
	if streamID == "" {
		c.sendError("streamId is required")
		return
	}
	if c.session.StreamID() != streamID {
		return
	}
	co.hub.Dispatch(streamID, func(r *Room) {
		co.removeFromRoom(r, c, "leave")
	})
}

// HandleDisconnect is invoked by the read pump when the connection dies. It
// converges on the same removal contract as an explicit leave, so no active
// viewer can outlive its connection.
func (co *Coordinator) HandleDisconnect(c *Client) {
	streamID := c.session.StreamID()
	if streamID == "" {
		return
	}
	co.hub.Dispatch(streamID, func(r *Room) {
		co.removeFromRoom(r, c, "disconnect")
	})
}

// removeFromRoom is the single path out of a room, shared by leave and
// disconnect. In-memory removal is unconditional; a failed presence write is
// logged and never blocks cleanup. Runs inside a room command.
func (co *Coordinator) removeFromRoom(r *Room, c *Client, reason string) {
	if !r.remove(c.session.ConnectionID) {
		return // already removed: leave is idempotent
	}
	c.session.UnbindStream()

	ctx := context.Background()
	s, err := co.streams.GetByID(ctx, r.StreamID)
	switch {
	case err != nil:
		co.logger.Error("stream lookup on leave failed",
			zap.String("stream_id", r.StreamID), zap.Error(err))
	case s == nil:
		co.logger.Warn("stream document missing on leave", zap.String("stream_id", r.StreamID))
	default:
		if applyLeave(s, c.session.UserID) {
			if err := co.streams.UpdatePresence(ctx, s); err != nil {
				co.logger.Error("persist viewer leave failed",
					zap.String("stream_id", s.StreamID),
					zap.String("user_id", c.session.UserID),
					zap.Error(err))
			}
			r.broadcast(EventViewerLeft, ViewerLeftPayload{
				UserID:      c.session.UserID,
				ViewerCount: s.ViewerCount,
			}, "")
			r.broadcast(EventStreamStats, StreamStatsPayload{
				ViewerCount: s.ViewerCount,
				PeakViewers: s.PeakViewers,
			}, "")
			co.systemMessage(ctx, r, s, c.session.Username+" left the stream")
		}
	}

	co.logger.Info("viewer removed",
		zap.String("stream_id", r.StreamID),
		zap.String("user_id", c.session.UserID),
		zap.String("reason", reason))
	co.hub.retireIfEmpty(r)
}
