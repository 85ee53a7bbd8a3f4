package realtime

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/shoplive/backend/internal/models"
)

// Stream lifecycle state machine: WAITING -> LIVE -> ENDED, driven only by
// the authenticated streamer. Failed attempts never mutate state; the
// requester gets a scoped error and the room sees nothing.

func (co *Coordinator) handleStartBroadcast(c *Client, data json.RawMessage) {
	streamID, ok := co.boundStreamID(c, data)
	if !ok {
		return
	}
	co.hub.Dispatch(streamID, func(r *Room) {
		ctx := context.Background()
		s, err := co.streams.GetByID(ctx, streamID)
		if err != nil || s == nil {
			co.lifecycleLookupFailed(c, streamID, err)
			return
		}
		if !s.IsStreamer(c.session.UserID) {
			co.logger.Warn("rejected start-broadcast",
				zap.String("stream_id", streamID),
				zap.String("user_id", c.session.UserID),
				zap.Error(ErrUnauthorized))
			c.sendError("only the streamer can start the broadcast")
			return
		}
		if s.Status != models.StreamWaiting {
			c.sendError("stream is not waiting to start")
			return
		}

		now := co.now()
		s.Status = models.StreamLive
		s.StartedAt = &now
		if err := co.streams.UpdateStatus(ctx, s); err != nil {
			co.logger.Error("persist stream start failed", zap.String("stream_id", streamID), zap.Error(err))
			c.sendError("could not start broadcast")
			return
		}

		r.broadcast(EventStreamStarted, StreamStartedPayload{
			StreamID:  s.StreamID,
			StartedAt: now,
		}, "")
		co.logger.Info("broadcast started", zap.String("stream_id", s.StreamID))
	})
}

func (co *Coordinator) handleStopBroadcast(c *Client, data json.RawMessage) {
	streamID, ok := co.boundStreamID(c, data)
	if !ok {
		return
	}
	co.hub.Dispatch(streamID, func(r *Room) {
		ctx := context.Background()
		s, err := co.streams.GetByID(ctx, streamID)
		if err != nil || s == nil {
			co.lifecycleLookupFailed(c, streamID, err)
			return
		}
		if !s.IsStreamer(c.session.UserID) {
			co.logger.Warn("rejected stop-broadcast",
				zap.String("stream_id", streamID),
				zap.String("user_id", c.session.UserID),
				zap.Error(ErrUnauthorized))
			c.sendError("only the streamer can stop the broadcast")
			return
		}
		if s.Status != models.StreamLive {
			c.sendError("stream is not live")
			return
		}

		now := co.now()
		s.Status = models.StreamEnded
		s.EndedAt = &now

		// startedAt is always set before ENDED is reachable, so duration is
		// non-negative by construction.
		var duration int64
		if s.StartedAt != nil {
			duration = int64(now.Sub(*s.StartedAt).Seconds())
			if duration < 0 {
				duration = 0
			}
		}
		s.Duration = duration
		if active := s.ActiveViewerCount(); active > 0 && duration > 0 {
			s.AverageViewTime = float64(duration) / float64(active)
		}

		if err := co.streams.UpdateStatus(ctx, s); err != nil {
			co.logger.Error("persist stream end failed", zap.String("stream_id", streamID), zap.Error(err))
			c.sendError("could not stop broadcast")
			return
		}

		r.broadcast(EventStreamEnded, StreamEndedPayload{
			StreamID: s.StreamID,
			EndedAt:  now,
			Duration: duration,
		}, "")
		co.logger.Info("broadcast ended",
			zap.String("stream_id", s.StreamID),
			zap.Int64("duration_sec", duration))
	})
}

func (co *Coordinator) lifecycleLookupFailed(c *Client, streamID string, err error) {
	if err != nil {
		co.logger.Error("stream lookup failed", zap.String("stream_id", streamID), zap.Error(err))
		c.sendError("stream lookup failed")
		return
	}
	c.sendError(ErrStreamNotFound.Error())
}
