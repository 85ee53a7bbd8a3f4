package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/shoplive/backend/internal/models"
)

// Chat relay: validate, persist, then fan out. Persistence failure aborts
// the broadcast (fail-closed), so a message is never seen by the room unless
// it is durable.

func (co *Coordinator) handleSendMessage(c *Client, data json.RawMessage) {
	var req sendMessageRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.sendError("malformed message payload")
		return
	}
	streamID, ok := co.boundStreamID(c, data)
	if !ok {
		return
	}

	// Size and type checks happen before any store call.
	if strings.TrimSpace(req.Message) == "" {
		c.sendError("message text is required")
		return
	}
	if utf8.RuneCountInString(req.Message) > models.MaxMessageLength {
		c.sendError("message exceeds 500 characters")
		return
	}
	msgType := models.MessageText
	switch models.MessageType(req.MessageType) {
	case "", models.MessageText:
	case models.MessageEmoji:
		msgType = models.MessageEmoji
	case models.MessageGift:
		msgType = models.MessageGift
	default:
		// SYSTEM is server-synthesized only; anything else is malformed.
		c.sendError("invalid message type")
		return
	}

	co.hub.Dispatch(streamID, func(r *Room) {
		ctx := context.Background()
		s, err := co.streams.GetByID(ctx, streamID)
		if err != nil {
			co.logger.Error("stream lookup failed", zap.String("stream_id", streamID), zap.Error(err))
			c.sendError("stream lookup failed")
			return
		}
		if s == nil {
			c.sendError(ErrStreamNotFound.Error())
			return
		}
		if !s.ChatEnabled {
			c.sendError(ErrChatDisabled.Error())
			return
		}

		m := &models.ChatMessage{
			ID:        ulid.Make().String(),
			StreamID:  s.StreamID,
			UserID:    c.session.UserID,
			Username:  c.session.Username,
			Role:      c.session.Role,
			Text:      req.Message,
			Type:      msgType,
			Timestamp: co.now(),
		}
		if err := co.chat.Insert(ctx, m); err != nil {
			co.logger.Error("persist chat message failed",
				zap.String("stream_id", s.StreamID),
				zap.String("user_id", c.session.UserID),
				zap.Error(err))
			c.sendError("message could not be delivered")
			return
		}
		// Sender is a room member, so it receives its own message too.
		r.broadcast(EventChatMessage, m, "")
	})
}

// systemMessage persists and broadcasts a server-synthesized announcement
// (viewer joined/left) through the same persist-then-broadcast path as user
// chat. Runs inside a room command.
func (co *Coordinator) systemMessage(ctx context.Context, r *Room, s *models.Stream, text string) {
	m := &models.ChatMessage{
		ID:        ulid.Make().String(),
		StreamID:  s.StreamID,
		UserID:    models.SystemUserID,
		Username:  "System",
		Text:      text,
		Type:      models.MessageSystem,
		Timestamp: co.now(),
	}
	if err := co.chat.Insert(ctx, m); err != nil {
		co.logger.Warn("persist system message failed",
			zap.String("stream_id", s.StreamID), zap.Error(err))
		return
	}
	r.broadcast(EventChatMessage, m, "")
}
