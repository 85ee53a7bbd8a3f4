package realtime

import (
	"fmt"
	"time"
)

// Session binds a connection to a user identity for the connection's
// lifetime. Identity is fixed at the authenticated handshake and never read
// from event payloads again. A session holds at most one stream at a time.
type Session struct {
	ConnectionID string
	UserID       string
	Username     string
	Role         string
	ConnectedAt  time.Time

	streamID string
}

// NewSession creates a session for a freshly upgraded connection.
func NewSession(connectionID, userID, username, role string) *Session {
	return &Session{
		ConnectionID: connectionID,
		UserID:       userID,
		Username:     username,
		Role:         role,
		ConnectedAt:  time.Now(),
	}
}

// BindStream attaches the session to a stream. A session already bound to a
// different stream must leave first.
func (s *Session) BindStream(streamID string) error {
	if s.streamID != "" && s.streamID != streamID {
		return fmt.Errorf("%w: already joined stream %s", ErrValidation, s.streamID)
	}
	s.streamID = streamID
	return nil
}

// UnbindStream clears the stream binding on leave or disconnect.
func (s *Session) UnbindStream() {
	s.streamID = ""
}

// StreamID returns the bound stream id, or "" when not joined.
func (s *Session) StreamID() string {
	return s.streamID
}
