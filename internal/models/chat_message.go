package models

import (
	"encoding/json"
	"time"
)

// MessageType classifies chat messages.
type MessageType string

const (
	MessageText   MessageType = "TEXT"
	MessageSystem MessageType = "SYSTEM"
	MessageEmoji  MessageType = "EMOJI"
	MessageGift   MessageType = "GIFT"
)

// MaxMessageLength is the chat text limit in characters.
const MaxMessageLength = 500

// SystemUserID is the sender of server-synthesized messages (joins, leaves).
const SystemUserID = "system"

// ChatMessage is one chat entry for a stream. Immutable once written; the
// moderation path flips IsDeleted elsewhere.
type ChatMessage struct {
	ID        string          `json:"id"`
	StreamID  string          `json:"streamId"`
	UserID    string          `json:"userId"`
	Username  string          `json:"username"`
	Role      string          `json:"role,omitempty"`
	Text      string          `json:"text"`
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	IsDeleted bool            `json:"isDeleted"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}
