package realtime

import (
	"encoding/json"
	"time"
)

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Inbound event names.
const (
	EventJoinStream     = "join-stream"
	EventLeaveStream    = "leave-stream"
	EventSendMessage    = "send-message"
	EventStartBroadcast = "start-broadcast"
	EventStopBroadcast  = "stop-broadcast"
	EventRequestOffer   = "request-offer"
)

// Outbound event names. The webrtc-* names are shared with the inbound side:
// the relay forwards them under the same event.
const (
	EventViewerJoined  = "viewer-joined"
	EventViewerLeft    = "viewer-left"
	EventStreamStarted = "stream-started"
	EventStreamEnded   = "stream-ended"
	EventChatMessage   = "chat-message"
	EventStreamStats   = "stream-stats-updated"
	EventWebRTCOffer   = "webrtc-offer"
	EventWebRTCAnswer  = "webrtc-answer"
	EventWebRTCICE     = "webrtc-ice-candidate"
	EventError         = "error"
)

// ViewerJoinedPayload announces a new viewer to the room.
type ViewerJoinedPayload struct {
	UserID      string `json:"userId"`
	Username    string `json:"username"`
	ViewerCount int    `json:"viewerCount"`
}

// ViewerLeftPayload announces a departed viewer to the room.
type ViewerLeftPayload struct {
	UserID      string `json:"userId"`
	ViewerCount int    `json:"viewerCount"`
}

// StreamStartedPayload announces the WAITING -> LIVE transition.
type StreamStartedPayload struct {
	StreamID  string    `json:"streamId"`
	StartedAt time.Time `json:"startedAt"`
}

// StreamEndedPayload announces the LIVE -> ENDED transition.
type StreamEndedPayload struct {
	StreamID string    `json:"streamId"`
	EndedAt  time.Time `json:"endedAt"`
	Duration int64     `json:"duration"`
}

// StreamStatsPayload carries presence counters after every change.
type StreamStatsPayload struct {
	ViewerCount int `json:"viewerCount"`
	PeakViewers int `json:"peakViewers"`
}

// OfferPayload forwards a WebRTC offer. The Offer body is opaque to the relay.
type OfferPayload struct {
	StreamID string          `json:"streamId"`
	From     string          `json:"from"`
	Offer    json.RawMessage `json:"offer"`
}

// AnswerPayload forwards a WebRTC answer.
type AnswerPayload struct {
	StreamID string          `json:"streamId"`
	From     string          `json:"from"`
	Answer   json.RawMessage `json:"answer"`
}

// ICECandidatePayload forwards an ICE candidate.
type ICECandidatePayload struct {
	StreamID  string          `json:"streamId"`
	From      string          `json:"from"`
	Candidate json.RawMessage `json:"candidate"`
}

// RequestOfferPayload asks the streamer to (re)send an offer to one viewer.
type RequestOfferPayload struct {
	StreamID         string `json:"streamId"`
	RequestingUserID string `json:"requestingUserId"`
}

// ErrorPayload is the scoped error event sent to the offending connection only.
type ErrorPayload struct {
	Message string `json:"message"`
}

// Inbound payloads. Identity fields a client may include (userId, username,
// role) are deliberately absent: identity comes from the bound session.

type joinRequest struct {
	StreamID string `json:"streamId"`
}

type sendMessageRequest struct {
	StreamID    string `json:"streamId"`
	Message     string `json:"message"`
	MessageType string `json:"messageType"`
}

type offerRequest struct {
	StreamID     string          `json:"streamId"`
	Offer        json.RawMessage `json:"offer"`
	TargetUserID string          `json:"targetUserId"`
}

type answerRequest struct {
	StreamID     string          `json:"streamId"`
	Answer       json.RawMessage `json:"answer"`
	TargetUserID string          `json:"targetUserId"`
}

type iceCandidateRequest struct {
	StreamID     string          `json:"streamId"`
	Candidate    json.RawMessage `json:"candidate"`
	TargetUserID string          `json:"targetUserId"`
}
