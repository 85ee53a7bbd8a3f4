package models

import "time"

// StreamStatus is the lifecycle state of a live broadcast.
type StreamStatus string

const (
	StreamWaiting StreamStatus = "WAITING"
	StreamLive    StreamStatus = "LIVE"
	// StreamPaused is declared upstream but no transition in this service
	// produces it. Kept so stored documents round-trip unchanged.
	StreamPaused StreamStatus = "PAUSED"
	StreamEnded  StreamStatus = "ENDED"
)

// Streamer identifies the broadcaster of a stream.
type Streamer struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Viewer is one entry in a stream's append-only viewer log. Leaving flips
// IsActive to false; a rejoin appends a fresh entry.
type Viewer struct {
	UserID       string    `json:"userId"`
	Username     string    `json:"username"`
	JoinedAt     time.Time `json:"joinedAt"`
	ConnectionID string    `json:"connectionId"`
	IsActive     bool      `json:"isActive"`
}

// Stream is the per-broadcast document: identity, lifecycle status and
// timing, the viewer log with its derived counters, and chat/recording flags.
type Stream struct {
	StreamID         string       `json:"streamId"`
	Streamer         Streamer     `json:"streamer"`
	Status           StreamStatus `json:"status"`
	StartedAt        *time.Time   `json:"startedAt,omitempty"`
	EndedAt          *time.Time   `json:"endedAt,omitempty"`
	Duration         int64        `json:"duration"` // seconds
	Viewers          []Viewer     `json:"viewers"`
	ViewerCount      int          `json:"viewerCount"`
	TotalViews       int          `json:"totalViews"`
	PeakViewers      int          `json:"peakViewers"`
	AverageViewTime  float64      `json:"averageViewTime"`
	ChatEnabled      bool         `json:"chatEnabled"`
	RecordingEnabled bool         `json:"recordingEnabled"`
	RoomID           string       `json:"roomId"`
	CreatedAt        time.Time    `json:"createdAt"`
	UpdatedAt        time.Time    `json:"updatedAt"`
}

// ActiveViewerCount counts viewer entries with IsActive set.
func (s *Stream) ActiveViewerCount() int {
	n := 0
	for _, v := range s.Viewers {
		if v.IsActive {
			n++
		}
	}
	return n
}

// IsStreamer reports whether userID is the broadcaster of this stream.
func (s *Stream) IsStreamer(userID string) bool {
	return s.Streamer.UserID == userID
}
