package streams

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shoplive/backend/internal/middleware"
	"github.com/shoplive/backend/internal/models"
	"github.com/shoplive/backend/pkg/response"
)

// CreateRequest is the body for POST /streams.
type CreateRequest struct {
	StreamID         string `json:"streamId"` // optional, generated when empty
	ChatEnabled      *bool  `json:"chatEnabled"`
	RecordingEnabled bool   `json:"recordingEnabled"`
}

// Handler handles stream HTTP endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a stream handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

// Create handles POST /streams (streamer or admin). The new stream starts in
// WAITING with the caller as its broadcaster.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	streamID := req.StreamID
	if streamID == "" {
		streamID = uuid.New().String()
	}
	chatEnabled := true
	if req.ChatEnabled != nil {
		chatEnabled = *req.ChatEnabled
	}

	s := &models.Stream{
		StreamID: streamID,
		Streamer: models.Streamer{
			UserID:   c.MustGet(middleware.ContextUserID).(string),
			Username: c.MustGet(middleware.ContextUsername).(string),
			Role:     c.MustGet(middleware.ContextUserRole).(string),
		},
		Status:           models.StreamWaiting,
		Viewers:          []models.Viewer{},
		ChatEnabled:      chatEnabled,
		RecordingEnabled: req.RecordingEnabled,
		RoomID:           uuid.New().String(),
	}
	if err := h.repo.Create(c.Request.Context(), s); err != nil {
		h.logger.Error("create stream failed", zap.String("stream_id", streamID), zap.Error(err))
		response.Internal(c, "could not create stream")
		return
	}
	response.Created(c, s)
}

// GetByID handles GET /streams/:id.
func (h *Handler) GetByID(c *gin.Context) {
	s, err := h.repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("get stream failed", zap.String("stream_id", c.Param("id")), zap.Error(err))
		response.Internal(c, "could not load stream")
		return
	}
	if s == nil {
		response.NotFound(c, "stream not found")
		return
	}
	response.OK(c, s)
}

// Stats handles GET /streams/:id/stats: the presence counters without the
// full viewer log.
func (h *Handler) Stats(c *gin.Context) {
	s, err := h.repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("get stream failed", zap.String("stream_id", c.Param("id")), zap.Error(err))
		response.Internal(c, "could not load stream")
		return
	}
	if s == nil {
		response.NotFound(c, "stream not found")
		return
	}
	response.OK(c, gin.H{
		"streamId":        s.StreamID,
		"status":          s.Status,
		"viewerCount":     s.ViewerCount,
		"peakViewers":     s.PeakViewers,
		"totalViews":      s.TotalViews,
		"averageViewTime": s.AverageViewTime,
		"duration":        s.Duration,
	})
}

// RoomCounter reports live room membership.
type RoomCounter interface {
	RoomSize(streamID string) int
}

// AudienceCount handles GET /streams/:id/audience_count. It reports live
// connections in the room, which can differ from the persisted viewer count
// while events are in flight.
func (h *Handler) AudienceCount(counter RoomCounter) gin.HandlerFunc {
	return func(c *gin.Context) {
		response.OK(c, gin.H{"count": counter.RoomSize(c.Param("id"))})
	}
}

// ListLive handles GET /streams/live.
func (h *Handler) ListLive(c *gin.Context) {
	list, err := h.repo.ListByStatus(c.Request.Context(), models.StreamLive, 100)
	if err != nil {
		h.logger.Error("list live streams failed", zap.Error(err))
		response.Internal(c, "could not list streams")
		return
	}
	response.OK(c, list)
}
