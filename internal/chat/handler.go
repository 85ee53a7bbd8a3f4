package chat

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shoplive/backend/pkg/response"
)

const defaultHistoryLimit = 50

// Handler handles chat HTTP endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a chat handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

// History handles GET /streams/:id/messages?limit=n.
func (h *Handler) History(c *gin.Context) {
	limit := defaultHistoryLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			response.BadRequest(c, "limit must be between 1 and 500")
			return
		}
		limit = n
	}
	list, err := h.repo.ListByStream(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		h.logger.Error("list chat messages failed", zap.String("stream_id", c.Param("id")), zap.Error(err))
		response.Internal(c, "could not load messages")
		return
	}
	response.OK(c, list)
}
