package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskhub/internal/apperr"
	"taskhub/pkg/outbox"
)

const defaultReplayLimit = 100

type AdminHandler struct {
	replayService *outbox.ReplayService
	logger        *zap.Logger
}

func NewAdminHandler(replayService *outbox.ReplayService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		replayService: replayService,
		logger:        logger,
	}
}

func queryLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultReplayLimit)))
	if err != nil || limit <= 0 {
		return defaultReplayLimit
	}
	return limit
}

// ListFailedEvents 列出失败的 Outbox 事件
// GET /admin/outbox/failed?limit=100
func (h *AdminHandler) ListFailedEvents(c *gin.Context) {
	events, err := h.replayService.ListFailedEvents(c.Request.Context(), queryLimit(c))
	if err != nil {
		WriteError(c, h.logger, err, "Failed to fetch outbox events.")
		return
	}
	success(c, http.StatusOK, gin.H{"events": events})
}

// ReplayOutboxEvent 重放指定的 Outbox 事件
// POST /admin/outbox/replay?id=xxx
func (h *AdminHandler) ReplayOutboxEvent(c *gin.Context) {
	idStr := c.Query("id")
	if idStr == "" {
		WriteError(c, h.logger, apperr.FieldInvalid("id", "The id field is required."), "")
		return
	}

	eventID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		WriteError(c, h.logger, apperr.FieldInvalid("id", "The id field must be an integer."), "")
		return
	}

	event, err := h.replayService.ReplayEvent(c.Request.Context(), eventID)
	if errors.Is(err, outbox.ErrEventNotFound) {
		Abort(c, http.StatusNotFound, "Event not found.")
		return
	}
	if err != nil {
		WriteError(c, h.logger, err, "Failed to replay event.")
		return
	}

	h.logger.Info("Outbox event replayed",
		zap.Int64("event_id", eventID),
		zap.Int64("admin_id", Principal(c).ID),
	)
	success(c, http.StatusOK, gin.H{
		"message": "Event replayed",
		"event":   event,
	})
}

// ReplayFailedEvents 重放所有失败的事件
// POST /admin/outbox/replay-failed?limit=100
func (h *AdminHandler) ReplayFailedEvents(c *gin.Context) {
	limit := queryLimit(c)
	successCount, err := h.replayService.ReplayFailedEvents(c.Request.Context(), limit)
	if err != nil {
		WriteError(c, h.logger, err, "Failed to replay failed events.")
		return
	}

	success(c, http.StatusOK, gin.H{
		"message":       "Replay completed",
		"success_count": successCount,
		"limit":         limit,
	})
}
