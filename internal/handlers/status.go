package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/chatline/chatline/internal/delivery"
	"github.com/chatline/chatline/internal/message"
)

type timelineReader interface {
	Timeline(ctx context.Context, sid string) (delivery.Timeline, error)
}

// StatusHandler exposes the delivery timeline of a sent message.
type StatusHandler struct {
	timelines timelineReader
	logger    *slog.Logger
}

func NewStatusHandler(log *slog.Logger, timelines timelineReader) *StatusHandler {
	return &StatusHandler{timelines: timelines, logger: log.With(slog.String("handler", "message_status"))}
}

func (h *StatusHandler) Register(g *echo.Group) {
	g.GET("/message-status/:sid", h.GetStatus)
}

func (h *StatusHandler) GetStatus(c echo.Context) error {
	sid := strings.TrimSpace(c.Param("sid"))
	tl, err := h.timelines.Timeline(c.Request().Context(), sid)
	if err != nil {
		if errors.Is(err, message.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Message not found"})
		}
		h.logger.Error("load message status failed", slog.String("sid", sid), slog.Any("error", err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, tl)
}
