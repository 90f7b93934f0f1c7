package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/chatline/chatline/internal/healthcheck"
)

type PingHandler struct {
	checkers []healthcheck.Checker
	now      func() time.Time
	logger   *slog.Logger
}

func NewPingHandler(log *slog.Logger, checkers ...healthcheck.Checker) *PingHandler {
	return &PingHandler{
		checkers: checkers,
		now:      time.Now,
		logger:   log.With(slog.String("handler", "ping")),
	}
}

func (h *PingHandler) Register(g *echo.Group) {
	g.GET("/ping", h.Ping)
	g.GET("/health", h.Health)
	g.HEAD("/health", h.PingHead)
}

func (h *PingHandler) Ping(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Health is the liveness probe. Checks are informational; the process is
// alive as long as it answers.
func (h *PingHandler) Health(c echo.Context) error {
	checks := healthcheck.Run(c.Request().Context(), h.checkers...)
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Health check - " + h.now().UTC().Format(time.RFC3339),
		"status":  healthcheck.Worst(checks),
		"checks":  checks,
	})
}

func (h *PingHandler) PingHead(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}
