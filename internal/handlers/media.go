package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/chatline/chatline/internal/storage"
)

// MediaHandler serves stored objects under /media/* so the gateway can fetch
// outbound media from the public base URL.
type MediaHandler struct {
	objects storage.Provider
	logger  *slog.Logger
}

func NewMediaHandler(log *slog.Logger, objects storage.Provider) *MediaHandler {
	return &MediaHandler{objects: objects, logger: log.With(slog.String("handler", "media"))}
}

func (h *MediaHandler) Register(g *echo.Group) {
	g.GET("/media/*", h.Serve)
}

func (h *MediaHandler) Serve(c echo.Context) error {
	key := strings.TrimPrefix(c.Param("*"), "/")
	if key == "" {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	rc, info, err := h.objects.Open(c.Request().Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) || errors.Is(err, storage.ErrPathTraversal) {
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		h.logger.Error("open media failed", slog.String("key", key), slog.Any("error", err))
		return echo.NewHTTPError(http.StatusInternalServerError, "open media failed")
	}
	defer rc.Close()
	contentType := info.ContentType
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	if info.Size > 0 {
		c.Response().Header().Set(echo.HeaderContentLength, strconv.FormatInt(info.Size, 10))
	}
	c.Response().Header().Set("Cache-Control", "public, max-age=86400")
	return c.Stream(http.StatusOK, contentType, rc)
}
