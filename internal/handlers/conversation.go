package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/chatline/chatline/internal/conversation"
	"github.com/chatline/chatline/internal/gateway"
)

type conversationStore interface {
	Get(ctx context.Context, clientID, advisorID string) (conversation.Conversation, error)
	SetAudioPreference(ctx context.Context, clientID, advisorID string, enabled bool) error
	SetClientName(ctx context.Context, clientID, advisorID, name string) error
	SetService(ctx context.Context, clientID, advisorID, service string) error
}

// ConversationQuery addresses one client/advisor conversation.
type ConversationQuery struct {
	ClientNumber string `query:"clientNumber" validate:"required"`
	AdvisorID    string `query:"advisorId" validate:"required,uuid"`
}

type AudioPreferenceRequest struct {
	ClientNumber string `json:"clientNumber" validate:"required"`
	AdvisorID    string `json:"advisorId" validate:"required,uuid"`
	Enabled      *bool  `json:"enabled" validate:"required"`
}

type ClientNameRequest struct {
	ClientNumber string `json:"clientNumber" validate:"required"`
	AdvisorID    string `json:"advisorId" validate:"required,uuid"`
	Name         string `json:"name" validate:"required"`
}

type ServiceRequest struct {
	ClientNumber string `json:"clientNumber" validate:"required"`
	AdvisorID    string `json:"advisorId" validate:"required,uuid"`
	Service      string `json:"service" validate:"required"`
}

// ConversationHandler exposes the conversation fields the reply agent may
// read or change. Every call names its client and advisor explicitly.
type ConversationHandler struct {
	store  conversationStore
	logger *slog.Logger
}

func NewConversationHandler(log *slog.Logger, store conversationStore) *ConversationHandler {
	return &ConversationHandler{store: store, logger: log.With(slog.String("handler", "conversation"))}
}

func (h *ConversationHandler) Register(g *echo.Group) {
	g.GET("/conversation", h.Get)
	g.POST("/conversation/audio", h.SetAudio)
	g.POST("/conversation/client-name", h.SetClientName)
	g.POST("/conversation/service", h.SetService)
}

func (h *ConversationHandler) Get(c echo.Context) error {
	var q ConversationQuery
	if err := c.Bind(&q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&q); err != nil {
		return err
	}
	conv, err := h.store.Get(c.Request().Context(), gateway.StripChannel(q.ClientNumber), q.AdvisorID)
	if err != nil {
		if errors.Is(err, conversation.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "conversation not found")
		}
		h.logger.Error("load conversation failed", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, conv)
}

func (h *ConversationHandler) SetAudio(c echo.Context) error {
	var req AudioPreferenceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if err := h.store.SetAudioPreference(c.Request().Context(), gateway.StripChannel(req.ClientNumber), req.AdvisorID, *req.Enabled); err != nil {
		h.logger.Error("set audio preference failed", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "audio": *req.Enabled})
}

func (h *ConversationHandler) SetClientName(c echo.Context) error {
	var req ClientNameRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if err := h.store.SetClientName(c.Request().Context(), gateway.StripChannel(req.ClientNumber), req.AdvisorID, req.Name); err != nil {
		h.logger.Error("set client name failed", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "clientName": req.Name})
}

func (h *ConversationHandler) SetService(c echo.Context) error {
	var req ServiceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if err := h.store.SetService(c.Request().Context(), gateway.StripChannel(req.ClientNumber), req.AdvisorID, req.Service); err != nil {
		h.logger.Error("set service failed", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "service": req.Service})
}
