package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/chatline/chatline/internal/delivery"
	"github.com/chatline/chatline/internal/gateway"
	"github.com/chatline/chatline/internal/inbound"
)

type inboundProcessor interface {
	Handle(ctx context.Context, msg gateway.InboundMessage) (inbound.Outcome, error)
}

type statusTracker interface {
	OnStatusCallback(ctx context.Context, cb delivery.Callback) (delivery.Outcome, error)
}

// WebhookOptions configures gateway signature checks.
type WebhookOptions struct {
	ValidateSignature bool
	AuthToken         string
	// PublicBaseURL is the externally visible origin the gateway signs against.
	PublicBaseURL string
}

// WebhookHandler receives the gateway's inbound-message and status callbacks.
// The status route always answers 200, even for unsigned callbacks, so the
// gateway does not retry.
type WebhookHandler struct {
	processor inboundProcessor
	tracker   statusTracker
	opts      WebhookOptions
	logger    *slog.Logger
}

func NewWebhookHandler(log *slog.Logger, processor inboundProcessor, tracker statusTracker, opts WebhookOptions) *WebhookHandler {
	return &WebhookHandler{
		processor: processor,
		tracker:   tracker,
		opts:      opts,
		logger:    log.With(slog.String("handler", "webhook")),
	}
}

func (h *WebhookHandler) Register(g *echo.Group) {
	g.POST("/receive-message", h.ReceiveMessage, h.verifySignature(rejectUnsigned))
	g.POST("/webhook/status", h.StatusCallback, h.verifySignature(acknowledge))
}

// ReceiveMessage ingests one inbound message and answers with TwiML.
func (h *WebhookHandler) ReceiveMessage(c echo.Context) error {
	form, err := c.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form body")
	}
	msg := gateway.ParseInbound(form)
	out, err := h.processor.Handle(c.Request().Context(), msg)
	if err != nil {
		h.logger.Error("inbound message failed",
			slog.String("sid", msg.SID()),
			slog.String("media_type", msg.MediaContentType),
			slog.Any("error", err))
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if out.Ignored {
		h.logger.Debug("inbound message ignored", slog.String("from", msg.From), slog.String("reason", out.Reason))
	}
	return twiml(c, gateway.EmptyTwiML())
}

// StatusCallback records a delivery status update.
func (h *WebhookHandler) StatusCallback(c echo.Context) error {
	form, err := c.FormParams()
	if err != nil {
		h.logger.Warn("status callback form unreadable", slog.Any("error", err))
		return c.String(http.StatusOK, "OK")
	}
	cb := gateway.ParseStatus(form)
	if _, err := h.tracker.OnStatusCallback(c.Request().Context(), delivery.Callback{
		SID:          cb.MessageSID,
		Status:       cb.Status,
		ErrorCode:    cb.ErrorCode,
		ErrorMessage: cb.ErrorMessage,
		Raw:          cb.Raw,
	}); err != nil {
		h.logger.Error("status callback failed", slog.String("sid", cb.MessageSID), slog.Any("error", err))
	}
	return c.String(http.StatusOK, "OK")
}

// verifySignature checks the gateway signature and hands unsigned requests to
// reject instead of the route handler.
func (h *WebhookHandler) verifySignature(reject echo.HandlerFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !h.opts.ValidateSignature {
				return next(c)
			}
			fullURL := strings.TrimRight(h.opts.PublicBaseURL, "/") + c.Request().URL.RequestURI()
			form, err := c.FormParams()
			if err != nil {
				h.logger.Warn("gateway callback form unreadable", slog.String("url", fullURL), slog.Any("error", err))
				return reject(c)
			}
			if !gateway.ValidSignature(h.opts.AuthToken, fullURL, form, c.Request().Header.Get(gateway.SignatureHeader)) {
				h.logger.Warn("gateway signature mismatch", slog.String("url", fullURL))
				return reject(c)
			}
			return next(c)
		}
	}
}

func rejectUnsigned(echo.Context) error {
	return echo.NewHTTPError(http.StatusForbidden, "invalid signature")
}

// acknowledge answers 200 without processing, so the gateway stops retrying.
func acknowledge(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func twiml(c echo.Context, t gateway.TwiML) error {
	return c.Blob(http.StatusOK, "text/xml", t.Render())
}
