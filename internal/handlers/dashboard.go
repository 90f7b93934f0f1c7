package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/chatline/chatline/internal/conversation"
	"github.com/chatline/chatline/internal/gateway"
	"github.com/chatline/chatline/internal/media"
	"github.com/chatline/chatline/internal/storage"
)

// Body stored for operator voice notes and file sends.
const (
	operatorAudioBody = "Audio message"
	operatorFileBody  = "Archivo enviado"
)

type operatorStore interface {
	Append(ctx context.Context, in conversation.AppendInput) (string, error)
	AppendTemplate(ctx context.Context, in conversation.TemplateInput) (string, error)
	UpdateGatewayID(ctx context.Context, messageID, sid string) error
}

type gatewayClient interface {
	SendMessage(ctx context.Context, p gateway.SendParams) (gateway.Message, error)
	SendTemplate(ctx context.Context, p gateway.TemplateParams) (gateway.Message, error)
	FetchMessage(ctx context.Context, sid string) (gateway.Message, error)
}

type audioConverter interface {
	ToMP3(ctx context.Context, input []byte) ([]byte, error)
}

type objectUploader interface {
	Upload(ctx context.Context, in media.UploadInput) (media.Object, error)
}

// DashboardRequest is an operator message from the dashboard.
type DashboardRequest struct {
	ClientNumber      string `json:"clientNumber" validate:"required"`
	NewMessage        string `json:"newMessage" validate:"required"`
	UserName          string `json:"userName"`
	FileName          string `json:"fileName"`
	AdvisorID         string `json:"advisorId" validate:"required,uuid"`
	TwilioPhoneNumber string `json:"twilioPhoneNumber" validate:"required"`
}

// TemplateRequest sends a pre-approved template to a client.
type TemplateRequest struct {
	To                string `json:"to" validate:"required"`
	TemplateID        string `json:"templateId" validate:"required"`
	Name              string `json:"name"`
	AgentName         string `json:"agentName"`
	User              string `json:"user"`
	AdvisorID         string `json:"advisorId" validate:"required,uuid"`
	TwilioPhoneNumber string `json:"twilioPhoneNumber" validate:"required"`
}

// SendResponse is the JSON answer of operator sends.
type SendResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	SID     string `json:"sid,omitempty"`
	Error   string `json:"error,omitempty"`
}

// DashboardHandler serves the operator dashboard: manual sends, templates and
// gateway message lookup.
type DashboardHandler struct {
	store        operatorStore
	gateway      gatewayClient
	objects      storage.Provider
	uploader     objectUploader
	converter    audioConverter
	templateWait time.Duration
	sleep        func(ctx context.Context, d time.Duration) error
	logger       *slog.Logger
}

func NewDashboardHandler(log *slog.Logger, store operatorStore, gw gatewayClient, objects storage.Provider, uploader objectUploader, converter audioConverter, templateWait time.Duration) *DashboardHandler {
	return &DashboardHandler{
		store:        store,
		gateway:      gw,
		objects:      objects,
		uploader:     uploader,
		converter:    converter,
		templateWait: templateWait,
		sleep:        sleepContext,
		logger:       log.With(slog.String("handler", "dashboard")),
	}
}

func (h *DashboardHandler) Register(g *echo.Group) {
	g.POST("/chat-dashboard", h.SendMessage)
	g.POST("/send-template", h.SendTemplate)
	g.GET("/message/:sid", h.GetMessage)
}

// SendMessage sends an operator text, voice note or file.
func (h *DashboardHandler) SendMessage(c echo.Context) error {
	var req DashboardRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	req.ClientNumber = gateway.StripChannel(req.ClientNumber)
	req.TwilioPhoneNumber = gateway.StripChannel(req.TwilioPhoneNumber)

	key, stored := "", false
	if h.objects != nil {
		key, stored = h.objects.KeyFromURL(strings.TrimSpace(req.NewMessage))
	}
	switch {
	case stored && strings.HasPrefix(key, media.PrefixAgentAudio+"/"):
		if err := h.sendVoiceNote(ctx, req, key); err != nil {
			return h.sendFailed(c, err)
		}
		return twiml(c, gateway.EmptyTwiML())
	case stored && strings.HasPrefix(key, media.PrefixDocument+"/"):
		if _, err := h.deliver(ctx, req, operatorFileBody, req.NewMessage, req.FileName, gateway.SendParams{
			MediaURL: []string{req.NewMessage},
		}); err != nil {
			return h.sendFailed(c, err)
		}
		return twiml(c, gateway.EmptyTwiML())
	}

	sid, err := h.deliver(ctx, req, req.NewMessage, "", "", gateway.SendParams{Body: req.NewMessage})
	if err != nil {
		return h.sendFailed(c, err)
	}
	return c.JSON(http.StatusOK, SendResponse{Success: true, Message: "Mensaje enviado exitosamente", SID: sid})
}

func (h *DashboardHandler) sendVoiceNote(ctx context.Context, req DashboardRequest, key string) error {
	if h.converter == nil || h.uploader == nil {
		return errors.New("voice notes are not configured")
	}
	rc, _, err := h.objects.Open(ctx, key)
	if err != nil {
		return fmt.Errorf("open voice note: %w", err)
	}
	raw, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return fmt.Errorf("read voice note: %w", err)
	}
	mp3, err := h.converter.ToMP3(ctx, raw)
	if err != nil {
		return err
	}
	obj, err := h.uploader.Upload(ctx, media.UploadInput{
		Prefix:      media.PrefixVoiceNote,
		Stem:        "audio",
		Ext:         "mp3",
		ContentType: "audio/mpeg",
		Data:        mp3,
		Metadata:    map[string]string{"sender": req.UserName, "source": key},
	})
	if err != nil {
		return err
	}
	_, err = h.deliver(ctx, req, operatorAudioBody, req.NewMessage, "", gateway.SendParams{
		Body:     operatorAudioBody,
		MediaURL: []string{obj.URL},
	})
	return err
}

// deliver persists the operator message, sends it and attaches the SID.
func (h *DashboardHandler) deliver(ctx context.Context, req DashboardRequest, text, mediaURL, fileName string, p gateway.SendParams) (string, error) {
	msgID, err := h.store.Append(ctx, conversation.AppendInput{
		ClientID:  req.ClientNumber,
		AdvisorID: req.AdvisorID,
		Text:      text,
		MediaURL:  mediaURL,
		FileName:  fileName,
		Sender:    req.UserName,
	})
	if err != nil {
		return "", fmt.Errorf("persist operator message: %w", err)
	}
	p.From = req.TwilioPhoneNumber
	p.To = req.ClientNumber
	sent, err := h.gateway.SendMessage(ctx, p)
	if err != nil {
		return "", err
	}
	if err := h.store.UpdateGatewayID(ctx, msgID, sent.SID); err != nil {
		h.logger.Warn("attach gateway sid failed", slog.String("sid", sent.SID), slog.Any("error", err))
	}
	return sent.SID, nil
}

func (h *DashboardHandler) sendFailed(c echo.Context, err error) error {
	h.logger.Error("operator send failed", slog.Any("error", err))
	return c.JSON(http.StatusInternalServerError, SendResponse{
		Message: "Error al enviar el mensaje",
		Error:   err.Error(),
	})
}

// SendTemplate sends a content template, then reads back the rendered body
// from the gateway and stores it.
func (h *DashboardHandler) SendTemplate(c echo.Context) error {
	var req TemplateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	to := gateway.StripChannel(req.To)

	fail := func(err error) error {
		h.logger.Error("template send failed", slog.String("template", req.TemplateID), slog.Any("error", err))
		return c.JSON(http.StatusInternalServerError, SendResponse{
			Message: "Error al enviar la plantilla",
			Error:   err.Error(),
		})
	}
	sent, err := h.gateway.SendTemplate(ctx, gateway.TemplateParams{
		From:       req.TwilioPhoneNumber,
		To:         to,
		ContentSID: req.TemplateID,
		Variables:  map[string]string{"1": req.Name, "2": req.AgentName},
	})
	if err != nil {
		return fail(err)
	}
	if err := h.sleep(ctx, h.templateWait); err != nil {
		return fail(err)
	}
	rendered, err := h.gateway.FetchMessage(ctx, sent.SID)
	if err != nil {
		return fail(err)
	}
	msgID, err := h.store.AppendTemplate(ctx, conversation.TemplateInput{
		ClientID:  to,
		AdvisorID: req.AdvisorID,
		Text:      rendered.Body,
		Sender:    req.User,
	})
	if err != nil {
		return fail(err)
	}
	if err := h.store.UpdateGatewayID(ctx, msgID, sent.SID); err != nil {
		h.logger.Warn("attach gateway sid failed", slog.String("sid", sent.SID), slog.Any("error", err))
	}
	return c.JSON(http.StatusOK, SendResponse{Success: true, Message: rendered.Body, SID: sent.SID})
}

// GetMessage proxies a gateway message lookup.
func (h *DashboardHandler) GetMessage(c echo.Context) error {
	sid := strings.TrimSpace(c.Param("sid"))
	msg, err := h.gateway.FetchMessage(c.Request().Context(), sid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]any{
			"success": false,
			"message": "Error al obtener el mensaje",
			"error":   err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "message": msg})
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
