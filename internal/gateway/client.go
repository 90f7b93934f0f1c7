// Package gateway talks to the Twilio-compatible messaging gateway: outbound
// REST calls, inbound webhook decoding, signature checks and TwiML replies.
package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/chatline/chatline/internal/config"
)

const apiVersion = "2010-04-01"

var ErrNotConfigured = errors.New("gateway credentials not configured")

// APIError is a non-2xx gateway answer.
type APIError struct {
	Status   int    `json:"status"`
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("gateway error %d (status %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("gateway status %d: %s", e.Status, e.Message)
}

// Message is the gateway's message resource.
type Message struct {
	SID          string  `json:"sid"`
	From         string  `json:"from"`
	To           string  `json:"to"`
	Body         string  `json:"body"`
	Status       string  `json:"status"`
	Direction    string  `json:"direction"`
	NumMedia     string  `json:"num_media"`
	ErrorCode    *int    `json:"error_code"`
	ErrorMessage *string `json:"error_message"`
	DateCreated  string  `json:"date_created"`
	DateSent     string  `json:"date_sent"`
	DateUpdated  string  `json:"date_updated"`
	Price        *string `json:"price"`
}

// SendParams is a text or media send.
type SendParams struct {
	From     string
	To       string
	Body     string
	MediaURL []string
	// StatusCallback overrides the client default. Empty uses the default.
	StatusCallback string
}

// TemplateParams is a pre-approved content template send.
type TemplateParams struct {
	From       string
	To         string
	ContentSID string
	Variables  map[string]string
}

// Client is the gateway REST client. Every call waits on a shared rate limiter.
type Client struct {
	http           *http.Client
	baseURL        string
	accountSID     string
	authToken      string
	statusCallback string
	limiter        *rate.Limiter
	logger         *slog.Logger
}

func NewClient(log *slog.Logger, cfg config.GatewayConfig, statusCallback string) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = config.DefaultGatewayBaseURL
	}
	return &Client{
		http:           &http.Client{Timeout: timeout},
		baseURL:        baseURL,
		accountSID:     cfg.AccountSID,
		authToken:      cfg.AuthToken,
		statusCallback: statusCallback,
		limiter:        rate.NewLimiter(limit, 1),
		logger:         log.With(slog.String("service", "gateway")),
	}
}

// MediaHeaders returns the Basic auth header used to download attachments.
func (c *Client) MediaHeaders() http.Header {
	h := http.Header{}
	if c.accountSID != "" {
		h.Set("Authorization", "Basic "+basicAuth(c.accountSID, c.authToken))
	}
	return h
}

// SendMessage sends a text or media message and returns the queued resource.
func (c *Client) SendMessage(ctx context.Context, p SendParams) (Message, error) {
	form := url.Values{}
	form.Set("From", WithChannel(p.From))
	form.Set("To", WithChannel(p.To))
	if p.Body != "" {
		form.Set("Body", p.Body)
	}
	for _, m := range p.MediaURL {
		form.Add("MediaUrl", m)
	}
	if cb := firstNonEmpty(p.StatusCallback, c.statusCallback); cb != "" {
		form.Set("StatusCallback", cb)
	}
	var msg Message
	if err := c.do(ctx, http.MethodPost, c.messagesPath(), form, &msg); err != nil {
		return Message{}, err
	}
	c.logger.Info("message sent", slog.String("sid", msg.SID), slog.String("to", p.To), slog.Int("media", len(p.MediaURL)))
	return msg, nil
}

// SendTemplate sends a content template with numbered variables.
func (c *Client) SendTemplate(ctx context.Context, p TemplateParams) (Message, error) {
	if strings.TrimSpace(p.ContentSID) == "" {
		return Message{}, errors.New("content sid is required")
	}
	form := url.Values{}
	form.Set("From", WithChannel(p.From))
	form.Set("To", WithChannel(p.To))
	form.Set("ContentSid", p.ContentSID)
	if len(p.Variables) > 0 {
		raw, err := json.Marshal(p.Variables)
		if err != nil {
			return Message{}, fmt.Errorf("encode content variables: %w", err)
		}
		form.Set("ContentVariables", string(raw))
	}
	if c.statusCallback != "" {
		form.Set("StatusCallback", c.statusCallback)
	}
	var msg Message
	if err := c.do(ctx, http.MethodPost, c.messagesPath(), form, &msg); err != nil {
		return Message{}, err
	}
	c.logger.Info("template sent", slog.String("sid", msg.SID), slog.String("content_sid", p.ContentSID))
	return msg, nil
}

// FetchMessage reads a message resource by SID.
func (c *Client) FetchMessage(ctx context.Context, sid string) (Message, error) {
	sid = strings.TrimSpace(sid)
	if sid == "" {
		return Message{}, errors.New("message sid is required")
	}
	var msg Message
	path := "/" + apiVersion + "/Accounts/" + url.PathEscape(c.accountSID) + "/Messages/" + url.PathEscape(sid) + ".json"
	if err := c.do(ctx, http.MethodGet, path, nil, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}

func (c *Client) messagesPath() string {
	return "/" + apiVersion + "/Accounts/" + url.PathEscape(c.accountSID) + "/Messages.json"
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values, out any) error {
	if c.accountSID == "" || c.authToken == "" {
		return ErrNotConfigured
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.accountSID, c.authToken)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read gateway response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.Unmarshal(raw, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		apiErr.Status = resp.StatusCode
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}
	return nil
}

func basicAuth(user, pass string) string {
	return base64.StdEncoding.EncodeToString([]byte(user + ":" + pass))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
