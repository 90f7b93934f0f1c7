// Package agent is the reply-generation capability the inbound pipeline calls
// when a conversation is under automated attention.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/chatline/chatline/internal/config"
)

const (
	ProviderGateway   = "gateway"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

var (
	ErrEmptyReply      = errors.New("agent returned an empty reply")
	ErrUnknownProvider = errors.New("unknown agent provider")
)

// Request is one turn handed to the agent.
type Request struct {
	// ThreadID keys the agent's memory: "<advisorID>_<clientNumber>".
	ThreadID     string `json:"thread_id"`
	ClientNumber string `json:"phone_number"`
	AdvisorID    string `json:"advisor_id"`
	Text         string `json:"message"`
	// ImageDataURL is a base64 data URL when the client sent an image.
	ImageDataURL string `json:"image_url,omitempty"`
}

// Generator produces the reply text for one turn.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// ThreadID builds the per advisor and client memory key.
func ThreadID(advisorID, clientNumber string) string {
	return advisorID + "_" + clientNumber
}

// New returns the generator selected by cfg.Provider.
func New(log *slog.Logger, cfg config.AgentConfig) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderGateway:
		return NewHTTPGenerator(log, cfg), nil
	case ProviderOpenAI:
		return NewOpenAIGenerator(log, cfg), nil
	case ProviderAnthropic:
		return NewAnthropicGenerator(log, cfg), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
}

func userText(req Request) string {
	if strings.TrimSpace(req.Text) != "" {
		return req.Text
	}
	if req.ImageDataURL != "" {
		return "Imagen recibida"
	}
	return ""
}

func finish(reply string) (string, error) {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", ErrEmptyReply
	}
	return reply, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// splitDataURL returns the media type and base64 payload of a data URL.
func splitDataURL(raw string) (string, string, bool) {
	rest, ok := strings.CutPrefix(raw, "data:")
	if !ok {
		return "", "", false
	}
	meta, data, ok := strings.Cut(rest, ",")
	if !ok {
		return "", "", false
	}
	mediaType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 || mediaType == "" {
		return "", "", false
	}
	return mediaType, data, true
}
