package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/chatline/chatline/internal/config"
)

// HTTPGenerator posts turns to an external agent service that owns prompts,
// tools and thread memory.
type HTTPGenerator struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger
}

type generateResponse struct {
	Reply   string `json:"reply"`
	Message string `json:"message"`
}

func NewHTTPGenerator(log *slog.Logger, cfg config.AgentConfig) *HTTPGenerator {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &HTTPGenerator{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		logger:  log.With(slog.String("service", "agent"), slog.String("provider", ProviderGateway)),
	}
}

func (g *HTTPGenerator) Generate(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	url := g.baseURL + "/generate"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("agent request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		g.logger.Error("agent error", slog.String("url", url), slog.Int("status", resp.StatusCode), slog.String("body_prefix", truncate(string(respBody), 300)))
		return "", fmt.Errorf("agent gateway error: %s", strings.TrimSpace(string(respBody)))
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse agent response: %w", err)
	}
	if parsed.Reply == "" {
		parsed.Reply = parsed.Message
	}
	return finish(parsed.Reply)
}
