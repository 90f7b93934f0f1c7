package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/chatline/chatline/internal/config"
)

const defaultAnthropicModel = "claude-3-5-haiku-latest"

// AnthropicGenerator answers with one Messages API call.
type AnthropicGenerator struct {
	client       *anthropic.Client
	model        string
	systemPrompt string
	maxTokens    int64
	logger       *slog.Logger
}

func NewAnthropicGenerator(log *slog.Logger, cfg config.AgentConfig, extra ...option.RequestOption) *AnthropicGenerator {
	var opts []option.RequestOption
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	opts = append(opts, extra...)
	client := anthropic.NewClient(opts...)
	model := cfg.Model
	if model == "" {
		model = defaultAnthropicModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = config.DefaultAgentMaxTokens
	}
	return &AnthropicGenerator{
		client:       &client,
		model:        model,
		systemPrompt: cfg.SystemPrompt,
		maxTokens:    maxTokens,
		logger:       log.With(slog.String("service", "agent"), slog.String("provider", ProviderAnthropic)),
	}
}

func (g *AnthropicGenerator) Generate(ctx context.Context, req Request) (string, error) {
	var blocks []anthropic.ContentBlockParamUnion
	if mediaType, data, ok := splitDataURL(req.ImageDataURL); ok {
		blocks = append(blocks, anthropic.NewImageBlockBase64(mediaType, data))
	}
	if text := userText(req); text != "" {
		blocks = append(blocks, anthropic.NewTextBlock(text))
	}
	if len(blocks) == 0 {
		return "", ErrEmptyReply
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: g.maxTokens,
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(blocks...)},
	}
	if g.systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: g.systemPrompt}}
	}
	resp, err := g.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic api error: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}
	g.logger.Debug("reply generated", slog.String("thread_id", req.ThreadID), slog.String("stop_reason", string(resp.StopReason)))
	return finish(sb.String())
}
