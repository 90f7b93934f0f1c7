package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/chatline/chatline/internal/config"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIGenerator answers with a single chat completion. It keeps no thread
// memory; the system prompt carries the persona.
type OpenAIGenerator struct {
	client       *openai.Client
	model        string
	systemPrompt string
	maxTokens    int64
	logger       *slog.Logger
}

func NewOpenAIGenerator(log *slog.Logger, cfg config.AgentConfig, extra ...option.RequestOption) *OpenAIGenerator {
	var opts []option.RequestOption
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	opts = append(opts, extra...)
	client := openai.NewClient(opts...)
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIGenerator{
		client:       &client,
		model:        model,
		systemPrompt: cfg.SystemPrompt,
		maxTokens:    cfg.MaxTokens,
		logger:       log.With(slog.String("service", "agent"), slog.String("provider", ProviderOpenAI)),
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (string, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if g.systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(g.systemPrompt))
	}
	if req.ImageDataURL != "" {
		parts := []openai.ChatCompletionContentPartUnionParam{
			openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: req.ImageDataURL}),
		}
		if text := userText(req); text != "" {
			parts = append(parts, openai.TextContentPart(text))
		}
		messages = append(messages, openai.UserMessage(parts))
	} else {
		messages = append(messages, openai.UserMessage(req.Text))
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(g.model),
		Messages: messages,
		User:     openai.String(req.ThreadID),
	}
	if g.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(g.maxTokens)
	}
	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyReply
	}
	g.logger.Debug("reply generated", slog.String("thread_id", req.ThreadID), slog.Int64("tokens", resp.Usage.TotalTokens))
	return finish(resp.Choices[0].Message.Content)
}
