// Package speech wraps the speech-to-text and text-to-speech capabilities and
// the ffmpeg transcoder used for operator voice notes.
package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/chatline/chatline/internal/config"
	"github.com/chatline/chatline/internal/media"
)

// DefaultTranscriptionPrompt keeps spoken digits (document ids, phones) compact.
const DefaultTranscriptionPrompt = "Por favor, transcribe el audio y asegúrate de escribir los números exactamente como se pronuncian, sin espacios, comas, ni puntos. Por ejemplo, un número de documento debe ser transcrito como 123456789."

const maxSpeechBytes = 25 * 1024 * 1024

var ErrNotConfigured = errors.New("speech provider not configured")

// OpenAI implements media.Transcriber and dispatch's Synthesizer with the
// OpenAI audio endpoints.
type OpenAI struct {
	client   *openai.Client
	sttModel string
	prompt   string
	ttsModel string
	voice    string
	logger   *slog.Logger
}

// NewOpenAI builds the client from the [speech] section. extra options are
// appended after the API key (tests point the base URL at a fake server).
func NewOpenAI(log *slog.Logger, cfg config.SpeechConfig, extra ...option.RequestOption) *OpenAI {
	opts := []option.RequestOption{}
	if strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
		opts = append(opts, option.WithAPIKey(cfg.OpenAIAPIKey))
	}
	opts = append(opts, extra...)
	client := openai.NewClient(opts...)
	prompt := cfg.STTPrompt
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultTranscriptionPrompt
	}
	return &OpenAI{
		client:   &client,
		sttModel: orDefault(cfg.STTModel, config.DefaultSpeechSTTModel),
		prompt:   prompt,
		ttsModel: orDefault(cfg.TTSModel, config.DefaultSpeechTTSModel),
		voice:    orDefault(cfg.TTSVoice, config.DefaultSpeechTTSVoice),
		logger:   log.With(slog.String("service", "speech")),
	}
}

func (o *OpenAI) Transcribe(ctx context.Context, audio []byte, filename, mime string) (string, error) {
	if len(audio) == 0 {
		return "", media.ErrEmptyMedia
	}
	resp, err := o.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:   openai.File(bytes.NewReader(audio), filename, mime),
		Model:  openai.AudioModel(o.sttModel),
		Prompt: openai.String(o.prompt),
	})
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	o.logger.Debug("audio transcribed", slog.Int("bytes", len(audio)), slog.Int("chars", len(resp.Text)))
	return resp.Text, nil
}

// Synthesize returns MP3 audio for text.
func (o *OpenAI) Synthesize(ctx context.Context, text string) ([]byte, string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, "", errors.New("synthesize: empty text")
	}
	resp, err := o.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          text,
		Model:          openai.SpeechModel(o.ttsModel),
		Voice:          openai.AudioSpeechNewParamsVoice(o.voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return nil, "", fmt.Errorf("synthesize: %w", err)
	}
	defer resp.Body.Close()
	data, err := media.ReadCapped(resp.Body, maxSpeechBytes)
	if err != nil {
		return nil, "", fmt.Errorf("read synthesized audio: %w", err)
	}
	return data, "audio/mpeg", nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
