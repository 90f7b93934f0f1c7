package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultConfigPath         = "config.toml"
	DefaultHTTPAddr           = ":8080"
	DefaultPublicBaseURL      = "http://127.0.0.1:8080"
	DefaultPGHost             = "127.0.0.1"
	DefaultPGPort             = 5432
	DefaultPGUser             = "postgres"
	DefaultPGDatabase         = "chatline"
	DefaultPGSSLMode          = "disable"
	DefaultGatewayBaseURL     = "https://api.twilio.com"
	DefaultGatewayMediaHost   = "https://api.twilio.com"
	DefaultStorageRoot        = "data/media"
	DefaultSpeechSTTModel     = "whisper-1"
	DefaultSpeechTTSModel     = "tts-1"
	DefaultSpeechTTSVoice     = "nova"
	DefaultFFmpegPath         = "ffmpeg"
	DefaultAgentProvider      = "gateway"
	DefaultAgentBaseURL       = "http://127.0.0.1:8081"
	DefaultAgentMaxTokens     = 1024
	DefaultReopenAfter        = 5 * time.Minute
	DefaultDispatchMinDelay   = 15 * time.Second
	DefaultDispatchMaxDelay   = 25 * time.Second
	DefaultLongReplyLimit     = 1000
	DefaultSpeechLimit        = 400
	DefaultAdvisorCacheTTL    = 24 * time.Hour
	DefaultAdvisorCacheSize   = 512
	DefaultMediaFetchAttempts = 3
	DefaultMediaFetchDelay    = 1500 * time.Millisecond
	DefaultMediaMaxBytes      = 200 * 1024 * 1024
)

type Config struct {
	Log          LogConfig          `toml:"log"`
	Server       ServerConfig       `toml:"server"`
	Auth         AuthConfig         `toml:"auth"`
	Postgres     PostgresConfig     `toml:"postgres"`
	Gateway      GatewayConfig      `toml:"gateway"`
	Media        MediaConfig        `toml:"media"`
	Storage      StorageConfig      `toml:"storage"`
	Speech       SpeechConfig       `toml:"speech"`
	Agent        AgentConfig        `toml:"agent"`
	Conversation ConversationConfig `toml:"conversation"`
	Dispatch     DispatchConfig     `toml:"dispatch"`
	AdvisorCache AdvisorCacheConfig `toml:"advisor_cache"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type ServerConfig struct {
	Addr          string `toml:"addr"`
	PublicBaseURL string `toml:"public_base_url"`
	// RoutePrefix is mounted in front of every route, e.g. "/asadores".
	RoutePrefix string `toml:"route_prefix"`
}

type AuthConfig struct {
	// JWTSecret protects the operator routes. Empty disables the check.
	JWTSecret string `toml:"jwt_secret"`
}

type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

type GatewayConfig struct {
	AccountSID        string        `toml:"account_sid"`
	AuthToken         string        `toml:"auth_token"`
	BaseURL           string        `toml:"base_url"`
	MediaHost         string        `toml:"media_host"`
	OwnNumbers        []string      `toml:"own_numbers"`
	StatusCallbackURL string        `toml:"status_callback_url"`
	ValidateSignature bool          `toml:"validate_signature"`
	RatePerSecond     float64       `toml:"rate_per_second"`
	TemplateFetchWait time.Duration `toml:"template_fetch_delay"`
	Timeout           time.Duration `toml:"timeout"`
}

type MediaConfig struct {
	FetchAttempts int           `toml:"fetch_attempts"`
	FetchDelay    time.Duration `toml:"fetch_delay"`
	MaxBytes      int64         `toml:"max_bytes"`
}

type StorageConfig struct {
	Root          string `toml:"root"`
	PublicBaseURL string `toml:"public_base_url"`
}

type SpeechConfig struct {
	OpenAIAPIKey string `toml:"openai_api_key"`
	STTModel     string `toml:"stt_model"`
	STTPrompt    string `toml:"stt_prompt"`
	TTSModel     string `toml:"tts_model"`
	TTSVoice     string `toml:"tts_voice"`
	FFmpegPath   string `toml:"ffmpeg_path"`
}

type AgentConfig struct {
	// Provider is one of "gateway", "openai" or "anthropic".
	Provider     string        `toml:"provider"`
	BaseURL      string        `toml:"base_url"`
	APIKey       string        `toml:"api_key"`
	Model        string        `toml:"model"`
	SystemPrompt string        `toml:"system_prompt"`
	MaxTokens    int64         `toml:"max_tokens"`
	Timeout      time.Duration `toml:"timeout"`
}

type ConversationConfig struct {
	ReopenAfter time.Duration `toml:"reopen_after"`
}

type DispatchConfig struct {
	MinDelay       time.Duration `toml:"min_delay"`
	MaxDelay       time.Duration `toml:"max_delay"`
	LongReplyLimit int           `toml:"long_reply_limit"`
	SpeechLimit    int           `toml:"speech_limit"`
}

type AdvisorCacheConfig struct {
	TTL  time.Duration `toml:"ttl"`
	Size int           `toml:"size"`
}

// MediaURL returns the public URL for a stored object key.
func (c StorageConfig) MediaURL(key string) string {
	return strings.TrimRight(c.PublicBaseURL, "/") + "/" + strings.TrimLeft(key, "/")
}

// StatusCallback returns the absolute status webhook URL handed to the gateway
// on every outbound send.
func (c Config) StatusCallback() string {
	base := strings.TrimSpace(c.Gateway.StatusCallbackURL)
	if base == "" {
		base = c.Server.PublicBaseURL
	}
	if base == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + c.Server.RoutePrefix + "/webhook/status"
}

func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr:          DefaultHTTPAddr,
			PublicBaseURL: DefaultPublicBaseURL,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		Gateway: GatewayConfig{
			BaseURL:           DefaultGatewayBaseURL,
			MediaHost:         DefaultGatewayMediaHost,
			RatePerSecond:     10,
			TemplateFetchWait: 2 * time.Second,
			Timeout:           30 * time.Second,
		},
		Media: MediaConfig{
			FetchAttempts: DefaultMediaFetchAttempts,
			FetchDelay:    DefaultMediaFetchDelay,
			MaxBytes:      DefaultMediaMaxBytes,
		},
		Storage: StorageConfig{
			Root: DefaultStorageRoot,
		},
		Speech: SpeechConfig{
			STTModel:   DefaultSpeechSTTModel,
			TTSModel:   DefaultSpeechTTSModel,
			TTSVoice:   DefaultSpeechTTSVoice,
			FFmpegPath: DefaultFFmpegPath,
		},
		Agent: AgentConfig{
			Provider:  DefaultAgentProvider,
			BaseURL:   DefaultAgentBaseURL,
			MaxTokens: DefaultAgentMaxTokens,
			Timeout:   2 * time.Minute,
		},
		Conversation: ConversationConfig{
			ReopenAfter: DefaultReopenAfter,
		},
		Dispatch: DispatchConfig{
			MinDelay:       DefaultDispatchMinDelay,
			MaxDelay:       DefaultDispatchMaxDelay,
			LongReplyLimit: DefaultLongReplyLimit,
			SpeechLimit:    DefaultSpeechLimit,
		},
		AdvisorCache: AdvisorCacheConfig{
			TTL:  DefaultAdvisorCacheTTL,
			Size: DefaultAdvisorCacheSize,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return finalize(cfg)
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	return finalize(cfg)
}

func finalize(cfg Config) (Config, error) {
	if prefix := strings.Trim(strings.TrimSpace(cfg.Server.RoutePrefix), "/"); prefix != "" {
		cfg.Server.RoutePrefix = "/" + prefix
	} else {
		cfg.Server.RoutePrefix = ""
	}
	if cfg.Storage.PublicBaseURL == "" {
		cfg.Storage.PublicBaseURL = strings.TrimRight(cfg.Server.PublicBaseURL, "/") + cfg.Server.RoutePrefix + "/media"
	}
	if cfg.Dispatch.MaxDelay < cfg.Dispatch.MinDelay {
		return cfg, fmt.Errorf("dispatch.max_delay (%s) is below dispatch.min_delay (%s)", cfg.Dispatch.MaxDelay, cfg.Dispatch.MinDelay)
	}
	return cfg, nil
}
