package config

import (
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Log     Log     `yaml:"log"`
	Backend Backend `yaml:"backend"`
	Voice   Voice   `yaml:"voice"`
	Speech  Speech  `yaml:"speech"`
	Yandex  Yandex  `yaml:"yandex"`
}

type Backend struct {
	// Base URL of the Phoenix REST API
	BaseURL string `yaml:"base_url" example:"https://pal-backend-production.up.railway.app/api" validate:"required,url"`
	// WebSocket URL for the push stream, derived from base_url when empty
	WSURL string `yaml:"ws_url" example:"wss://pal-backend-production.up.railway.app"`
	// Request timeout for a single HTTP attempt
	RequestTimeout time.Duration `yaml:"request_timeout" example:"30s"`
	// Maximum attempts for retryable failures (5xx, 429)
	MaxAttempts int `yaml:"max_attempts" example:"3"`
	// Base delay for exponential backoff on 5xx
	RetryBaseDelay time.Duration `yaml:"retry_base_delay" example:"1s"`
	// TTL for cached GET responses
	CacheTTL time.Duration `yaml:"cache_ttl" example:"5m"`
}

type Voice struct {
	// TTS voice preset sent to the synthesis endpoint
	Voice string `yaml:"voice" example:"echo"`
	// Spoken language, also used for recognition
	Language string `yaml:"language" example:"en"`
	// Companion personality forwarded with every chat request
	Personality string `yaml:"personality" example:"friendly_helpful"`
}

type Speech struct {
	// How long a recognition session may run without a final result
	ListenTimeout time.Duration `yaml:"listen_timeout" example:"15s"`
	// How long the butler waits for a yes/no reply
	ConfirmTimeout time.Duration `yaml:"confirm_timeout" example:"10s"`
	// Hard reset for the single-flight command lock
	LockTimeout time.Duration `yaml:"lock_timeout" example:"30s"`
}

type Yandex struct {
	// Path to the SpeechKit service account key
	ServiceAccountKeyFile string `yaml:"service_account_key_file" example:"service-account-key.json"`
}

type Log struct {
	// Telegram logging config
	Telegram TelegramLog `yaml:"telegram"`
}

type TelegramLog struct {
	// Chat bot token, obtain it via BotFather
	Token string `yaml:"token" example:"1234567890:ABCdefGHIjklMNopQRstUVwxyZ-123456789"`
	// Chat ID to send messages to
	ChatID string `yaml:"chat_id" example:"1001234567890"`
}

func Load() (*Config, error) {
	var result Config

	data, err := os.ReadFile("config.yaml")
	if err != nil {
		return nil, oops.Errorf("failed to read config file: %w", err)
	}

	if err = yaml.Unmarshal(data, &result); err != nil {
		return nil, oops.Errorf("failed to parse YAML config: %w", err)
	}

	if result.Backend.BaseURL == "" {
		result.Backend.BaseURL = "https://pal-backend-production.up.railway.app/api"
	}
	if result.Backend.RequestTimeout == 0 {
		result.Backend.RequestTimeout = 30 * time.Second
	}
	if result.Backend.MaxAttempts == 0 {
		result.Backend.MaxAttempts = 3
	}
	if result.Backend.RetryBaseDelay == 0 {
		result.Backend.RetryBaseDelay = time.Second
	}
	if result.Backend.CacheTTL == 0 {
		result.Backend.CacheTTL = 5 * time.Minute
	}
	if result.Backend.WSURL == "" {
		wsURL := strings.TrimSuffix(result.Backend.BaseURL, "/api")
		wsURL = strings.Replace(wsURL, "https://", "wss://", 1)
		wsURL = strings.Replace(wsURL, "http://", "ws://", 1)
		result.Backend.WSURL = wsURL
	}
	if result.Voice.Voice == "" {
		result.Voice.Voice = "echo"
	}
	if result.Voice.Language == "" {
		result.Voice.Language = "en"
	}
	if result.Voice.Personality == "" {
		result.Voice.Personality = "friendly_helpful"
	}
	if result.Speech.ListenTimeout == 0 {
		result.Speech.ListenTimeout = 15 * time.Second
	}
	if result.Speech.ConfirmTimeout == 0 {
		result.Speech.ConfirmTimeout = 10 * time.Second
	}
	if result.Speech.LockTimeout == 0 {
		result.Speech.LockTimeout = 30 * time.Second
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(result); err != nil {
		return nil, oops.Errorf("failed to validate config: %w", err)
	}

	return &result, nil
}
