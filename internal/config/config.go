// Package config loads authgate configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// ProviderCredentials holds one provider's OAuth application credentials.
// A provider is only registered when both ClientID and ClientSecret are set;
// a partially configured provider is a startup error, not a per-request one.
type ProviderCredentials struct {
	ClientID     string `validate:"required"`
	ClientSecret string `validate:"required"`
	CallbackURL  string `validate:"omitempty,url"`
}

// Config is the full process configuration.
type Config struct {
	Port          int    `validate:"min=1,max=65535"`
	Host          string `validate:"required"`
	PublicBaseURL string `validate:"omitempty,url"`

	// AllowedRedirectURLs is the allow-list for caller-supplied success
	// URIs. Empty means allow everything (development mode).
	AllowedRedirectURLs []string

	StateStore  string `validate:"oneof=memory sqlite"`
	StateDBPath string

	LogLevel  string
	LogFormat string `validate:"oneof=text json"`

	TelegramBotToken string
	TelegramChatID   int64

	// Providers holds credentials for each fully configured provider.
	Providers map[string]ProviderCredentials
}

// knownProviders are the provider names whose env vars are scanned.
var knownProviders = []string{"twitter", "discord", "github"}

var validate = validator.New()

// Load reads configuration from a .env file (if present) and the process
// environment, then validates it.
func Load() (*Config, error) {
	// Missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds configuration from the given environment lookup.
// Split out from Load so tests can inject an environment.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		Port:          3001,
		Host:          "0.0.0.0",
		StateStore:    "memory",
		StateDBPath:   "authgate.db",
		LogLevel:      "info",
		LogFormat:     "text",
		PublicBaseURL: getenv("PUBLIC_BASE_URL"),
		Providers:     make(map[string]ProviderCredentials),
	}

	if port := getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", port, err)
		}
		cfg.Port = p
	}
	if host := getenv("HOST"); host != "" {
		cfg.Host = host
	}
	if store := getenv("STATE_STORE"); store != "" {
		cfg.StateStore = store
	}
	if path := getenv("STATE_DB_PATH"); path != "" {
		cfg.StateDBPath = path
	}
	if level := getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	if format := getenv("LOG_FORMAT"); format != "" {
		cfg.LogFormat = format
	}
	if urls := getenv("ALLOWED_REDIRECT_URLS"); urls != "" {
		for _, u := range strings.Split(urls, ",") {
			if u = strings.TrimSpace(u); u != "" {
				cfg.AllowedRedirectURLs = append(cfg.AllowedRedirectURLs, u)
			}
		}
	}

	cfg.TelegramBotToken = getenv("TELEGRAM_BOT_TOKEN")
	if chatID := getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID %q: %w", chatID, err)
		}
		cfg.TelegramChatID = id
	}

	for _, name := range knownProviders {
		prefix := strings.ToUpper(name)
		creds := ProviderCredentials{
			ClientID:     getenv(prefix + "_CLIENT_ID"),
			ClientSecret: getenv(prefix + "_CLIENT_SECRET"),
			CallbackURL:  getenv(prefix + "_CALLBACK_URL"),
		}
		if creds.ClientID == "" && creds.ClientSecret == "" {
			continue // provider not configured at all
		}
		if err := validate.Struct(creds); err != nil {
			return nil, fmt.Errorf("incomplete %s configuration: %w", name, err)
		}
		if creds.CallbackURL == "" && cfg.PublicBaseURL != "" {
			creds.CallbackURL = strings.TrimRight(cfg.PublicBaseURL, "/") +
				"/auth/" + name + "/callback"
		}
		cfg.Providers[name] = creds
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
