package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const (
	AppName     = "reseller-assistant"
	EnvFileName = "config.env"
)

const (
	DefaultHTTPAddr       = ":8080"
	DefaultDBPath         = "listings.db"
	DefaultLocation       = "Melbourne CBD"
	DefaultMaxUploadBytes = 10 << 20
	DefaultLogLevel       = zerolog.InfoLevel
)

const (
	apiKeyEnv              = "API_KEY"
	legacyAPIKeyEnv        = "GEMINI_API_KEY"
	adminTelegramIDEnvName = "ADMIN_TELEGRAM_ID"
)

// Config holds the runtime settings read from the environment.
type Config struct {
	APIKey        string
	GeminiModel   string
	GeminiBaseURL string

	HTTPAddr        string
	DBPath          string
	DefaultLocation string
	MaxUploadBytes  int64
	LogLevel        zerolog.Level

	// Telegram front-end, disabled when BotToken is empty
	BotToken        string
	AdminTelegramID int64
}

// BotEnabled reports whether the Telegram front-end should run.
func (c *Config) BotEnabled() bool {
	return c.BotToken != ""
}

// Dir returns the application's config directory, creating it if needed.
func Dir() (string, error) {
	configBase, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}

	configDir := filepath.Join(configBase, AppName)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// FilePath returns the full path to the config file.
func FilePath() (string, error) {
	configDir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, EnvFileName), nil
}

// LoadEnvFile loads environment variables from the config file in the user's
// config directory and from .env in the working directory. Variables already
// set in the environment win. Errors are ignored since the files may not exist.
func LoadEnvFile() {
	if configPath, err := FilePath(); err == nil {
		_ = godotenv.Load(configPath)
	}
	_ = godotenv.Load()
}

// APIKey returns the model credential from the environment.
func APIKey() string {
	if key := os.Getenv(apiKeyEnv); key != "" {
		return key
	}
	return os.Getenv(legacyAPIKeyEnv)
}

// Load reads the configuration from the environment.
// A missing API key is not an error here: every analysis reports it instead.
func Load() (*Config, error) {
	cfg := &Config{
		APIKey:          APIKey(),
		GeminiModel:     os.Getenv("GEMINI_MODEL"),
		GeminiBaseURL:   os.Getenv("GEMINI_BASE_URL"),
		HTTPAddr:        getEnv("HTTP_ADDR", DefaultHTTPAddr),
		DBPath:          getEnv("DB_PATH", DefaultDBPath),
		DefaultLocation: getEnv("DEFAULT_LOCATION", DefaultLocation),
		LogLevel:        DefaultLogLevel,
		BotToken:        os.Getenv("BOT_TOKEN"),
	}

	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		level, err := zerolog.ParseLevel(strings.ToLower(lvl))
		if err != nil {
			return nil, fmt.Errorf("LOG_LEVEL: %w", err)
		}
		cfg.LogLevel = level
	}

	maxUpload, err := getEnvInt64("MAX_UPLOAD_BYTES", DefaultMaxUploadBytes)
	if err != nil {
		return nil, err
	}
	cfg.MaxUploadBytes = maxUpload
	if cfg.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}

	if cfg.BotEnabled() {
		adminIDStr := os.Getenv(adminTelegramIDEnvName)
		if adminIDStr == "" {
			return nil, fmt.Errorf("%s is required when BOT_TOKEN is set", adminTelegramIDEnvName)
		}
		adminID, err := strconv.ParseInt(adminIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s must be a valid integer: %w", adminTelegramIDEnvName, err)
		}
		cfg.AdminTelegramID = adminID
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return i, nil
}
