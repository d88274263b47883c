package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv                   string
	AppName                  string
	APIPrefix                string
	AppPort                  string
	CORSAllowOrigins         []string
	OpenAIAPIKey             string
	OpenAIBaseURL            string
	ChatModel                string
	ClassifierModel          string
	ChatMaxTokens            int
	ClassifierMaxTokens      int
	ChatTimeoutSeconds       int
	ClassifierTimeoutSeconds int
	AnalyticsBaseURL         string
}

func Load() Config {
	_ = godotenv.Load(".env")

	return Config{
		AppEnv:    getEnv("APP_ENV", "local"),
		AppName:   getEnv("APP_NAME", "Ancrage API"),
		APIPrefix: getEnv("API_PREFIX", "/api/v1"),
		AppPort:   getEnv("APP_PORT", "8000"),
		CORSAllowOrigins: getEnvCSV(
			"CORS_ALLOW_ORIGINS",
			[]string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:3000"},
		),
		OpenAIAPIKey:             getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:            getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		ChatModel:                getEnv("CHAT_MODEL", "gpt-4o-mini"),
		ClassifierModel:          getEnv("CLASSIFIER_MODEL", "gpt-4o-mini"),
		ChatMaxTokens:            getEnvInt("CHAT_MAX_TOKENS", 120),
		ClassifierMaxTokens:      getEnvInt("CLASSIFIER_MAX_TOKENS", 60),
		ChatTimeoutSeconds:       getEnvInt("CHAT_TIMEOUT_SECONDS", 8),
		ClassifierTimeoutSeconds: getEnvInt("CLASSIFIER_TIMEOUT_SECONDS", 5),
		AnalyticsBaseURL:         getEnv("ANALYTICS_BASE_URL", ""),
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.OpenAIAPIKey) == "" && c.AppEnv != "local" {
		return errors.New("OPENAI_API_KEY is required outside local env")
	}
	if strings.TrimSpace(c.OpenAIBaseURL) == "" {
		return errors.New("OPENAI_BASE_URL is required")
	}
	if c.ChatTimeoutSeconds <= 0 {
		return errors.New("CHAT_TIMEOUT_SECONDS must be positive")
	}
	if c.ClassifierTimeoutSeconds <= 0 {
		return errors.New("CLASSIFIER_TIMEOUT_SECONDS must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvCSV(key string, fallback []string) []string {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, item := range parts {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return fallback
	}
	return result
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}
