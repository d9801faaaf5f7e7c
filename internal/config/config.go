package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Gemini      GeminiConfig
	OpenAI      OpenAIConfig
	Translation TranslationConfig
	Logging     LoggingConfig
}

type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	// Backend selects the Gemini transport: "rest" (default) or "sdk".
	Backend string
}

type OpenAIConfig struct {
	APIKey         string
	Model          string
	EnableFallback bool
}

type TranslationConfig struct {
	// ChunkSize bounds how many rows go into one model request. Smaller
	// chunks trade request count for decoding reliability.
	ChunkSize int
	// Rows whose PassthroughColumn value equals PassthroughValue skip
	// translation and are copied through under the new header names.
	PassthroughColumn string
	PassthroughValue  string
	PromptsFile       string
}

type LoggingConfig struct {
	Level string
	File  string
}

const defaultChunkSize = 3

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Gemini: GeminiConfig{
			APIKey:  getEnv("GEMINI_API_KEY", ""),
			Model:   getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			BaseURL: getEnv("GEMINI_BASE_URL", ""),
			Backend: getEnv("GEMINI_BACKEND", "rest"),
		},
		OpenAI: OpenAIConfig{
			APIKey:         getEnv("OPENAI_API_KEY", ""),
			Model:          getEnv("OPENAI_MODEL", "gpt-4.1-mini"),
			EnableFallback: getEnvBool("OPENAI_ENABLE_FALLBACK", false),
		},
		Translation: TranslationConfig{
			ChunkSize:         getEnvInt("CHUNK_SIZE", defaultChunkSize),
			PassthroughColumn: getEnv("PASSTHROUGH_COLUMN", ""),
			PassthroughValue:  getEnv("PASSTHROUGH_VALUE", ""),
			PromptsFile:       getEnv("PROMPTS_FILE", ""),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Gemini.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	switch c.Gemini.Backend {
	case "rest", "sdk":
	default:
		return fmt.Errorf("GEMINI_BACKEND must be \"rest\" or \"sdk\", got %q", c.Gemini.Backend)
	}
	if c.Translation.ChunkSize < 1 {
		return fmt.Errorf("CHUNK_SIZE must be at least 1")
	}
	if c.OpenAI.EnableFallback && c.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when OPENAI_ENABLE_FALLBACK is set")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
