// Package config loads service configuration from the environment and the
// optional runtime config file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/jonathan/resume-studio/internal/types"
)

// Config is the process configuration, read from environment variables.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"development"`
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8080"`

	DatabaseURL string `envconfig:"DATABASE_URL"`
	RedisURL    string `envconfig:"REDIS_URL"`

	GeminiAPIKey    string `envconfig:"GEMINI_API_KEY"`
	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY"`
	GenAIAPIKey     string `envconfig:"GENAI_API_KEY"`

	LLMCallTimeout      time.Duration `envconfig:"LLM_CALL_TIMEOUT" default:"60s"`
	DetailScoreAttempts int           `envconfig:"DETAIL_SCORE_ATTEMPTS" default:"1"`
	SignalCacheTTL      time.Duration `envconfig:"SIGNAL_CACHE_TTL" default:"24h"`
	RuntimeConfigPath   string        `envconfig:"RUNTIME_CONFIG"`

	FallbackModelProvider        string   `envconfig:"FALLBACK_MODEL_PROVIDER" default:"gemini"`
	FallbackModelKey             string   `envconfig:"FALLBACK_MODEL_KEY" default:"gemini-2.5-flash"`
	FallbackModelInputPrice      float64  `envconfig:"FALLBACK_MODEL_INPUT_PRICE" default:"0.30"`
	FallbackModelOutputPrice     float64  `envconfig:"FALLBACK_MODEL_OUTPUT_PRICE" default:"2.50"`
	FallbackModelCachedPrice     *float64 `envconfig:"FALLBACK_MODEL_CACHED_PRICE"`
	FallbackModelMaxOutputTokens int      `envconfig:"FALLBACK_MODEL_MAX_OUTPUT_TOKENS" default:"8192"`
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges. Missing credentials are reported where they
// are needed, not here.
func (c *Config) Validate() error {
	if c.LLMCallTimeout <= 0 {
		return fmt.Errorf("config error: LLM_CALL_TIMEOUT must be positive")
	}
	if c.DetailScoreAttempts < 1 {
		return fmt.Errorf("config error: DETAIL_SCORE_ATTEMPTS must be at least 1, got %d", c.DetailScoreAttempts)
	}
	if c.SignalCacheTTL < 0 {
		return fmt.Errorf("config error: SIGNAL_CACHE_TTL must not be negative")
	}
	if strings.TrimSpace(c.FallbackModelProvider) == "" || strings.TrimSpace(c.FallbackModelKey) == "" {
		return fmt.Errorf("config error: FALLBACK_MODEL_PROVIDER and FALLBACK_MODEL_KEY are required")
	}
	if c.FallbackModelInputPrice < 0 || c.FallbackModelOutputPrice < 0 {
		return fmt.Errorf("config error: fallback model prices must not be negative")
	}
	return nil
}

// IsProduction reports whether APP_ENV names a production deployment.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// FallbackModel is the model used when routing cannot resolve a scenario.
func (c *Config) FallbackModel() *types.Model {
	return &types.Model{
		Provider:             c.FallbackModelProvider,
		ModelKey:             c.FallbackModelKey,
		DisplayName:          c.FallbackModelKey + " (fallback)",
		Status:               types.ModelStatusActive,
		InputPricePerM:       c.FallbackModelInputPrice,
		OutputPricePerM:      c.FallbackModelOutputPrice,
		CachedInputPricePerM: c.FallbackModelCachedPrice,
		MaxOutputTokens:      c.FallbackModelMaxOutputTokens,
		Capabilities:         types.ModelCapabilities{JSONMode: true},
	}
}

// LoadRuntimeConfig reads the runtime config file, YAML or JSON, into a raw
// map. An empty path yields an empty map.
func LoadRuntimeConfig(path string) (map[string]any, error) {
	raw := map[string]any{}
	if path == "" {
		return raw, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read runtime config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse runtime config %s: %w", path, err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}
