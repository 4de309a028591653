package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// CollaboratorCallsPerTurn is the most rater and narrator calls one turn
// makes: rate, narrate, epilogue and the next act's prologue.
const CollaboratorCallsPerTurn = 4

// LLM providers
const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderVenice    = "venice"
	ProviderMock      = "mock"
)

type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevelRaw string `env:"LOG_LEVEL" envDefault:"info"`
	LogLevel    slog.Level

	ScenariosDir string        `env:"SCENARIOS_DIR" envDefault:"data/scenarios"`
	DatabasePath string        `env:"DATABASE_PATH" envDefault:"story-arena.db"`
	RedisURL     string        `env:"REDIS_URL"`
	TurnLockTTL  time.Duration `env:"TURN_LOCK_TTL" envDefault:"7m"`

	LLMProvider         string        `env:"LLM_PROVIDER" envDefault:"anthropic"`
	AnthropicAPIKey     string        `env:"ANTHROPIC_API_KEY"`
	GeminiAPIKey        string        `env:"GEMINI_API_KEY"`
	VeniceAPIKey        string        `env:"VENICE_API_KEY"`
	RatingModel         string        `env:"RATING_MODEL" envDefault:"claude-3-5-haiku-latest"`
	NarratorModel       string        `env:"NARRATOR_MODEL" envDefault:"claude-sonnet-4-5"`
	CollaboratorTimeout time.Duration `env:"COLLABORATOR_TIMEOUT" envDefault:"90s"`
	IrrelevantActionCap bool          `env:"IRRELEVANT_ACTION_CAP" envDefault:"false"`

	Languages       []string `env:"LANGUAGES" envSeparator:"," envDefault:"en"`
	DefaultLanguage string   `env:"DEFAULT_LANGUAGE" envDefault:"en"`

	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `env:"SERVICE_NAME" envDefault:"story-arena"`
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	level, err := parseLogLevel(c.LogLevelRaw)
	if err != nil {
		return err
	}
	c.LogLevel = level

	c.LLMProvider = strings.ToLower(strings.TrimSpace(c.LLMProvider))
	var langs []string
	for _, l := range c.Languages {
		if l = strings.ToLower(strings.TrimSpace(l)); l != "" && !slices.Contains(langs, l) {
			langs = append(langs, l)
		}
	}
	c.Languages = langs
	c.DefaultLanguage = strings.ToLower(strings.TrimSpace(c.DefaultLanguage))

	return c.validate()
}

func (c *Config) validate() error {
	var errs []error
	switch c.LLMProvider {
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			errs = append(errs, errors.New("ANTHROPIC_API_KEY is required for the anthropic provider"))
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required for the gemini provider"))
		}
	case ProviderVenice:
		if c.VeniceAPIKey == "" {
			errs = append(errs, errors.New("VENICE_API_KEY is required for the venice provider"))
		}
	case ProviderMock:
	default:
		errs = append(errs, fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider))
	}
	if len(c.Languages) == 0 {
		errs = append(errs, errors.New("LANGUAGES must list at least one language"))
	} else if !slices.Contains(c.Languages, c.DefaultLanguage) {
		errs = append(errs, fmt.Errorf("DEFAULT_LANGUAGE %q is not in LANGUAGES %v", c.DefaultLanguage, c.Languages))
	}
	if c.CollaboratorTimeout <= 0 {
		errs = append(errs, errors.New("COLLABORATOR_TIMEOUT must be positive"))
	}
	if c.TurnLockTTL <= 0 {
		errs = append(errs, errors.New("TURN_LOCK_TTL must be positive"))
	} else if limit := CollaboratorCallsPerTurn * c.CollaboratorTimeout; c.TurnLockTTL <= limit {
		errs = append(errs, fmt.Errorf("TURN_LOCK_TTL %s must exceed %d collaborator calls of COLLABORATOR_TIMEOUT (%s)", c.TurnLockTTL, CollaboratorCallsPerTurn, limit))
	}
	return errors.Join(errs...)
}

// APIKey returns the key of the configured provider.
func (c *Config) APIKey() string {
	switch c.LLMProvider {
	case ProviderAnthropic:
		return c.AnthropicAPIKey
	case ProviderGemini:
		return c.GeminiAPIKey
	case ProviderVenice:
		return c.VeniceAPIKey
	}
	return ""
}

func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q", level)
	}
}
