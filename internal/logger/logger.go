package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/jwebster45206/story-arena/internal/config"
)

// Setup configures the global slog logger based on environment
func Setup(cfg *config.Config) *slog.Logger {
	return setup(cfg, os.Stdout)
}

func setup(cfg *config.Config, w io.Writer) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	if cfg.Environment == "production" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler).With("service", cfg.ServiceName)
	slog.SetDefault(logger)
	return logger
}

// WithGame scopes a logger to one game.
func WithGame(logger *slog.Logger, gameID string) *slog.Logger {
	return logger.With("game_id", gameID)
}
