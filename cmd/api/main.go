package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jwebster45206/story-arena/internal/config"
	"github.com/jwebster45206/story-arena/internal/flows"
	"github.com/jwebster45206/story-arena/internal/handlers"
	"github.com/jwebster45206/story-arena/internal/lock"
	"github.com/jwebster45206/story-arena/internal/logger"
	"github.com/jwebster45206/story-arena/internal/middleware"
	"github.com/jwebster45206/story-arena/internal/services"
	"github.com/jwebster45206/story-arena/internal/storage/sqlite"
	"github.com/jwebster45206/story-arena/internal/telemetry"
	"github.com/jwebster45206/story-arena/pkg/narration"
	"github.com/jwebster45206/story-arena/pkg/outcome"
	"github.com/jwebster45206/story-arena/pkg/scenario"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Story Arena API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"llm_provider", cfg.LLMProvider,
		"rating_model", cfg.RatingModel,
		"narrator_model", cfg.NarratorModel)

	ctx := context.Background()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTLPEndpoint, cfg.ServiceName)
	if err != nil {
		log.Error("Failed to set up tracing", "error", err)
		os.Exit(1)
	}

	catalog, err := scenario.LoadCatalog(cfg.ScenariosDir, log)
	if err != nil {
		log.Error("Failed to load scenarios", "dir", cfg.ScenariosDir, "error", err)
		os.Exit(1)
	}
	log.Info("Scenarios loaded", "count", len(catalog.All()))

	storeCtx, storeCancel := context.WithTimeout(ctx, 30*time.Second)
	store, err := sqlite.Open(storeCtx, cfg.DatabasePath)
	storeCancel()
	if err != nil {
		log.Error("Failed to open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully", "path", cfg.DatabasePath)

	components := map[string]handlers.Pinger{"storage": store}
	var locker lock.Locker = lock.NewLocalLocker()
	var closers []io.Closer
	if cfg.RedisURL != "" {
		lockCtx, lockCancel := context.WithTimeout(ctx, 10*time.Second)
		redisLocker, err := lock.NewRedisLocker(lockCtx, cfg.RedisURL, cfg.TurnLockTTL, log)
		lockCancel()
		if err != nil {
			log.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		locker = redisLocker
		components["redis"] = redisLocker
		closers = append(closers, redisLocker)
	}

	rater, narrator, llmClosers, err := collaborators(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to initialize LLM provider", "provider", cfg.LLMProvider, "error", err)
		os.Exit(1)
	}
	closers = append(closers, llmClosers...)

	resolverOpts := []outcome.Option{}
	if cfg.IrrelevantActionCap {
		resolverOpts = append(resolverOpts, outcome.WithIrrelevantActionCap())
	}
	processor := flows.NewProcessor(catalog, store, rater, narrator, outcome.NewResolver(resolverOpts...), locker, log,
		flows.WithCollaboratorTimeout(cfg.CollaboratorTimeout),
		flows.WithLanguages(cfg.Languages, cfg.DefaultLanguage))

	mux := handlers.NewRouter(
		handlers.NewHealthHandler(cfg.ServiceName, components, log),
		handlers.NewScenarioHandler(catalog, log),
		handlers.NewGameHandler(processor, log),
	)

	handler := otelhttp.NewHandler(middleware.Logger(log)(mux), "story-arena-api")
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// Turns wait on two LLM calls.
		WriteTimeout: 2*cfg.CollaboratorTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}
	for _, c := range closers {
		if err := c.Close(); err != nil {
			log.Error("Error closing connection", "error", err)
		}
	}
	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("Error flushing traces", "error", err)
	}

	log.Info("Server exited")
}

// collaborators builds the rater and narrator for the configured provider.
// Rating and narration use separate models.
func collaborators(ctx context.Context, cfg *config.Config, log *slog.Logger) (narration.DifficultyRater, narration.Narrator, []io.Closer, error) {
	if cfg.LLMProvider == config.ProviderMock {
		log.Warn("Using mock collaborators; narration is canned")
		return &narration.MockRater{}, &narration.MockNarrator{}, nil, nil
	}

	ratingLLM, err := services.NewLLMService(ctx, cfg.LLMProvider, cfg.APIKey(), cfg.RatingModel, log)
	if err != nil {
		return nil, nil, nil, err
	}
	narratorLLM, err := services.NewLLMService(ctx, cfg.LLMProvider, cfg.APIKey(), cfg.NarratorModel, log)
	if err != nil {
		return nil, nil, nil, err
	}

	var closers []io.Closer
	for _, l := range []services.LLMService{ratingLLM, narratorLLM} {
		if c, ok := l.(io.Closer); ok {
			closers = append(closers, c)
		}
	}
	log.Info("Using LLM provider", "provider", cfg.LLMProvider)
	return services.NewRatingService(ratingLLM, log), services.NewNarratorService(narratorLLM, log), closers, nil
}
