package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/jwebster45206/story-arena/pkg/chat"
	"github.com/jwebster45206/story-arena/pkg/narration"
	"github.com/jwebster45206/story-arena/pkg/outcome"
	"github.com/jwebster45206/story-arena/pkg/prompts"
)

const (
	ratingTemperature = 0.2
	ratingMaxTokens   = 512
)

var (
	validDifficulties = []string{outcome.Trivial, outcome.Easy, outcome.Medium, outcome.Hard, outcome.Impossible}
	validDangers      = []string{outcome.DangerNone, outcome.DangerLow, outcome.DangerMedium, outcome.DangerHigh}
	validImpacts      = []string{outcome.ImpactNegative, outcome.ImpactNone, outcome.ImpactPositive, outcome.ImpactMajor}
)

// RatingService is a narration.DifficultyRater backed by an LLM.
type RatingService struct {
	llm    LLMService
	logger *slog.Logger
}

var _ narration.DifficultyRater = (*RatingService)(nil)

func NewRatingService(llm LLMService, logger *slog.Logger) *RatingService {
	return &RatingService{llm: llm, logger: logger}
}

// Rate asks the model for a JSON rating. A reply without a difficulty is an
// error; other unknown values are passed on for the resolver to normalize.
func (r *RatingService) Rate(ctx context.Context, req narration.RatingRequest) (*narration.Rating, error) {
	messages, err := prompts.New(prompts.KindRating).
		WithWorldContext(req.WorldContext).
		WithLanguage(req.Language).
		WithHero(req.Hero).
		WithScene(req.Scene).
		WithRecentActions(req.RecentActions).
		WithAction(req.Action).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build rating prompt: %w", err)
	}

	resp, err := r.llm.Complete(ctx, messages, chat.CompletionOptions{
		Temperature: ratingTemperature,
		MaxTokens:   ratingMaxTokens,
		JSON:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("rating request failed: %w", err)
	}

	var rating narration.Rating
	if err := decodeJSON(resp.Content, &rating); err != nil {
		return nil, fmt.Errorf("invalid rating response: %w", err)
	}
	rating.Difficulty = strings.ToLower(strings.TrimSpace(rating.Difficulty))
	rating.Danger = strings.ToLower(strings.TrimSpace(rating.Danger))
	rating.Impact = strings.ToLower(strings.TrimSpace(rating.Impact))
	if rating.Difficulty == "" {
		return nil, fmt.Errorf("invalid rating response: missing difficulty")
	}
	r.warnUnknown("difficulty", rating.Difficulty, validDifficulties)
	r.warnUnknown("danger", rating.Danger, validDangers)
	r.warnUnknown("impact", rating.Impact, validImpacts)

	rating.TokensUsed = resp.TotalTokens()
	return &rating, nil
}

func (r *RatingService) warnUnknown(field, value string, valid []string) {
	if value == "" || slices.Contains(valid, value) || r.logger == nil {
		return
	}
	r.logger.Warn("unknown rating value", "field", field, "value", value)
}
