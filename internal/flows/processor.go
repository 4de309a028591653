// Package flows orchestrates the game: starting a scenario, resolving
// turns, saving, loading and replaying acts. Every mutating flow writes in a
// single storage transaction; rater and narrator calls happen before it opens.
package flows

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jwebster45206/story-arena/internal/lock"
	"github.com/jwebster45206/story-arena/pkg/actor"
	"github.com/jwebster45206/story-arena/pkg/game"
	"github.com/jwebster45206/story-arena/pkg/narration"
	"github.com/jwebster45206/story-arena/pkg/outcome"
	"github.com/jwebster45206/story-arena/pkg/scenario"
	"github.com/jwebster45206/story-arena/pkg/storage"
)

const (
	tracerName = "github.com/jwebster45206/story-arena/internal/flows"

	DefaultCollaboratorTimeout = 90 * time.Second
	DefaultLanguage            = "en"

	recentActionCount = 3
)

// Catalog is the read side of the scenario catalog used by the flows.
type Catalog interface {
	Get(slug, locale string) (*scenario.Scenario, error)
}

// Processor runs the game flows.
type Processor struct {
	catalog  Catalog
	store    storage.Storage
	rater    narration.DifficultyRater
	narrator narration.Narrator
	resolver *outcome.Resolver
	locker   lock.Locker
	logger   *slog.Logger
	tracer   trace.Tracer

	collaboratorTimeout time.Duration
	languages           []string
	defaultLanguage     string
}

// Option configures a Processor.
type Option func(*Processor)

// WithCollaboratorTimeout bounds every rater and narrator call.
func WithCollaboratorTimeout(d time.Duration) Option {
	return func(p *Processor) {
		if d > 0 {
			p.collaboratorTimeout = d
		}
	}
}

// WithLanguages sets the accepted game languages and the default used when a
// game is started without one.
func WithLanguages(languages []string, defaultLanguage string) Option {
	return func(p *Processor) {
		if len(languages) > 0 {
			p.languages = slices.Clone(languages)
		}
		if defaultLanguage != "" {
			p.defaultLanguage = defaultLanguage
		}
	}
}

// WithTracer replaces the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(p *Processor) { p.tracer = t }
}

// NewProcessor wires the flows. A nil resolver gets the default dice, a nil
// locker an in-process lock.
func NewProcessor(
	catalog Catalog,
	store storage.Storage,
	rater narration.DifficultyRater,
	narrator narration.Narrator,
	resolver *outcome.Resolver,
	locker lock.Locker,
	logger *slog.Logger,
	opts ...Option,
) *Processor {
	if resolver == nil {
		resolver = outcome.NewResolver()
	}
	if locker == nil {
		locker = lock.NewLocalLocker()
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{
		catalog:             catalog,
		store:               store,
		rater:               rater,
		narrator:            narrator,
		resolver:            resolver,
		locker:              locker,
		logger:              logger,
		tracer:              otel.Tracer(tracerName),
		collaboratorTimeout: DefaultCollaboratorTimeout,
		languages:           []string{DefaultLanguage},
		defaultLanguage:     DefaultLanguage,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Languages returns the accepted game languages.
func (p *Processor) Languages() []string {
	return slices.Clone(p.languages)
}

func (p *Processor) resolveLanguage(lang string) (string, error) {
	if lang == "" {
		return p.defaultLanguage, nil
	}
	if !slices.Contains(p.languages, lang) {
		return "", fmt.Errorf("%w: unsupported language %q", ErrValidation, lang)
	}
	return lang, nil
}

// lockGame holds the per-game turn lock.
func (p *Processor) lockGame(ctx context.Context, gameID uuid.UUID) (func(), error) {
	release, err := p.locker.Acquire(ctx, gameID)
	if errors.Is(err, lock.ErrLocked) {
		return nil, ErrTurnInProgress
	}
	if err != nil {
		return nil, err
	}
	return release, nil
}

func (p *Processor) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// endSpan records err on span and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// collaborate runs fn under the collaborator timeout and classifies its error.
func collaborate[T any](ctx context.Context, p *Processor, name string, fn func(context.Context) (*T, error)) (*T, error) {
	ctx, span := p.startSpan(ctx, name)
	cctx, cancel := context.WithTimeout(ctx, p.collaboratorTimeout)
	defer cancel()

	out, err := fn(cctx)
	if err == nil && out == nil {
		err = errors.New("empty result")
	}
	if err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrCollaborator, name, err)
	}
	endSpan(span, err)
	return out, err
}

// loadGame reads an active or finished game.
func loadGame(ctx context.Context, r storage.Reader, gameID uuid.UUID) (*game.Game, error) {
	g, err := r.GetGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to load game: %w", err)
	}
	return g, nil
}

// heroFor finds the persisted hero for a template, creating it on first use.
func heroFor(ctx context.Context, tx storage.Tx, t *scenario.HeroTemplate) (*actor.HeroSpec, error) {
	h, err := tx.FindHeroBySlug(ctx, t.Slug)
	if err == nil {
		return h, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to find hero: %w", err)
	}
	h = actor.NewHeroSpec(t)
	if err := tx.CreateHero(ctx, h); err != nil {
		return nil, fmt.Errorf("failed to create hero: %w", err)
	}
	return h, nil
}

// lookupHero returns the stored hero for a template, or an unsaved record
// built from it when none exists yet.
func lookupHero(ctx context.Context, r storage.Reader, t *scenario.HeroTemplate) (*actor.HeroSpec, error) {
	h, err := r.FindHeroBySlug(ctx, t.Slug)
	if errors.Is(err, storage.ErrNotFound) {
		return actor.NewHeroSpec(t), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find hero: %w", err)
	}
	return h, nil
}

// heroProfile builds the collaborator view of a game's hero.
func heroProfile(ctx context.Context, r storage.Reader, heroID uuid.UUID) (actor.Profile, error) {
	spec, err := r.GetHero(ctx, heroID)
	if err != nil {
		return actor.Profile{}, fmt.Errorf("failed to load hero: %w", err)
	}
	return profileOf(spec)
}

func profileOf(spec *actor.HeroSpec) (actor.Profile, error) {
	h, err := actor.NewHeroFromSpec(spec)
	if err != nil {
		return actor.Profile{}, fmt.Errorf("failed to build hero: %w", err)
	}
	return h.Profile(), nil
}

// nextTurnNumber is one above the highest stored turn number.
func nextTurnNumber(turns []game.Turn) int {
	if len(turns) == 0 {
		return 1
	}
	return turns[len(turns)-1].TurnNumber + 1
}

func lastTurnNumber(turns []game.Turn) int {
	if len(turns) == 0 {
		return 0
	}
	return turns[len(turns)-1].TurnNumber
}

// recentActions returns the last few player turns, oldest first.
func recentActions(turns []game.Turn) []narration.RecentAction {
	var out []narration.RecentAction
	for i := len(turns) - 1; i >= 0 && len(out) < recentActionCount; i-- {
		t := turns[i]
		if !t.IsPlayerTurn() {
			continue
		}
		out = append(out, narration.RecentAction{
			TurnNumber:    t.TurnNumber,
			Action:        t.OptionSelected,
			ResolutionTag: t.ResolutionTag,
		})
	}
	slices.Reverse(out)
	return out
}

// memoryNotes returns every non-empty turn memory in turn order.
func memoryNotes(turns []game.Turn) []string {
	var out []string
	for _, t := range turns {
		if t.LLMMemory != "" {
			out = append(out, t.LLMMemory)
		}
	}
	return out
}
