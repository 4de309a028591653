package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jwebster45206/story-arena/internal/flows"
	"github.com/jwebster45206/story-arena/internal/logger"
	"github.com/jwebster45206/story-arena/pkg/game"
)

// GameFlows is the flow surface served over HTTP.
type GameFlows interface {
	StartScenario(ctx context.Context, req flows.StartRequest) (*flows.StartResult, error)
	ContinueTurn(ctx context.Context, gameID uuid.UUID, action string) (*flows.TurnResult, error)
	SaveGame(ctx context.Context, gameID uuid.UUID, label string, userID *uuid.UUID) (*game.Save, error)
	ListSaves(ctx context.Context, gameID uuid.UUID) ([]game.Save, error)
	LoadSave(ctx context.Context, gameID, saveID uuid.UUID) (*game.Game, error)
	ReplayAct(ctx context.Context, gameID uuid.UUID, n int) (*game.Game, error)
	GameView(ctx context.Context, gameID uuid.UUID) (*flows.View, error)
}

var _ GameFlows = (*flows.Processor)(nil)

type StartGameRequest struct {
	Scenario string     `json:"scenario"`
	HeroID   *uuid.UUID `json:"hero_id,omitempty"`
	UserID   *uuid.UUID `json:"user_id,omitempty"`
	Language string     `json:"language,omitempty"`
}

type TurnRequest struct {
	Action string `json:"action"`
}

type SaveRequest struct {
	Label  string     `json:"label,omitempty"`
	UserID *uuid.UUID `json:"user_id,omitempty"`
}

type LoadRequest struct {
	SaveID uuid.UUID `json:"save_id"`
}

type ReplayRequest struct {
	Act int `json:"act"`
}

type GameHandler struct {
	flows  GameFlows
	logger *slog.Logger
}

func NewGameHandler(f GameFlows, logger *slog.Logger) *GameHandler {
	return &GameHandler{flows: f, logger: logger}
}

// gameID parses the {id} path value, answering 400 when it is malformed.
func (h *GameHandler) gameID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := pathID(r, "id")
	if !ok {
		h.logger.Warn("Invalid game ID", "id", r.PathValue("id"))
		writeErrorMessage(w, h.logger, http.StatusBadRequest, "Invalid game ID format")
	}
	return id, ok
}

func (h *GameHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := decodeBody(r, v); err != nil {
		h.logger.Warn("Invalid request body", "path", r.URL.Path, "error", err)
		writeErrorMessage(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// Start handles POST /v1/games
func (h *GameHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartGameRequest
	if !h.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Scenario) == "" {
		writeErrorMessage(w, h.logger, http.StatusBadRequest, "scenario is required")
		return
	}
	res, err := h.flows.StartScenario(r.Context(), flows.StartRequest{
		ScenarioSlug: req.Scenario,
		HeroID:       req.HeroID,
		UserID:       req.UserID,
		Language:     req.Language,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, res)
}

// Get handles GET /v1/games/{id}
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.gameID(w, r)
	if !ok {
		return
	}
	v, err := h.flows.GameView(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, v)
}

// Turn handles POST /v1/games/{id}/turns
func (h *GameHandler) Turn(w http.ResponseWriter, r *http.Request) {
	id, ok := h.gameID(w, r)
	if !ok {
		return
	}
	var req TurnRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.flows.ContinueTurn(r.Context(), id, req.Action)
	if err != nil {
		writeError(w, r, logger.WithGame(h.logger, id.String()), err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, res)
}

// ListSaves handles GET /v1/games/{id}/saves
func (h *GameHandler) ListSaves(w http.ResponseWriter, r *http.Request) {
	id, ok := h.gameID(w, r)
	if !ok {
		return
	}
	saves, err := h.flows.ListSaves(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if saves == nil {
		saves = []game.Save{}
	}
	writeJSON(w, h.logger, http.StatusOK, saves)
}

// Save handles POST /v1/games/{id}/saves
func (h *GameHandler) Save(w http.ResponseWriter, r *http.Request) {
	id, ok := h.gameID(w, r)
	if !ok {
		return
	}
	var req SaveRequest
	if !h.decode(w, r, &req) {
		return
	}
	save, err := h.flows.SaveGame(r.Context(), id, req.Label, req.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, save)
}

// Load handles POST /v1/games/{id}/load
func (h *GameHandler) Load(w http.ResponseWriter, r *http.Request) {
	id, ok := h.gameID(w, r)
	if !ok {
		return
	}
	var req LoadRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.SaveID == uuid.Nil {
		writeErrorMessage(w, h.logger, http.StatusBadRequest, "save_id is required")
		return
	}
	g, err := h.flows.LoadSave(r.Context(), id, req.SaveID)
	if err != nil {
		writeError(w, r, logger.WithGame(h.logger, id.String()), err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, g)
}

// Replay handles POST /v1/games/{id}/replay
func (h *GameHandler) Replay(w http.ResponseWriter, r *http.Request) {
	id, ok := h.gameID(w, r)
	if !ok {
		return
	}
	var req ReplayRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Act < 1 {
		writeErrorMessage(w, h.logger, http.StatusBadRequest, "act must be a positive act number")
		return
	}
	g, err := h.flows.ReplayAct(r.Context(), id, req.Act)
	if err != nil {
		writeError(w, r, logger.WithGame(h.logger, id.String()), err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, g)
}
