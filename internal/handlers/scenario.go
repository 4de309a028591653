package handlers

import (
	"log/slog"
	"net/http"

	"github.com/jwebster45206/story-arena/pkg/scenario"
)

// ScenarioCatalog is the catalog surface the scenario endpoints need.
type ScenarioCatalog interface {
	All() []*scenario.Scenario
	Get(slug, locale string) (*scenario.Scenario, error)
	Locales(slug string) []string
	Reload() error
}

// ScenarioSummary is one entry of the scenario list.
type ScenarioSummary struct {
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Acts        int      `json:"acts"`
	TurnLimit   int      `json:"turn_limit"`
	Locales     []string `json:"locales,omitempty"`
}

type ScenarioHandler struct {
	catalog ScenarioCatalog
	logger  *slog.Logger
}

func NewScenarioHandler(catalog ScenarioCatalog, logger *slog.Logger) *ScenarioHandler {
	return &ScenarioHandler{catalog: catalog, logger: logger}
}

// List handles GET /v1/scenarios?lang=
func (h *ScenarioHandler) List(w http.ResponseWriter, r *http.Request) {
	lang := r.URL.Query().Get("lang")
	all := h.catalog.All()
	out := make([]ScenarioSummary, 0, len(all))
	for _, base := range all {
		s, err := h.catalog.Get(base.Slug, lang)
		if err != nil {
			s = base
		}
		out = append(out, ScenarioSummary{
			Slug:        s.Slug,
			Title:       s.Title,
			Description: s.Description,
			Acts:        len(s.Acts),
			TurnLimit:   s.TurnLimitOrDefault(),
			Locales:     h.catalog.Locales(s.Slug),
		})
	}
	writeJSON(w, h.logger, http.StatusOK, out)
}

// Get handles GET /v1/scenarios/{slug}?lang=
func (h *ScenarioHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.catalog.Get(r.PathValue("slug"), r.URL.Query().Get("lang"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, s)
}

// Reload handles POST /v1/scenarios/reload
func (h *ScenarioHandler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Reload(); err != nil {
		h.logger.Error("Failed to reload scenarios", "error", err)
		writeErrorMessage(w, h.logger, http.StatusInternalServerError, "Failed to reload scenarios")
		return
	}
	h.logger.Info("Scenarios reloaded", "count", len(h.catalog.All()))
	writeJSON(w, h.logger, http.StatusOK, map[string]int{"scenarios": len(h.catalog.All())})
}
