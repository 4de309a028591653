package handlers

import "net/http"

// NewRouter mounts every API route on a fresh mux.
func NewRouter(health *HealthHandler, scenarios *ScenarioHandler, games *GameHandler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("GET /health", health)

	mux.HandleFunc("GET /v1/scenarios", scenarios.List)
	mux.HandleFunc("GET /v1/scenarios/{slug}", scenarios.Get)
	mux.HandleFunc("POST /v1/scenarios/reload", scenarios.Reload)

	mux.HandleFunc("POST /v1/games", games.Start)
	mux.HandleFunc("GET /v1/games/{id}", games.Get)
	mux.HandleFunc("POST /v1/games/{id}/turns", games.Turn)
	mux.HandleFunc("GET /v1/games/{id}/saves", games.ListSaves)
	mux.HandleFunc("POST /v1/games/{id}/saves", games.Save)
	mux.HandleFunc("POST /v1/games/{id}/load", games.Load)
	mux.HandleFunc("POST /v1/games/{id}/replay", games.Replay)

	return mux
}
