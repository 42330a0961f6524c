package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerPublicRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/scoreboard", handler.ListScoreboard)
	mux.HandleFunc("GET /v1/games/{gameID}", handler.GetGame)
}

func registerScorerRoutes(mux *http.ServeMux, handler *Handler, scorerToken string) {
	mux.Handle("POST /v1/games", RequireScorerToken(scorerToken, http.HandlerFunc(handler.CreateGame)))
	mux.Handle("POST /v1/games/{gameID}/events", RequireScorerToken(scorerToken, http.HandlerFunc(handler.AppendEvent)))
	mux.Handle("DELETE /v1/games/{gameID}/events/last", RequireScorerToken(scorerToken, http.HandlerFunc(handler.UndoLastEvent)))
	mux.Handle("POST /v1/games/{gameID}/advance", RequireScorerToken(scorerToken, http.HandlerFunc(handler.AdvanceToSecondHalf)))
	mux.Handle("POST /v1/games/{gameID}/finalize", RequireScorerToken(scorerToken, http.HandlerFunc(handler.FinalizeGame)))
	mux.Handle("DELETE /v1/games/{gameID}/session", RequireScorerToken(scorerToken, http.HandlerFunc(handler.CloseSession)))
}
