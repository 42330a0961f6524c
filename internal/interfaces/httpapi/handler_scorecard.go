package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/flagday/scorecard/internal/domain/scorecard"
	"github.com/flagday/scorecard/internal/usecase"
)

func (h *Handler) CreateGame(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CreateGame")
	defer span.End()

	var req createGameRequest
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	view, err := h.scorecardService.CreateGame(ctx, usecase.CreateGameInput{
		GameID:   req.GameID,
		HomeName: req.HomeName,
		AwayName: req.AwayName,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "create game failed", "game_id", req.GameID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, gameViewToDTO(ctx, view))
}

func (h *Handler) GetGame(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetGame")
	defer span.End()

	gameID := strings.TrimSpace(r.PathValue("gameID"))
	view, err := h.scorecardService.Snapshot(ctx, gameID)
	if err != nil {
		h.logger.WarnContext(ctx, "get game failed", "game_id", gameID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, gameViewToDTO(ctx, view))
}

func (h *Handler) ListScoreboard(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListScoreboard")
	defer span.End()

	views, err := h.scorecardService.ListScoreboard(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "list scoreboard failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]gameViewDTO, 0, len(views))
	for _, view := range views {
		items = append(items, gameViewToDTO(ctx, view))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) AppendEvent(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.AppendEvent")
	defer span.End()

	gameID := strings.TrimSpace(r.PathValue("gameID"))
	var req appendEventRequest
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	view, err := h.scorecardService.AppendEvent(ctx, gameID, usecase.AppendEventInput{
		Team:               req.Team,
		Half:               req.Half,
		Kind:               req.Kind,
		Jersey:             req.Jersey,
		ChangeOfPossession: req.ChangeOfPossession,
		Label:              req.Label,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "append event failed", "game_id", gameID, "kind", req.Kind, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, gameViewToDTO(ctx, view))
}

func (h *Handler) UndoLastEvent(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.UndoLastEvent")
	defer span.End()

	gameID := strings.TrimSpace(r.PathValue("gameID"))
	team := strings.TrimSpace(r.URL.Query().Get("team"))
	half, err := parseHalfQuery(r.URL.Query().Get("half"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	view, err := h.scorecardService.UndoLast(ctx, gameID, team, half)
	if err != nil {
		h.logger.WarnContext(ctx, "undo event failed", "game_id", gameID, "team", team, "half", half, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, gameViewToDTO(ctx, view))
}

func (h *Handler) AdvanceToSecondHalf(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.AdvanceToSecondHalf")
	defer span.End()

	gameID := strings.TrimSpace(r.PathValue("gameID"))
	view, err := h.scorecardService.AdvanceToSecondHalf(ctx, gameID)
	if err != nil {
		h.logger.WarnContext(ctx, "advance to second half failed", "game_id", gameID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, gameViewToDTO(ctx, view))
}

func (h *Handler) FinalizeGame(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.FinalizeGame")
	defer span.End()

	gameID := strings.TrimSpace(r.PathValue("gameID"))
	view, err := h.scorecardService.Finalize(ctx, gameID)
	if err != nil {
		h.logger.WarnContext(ctx, "finalize game failed", "game_id", gameID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, gameViewToDTO(ctx, view))
}

func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CloseSession")
	defer span.End()

	gameID := strings.TrimSpace(r.PathValue("gameID"))
	h.scorecardService.CloseSession(gameID)

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "closed"})
}

func parseHalfQuery(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%w: half query parameter is required", usecase.ErrInvalidInput)
	}
	half, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: half must be a number: %v", usecase.ErrInvalidInput, err)
	}
	return half, nil
}

type createGameRequest struct {
	GameID   string `json:"gameId" validate:"required,max=100"`
	HomeName string `json:"homeName" validate:"required,max=100"`
	AwayName string `json:"awayName" validate:"required,max=100"`
}

type appendEventRequest struct {
	Team               string `json:"team" validate:"required,oneof=home away"`
	Half               int    `json:"half" validate:"required,oneof=1 2"`
	Kind               string `json:"kind" validate:"required,oneof=touchdown extra_point_one extra_point_two safety turnover note"`
	Jersey             *int   `json:"jersey" validate:"omitempty,min=0,max=99"`
	ChangeOfPossession bool   `json:"changeOfPossession"`
	Label              string `json:"label" validate:"max=200"`
}

type gameViewDTO struct {
	GameID string      `json:"gameId"`
	Phase  string      `json:"phase"`
	Home   teamViewDTO `json:"home"`
	Away   teamViewDTO `json:"away"`
}

type teamViewDTO struct {
	Name             string     `json:"name"`
	Score            int        `json:"score"`
	FirstHalf        *int       `json:"firstHalf"`
	SecondHalf       *int       `json:"secondHalf"`
	FirstHalfEvents  []entryDTO `json:"firstHalfEvents"`
	SecondHalfEvents []entryDTO `json:"secondHalfEvents"`
}

type entryDTO struct {
	Sequence           int    `json:"sequence"`
	Kind               string `json:"kind"`
	Jersey             *int   `json:"jersey,omitempty"`
	ChangeOfPossession bool   `json:"changeOfPossession,omitempty"`
	Label              string `json:"label,omitempty"`
}

func gameViewToDTO(ctx context.Context, view scorecard.GameScoreView) gameViewDTO {
	ctx, span := startSpan(ctx, "httpapi.gameViewToDTO")
	defer span.End()

	return gameViewDTO{
		GameID: view.GameID,
		Phase:  string(view.Phase),
		Home:   teamViewToDTO(ctx, view.Home),
		Away:   teamViewToDTO(ctx, view.Away),
	}
}

func teamViewToDTO(ctx context.Context, team scorecard.TeamScoreView) teamViewDTO {
	ctx, span := startSpan(ctx, "httpapi.teamViewToDTO")
	defer span.End()

	return teamViewDTO{
		Name:             team.Name,
		Score:            team.Score,
		FirstHalf:        halfPointsToDTO(team.FirstHalf),
		SecondHalf:       halfPointsToDTO(team.SecondHalf),
		FirstHalfEvents:  entriesToDTO(team.FirstHalfEvents),
		SecondHalfEvents: entriesToDTO(team.SecondHalfEvents),
	}
}

// halfPointsToDTO maps the not-played sentinel to JSON null so clients can
// tell "0 points scored" apart from "half not started".
func halfPointsToDTO(half scorecard.HalfScore) *int {
	if !half.Played {
		return nil
	}
	v := half.Points
	return &v
}

func entriesToDTO(records []scorecard.EventRecord) []entryDTO {
	out := make([]entryDTO, 0, len(records))
	for _, record := range records {
		out = append(out, entryDTO{
			Sequence:           record.Sequence,
			Kind:               string(record.Event.Kind),
			Jersey:             record.Event.Jersey,
			ChangeOfPossession: record.Event.ChangeOfPossession,
			Label:              record.Event.Label,
		})
	}
	return out
}
