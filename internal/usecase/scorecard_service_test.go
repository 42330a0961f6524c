package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/flagday/scorecard/internal/domain/scorecard"
	"github.com/flagday/scorecard/internal/infrastructure/repository/memory"
	scorecardmock "github.com/flagday/scorecard/internal/mocks/domain/scorecard"
	"github.com/flagday/scorecard/internal/platform/logging"
)

type capturePublisher struct {
	views chan scorecard.GameScoreView
}

func newCapturePublisher() *capturePublisher {
	return &capturePublisher{views: make(chan scorecard.GameScoreView, 16)}
}

func (p *capturePublisher) PublishSnapshot(_ context.Context, view scorecard.GameScoreView) error {
	p.views <- view
	return nil
}

func (p *capturePublisher) waitForPush(t *testing.T) scorecard.GameScoreView {
	t.Helper()
	select {
	case view := <-p.views:
		return view
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot pushed")
		return scorecard.GameScoreView{}
	}
}

func newTestService(t *testing.T, publisher SnapshotPublisher) (*ScorecardService, *memory.ScorecardRepository) {
	t.Helper()
	repo := memory.NewScorecardRepository()
	svc, err := NewScorecardService(repo, publisher, logging.NewNop())
	if err != nil {
		t.Fatalf("create service: %v", err)
	}
	t.Cleanup(svc.Close)
	return svc, repo
}

func jersey(n int) *int { return &n }

func TestScorecardService_CreateGame_RejectsDuplicate(t *testing.T) {
	svc, _ := newTestService(t, nil)

	if _, err := svc.CreateGame(t.Context(), CreateGameInput{GameID: "game-1", HomeName: "Rapids", AwayName: "Comets"}); err != nil {
		t.Fatalf("create game failed: %v", err)
	}

	_, err := svc.CreateGame(t.Context(), CreateGameInput{GameID: "game-1", HomeName: "Rapids", AwayName: "Comets"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for duplicate game, got %v", err)
	}
}

func TestScorecardService_CreateGame_RejectsBlankNames(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.CreateGame(t.Context(), CreateGameInput{GameID: "game-1", HomeName: "  ", AwayName: "Comets"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestScorecardService_AppendEvent_ScoresAndPushes(t *testing.T) {
	publisher := newCapturePublisher()
	svc, _ := newTestService(t, publisher)

	if _, err := svc.CreateGame(t.Context(), CreateGameInput{GameID: "game-1", HomeName: "Rapids", AwayName: "Comets"}); err != nil {
		t.Fatalf("create game failed: %v", err)
	}

	view, err := svc.AppendEvent(t.Context(), "game-1", AppendEventInput{
		Team: "home", Half: 1, Kind: "touchdown", Jersey: jersey(7),
	})
	if err != nil {
		t.Fatalf("append touchdown failed: %v", err)
	}
	if view.Home.Score != 6 {
		t.Fatalf("unexpected home score after touchdown: %d", view.Home.Score)
	}

	pushed := publisher.waitForPush(t)
	if pushed.Home.Score != 6 {
		t.Fatalf("pushed snapshot has score %d, want 6", pushed.Home.Score)
	}

	view, err = svc.AppendEvent(t.Context(), "game-1", AppendEventInput{
		Team: "home", Half: 1, Kind: "extra_point_one", Jersey: jersey(12),
	})
	if err != nil {
		t.Fatalf("append conversion failed: %v", err)
	}
	if view.Home.Score != 7 {
		t.Fatalf("unexpected home score after conversion: %d", view.Home.Score)
	}
	if !view.Home.FirstHalf.Played || view.Home.FirstHalf.Points != 7 {
		t.Fatalf("unexpected first half subtotal: %+v", view.Home.FirstHalf)
	}
	if view.Home.SecondHalf.Played {
		t.Fatalf("second half should not be played yet")
	}
}

func TestScorecardService_AppendEvent_OrphanConversionScoresNothing(t *testing.T) {
	svc, _ := newTestService(t, nil)

	if _, err := svc.CreateGame(t.Context(), CreateGameInput{GameID: "game-1", HomeName: "Rapids", AwayName: "Comets"}); err != nil {
		t.Fatalf("create game failed: %v", err)
	}

	view, err := svc.AppendEvent(t.Context(), "game-1", AppendEventInput{
		Team: "away", Half: 1, Kind: "extra_point_two",
	})
	if err != nil {
		t.Fatalf("append orphan conversion failed: %v", err)
	}
	if view.Away.Score != 0 {
		t.Fatalf("orphan conversion must not score, got %d", view.Away.Score)
	}
}

func TestScorecardService_AppendEvent_RejectsInvalidTarget(t *testing.T) {
	svc, _ := newTestService(t, nil)

	if _, err := svc.CreateGame(t.Context(), CreateGameInput{GameID: "game-1", HomeName: "Rapids", AwayName: "Comets"}); err != nil {
		t.Fatalf("create game failed: %v", err)
	}

	_, err := svc.AppendEvent(t.Context(), "game-1", AppendEventInput{Team: "visitors", Half: 1, Kind: "touchdown"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown team, got %v", err)
	}

	_, err = svc.AppendEvent(t.Context(), "game-1", AppendEventInput{Team: "home", Half: 3, Kind: "touchdown"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown half, got %v", err)
	}
}

func TestScorecardService_UndoLast(t *testing.T) {
	svc, _ := newTestService(t, nil)

	if _, err := svc.CreateGame(t.Context(), CreateGameInput{GameID: "game-1", HomeName: "Rapids", AwayName: "Comets"}); err != nil {
		t.Fatalf("create game failed: %v", err)
	}
	if _, err := svc.AppendEvent(t.Context(), "game-1", AppendEventInput{Team: "home", Half: 1, Kind: "touchdown"}); err != nil {
		t.Fatalf("append touchdown failed: %v", err)
	}

	view, err := svc.UndoLast(t.Context(), "game-1", "home", 1)
	if err != nil {
		t.Fatalf("undo failed: %v", err)
	}
	if view.Home.Score != 0 {
		t.Fatalf("unexpected score after undo: %d", view.Home.Score)
	}

	_, err = svc.UndoLast(t.Context(), "game-1", "home", 1)
	if !errors.Is(err, scorecard.ErrEmptyLedger) {
		t.Fatalf("expected ErrEmptyLedger on second undo, got %v", err)
	}
}

func TestScorecardService_PhaseTransitions(t *testing.T) {
	svc, _ := newTestService(t, nil)

	if _, err := svc.CreateGame(t.Context(), CreateGameInput{GameID: "game-1", HomeName: "Rapids", AwayName: "Comets"}); err != nil {
		t.Fatalf("create game failed: %v", err)
	}

	_, err := svc.AppendEvent(t.Context(), "game-1", AppendEventInput{Team: "home", Half: 2, Kind: "touchdown"})
	if !errors.Is(err, scorecard.ErrHalfNotStarted) {
		t.Fatalf("expected ErrHalfNotStarted before advance, got %v", err)
	}

	view, err := svc.AdvanceToSecondHalf(t.Context(), "game-1")
	if err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	if view.Phase != scorecard.PhaseSecondHalf {
		t.Fatalf("unexpected phase: %s", view.Phase)
	}
	if !view.Home.SecondHalf.Played {
		t.Fatalf("second half should report a zero subtotal once open")
	}

	if _, err := svc.Finalize(t.Context(), "game-1"); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	_, err = svc.AppendEvent(t.Context(), "game-1", AppendEventInput{Team: "home", Half: 2, Kind: "safety"})
	if !errors.Is(err, scorecard.ErrGameFinished) {
		t.Fatalf("expected ErrGameFinished, got %v", err)
	}
}

func TestScorecardService_SessionSurvivesRepoAndCloseReloads(t *testing.T) {
	svc, repo := newTestService(t, nil)

	if _, err := svc.CreateGame(t.Context(), CreateGameInput{GameID: "game-1", HomeName: "Rapids", AwayName: "Comets"}); err != nil {
		t.Fatalf("create game failed: %v", err)
	}
	if _, err := svc.AppendEvent(t.Context(), "game-1", AppendEventInput{Team: "home", Half: 1, Kind: "touchdown"}); err != nil {
		t.Fatalf("append touchdown failed: %v", err)
	}

	// The session copy is authoritative until closed; force a save so the
	// reload below sees the event.
	svc.mu.Lock()
	game := svc.sessions["game-1"]
	svc.mu.Unlock()
	if err := repo.SaveGame(t.Context(), game); err != nil {
		t.Fatalf("save game: %v", err)
	}

	svc.CloseSession("game-1")

	view, err := svc.OpenSession(t.Context(), "game-1")
	if err != nil {
		t.Fatalf("reopen session failed: %v", err)
	}
	if view.Home.Score != 6 {
		t.Fatalf("reloaded score mismatch: %d", view.Home.Score)
	}
}

func TestScorecardService_ListScoreboard_SortedWithSessionPrecedence(t *testing.T) {
	svc, _ := newTestService(t, nil)

	for _, gameID := range []string{"game-b", "game-a"} {
		if _, err := svc.CreateGame(t.Context(), CreateGameInput{GameID: gameID, HomeName: "Rapids", AwayName: "Comets"}); err != nil {
			t.Fatalf("create %s failed: %v", gameID, err)
		}
	}

	// Session edit not yet persisted must still show on the scoreboard.
	if _, err := svc.AppendEvent(t.Context(), "game-b", AppendEventInput{Team: "away", Half: 1, Kind: "safety"}); err != nil {
		t.Fatalf("append safety failed: %v", err)
	}

	views, err := svc.ListScoreboard(t.Context())
	if err != nil {
		t.Fatalf("list scoreboard failed: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("unexpected view count: %d", len(views))
	}
	if views[0].GameID != "game-a" || views[1].GameID != "game-b" {
		t.Fatalf("scoreboard not sorted: %s, %s", views[0].GameID, views[1].GameID)
	}
	if views[1].Away.Score != 2 {
		t.Fatalf("session edit missing from scoreboard: %d", views[1].Away.Score)
	}
}

func TestScorecardService_OpenSession_NotFoundUsingMockery(t *testing.T) {
	repo := scorecardmock.NewRepository(t)
	svc, err := NewScorecardService(repo, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("create service: %v", err)
	}
	t.Cleanup(svc.Close)

	repo.
		On("GetGame", mock.Anything, "missing-game").
		Return(nil, false, nil).
		Once()

	_, err = svc.OpenSession(t.Context(), "missing-game")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestScorecardService_CreateGame_RepoErrorUsingMockery(t *testing.T) {
	repo := scorecardmock.NewRepository(t)
	svc, err := NewScorecardService(repo, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("create service: %v", err)
	}
	t.Cleanup(svc.Close)

	repoErr := errors.New("connection refused")
	repo.
		On("GetGame", mock.Anything, "game-1").
		Return(nil, false, repoErr).
		Once()

	_, err = svc.CreateGame(t.Context(), CreateGameInput{GameID: "game-1", HomeName: "Rapids", AwayName: "Comets"})
	if !errors.Is(err, repoErr) {
		t.Fatalf("expected wrapped repo error, got %v", err)
	}
}
