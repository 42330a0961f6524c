package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/sourcegraph/conc/pool"

	"github.com/flagday/scorecard/internal/domain/scorecard"
	"github.com/flagday/scorecard/internal/platform/cache"
	"github.com/flagday/scorecard/internal/platform/logging"
	"github.com/flagday/scorecard/internal/platform/resilience"
)

// SnapshotPublisher pushes a freshly computed score view to the live ticker.
// Publishing is best-effort; a failed push never touches ledger state.
type SnapshotPublisher interface {
	PublishSnapshot(ctx context.Context, view scorecard.GameScoreView) error
}

const (
	defaultPushWorkers      = 8
	defaultPushTimeout      = 5 * time.Second
	defaultScoreboardFanOut = 8
	scoreboardCacheTTL      = 2 * time.Second
	scoreboardCacheKey      = "scoreboard"
)

// ScorecardService owns one in-memory GameLedger per open scorecard session.
// A session is the editing unit: opened when a scorer opens the view, closed
// when they leave. The repository holds the authoritative copy; after every
// mutation the raw document is persisted and the snapshot pushed to the
// ticker, both asynchronously (spectator-facing state is eventually
// consistent, the scorer's session is not).
type ScorecardService struct {
	repo          scorecard.Repository
	publisher     SnapshotPublisher
	logger        *logging.Logger
	pushPool      *ants.Pool
	loadsInFlight resilience.SingleFlight
	pushTimeout   time.Duration

	// scoreboardCache absorbs spectator polling. Every mutation drops the
	// entry, so a stale scoreboard can only ever be TTL-old and read-only.
	scoreboardCache *cache.Store

	mu       sync.Mutex
	sessions map[string]*scorecard.GameLedger
}

func NewScorecardService(repo scorecard.Repository, publisher SnapshotPublisher, logger *logging.Logger) (*ScorecardService, error) {
	if logger == nil {
		logger = logging.Default()
	}

	pushPool, err := ants.NewPool(defaultPushWorkers, ants.WithNonblocking(true))
	if err != nil {
		return nil, fmt.Errorf("create push worker pool: %w", err)
	}

	return &ScorecardService{
		repo:            repo,
		publisher:       publisher,
		logger:          logger,
		pushPool:        pushPool,
		pushTimeout:     defaultPushTimeout,
		scoreboardCache: cache.NewStore(scoreboardCacheTTL),
		sessions:        make(map[string]*scorecard.GameLedger),
	}, nil
}

// Close releases the push pool. Queued pushes are abandoned.
func (s *ScorecardService) Close() {
	s.pushPool.Release()
}

type CreateGameInput struct {
	GameID   string
	HomeName string
	AwayName string
}

// CreateGame persists a fresh scorecard and opens a session for it.
func (s *ScorecardService) CreateGame(ctx context.Context, input CreateGameInput) (scorecard.GameScoreView, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScorecardService.CreateGame")
	defer span.End()

	gameID := strings.TrimSpace(input.GameID)
	homeName := strings.TrimSpace(input.HomeName)
	awayName := strings.TrimSpace(input.AwayName)
	if gameID == "" || homeName == "" || awayName == "" {
		return scorecard.GameScoreView{}, fmt.Errorf("%w: game id and both team names are required", ErrInvalidInput)
	}

	if _, found, err := s.repo.GetGame(ctx, gameID); err != nil {
		return scorecard.GameScoreView{}, fmt.Errorf("check existing game: %w", err)
	} else if found {
		return scorecard.GameScoreView{}, fmt.Errorf("%w: game %s already exists", ErrInvalidInput, gameID)
	}

	game := scorecard.NewGameLedger(gameID, homeName, awayName)
	if err := s.repo.SaveGame(ctx, game); err != nil {
		return scorecard.GameScoreView{}, fmt.Errorf("save new game: %w", err)
	}

	s.mu.Lock()
	s.sessions[gameID] = game
	s.mu.Unlock()
	s.scoreboardCache.Delete(ctx, scoreboardCacheKey)

	s.logger.InfoContext(ctx, "scorecard created", "game_id", gameID, "home", homeName, "away", awayName)
	return game.Snapshot(), nil
}

// OpenSession hydrates a session from the repository, or reuses the one
// already open for this game.
func (s *ScorecardService) OpenSession(ctx context.Context, gameID string) (scorecard.GameScoreView, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScorecardService.OpenSession")
	defer span.End()

	s.mu.Lock()
	if game, ok := s.sessions[gameID]; ok {
		view := game.Snapshot()
		s.mu.Unlock()
		return view, nil
	}
	s.mu.Unlock()

	loaded, err, _ := s.loadsInFlight.Do("scorecard:load:"+gameID, func() (any, error) {
		game, found, err := s.repo.GetGame(ctx, gameID)
		if err != nil {
			return nil, fmt.Errorf("load game: %w", err)
		}
		if !found {
			return nil, fmt.Errorf("%w: game %s", ErrNotFound, gameID)
		}
		return game, nil
	})
	if err != nil {
		return scorecard.GameScoreView{}, err
	}
	game := loaded.(*scorecard.GameLedger)

	s.mu.Lock()
	if existing, ok := s.sessions[gameID]; ok {
		game = existing
	} else {
		s.sessions[gameID] = game
	}
	view := game.Snapshot()
	s.mu.Unlock()

	return view, nil
}

// CloseSession discards the in-memory ledger. The repository copy remains.
func (s *ScorecardService) CloseSession(gameID string) {
	s.mu.Lock()
	delete(s.sessions, gameID)
	s.mu.Unlock()
	s.scoreboardCache.Delete(context.Background(), scoreboardCacheKey)
}

type AppendEventInput struct {
	Team               string
	Half               int
	Kind               string
	Jersey             *int
	ChangeOfPossession bool
	Label              string
}

// AppendEvent records one scoring or administrative event and returns the
// recomputed view.
func (s *ScorecardService) AppendEvent(ctx context.Context, gameID string, input AppendEventInput) (scorecard.GameScoreView, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScorecardService.AppendEvent")
	defer span.End()

	side, half, err := parseTarget(input.Team, input.Half)
	if err != nil {
		return scorecard.GameScoreView{}, err
	}

	event, err := scorecard.NewEvent(scorecard.EventKind(input.Kind), input.Jersey, input.ChangeOfPossession, strings.TrimSpace(input.Label))
	if err != nil {
		return scorecard.GameScoreView{}, err
	}

	return s.mutate(ctx, gameID, func(game *scorecard.GameLedger) error {
		record, err := game.AppendEvent(side, half, event)
		if err != nil {
			return err
		}

		entries := game.Records()[side][half]
		if orphans := scorecard.OrphanConversions(visibleOnly(entries)); len(orphans) > 0 {
			s.logger.WarnContext(ctx, "orphan conversion on scorecard",
				"game_id", gameID, "team", side, "half", int(half), "sequence", record.Sequence)
		}
		return nil
	})
}

// UndoLast tombstones the most recent visible event of the given half.
func (s *ScorecardService) UndoLast(ctx context.Context, gameID, team string, halfNumber int) (scorecard.GameScoreView, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScorecardService.UndoLast")
	defer span.End()

	side, half, err := parseTarget(team, halfNumber)
	if err != nil {
		return scorecard.GameScoreView{}, err
	}

	return s.mutate(ctx, gameID, func(game *scorecard.GameLedger) error {
		_, err := game.UndoLast(side, half)
		return err
	})
}

// AdvanceToSecondHalf opens the second half for the game.
func (s *ScorecardService) AdvanceToSecondHalf(ctx context.Context, gameID string) (scorecard.GameScoreView, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScorecardService.AdvanceToSecondHalf")
	defer span.End()

	return s.mutate(ctx, gameID, func(game *scorecard.GameLedger) error {
		return game.AdvanceToSecondHalf()
	})
}

// Finalize closes the game for good.
func (s *ScorecardService) Finalize(ctx context.Context, gameID string) (scorecard.GameScoreView, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScorecardService.Finalize")
	defer span.End()

	return s.mutate(ctx, gameID, func(game *scorecard.GameLedger) error {
		return game.Finalize()
	})
}

// Snapshot returns the current view without mutating anything.
func (s *ScorecardService) Snapshot(ctx context.Context, gameID string) (scorecard.GameScoreView, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScorecardService.Snapshot")
	defer span.End()

	return s.OpenSession(ctx, gameID)
}

// ListScoreboard recomputes the snapshot of every stored game, fanning out
// across games with a bounded pool. Open sessions take precedence over the
// stored copy so scorers see their own edits immediately.
func (s *ScorecardService) ListScoreboard(ctx context.Context) ([]scorecard.GameScoreView, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScorecardService.ListScoreboard")
	defer span.End()

	cached, err := s.scoreboardCache.GetOrLoad(ctx, scoreboardCacheKey, func(ctx context.Context) (any, error) {
		return s.buildScoreboard(ctx)
	})
	if err != nil {
		return nil, err
	}
	return cached.([]scorecard.GameScoreView), nil
}

func (s *ScorecardService) buildScoreboard(ctx context.Context) ([]scorecard.GameScoreView, error) {
	gameIDs, err := s.repo.ListGameIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list game ids: %w", err)
	}

	p := pool.NewWithResults[scorecard.GameScoreView]().
		WithContext(ctx).
		WithMaxGoroutines(defaultScoreboardFanOut)

	for _, gameID := range gameIDs {
		gameID := gameID
		p.Go(func(ctx context.Context) (scorecard.GameScoreView, error) {
			s.mu.Lock()
			if game, ok := s.sessions[gameID]; ok {
				view := game.Snapshot()
				s.mu.Unlock()
				return view, nil
			}
			s.mu.Unlock()

			game, found, err := s.repo.GetGame(ctx, gameID)
			if err != nil {
				return scorecard.GameScoreView{}, fmt.Errorf("load game %s: %w", gameID, err)
			}
			if !found {
				return scorecard.GameScoreView{}, fmt.Errorf("%w: game %s", ErrNotFound, gameID)
			}
			return game.Snapshot(), nil
		})
	}

	views, err := p.Wait()
	if err != nil {
		return nil, err
	}

	sort.Slice(views, func(i, j int) bool { return views[i].GameID < views[j].GameID })
	return views, nil
}

// mutate applies fn to the session's ledger and, on success, schedules the
// persist-and-push. The mutation either fully applies or leaves the ledger
// untouched; the asynchronous push can only ever lag, not corrupt.
func (s *ScorecardService) mutate(ctx context.Context, gameID string, fn func(*scorecard.GameLedger) error) (scorecard.GameScoreView, error) {
	if _, err := s.OpenSession(ctx, gameID); err != nil {
		return scorecard.GameScoreView{}, err
	}

	s.mu.Lock()
	game := s.sessions[gameID]
	if err := fn(game); err != nil {
		s.mu.Unlock()
		return scorecard.GameScoreView{}, err
	}
	view := game.Snapshot()
	s.mu.Unlock()
	s.scoreboardCache.Delete(ctx, scoreboardCacheKey)

	s.schedulePush(gameID, game, view)
	return view, nil
}

func (s *ScorecardService) schedulePush(gameID string, game *scorecard.GameLedger, view scorecard.GameScoreView) {
	err := s.pushPool.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.pushTimeout)
		defer cancel()

		s.mu.Lock()
		err := s.repo.SaveGame(ctx, game)
		s.mu.Unlock()
		if err != nil {
			s.logger.ErrorContext(ctx, "persist scorecard failed", "game_id", gameID, "error", err)
		}

		if s.publisher == nil {
			return
		}
		if err := s.publisher.PublishSnapshot(ctx, view); err != nil {
			s.logger.WarnContext(ctx, "ticker push failed", "game_id", gameID, "error", err)
		}
	})
	if err != nil {
		s.logger.Warn("push pool rejected task", "game_id", gameID, "error", err)
	}
}

func parseTarget(team string, halfNumber int) (scorecard.TeamSide, scorecard.HalfKind, error) {
	side, err := scorecard.ParseTeamSide(strings.TrimSpace(team))
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	half, err := scorecard.ParseHalfKind(halfNumber)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return side, half, nil
}

func visibleOnly(records []scorecard.EventRecord) []scorecard.EventRecord {
	out := make([]scorecard.EventRecord, 0, len(records))
	for _, record := range records {
		if record.Deleted {
			continue
		}
		out = append(out, record)
	}
	return out
}
