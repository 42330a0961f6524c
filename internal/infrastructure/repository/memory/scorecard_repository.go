package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/flagday/scorecard/internal/domain/scorecard"
)

// ScorecardRepository keeps scorecards in process memory. Games are stored as
// encoded documents so every GetGame hydrates a fresh ledger instead of
// sharing one across sessions.
type ScorecardRepository struct {
	mu    sync.RWMutex
	items map[string]scorecard.GameDocument
}

func NewScorecardRepository() *ScorecardRepository {
	return &ScorecardRepository{
		items: make(map[string]scorecard.GameDocument),
	}
}

func (r *ScorecardRepository) GetGame(_ context.Context, gameID string) (*scorecard.GameLedger, bool, error) {
	r.mu.RLock()
	doc, ok := r.items[gameID]
	r.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}

	game, err := scorecard.DecodeGame(doc)
	if err != nil {
		return nil, false, err
	}
	return game, true, nil
}

func (r *ScorecardRepository) SaveGame(_ context.Context, game *scorecard.GameLedger) error {
	doc := scorecard.EncodeGame(game)

	r.mu.Lock()
	r.items[game.GameID] = doc
	r.mu.Unlock()

	return nil
}

func (r *ScorecardRepository) ListGameIDs(_ context.Context) ([]string, error) {
	r.mu.RLock()
	out := make([]string, 0, len(r.items))
	for gameID := range r.items {
		out = append(out, gameID)
	}
	r.mu.RUnlock()

	sort.Strings(out)
	return out, nil
}
