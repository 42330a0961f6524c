package scorecard

import "context"

// Repository is the authoritative server-side store for scorecards. SaveGame
// persists the raw event log, tombstones included; GetGame hydrates a ledger
// that snapshots identically to the one saved.
type Repository interface {
	GetGame(ctx context.Context, gameID string) (*GameLedger, bool, error)
	SaveGame(ctx context.Context, game *GameLedger) error
	ListGameIDs(ctx context.Context) ([]string, error)
}
