package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/flagday/scorecard/internal/domain/scorecard"
	qb "github.com/flagday/scorecard/internal/platform/querybuilder"
)

type ScorecardRepository struct {
	db *sqlx.DB
}

func NewScorecardRepository(db *sqlx.DB) *ScorecardRepository {
	return &ScorecardRepository{db: db}
}

func (r *ScorecardRepository) GetGame(ctx context.Context, gameID string) (*scorecard.GameLedger, bool, error) {
	query, args, err := qb.Select("*").
		From("scorecard_games").
		Where(qb.Eq("game_public_id", gameID)).
		ToSQL()
	if err != nil {
		return nil, false, fmt.Errorf("build get game query: %w", err)
	}

	var gameRow gameTableModel
	if err := r.db.GetContext(ctx, &gameRow, query, args...); err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get game: %w", err)
	}

	phase, err := scorecard.ParseGamePhase(gameRow.Phase)
	if err != nil {
		return nil, false, fmt.Errorf("hydrate game %s: %w", gameID, err)
	}

	eventsQuery, eventsArgs, err := qb.Select("*").
		From("scorecard_events").
		Where(qb.Eq("game_public_id", gameID)).
		OrderBy("sequence ASC").
		ToSQL()
	if err != nil {
		return nil, false, fmt.Errorf("build list game events query: %w", err)
	}

	var eventRows []eventTableModel
	if err := r.db.SelectContext(ctx, &eventRows, eventsQuery, eventsArgs...); err != nil {
		return nil, false, fmt.Errorf("list game events: %w", err)
	}

	records, err := recordsFromRows(eventRows)
	if err != nil {
		return nil, false, fmt.Errorf("hydrate game %s: %w", gameID, err)
	}

	return scorecard.RestoreGameLedger(gameID, gameRow.HomeName, gameRow.AwayName, phase, records), true, nil
}

func (r *ScorecardRepository) SaveGame(ctx context.Context, game *scorecard.GameLedger) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx save game: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	insertModel := gameInsertModel{
		GameID:   game.GameID,
		HomeName: game.Home.Name,
		AwayName: game.Away.Name,
		Phase:    string(game.Phase()),
	}
	query, args, err := qb.InsertModel("scorecard_games", insertModel, `ON CONFLICT (game_public_id)
DO UPDATE SET
    home_name = EXCLUDED.home_name,
    away_name = EXCLUDED.away_name,
    phase = EXCLUDED.phase,
    updated_at = NOW()`)
	if err != nil {
		return fmt.Errorf("build upsert game query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert game: %w", err)
	}

	// The event log is replaced wholesale; tombstones are rows too, so the
	// row set is the full audit history.
	clearQuery, clearArgs, err := qb.DeleteFrom("scorecard_events").
		Where(qb.Eq("game_public_id", game.GameID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build clear game events query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, clearQuery, clearArgs...); err != nil {
		return fmt.Errorf("clear game events: %w", err)
	}

	if err := insertEventRows(ctx, tx, game); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save game tx: %w", err)
	}
	return nil
}

func (r *ScorecardRepository) ListGameIDs(ctx context.Context) ([]string, error) {
	query, args, err := qb.Select("game_public_id").
		From("scorecard_games").
		OrderBy("game_public_id ASC").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list game ids query: %w", err)
	}

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("list game ids: %w", err)
	}
	return ids, nil
}

func insertEventRows(ctx context.Context, tx *sqlx.Tx, game *scorecard.GameLedger) error {
	for side, halves := range game.Records() {
		for half, records := range halves {
			for _, record := range records {
				insertModel := eventInsertModel{
					GameID:             game.GameID,
					TeamSide:           string(side),
					Half:               int(half),
					Sequence:           record.Sequence,
					Kind:               string(record.Event.Kind),
					Jersey:             nullableJersey(record.Event.Jersey),
					ChangeOfPossession: record.Event.ChangeOfPossession,
					Label:              record.Event.Label,
					IsDeleted:          record.Deleted,
				}
				query, args, err := qb.InsertModel("scorecard_events", insertModel, "")
				if err != nil {
					return fmt.Errorf("build insert game event query: %w", err)
				}
				if _, err := tx.ExecContext(ctx, query, args...); err != nil {
					return fmt.Errorf("insert game event: %w", err)
				}
			}
		}
	}
	return nil
}

func recordsFromRows(rows []eventTableModel) (map[scorecard.TeamSide]map[scorecard.HalfKind][]scorecard.EventRecord, error) {
	out := map[scorecard.TeamSide]map[scorecard.HalfKind][]scorecard.EventRecord{
		scorecard.TeamHome: {},
		scorecard.TeamAway: {},
	}
	for _, row := range rows {
		side, err := scorecard.ParseTeamSide(row.TeamSide)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", row.ID, err)
		}
		half, err := scorecard.ParseHalfKind(row.Half)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", row.ID, err)
		}
		event, err := scorecard.NewEvent(scorecard.EventKind(row.Kind), jerseyFromRow(row.Jersey), row.ChangeOfPossession, row.Label)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", row.ID, err)
		}
		out[side][half] = append(out[side][half], scorecard.EventRecord{
			Sequence: row.Sequence,
			Event:    event,
			Deleted:  row.IsDeleted,
		})
	}
	return out, nil
}

func nullableJersey(jersey *int) *int64 {
	if jersey == nil {
		return nil
	}
	v := int64(*jersey)
	return &v
}

func jerseyFromRow(jersey sql.NullInt64) *int {
	if !jersey.Valid {
		return nil
	}
	v := int(jersey.Int64)
	return &v
}
