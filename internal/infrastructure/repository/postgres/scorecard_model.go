package postgres

import (
	"database/sql"
	"time"
)

type gameTableModel struct {
	ID        int64     `db:"id"`
	GameID    string    `db:"game_public_id"`
	HomeName  string    `db:"home_name"`
	AwayName  string    `db:"away_name"`
	Phase     string    `db:"phase"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type gameInsertModel struct {
	GameID   string `db:"game_public_id"`
	HomeName string `db:"home_name"`
	AwayName string `db:"away_name"`
	Phase    string `db:"phase"`
}

type eventTableModel struct {
	ID                 int64         `db:"id"`
	GameID             string        `db:"game_public_id"`
	TeamSide           string        `db:"team_side"`
	Half               int           `db:"half"`
	Sequence           int           `db:"sequence"`
	Kind               string        `db:"kind"`
	Jersey             sql.NullInt64 `db:"jersey"`
	ChangeOfPossession bool          `db:"change_of_possession"`
	Label              string        `db:"label"`
	IsDeleted          bool          `db:"is_deleted"`
	CreatedAt          time.Time     `db:"created_at"`
}

type eventInsertModel struct {
	GameID             string `db:"game_public_id"`
	TeamSide           string `db:"team_side"`
	Half               int    `db:"half"`
	Sequence           int    `db:"sequence"`
	Kind               string `db:"kind"`
	Jersey             *int64 `db:"jersey"`
	ChangeOfPossession bool   `db:"change_of_possession"`
	Label              string `db:"label"`
	IsDeleted          bool   `db:"is_deleted"`
}
