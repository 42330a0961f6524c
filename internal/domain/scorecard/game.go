package scorecard

import "fmt"

type GamePhase string

const (
	PhaseFirstHalf  GamePhase = "first_half"
	PhaseSecondHalf GamePhase = "second_half"
	PhaseFinished   GamePhase = "finished"
)

func ParseGamePhase(raw string) (GamePhase, error) {
	switch GamePhase(raw) {
	case PhaseFirstHalf, PhaseSecondHalf, PhaseFinished:
		return GamePhase(raw), nil
	default:
		return "", fmt.Errorf("%w: unknown phase %q", ErrInvalidEvent, raw)
	}
}

// TeamLedger holds one team's name and its two half ledgers.
type TeamLedger struct {
	Name   string
	Halves map[HalfKind]*HalfLedger
}

func newTeamLedger(side TeamSide, name string) TeamLedger {
	return TeamLedger{
		Name: name,
		Halves: map[HalfKind]*HalfLedger{
			HalfFirst:  NewHalfLedger(side, HalfFirst),
			HalfSecond: NewHalfLedger(side, HalfSecond),
		},
	}
}

// GameLedger aggregates the four half ledgers of one game and coordinates
// mutation and recomputation. One instance per open scorecard session; the
// phase machine moves one way: first half, second half, finished.
type GameLedger struct {
	GameID string
	Home   TeamLedger
	Away   TeamLedger
	phase  GamePhase
}

func NewGameLedger(gameID, homeName, awayName string) *GameLedger {
	return &GameLedger{
		GameID: gameID,
		Home:   newTeamLedger(TeamHome, homeName),
		Away:   newTeamLedger(TeamAway, awayName),
		phase:  PhaseFirstHalf,
	}
}

// RestoreGameLedger rebuilds a ledger from persisted state.
func RestoreGameLedger(gameID, homeName, awayName string, phase GamePhase, records map[TeamSide]map[HalfKind][]EventRecord) *GameLedger {
	game := NewGameLedger(gameID, homeName, awayName)
	game.phase = phase
	for side, halves := range records {
		for half, entries := range halves {
			game.team(side).Halves[half] = Restore(side, half, entries)
		}
	}
	return game
}

func (g *GameLedger) Phase() GamePhase { return g.phase }

// FirstHalfOnly reports whether the game has not yet advanced to its second
// half, so empty second-half ledgers are expected rather than scoreless.
func (g *GameLedger) FirstHalfOnly() bool { return g.phase == PhaseFirstHalf }

// AppendEvent appends to the matching half ledger. The second half must be
// opened explicitly with AdvanceToSecondHalf before it accepts events.
func (g *GameLedger) AppendEvent(side TeamSide, half HalfKind, event Event) (EventRecord, error) {
	if err := g.checkWritable(side, half); err != nil {
		return EventRecord{}, err
	}
	return g.team(side).Halves[half].Append(event), nil
}

// UndoLast tombstones the most recent non-deleted event of the given half.
func (g *GameLedger) UndoLast(side TeamSide, half HalfKind) (EventRecord, error) {
	if err := g.checkWritable(side, half); err != nil {
		return EventRecord{}, err
	}
	return g.team(side).Halves[half].SoftDeleteLast()
}

// AdvanceToSecondHalf opens the second half. Irreversible within a session.
func (g *GameLedger) AdvanceToSecondHalf() error {
	switch g.phase {
	case PhaseFirstHalf:
		g.phase = PhaseSecondHalf
		return nil
	case PhaseFinished:
		return fmt.Errorf("%w: cannot advance half", ErrGameFinished)
	default:
		return nil
	}
}

// Finalize closes the game; no further mutation is accepted.
func (g *GameLedger) Finalize() error {
	if g.phase == PhaseFirstHalf {
		return fmt.Errorf("%w: second half", ErrHalfNotStarted)
	}
	g.phase = PhaseFinished
	return nil
}

// Totals recomputes both teams' scores from the materialized views.
func (g *GameLedger) Totals() GameTotals {
	secondOpen := g.phase != PhaseFirstHalf
	return GameTotals{
		Home: computeTeamTotals(g.Home.Halves[HalfFirst], g.Home.Halves[HalfSecond], secondOpen),
		Away: computeTeamTotals(g.Away.Halves[HalfFirst], g.Away.Halves[HalfSecond], secondOpen),
	}
}

// TeamScoreView is the presentation contract for one team.
type TeamScoreView struct {
	Name             string
	Score            int
	FirstHalf        HalfScore
	SecondHalf       HalfScore
	FirstHalfEvents  []EventRecord
	SecondHalfEvents []EventRecord
}

// GameScoreView is the sole contract toward rendering components. It is
// recomputed from scratch on every call, never cached across mutations.
type GameScoreView struct {
	GameID string
	Phase  GamePhase
	Home   TeamScoreView
	Away   TeamScoreView
}

func (g *GameLedger) Snapshot() GameScoreView {
	totals := g.Totals()
	return GameScoreView{
		GameID: g.GameID,
		Phase:  g.phase,
		Home:   g.teamView(TeamHome, totals.Home),
		Away:   g.teamView(TeamAway, totals.Away),
	}
}

// Records exposes the raw event log, tombstones included, for persistence.
func (g *GameLedger) Records() map[TeamSide]map[HalfKind][]EventRecord {
	out := make(map[TeamSide]map[HalfKind][]EventRecord, 2)
	for _, side := range []TeamSide{TeamHome, TeamAway} {
		team := g.team(side)
		out[side] = map[HalfKind][]EventRecord{
			HalfFirst:  team.Halves[HalfFirst].Records(),
			HalfSecond: team.Halves[HalfSecond].Records(),
		}
	}
	return out
}

func (g *GameLedger) teamView(side TeamSide, totals TeamTotals) TeamScoreView {
	team := g.team(side)
	return TeamScoreView{
		Name:             team.Name,
		Score:            totals.Total,
		FirstHalf:        totals.FirstHalf,
		SecondHalf:       totals.SecondHalf,
		FirstHalfEvents:  team.Halves[HalfFirst].Materialize(),
		SecondHalfEvents: team.Halves[HalfSecond].Materialize(),
	}
}

func (g *GameLedger) team(side TeamSide) *TeamLedger {
	if side == TeamAway {
		return &g.Away
	}
	return &g.Home
}

func (g *GameLedger) checkWritable(side TeamSide, half HalfKind) error {
	if _, err := ParseTeamSide(string(side)); err != nil {
		return err
	}
	if _, err := ParseHalfKind(int(half)); err != nil {
		return err
	}
	if g.phase == PhaseFinished {
		return fmt.Errorf("%w: game %s", ErrGameFinished, g.GameID)
	}
	if half == HalfSecond && g.phase == PhaseFirstHalf {
		return fmt.Errorf("%w: second half of game %s", ErrHalfNotStarted, g.GameID)
	}
	return nil
}
