package scorecard

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidEvent   = errors.New("invalid scorecard event")
	ErrEmptyLedger    = errors.New("no event to undo")
	ErrHalfNotStarted = errors.New("half has not started")
	ErrGameFinished   = errors.New("game is finished")
	ErrUnknownTeam    = errors.New("unknown team side")
	ErrUnknownHalf    = errors.New("unknown half")
)

type TeamSide string

const (
	TeamHome TeamSide = "home"
	TeamAway TeamSide = "away"
)

func ParseTeamSide(raw string) (TeamSide, error) {
	switch TeamSide(raw) {
	case TeamHome:
		return TeamHome, nil
	case TeamAway:
		return TeamAway, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTeam, raw)
	}
}

type HalfKind int

const (
	HalfFirst  HalfKind = 1
	HalfSecond HalfKind = 2
)

func ParseHalfKind(raw int) (HalfKind, error) {
	switch HalfKind(raw) {
	case HalfFirst:
		return HalfFirst, nil
	case HalfSecond:
		return HalfSecond, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnknownHalf, raw)
	}
}

type EventKind string

const (
	KindTouchdown     EventKind = "touchdown"
	KindExtraPointOne EventKind = "extra_point_one"
	KindExtraPointTwo EventKind = "extra_point_two"
	KindSafety        EventKind = "safety"
	KindTurnover      EventKind = "turnover"
	KindNote          EventKind = "note"
)

const (
	minJerseyNumber = 0
	maxJerseyNumber = 99
)

// Event is the typed payload of one scorecard entry. Exactly one kind per
// event; optional fields apply only to the kinds that carry them.
type Event struct {
	Kind   EventKind
	Jersey *int // scorer jersey for touchdown, conversions and safety

	// Turnover only.
	ChangeOfPossession bool

	// Free text: turnover label or note body.
	Label string
}

// EventRecord is one immutable ledger entry. Sequence is a monotonically
// assigned insertion id used for stable ordering and identity; it carries no
// game-clock meaning. Deleted records are tombstones: retained for audit,
// excluded from scores and display.
type EventRecord struct {
	Sequence int
	Event    Event
	Deleted  bool
}

// NewEvent validates and constructs a payload for the given kind.
func NewEvent(kind EventKind, jersey *int, changeOfPossession bool, label string) (Event, error) {
	switch kind {
	case KindTouchdown, KindExtraPointOne, KindExtraPointTwo, KindSafety:
		if err := validateJersey(jersey); err != nil {
			return Event{}, err
		}
		return Event{Kind: kind, Jersey: copyJersey(jersey)}, nil
	case KindTurnover:
		return Event{Kind: kind, ChangeOfPossession: changeOfPossession, Label: label}, nil
	case KindNote:
		return Event{Kind: kind, Label: label}, nil
	default:
		return Event{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidEvent, kind)
	}
}

// Points returns the face value of the event, before conversion pairing.
func (e Event) Points() int {
	switch e.Kind {
	case KindTouchdown:
		return 6
	case KindExtraPointOne:
		return 1
	case KindExtraPointTwo:
		return 2
	case KindSafety:
		return 2
	default:
		return 0
	}
}

func (e Event) isConversion() bool {
	return e.Kind == KindExtraPointOne || e.Kind == KindExtraPointTwo
}

// MarkDeleted returns a tombstoned copy; the receiver is untouched.
func (r EventRecord) MarkDeleted() EventRecord {
	r.Deleted = true
	return r
}

func validateJersey(jersey *int) error {
	if jersey == nil {
		return nil
	}
	if *jersey < minJerseyNumber || *jersey > maxJerseyNumber {
		return fmt.Errorf("%w: jersey %d out of range %d-%d", ErrInvalidEvent, *jersey, minJerseyNumber, maxJerseyNumber)
	}
	return nil
}

func copyJersey(jersey *int) *int {
	if jersey == nil {
		return nil
	}
	n := *jersey
	return &n
}
