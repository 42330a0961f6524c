package scorecard

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	sonic "github.com/bytedance/sonic"
)

// EntryDocument mirrors the upstream scorecard payload: the kind of an entry
// is encoded by which key is present, and jersey-carrying keys hold either a
// number or null. json.RawMessage keeps key presence observable, which a
// plain *int cannot (absent and null both decode to nil).
type EntryDocument struct {
	Sequence  int             `json:"sequence"`
	TD        json.RawMessage `json:"td,omitempty"`
	PAT1      json.RawMessage `json:"pat1,omitempty"`
	PAT2      json.RawMessage `json:"pat2,omitempty"`
	Safety    json.RawMessage `json:"safety,omitempty"`
	COP       *bool           `json:"cop,omitempty"`
	Name      *string         `json:"name,omitempty"`
	IsDeleted bool            `json:"isDeleted,omitempty"`
}

// TeamDocument is one team's serialized scorecard, tombstones included.
type TeamDocument struct {
	Name       string          `json:"name"`
	FirstHalf  []EntryDocument `json:"firstHalf"`
	SecondHalf []EntryDocument `json:"secondHalf"`
}

// GameDocument is the round-trip shape exchanged with the tournament server.
type GameDocument struct {
	GameID        string       `json:"gameId"`
	Phase         string       `json:"phase,omitempty"`
	FirstHalfOnly bool         `json:"isFirstHalfOnly"`
	Home          TeamDocument `json:"home"`
	Away          TeamDocument `json:"away"`
}

var jsonNull = json.RawMessage("null")

// DecodeEntry resolves a raw payload entry into a typed record. Absent keys
// mean "not present"; an entry with no recognized key becomes a note so that
// partial upstream records survive hydration instead of failing it.
func DecodeEntry(doc EntryDocument) (EventRecord, error) {
	if doc.PAT1 != nil && doc.PAT2 != nil {
		return EventRecord{}, fmt.Errorf("%w: pat1 and pat2 are mutually exclusive (sequence %d)", ErrInvalidEvent, doc.Sequence)
	}

	var (
		event Event
		err   error
	)
	switch {
	case doc.TD != nil:
		event, err = jerseyEvent(KindTouchdown, doc.TD)
	case doc.PAT1 != nil:
		event, err = jerseyEvent(KindExtraPointOne, doc.PAT1)
	case doc.PAT2 != nil:
		event, err = jerseyEvent(KindExtraPointTwo, doc.PAT2)
	case doc.Safety != nil:
		event, err = jerseyEvent(KindSafety, doc.Safety)
	case doc.COP != nil:
		event, err = NewEvent(KindTurnover, nil, *doc.COP, stringValue(doc.Name))
	default:
		event, err = NewEvent(KindNote, nil, false, stringValue(doc.Name))
	}
	if err != nil {
		return EventRecord{}, err
	}

	return EventRecord{Sequence: doc.Sequence, Event: event, Deleted: doc.IsDeleted}, nil
}

// EncodeEntry serializes a record back to the upstream shape. Tombstoned
// records keep their payload and carry isDeleted, never get dropped.
func EncodeEntry(record EventRecord) EntryDocument {
	doc := EntryDocument{Sequence: record.Sequence, IsDeleted: record.Deleted}
	jersey := encodeJersey(record.Event.Jersey)

	switch record.Event.Kind {
	case KindTouchdown:
		doc.TD = jersey
	case KindExtraPointOne:
		doc.PAT1 = jersey
	case KindExtraPointTwo:
		doc.PAT2 = jersey
	case KindSafety:
		doc.Safety = jersey
	case KindTurnover:
		cop := record.Event.ChangeOfPossession
		doc.COP = &cop
		if record.Event.Label != "" {
			label := record.Event.Label
			doc.Name = &label
		}
	default:
		label := record.Event.Label
		doc.Name = &label
	}
	return doc
}

// EncodeGame serializes the full ledger, raw entries included.
func EncodeGame(game *GameLedger) GameDocument {
	records := game.Records()
	return GameDocument{
		GameID:        game.GameID,
		Phase:         string(game.Phase()),
		FirstHalfOnly: game.FirstHalfOnly(),
		Home:          encodeTeam(game.Home.Name, records[TeamHome]),
		Away:          encodeTeam(game.Away.Name, records[TeamAway]),
	}
}

// DecodeGame hydrates a ledger from a server document.
func DecodeGame(doc GameDocument) (*GameLedger, error) {
	phase, err := decodePhase(doc)
	if err != nil {
		return nil, err
	}

	records := make(map[TeamSide]map[HalfKind][]EventRecord, 2)
	for side, team := range map[TeamSide]TeamDocument{TeamHome: doc.Home, TeamAway: doc.Away} {
		first, err := decodeEntries(team.FirstHalf)
		if err != nil {
			return nil, fmt.Errorf("decode %s first half: %w", side, err)
		}
		second, err := decodeEntries(team.SecondHalf)
		if err != nil {
			return nil, fmt.Errorf("decode %s second half: %w", side, err)
		}
		records[side] = map[HalfKind][]EventRecord{HalfFirst: first, HalfSecond: second}
	}

	return RestoreGameLedger(doc.GameID, doc.Home.Name, doc.Away.Name, phase, records), nil
}

// MarshalGame renders the ledger as the upstream JSON document.
func MarshalGame(game *GameLedger) ([]byte, error) {
	return sonic.Marshal(EncodeGame(game))
}

// UnmarshalGame hydrates a ledger from upstream JSON.
func UnmarshalGame(data []byte) (*GameLedger, error) {
	var doc GameDocument
	if err := sonic.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	return DecodeGame(doc)
}

func decodePhase(doc GameDocument) (GamePhase, error) {
	if doc.Phase == "" {
		// Legacy documents only carry the first-half flag.
		if doc.FirstHalfOnly {
			return PhaseFirstHalf, nil
		}
		return PhaseSecondHalf, nil
	}
	return ParseGamePhase(doc.Phase)
}

func decodeEntries(docs []EntryDocument) ([]EventRecord, error) {
	out := make([]EventRecord, 0, len(docs))
	for _, doc := range docs {
		record, err := DecodeEntry(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, nil
}

func encodeTeam(name string, halves map[HalfKind][]EventRecord) TeamDocument {
	return TeamDocument{
		Name:       name,
		FirstHalf:  encodeEntries(halves[HalfFirst]),
		SecondHalf: encodeEntries(halves[HalfSecond]),
	}
}

func encodeEntries(records []EventRecord) []EntryDocument {
	out := make([]EntryDocument, 0, len(records))
	for _, record := range records {
		out = append(out, EncodeEntry(record))
	}
	return out
}

func jerseyEvent(kind EventKind, raw json.RawMessage) (Event, error) {
	jersey, err := decodeJersey(raw)
	if err != nil {
		return Event{}, err
	}
	return NewEvent(kind, jersey, false, "")
}

func decodeJersey(raw json.RawMessage) (*int, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, jsonNull) {
		return nil, nil
	}
	n, err := strconv.Atoi(string(trimmed))
	if err != nil {
		return nil, fmt.Errorf("%w: jersey %q is not a number", ErrInvalidEvent, trimmed)
	}
	return &n, nil
}

func encodeJersey(jersey *int) json.RawMessage {
	if jersey == nil {
		return jsonNull
	}
	return json.RawMessage(strconv.Itoa(*jersey))
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
