package scorecard

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestDecodeEntry_KeyPresenceSelectsKind(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
		want EventKind
	}{
		{name: "touchdown with jersey", raw: `{"sequence":1,"td":7}`, want: KindTouchdown},
		{name: "touchdown null jersey", raw: `{"sequence":1,"td":null}`, want: KindTouchdown},
		{name: "one point conversion", raw: `{"sequence":2,"pat1":null}`, want: KindExtraPointOne},
		{name: "two point conversion", raw: `{"sequence":2,"pat2":12}`, want: KindExtraPointTwo},
		{name: "safety", raw: `{"sequence":3,"safety":4}`, want: KindSafety},
		{name: "turnover", raw: `{"sequence":4,"cop":true,"name":"interception"}`, want: KindTurnover},
		{name: "free text note", raw: `{"sequence":5,"name":"delay of game"}`, want: KindNote},
		{name: "bare entry falls back to note", raw: `{"sequence":6}`, want: KindNote},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var doc EntryDocument
			if err := json.Unmarshal([]byte(tc.raw), &doc); err != nil {
				t.Fatalf("unmarshal entry: %v", err)
			}

			record, err := DecodeEntry(doc)
			if err != nil {
				t.Fatalf("DecodeEntry error: %v", err)
			}
			if record.Event.Kind != tc.want {
				t.Fatalf("unexpected kind: got=%s want=%s", record.Event.Kind, tc.want)
			}
		})
	}
}

func TestDecodeEntry_JerseyNullVersusNumber(t *testing.T) {
	t.Parallel()

	var doc EntryDocument
	if err := json.Unmarshal([]byte(`{"sequence":1,"td":42}`), &doc); err != nil {
		t.Fatalf("unmarshal entry: %v", err)
	}
	record, err := DecodeEntry(doc)
	if err != nil {
		t.Fatalf("DecodeEntry error: %v", err)
	}
	if record.Event.Jersey == nil || *record.Event.Jersey != 42 {
		t.Fatalf("unexpected jersey: %v", record.Event.Jersey)
	}

	doc = EntryDocument{}
	if err := json.Unmarshal([]byte(`{"sequence":1,"td":null}`), &doc); err != nil {
		t.Fatalf("unmarshal entry: %v", err)
	}
	record, err = DecodeEntry(doc)
	if err != nil {
		t.Fatalf("DecodeEntry error: %v", err)
	}
	if record.Event.Jersey != nil {
		t.Fatalf("null jersey should decode as absent, got: %d", *record.Event.Jersey)
	}
}

func TestDecodeEntry_RejectsBothConversionKinds(t *testing.T) {
	t.Parallel()

	var doc EntryDocument
	if err := json.Unmarshal([]byte(`{"sequence":1,"pat1":null,"pat2":null}`), &doc); err != nil {
		t.Fatalf("unmarshal entry: %v", err)
	}

	if _, err := DecodeEntry(doc); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got: %v", err)
	}
}

func TestMarshalGame_RoundTripPreservesSnapshot(t *testing.T) {
	t.Parallel()

	game := NewGameLedger("game-17", "Rapids", "Comets")
	if _, err := game.AppendEvent(TeamHome, HalfFirst, mustEvent(t, KindTouchdown, jersey(7))); err != nil {
		t.Fatalf("AppendEvent error: %v", err)
	}
	if _, err := game.AppendEvent(TeamHome, HalfFirst, mustEvent(t, KindExtraPointOne, jersey(7))); err != nil {
		t.Fatalf("AppendEvent error: %v", err)
	}
	if _, err := game.AppendEvent(TeamAway, HalfFirst, mustEvent(t, KindSafety, nil)); err != nil {
		t.Fatalf("AppendEvent error: %v", err)
	}
	if _, err := game.UndoLast(TeamAway, HalfFirst); err != nil {
		t.Fatalf("UndoLast error: %v", err)
	}

	before := game.Snapshot()

	data, err := MarshalGame(game)
	if err != nil {
		t.Fatalf("MarshalGame error: %v", err)
	}

	restored, err := UnmarshalGame(data)
	if err != nil {
		t.Fatalf("UnmarshalGame error: %v", err)
	}

	after := restored.Snapshot()
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("snapshot changed across round trip:\nbefore=%+v\nafter=%+v", before, after)
	}
	if after.Home.SecondHalf.Played {
		t.Fatalf("not-played sentinel lost across round trip")
	}

	// Tombstones must survive serialization for audit history.
	raw := restored.Records()
	awayFirst := raw[TeamAway][HalfFirst]
	if len(awayFirst) != 1 || !awayFirst[0].Deleted {
		t.Fatalf("deleted entry dropped from serialized form: %+v", awayFirst)
	}
}

func TestUnmarshalGame_LegacyFirstHalfFlag(t *testing.T) {
	t.Parallel()

	raw := `{
		"gameId":"game-2",
		"isFirstHalfOnly":true,
		"home":{"name":"Rapids","firstHalf":[{"sequence":1,"td":null}],"secondHalf":[]},
		"away":{"name":"Comets","firstHalf":[],"secondHalf":[]}
	}`

	game, err := UnmarshalGame([]byte(raw))
	if err != nil {
		t.Fatalf("UnmarshalGame error: %v", err)
	}
	if game.Phase() != PhaseFirstHalf {
		t.Fatalf("unexpected phase: got=%s want=%s", game.Phase(), PhaseFirstHalf)
	}
	if got := game.Snapshot().Home.Score; got != 6 {
		t.Fatalf("unexpected home score: got=%d want=6", got)
	}
}
