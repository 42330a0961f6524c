package scorecard

import (
	"errors"
	"testing"
)

func mustEvent(t *testing.T, kind EventKind, jersey *int) Event {
	t.Helper()

	event, err := NewEvent(kind, jersey, false, "")
	if err != nil {
		t.Fatalf("NewEvent(%s) error: %v", kind, err)
	}
	return event
}

func jersey(n int) *int { return &n }

func TestHalfLedger_AppendAssignsIncreasingSequences(t *testing.T) {
	t.Parallel()

	ledger := NewHalfLedger(TeamHome, HalfFirst)

	first := ledger.Append(mustEvent(t, KindTouchdown, jersey(7)))
	second := ledger.Append(mustEvent(t, KindExtraPointOne, nil))

	if first.Sequence != 1 {
		t.Fatalf("unexpected first sequence: got=%d want=1", first.Sequence)
	}
	if second.Sequence != 2 {
		t.Fatalf("unexpected second sequence: got=%d want=2", second.Sequence)
	}
}

func TestHalfLedger_SequencesNeverReusedAfterDelete(t *testing.T) {
	t.Parallel()

	ledger := NewHalfLedger(TeamHome, HalfFirst)
	ledger.Append(mustEvent(t, KindTouchdown, nil))
	ledger.Append(mustEvent(t, KindSafety, nil))

	if _, err := ledger.SoftDeleteLast(); err != nil {
		t.Fatalf("SoftDeleteLast error: %v", err)
	}

	next := ledger.Append(mustEvent(t, KindTouchdown, nil))
	if next.Sequence != 3 {
		t.Fatalf("sequence reused after delete: got=%d want=3", next.Sequence)
	}
}

func TestHalfLedger_SoftDeleteLastSkipsTombstones(t *testing.T) {
	t.Parallel()

	ledger := NewHalfLedger(TeamAway, HalfSecond)
	ledger.Append(mustEvent(t, KindTouchdown, nil))
	ledger.Append(mustEvent(t, KindExtraPointTwo, nil))

	deleted, err := ledger.SoftDeleteLast()
	if err != nil {
		t.Fatalf("first SoftDeleteLast error: %v", err)
	}
	if deleted.Sequence != 2 {
		t.Fatalf("unexpected deleted sequence: got=%d want=2", deleted.Sequence)
	}

	deleted, err = ledger.SoftDeleteLast()
	if err != nil {
		t.Fatalf("second SoftDeleteLast error: %v", err)
	}
	if deleted.Sequence != 1 {
		t.Fatalf("unexpected deleted sequence: got=%d want=1", deleted.Sequence)
	}

	if _, err := ledger.SoftDeleteLast(); !errors.Is(err, ErrEmptyLedger) {
		t.Fatalf("expected ErrEmptyLedger, got: %v", err)
	}
}

func TestHalfLedger_MaterializeExcludesDeletedAndSortsBySequence(t *testing.T) {
	t.Parallel()

	// Back-filled entry: stored out of order, must still display in order.
	ledger := Restore(TeamHome, HalfFirst, []EventRecord{
		{Sequence: 3, Event: mustEvent(t, KindSafety, nil)},
		{Sequence: 1, Event: mustEvent(t, KindTouchdown, jersey(12))},
		{Sequence: 2, Event: mustEvent(t, KindExtraPointOne, nil), Deleted: true},
	})

	view := ledger.Materialize()
	if len(view) != 2 {
		t.Fatalf("unexpected materialized length: got=%d want=2", len(view))
	}
	if view[0].Sequence != 1 || view[1].Sequence != 3 {
		t.Fatalf("materialized view not sorted: got=[%d %d]", view[0].Sequence, view[1].Sequence)
	}
	for _, record := range view {
		if record.Deleted {
			t.Fatalf("deleted record leaked into materialized view: seq=%d", record.Sequence)
		}
	}
}

func TestHalfLedger_RecordsRetainTombstones(t *testing.T) {
	t.Parallel()

	ledger := NewHalfLedger(TeamHome, HalfFirst)
	ledger.Append(mustEvent(t, KindTouchdown, nil))
	if _, err := ledger.SoftDeleteLast(); err != nil {
		t.Fatalf("SoftDeleteLast error: %v", err)
	}

	records := ledger.Records()
	if len(records) != 1 {
		t.Fatalf("unexpected records length: got=%d want=1", len(records))
	}
	if !records[0].Deleted {
		t.Fatalf("tombstone flag lost on raw records")
	}
}

func TestNewEvent_RejectsOutOfRangeJersey(t *testing.T) {
	t.Parallel()

	if _, err := NewEvent(KindTouchdown, jersey(100), false, ""); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent for jersey 100, got: %v", err)
	}
	if _, err := NewEvent(KindSafety, jersey(-1), false, ""); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent for jersey -1, got: %v", err)
	}
	if _, err := NewEvent(KindTouchdown, jersey(0), false, ""); err != nil {
		t.Fatalf("jersey 0 should be valid, got: %v", err)
	}
}

func TestMarkDeleted_DoesNotMutateReceiver(t *testing.T) {
	t.Parallel()

	original := EventRecord{Sequence: 1, Event: mustEvent(t, KindTouchdown, jersey(4))}
	tombstone := original.MarkDeleted()

	if original.Deleted {
		t.Fatalf("MarkDeleted mutated the original record")
	}
	if !tombstone.Deleted {
		t.Fatalf("MarkDeleted did not flag the copy")
	}
}
