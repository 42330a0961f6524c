package scorecard

import (
	"fmt"
	"sort"
)

// HalfLedger is the append-mostly event log for one team in one half. It is
// owned by its GameLedger and must only be mutated through it.
type HalfLedger struct {
	Team    TeamSide
	Half    HalfKind
	entries []EventRecord
}

func NewHalfLedger(team TeamSide, half HalfKind) *HalfLedger {
	return &HalfLedger{Team: team, Half: half}
}

// Restore rebuilds a ledger from persisted records, tombstones included.
// Entry order is preserved as stored; Materialize sorts on read.
func Restore(team TeamSide, half HalfKind, records []EventRecord) *HalfLedger {
	ledger := NewHalfLedger(team, half)
	ledger.entries = append(ledger.entries, records...)
	return ledger
}

// Append assigns the next sequence number and stores the record. Sequence
// numbers strictly increase and are never reused, even after deletions.
func (l *HalfLedger) Append(event Event) EventRecord {
	record := EventRecord{
		Sequence: l.maxSequence() + 1,
		Event:    event,
	}
	l.entries = append(l.entries, record)
	return record
}

// SoftDeleteLast tombstones the highest-sequence non-deleted record.
func (l *HalfLedger) SoftDeleteLast() (EventRecord, error) {
	target := -1
	for i, record := range l.entries {
		if record.Deleted {
			continue
		}
		if target < 0 || record.Sequence > l.entries[target].Sequence {
			target = i
		}
	}
	if target < 0 {
		return EventRecord{}, fmt.Errorf("%w: team=%s half=%d", ErrEmptyLedger, l.Team, l.Half)
	}

	l.entries[target] = l.entries[target].MarkDeleted()
	return l.entries[target], nil
}

// Materialize returns the non-deleted records in ascending sequence order.
// The slice is freshly allocated on every call; callers must not rely on
// identity across mutations.
func (l *HalfLedger) Materialize() []EventRecord {
	out := make([]EventRecord, 0, len(l.entries))
	for _, record := range l.entries {
		if record.Deleted {
			continue
		}
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out
}

// Records returns every stored record, tombstones included, in ascending
// sequence order. This is the persistence view.
func (l *HalfLedger) Records() []EventRecord {
	out := append([]EventRecord(nil), l.entries...)
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out
}

func (l *HalfLedger) maxSequence() int {
	max := 0
	for _, record := range l.entries {
		if record.Sequence > max {
			max = record.Sequence
		}
	}
	return max
}
