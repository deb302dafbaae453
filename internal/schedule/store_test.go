package schedule

import (
	"encoding/json"
	"errors"
	"testing"
)

func wireList(t *testing.T, raw string) []WireEntry {
	t.Helper()
	var wire []WireEntry
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return wire
}

func TestStore_Load(t *testing.T) {
	s := NewStore(nil)

	err := s.Load(wireList(t, `[
		{"hour":"07","minute":"00","days":["Mon"]},
		{"hour":"07","minute":"00","days":["Mon"]},
		{"hour":"21","minute":"30","days":["Fri"],"enabled":false}
	]`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	slots := s.Snapshot()
	if len(slots) != 3 || s.Len() != 3 {
		t.Fatalf("len = %d, want 3", len(slots))
	}
	if slots[0].ID == slots[1].ID {
		t.Error("equal entries share a slot ID")
	}
	if slots[2].Entry.Time != (Time{Hour: 21, Minute: 30}) || slots[2].Entry.Enabled {
		t.Errorf("slot 2 = %+v, order not preserved", slots[2].Entry)
	}

	slot, ok := s.At(2)
	if !ok || slot.ID != slots[2].ID {
		t.Errorf("At(2) = %v, %v", slot.ID, ok)
	}
	if _, ok := s.At(3); ok {
		t.Error("At(3) should be out of range")
	}
}

func TestStore_LoadMalformedKeepsSnapshot(t *testing.T) {
	s := NewStore(nil)
	if err := s.Load(wireList(t, `[{"hour":7,"minute":0,"days":["Mon"]}]`)); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	before := s.Snapshot()

	err := s.Load(wireList(t, `[{"hour":8,"minute":0,"days":["Mon"]},{"minute":0,"days":["Mon"]}]`))
	if !errors.Is(err, ErrMalformedSchedule) {
		t.Fatalf("Load() error = %v, want ErrMalformedSchedule", err)
	}

	after := s.Snapshot()
	if len(after) != 1 || after[0].ID != before[0].ID || !after[0].Entry.Equal(before[0].Entry) {
		t.Errorf("snapshot changed after rejected load: %+v", after)
	}
}

func TestStore_SnapshotIsCopy(t *testing.T) {
	s := NewStore(nil)
	if err := s.Load(wireList(t, `[{"hour":7,"minute":0,"days":["Mon"],"rooms":{"bedroom":true}}]`)); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	snap := s.Snapshot()
	snap[0].Entry.Rooms[Bedroom] = false
	snap[0].Entry.Enabled = false

	fresh := s.Snapshot()
	if !fresh[0].Entry.Rooms[Bedroom] || !fresh[0].Entry.Enabled {
		t.Error("mutating a snapshot changed the store")
	}
}
