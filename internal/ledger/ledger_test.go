package ledger

import (
	"testing"
	"time"

	"github.com/dokzlo13/ledpanel/internal/db"
)

func newLedger(t *testing.T) *Ledger {
	t.Helper()
	database, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return New(database.DB)
}

func TestLedger_AppendRecent(t *testing.T) {
	l := newLedger(t)

	if err := l.Append(EventScheduleSaved, "slot-1", map[string]any{"time": "07:30"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := l.Append(EventScheduleSaveFailed, "slot-2", map[string]any{"error": "boom"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := l.Append(EventScheduleSaved, "slot-3", nil); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	entries, err := l.Recent(2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Recent(2) returned %d entries", len(entries))
	}
	if entries[0].Slot != "slot-3" || entries[0].Payload != nil {
		t.Errorf("entries[0] = %+v, want slot-3 without payload", entries[0])
	}
	if entries[1].EventType != EventScheduleSaveFailed || entries[1].Payload["error"] != "boom" {
		t.Errorf("entries[1] = %+v", entries[1])
	}
}

func TestLedger_DeleteOlderThan(t *testing.T) {
	l := newLedger(t)
	l.Append(EventScheduleSaved, "old", nil)

	if _, err := l.db.Exec(`UPDATE event_ledger SET timestamp = ?`, time.Now().Add(-48*time.Hour).UnixMilli()); err != nil {
		t.Fatal(err)
	}
	l.Append(EventScheduleSaved, "new", nil)

	deleted, err := l.DeleteOlderThan(24 * time.Hour)
	if err != nil {
		t.Fatalf("DeleteOlderThan() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	entries, _ := l.Recent(10)
	if len(entries) != 1 || entries[0].Slot != "new" {
		t.Errorf("remaining = %+v", entries)
	}
}
