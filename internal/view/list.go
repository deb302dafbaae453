// Package view is the presented schedule list. It mirrors the store after
// each load and may be changed in place by quick toggles; at save time the
// editor reads unedited rows from here, not from the store.
package view

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/dokzlo13/ledpanel/internal/schedule"
	"github.com/dokzlo13/ledpanel/internal/sequence"
)

// List holds the rows as presented to the user.
type List struct {
	mu   sync.RWMutex
	rows []schedule.Slot
}

// NewList creates an empty list.
func NewList() *List {
	return &List{}
}

// Refresh replaces the rows, typically with Store.Snapshot().
func (l *List) Refresh(slots []schedule.Slot) {
	rows := make([]schedule.Slot, len(slots))
	for i, s := range slots {
		rows[i] = schedule.Slot{ID: s.ID, Entry: s.Entry.Clone()}
	}

	l.mu.Lock()
	l.rows = rows
	l.mu.Unlock()
}

// Rows implements schedule.RowSource.
func (l *List) Rows() []schedule.Slot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]schedule.Slot, len(l.rows))
	for i, s := range l.rows {
		out[i] = schedule.Slot{ID: s.ID, Entry: s.Entry.Clone()}
	}
	return out
}

// Len returns the number of rows.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.rows)
}

// Row returns the row at 1-based position n, as numbered by Render.
func (l *List) Row(n int) (schedule.Slot, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n < 1 || n > len(l.rows) {
		return schedule.Slot{}, false
	}
	s := l.rows[n-1]
	return schedule.Slot{ID: s.ID, Entry: s.Entry.Clone()}, true
}

// Position returns the 0-based index of a slot.
func (l *List) Position(id schedule.SlotID) (int, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for i, s := range l.rows {
		if s.ID == id {
			return i, true
		}
	}
	return 0, false
}

// ToggleEnabled flips the enabled icon of a row. Only the presented row
// changes; it reaches the controller with the next save.
func (l *List) ToggleEnabled(id schedule.SlotID) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.rows {
		if l.rows[i].ID == id {
			l.rows[i].Entry.Enabled = !l.rows[i].Entry.Enabled
			return l.rows[i].Entry.Enabled, nil
		}
	}
	return false, fmt.Errorf("%w: slot %s", schedule.ErrStaleEditTarget, id)
}

// Render writes the rows as a table.
func (l *List) Render(out io.Writer) error {
	rows := l.Rows()
	if len(rows) == 0 {
		_, err := fmt.Fprintln(out, "No scheduled entries")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tTIME\tDAYS\tON\tSEQUENCE\tROOMS\tWEMOS")
	for i, row := range rows {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			i+1,
			row.Entry.Time,
			FormatDays(row.Entry.Days),
			FormatEnabled(row.Entry.Enabled),
			FormatSequence(row.Entry.Sequence),
			FormatRooms(row.Entry.Rooms),
			FormatWemos(row.Entry.Wemos),
		)
	}
	return w.Flush()
}

// FormatDays renders a day set; an empty set is flagged since it never fires.
func FormatDays(days schedule.DaySet) string {
	if days.IsEmpty() {
		return "(never)"
	}
	return days.String()
}

// FormatEnabled renders the enabled icon.
func FormatEnabled(enabled bool) string {
	if enabled {
		return "✓"
	}
	return "✗"
}

// FormatSequence renders the sequence display name.
func FormatSequence(seq schedule.Optional[string]) string {
	ref, ok := seq.Get()
	if !ok {
		return "-"
	}
	return sequence.DisplayName(ref)
}

// FormatRooms renders set rooms as "bedroom=on,office=off".
func FormatRooms(rooms map[schedule.Room]bool) string {
	var parts []string
	for _, r := range schedule.Rooms {
		on, ok := rooms[r]
		if !ok {
			continue
		}
		state := "off"
		if on {
			state = "on"
		}
		parts = append(parts, string(r)+"="+state)
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ",")
}

// FormatWemos renders device commands as "Insight=toggle".
func FormatWemos(wemos map[schedule.Wemo]schedule.WemoCommand) string {
	var parts []string
	for _, d := range schedule.Wemos {
		if cmd, ok := wemos[d]; ok {
			parts = append(parts, string(d)+"="+string(cmd))
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ",")
}
