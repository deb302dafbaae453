package schedule

import "fmt"

// Reconcile builds the full replacement collection for a save: the slot
// matching target is replaced by revised, every other row is emitted as
// given, in order. The rows are not modified.
//
// Matching is by identity only. If no row carries target, the edit is stale
// and ErrStaleEditTarget is returned. A revised entry that fails Validate
// is rejected with ErrMalformedEntry.
func Reconcile(rows []Slot, target SlotID, revised Entry) ([]Slot, error) {
	if err := revised.Validate(); err != nil {
		return nil, err
	}

	out := make([]Slot, len(rows))
	found := false

	for i, row := range rows {
		if row.ID == target {
			if found {
				return nil, fmt.Errorf("duplicate slot %s in schedule rows", target)
			}
			found = true
			out[i] = Slot{ID: row.ID, Entry: revised.Clone()}
			continue
		}
		out[i] = Slot{ID: row.ID, Entry: row.Entry.Clone()}
	}

	if !found {
		return nil, fmt.Errorf("%w: slot %s", ErrStaleEditTarget, target)
	}
	return out, nil
}
