package schedule

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/ledpanel/internal/eventbus"
)

// SlotID identifies one slot of a loaded snapshot. It is assigned on load
// and distinguishes slots even when their entries are equal.
type SlotID string

// NewSlotID returns a fresh slot identity.
func NewSlotID() SlotID {
	return SlotID(uuid.NewString())
}

// Slot is one element of the ordered schedule collection.
type Slot struct {
	ID    SlotID
	Entry Entry
}

// RowSource yields the schedule rows as they are currently presented.
// Reconciliation reads unedited entries from here at save time.
type RowSource interface {
	Rows() []Slot
}

// Store holds the authoritative client-side snapshot of the schedule.
// It only changes through Load; merging edits is done by Reconcile.
type Store struct {
	mu    sync.RWMutex
	slots []Slot
	bus   *eventbus.Bus
}

// NewStore creates an empty store. The bus may be nil.
func NewStore(bus *eventbus.Bus) *Store {
	return &Store{bus: bus}
}

// Load replaces the whole snapshot. If any element fails to decode, the
// previous snapshot is kept and ErrMalformedSchedule is returned.
func (s *Store) Load(wire []WireEntry) error {
	entries, err := DecodeAll(wire)
	if err != nil {
		log.Error().Err(err).Int("entries", len(wire)).Msg("Rejected schedule snapshot")
		return err
	}

	slots := make([]Slot, len(entries))
	for i, e := range entries {
		slots[i] = Slot{ID: NewSlotID(), Entry: e}
	}

	s.mu.Lock()
	s.slots = slots
	s.mu.Unlock()

	log.Debug().Int("entries", len(slots)).Msg("Schedule snapshot loaded")

	if s.bus != nil {
		s.bus.Publish(eventbus.Event{
			Type: eventbus.EventTypeScheduleLoaded,
			Data: map[string]interface{}{"entries": len(slots)},
		})
	}
	return nil
}

// Snapshot returns a deep copy of the current ordered collection.
func (s *Store) Snapshot() []Slot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneSlots(s.slots)
}

// Rows implements RowSource.
func (s *Store) Rows() []Slot {
	return s.Snapshot()
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.slots)
}

// At returns the slot at position i (0-based).
func (s *Store) At(i int) (Slot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i < 0 || i >= len(s.slots) {
		return Slot{}, false
	}
	return Slot{ID: s.slots[i].ID, Entry: s.slots[i].Entry.Clone()}, true
}

// Entries returns the entries of a slot list in order.
func Entries(slots []Slot) []Entry {
	out := make([]Entry, len(slots))
	for i, sl := range slots {
		out[i] = sl.Entry
	}
	return out
}

func cloneSlots(slots []Slot) []Slot {
	out := make([]Slot, len(slots))
	for i, sl := range slots {
		out[i] = Slot{ID: sl.ID, Entry: sl.Entry.Clone()}
	}
	return out
}
