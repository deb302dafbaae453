package editor

import (
	"errors"
	"fmt"
	"time"

	"github.com/dokzlo13/ledpanel/internal/schedule"
	"github.com/dokzlo13/ledpanel/internal/state"
)

const (
	draftKind = "editor_draft"
	draftID   = "current"
)

// ErrDraftApplied is returned by Resume when the controller already holds
// the draft's working copy, e.g. after a write whose reload failed.
var ErrDraftApplied = errors.New("failed edit is already saved on the controller")

// Draft is a failed edit kept between CLI runs so it can be retried.
// Slot IDs do not survive a reload, so the target is recorded by position
// and verified against the original entry when resumed.
type Draft struct {
	Position int                `json:"position"`
	Original schedule.WireEntry `json:"original"`
	Working  schedule.WireEntry `json:"working"`
	Error    string             `json:"error,omitempty"`
	SavedAt  time.Time          `json:"saved_at"`
}

// Drafts stores at most one pending draft.
type Drafts struct {
	docs *state.TypedStore[Draft]
}

// NewDrafts creates a draft store on top of the state store.
func NewDrafts(st *state.Store) *Drafts {
	return &Drafts{docs: state.NewTypedStore[Draft](st, draftKind)}
}

// Save records the session's failed edit. position is the index of the
// edited slot in the snapshot the edit was made against.
func (d *Drafts) Save(s *Session, position int) error {
	if s.Status() != StatusError {
		return fmt.Errorf("cannot keep draft of %s session", s.Status())
	}
	draft := Draft{
		Position: position,
		Original: schedule.Encode(s.Original()),
		Working:  schedule.Encode(s.Working()),
		SavedAt:  time.Now().UTC(),
	}
	if err := s.Err(); err != nil {
		draft.Error = err.Error()
	}
	return d.docs.Set(draftID, draft)
}

// Load returns the pending draft, if any.
func (d *Drafts) Load() (Draft, bool, error) {
	return d.docs.Get(draftID)
}

// Clear removes the pending draft.
func (d *Drafts) Clear() error {
	return d.docs.Delete(draftID)
}

// Resume restores draft into s against the store's current snapshot. If
// the slot at the recorded position already holds the working copy, the
// draft is cleared and ErrDraftApplied returned. Otherwise the slot must
// still hold the original entry or the edit is stale.
func (d *Drafts) Resume(s *Session, store *schedule.Store, draft Draft) error {
	original, err := schedule.Decode(draft.Original)
	if err != nil {
		return fmt.Errorf("draft original: %w", err)
	}
	working, err := schedule.Decode(draft.Working)
	if err != nil {
		return fmt.Errorf("draft working copy: %w", err)
	}

	slot, ok := store.At(draft.Position)
	if ok && slot.Entry.Equal(working) {
		if err := d.Clear(); err != nil {
			return err
		}
		return ErrDraftApplied
	}
	if !ok || !slot.Entry.Equal(original) {
		return fmt.Errorf("%w: entry #%d changed since the failed save", schedule.ErrStaleEditTarget, draft.Position+1)
	}

	var cause error
	if draft.Error != "" {
		cause = errors.New(draft.Error)
	}
	return s.Restore(slot.ID, original, working, cause)
}
