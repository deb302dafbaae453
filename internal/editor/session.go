// Package editor implements the single-entry schedule edit workflow.
//
// A Session moves through Closed → Open → Submitting → (Closed | Error).
// Only one entry is edited at a time; the store is only replaced after the
// controller accepted the write and the canonical snapshot was re-fetched.
package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/ledpanel/internal/eventbus"
	"github.com/dokzlo13/ledpanel/internal/panel"
	"github.com/dokzlo13/ledpanel/internal/schedule"
)

// Status is the lifecycle state of a Session.
type Status int

const (
	StatusClosed Status = iota
	StatusOpen
	StatusSubmitting
	StatusError
)

// String returns a human-readable name for the status.
func (s Status) String() string {
	switch s {
	case StatusClosed:
		return "closed"
	case StatusOpen:
		return "open"
	case StatusSubmitting:
		return "submitting"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

var (
	// ErrNotOpen is returned by mutations and saves when no edit is in progress.
	ErrNotOpen = errors.New("no schedule entry is open for editing")
	// ErrSubmitting is returned while a save is in flight.
	ErrSubmitting = errors.New("schedule save in progress")
)

// DefaultSyncTimeout bounds persist plus re-fetch when none is configured.
const DefaultSyncTimeout = 15 * time.Second

// Syncer persists a full collection and fetches the canonical snapshot.
// *panel.Client implements it.
type Syncer interface {
	Persist(ctx context.Context, entries []schedule.Entry) error
	FetchSchedule(ctx context.Context) ([]schedule.WireEntry, error)
}

// Session is the editor state for one schedule entry.
type Session struct {
	store   *schedule.Store
	syncer  Syncer
	bus     *eventbus.Bus
	timeout time.Duration

	mu       sync.Mutex
	status   Status
	target   schedule.SlotID
	original schedule.Entry
	working  schedule.Entry
	lastErr  error
}

// New creates a closed session. bus may be nil; timeout <= 0 uses
// DefaultSyncTimeout.
func New(store *schedule.Store, syncer Syncer, bus *eventbus.Bus, timeout time.Duration) *Session {
	if timeout <= 0 {
		timeout = DefaultSyncTimeout
	}
	return &Session{
		store:   store,
		syncer:  syncer,
		bus:     bus,
		timeout: timeout,
	}
}

// Status returns the current state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Target returns the slot being edited.
func (s *Session) Target() (schedule.SlotID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target, s.status != StatusClosed
}

// Original returns the entry as it was when opened.
func (s *Session) Original() schedule.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.original.Clone()
}

// Working returns a copy of the working entry.
func (s *Session) Working() schedule.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.working.Clone()
}

// Err returns the failure that moved the session to StatusError.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Open starts editing slot. An edit already open (or failed) is discarded
// first. Opening during a save is refused.
func (s *Session) Open(slot schedule.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.status {
	case StatusSubmitting:
		return ErrSubmitting
	case StatusOpen, StatusError:
		log.Debug().Str("slot", string(s.target)).Msg("Discarding previous edit")
		s.reset()
	}

	s.status = StatusOpen
	s.target = slot.ID
	s.original = slot.Entry.Clone()
	s.working = slot.Entry.Clone()

	log.Debug().Str("slot", string(slot.ID)).Str("time", slot.Entry.Time.String()).Msg("Editing schedule entry")
	return nil
}

// Restore reinstates a failed edit so it can be retried with Save without
// re-entering the changes.
func (s *Session) Restore(target schedule.SlotID, original, working schedule.Entry, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusSubmitting {
		return ErrSubmitting
	}
	s.status = StatusError
	s.target = target
	s.original = original.Clone()
	s.working = working.Clone()
	s.lastErr = cause
	return nil
}

// Cancel discards the working copy. Nothing is sent to the controller.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusSubmitting {
		return
	}
	s.reset()
}

// SetTime sets the time of day.
func (s *Session) SetTime(hour, minute int) error {
	t, err := schedule.NewTime(hour, minute)
	if err != nil {
		return err
	}
	return s.mutate(func(e *schedule.Entry) { e.Time = t })
}

// ToggleDay adds or removes a weekday.
func (s *Session) ToggleDay(day schedule.Weekday) error {
	if day < schedule.Sun || day > schedule.Sat {
		return fmt.Errorf("invalid weekday %d", int(day))
	}
	return s.mutate(func(e *schedule.Entry) { e.Days = e.Days.Toggle(day) })
}

// SetEnabled enables or disables the entry.
func (s *Session) SetEnabled(enabled bool) error {
	return s.mutate(func(e *schedule.Entry) { e.Enabled = enabled })
}

// SetRoom sets a room on or off; RoomUnset removes the room from the entry.
func (s *Session) SetRoom(room schedule.Room, setting schedule.RoomSetting) error {
	if _, err := schedule.ParseRoom(string(room)); err != nil {
		return err
	}
	return s.mutate(func(e *schedule.Entry) {
		if setting == schedule.RoomUnset {
			delete(e.Rooms, room)
			return
		}
		if e.Rooms == nil {
			e.Rooms = make(map[schedule.Room]bool)
		}
		e.Rooms[room] = setting == schedule.RoomOn
	})
}

// SetWemoCommand sets the command for a device; WemoNone removes it.
func (s *Session) SetWemoCommand(wemo schedule.Wemo, cmd schedule.WemoCommand) error {
	if _, err := schedule.ParseWemo(string(wemo)); err != nil {
		return err
	}
	if _, err := schedule.ParseWemoCommand(string(cmd)); err != nil {
		return err
	}
	return s.mutate(func(e *schedule.Entry) {
		if cmd == schedule.WemoNone {
			delete(e.Wemos, wemo)
			return
		}
		if e.Wemos == nil {
			e.Wemos = make(map[schedule.Wemo]schedule.WemoCommand)
		}
		e.Wemos[wemo] = cmd
	})
}

// SetSequence sets the sequence to play. An empty ref clears it.
func (s *Session) SetSequence(ref string) error {
	return s.mutate(func(e *schedule.Entry) {
		if ref == "" {
			e.Sequence = schedule.None[string]()
			return
		}
		e.Sequence = schedule.Some(ref)
	})
}

func (s *Session) mutate(fn func(e *schedule.Entry)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.status {
	case StatusOpen:
	case StatusSubmitting:
		return ErrSubmitting
	default:
		return ErrNotOpen
	}
	fn(&s.working)
	return nil
}

// Save reconciles the working copy into rows (read now, not at Open),
// replaces the controller's schedule and reloads the store from the
// controller. On success the session closes. On failure it moves to
// StatusError, keeps the working copy and leaves the store untouched;
// Save may then be called again.
func (s *Session) Save(ctx context.Context, rows schedule.RowSource) error {
	s.mu.Lock()
	switch s.status {
	case StatusOpen, StatusError:
	case StatusSubmitting:
		s.mu.Unlock()
		return ErrSubmitting
	default:
		s.mu.Unlock()
		return ErrNotOpen
	}
	s.status = StatusSubmitting
	target := s.target
	working := s.working.Clone()
	s.mu.Unlock()

	err := s.submit(ctx, rows, target, working)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.status = StatusError
		s.lastErr = err
		log.Error().Err(err).Str("slot", string(target)).Msg("Failed to save schedule entry")
		s.publish(eventbus.EventTypeSessionFailed, target, working, err)
		return err
	}

	log.Info().Str("slot", string(target)).Str("time", working.Time.String()).Msg("Schedule entry saved")
	s.reset()
	s.publish(eventbus.EventTypeSessionSaved, target, working, nil)
	return nil
}

func (s *Session) submit(ctx context.Context, rows schedule.RowSource, target schedule.SlotID, working schedule.Entry) error {
	merged, err := schedule.Reconcile(rows.Rows(), target, working)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.syncer.Persist(ctx, schedule.Entries(merged)); err != nil {
		if !errors.Is(err, panel.ErrSyncFailed) {
			err = fmt.Errorf("%w: %w", panel.ErrSyncFailed, err)
		}
		return err
	}

	// The controller may normalize what it stored; only its answer is authoritative.
	wire, err := s.syncer.FetchSchedule(ctx)
	if err != nil {
		return fmt.Errorf("%w: schedule written but reload failed: %w", panel.ErrSyncFailed, err)
	}
	return s.store.Load(wire)
}

func (s *Session) reset() {
	s.status = StatusClosed
	s.target = ""
	s.original = schedule.Entry{}
	s.working = schedule.Entry{}
	s.lastErr = nil
}

func (s *Session) publish(t eventbus.EventType, target schedule.SlotID, working schedule.Entry, err error) {
	if s.bus == nil {
		return
	}
	data := map[string]interface{}{
		"slot":    string(target),
		"time":    working.Time.String(),
		"days":    working.Days.String(),
		"enabled": working.Enabled,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	s.bus.Publish(eventbus.Event{Type: t, Data: data})
}
