// Package schedule holds the weekly lighting schedule: the entry model, its
// wire codec, the client-side snapshot store and the reconciliation of a
// single edited entry back into a full replacement collection.
package schedule

import (
	"fmt"
	"strings"
)

// Weekday is one of the seven day tags used by the controller.
type Weekday int

const (
	Sun Weekday = iota
	Mon
	Tue
	Wed
	Thu
	Fri
	Sat
)

var weekdayTags = [...]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// String returns the wire tag of the day.
func (d Weekday) String() string {
	if d < Sun || d > Sat {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return weekdayTags[d]
}

// ParseWeekday parses a day tag. Matching is case-insensitive.
func ParseWeekday(s string) (Weekday, error) {
	s = strings.TrimSpace(s)
	for i, tag := range weekdayTags {
		if strings.EqualFold(s, tag) {
			return Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("unknown day %q", s)
}

// DaySet is a set of weekdays stored as a bitmask.
type DaySet uint8

// NewDaySet returns a set containing the given days.
func NewDaySet(days ...Weekday) DaySet {
	var s DaySet
	for _, d := range days {
		s = s.With(d)
	}
	return s
}

// ParseDays parses a comma-joined list of tags such as "Mon,Wed".
// The empty string is the empty set.
func ParseDays(s string) (DaySet, error) {
	var set DaySet
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		d, err := ParseWeekday(part)
		if err != nil {
			return 0, err
		}
		set = set.With(d)
	}
	return set, nil
}

func (s DaySet) Has(d Weekday) bool   { return s&(1<<uint(d)) != 0 }
func (s DaySet) With(d Weekday) DaySet { return s | 1<<uint(d) }
func (s DaySet) Without(d Weekday) DaySet {
	return s &^ (1 << uint(d))
}

// Toggle flips membership of d.
func (s DaySet) Toggle(d Weekday) DaySet { return s ^ 1<<uint(d) }

// IsEmpty reports whether no day is set. Such an entry never fires.
func (s DaySet) IsEmpty() bool { return s == 0 }

// Days returns the members in week order (Sun first).
func (s DaySet) Days() []Weekday {
	var out []Weekday
	for d := Sun; d <= Sat; d++ {
		if s.Has(d) {
			out = append(out, d)
		}
	}
	return out
}

// Tags returns the members as wire tags in week order.
func (s DaySet) Tags() []string {
	days := s.Days()
	tags := make([]string, len(days))
	for i, d := range days {
		tags[i] = d.String()
	}
	return tags
}

// String returns the comma-joined tags, e.g. "Mon,Wed".
func (s DaySet) String() string {
	return strings.Join(s.Tags(), ",")
}

// Time is a time of day with minute resolution.
type Time struct {
	Hour   int
	Minute int
}

// NewTime validates hour and minute and returns a Time.
func NewTime(hour, minute int) (Time, error) {
	if hour < 0 || hour > 23 {
		return Time{}, fmt.Errorf("invalid hour: %d", hour)
	}
	if minute < 0 || minute > 59 {
		return Time{}, fmt.Errorf("invalid minute: %d", minute)
	}
	return Time{Hour: hour, Minute: minute}, nil
}

// ParseTime parses "HH:MM" (or "H:MM").
func ParseTime(s string) (Time, error) {
	var h, m int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d:%d", &h, &m); err != nil {
		return Time{}, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	return NewTime(h, m)
}

// String formats the time as "HH:MM" for display.
func (t Time) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Room is one of the relay-switched rooms.
type Room string

const (
	Bedroom    Room = "bedroom"
	Office     Room = "office"
	LivingRoom Room = "living_room"
)

// Rooms lists every known room in display order.
var Rooms = []Room{Bedroom, Office, LivingRoom}

// ParseRoom validates a room key.
func ParseRoom(s string) (Room, error) {
	for _, r := range Rooms {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown room %q", s)
}

// Wemo is the name of a WeMo smart plug.
type Wemo string

const (
	Insight Wemo = "Insight"
	Mini    Wemo = "Mini"
)

// Wemos lists every known WeMo device in display order.
var Wemos = []Wemo{Insight, Mini}

// ParseWemo validates a device name.
func ParseWemo(s string) (Wemo, error) {
	for _, w := range Wemos {
		if string(w) == s {
			return w, nil
		}
	}
	return "", fmt.Errorf("unknown wemo %q", s)
}

// WemoCommand is the command sent to a WeMo device when an entry fires.
// WemoNone is the blank selection and means no command.
type WemoCommand string

const (
	WemoNone   WemoCommand = ""
	WemoOn     WemoCommand = "on"
	WemoOff    WemoCommand = "off"
	WemoToggle WemoCommand = "toggle"
)

// ParseWemoCommand validates a command. The empty string is WemoNone.
func ParseWemoCommand(s string) (WemoCommand, error) {
	switch c := WemoCommand(s); c {
	case WemoNone, WemoOn, WemoOff, WemoToggle:
		return c, nil
	}
	return WemoNone, fmt.Errorf("unknown wemo command %q", s)
}

// RoomSetting is the tri-state room selection of the editor.
type RoomSetting int

const (
	RoomUnset RoomSetting = iota // leave the room unchanged
	RoomOn
	RoomOff
)

// ParseRoomSetting parses "on", "off" or "unset" (or "").
func ParseRoomSetting(s string) (RoomSetting, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true":
		return RoomOn, nil
	case "off", "false":
		return RoomOff, nil
	case "", "unset":
		return RoomUnset, nil
	}
	return RoomUnset, fmt.Errorf("invalid room setting %q", s)
}

// Optional holds a value that may be explicitly unset.
type Optional[T any] struct {
	value T
	set   bool
}

// Some returns a set Optional.
func Some[T any](v T) Optional[T] { return Optional[T]{value: v, set: true} }

// None returns an unset Optional.
func None[T any]() Optional[T] { return Optional[T]{} }

// Get returns the value and whether it is set.
func (o Optional[T]) Get() (T, bool) { return o.value, o.set }

// IsSet reports whether a value is present.
func (o Optional[T]) IsSet() bool { return o.set }

// Entry is one scheduled lighting event.
type Entry struct {
	Time     Time
	Days     DaySet
	Enabled  bool
	Sequence Optional[string]      // sequence reference to play, if any
	Rooms    map[Room]bool         // absent key: leave room unchanged
	Wemos    map[Wemo]WemoCommand // absent key: no command
}

// Clone returns a deep copy of the entry.
func (e Entry) Clone() Entry {
	out := e
	out.Rooms = nil
	out.Wemos = nil
	if len(e.Rooms) > 0 {
		out.Rooms = make(map[Room]bool, len(e.Rooms))
		for k, v := range e.Rooms {
			out.Rooms[k] = v
		}
	}
	for k, v := range e.Wemos {
		if v == WemoNone {
			continue
		}
		if out.Wemos == nil {
			out.Wemos = make(map[Wemo]WemoCommand, len(e.Wemos))
		}
		out.Wemos[k] = v
	}
	return out
}

// Equal compares two entries field by field. Nil and empty maps are equal.
func (e Entry) Equal(o Entry) bool {
	if e.Time != o.Time || e.Days != o.Days || e.Enabled != o.Enabled || e.Sequence != o.Sequence {
		return false
	}
	if len(e.Rooms) != len(o.Rooms) {
		return false
	}
	for k, v := range e.Rooms {
		if ov, ok := o.Rooms[k]; !ok || ov != v {
			return false
		}
	}
	// A missing key reads as WemoNone, so WemoNone values match absent keys.
	for k, v := range e.Wemos {
		if o.Wemos[k] != v {
			return false
		}
	}
	for k, v := range o.Wemos {
		if e.Wemos[k] != v {
			return false
		}
	}
	return true
}

const allDays DaySet = 1<<7 - 1

// Validate reports an entry the controller could not store: a time of day
// outside 00:00..23:59, or days, rooms, wemos or commands outside their
// enumerations. Errors wrap ErrMalformedEntry.
func (e Entry) Validate() error {
	if _, err := NewTime(e.Time.Hour, e.Time.Minute); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEntry, err)
	}
	if e.Days&^allDays != 0 {
		return fmt.Errorf("%w: invalid days mask %#x", ErrMalformedEntry, uint8(e.Days))
	}
	for room := range e.Rooms {
		if _, err := ParseRoom(string(room)); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedEntry, err)
		}
	}
	for wemo, cmd := range e.Wemos {
		if _, err := ParseWemo(string(wemo)); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedEntry, err)
		}
		if _, err := ParseWemoCommand(string(cmd)); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedEntry, err)
		}
	}
	return nil
}
