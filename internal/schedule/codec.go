package schedule

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// WireEntry is the JSON form of an entry as served by /api/get-schedule and
// accepted by /api/set-schedule.
//
// Hour and minute are kept raw because the controller writes them as
// zero-padded strings ("07") while older payloads carry plain numbers.
// Days may be a JSON array of tags or a single comma-joined string.
type WireEntry struct {
	Days     json.RawMessage    `json:"days"`
	Hour     json.RawMessage    `json:"hour"`
	Minute   json.RawMessage    `json:"minute"`
	Enabled  *bool              `json:"enabled,omitempty"`
	Sequence *string            `json:"sequence,omitempty"`
	Rooms    map[string]*bool   `json:"rooms,omitempty"`
	Wemos    map[string]*string `json:"wemos,omitempty"`
}

// Decode converts a wire entry into the model, applying defaults:
// a missing "enabled" means enabled, null room and wemo values are dropped.
func Decode(w WireEntry) (Entry, error) {
	hour, err := decodeClock("hour", w.Hour)
	if err != nil {
		return Entry{}, err
	}
	minute, err := decodeClock("minute", w.Minute)
	if err != nil {
		return Entry{}, err
	}
	t, err := NewTime(hour, minute)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrMalformedEntry, err)
	}

	days, err := decodeDays(w.Days)
	if err != nil {
		return Entry{}, err
	}

	e := Entry{
		Time:    t,
		Days:    days,
		Enabled: true,
	}
	if w.Enabled != nil {
		e.Enabled = *w.Enabled
	}
	if w.Sequence != nil {
		e.Sequence = Some(*w.Sequence)
	}

	for key, val := range w.Rooms {
		room, err := ParseRoom(key)
		if err != nil {
			return Entry{}, fmt.Errorf("%w: %v", ErrMalformedEntry, err)
		}
		if val == nil {
			continue
		}
		if e.Rooms == nil {
			e.Rooms = make(map[Room]bool)
		}
		e.Rooms[room] = *val
	}

	for key, val := range w.Wemos {
		wemo, err := ParseWemo(key)
		if err != nil {
			return Entry{}, fmt.Errorf("%w: %v", ErrMalformedEntry, err)
		}
		if val == nil {
			continue
		}
		cmd, err := ParseWemoCommand(*val)
		if err != nil {
			return Entry{}, fmt.Errorf("%w: %v", ErrMalformedEntry, err)
		}
		if cmd == WemoNone {
			continue
		}
		if e.Wemos == nil {
			e.Wemos = make(map[Wemo]WemoCommand)
		}
		e.Wemos[wemo] = cmd
	}

	return e, nil
}

// Encode converts an entry into its wire form. Unset rooms and wemos are
// omitted, and the maps themselves are omitted when nothing is set.
func Encode(e Entry) WireEntry {
	enabled := e.Enabled
	w := WireEntry{
		Days:    mustMarshal(e.Days.Tags()),
		Hour:    encodeClock(e.Time.Hour),
		Minute:  encodeClock(e.Time.Minute),
		Enabled: &enabled,
	}
	if seq, ok := e.Sequence.Get(); ok {
		w.Sequence = &seq
	}
	for _, room := range Rooms {
		on, ok := e.Rooms[room]
		if !ok {
			continue
		}
		if w.Rooms == nil {
			w.Rooms = make(map[string]*bool)
		}
		w.Rooms[string(room)] = &on
	}
	for _, wemo := range Wemos {
		cmd, ok := e.Wemos[wemo]
		if !ok || cmd == WemoNone {
			continue
		}
		if w.Wemos == nil {
			w.Wemos = make(map[string]*string)
		}
		s := string(cmd)
		w.Wemos[string(wemo)] = &s
	}
	return w
}

// DecodeAll decodes a full snapshot. A failure on any element fails the
// whole collection with ErrMalformedSchedule.
func DecodeAll(wire []WireEntry) ([]Entry, error) {
	entries := make([]Entry, 0, len(wire))
	for i, w := range wire {
		e, err := Decode(w)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %w", ErrMalformedSchedule, i, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// EncodeAll validates and encodes a full collection in order. Nothing is
// returned if any entry fails Validate.
func EncodeAll(entries []Entry) ([]WireEntry, error) {
	wire := make([]WireEntry, len(entries))
	for i, e := range entries {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		wire[i] = Encode(e)
	}
	return wire, nil
}

func decodeClock(field string, raw json.RawMessage) (int, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, fmt.Errorf("%w: missing %s", ErrMalformedEntry, field)
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return 0, fmt.Errorf("%w: invalid %s: %v", ErrMalformedEntry, field, err)
		}
		s = strings.TrimSpace(str)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s %q", ErrMalformedEntry, field, s)
	}
	return n, nil
}

func encodeClock(v int) json.RawMessage {
	return mustMarshal(fmt.Sprintf("%02d", v))
}

func decodeDays(raw json.RawMessage) (DaySet, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, nil
	}

	var tags []string
	if strings.HasPrefix(s, `"`) {
		var joined string
		if err := json.Unmarshal(raw, &joined); err != nil {
			return 0, fmt.Errorf("%w: invalid days: %v", ErrMalformedEntry, err)
		}
		tags = strings.Split(joined, ",")
	} else if err := json.Unmarshal(raw, &tags); err != nil {
		return 0, fmt.Errorf("%w: invalid days: %v", ErrMalformedEntry, err)
	}

	var set DaySet
	for _, tag := range tags {
		if strings.TrimSpace(tag) == "" {
			continue
		}
		d, err := ParseWeekday(tag)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrMalformedEntry, err)
		}
		set = set.With(d)
	}
	return set, nil
}

func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("schedule: marshal %T: %v", v, err))
	}
	return data
}
