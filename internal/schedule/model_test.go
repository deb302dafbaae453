package schedule

import (
	"errors"
	"testing"
)

func TestDaySet(t *testing.T) {
	s := NewDaySet(Fri, Mon)
	if !s.Has(Mon) || !s.Has(Fri) || s.Has(Sun) {
		t.Errorf("NewDaySet(Fri, Mon) = %s", s)
	}
	if s.String() != "Mon,Fri" {
		t.Errorf("String() = %q, want %q", s.String(), "Mon,Fri")
	}

	s = s.Toggle(Mon).Toggle(Sat)
	if s.String() != "Fri,Sat" {
		t.Errorf("after toggles String() = %q, want %q", s.String(), "Fri,Sat")
	}
	if s.Without(Fri).Without(Sat) != 0 || !s.Without(Fri).Without(Sat).IsEmpty() {
		t.Error("Without should empty the set")
	}

	var empty DaySet
	if tags := empty.Tags(); tags == nil || len(tags) != 0 {
		t.Errorf("empty Tags() = %#v, want empty non-nil", tags)
	}
}

func TestParseDays(t *testing.T) {
	tests := []struct {
		in      string
		want    DaySet
		wantErr bool
	}{
		{in: "", want: 0},
		{in: "Mon,Wed", want: NewDaySet(Mon, Wed)},
		{in: "sun, sat", want: NewDaySet(Sun, Sat)},
		{in: "Mon,Xyz", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseDays(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDays(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDays(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestNewTime(t *testing.T) {
	tests := []struct {
		hour, minute int
		wantErr      bool
	}{
		{0, 0, false},
		{23, 59, false},
		{24, 0, true},
		{-1, 0, true},
		{12, 60, true},
	}

	for _, tt := range tests {
		_, err := NewTime(tt.hour, tt.minute)
		if (err != nil) != tt.wantErr {
			t.Errorf("NewTime(%d, %d) error = %v, wantErr %v", tt.hour, tt.minute, err, tt.wantErr)
		}
	}
}

func TestParseTime(t *testing.T) {
	got, err := ParseTime("6:05")
	if err != nil {
		t.Fatalf("ParseTime() error = %v", err)
	}
	if got.String() != "06:05" {
		t.Errorf("ParseTime(\"6:05\") = %s, want 06:05", got)
	}
	if _, err := ParseTime("25:00"); err == nil {
		t.Error("ParseTime(\"25:00\") should fail")
	}
	if _, err := ParseTime("noon"); err == nil {
		t.Error("ParseTime(\"noon\") should fail")
	}
}

func TestParseRoomSetting(t *testing.T) {
	tests := map[string]RoomSetting{
		"on":    RoomOn,
		"OFF":   RoomOff,
		"":      RoomUnset,
		"unset": RoomUnset,
	}
	for in, want := range tests {
		got, err := ParseRoomSetting(in)
		if err != nil || got != want {
			t.Errorf("ParseRoomSetting(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseRoomSetting("maybe"); err == nil {
		t.Error("ParseRoomSetting(\"maybe\") should fail")
	}
}

func TestEntryCloneAndEqual(t *testing.T) {
	e := Entry{
		Time:     Time{Hour: 5},
		Enabled:  true,
		Sequence: Some("x"),
		Rooms:    map[Room]bool{Bedroom: true},
		Wemos:    map[Wemo]WemoCommand{Mini: WemoOn},
	}
	c := e.Clone()
	if !c.Equal(e) {
		t.Fatal("clone should equal original")
	}

	c.Rooms[Bedroom] = false
	if !e.Rooms[Bedroom] {
		t.Error("clone shares room map")
	}
	if c.Equal(e) {
		t.Error("changed clone should not equal original")
	}

	if !(Entry{Rooms: map[Room]bool{}}).Equal(Entry{}) {
		t.Error("nil and empty maps should be equal")
	}
	if (Entry{Sequence: Some("")}).Equal(Entry{}) {
		t.Error("empty sequence should differ from unset")
	}
}

func TestEntryEqual_WemoNoneMatchesAbsent(t *testing.T) {
	withNone := Entry{Time: Time{Hour: 6}, Wemos: map[Wemo]WemoCommand{Insight: WemoNone, Mini: WemoOn}}
	without := Entry{Time: Time{Hour: 6}, Wemos: map[Wemo]WemoCommand{Mini: WemoOn}}

	if !withNone.Equal(without) || !without.Equal(withNone) {
		t.Error("WemoNone should equal an absent key")
	}
	if c := withNone.Clone(); len(c.Wemos) != 1 {
		t.Errorf("Clone().Wemos = %v, want WemoNone dropped", c.Wemos)
	}
	if (Entry{Wemos: map[Wemo]WemoCommand{Insight: WemoNone}}).Clone().Wemos != nil {
		t.Error("Clone() of only WemoNone should have nil Wemos")
	}
	if withNone.Equal(Entry{Time: Time{Hour: 6}}) {
		t.Error("entries with different commands should differ")
	}
}

func TestEntryValidate(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
		ok    bool
	}{
		{"midnight", Entry{Time: Time{Hour: 0, Minute: 0}}, true},
		{"last minute", Entry{Time: Time{Hour: 23, Minute: 59}, Days: NewDaySet(Sun, Sat)}, true},
		{"full entry", Entry{
			Time:  Time{Hour: 6, Minute: 30},
			Rooms: map[Room]bool{Bedroom: true},
			Wemos: map[Wemo]WemoCommand{Insight: WemoToggle, Mini: WemoNone},
		}, true},
		{"hour too large", Entry{Time: Time{Hour: 24}}, false},
		{"hour 99 minute -5", Entry{Time: Time{Hour: 99, Minute: -5}}, false},
		{"negative hour", Entry{Time: Time{Hour: -1}}, false},
		{"minute too large", Entry{Time: Time{Hour: 7, Minute: 60}}, false},
		{"days outside week", Entry{Days: DaySet(1 << 7)}, false},
		{"unknown room", Entry{Rooms: map[Room]bool{"garage": true}}, false},
		{"unknown wemo", Entry{Wemos: map[Wemo]WemoCommand{"Kettle": WemoOn}}, false},
		{"unknown command", Entry{Wemos: map[Wemo]WemoCommand{Mini: "blink"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() error = %v, want nil", err)
			}
			if !tt.ok && !errors.Is(err, ErrMalformedEntry) {
				t.Errorf("Validate() error = %v, want ErrMalformedEntry", err)
			}
		})
	}
}
