package app

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/ledpanel/internal/config"
	"github.com/dokzlo13/ledpanel/internal/db"
	"github.com/dokzlo13/ledpanel/internal/editor"
	"github.com/dokzlo13/ledpanel/internal/ledger"
	"github.com/dokzlo13/ledpanel/internal/mock"
	"github.com/dokzlo13/ledpanel/internal/panel"
	"github.com/dokzlo13/ledpanel/internal/schedule"
	"github.com/dokzlo13/ledpanel/internal/state"
)

// controller runs the mock controller. failWrites makes set-schedule answer
// 503 while set; failReloads makes the first get-schedule after each write
// answer 503. While holdWrites is set, set-schedule signals entered and
// blocks until hold is closed.
type controller struct {
	ts          *httptest.Server
	failWrites  atomic.Bool
	failReloads atomic.Bool
	writes      atomic.Int32
	holdWrites  atomic.Bool
	hold        chan struct{}
	entered     chan struct{}

	reloadPending atomic.Bool
}

func newController(t *testing.T, initial string) *controller {
	t.Helper()
	database, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	server, err := mock.NewServer(state.NewStore(database.DB), mock.Config{})
	require.NoError(t, err)
	router := server.Router()

	c := &controller{hold: make(chan struct{}), entered: make(chan struct{}, 1)}
	c.ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/set-schedule":
			if c.failWrites.Load() {
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
			if c.holdWrites.Load() {
				c.entered <- struct{}{}
				<-c.hold
			}
			c.writes.Add(1)
			if c.failReloads.Load() {
				c.reloadPending.Store(true)
			}
		case "/api/get-schedule":
			if c.reloadPending.CompareAndSwap(true, false) {
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		router.ServeHTTP(w, r)
	}))
	t.Cleanup(c.ts.Close)

	resp, err := http.Post(c.ts.URL+"/api/set-schedule", "application/json", strings.NewReader(initial))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return c
}

func newTestApp(t *testing.T, url string) *App {
	t.Helper()
	cfg, err := config.Parse(nil)
	require.NoError(t, err)
	cfg.Controller.URL = url
	cfg.Database.Path = ":memory:"

	a, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func fetch(t *testing.T, url string) []schedule.Entry {
	t.Helper()
	wire, err := panel.NewClient(url, nil, 0).FetchSchedule(context.Background())
	require.NoError(t, err)
	entries, err := schedule.DecodeAll(wire)
	require.NoError(t, err)
	return entries
}

const twoEntries = `[
	{"hour":"07","minute":"30","days":["Mon","Wed"]},
	{"hour":"09","minute":"00","days":["Sat"],"rooms":{"bedroom":true}}
]`

func TestEditEntry(t *testing.T) {
	c := newController(t, twoEntries)
	a := newTestApp(t, c.ts.URL)

	err := a.EditEntry(context.Background(), 2,
		func(s *editor.Session) error { return s.ToggleDay(schedule.Sun) },
		func(s *editor.Session) error { return s.SetRoom(schedule.Bedroom, schedule.RoomUnset) },
	)
	require.NoError(t, err)

	got := fetch(t, c.ts.URL)
	require.Len(t, got, 2)
	assert.Equal(t, schedule.Time{Hour: 7, Minute: 30}, got[0].Time)
	assert.Equal(t, schedule.NewDaySet(schedule.Sat, schedule.Sun), got[1].Days)
	assert.Empty(t, got[1].Rooms)

	var buf bytes.Buffer
	require.NoError(t, a.ListSchedule(context.Background(), &buf))
	assert.Contains(t, buf.String(), "Sun,Sat")
}

func TestEditEntry_OutOfRange(t *testing.T) {
	c := newController(t, twoEntries)
	a := newTestApp(t, c.ts.URL)

	err := a.EditEntry(context.Background(), 3)
	assert.True(t, errors.Is(err, ErrNoSuchEntry), "error = %v", err)
}

func TestToggleEnabled(t *testing.T) {
	c := newController(t, twoEntries)
	a := newTestApp(t, c.ts.URL)

	enabled, err := a.ToggleEnabled(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, enabled)

	got := fetch(t, c.ts.URL)
	assert.False(t, got[0].Enabled)
	assert.True(t, got[1].Enabled)
}

func TestRetryAfterFailedSave(t *testing.T) {
	c := newController(t, twoEntries)
	a := newTestApp(t, c.ts.URL)

	c.failWrites.Store(true)
	err := a.EditEntry(context.Background(), 1, func(s *editor.Session) error { return s.SetTime(6, 15) })
	require.ErrorIs(t, err, panel.ErrSyncFailed)

	draft, ok, err := a.PendingDraft()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, draft.Position)
	assert.Contains(t, draft.Error, "unavailable")

	c.failWrites.Store(false)
	require.NoError(t, a.Retry(context.Background()))

	got := fetch(t, c.ts.URL)
	assert.Equal(t, schedule.Time{Hour: 6, Minute: 15}, got[0].Time)

	_, ok, err = a.PendingDraft()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, a.Retry(context.Background()), ErrNoDraft)
}

func TestRetry_StaleAfterRemoteChange(t *testing.T) {
	c := newController(t, twoEntries)
	a := newTestApp(t, c.ts.URL)

	c.failWrites.Store(true)
	err := a.EditEntry(context.Background(), 2, func(s *editor.Session) error { return s.SetEnabled(false) })
	require.Error(t, err)
	c.failWrites.Store(false)

	// Another panel rewrote the schedule meanwhile.
	resp, err := http.Post(c.ts.URL+"/api/set-schedule", "application/json",
		strings.NewReader(`[{"hour":"07","minute":"30","days":["Mon","Wed"]}]`))
	require.NoError(t, err)
	resp.Body.Close()

	assert.ErrorIs(t, a.Retry(context.Background()), schedule.ErrStaleEditTarget)

	require.NoError(t, a.DiscardDraft())
	_, ok, _ := a.PendingDraft()
	assert.False(t, ok)
}

func TestHistoryRecordsSaves(t *testing.T) {
	c := newController(t, twoEntries)
	a := newTestApp(t, c.ts.URL)

	require.NoError(t, a.EditEntry(context.Background(), 1, func(s *editor.Session) error { return s.SetTime(8, 0) }))

	c.failWrites.Store(true)
	require.Error(t, a.EditEntry(context.Background(), 2, func(s *editor.Session) error { return s.SetEnabled(false) }))

	require.Eventually(t, func() bool {
		entries, err := a.History(10)
		return err == nil && len(entries) == 2
	}, 2*time.Second, 10*time.Millisecond)

	entries, err := a.History(10)
	require.NoError(t, err)
	assert.Equal(t, ledger.EventScheduleSaveFailed, entries[0].EventType)
	assert.NotEmpty(t, entries[0].Payload["error"])
	assert.Equal(t, ledger.EventScheduleSaved, entries[1].EventType)
	assert.Equal(t, "08:00", entries[1].Payload["time"])
}

func TestRetry_EditAlreadyWritten(t *testing.T) {
	c := newController(t, twoEntries)
	a := newTestApp(t, c.ts.URL)
	c.writes.Store(0)

	c.failReloads.Store(true)
	err := a.EditEntry(context.Background(), 1, func(s *editor.Session) error { return s.SetTime(6, 15) })
	require.ErrorIs(t, err, panel.ErrSyncFailed)
	c.failReloads.Store(false)

	_, ok, err := a.PendingDraft()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, schedule.Time{Hour: 6, Minute: 15}, fetch(t, c.ts.URL)[0].Time)

	require.NoError(t, a.Retry(context.Background()))
	assert.EqualValues(t, 1, c.writes.Load(), "retry must not write again")

	_, ok, err = a.PendingDraft()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestToggleEnabled_SessionBusyLeavesRow(t *testing.T) {
	c := newController(t, twoEntries)
	a := newTestApp(t, c.ts.URL)
	c.holdWrites.Store(true)

	done := make(chan error, 1)
	go func() {
		done <- a.EditEntry(context.Background(), 2, func(s *editor.Session) error { return s.SetTime(10, 0) })
	}()
	<-c.entered

	_, err := a.ToggleEnabled(context.Background(), 1)
	assert.ErrorIs(t, err, editor.ErrSubmitting)

	row, ok := a.Services().List.Row(1)
	require.True(t, ok)
	assert.True(t, row.Entry.Enabled, "row must not flip when the session cannot open")

	close(c.hold)
	require.NoError(t, <-done)
}
