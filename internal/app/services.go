package app

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/ledpanel/internal/config"
	"github.com/dokzlo13/ledpanel/internal/db"
	"github.com/dokzlo13/ledpanel/internal/editor"
	"github.com/dokzlo13/ledpanel/internal/eventbus"
	"github.com/dokzlo13/ledpanel/internal/ledger"
	"github.com/dokzlo13/ledpanel/internal/panel"
	"github.com/dokzlo13/ledpanel/internal/schedule"
	"github.com/dokzlo13/ledpanel/internal/state"
	"github.com/dokzlo13/ledpanel/internal/view"
)

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// Core infrastructure
	DB     *db.DB
	State  *state.Store
	Ledger *ledger.Ledger
	Bus    *eventbus.Bus

	// Controller transport. Preview has no request timeout, the
	// controller holds /api/get-rgbw open until the color changes.
	Client  *panel.Client
	Preview *panel.Client

	// Schedule subsystem
	Schedule *schedule.Store
	List     *view.List
	Session  *editor.Session
	Drafts   *editor.Drafts
}

// NewServices creates all services with proper dependency injection.
func NewServices(cfg *config.Config) (*Services, error) {
	s := &Services{cfg: cfg}

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	s.DB = database
	s.State = state.NewStore(database.DB)
	s.Ledger = ledger.New(database.DB)

	retention := cfg.Ledger.RetentionPeriod.Duration()
	if deleted, err := s.Ledger.DeleteOlderThan(retention); err != nil {
		log.Error().Err(err).Msg("Failed to cleanup old ledger entries")
	} else if deleted > 0 {
		log.Info().Int64("deleted", deleted).Dur("retention", retention).Msg("Cleaned up old ledger entries")
	}

	s.Drafts = editor.NewDrafts(s.State)

	// One worker keeps color previews in order.
	s.Bus = eventbus.NewWithConfig(1, eventbus.DefaultQueueSize)

	s.Client = panel.NewClient(
		cfg.Controller.URL,
		&http.Client{Timeout: cfg.Controller.Timeout.Duration()},
		cfg.Controller.ColorRateLimitRPS,
	)
	s.Preview = panel.NewClient(cfg.Controller.URL, &http.Client{}, 0)

	s.Schedule = schedule.NewStore(s.Bus)
	s.List = view.NewList()
	s.Session = editor.New(s.Schedule, s.Client, s.Bus, cfg.Controller.SyncTimeout.Duration())

	s.Bus.Subscribe(eventbus.EventTypeScheduleLoaded, func(e eventbus.Event) {
		log.Debug().Interface("entries", e.Data["entries"]).Msg("Schedule reloaded")
	})
	s.Bus.Subscribe(eventbus.EventTypeSessionSaved, s.record(ledger.EventScheduleSaved))
	s.Bus.Subscribe(eventbus.EventTypeSessionFailed, s.record(ledger.EventScheduleSaveFailed))

	return s, nil
}

// record returns a bus handler appending editor outcomes to the ledger.
func (s *Services) record(eventType ledger.EventType) eventbus.Handler {
	return func(e eventbus.Event) {
		slot := e.String("slot")
		payload := make(map[string]any, len(e.Data))
		for k, v := range e.Data {
			if k != "slot" {
				payload[k] = v
			}
		}
		if err := s.Ledger.Append(eventType, slot, payload); err != nil {
			log.Warn().Err(err).Str("event_type", string(eventType)).Msg("Failed to record save history")
		}
	}
}

// Sync fetches the controller's schedule, loads it into the store and
// re-renders the list.
func (s *Services) Sync(ctx context.Context) error {
	wire, err := s.Client.FetchSchedule(ctx)
	if err != nil {
		return err
	}
	if err := s.Schedule.Load(wire); err != nil {
		return err
	}
	s.List.Refresh(s.Schedule.Snapshot())
	return nil
}

// Close releases all resources.
func (s *Services) Close(ctx context.Context) {
	if s.Bus != nil {
		s.Bus.Close(ctx)
	}
	if s.Client != nil {
		s.Client.Close()
	}
	if s.Preview != nil {
		s.Preview.Close()
	}
	if s.DB != nil {
		s.DB.Close()
	}
}
