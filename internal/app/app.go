package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/ledpanel/internal/config"
	"github.com/dokzlo13/ledpanel/internal/editor"
	"github.com/dokzlo13/ledpanel/internal/eventbus"
	"github.com/dokzlo13/ledpanel/internal/ledger"
	"github.com/dokzlo13/ledpanel/internal/panel"
)

var (
	// ErrNoSuchEntry is returned for a list position outside the schedule.
	ErrNoSuchEntry = errors.New("no such schedule entry")
	// ErrNoDraft is returned by Retry when no failed edit is pending.
	ErrNoDraft = errors.New("no failed edit to retry")
)

// Edit is one change applied to an open editor session.
type Edit func(s *editor.Session) error

// App is the main application container that manages all services and their lifecycle.
type App struct {
	cfg      *config.Config
	services *Services
}

// New creates a new App instance with all services initialized.
func New(cfg *config.Config) (*App, error) {
	services, err := NewServices(cfg)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:      cfg,
		services: services,
	}, nil
}

// Services exposes the service container.
func (a *App) Services() *Services {
	return a.services
}

// Close releases all resources, waiting up to the shutdown timeout for
// queued events.
func (a *App) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.GetShutdownTimeout())
	defer cancel()
	a.services.Close(ctx)
}

// ListSchedule syncs with the controller and renders the schedule.
func (a *App) ListSchedule(ctx context.Context, out io.Writer) error {
	if err := a.services.Sync(ctx); err != nil {
		return err
	}
	return a.services.List.Render(out)
}

// EditEntry opens entry n (1-based, as listed), applies edits and saves.
// A failed save is kept as a draft for Retry.
func (a *App) EditEntry(ctx context.Context, n int, edits ...Edit) error {
	if err := a.services.Sync(ctx); err != nil {
		return err
	}

	slot, ok := a.services.List.Row(n)
	if !ok {
		return fmt.Errorf("%w: #%d (schedule has %d entries)", ErrNoSuchEntry, n, a.services.List.Len())
	}

	session := a.services.Session
	if err := session.Open(slot); err != nil {
		return err
	}
	for _, edit := range edits {
		if err := edit(session); err != nil {
			session.Cancel()
			return err
		}
	}

	return a.save(ctx, n-1)
}

// ToggleEnabled flips the enabled flag of entry n in the list and saves it.
func (a *App) ToggleEnabled(ctx context.Context, n int) (bool, error) {
	if err := a.services.Sync(ctx); err != nil {
		return false, err
	}

	slot, ok := a.services.List.Row(n)
	if !ok {
		return false, fmt.Errorf("%w: #%d", ErrNoSuchEntry, n)
	}

	session := a.services.Session
	if err := session.Open(slot); err != nil {
		return false, err
	}
	enabled, err := a.services.List.ToggleEnabled(slot.ID)
	if err != nil {
		session.Cancel()
		return false, err
	}
	if err := session.SetEnabled(enabled); err != nil {
		a.services.List.ToggleEnabled(slot.ID)
		return false, err
	}
	return enabled, a.save(ctx, n-1)
}

// PendingDraft returns the failed edit kept by the last save, if any.
func (a *App) PendingDraft() (editor.Draft, bool, error) {
	return a.services.Drafts.Load()
}

// Retry resubmits the pending draft against a fresh snapshot. A draft whose
// edit already reached the controller is dropped without a write.
func (a *App) Retry(ctx context.Context) error {
	draft, ok, err := a.services.Drafts.Load()
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoDraft
	}

	if err := a.services.Sync(ctx); err != nil {
		return err
	}
	if err := a.services.Drafts.Resume(a.services.Session, a.services.Schedule, draft); err != nil {
		if errors.Is(err, editor.ErrDraftApplied) {
			log.Info().Int("entry", draft.Position+1).Msg("Failed edit was already saved, draft dropped")
			return nil
		}
		return err
	}

	log.Info().Int("entry", draft.Position+1).Time("saved_at", draft.SavedAt).Msg("Retrying failed edit")
	return a.save(ctx, draft.Position)
}

// DiscardDraft drops the pending draft.
func (a *App) DiscardDraft() error {
	return a.services.Drafts.Clear()
}

// History returns the most recent schedule saves and failures, newest first.
func (a *App) History(limit int) ([]*ledger.Entry, error) {
	return a.services.Ledger.Recent(limit)
}

// WatchColor reports every color change seen by the preview watcher to fn
// until ctx is cancelled.
func (a *App) WatchColor(ctx context.Context, fn func(panel.Color)) error {
	unsubscribe := a.services.Bus.Subscribe(eventbus.EventTypeColorChanged, func(e eventbus.Event) {
		if c, ok := e.Data["color"].(panel.Color); ok {
			fn(c)
		}
	})
	defer unsubscribe()

	watcher := panel.NewPreviewWatcher(a.services.Preview, a.services.Bus, panel.PreviewConfig{
		MinBackoff:    a.cfg.Preview.MinRetryBackoff.Duration(),
		MaxBackoff:    a.cfg.Preview.MaxRetryBackoff.Duration(),
		Multiplier:    a.cfg.Preview.RetryMultiplier,
		MaxReconnects: a.cfg.Preview.MaxReconnects,
	})
	return watcher.Run(ctx)
}

func (a *App) save(ctx context.Context, position int) error {
	session := a.services.Session

	if err := session.Save(ctx, a.services.List); err != nil {
		if derr := a.services.Drafts.Save(session, position); derr != nil {
			log.Warn().Err(derr).Msg("Failed to keep draft of failed edit")
		}
		return err
	}

	a.services.List.Refresh(a.services.Schedule.Snapshot())
	if err := a.services.Drafts.Clear(); err != nil {
		log.Warn().Err(err).Msg("Failed to clear draft")
	}
	return nil
}

// SignalContext creates a context that is cancelled when SIGINT or SIGTERM is received.
func SignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	return ctx
}
