package panel

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/ledpanel/internal/eventbus"
)

// ErrMaxReconnectsExceeded is returned when the preview watcher gives up.
var ErrMaxReconnectsExceeded = errors.New("max reconnects exceeded")

// PreviewConfig controls how the preview watcher backs off after failures.
type PreviewConfig struct {
	MinBackoff    time.Duration
	MaxBackoff    time.Duration
	Multiplier    float64
	MaxReconnects int // 0 = infinite
}

// DefaultPreviewConfig returns the default backoff policy.
func DefaultPreviewConfig() PreviewConfig {
	return PreviewConfig{
		MinBackoff: 1 * time.Second,
		MaxBackoff: 1 * time.Minute,
		Multiplier: 2.0,
	}
}

// PreviewWatcher long-polls the controller's current color and publishes
// EventTypeColorChanged whenever it differs from the last one seen.
// Delivery is best-effort: failures only delay the next poll.
type PreviewWatcher struct {
	client *Client
	bus    *eventbus.Bus
	config PreviewConfig

	last    Color
	hasLast bool
}

// NewPreviewWatcher creates a watcher. client should not carry a request
// timeout shorter than the controller's long-poll window.
func NewPreviewWatcher(client *Client, bus *eventbus.Bus, config PreviewConfig) *PreviewWatcher {
	if config.MinBackoff <= 0 {
		config.MinBackoff = DefaultPreviewConfig().MinBackoff
	}
	if config.MaxBackoff < config.MinBackoff {
		config.MaxBackoff = config.MinBackoff
	}
	if config.Multiplier < 1 {
		config.Multiplier = DefaultPreviewConfig().Multiplier
	}
	return &PreviewWatcher{client: client, bus: bus, config: config}
}

// Run polls until ctx is cancelled. Returns ErrMaxReconnectsExceeded when
// the configured number of consecutive failures is exceeded.
func (p *PreviewWatcher) Run(ctx context.Context) error {
	retryCount := 0
	currentBackoff := p.config.MinBackoff

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		color, err := p.client.GetColor(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			retryCount++
			if p.config.MaxReconnects > 0 && retryCount > p.config.MaxReconnects {
				log.Error().
					Int("max_reconnects", p.config.MaxReconnects).
					Msg("Color preview: max reconnects exceeded, terminating")
				return ErrMaxReconnectsExceeded
			}

			log.Warn().
				Err(err).
				Dur("backoff", currentBackoff).
				Int("retry", retryCount).
				Msg("Color preview poll failed, retrying")

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(currentBackoff):
			}

			next := time.Duration(float64(currentBackoff) * p.config.Multiplier)
			if next > p.config.MaxBackoff {
				next = p.config.MaxBackoff
			}
			currentBackoff = next
			continue
		}

		retryCount = 0
		currentBackoff = p.config.MinBackoff
		p.observe(color)
	}
}

func (p *PreviewWatcher) observe(color Color) {
	if p.hasLast && color == p.last {
		return
	}
	p.last = color
	p.hasLast = true

	log.Debug().Str("color", color.String()).Msg("Color preview changed")

	p.bus.Publish(eventbus.Event{
		Type: eventbus.EventTypeColorChanged,
		Data: map[string]interface{}{
			"color": color,
		},
	})
}
