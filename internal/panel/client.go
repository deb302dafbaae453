// Package panel is the HTTP client for the LED controller's REST surface:
// schedule sync, sequences and solid color.
package panel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/dokzlo13/ledpanel/internal/schedule"
)

// ErrSyncFailed is returned when a schedule write does not reach the
// controller or is rejected by it. Local state is unaffected.
var ErrSyncFailed = errors.New("schedule sync failed")

// Client talks to the controller. It holds no state besides the transport.
type Client struct {
	baseURL    string
	httpClient *http.Client

	// Color sliders fire on every change; writes are throttled.
	colorLimiter *rate.Limiter
}

// NewClient creates a client for the controller at baseURL.
// colorRPS limits SetColor calls (0 disables the limit).
func NewClient(baseURL string, httpClient *http.Client, colorRPS float64) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	limit := rate.Inf
	burst := 1
	if colorRPS > 0 {
		limit = rate.Limit(colorRPS)
		burst = int(colorRPS)
		if burst < 1 {
			burst = 1
		}
	}

	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   httpClient,
		colorLimiter: rate.NewLimiter(limit, burst),
	}
}

// BaseURL returns the controller address
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Close closes idle connections
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// Request performs an HTTP request against the controller. Responses with
// a status of 400 or above are returned as errors.
func (c *Client) Request(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("controller error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return resp, nil
}

// FetchSchedule returns the controller's schedule snapshot in wire form.
// A body that is not a list of entries is reported as ErrMalformedSchedule.
func (c *Client) FetchSchedule(ctx context.Context) ([]schedule.WireEntry, error) {
	resp, err := c.Request(ctx, http.MethodGet, "/api/get-schedule", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch schedule: %w", err)
	}
	defer resp.Body.Close()

	var wire []schedule.WireEntry
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("%w: %v", schedule.ErrMalformedSchedule, err)
	}
	return wire, nil
}

// Persist replaces the controller's whole schedule with entries in a single
// write. Entries that fail validation are rejected with
// schedule.ErrMalformedEntry before anything is sent; write failures wrap
// ErrSyncFailed.
func (c *Client) Persist(ctx context.Context, entries []schedule.Entry) error {
	wire, err := schedule.EncodeAll(entries)
	if err != nil {
		return fmt.Errorf("refusing to write schedule: %w", err)
	}
	body, err := json.Marshal(wire)
	if err != nil {
		return fmt.Errorf("%w: failed to encode schedule: %v", ErrSyncFailed, err)
	}

	resp, err := c.Request(ctx, http.MethodPost, "/api/set-schedule", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSyncFailed, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return nil
}
