package panel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Color is an RGBW value as exchanged with the controller.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	W uint8 `json:"w"`
}

// String returns the CSS rgb() form of the RGB part plus the white channel.
func (c Color) String() string {
	return fmt.Sprintf("rgb(%d, %d, %d) w=%d", c.R, c.G, c.B, c.W)
}

// ColorPath returns the controller path that sets c. The values are encoded
// in the path itself, not in a query.
func ColorPath(c Color) string {
	return fmt.Sprintf("/api/set-rgbw-r=%d&g=%d&b=%d&w=%d", c.R, c.G, c.B, c.W)
}

// SetColor fades the LEDs to c. Calls are throttled by the client's limiter.
func (c *Client) SetColor(ctx context.Context, color Color) error {
	if err := c.colorLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("color rate limiter: %w", err)
	}

	resp, err := c.Request(ctx, http.MethodPost, ColorPath(color), nil)
	if err != nil {
		return fmt.Errorf("failed to set color: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return nil
}

// GetColor returns the color currently shown. The controller may hold the
// request open until the color changes.
func (c *Client) GetColor(ctx context.Context) (Color, error) {
	resp, err := c.Request(ctx, http.MethodGet, "/api/get-rgbw", nil)
	if err != nil {
		return Color{}, fmt.Errorf("failed to get color: %w", err)
	}
	defer resp.Body.Close()

	var color Color
	if err := json.NewDecoder(resp.Body).Decode(&color); err != nil {
		return Color{}, fmt.Errorf("failed to decode color: %w", err)
	}
	return color, nil
}
