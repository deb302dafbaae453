package panel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// ListSequences returns the references of all recorded sequences.
func (c *Client) ListSequences(ctx context.Context) ([]string, error) {
	resp, err := c.Request(ctx, http.MethodGet, "/api/get-sequences", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list sequences: %w", err)
	}
	defer resp.Body.Close()

	var refs []string
	if err := json.NewDecoder(resp.Body).Decode(&refs); err != nil {
		return nil, fmt.Errorf("failed to decode sequences: %w", err)
	}
	return refs, nil
}

// ActivateSequence starts playing the sequence ref.
func (c *Client) ActivateSequence(ctx context.Context, ref string) error {
	body, err := json.Marshal(map[string]string{"name": ref})
	if err != nil {
		return err
	}

	resp, err := c.Request(ctx, http.MethodPost, "/api/set-sequence", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to activate sequence %q: %w", ref, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return nil
}
