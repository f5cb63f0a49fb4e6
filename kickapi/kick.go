// Package kickapi polls Kick's public channel endpoint for live status. Kick
// has no equivalent of a Helix app token; the channel endpoint is unauthenticated.
package kickapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	defaultBaseURL = "https://kick.com/api/v2"
	defaultTimeout = 10 * time.Second
)

// Client queries Kick channel status. BaseURL overrides the endpoint in tests.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient returns a client with a bounded request timeout.
func NewClient() *Client {
	return &Client{
		BaseURL:    defaultBaseURL,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

// ChannelStatus is the subset of the channel payload the poller cares about.
type ChannelStatus struct {
	Slug  string
	Live  bool
	Title string
}

// GetChannel fetches the live status for a channel slug.
func (c *Client) GetChannel(ctx context.Context, slug string) (*ChannelStatus, error) {
	if slug == "" {
		return nil, fmt.Errorf("slug empty")
	}
	base := c.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/channels/"+slug, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("kick channel request failed: %s: %s", resp.Status, string(b))
	}
	var body struct {
		Slug       string `json:"slug"`
		Livestream *struct {
			IsLive       bool   `json:"is_live"`
			SessionTitle string `json:"session_title"`
		} `json:"livestream"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	st := &ChannelStatus{Slug: body.Slug}
	if body.Livestream != nil {
		st.Live = body.Livestream.IsLive
		st.Title = body.Livestream.SessionTitle
	}
	return st, nil
}
