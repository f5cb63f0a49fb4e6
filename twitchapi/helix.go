// Package twitchapi contains minimal helpers to interact with Twitch Helix
// APIs for user id resolution and live-stream polling, using an app access
// token.
package twitchapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

const defaultHelixBaseURL = "https://api.twitch.tv/helix"

// HelixClient provides the minimal methods needed for streamer polling.
// BaseURL overrides the Helix endpoint in tests.
type HelixClient struct {
	AppTokenSource *TokenSource
	ClientID       string
	BaseURL        string
	HTTPClient     *http.Client
}

func (hc *HelixClient) http() *http.Client {
	if hc.HTTPClient != nil {
		return hc.HTTPClient
	}
	return http.DefaultClient
}

func (hc *HelixClient) baseURL() string {
	if hc.BaseURL != "" {
		return hc.BaseURL
	}
	return defaultHelixBaseURL
}

func (hc *HelixClient) get(ctx context.Context, path string, query map[string][]string, out any) error {
	tok, err := hc.AppTokenSource.Get(ctx)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, hc.baseURL()+path, nil)
	if err != nil {
		return err
	}
	q := req.URL.Query()
	for k, vs := range query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Client-Id", hc.ClientID)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := hc.http().Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("helix %s failed: %s: %s", path, resp.Status, string(b))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// GetUserID resolves a login name to its user ID.
func (hc *HelixClient) GetUserID(ctx context.Context, login string) (string, error) {
	if login == "" {
		return "", fmt.Errorf("login empty")
	}
	var body struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := hc.get(ctx, "/users", map[string][]string{"login": {login}}, &body); err != nil {
		return "", err
	}
	if len(body.Data) == 0 {
		return "", fmt.Errorf("user not found")
	}
	return body.Data[0].ID, nil
}

// Stream is one live stream as reported by Helix.
type Stream struct {
	UserLogin string `json:"user_login"`
	UserName  string `json:"user_name"`
	Title     string `json:"title"`
	GameName  string `json:"game_name"`
	Viewers   int    `json:"viewer_count"`
	StartedAt string `json:"started_at"`
}

// GetStreams returns the subset of the given logins that are currently live.
// Offline logins simply have no entry in the result.
func (hc *HelixClient) GetStreams(ctx context.Context, logins []string) (map[string]Stream, error) {
	if len(logins) == 0 {
		return map[string]Stream{}, nil
	}
	var body struct {
		Data []Stream `json:"data"`
	}
	if err := hc.get(ctx, "/streams", map[string][]string{"user_login": logins}, &body); err != nil {
		return nil, err
	}
	out := make(map[string]Stream, len(body.Data))
	for _, s := range body.Data {
		out[strings.ToLower(s.UserLogin)] = s
	}
	return out, nil
}
